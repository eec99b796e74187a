// Package logging builds the slog loggers used across cadenza and defines
// the standardized attribute keys shared by the daemon, the scan runner, and
// the operator API.
package logging
