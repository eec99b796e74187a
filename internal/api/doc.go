// Package api defines the transport DTOs and read-side services shared by
// the daemon's HTTP surface and the CLI client.
package api
