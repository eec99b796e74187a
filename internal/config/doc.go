// Package config loads, validates, and normalizes cadenza configuration.
//
// Configuration is read from a TOML file (default ~/.config/cadenza/config.toml,
// falling back to ./cadenza.toml) layered over compiled defaults. Path fields
// are expanded and made absolute during load.
package config
