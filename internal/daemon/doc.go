// Package daemon wires the catalog store, scan runner, and HTTP API into
// the long-running cadenzad process. A lock file enforces one daemon per
// machine; the database job lease enforces one matching job per catalog.
package daemon
