// Package catalog owns durable state for the rights catalog: registered
// works with their territory chains, match groups linking independent
// registrations of the same composition, detected ownership conflicts, and
// matching jobs with their single-row execution lease.
//
// All state shares one SQLite database opened in WAL mode. Timestamps are
// stored as fixed-width UTC strings so string comparison orders them
// chronologically.
package catalog
