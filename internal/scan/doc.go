// Package scan runs matching jobs: catalog walks that group works by
// fingerprint and open conflicts on the groups they touch. A single-row
// database lease guarantees at most one running job across all processes.
package scan
