// Package conflict classifies cross-account ownership anomalies within a
// match group: overclaims where combined shares exceed 100%, ownership
// disputes where multiple accounts each register a complete claim, and
// metadata mismatches between members the matcher grouped together.
package conflict
