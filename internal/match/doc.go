// Package match groups registered works that describe the same underlying
// composition. Works are keyed by normalized ISWC when one is present and
// by a normalized title fingerprint otherwise; cosine similarity over
// title token vectors supports mismatch scoring downstream.
package match
