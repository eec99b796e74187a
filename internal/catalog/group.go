package catalog

import "time"

// MatchGroup is a cluster of works believed to represent the same underlying
// composition, possibly registered independently by different accounts.
// Identity is the fingerprint; membership only grows, but canonical metadata
// and claimed-ownership totals are recomputed on every scan pass.
type MatchGroup struct {
	ID                    int64
	Fingerprint           string
	CanonicalTitle        string
	CanonicalISWC         string
	MemberCount           int
	TotalClaimedOwnership float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
