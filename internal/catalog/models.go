package catalog

import (
	"strings"
	"time"

	"cadenza/internal/rights"
)

// Work is a registered musical work as persisted in the catalog. Each work
// belongs to exactly one account; independent accounts may register the same
// underlying composition separately.
type Work struct {
	ID        int64
	AccountID string
	Title     string
	ISWC      string
	Chain     []rights.TerritoryChain
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnershipClaim is a work's combined root-level ownership for one
// territory/category pair, one value per ownership axis.
type OwnershipClaim struct {
	Territory   string          `json:"territory"`
	Category    rights.Category `json:"category"`
	Mechanical  float64         `json:"mechanical"`
	Performance float64         `json:"performance"`
}

// WorkSummary is the flattened ownership view of a work consumed by match
// grouping and conflict detection.
type WorkSummary struct {
	WorkID    int64            `json:"work_id"`
	AccountID string           `json:"account_id"`
	Title     string           `json:"title"`
	ISWC      string           `json:"iswc,omitempty"`
	Claims    []OwnershipClaim `json:"claims,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Summarize flattens a work's chain into per-territory, per-category
// ownership claims. Claims aggregate the work's top-level nodes only:
// sub-publisher entries redistribute collection inside one registration and
// do not add to what the account claims to own.
func Summarize(w *Work) WorkSummary {
	summary := WorkSummary{
		WorkID:    w.ID,
		AccountID: w.AccountID,
		Title:     w.Title,
		ISWC:      NormalizeISWC(w.ISWC),
		UpdatedAt: w.UpdatedAt,
	}

	type key struct {
		territory string
		category  rights.Category
	}
	index := make(map[key]int)
	for i := range w.Chain {
		territory := w.Chain[i].Territory
		for j := range w.Chain[i].Nodes {
			node := &w.Chain[i].Nodes[j]
			k := key{territory: territory, category: node.Category}
			idx, ok := index[k]
			if !ok {
				idx = len(summary.Claims)
				index[k] = idx
				summary.Claims = append(summary.Claims, OwnershipClaim{
					Territory: territory,
					Category:  node.Category,
				})
			}
			summary.Claims[idx].Mechanical += node.Shares.MechanicalOwnership
			summary.Claims[idx].Performance += node.Shares.PerformanceOwnership
		}
	}
	return summary
}

// NormalizeISWC strips separators and uppercases an ISWC so equal codes
// compare equal regardless of formatting (T-034.524.680-1 vs T0345246801).
func NormalizeISWC(iswc string) string {
	trimmed := strings.TrimSpace(iswc)
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}
