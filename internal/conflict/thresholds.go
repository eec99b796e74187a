package conflict

import (
	"cadenza/internal/catalog"
	"cadenza/internal/config"
)

// Thresholds carries the tunable breakpoints that drive conflict
// classification and severity grading.
type Thresholds struct {
	// OverclaimEpsilon is the slack over 100% before a combined total
	// counts as an overclaim.
	OverclaimEpsilon float64
	// Excess-over-100 breakpoints. An overclaim is graded medium at or
	// above MediumExcess, high at or above HighExcess, and critical only
	// strictly beyond CriticalExcess, so a total sitting exactly on the
	// critical boundary still grades high.
	MediumExcess   float64
	HighExcess     float64
	CriticalExcess float64
	// TitleSimilarityFloor is the cosine similarity below which member
	// titles count as mismatched.
	TitleSimilarityFloor float64
}

// ThresholdsFromConfig maps the validation config section onto detector
// thresholds.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		OverclaimEpsilon:     cfg.Validation.OverclaimEpsilon,
		MediumExcess:         cfg.Validation.OverclaimMediumExcess,
		HighExcess:           cfg.Validation.OverclaimHighExcess,
		CriticalExcess:       cfg.Validation.OverclaimCriticalExcess,
		TitleSimilarityFloor: cfg.Validation.TitleSimilarityFloor,
	}
}

// overclaimSeverity grades an overclaim by its excess over 100%.
func (t Thresholds) overclaimSeverity(excess float64) catalog.Severity {
	switch {
	case excess > t.CriticalExcess:
		return catalog.SeverityCritical
	case excess >= t.HighExcess:
		return catalog.SeverityHigh
	case excess >= t.MediumExcess:
		return catalog.SeverityMedium
	default:
		return catalog.SeverityLow
	}
}
