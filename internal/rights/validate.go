package rights

import (
	"fmt"
	"math"
)

// DefaultEpsilon is the tolerance applied to the 100% rollup invariant.
const DefaultEpsilon = 0.01

// StructuralKind classifies structural chain errors, which are rejected
// before any rollup work and are distinct from invariant violations.
type StructuralKind string

const (
	StructuralDuplicateTerritory StructuralKind = "duplicate_territory"
	StructuralInvalidTerritory   StructuralKind = "invalid_territory"
	StructuralInvalidNode        StructuralKind = "invalid_node"
)

// StructuralError reports a malformed chain: duplicate or invalid
// territories, claimants referencing neither or both parties, shares out of
// range, or children under writer nodes.
type StructuralError struct {
	Kind      StructuralKind
	Territory string
	Detail    string
}

func (e *StructuralError) Error() string {
	if e.Territory != "" {
		return fmt.Sprintf("structural chain error (%s, territory %s): %s", e.Kind, e.Territory, e.Detail)
	}
	return fmt.Sprintf("structural chain error (%s): %s", e.Kind, e.Detail)
}

// Violation records one share axis of one territory deviating from 100%.
type Violation struct {
	ShareType ShareType `json:"share_type"`
	Total     float64   `json:"total"`
	// Deviation is signed: positive for overallocation, negative for gaps.
	Deviation float64 `json:"deviation"`
}

// TerritoryReport carries the recomputed rollups and any violations for one
// territory.
type TerritoryReport struct {
	Territory  string      `json:"territory"`
	Totals     Totals      `json:"totals"`
	Violations []Violation `json:"violations,omitempty"`
}

// Result is the outcome of validating a full rights chain. Violations are
// data, not errors: callers decide whether to block saving or merely warn.
type Result struct {
	Territories []TerritoryReport `json:"territories"`
}

// Valid reports whether every territory satisfies the 100% invariant on all
// four axes.
func (r *Result) Valid() bool {
	for _, report := range r.Territories {
		if len(report.Violations) > 0 {
			return false
		}
	}
	return true
}

// ViolationCount returns the total number of violations across territories.
func (r *Result) ViolationCount() int {
	count := 0
	for _, report := range r.Territories {
		count += len(report.Violations)
	}
	return count
}

// Validator checks the per-territory apportionment invariants of a rights
// chain. The zero value is not usable; construct with NewValidator.
type Validator struct {
	epsilon float64
}

// NewValidator builds a validator with the given rollup tolerance. Tolerances
// at or below zero fall back to DefaultEpsilon.
func NewValidator(epsilon float64) *Validator {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Validator{epsilon: epsilon}
}

// Validate recomputes every territory's rollups and reports per-axis
// deviations from 100%. Structural problems are returned as a
// *StructuralError before any rollup computation; an empty chain yields an
// empty, valid result. Input node shares are never mutated; only the cached
// totals on each TerritoryChain are updated.
func (v *Validator) Validate(chain []TerritoryChain) (*Result, error) {
	seen := make(map[string]struct{}, len(chain))
	for i := range chain {
		code := chain[i].Territory
		if !ValidTerritory(code) {
			return nil, &StructuralError{
				Kind:      StructuralInvalidTerritory,
				Territory: code,
				Detail:    fmt.Sprintf("%q is neither an ISO-3166 code nor %q", code, TerritoryWorld),
			}
		}
		if _, dup := seen[code]; dup {
			return nil, &StructuralError{
				Kind:      StructuralDuplicateTerritory,
				Territory: code,
				Detail:    "territory listed more than once",
			}
		}
		seen[code] = struct{}{}

		if err := chain[i].validateStructure(); err != nil {
			return nil, &StructuralError{
				Kind:      StructuralInvalidNode,
				Territory: code,
				Detail:    err.Error(),
			}
		}
	}

	result := &Result{Territories: make([]TerritoryReport, 0, len(chain))}
	for i := range chain {
		totals := chain[i].ComputeTotals()
		report := TerritoryReport{Territory: chain[i].Territory, Totals: totals}
		for _, st := range ShareTypes() {
			total := totals.Value(st)
			if math.Abs(total-100) > v.epsilon {
				report.Violations = append(report.Violations, Violation{
					ShareType: st,
					Total:     total,
					Deviation: total - 100,
				})
			}
		}
		result.Territories = append(result.Territories, report)
	}
	return result, nil
}
