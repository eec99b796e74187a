package rights

import "fmt"

// ShareType names one of the four independent share axes.
type ShareType string

const (
	ShareMechanicalOwnership   ShareType = "mechanical_ownership"
	SharePerformanceOwnership  ShareType = "performance_ownership"
	ShareMechanicalCollection  ShareType = "mechanical_collection"
	SharePerformanceCollection ShareType = "performance_collection"
)

var allShareTypes = []ShareType{
	ShareMechanicalOwnership,
	SharePerformanceOwnership,
	ShareMechanicalCollection,
	SharePerformanceCollection,
}

// ShareTypes returns the ordered list of share axes.
func ShareTypes() []ShareType {
	cp := make([]ShareType, len(allShareTypes))
	copy(cp, allShareTypes)
	return cp
}

// IsOwnership reports whether the axis tracks legal copyright share rather
// than collection entitlement.
func (t ShareType) IsOwnership() bool {
	return t == ShareMechanicalOwnership || t == SharePerformanceOwnership
}

// Shares carries a node's percentage on each of the four axes. Ownership is
// legal share of the copyright; collection is the share of royalty collection
// assigned to an administrator. The two need not match: a sub-publisher may
// collect 100% while owning 0%.
type Shares struct {
	MechanicalOwnership   float64 `json:"mechanical_ownership"`
	PerformanceOwnership  float64 `json:"performance_ownership"`
	MechanicalCollection  float64 `json:"mechanical_collection"`
	PerformanceCollection float64 `json:"performance_collection"`
}

// Value returns the percentage for a share axis.
func (s Shares) Value(t ShareType) float64 {
	switch t {
	case ShareMechanicalOwnership:
		return s.MechanicalOwnership
	case SharePerformanceOwnership:
		return s.PerformanceOwnership
	case ShareMechanicalCollection:
		return s.MechanicalCollection
	case SharePerformanceCollection:
		return s.PerformanceCollection
	default:
		return 0
	}
}

// Validate rejects shares outside [0, 100] on any axis.
func (s Shares) Validate() error {
	for _, t := range allShareTypes {
		v := s.Value(t)
		if v < 0 || v > 100 {
			return fmt.Errorf("%s share %.2f outside [0, 100]", t, v)
		}
	}
	return nil
}

// Totals accumulates per-territory rollups, one value per share axis.
// Totals are derived state: recomputed from node shares, never hand-edited.
type Totals struct {
	MechanicalOwnership   float64 `json:"mechanical_ownership"`
	PerformanceOwnership  float64 `json:"performance_ownership"`
	MechanicalCollection  float64 `json:"mechanical_collection"`
	PerformanceCollection float64 `json:"performance_collection"`
}

// Value returns the accumulated total for a share axis.
func (t Totals) Value(st ShareType) float64 {
	switch st {
	case ShareMechanicalOwnership:
		return t.MechanicalOwnership
	case SharePerformanceOwnership:
		return t.PerformanceOwnership
	case ShareMechanicalCollection:
		return t.MechanicalCollection
	case SharePerformanceCollection:
		return t.PerformanceCollection
	default:
		return 0
	}
}

// Add accumulates a node's shares into the totals.
func (t *Totals) Add(s Shares) {
	t.MechanicalOwnership += s.MechanicalOwnership
	t.PerformanceOwnership += s.PerformanceOwnership
	t.MechanicalCollection += s.MechanicalCollection
	t.PerformanceCollection += s.PerformanceCollection
}

// Subtract removes a node's shares from the totals.
func (t *Totals) Subtract(s Shares) {
	t.MechanicalOwnership -= s.MechanicalOwnership
	t.PerformanceOwnership -= s.PerformanceOwnership
	t.MechanicalCollection -= s.MechanicalCollection
	t.PerformanceCollection -= s.PerformanceCollection
}
