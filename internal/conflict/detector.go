package conflict

import (
	"fmt"
	"sort"
	"strings"

	"cadenza/internal/catalog"
	"cadenza/internal/match"
	"cadenza/internal/rights"
)

// Candidate is one detected anomaly for a match group, ready to be
// persisted as a Conflict.
type Candidate struct {
	Type        catalog.ConflictType
	Severity    catalog.Severity
	Description string
	Accounts    []string
	Territory   string
	Category    rights.Category
	ShareAxis   rights.ShareType
	Total       float64
}

// Detector evaluates a match group's combined claims and classifies
// anomalies. Detection is deterministic: the same members always yield
// the same candidates in the same order.
type Detector struct {
	thresholds Thresholds
}

// NewDetector builds a detector with the given thresholds.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// claimKey locates one combined total.
type claimKey struct {
	territory string
	category  rights.Category
	axis      rights.ShareType
}

// Detect evaluates the group's members and returns at most one candidate
// per (territory, category, axis) key plus at most one group-wide metadata
// mismatch. The second return is the largest combined ownership total seen
// across all keys, used for the group rollup.
//
// For each key the checks apply in order and the first match wins:
//
//  1. Two or more accounts each claiming an effectively complete share
//     is an ownership dispute: the registrations duplicate each other
//     rather than dividing the work.
//  2. A combined total above 100 plus the overclaim epsilon is an
//     overclaim, graded by how far it exceeds 100.
//
// Metadata mismatches are reported only when no share-level candidate
// exists; divergent shares already imply divergent source data.
func (d *Detector) Detect(members []catalog.WorkSummary) ([]Candidate, float64) {
	if len(members) < 2 {
		return nil, maxCombinedTotal(members)
	}

	perAccount := make(map[claimKey]map[string]float64)
	keyOrder := make([]claimKey, 0)
	for _, member := range members {
		for _, claim := range member.Claims {
			for _, axis := range []rights.ShareType{rights.ShareMechanicalOwnership, rights.SharePerformanceOwnership} {
				value := claim.Mechanical
				if axis == rights.SharePerformanceOwnership {
					value = claim.Performance
				}
				if value == 0 {
					continue
				}
				k := claimKey{territory: claim.Territory, category: claim.Category, axis: axis}
				accounts, ok := perAccount[k]
				if !ok {
					accounts = make(map[string]float64)
					perAccount[k] = accounts
					keyOrder = append(keyOrder, k)
				}
				// An account's own duplicate registrations are not
				// additive claims against other accounts; keep its
				// largest single claim.
				if value > accounts[member.AccountID] {
					accounts[member.AccountID] = value
				}
			}
		}
	}
	sort.Slice(keyOrder, func(i, j int) bool {
		a, b := keyOrder[i], keyOrder[j]
		if a.territory != b.territory {
			return a.territory < b.territory
		}
		if a.category != b.category {
			return a.category < b.category
		}
		return a.axis < b.axis
	})

	var candidates []Candidate
	var maxTotal float64
	shareConflict := false
	for _, k := range keyOrder {
		accounts := perAccount[k]
		var combined float64
		complete := make([]string, 0)
		contributors := make([]string, 0, len(accounts))
		for account, value := range accounts {
			combined += value
			contributors = append(contributors, account)
			if value >= 100-d.thresholds.OverclaimEpsilon {
				complete = append(complete, account)
			}
		}
		sort.Strings(contributors)
		sort.Strings(complete)
		if combined > maxTotal {
			maxTotal = combined
		}

		if len(complete) >= 2 {
			severity := catalog.SeverityHigh
			if len(complete) >= 3 {
				severity = catalog.SeverityCritical
			}
			candidates = append(candidates, Candidate{
				Type:     catalog.ConflictOwnershipDispute,
				Severity: severity,
				Description: fmt.Sprintf("%d accounts each claim full %s %s ownership in %s",
					len(complete), k.category, axisLabel(k.axis), territoryLabel(k.territory)),
				Accounts:  complete,
				Territory: k.territory,
				Category:  k.category,
				ShareAxis: k.axis,
				Total:     combined,
			})
			shareConflict = true
			continue
		}

		if combined > 100+d.thresholds.OverclaimEpsilon {
			excess := combined - 100
			candidates = append(candidates, Candidate{
				Type:     catalog.ConflictOverclaim,
				Severity: d.thresholds.overclaimSeverity(excess),
				Description: fmt.Sprintf("combined %s %s ownership in %s totals %.2f%% across %d accounts",
					k.category, axisLabel(k.axis), territoryLabel(k.territory), combined, len(contributors)),
				Accounts:  contributors,
				Territory: k.territory,
				Category:  k.category,
				ShareAxis: k.axis,
				Total:     combined,
			})
			shareConflict = true
		}
	}

	if !shareConflict {
		if mismatch := d.detectMismatch(members); mismatch != nil {
			candidates = append(candidates, *mismatch)
		}
	}
	return candidates, maxTotal
}

// detectMismatch checks group members for divergent identifying metadata.
// Distinct ISWCs in one group mean at least one registration carries the
// wrong code; weakly similar titles suggest the fallback matcher grouped
// registrations that an operator should confirm.
func (d *Detector) detectMismatch(members []catalog.WorkSummary) *Candidate {
	accounts := accountList(members)

	iswcs := make(map[string]struct{})
	for _, member := range members {
		if member.ISWC != "" {
			iswcs[member.ISWC] = struct{}{}
		}
	}
	if len(iswcs) > 1 {
		codes := make([]string, 0, len(iswcs))
		for code := range iswcs {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		return &Candidate{
			Type:        catalog.ConflictDataMismatch,
			Severity:    catalog.SeverityHigh,
			Description: fmt.Sprintf("group members carry %d distinct ISWCs: %s", len(codes), strings.Join(codes, ", ")),
			Accounts:    accounts,
		}
	}

	lowest := 1.0
	var pair [2]string
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			score := match.TitleSimilarity(members[i].Title, members[j].Title)
			if score < lowest {
				lowest = score
				pair = [2]string{members[i].Title, members[j].Title}
			}
		}
	}
	if lowest < d.thresholds.TitleSimilarityFloor {
		return &Candidate{
			Type:     catalog.ConflictDataMismatch,
			Severity: catalog.SeverityMedium,
			Description: fmt.Sprintf("member titles %q and %q score %.2f similarity, below the %.2f floor",
				pair[0], pair[1], lowest, d.thresholds.TitleSimilarityFloor),
			Accounts: accounts,
		}
	}
	return nil
}

func accountList(members []catalog.WorkSummary) []string {
	seen := make(map[string]struct{}, len(members))
	accounts := make([]string, 0, len(members))
	for _, member := range members {
		if _, ok := seen[member.AccountID]; ok {
			continue
		}
		seen[member.AccountID] = struct{}{}
		accounts = append(accounts, member.AccountID)
	}
	sort.Strings(accounts)
	return accounts
}

// maxCombinedTotal computes the rollup total for groups too small to
// conflict: the largest single-key ownership total among members.
func maxCombinedTotal(members []catalog.WorkSummary) float64 {
	var maxTotal float64
	for _, member := range members {
		for _, claim := range member.Claims {
			if claim.Mechanical > maxTotal {
				maxTotal = claim.Mechanical
			}
			if claim.Performance > maxTotal {
				maxTotal = claim.Performance
			}
		}
	}
	return maxTotal
}

func axisLabel(axis rights.ShareType) string {
	if axis == rights.SharePerformanceOwnership {
		return "performance"
	}
	return "mechanical"
}

func territoryLabel(territory string) string {
	if territory == rights.TerritoryWorld {
		return "the world territory"
	}
	return territory
}
