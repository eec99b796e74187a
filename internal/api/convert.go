package api

import (
	"errors"
	"time"

	"cadenza/internal/catalog"
	"cadenza/internal/rights"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromJob converts a job record to its API representation.
func FromJob(job *catalog.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:               job.ID,
		Type:             string(job.Type),
		Status:           string(job.Status),
		ProcessedWorks:   job.ProcessedWorks,
		TotalWorks:       job.TotalWorks,
		MatchesFound:     job.MatchesFound,
		ConflictsCreated: job.ConflictsCreated,
		ErrorMessage:     job.ErrorMessage,
		CancelRequested:  job.CancelRequested,
		StartedAt:        formatTimePtr(job.StartedAt),
		FinishedAt:       formatTimePtr(job.FinishedAt),
		CreatedAt:        formatTime(job.CreatedAt),
		UpdatedAt:        formatTime(job.UpdatedAt),
	}
}

// FromJobs converts a slice of job records.
func FromJobs(jobs []*catalog.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromConflict converts a conflict record to its API representation.
func FromConflict(conflict *catalog.Conflict) Conflict {
	if conflict == nil {
		return Conflict{}
	}
	return Conflict{
		ID:          conflict.ID,
		GroupID:     conflict.GroupID,
		Type:        string(conflict.Type),
		Severity:    string(conflict.Severity),
		Description: conflict.Description,
		Accounts:    conflict.Accounts,
		Territory:   conflict.Territory,
		Category:    conflict.Category,
		ShareAxis:   conflict.ShareAxis,
		Resolved:    conflict.Resolved,
		ResolvedAt:  formatTimePtr(conflict.ResolvedAt),
		CreatedAt:   formatTime(conflict.CreatedAt),
		UpdatedAt:   formatTime(conflict.UpdatedAt),
	}
}

// FromConflicts converts a slice of conflict records.
func FromConflicts(conflicts []*catalog.Conflict) []Conflict {
	out := make([]Conflict, 0, len(conflicts))
	for _, conflict := range conflicts {
		out = append(out, FromConflict(conflict))
	}
	return out
}

// FromGroup converts a match group record to its API representation.
func FromGroup(group *catalog.MatchGroup) MatchGroup {
	if group == nil {
		return MatchGroup{}
	}
	return MatchGroup{
		ID:                    group.ID,
		Fingerprint:           group.Fingerprint,
		CanonicalTitle:        group.CanonicalTitle,
		CanonicalISWC:         group.CanonicalISWC,
		MemberCount:           group.MemberCount,
		TotalClaimedOwnership: group.TotalClaimedOwnership,
	}
}

// ToRightsChain converts a wire chain into the domain representation.
func ToRightsChain(chain []TerritoryChain) []rights.TerritoryChain {
	out := make([]rights.TerritoryChain, 0, len(chain))
	for _, tc := range chain {
		out = append(out, rights.TerritoryChain{
			Territory: tc.Territory,
			Nodes:     toRightsNodes(tc.Nodes),
		})
	}
	return out
}

func toRightsNodes(nodes []RightsNode) []rights.Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]rights.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, rights.Node{
			Claimant: rights.Claimant{
				Kind:        rights.ClaimantKind(n.Kind),
				PublisherID: n.PublisherID,
				ComposerID:  n.ComposerID,
				Name:        n.Name,
				IPI:         n.IPI,
			},
			Category:   rights.Category(n.Category),
			Controlled: n.Controlled,
			Shares: rights.Shares{
				MechanicalOwnership:   n.Shares.MechanicalOwnership,
				PerformanceOwnership:  n.Shares.PerformanceOwnership,
				MechanicalCollection:  n.Shares.MechanicalCollection,
				PerformanceCollection: n.Shares.PerformanceCollection,
			},
			Children: toRightsNodes(n.Children),
		})
	}
	return out
}

// FromValidation converts a validation outcome into the wire response.
// Structural errors and invariant violations are distinct findings: the
// former mean the chain could not be evaluated at all.
func FromValidation(result *rights.Result, err error) ValidateResponse {
	if err != nil {
		var structural *rights.StructuralError
		resp := ValidateResponse{Valid: false}
		if errors.As(err, &structural) {
			resp.StructuralErrors = append(resp.StructuralErrors, StructuralError{
				Kind:      string(structural.Kind),
				Territory: structural.Territory,
				Detail:    structural.Detail,
			})
		} else {
			resp.StructuralErrors = append(resp.StructuralErrors, StructuralError{
				Kind:   string(rights.StructuralInvalidNode),
				Detail: err.Error(),
			})
		}
		return resp
	}
	resp := ValidateResponse{Valid: result.Valid()}
	for _, report := range result.Territories {
		for _, violation := range report.Violations {
			resp.Violations = append(resp.Violations, Violation{
				Territory: report.Territory,
				ShareAxis: string(violation.ShareType),
				Total:     violation.Total,
				Deviation: violation.Deviation,
			})
		}
	}
	return resp
}
