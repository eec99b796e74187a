package catalog

import (
	"strings"
	"time"
)

// ConflictType classifies an ownership conflict. The three types are
// mutually exclusive for a given finding.
type ConflictType string

const (
	ConflictOverclaim        ConflictType = "overclaim"
	ConflictDataMismatch     ConflictType = "data_mismatch"
	ConflictOwnershipDispute ConflictType = "ownership_dispute"
)

var conflictTypeSet = map[ConflictType]struct{}{
	ConflictOverclaim:        {},
	ConflictDataMismatch:     {},
	ConflictOwnershipDispute: {},
}

// ParseConflictType converts a string into a known ConflictType.
func ParseConflictType(value string) (ConflictType, bool) {
	normalized := ConflictType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := conflictTypeSet[normalized]
	return normalized, ok
}

// Severity orders conflicts by urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// ParseSeverity converts a string into a known Severity.
func ParseSeverity(value string) (Severity, bool) {
	normalized := Severity(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := severityRanks[normalized]
	return normalized, ok
}

// Rank returns the severity's position in the low..critical order.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// Conflict is a detected ownership anomaly for one match group, persisted
// for operator triage. Unresolved conflicts are mutable: subsequent scans
// may revise severity and description until an operator resolves them.
// Resolution is terminal and never happens implicitly.
type Conflict struct {
	ID          int64
	GroupID     int64
	Type        ConflictType
	Severity    Severity
	Description string
	// Accounts lists the affected account identifiers; never empty.
	Accounts []string
	// Territory, Category, and ShareAxis locate the finding for overclaims
	// and disputes; empty for metadata mismatches, which are group-wide.
	Territory  string
	Category   string
	ShareAxis  string
	Resolved   bool
	ResolvedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ConflictFilter narrows conflict listings. Nil/zero fields match everything.
type ConflictFilter struct {
	Resolved *bool
	Type     ConflictType
	Severity Severity
}

// ConflictStats aggregates catalog-wide conflict state for the operator
// stats surface.
type ConflictStats struct {
	TotalGroups         int
	TotalConflicts      int
	UnresolvedConflicts int
}
