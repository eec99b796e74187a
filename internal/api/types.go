package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a matching job in a transport-friendly format.
type Job struct {
	ID               int64  `json:"id"`
	Type             string `json:"type"`
	Status           string `json:"status"`
	ProcessedWorks   int64  `json:"processedWorks"`
	TotalWorks       int64  `json:"totalWorks"`
	MatchesFound     int64  `json:"matchesFound"`
	ConflictsCreated int64  `json:"conflictsCreated"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
	CancelRequested  bool   `json:"cancelRequested"`
	StartedAt        string `json:"startedAt,omitempty"`
	FinishedAt       string `json:"finishedAt,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// Conflict describes a detected ownership conflict.
type Conflict struct {
	ID          int64    `json:"id"`
	GroupID     int64    `json:"groupId"`
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Accounts    []string `json:"accounts"`
	Territory   string   `json:"territory,omitempty"`
	Category    string   `json:"category,omitempty"`
	ShareAxis   string   `json:"shareAxis,omitempty"`
	Resolved    bool     `json:"resolved"`
	ResolvedAt  string   `json:"resolvedAt,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// MatchGroup describes a cluster of works in API form.
type MatchGroup struct {
	ID                    int64   `json:"id"`
	Fingerprint           string  `json:"fingerprint"`
	CanonicalTitle        string  `json:"canonicalTitle,omitempty"`
	CanonicalISWC         string  `json:"canonicalIswc,omitempty"`
	MemberCount           int     `json:"memberCount"`
	TotalClaimedOwnership float64 `json:"totalClaimedOwnership"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// ConflictListResponse wraps a page of conflicts.
type ConflictListResponse struct {
	Conflicts []Conflict `json:"conflicts"`
	Total     int        `json:"total"`
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
}

// ConflictResponse wraps a single conflict.
type ConflictResponse struct {
	Conflict Conflict `json:"conflict"`
	// AlreadyResolved reports that a resolve request found the conflict
	// in its terminal state; the call is idempotent.
	AlreadyResolved bool `json:"alreadyResolved,omitempty"`
}

// StatsResponse aggregates catalog-wide counts for the operator surface.
type StatsResponse struct {
	Works               int64 `json:"works"`
	MatchGroups         int64 `json:"matchGroups"`
	TotalConflicts      int   `json:"totalConflicts"`
	UnresolvedConflicts int   `json:"unresolvedConflicts"`
	LastJob             *Job  `json:"lastJob,omitempty"`
}

// DatabaseStatus reports persistence health.
type DatabaseStatus struct {
	Path      string `json:"path"`
	Healthy   bool   `json:"healthy"`
	Integrity string `json:"integrity,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	LockFilePath string         `json:"lockFilePath"`
	Database     DatabaseStatus `json:"database"`
	ActiveJob    *Job           `json:"activeJob,omitempty"`
}

// ValidateRequest carries an ownership chain submitted for validation.
type ValidateRequest struct {
	Chain []TerritoryChain `json:"chain"`
}

// TerritoryChain mirrors one territory's node tree on the wire.
type TerritoryChain struct {
	Territory string       `json:"territory"`
	Nodes     []RightsNode `json:"nodes,omitempty"`
}

// RightsNode mirrors one chain node on the wire.
type RightsNode struct {
	Kind        string       `json:"kind"`
	PublisherID string       `json:"publisherId,omitempty"`
	ComposerID  string       `json:"composerId,omitempty"`
	Name        string       `json:"name,omitempty"`
	IPI         string       `json:"ipi,omitempty"`
	Category    string       `json:"category"`
	Controlled  bool         `json:"controlled"`
	Shares      NodeShares   `json:"shares"`
	Children    []RightsNode `json:"children,omitempty"`
}

// NodeShares mirrors the four share axes on the wire.
type NodeShares struct {
	MechanicalOwnership   float64 `json:"mechanicalOwnership"`
	PerformanceOwnership  float64 `json:"performanceOwnership"`
	MechanicalCollection  float64 `json:"mechanicalCollection"`
	PerformanceCollection float64 `json:"performanceCollection"`
}

// ValidateResponse reports chain validation findings.
type ValidateResponse struct {
	Valid            bool              `json:"valid"`
	StructuralErrors []StructuralError `json:"structuralErrors,omitempty"`
	Violations       []Violation       `json:"violations,omitempty"`
}

// StructuralError is a malformed-input finding.
type StructuralError struct {
	Kind      string `json:"kind"`
	Territory string `json:"territory,omitempty"`
	Detail    string `json:"detail"`
}

// Violation is a rollup-invariant finding.
type Violation struct {
	Territory string  `json:"territory"`
	ShareAxis string  `json:"shareAxis"`
	Total     float64 `json:"total"`
	Deviation float64 `json:"deviation"`
}
