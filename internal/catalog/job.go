package catalog

import (
	"errors"
	"strings"
	"time"
)

// JobType distinguishes catalog-wide audits from incremental updates.
type JobType string

const (
	JobFullScan    JobType = "full_scan"
	JobIncremental JobType = "incremental"
)

// ParseJobType converts a string into a known JobType.
func ParseJobType(value string) (JobType, bool) {
	normalized := JobType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case JobFullScan, JobIncremental:
		return normalized, true
	default:
		return "", false
	}
}

// JobStatus represents the lifecycle of a matching job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// ErrJobAlreadyRunning is returned when a job start is rejected because
// another job holds the lease. Starts are rejected, never queued silently.
var ErrJobAlreadyRunning = errors.New("a matching job is already running")

// Job is one orchestrated catalog scan with durable progress counters. All
// counters are monotonically non-decreasing while the job runs.
type Job struct {
	ID               int64
	Type             JobType
	Status           JobStatus
	ProcessedWorks   int64
	TotalWorks       int64
	MatchesFound     int64
	ConflictsCreated int64
	ErrorMessage     string
	CancelRequested  bool
	StartedAt        *time.Time
	FinishedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
