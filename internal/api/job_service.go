package api

import (
	"context"

	"cadenza/internal/catalog"
)

// JobReader abstracts the persistence interactions needed for job API
// queries and cancellation.
type JobReader interface {
	ListJobs(ctx context.Context, limit int) ([]*catalog.Job, error)
	GetJob(ctx context.Context, id int64) (*catalog.Job, error)
	RunningJob(ctx context.Context) (*catalog.Job, error)
	RequestJobCancel(ctx context.Context, id int64) (bool, error)
}

// JobService exposes matching-job history and cancellation. Starting jobs
// is the daemon's business; the service only reads and flags.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns the most recent jobs, newest first.
func (s *JobService) List(ctx context.Context, limit int) (*JobListResponse, error) {
	if s == nil || s.store == nil {
		return &JobListResponse{}, nil
	}
	jobs, err := s.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &JobListResponse{Jobs: FromJobs(jobs)}, nil
}

// Describe fetches a single job.
func (s *JobService) Describe(ctx context.Context, id int64) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, catalog.ErrJobNotFound
	}
	dto := FromJob(job)
	return &dto, nil
}

// Active returns the currently running job, if any.
func (s *JobService) Active(ctx context.Context) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.RunningJob(ctx)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// Cancel flags a job for cooperative cancellation. The false return means
// the job had already reached a terminal state.
func (s *JobService) Cancel(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.store == nil {
		return false, catalog.ErrJobNotFound
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, catalog.ErrJobNotFound
	}
	return s.store.RequestJobCancel(ctx, id)
}
