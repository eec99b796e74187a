package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned when a job id does not resolve.
var ErrJobNotFound = errors.New("job not found")

const jobColumns = "id, job_type, status, processed_works, total_works, matches_found, conflicts_created, error_message, cancel_requested, started_at, finished_at, created_at, updated_at"

// CreateJob records a new pending job.
func (s *Store) CreateJob(ctx context.Context, jobType JobType) (*Job, error) {
	timestamp := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (job_type, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		jobType,
		JobPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Returns nil when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// LatestJob returns the most recently created job, or nil when none exist.
func (s *Store) LatestJob(ctx context.Context) (*Job, error) {
	jobs, err := s.ListJobs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

// RunningJob returns the currently running job, or nil.
func (s *Store) RunningJob(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY id DESC LIMIT 1`, JobRunning)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("running job: %w", err)
	}
	return job, nil
}

// StartJob transitions a job from pending to running. The guarded UPDATE
// makes the transition a no-op if the job already left pending.
func (s *Store) StartJob(ctx context.Context, id int64, totalWorks int64) error {
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, total_works = ?, started_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		JobRunning,
		totalWorks,
		now,
		now,
		id,
		JobPending,
	)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not pending", id)
	}
	return nil
}

// UpdateJobProgress persists progress counters for a running job.
func (s *Store) UpdateJobProgress(ctx context.Context, id, processed, matches, conflicts int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET processed_works = ?, matches_found = ?, conflicts_created = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		processed,
		matches,
		conflicts,
		time.Now().UTC().Format(timeFormat),
		id,
		JobRunning,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// FinishJob moves a running job into a terminal state. Transitions out of a
// terminal state are rejected by the guard.
func (s *Store) FinishJob(ctx context.Context, id int64, status JobStatus, errorMessage string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status,
		nullableString(errorMessage),
		now,
		now,
		id,
		JobRunning,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not running", id)
	}
	return nil
}

// FailPendingJob moves a job that never started running straight to
// failed. Used when the job lease is denied after the row was created.
func (s *Store) FailPendingJob(ctx context.Context, id int64, errorMessage string) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		JobFailed,
		nullableString(errorMessage),
		now,
		now,
		id,
		JobPending,
	)
	if err != nil {
		return fmt.Errorf("fail pending job: %w", err)
	}
	return nil
}

// RequestJobCancel flags a pending or running job for cooperative
// cancellation. The runner observes the flag between work items.
func (s *Store) RequestJobCancel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		time.Now().UTC().Format(timeFormat),
		id,
		JobPending,
		JobRunning,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// JobCancelRequested reports whether cancellation has been requested.
func (s *Store) JobCancelRequested(ctx context.Context, id int64) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrJobNotFound
	}
	if err != nil {
		return false, fmt.Errorf("cancel requested: %w", err)
	}
	return flag != 0, nil
}

// LastSuccessfulFinish returns the finished_at of the most recent completed
// job of either type, or nil when no job has completed. Incremental scans
// use this as their change watermark.
func (s *Store) LastSuccessfulFinish(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(
		ctx,
		`SELECT finished_at FROM jobs WHERE status = ? ORDER BY finished_at DESC LIMIT 1`,
		JobCompleted,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last successful finish: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	finished, err := parseTimeString(raw.String)
	if err != nil {
		return nil, nil
	}
	return &finished, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          int64
		jobType     string
		status      string
		processed   int64
		total       int64
		matches     int64
		conflicts   int64
		errMessage  sql.NullString
		cancelFlag  int
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&id,
		&jobType,
		&status,
		&processed,
		&total,
		&matches,
		&conflicts,
		&errMessage,
		&cancelFlag,
		&startedRaw,
		&finishedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:               id,
		Type:             JobType(jobType),
		Status:           JobStatus(status),
		ProcessedWorks:   processed,
		TotalWorks:       total,
		MatchesFound:     matches,
		ConflictsCreated: conflicts,
		ErrorMessage:     errMessage.String,
		CancelRequested:  cancelFlag != 0,
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
