package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"cadenza/internal/catalog"
	"cadenza/internal/conflict"
	"cadenza/internal/config"
	"cadenza/internal/logging"
	"cadenza/internal/match"
	"cadenza/internal/metrics"
)

// errCancelled signals cooperative cancellation observed mid-run.
var errCancelled = errors.New("cancellation requested")

// Runner orchestrates matching jobs: it walks the catalog, folds works
// into match groups, and evaluates touched groups for conflicts. One
// Runner serves one daemon process; the job lease serializes runs across
// processes sharing the database.
type Runner struct {
	store    *catalog.Store
	matcher  match.Matcher
	detector *conflict.Detector
	metrics  *metrics.Metrics
	logger   *slog.Logger
	limiter  *rate.Limiter

	batchSize int
	pageSize  int
	leaseTTL  time.Duration
}

// NewRunner builds a runner from configuration.
func NewRunner(cfg *config.Config, store *catalog.Store, m *metrics.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.Scan.WorksPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Scan.WorksPerSecond), cfg.Scan.WorksPerSecond)
	}
	return &Runner{
		store:     store,
		matcher:   match.NewMatcher(),
		detector:  conflict.NewDetector(conflict.ThresholdsFromConfig(cfg)),
		metrics:   m,
		logger:    logging.NewComponentLogger(logger, "scan"),
		limiter:   limiter,
		batchSize: cfg.Scan.BatchSize,
		pageSize:  cfg.Scan.PageSize,
		leaseTTL:  time.Duration(cfg.Scan.LeaseTTLSeconds) * time.Second,
	}
}

// JobHandle is a matching job that holds the lease and is ready to run.
type JobHandle struct {
	runner *Runner
	job    *catalog.Job
	owner  string
}

// Job returns the job record as created, before any progress.
func (h *JobHandle) Job() *catalog.Job {
	return h.job
}

// Begin creates a job row and claims the lease for it. Returns
// catalog.ErrJobAlreadyRunning when another process holds the lease; the
// rejected job row is persisted as failed so the history shows the
// attempt. A successful Begin must be followed by Run, which releases
// the lease.
func (r *Runner) Begin(ctx context.Context, jobType catalog.JobType) (*JobHandle, error) {
	job, err := r.store.CreateJob(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	owner := uuid.NewString()
	acquired, err := r.store.AcquireLease(ctx, owner, job.ID, r.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		if failErr := r.store.FailPendingJob(ctx, job.ID, catalog.ErrJobAlreadyRunning.Error()); failErr != nil {
			r.logger.Warn("failed to mark rejected job", logging.FieldJobID, job.ID, logging.Error(failErr))
		}
		return nil, catalog.ErrJobAlreadyRunning
	}
	return &JobHandle{runner: r, job: job, owner: owner}, nil
}

// Run executes one matching job to a terminal state and returns its final
// record. It begins and runs in one call; callers that need the job ID
// before completion use Begin and JobHandle.Run instead.
func (r *Runner) Run(ctx context.Context, jobType catalog.JobType) (*catalog.Job, error) {
	handle, err := r.Begin(ctx, jobType)
	if err != nil {
		return nil, err
	}
	return handle.Run(ctx)
}

// Run drives the job to a terminal state and releases the lease.
func (h *JobHandle) Run(ctx context.Context) (*catalog.Job, error) {
	r := h.runner
	job := h.job
	jobType := job.Type
	owner := h.owner
	defer func() {
		if releaseErr := r.store.ReleaseLease(context.Background(), owner); releaseErr != nil {
			r.logger.Warn("failed to release job lease", logging.Error(releaseErr))
		}
	}()

	started := time.Now()
	runErr := r.execute(ctx, job, owner)
	switch {
	case runErr == nil:
		if err := r.store.FinishJob(ctx, job.ID, catalog.JobCompleted, ""); err != nil {
			return nil, fmt.Errorf("finish job: %w", err)
		}
		r.metrics.ScanDuration.Observe(time.Since(started).Seconds())
		r.refreshGauges(ctx)
		r.logger.Info("matching job completed",
			logging.FieldJobID, job.ID,
			logging.String("type", string(jobType)),
			logging.Duration("elapsed", time.Since(started)))
	case errors.Is(runErr, errCancelled) || errors.Is(runErr, context.Canceled):
		// Frozen counters from the last flush stay as they are.
		if err := r.store.FinishJob(context.Background(), job.ID, catalog.JobCancelled, ""); err != nil {
			return nil, fmt.Errorf("finish cancelled job: %w", err)
		}
		r.logger.Info("matching job cancelled", logging.FieldJobID, job.ID)
	default:
		if err := r.store.FinishJob(context.Background(), job.ID, catalog.JobFailed, runErr.Error()); err != nil {
			return nil, fmt.Errorf("finish failed job: %w", err)
		}
		r.logger.Error("matching job failed", logging.FieldJobID, job.ID, logging.Error(runErr))
	}

	final, err := r.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("reload job: %w", err)
	}
	return final, nil
}

// progress carries the in-memory counters flushed to the job row.
type progress struct {
	processed int64
	matches   int64
	conflicts int64
	skipped   int64
}

func (r *Runner) execute(ctx context.Context, job *catalog.Job, owner string) error {
	var since *time.Time
	if job.Type == catalog.JobIncremental {
		watermark, err := r.store.LastSuccessfulFinish(ctx)
		if err != nil {
			return err
		}
		since = watermark
	} else {
		cleared, err := r.store.ClearGroupMembers(ctx)
		if err != nil {
			return fmt.Errorf("clear group members: %w", err)
		}
		if cleared > 0 {
			r.logger.Info("rebuilding group memberships", logging.Int64("cleared", cleared))
		}
	}

	total, err := r.store.CountWorks(ctx, since)
	if err != nil {
		return fmt.Errorf("count works: %w", err)
	}
	if err := r.store.StartJob(ctx, job.ID, total); err != nil {
		return err
	}
	r.logger.Info("matching job started",
		logging.FieldJobID, job.ID,
		logging.String("type", string(job.Type)),
		logging.Int64("total_works", total))

	var prog progress
	rebuild := job.Type == catalog.JobFullScan
	touched := make(map[int64]int)
	offset := 0
	for {
		works, err := r.store.ListWorks(ctx, since, offset, r.pageSize)
		if err != nil {
			return fmt.Errorf("list works: %w", err)
		}
		if len(works) == 0 {
			break
		}
		for _, work := range works {
			if err := r.checkCancel(ctx, job.ID); err != nil {
				return err
			}
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			r.processWork(ctx, work, rebuild, touched, &prog)
			prog.processed++
			r.metrics.WorksScanned.Inc()
			if prog.processed%int64(r.batchSize) == 0 {
				if err := r.flush(ctx, job.ID, owner, &prog); err != nil {
					return err
				}
			}
		}
		offset += len(works)
	}

	if err := r.evaluateGroups(ctx, job.ID, owner, touched, &prog); err != nil {
		return err
	}
	if rebuild {
		swept, err := r.store.SweepEmptyGroups(ctx)
		if err != nil {
			return fmt.Errorf("sweep empty groups: %w", err)
		}
		if swept > 0 {
			r.logger.Info("swept groups no work maps to anymore", logging.Int64("swept", swept))
		}
	}
	if err := r.flush(ctx, job.ID, owner, &prog); err != nil {
		return err
	}
	if prog.skipped > 0 {
		r.logger.Warn("some works were skipped", logging.FieldJobID, job.ID, logging.Int64("skipped", prog.skipped))
	}
	return nil
}

// processWork folds one work into its match group. Per-item failures are
// logged and skipped so one malformed work cannot sink the whole job.
// touched records how many memberships each group gained this run, which
// tells a rebuild apart from a group that merely survived one.
func (r *Runner) processWork(ctx context.Context, work *catalog.Work, rebuild bool, touched map[int64]int, prog *progress) {
	key, err := r.matcher.Key(work)
	if err != nil {
		prog.skipped++
		r.metrics.ScanErrors.Inc()
		r.logger.Warn("skipping work", logging.FieldWorkID, work.ID, logging.Error(err))
		return
	}
	group, created, err := r.store.EnsureGroup(ctx, key)
	if err != nil {
		prog.skipped++
		r.metrics.ScanErrors.Inc()
		r.logger.Warn("skipping work", logging.FieldWorkID, work.ID, logging.Error(err))
		return
	}
	if _, err := r.store.AddGroupMember(ctx, group.ID, work.ID, work.AccountID); err != nil {
		prog.skipped++
		r.metrics.ScanErrors.Inc()
		r.logger.Warn("skipping work", logging.FieldWorkID, work.ID, logging.Error(err))
		return
	}
	prior := touched[group.ID]
	touched[group.ID] = prior + 1

	if !rebuild {
		// The work may have carried a different fingerprint last scan;
		// detach it from any old group and re-evaluate what it left.
		stale, err := r.store.RemoveStaleMemberships(ctx, work.ID, group.ID)
		if err != nil {
			r.metrics.ScanErrors.Inc()
			r.logger.Warn("failed to detach stale memberships", logging.FieldWorkID, work.ID, logging.Error(err))
		}
		for _, staleID := range stale {
			if _, seen := touched[staleID]; !seen {
				touched[staleID] = 0
			}
		}
	}

	// During a rebuild every existing group starts with zero members, so a
	// match means another work landed in the group earlier this run. On an
	// incremental pass a pre-existing group already holds earlier members.
	if prior > 0 || (!created && !rebuild) {
		prog.matches++
		r.metrics.MatchesFound.Inc()
	}
}

// evaluateGroups recomputes rollups and conflicts for every group touched
// during the walk, in ascending group id order so identical catalogs
// produce identical conflict ordering.
func (r *Runner) evaluateGroups(ctx context.Context, jobID int64, owner string, touched map[int64]int, prog *progress) error {
	groupIDs := make([]int64, 0, len(touched))
	for groupID := range touched {
		groupIDs = append(groupIDs, groupID)
	}
	slices.Sort(groupIDs)

	evaluated := 0
	for _, groupID := range groupIDs {
		if err := r.checkCancel(ctx, jobID); err != nil {
			return err
		}
		if err := r.evaluateGroup(ctx, groupID, prog); err != nil {
			r.metrics.ScanErrors.Inc()
			r.logger.Warn("skipping group evaluation", logging.FieldGroupID, groupID, logging.Error(err))
		}
		evaluated++
		if evaluated%r.batchSize == 0 {
			if err := r.flush(ctx, jobID, owner, prog); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) evaluateGroup(ctx context.Context, groupID int64, prog *progress) error {
	memberIDs, err := r.store.GroupMemberWorkIDs(ctx, groupID)
	if err != nil {
		return err
	}
	works, err := r.store.WorksByID(ctx, memberIDs)
	if err != nil {
		return err
	}
	summaries := make([]catalog.WorkSummary, 0, len(works))
	for _, work := range works {
		summaries = append(summaries, catalog.Summarize(work))
	}

	candidates, maxTotal := r.detector.Detect(summaries)
	canonical := match.SelectCanonical(works)

	group, err := r.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return nil
	}
	group.CanonicalTitle = canonical.Title
	group.CanonicalISWC = canonical.ISWC
	group.MemberCount = len(works)
	group.TotalClaimedOwnership = maxTotal
	if err := r.store.UpdateGroupRollup(ctx, group); err != nil {
		return err
	}

	for _, candidate := range candidates {
		created, err := r.store.UpsertOpenConflict(ctx, &catalog.Conflict{
			GroupID:     groupID,
			Type:        candidate.Type,
			Severity:    candidate.Severity,
			Description: candidate.Description,
			Accounts:    candidate.Accounts,
			Territory:   candidate.Territory,
			Category:    string(candidate.Category),
			ShareAxis:   string(candidate.ShareAxis),
		})
		if err != nil {
			return err
		}
		if created {
			prog.conflicts++
			r.metrics.ConflictsCreated.WithLabelValues(string(candidate.Type)).Inc()
			r.logger.Info("conflict opened",
				logging.FieldGroupID, groupID,
				logging.String("type", string(candidate.Type)),
				logging.String("severity", string(candidate.Severity)))
		}
	}
	return nil
}

// checkCancel observes both context cancellation and the durable cancel
// flag set through the API. Checked between work items, never mid-item.
func (r *Runner) checkCancel(ctx context.Context, jobID int64) error {
	if err := ctx.Err(); err != nil {
		return errCancelled
	}
	requested, err := r.store.JobCancelRequested(ctx, jobID)
	if err != nil {
		return err
	}
	if requested {
		return errCancelled
	}
	return nil
}

// flush persists progress counters and renews the job lease.
func (r *Runner) flush(ctx context.Context, jobID int64, owner string, prog *progress) error {
	if err := r.store.UpdateJobProgress(ctx, jobID, prog.processed, prog.matches, prog.conflicts); err != nil {
		return err
	}
	renewed, err := r.store.RenewLease(ctx, owner, r.leaseTTL)
	if err != nil {
		return err
	}
	if !renewed {
		return errors.New("job lease lost to another owner")
	}
	return nil
}

// refreshGauges updates catalog-wide gauges after a completed run.
func (r *Runner) refreshGauges(ctx context.Context) {
	if stats, err := r.store.ConflictStats(ctx); err == nil {
		r.metrics.UnresolvedConflicts.Set(float64(stats.UnresolvedConflicts))
	}
	if groups, err := r.store.CountGroups(ctx); err == nil {
		r.metrics.MatchGroups.Set(float64(groups))
	}
}
