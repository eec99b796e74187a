package api

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cadenza/internal/catalog"
)

const statsCacheKey = "stats"

// ConflictReader abstracts the persistence interactions needed for
// conflict API queries.
type ConflictReader interface {
	ListConflicts(ctx context.Context, filter catalog.ConflictFilter, offset, limit int) ([]*catalog.Conflict, int, error)
	GetConflict(ctx context.Context, id int64) (*catalog.Conflict, error)
	ResolveConflict(ctx context.Context, id int64) (bool, error)
	ConflictStats(ctx context.Context) (catalog.ConflictStats, error)
	CountWorks(ctx context.Context, since *time.Time) (int64, error)
	CountGroups(ctx context.Context) (int64, error)
	LatestJob(ctx context.Context) (*catalog.Job, error)
}

// ConflictService exposes conflict queue operations returning API DTOs.
// Catalog-wide stats are cached briefly; the counts they aggregate are
// expensive relative to how fast they change.
type ConflictService struct {
	store ConflictReader
	cache *gocache.Cache
}

// NewConflictService constructs a ConflictService around the provided
// reader. statsTTL bounds how stale the stats payload may be.
func NewConflictService(store ConflictReader, statsTTL time.Duration) *ConflictService {
	if store == nil {
		return nil
	}
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}
	return &ConflictService{
		store: store,
		cache: gocache.New(statsTTL, 2*statsTTL),
	}
}

// List returns one page of conflicts plus the unpaged total.
func (s *ConflictService) List(ctx context.Context, filter catalog.ConflictFilter, offset, limit int) (*ConflictListResponse, error) {
	if s == nil || s.store == nil {
		return &ConflictListResponse{}, nil
	}
	items, total, err := s.store.ListConflicts(ctx, filter, offset, limit)
	if err != nil {
		return nil, err
	}
	return &ConflictListResponse{
		Conflicts: FromConflicts(items),
		Total:     total,
		Offset:    offset,
		Limit:     limit,
	}, nil
}

// Describe fetches a single conflict.
func (s *ConflictService) Describe(ctx context.Context, id int64) (*Conflict, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	conflict, err := s.store.GetConflict(ctx, id)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, catalog.ErrConflictNotFound
	}
	dto := FromConflict(conflict)
	return &dto, nil
}

// Resolve marks a conflict resolved and returns its final state. Resolving
// an already-resolved conflict succeeds without changing anything.
func (s *ConflictService) Resolve(ctx context.Context, id int64) (*ConflictResponse, error) {
	if s == nil || s.store == nil {
		return nil, catalog.ErrConflictNotFound
	}
	changed, err := s.store.ResolveConflict(ctx, id)
	if err != nil {
		return nil, err
	}
	conflict, err := s.store.GetConflict(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(statsCacheKey)
	return &ConflictResponse{
		Conflict:        FromConflict(conflict),
		AlreadyResolved: !changed,
	}, nil
}

// Stats assembles the catalog-wide stats payload, served from cache when
// a fresh copy exists.
func (s *ConflictService) Stats(ctx context.Context) (*StatsResponse, error) {
	if s == nil || s.store == nil {
		return &StatsResponse{}, nil
	}
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		if stats, ok := cached.(*StatsResponse); ok {
			return stats, nil
		}
	}

	conflictStats, err := s.store.ConflictStats(ctx)
	if err != nil {
		return nil, err
	}
	works, err := s.store.CountWorks(ctx, nil)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.CountGroups(ctx)
	if err != nil {
		return nil, err
	}
	stats := &StatsResponse{
		Works:               works,
		MatchGroups:         groups,
		TotalConflicts:      conflictStats.TotalConflicts,
		UnresolvedConflicts: conflictStats.UnresolvedConflicts,
	}
	if latest, err := s.store.LatestJob(ctx); err == nil && latest != nil {
		job := FromJob(latest)
		stats.LastJob = &job
	}
	s.cache.SetDefault(statsCacheKey, stats)
	return stats, nil
}
