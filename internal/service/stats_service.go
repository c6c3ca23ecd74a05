package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/persistence"
	"github.com/onpoint/ticket-bridge/internal/repository"
)

const statsCacheKey = "sync:stats"

// SyncStats aggregates the health of the sync engine for operator
// dashboards.
type SyncStats struct {
	TotalSynced     int64                    `json:"total_synced"`
	SyncedToday     int64                    `json:"synced_today"`
	SyncedThisWeek  int64                    `json:"synced_this_week"`
	ErrorCount      int64                    `json:"error_count"`
	LastSyncedAt    *time.Time               `json:"last_synced_at"`
	ByOrigin        map[string]int64         `json:"by_origin"`
	ByTrackerStatus []repository.StatusCount `json:"by_tracker_status"`
}

// StatsService is a read-only aggregator over the correlation store. It has
// no mutation capability; the short-lived Redis cache exists because the
// dashboard polls these numbers far more often than they change.
type StatsService struct {
	sync   repository.SyncRepository
	cache  *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService constructs the service. cache may be nil.
func NewStatsService(syncRepo repository.SyncRepository, cache *persistence.Redis, ttl time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{
		sync:   syncRepo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Stats computes the dashboard aggregation.
func (s *StatsService) Stats(ctx context.Context) (*SyncStats, error) {
	if s.cache != nil && s.ttl > 0 {
		if cached, ok := s.cache.GetString(ctx, statsCacheKey); ok {
			var stats SyncStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		}
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.Add(-7 * 24 * time.Hour)

	stats := &SyncStats{}
	var err error
	if stats.TotalSynced, err = s.sync.CountAll(ctx); err != nil {
		return nil, err
	}
	if stats.SyncedToday, err = s.sync.CountSyncedSince(ctx, todayStart); err != nil {
		return nil, err
	}
	if stats.SyncedThisWeek, err = s.sync.CountSyncedSince(ctx, weekStart); err != nil {
		return nil, err
	}
	if stats.ErrorCount, err = s.sync.CountErrors(ctx); err != nil {
		return nil, err
	}
	if stats.LastSyncedAt, err = s.sync.LastSyncedAt(ctx); err != nil {
		return nil, err
	}

	byOrigin, err := s.sync.CountByOrigin(ctx)
	if err != nil {
		return nil, err
	}
	stats.ByOrigin = map[string]int64{
		string(domain.SourceApp):     byOrigin[domain.SourceApp],
		string(domain.SourceTracker): byOrigin[domain.SourceTracker],
	}

	if stats.ByTrackerStatus, err = s.sync.CountByTrackerStatus(ctx); err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if payload, err := json.Marshal(stats); err == nil {
			s.cache.SetString(ctx, statsCacheKey, string(payload), s.ttl)
		}
	}
	return stats, nil
}

// RecentErrors lists correlation rows whose last attempt failed, newest
// first. These are the entries an operator re-triggers by hand.
func (s *StatsService) RecentErrors(ctx context.Context, limit int) ([]repository.SyncRow, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.sync.ListErrors(ctx, limit)
}

// RecentSyncs lists healthy correlation rows, newest first.
func (s *StatsService) RecentSyncs(ctx context.Context, limit int) ([]repository.SyncRow, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.sync.ListRecent(ctx, limit)
}
