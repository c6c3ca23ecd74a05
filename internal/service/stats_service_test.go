package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/service"
)

func TestStats(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates correlation rows", func(t *testing.T) {
		repo := newFakeSyncRepo()
		now := time.Now()
		old := now.Add(-30 * 24 * time.Hour)
		errMsg := "tracker responded 503: maintenance"
		status := "Done"

		require.NoError(t, repo.Upsert(ctx, &domain.SyncCorrelation{
			TicketID: "t1", IssueKey: "OD-1", Origin: domain.SourceApp,
			TrackerStatus: &status, LastSyncedAt: &now,
		}))
		require.NoError(t, repo.Upsert(ctx, &domain.SyncCorrelation{
			TicketID: "t2", IssueKey: "OD-2", Origin: domain.SourceTracker,
			TrackerStatus: &status, LastSyncedAt: &old,
		}))
		require.NoError(t, repo.Upsert(ctx, &domain.SyncCorrelation{
			TicketID: "t3", IssueKey: "OD-3", Origin: domain.SourceApp,
			LastSyncedAt: &old, LastError: &errMsg,
		}))

		svc := service.NewStatsService(repo, nil, 0, zap.NewNop())
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.TotalSynced)
		assert.Equal(t, int64(1), stats.SyncedToday)
		assert.Equal(t, int64(1), stats.SyncedThisWeek)
		assert.Equal(t, int64(1), stats.ErrorCount)
		require.NotNil(t, stats.LastSyncedAt)
		assert.WithinDuration(t, now, *stats.LastSyncedAt, time.Second)
		assert.Equal(t, int64(2), stats.ByOrigin[string(domain.SourceApp)])
		assert.Equal(t, int64(1), stats.ByOrigin[string(domain.SourceTracker)])
		require.Len(t, stats.ByTrackerStatus, 1)
		assert.Equal(t, "Done", stats.ByTrackerStatus[0].Status)
		assert.Equal(t, int64(2), stats.ByTrackerStatus[0].Count)
	})

	t.Run("handles an empty store", func(t *testing.T) {
		svc := service.NewStatsService(newFakeSyncRepo(), nil, 0, zap.NewNop())

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalSynced)
		assert.Nil(t, stats.LastSyncedAt)
	})
}

func TestRecentListings(t *testing.T) {
	ctx := context.Background()

	repo := newFakeSyncRepo()
	now := time.Now()
	errMsg := "boom"
	require.NoError(t, repo.Upsert(ctx, &domain.SyncCorrelation{
		TicketID: "t1", IssueKey: "OD-1", Origin: domain.SourceApp, LastSyncedAt: &now,
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.SyncCorrelation{
		TicketID: "t2", IssueKey: "OD-2", Origin: domain.SourceApp, LastSyncedAt: &now, LastError: &errMsg,
	}))

	svc := service.NewStatsService(repo, nil, 0, zap.NewNop())

	t.Run("lists errors", func(t *testing.T) {
		rows, err := svc.RecentErrors(ctx, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "t2", rows[0].Correlation.TicketID)
	})

	t.Run("lists recent syncs", func(t *testing.T) {
		rows, err := svc.RecentSyncs(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}
