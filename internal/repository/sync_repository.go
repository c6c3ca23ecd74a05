package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onpoint/ticket-bridge/internal/domain"
)

// SyncRow pairs a correlation record with the ticket title for operator
// listings.
type SyncRow struct {
	Correlation domain.SyncCorrelation
	TicketTitle string
}

// StatusCount is one bucket of the by-tracker-status breakdown.
type StatusCount struct {
	Status string
	Count  int64
}

// SyncRepository persists per-ticket sync correlation rows. All writes are
// single-row operations keyed by ticket id.
type SyncRepository interface {
	Upsert(ctx context.Context, corr *domain.SyncCorrelation) error
	GetByTicketID(ctx context.Context, ticketID string) (*domain.SyncCorrelation, error)
	// MarkSynced stamps a successful sync that changed nothing locally:
	// tracker status and last_synced_at are refreshed, last_error cleared,
	// and the existing origin is preserved.
	MarkSynced(ctx context.Context, ticketID, issueKey, trackerStatus string) error
	// SetError records a failed sync attempt on an existing row without
	// touching any other field.
	SetError(ctx context.Context, ticketID, message string) error
	ListCorrelatedTicketIDs(ctx context.Context, limit int) ([]string, error)

	CountAll(ctx context.Context) (int64, error)
	CountSyncedSince(ctx context.Context, since time.Time) (int64, error)
	CountErrors(ctx context.Context) (int64, error)
	LastSyncedAt(ctx context.Context) (*time.Time, error)
	CountByOrigin(ctx context.Context) (map[domain.UpdateSource]int64, error)
	CountByTrackerStatus(ctx context.Context) ([]StatusCount, error)
	ListErrors(ctx context.Context, limit int) ([]SyncRow, error)
	ListRecent(ctx context.Context, limit int) ([]SyncRow, error)
}

type syncRepository struct {
	pool *pgxpool.Pool
}

// NewSyncRepository builds repository.
func NewSyncRepository(pool *pgxpool.Pool) SyncRepository {
	return &syncRepository{pool: pool}
}

func (r *syncRepository) Upsert(ctx context.Context, corr *domain.SyncCorrelation) error {
	const query = `
        INSERT INTO sync_correlation (ticket_id, issue_key, tracker_status, origin, last_synced_at, last_error)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id) DO UPDATE SET
            issue_key=EXCLUDED.issue_key,
            tracker_status=EXCLUDED.tracker_status,
            origin=EXCLUDED.origin,
            last_synced_at=EXCLUDED.last_synced_at,
            last_error=EXCLUDED.last_error`
	_, err := r.pool.Exec(ctx, query,
		corr.TicketID,
		corr.IssueKey,
		corr.TrackerStatus,
		corr.Origin,
		corr.LastSyncedAt,
		corr.LastError,
	)
	return err
}

func (r *syncRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.SyncCorrelation, error) {
	const query = `
        SELECT ticket_id, issue_key, tracker_status, origin, last_synced_at, last_error
        FROM sync_correlation WHERE ticket_id=$1`
	var corr domain.SyncCorrelation
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&corr.TicketID,
		&corr.IssueKey,
		&corr.TrackerStatus,
		&corr.Origin,
		&corr.LastSyncedAt,
		&corr.LastError,
	); err != nil {
		return nil, err
	}
	return &corr, nil
}

func (r *syncRepository) MarkSynced(ctx context.Context, ticketID, issueKey, trackerStatus string) error {
	const query = `
        INSERT INTO sync_correlation (ticket_id, issue_key, tracker_status, origin, last_synced_at, last_error)
        VALUES ($1,$2,$3,'tracker',NOW(),NULL)
        ON CONFLICT (ticket_id) DO UPDATE SET
            tracker_status=EXCLUDED.tracker_status,
            last_synced_at=NOW(),
            last_error=NULL`
	_, err := r.pool.Exec(ctx, query, ticketID, issueKey, trackerStatus)
	return err
}

func (r *syncRepository) SetError(ctx context.Context, ticketID, message string) error {
	const query = `UPDATE sync_correlation SET last_error=$2 WHERE ticket_id=$1`
	cmd, err := r.pool.Exec(ctx, query, ticketID, message)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *syncRepository) ListCorrelatedTicketIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ticket_id FROM sync_correlation ORDER BY last_synced_at ASC NULLS FIRST LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *syncRepository) CountAll(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, `SELECT COUNT(*) FROM sync_correlation`)
}

func (r *syncRepository) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sync_correlation WHERE last_synced_at >= $1`, since,
	).Scan(&count)
	return count, err
}

func (r *syncRepository) CountErrors(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, `SELECT COUNT(*) FROM sync_correlation WHERE last_error IS NOT NULL`)
}

func (r *syncRepository) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(last_synced_at) FROM sync_correlation`).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (r *syncRepository) CountByOrigin(ctx context.Context) (map[domain.UpdateSource]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT origin, COUNT(*) FROM sync_correlation GROUP BY origin`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.UpdateSource]int64)
	for rows.Next() {
		var origin domain.UpdateSource
		var count int64
		if err := rows.Scan(&origin, &count); err != nil {
			return nil, err
		}
		result[origin] = count
	}
	return result, rows.Err()
}

func (r *syncRepository) CountByTrackerStatus(ctx context.Context) ([]StatusCount, error) {
	const query = `
        SELECT tracker_status, COUNT(*) FROM sync_correlation
        WHERE tracker_status IS NOT NULL
        GROUP BY tracker_status ORDER BY COUNT(*) DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *syncRepository) ListErrors(ctx context.Context, limit int) ([]SyncRow, error) {
	const query = `
        SELECT s.ticket_id, s.issue_key, s.tracker_status, s.origin, s.last_synced_at, s.last_error, t.title
        FROM sync_correlation s JOIN tickets t ON t.id = s.ticket_id
        WHERE s.last_error IS NOT NULL
        ORDER BY s.last_synced_at DESC NULLS LAST LIMIT $1`
	return r.listRows(ctx, query, limit)
}

func (r *syncRepository) ListRecent(ctx context.Context, limit int) ([]SyncRow, error) {
	const query = `
        SELECT s.ticket_id, s.issue_key, s.tracker_status, s.origin, s.last_synced_at, s.last_error, t.title
        FROM sync_correlation s JOIN tickets t ON t.id = s.ticket_id
        WHERE s.last_error IS NULL AND s.last_synced_at IS NOT NULL
        ORDER BY s.last_synced_at DESC LIMIT $1`
	return r.listRows(ctx, query, limit)
}

func (r *syncRepository) countWhere(ctx context.Context, query string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

func (r *syncRepository) listRows(ctx context.Context, query string, limit int) ([]SyncRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SyncRow
	for rows.Next() {
		var row SyncRow
		if err := rows.Scan(
			&row.Correlation.TicketID,
			&row.Correlation.IssueKey,
			&row.Correlation.TrackerStatus,
			&row.Correlation.Origin,
			&row.Correlation.LastSyncedAt,
			&row.Correlation.LastError,
			&row.TicketTitle,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
