package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onpoint/ticket-bridge/internal/domain"
)

// StatusHistoryRepository stores the append-only status audit trail.
// Entries are never updated or deleted.
type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Create(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO status_history (ticket_id, status_from, status_to, source)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.StatusFrom,
		entry.StatusTo,
		entry.Source,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, status_from, status_to, source, created_at
        FROM status_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.StatusFrom,
			&entry.StatusTo,
			&entry.Source,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
