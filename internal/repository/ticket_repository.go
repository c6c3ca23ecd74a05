package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onpoint/ticket-bridge/internal/domain"
)

// ErrIssueKeyAssigned is returned when a second issue key write is attempted
// for a ticket. The key is written exactly once and is immutable afterwards.
var ErrIssueKeyAssigned = errors.New("ticket already has a tracker issue key")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Types       []domain.TicketType
	Statuses    []domain.TicketStatus
	RequesterID *string
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, source domain.UpdateSource) error
	UpdatePriority(ctx context.Context, id string, priority domain.TicketPriority, source domain.UpdateSource) error
	SetIssueKey(ctx context.Context, id, key string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_type, status, title, description, priority, channel,
               product_name, module_name, customer_context, requester_id, assignee_id,
               tracker_issue_key, last_update_source, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_type, status, title, description, priority, channel,
            product_name, module_name, customer_context, requester_id, assignee_id, last_update_source)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Type,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Channel,
		ticket.ProductName,
		ticket.ModuleName,
		ticket.CustomerContext,
		ticket.RequesterID,
		ticket.AssigneeID,
		ticket.LastUpdateSource,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, source domain.UpdateSource) error {
	const query = `
        UPDATE tickets SET status=$2, last_update_source=$3, updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, status, source)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, id string, priority domain.TicketPriority, source domain.UpdateSource) error {
	const query = `
        UPDATE tickets SET priority=$2, last_update_source=$3, updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, priority, source)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetIssueKey writes the tracker issue key for a ticket. The WHERE clause
// only matches rows without a key, so a repeated write surfaces as
// ErrIssueKeyAssigned instead of silently overwriting.
func (r *ticketRepository) SetIssueKey(ctx context.Context, id, key string) error {
	const query = `
        UPDATE tickets SET tracker_issue_key=$2, updated_at=NOW()
        WHERE id=$1 AND tracker_issue_key IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIssueKeyAssigned
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Type,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Channel,
		&ticket.ProductName,
		&ticket.ModuleName,
		&ticket.CustomerContext,
		&ticket.RequesterID,
		&ticket.AssigneeID,
		&ticket.TrackerIssueKey,
		&ticket.LastUpdateSource,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("ticket_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Type,
			&ticket.Status,
			&ticket.Title,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Channel,
			&ticket.ProductName,
			&ticket.ModuleName,
			&ticket.CustomerContext,
			&ticket.RequesterID,
			&ticket.AssigneeID,
			&ticket.TrackerIssueKey,
			&ticket.LastUpdateSource,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
