package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/placementops/ticketing/internal/domain"
)

// TicketScope matches tickets of one type in any of the listed statuses.
type TicketScope struct {
	Type     domain.TicketType
	Statuses []domain.TicketStatus
}

// TicketFilter captures list parameters. When IDs or Owned is set, a ticket
// must match one of the IDs or one of the Owned scopes.
type TicketFilter struct {
	IDs        []string
	Owned      []TicketScope
	ClientID   *string
	Statuses   []domain.TicketStatus
	Types      []domain.TicketType
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Tickets are never deleted.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate reads the ticket and locks its row until the surrounding
	// transaction ends. Outside a transaction the lock is released immediately.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// UpdateState writes status and escalation level if the stored version still equals
	// expectedVersion, and bumps ticket.Version. It returns ErrStaleVersion otherwise.
	UpdateState(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, short_code, type, priority, status, title, description, metadata, client_id,
        created_by, created_at, updated_at, due_date, sla_hours, escalation_level, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	metadata, err := domain.EncodeMetadata(ticket.Metadata)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, short_code, type, priority, status, title, description, metadata, client_id,
            created_by, created_at, updated_at, due_date, sla_hours, escalation_level, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err = r.db.Exec(ctx, query,
		ticket.ID,
		ticket.ShortCode,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		metadata,
		ticket.ClientID,
		ticket.CreatedBy,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.DueDate,
		ticket.SLAHours,
		ticket.EscalationLevel,
		ticket.Version,
	)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateState(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	const query = `
        UPDATE tickets SET status=$1, escalation_level=$2, updated_at=$3, version=version+1
        WHERE id=$4 AND version=$5`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Status,
		ticket.EscalationLevel,
		ticket.UpdatedAt,
		ticket.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleVersion
	}
	ticket.Version = expectedVersion + 1
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.IDs != nil || len(filter.Owned) > 0 {
		var reach []string
		if filter.IDs != nil {
			args = append(args, filter.IDs)
			reach = append(reach, fmt.Sprintf("id = ANY($%d)", len(args)))
		}
		for _, scope := range filter.Owned {
			args = append(args, string(scope.Type), toStrings(scope.Statuses))
			reach = append(reach, fmt.Sprintf("(type = $%d AND status = ANY($%d))", len(args)-1, len(args)))
		}
		clauses = append(clauses, "("+strings.Join(reach, " OR ")+")")
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Types) > 0 {
		args = append(args, toStrings(filter.Types))
		clauses = append(clauses, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, toStrings(filter.Priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		base, strings.Join(clauses, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		metadata []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ShortCode,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&metadata,
		&ticket.ClientID,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DueDate,
		&ticket.SLAHours,
		&ticket.EscalationLevel,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	meta, err := domain.DecodeStoredMetadata(ticket.Type, metadata)
	if err != nil {
		return nil, fmt.Errorf("decode metadata for ticket %s: %w", ticket.ID, err)
	}
	ticket.Metadata = meta
	return &ticket, nil
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
