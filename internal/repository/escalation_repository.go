package repository

import (
	"context"

	"github.com/placementops/ticketing/internal/domain"
)

// EscalationRepository stores escalations raised against career associates.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.Escalation) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error)
}

type escalationRepository struct {
	db DBTX
}

// NewEscalationRepository builds repository.
func NewEscalationRepository(db DBTX) EscalationRepository {
	return &escalationRepository{db: db}
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO ticket_escalations (ticket_id, escalated_by, ca_id, reason, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.EscalatedBy,
		escalation.CAID,
		escalation.Reason,
		escalation.CreatedAt,
	).Scan(&escalation.ID)
}

func (r *escalationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error) {
	const query = `
        SELECT id, ticket_id, escalated_by, ca_id, reason, created_at
        FROM ticket_escalations WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Escalation
	for rows.Next() {
		var e domain.Escalation
		if err := rows.Scan(&e.ID, &e.TicketID, &e.EscalatedBy, &e.CAID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
