package repository

import (
	"context"

	"github.com/placementops/ticketing/internal/domain"
)

// AssignmentRepository manages the ticket_assignments set.
type AssignmentRepository interface {
	// Insert adds the pair unless it already exists and reports whether a row was written.
	Insert(ctx context.Context, assignment *domain.Assignment) (bool, error)
	Exists(ctx context.Context, ticketID, userID string) (bool, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	db DBTX
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(db DBTX) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Insert(ctx context.Context, assignment *domain.Assignment) (bool, error) {
	const query = `
        INSERT INTO ticket_assignments (ticket_id, user_id, assigned_by, created_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (ticket_id, user_id) DO NOTHING`
	cmd, err := r.db.Exec(ctx, query,
		assignment.TicketID,
		assignment.UserID,
		assignment.AssignedBy,
		assignment.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *assignmentRepository) Exists(ctx context.Context, ticketID, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ticket_assignments WHERE ticket_id=$1 AND user_id=$2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, ticketID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	const query = `
        SELECT ticket_id, user_id, assigned_by, created_at
        FROM ticket_assignments WHERE ticket_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, ticketID)
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	const query = `
        SELECT ticket_id, user_id, assigned_by, created_at
        FROM ticket_assignments WHERE user_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, userID)
}

func (r *assignmentRepository) list(ctx context.Context, query string, arg string) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.TicketID, &a.UserID, &a.AssignedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
