package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// AssignmentService keeps the set of users responsible for a ticket.
type AssignmentService struct {
	logger *zap.Logger
	now    Clock
}

// AssignmentDependencies bundles collaborators for fan-out.
type AssignmentDependencies struct {
	Logger *zap.Logger
	Clock  Clock
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{logger: orNop(deps.Logger), now: orClock(deps.Clock)}
}

// Assign adds each candidate to the ticket's assignment set and returns the users
// that were not already assigned. Empty ids are ignored and repeated ids collapse,
// so calling Assign twice with the same candidates is a no-op.
func (s *AssignmentService) Assign(ctx context.Context, repos repository.Repositories, ticketID string, candidates []string, assignedBy string) ([]string, error) {
	var added []string
	for _, userID := range dedupe(candidates) {
		inserted, err := repos.Assignments.Insert(ctx, &domain.Assignment{
			TicketID:   ticketID,
			UserID:     userID,
			AssignedBy: assignedBy,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return added, persist("assignments", err)
		}
		if inserted {
			added = append(added, userID)
		}
	}
	if len(added) > 0 {
		s.logger.Debug("ticket assigned", zap.String("ticket_id", ticketID), zap.Strings("user_ids", added))
	}
	return added, nil
}

// ClientBindings reads the client row inside the caller's unit of work so the
// current bindings are used, never a cached copy.
func (s *AssignmentService) ClientBindings(ctx context.Context, repos repository.Repositories, clientID *string) (*domain.Client, error) {
	if clientID == nil || *clientID == "" {
		return nil, apperrors.NewFieldError("client_id", "ticket has no client; role bindings are unavailable")
	}
	client, err := repos.Clients.GetByID(ctx, *clientID)
	if err != nil {
		return nil, lookup("client", err)
	}
	return client, nil
}

// IsAssigned reports whether userID holds an assignment on ticketID.
func (s *AssignmentService) IsAssigned(ctx context.Context, repos repository.Repositories, ticketID, userID string) (bool, error) {
	ok, err := repos.Assignments.Exists(ctx, ticketID, userID)
	if err != nil {
		return false, persist("read assignments", err)
	}
	return ok, nil
}

// VisibleTickets keeps the tickets user may see: all of them for managerial roles,
// otherwise those with an assignment row for user.
func VisibleTickets(tickets []domain.Ticket, assignments []domain.Assignment, user domain.User) []domain.Ticket {
	if user.Role.SeesAllTickets() {
		return tickets
	}
	mine := make(map[string]bool)
	for _, a := range assignments {
		if a.UserID == user.ID {
			mine[a.TicketID] = true
		}
	}
	visible := make([]domain.Ticket, 0, len(mine))
	for _, t := range tickets {
		if mine[t.ID] {
			visible = append(visible, t)
		}
	}
	return visible
}
