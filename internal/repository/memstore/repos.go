package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
)

type ticketRepo struct{ v *view }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.v.do(ctx, "tickets.create", func(st *state) error {
		if ticket.ID == "" {
			ticket.ID = uuid.NewString()
		}
		st.tickets[ticket.ID] = *ticket
		st.ticketOrder = append(st.ticketOrder, ticket.ID)
		return nil
	})
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.v.do(ctx, "tickets.get", func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

// GetByIDForUpdate needs no row lock here: WithinTx holds the store mutex for the
// whole transaction, so two transitions on one ticket already run one after the other.
func (r ticketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.v.do(ctx, "tickets.get_for_update", func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.v.do(ctx, "tickets.list", func(st *state) error {
		var ids map[string]bool
		if filter.IDs != nil {
			ids = make(map[string]bool, len(filter.IDs))
			for _, id := range filter.IDs {
				ids[id] = true
			}
		}
		for i := len(st.ticketOrder) - 1; i >= 0; i-- {
			t := st.tickets[st.ticketOrder[i]]
			if (ids != nil || len(filter.Owned) > 0) && !ids[t.ID] && !inScope(filter.Owned, t) {
				continue
			}
			if filter.ClientID != nil && (t.ClientID == nil || *t.ClientID != *filter.ClientID) {
				continue
			}
			if len(filter.Statuses) > 0 && !contains(filter.Statuses, t.Status) {
				continue
			}
			if len(filter.Types) > 0 && !contains(filter.Types, t.Type) {
				continue
			}
			if len(filter.Priorities) > 0 && !contains(filter.Priorities, t.Priority) {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) UpdateState(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	return r.v.do(ctx, "tickets.update_state", func(st *state) error {
		stored, ok := st.tickets[ticket.ID]
		if !ok || stored.Version != expectedVersion {
			return repository.ErrStaleVersion
		}
		stored.Status = ticket.Status
		stored.EscalationLevel = ticket.EscalationLevel
		stored.UpdatedAt = ticket.UpdatedAt
		stored.Version = expectedVersion + 1
		st.tickets[ticket.ID] = stored
		ticket.Version = stored.Version
		return nil
	})
}

type volumeRepo struct{ v *view }

func (r volumeRepo) Create(ctx context.Context, record *domain.VolumeShortfallRecord) error {
	return r.v.do(ctx, "volume_shortfall.create", func(st *state) error {
		st.volume[record.TicketID] = *record
		return nil
	})
}

func (r volumeRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.VolumeShortfallRecord, error) {
	var out *domain.VolumeShortfallRecord
	err := r.v.do(ctx, "volume_shortfall.get", func(st *state) error {
		rec, ok := st.volume[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r volumeRepo) MarkForwarded(ctx context.Context, ticketID string, at time.Time) error {
	return r.v.do(ctx, "volume_shortfall.mark_forwarded", func(st *state) error {
		rec, ok := st.volume[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		rec.ForwardedToCAScraping = true
		rec.ForwardedAt = &at
		st.volume[ticketID] = rec
		return nil
	})
}

type assignmentRepo struct{ v *view }

func (r assignmentRepo) Insert(ctx context.Context, assignment *domain.Assignment) (bool, error) {
	var inserted bool
	err := r.v.do(ctx, "assignments.insert", func(st *state) error {
		key := assignmentKey{ticketID: assignment.TicketID, userID: assignment.UserID}
		if _, ok := st.assignments[key]; ok {
			return nil
		}
		st.assignments[key] = *assignment
		st.assignOrder = append(st.assignOrder, key)
		inserted = true
		return nil
	})
	return inserted, err
}

func (r assignmentRepo) Exists(ctx context.Context, ticketID, userID string) (bool, error) {
	var exists bool
	err := r.v.do(ctx, "assignments.exists", func(st *state) error {
		_, exists = st.assignments[assignmentKey{ticketID: ticketID, userID: userID}]
		return nil
	})
	return exists, err
}

func (r assignmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	return r.list(ctx, func(a domain.Assignment) bool { return a.TicketID == ticketID })
}

func (r assignmentRepo) ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	return r.list(ctx, func(a domain.Assignment) bool { return a.UserID == userID })
}

func (r assignmentRepo) list(ctx context.Context, keep func(domain.Assignment) bool) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := r.v.do(ctx, "assignments.list", func(st *state) error {
		for _, key := range st.assignOrder {
			if a := st.assignments[key]; keep(a) {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

type commentRepo struct{ v *view }

func (r commentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	return r.v.do(ctx, "comments.create", func(st *state) error {
		comment.ID = uuid.NewString()
		st.comments = append(st.comments, *comment)
		return nil
	})
}

func (r commentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := r.v.do(ctx, "comments.list", func(st *state) error {
		for _, c := range st.comments {
			if c.TicketID == ticketID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type fileRepo struct{ v *view }

func (r fileRepo) Create(ctx context.Context, file *domain.FileAttachment) error {
	return r.v.do(ctx, "files.create", func(st *state) error {
		file.ID = uuid.NewString()
		st.files = append(st.files, *file)
		return nil
	})
}

func (r fileRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.FileAttachment, error) {
	var out []domain.FileAttachment
	err := r.v.do(ctx, "files.list", func(st *state) error {
		for _, f := range st.files {
			if f.TicketID == ticketID {
				out = append(out, f)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, err
}

type escalationRepo struct{ v *view }

func (r escalationRepo) Create(ctx context.Context, escalation *domain.Escalation) error {
	return r.v.do(ctx, "escalations.create", func(st *state) error {
		escalation.ID = uuid.NewString()
		st.escalations = append(st.escalations, *escalation)
		return nil
	})
}

func (r escalationRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error) {
	var out []domain.Escalation
	err := r.v.do(ctx, "escalations.list", func(st *state) error {
		for _, e := range st.escalations {
			if e.TicketID == ticketID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

type historyRepo struct{ v *view }

func (r historyRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	return r.v.do(ctx, "history.create", func(st *state) error {
		history.ID = uuid.NewString()
		st.history = append(st.history, *history)
		return nil
	})
}

func (r historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	err := r.v.do(ctx, "history.list", func(st *state) error {
		for _, h := range st.history {
			if h.TicketID == ticketID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}

type userRepo struct{ v *view }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.v.do(ctx, "users.create", func(st *state) error {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, "users.get", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	var out []domain.User
	err := r.v.do(ctx, "users.list", func(st *state) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

func (r userRepo) ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	err := r.v.do(ctx, "users.list", func(st *state) error {
		for _, u := range st.users {
			if u.Role == role && u.IsActive {
				out = append(out, u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

type clientRepo struct{ v *view }

func (r clientRepo) Create(ctx context.Context, client *domain.Client) error {
	return r.v.do(ctx, "clients.create", func(st *state) error {
		if client.ID == "" {
			client.ID = uuid.NewString()
		}
		st.clients[client.ID] = *client
		return nil
	})
}

func (r clientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var out *domain.Client
	err := r.v.do(ctx, "clients.get", func(st *state) error {
		c, ok := st.clients[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

type pendingRepo struct{ v *view }

func (r pendingRepo) Create(ctx context.Context, pending *domain.PendingClient) error {
	return r.v.do(ctx, "pending_clients.create", func(st *state) error {
		if pending.ID == "" {
			pending.ID = uuid.NewString()
		}
		st.pending[pending.ID] = *pending
		return nil
	})
}

func (r pendingRepo) GetByID(ctx context.Context, id string) (*domain.PendingClient, error) {
	var out *domain.PendingClient
	err := r.v.do(ctx, "pending_clients.get", func(st *state) error {
		p, ok := st.pending[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r pendingRepo) List(ctx context.Context) ([]domain.PendingClient, error) {
	var out []domain.PendingClient
	err := r.v.do(ctx, "pending_clients.list", func(st *state) error {
		for _, p := range st.pending {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r pendingRepo) Delete(ctx context.Context, id string) error {
	return r.v.do(ctx, "pending_clients.delete", func(st *state) error {
		if _, ok := st.pending[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.pending, id)
		return nil
	})
}

type slaRepo struct{ v *view }

func (r slaRepo) GetByType(ctx context.Context, ticketType domain.TicketType) (*domain.SLAConfig, error) {
	var out *domain.SLAConfig
	err := r.v.do(ctx, "sla.get", func(st *state) error {
		cfg, ok := st.sla[ticketType]
		if !ok {
			return repository.ErrNotFound
		}
		out = &cfg
		return nil
	})
	return out, err
}

func (r slaRepo) List(ctx context.Context) ([]domain.SLAConfig, error) {
	var out []domain.SLAConfig
	err := r.v.do(ctx, "sla.list", func(st *state) error {
		for _, cfg := range st.sla {
			out = append(out, cfg)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TicketType < out[j].TicketType })
	return out, err
}

// PutSLA upserts an SLA row. sla_config is managed outside the service, so the
// repository interface has no writer.
func (s *Store) PutSLA(cfg domain.SLAConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sla[cfg.TicketType] = cfg
}

func inScope(scopes []repository.TicketScope, t domain.Ticket) bool {
	for _, scope := range scopes {
		if scope.Type == t.Type && contains(scope.Statuses, t.Status) {
			return true
		}
	}
	return false
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
