// Package memstore is an in-memory repository.Store. Transactions run against a
// private copy of the data that replaces the live copy only on success.
package memstore

import (
	"context"
	"sync"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
)

type assignmentKey struct {
	ticketID string
	userID   string
}

type state struct {
	tickets     map[string]domain.Ticket
	ticketOrder []string
	volume      map[string]domain.VolumeShortfallRecord
	assignments map[assignmentKey]domain.Assignment
	assignOrder []assignmentKey
	comments    []domain.Comment
	files       []domain.FileAttachment
	escalations []domain.Escalation
	history     []domain.TicketHistory
	users       map[string]domain.User
	clients     map[string]domain.Client
	pending     map[string]domain.PendingClient
	sla         map[domain.TicketType]domain.SLAConfig
}

func newState() *state {
	return &state{
		tickets:     map[string]domain.Ticket{},
		volume:      map[string]domain.VolumeShortfallRecord{},
		assignments: map[assignmentKey]domain.Assignment{},
		users:       map[string]domain.User{},
		clients:     map[string]domain.Client{},
		pending:     map[string]domain.PendingClient{},
		sla:         map[domain.TicketType]domain.SLAConfig{},
	}
}

func (s *state) clone() *state {
	c := &state{
		tickets:     make(map[string]domain.Ticket, len(s.tickets)),
		ticketOrder: append([]string(nil), s.ticketOrder...),
		volume:      make(map[string]domain.VolumeShortfallRecord, len(s.volume)),
		assignments: make(map[assignmentKey]domain.Assignment, len(s.assignments)),
		assignOrder: append([]assignmentKey(nil), s.assignOrder...),
		comments:    append([]domain.Comment(nil), s.comments...),
		files:       append([]domain.FileAttachment(nil), s.files...),
		escalations: append([]domain.Escalation(nil), s.escalations...),
		history:     append([]domain.TicketHistory(nil), s.history...),
		users:       make(map[string]domain.User, len(s.users)),
		clients:     make(map[string]domain.Client, len(s.clients)),
		pending:     make(map[string]domain.PendingClient, len(s.pending)),
		sla:         make(map[domain.TicketType]domain.SLAConfig, len(s.sla)),
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.volume {
		c.volume[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.pending {
		c.pending[k] = v
	}
	for k, v := range s.sla {
		c.sla[k] = v
	}
	return c
}

// Store is a concurrency-safe in-memory repository.Store.
type Store struct {
	mu    sync.Mutex
	state *state

	failMu   sync.Mutex
	failures map[string]error
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState(), failures: map[string]error{}}
}

// FailOn makes every call to op return err until cleared with a nil err.
// Operation names have the form "<table>.<method>", e.g. "assignments.insert".
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failures[op]
}

// Repos returns repositories that operate on the live data, one lock per call.
func (s *Store) Repos() repository.Repositories {
	return s.bind(&view{store: s, locked: false})
}

// WithinTx serializes fn against all other store access and applies its writes atomically.
// fn must only use the repositories it is given; calling s.Repos() inside fn deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	v := &view{store: s, locked: true, tx: s.state.clone()}
	if err := fn(s.bind(v)); err != nil {
		return err
	}
	s.state = v.tx
	return nil
}

func (s *Store) bind(v *view) repository.Repositories {
	return repository.Repositories{
		Tickets:         ticketRepo{v},
		VolumeShortfall: volumeRepo{v},
		Assignments:     assignmentRepo{v},
		Comments:        commentRepo{v},
		Files:           fileRepo{v},
		Escalations:     escalationRepo{v},
		History:         historyRepo{v},
		Users:           userRepo{v},
		Clients:         clientRepo{v},
		PendingClients:  pendingRepo{v},
		SLA:             slaRepo{v},
	}
}

// view is the data a set of repositories reads and writes: either the live state
// guarded by the store mutex, or a transaction's private copy.
type view struct {
	store  *Store
	locked bool
	tx     *state
}

func (v *view) do(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := v.store.failure(op); err != nil {
		return err
	}
	if v.locked {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}
