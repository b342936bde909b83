package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
)

func seedTicket(t *testing.T, s *Store) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		ID:        "t-1",
		Type:      domain.TicketTypeNoInterviews,
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityLow,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Repos().Tickets.Create(context.Background(), ticket))
	return ticket
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedTicket(t, s)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(repos repository.Repositories) error {
		require.NoError(t, repos.Comments.Create(ctx, &domain.Comment{TicketID: "t-1", Content: "hi"}))
		_, err := repos.Assignments.Insert(ctx, &domain.Assignment{TicketID: "t-1", UserID: "u-1"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	comments, err := s.Repos().Comments.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, comments)
	exists, err := s.Repos().Assignments.Exists(ctx, "t-1", "u-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedTicket(t, s)

	err := s.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Comments.Create(ctx, &domain.Comment{TicketID: "t-1", Content: "hi"})
	})
	require.NoError(t, err)

	comments, err := s.Repos().Comments.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.NotEmpty(t, comments[0].ID)
}

func TestAssignmentInsertIsSetUnion(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	inserted, err := repos.Assignments.Insert(ctx, &domain.Assignment{TicketID: "t", UserID: "u"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repos.Assignments.Insert(ctx, &domain.Assignment{TicketID: "t", UserID: "u"})
	require.NoError(t, err)
	assert.False(t, inserted)

	list, err := repos.Assignments.ListByTicket(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateStateChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := New()
	ticket := seedTicket(t, s)

	ticket.Status = domain.TicketStatusInProgress
	require.NoError(t, s.Repos().Tickets.UpdateState(ctx, ticket, 0))
	assert.Equal(t, int64(1), ticket.Version)

	ticket.Status = domain.TicketStatusResolved
	err := s.Repos().Tickets.UpdateState(ctx, ticket, 0)
	assert.ErrorIs(t, err, repository.ErrStaleVersion)

	stored, err := s.Repos().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
}

func TestFailOnInjectsAndClears(t *testing.T) {
	ctx := context.Background()
	s := New()
	injected := errors.New("disk full")
	s.FailOn("comments.create", injected)

	err := s.Repos().Comments.Create(ctx, &domain.Comment{TicketID: "t"})
	assert.ErrorIs(t, err, injected)

	s.FailOn("comments.create", nil)
	assert.NoError(t, s.Repos().Comments.Create(ctx, &domain.Comment{TicketID: "t"}))
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	_, err := New().Repos().Tickets.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()
	for i, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusClosed, domain.TicketStatusOpen} {
		require.NoError(t, repos.Tickets.Create(ctx, &domain.Ticket{
			ID:     string(rune('a' + i)),
			Type:   domain.TicketTypeBulkComplaints,
			Status: status,
		}))
	}

	open, err := repos.Tickets.List(ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "c", open[0].ID)

	paged, err := repos.Tickets.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].ID)

	byID, err := repos.Tickets.List(ctx, repository.TicketFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, byID)
}

func TestListClampsNegativeOffset(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedTicket(t, s)

	tickets, err := s.Repos().Tickets.List(ctx, repository.TicketFilter{Limit: 20, Offset: -40})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "t-1", tickets[0].ID)
}

func TestListMatchesIDsOrOwnedScopes(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()
	for _, ticket := range []domain.Ticket{
		{ID: "assigned", Type: domain.TicketTypeBulkComplaints, Status: domain.TicketStatusOpen},
		{ID: "owned", Type: domain.TicketTypeResumeUpdate, Status: domain.TicketStatusOpen},
		{ID: "moved-on", Type: domain.TicketTypeResumeUpdate, Status: domain.TicketStatusInProgress},
		{ID: "unrelated", Type: domain.TicketTypeNoInterviews, Status: domain.TicketStatusOpen},
	} {
		ticket := ticket
		require.NoError(t, repos.Tickets.Create(ctx, &ticket))
	}

	tickets, err := repos.Tickets.List(ctx, repository.TicketFilter{
		IDs: []string{"assigned"},
		Owned: []repository.TicketScope{
			{Type: domain.TicketTypeResumeUpdate, Statuses: []domain.TicketStatus{domain.TicketStatusOpen}},
		},
	})
	require.NoError(t, err)
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	assert.Equal(t, []string{"owned", "assigned"}, ids)
}

func TestGetByIDForUpdateReadsInsideTx(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedTicket(t, s)

	err := s.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		_, err = repos.Tickets.GetByIDForUpdate(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}
