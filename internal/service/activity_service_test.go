package service

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository/memstore"
)

func TestListActivityOrdersByTimeCommentsFirstOnTies(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	fixed := func() time.Time { return at }
	svc := NewActivityService(ActivityDependencies{Store: store, Blobs: newFakeBlobs(), Clock: fixed})
	repos := store.Repos()

	_, err := svc.AppendFile(ctx, repos, "t-1", "u-1", "t-1/1-a.pdf")
	require.NoError(t, err)
	_, err = svc.AppendComment(ctx, repos, CommentInput{TicketID: "t-1", UserID: "u-1", Content: "same instant", StatusAtTime: domain.TicketStatusOpen})
	require.NoError(t, err)
	at = at.Add(time.Minute)
	_, err = svc.AppendComment(ctx, repos, CommentInput{TicketID: "t-1", UserID: "u-2", Content: "later", StatusAtTime: domain.TicketStatusOpen})
	require.NoError(t, err)
	_, err = svc.AppendComment(ctx, repos, CommentInput{TicketID: "t-2", UserID: "u-2", Content: "other ticket"})
	require.NoError(t, err)

	entries, err := svc.ListActivity(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.ActivityComment, entries[0].Kind)
	assert.Equal(t, "same instant", entries[0].Comment.Content)
	assert.Equal(t, domain.ActivityFile, entries[1].Kind)
	assert.Equal(t, "https://files.test/t-1/1-a.pdf", entries[1].FileURL)
	assert.Equal(t, "later", entries[2].Comment.Content)
}

func TestAssignIsSetUnion(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewAssignmentService(AssignmentDependencies{})
	repos := store.Repos()

	added, err := svc.Assign(ctx, repos, "t-1", []string{"u-1", "", "u-2", "u-1", " u-2 "}, "u-0")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, added)

	added, err = svc.Assign(ctx, repos, "t-1", []string{"u-2", "u-3"}, "u-0")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-3"}, added)

	rows, err := repos.Assignments.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	ok, err := svc.IsAssigned(ctx, repos, "t-1", "u-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVisibleTickets(t *testing.T) {
	tickets := []domain.Ticket{{ID: "t-1"}, {ID: "t-2"}, {ID: "t-3"}}
	assignments := []domain.Assignment{
		{TicketID: "t-1", UserID: "u-ca"},
		{TicketID: "t-3", UserID: "u-ca"},
		{TicketID: "t-2", UserID: "u-other"},
	}

	ca := domain.User{ID: "u-ca", Role: domain.RoleCareerAssociate}
	visible := VisibleTickets(tickets, assignments, ca)
	require.Len(t, visible, 2)
	assert.Equal(t, "t-1", visible[0].ID)
	assert.Equal(t, "t-3", visible[1].ID)

	coo := domain.User{ID: "u-coo", Role: domain.RoleCOO}
	assert.Len(t, VisibleTickets(tickets, nil, coo), 3)

	assert.Empty(t, VisibleTickets(tickets, assignments, domain.User{ID: "u-sales", Role: domain.RoleSales}))
}

func TestStringPreviewCutsOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		body string
		max  int
		want string
	}{
		{name: "short", body: "  done  ", max: 10, want: "done"},
		{name: "ascii", body: "abcdefghij", max: 6, want: "abc..."},
		{name: "multibyte", body: "résumé reçu à Zürich", max: 8, want: "résum..."},
		{name: "tiny limit", body: "日本語のテキスト", max: 2, want: "日本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringPreview(tt.body, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
