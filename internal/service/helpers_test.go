package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/events"
	"github.com/placementops/ticketing/internal/repository"
	"github.com/placementops/ticketing/internal/repository/memstore"
)

var errBlobDown = errors.New("blob store unavailable")

type fakeBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{files: map[string][]byte{}} }

func (b *fakeBlobs) Upload(_ context.Context, path string, content []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.files[path] = append([]byte(nil), content...)
	return nil
}

func (b *fakeBlobs) PublicURL(path string) string { return "https://files.test/" + path }

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// tickClock advances one second per reading so timestamps are strictly ordered.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeMetrics struct {
	mu          sync.Mutex
	transitions []string
	created     int
}

func (m *fakeMetrics) RecordTransition(ticketType, action, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, ticketType+"/"+action+"/"+result)
}

func (m *fakeMetrics) RecordTicketCreated(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memstore.Store
	blobs      *fakeBlobs
	clock      *tickClock
	events     *recordedEvents
	metrics    *fakeMetrics
	sla        *SLAService
	activity   *ActivityService
	tickets    *TicketService
	onboarding *OnboardingService

	am, lead, ca, scraper, resume, resumeLead, coo, sales, otherCA domain.User
	client                                                          domain.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   memstore.New(),
		blobs:   newFakeBlobs(),
		clock:   &tickClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		events:  &recordedEvents{},
		metrics: &fakeMetrics{},
	}
	for _, cfg := range memstore.DefaultSLA() {
		f.store.PutSLA(cfg)
	}

	f.am = f.addUser("u-am", domain.RoleAccountManager)
	f.lead = f.addUser("u-lead", domain.RoleCATeamLead)
	f.ca = f.addUser("u-ca", domain.RoleCareerAssociate)
	f.scraper = f.addUser("u-scraper", domain.RoleScrapingTeam)
	f.resume = f.addUser("u-resume", domain.RoleResumeTeam)
	f.resumeLead = f.addUser("u-resume-lead", domain.RoleResumeTeamLead)
	f.coo = f.addUser("u-coo", domain.RoleCOO)
	f.sales = f.addUser("u-sales", domain.RoleSales)
	f.otherCA = f.addUser("u-ca-2", domain.RoleCareerAssociate)
	f.client = f.addClient("c-1", &f.am.ID, &f.lead.ID, &f.ca.ID, &f.scraper.ID)

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketCommentAdded,
		events.EventTicketFileAttached,
		events.EventTicketEscalated,
		events.EventClientOnboarded,
	} {
		dispatcher.Subscribe(et, f.events.handle)
	}

	f.sla = NewSLAService(SLADependencies{Store: f.store})
	f.activity = NewActivityService(ActivityDependencies{Store: f.store, Blobs: f.blobs, Clock: f.clock.Now})
	f.tickets = NewTicketService(TicketDependencies{
		Store:       f.store,
		SLA:         f.sla,
		Assignments: NewAssignmentService(AssignmentDependencies{Clock: f.clock.Now}),
		Activity:    f.activity,
		Blobs:       f.blobs,
		Metrics:     f.metrics,
		Dispatcher:  dispatcher,
		Clock:       f.clock.Now,
	})
	f.onboarding = NewOnboardingService(OnboardingDependencies{Store: f.store, Dispatcher: dispatcher, Clock: f.clock.Now})
	return f
}

func (f *fixture) addUser(id string, role domain.Role) domain.User {
	f.t.Helper()
	user := domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, IsActive: true}
	require.NoError(f.t, f.store.Repos().Users.Create(f.ctx, &user))
	return user
}

func (f *fixture) addClient(id string, am, lead, ca, scraper *string) domain.Client {
	f.t.Helper()
	client := domain.Client{
		ID:                id,
		ClientProfile:     domain.ClientProfile{FullName: "Client " + id},
		AccountManagerID:  am,
		CATeamLeadID:      lead,
		CareerAssociateID: ca,
		ScraperID:         scraper,
	}
	require.NoError(f.t, f.store.Repos().Clients.Create(f.ctx, &client))
	return client
}

func (f *fixture) createVolumeShortfall(clientID string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, f.lead, TicketCreateInput{
		Type:        domain.TicketTypeVolumeShortfall,
		Title:       "Low application volume",
		Description: "Only 12 applications this week",
		ClientID:    &clientID,
		Metadata:    []byte(`{"expected_applications":50,"actual_applications":12,"time_period":"week"}`),
	})
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) createResumeUpdate() *domain.Ticket {
	f.t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, f.am, TicketCreateInput{
		Type:        domain.TicketTypeResumeUpdate,
		Title:       "Refresh resume",
		Description: "Client added a new certification",
		ClientID:    &f.client.ID,
	})
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) act(user domain.User, ticketID string, in TransitionInput) (*TransitionResult, error) {
	return f.tickets.Transition(f.ctx, user, ticketID, in)
}

func (f *fixture) mustAct(user domain.User, ticketID string, in TransitionInput) *TransitionResult {
	f.t.Helper()
	result, err := f.act(user, ticketID, in)
	require.NoError(f.t, err)
	return result
}

func (f *fixture) ticket(id string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.store.Repos().Tickets.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) allTickets() []domain.Ticket {
	f.t.Helper()
	tickets, err := f.store.Repos().Tickets.List(f.ctx, repository.TicketFilter{})
	require.NoError(f.t, err)
	return tickets
}

func (f *fixture) assignees(ticketID string) []string {
	f.t.Helper()
	assignments, err := f.store.Repos().Assignments.ListByTicket(f.ctx, ticketID)
	require.NoError(f.t, err)
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

func (f *fixture) comments(ticketID string) []domain.Comment {
	f.t.Helper()
	comments, err := f.store.Repos().Comments.ListByTicket(f.ctx, ticketID)
	require.NoError(f.t, err)
	return comments
}

func (f *fixture) history(ticketID string) []domain.TicketHistory {
	f.t.Helper()
	history, err := f.store.Repos().History.ListByTicket(f.ctx, ticketID)
	require.NoError(f.t, err)
	return history
}

// forwardedVolumeShortfall returns a ticket forwarded to the client's CA and scraper.
func (f *fixture) forwardedVolumeShortfall() *domain.Ticket {
	f.t.Helper()
	ticket := f.createVolumeShortfall(f.client.ID)
	f.mustAct(f.lead, ticket.ID, TransitionInput{Action: ActionForward})
	return f.ticket(ticket.ID)
}

// repliedVolumeShortfall returns a ticket both responders have replied to.
func (f *fixture) repliedVolumeShortfall() *domain.Ticket {
	f.t.Helper()
	ticket := f.forwardedVolumeShortfall()
	f.mustAct(f.ca, ticket.ID, TransitionInput{Action: ActionReply, Comment: "Applied to 20 more roles"})
	f.mustAct(f.scraper, ticket.ID, TransitionInput{Action: ActionReply, Comment: "Job feed refreshed"})
	return f.ticket(ticket.ID)
}

var _ repository.Store = (*memstore.Store)(nil)
