package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

func TestResumeUpdateFullCycle(t *testing.T) {
	f := newFixture(t)
	ticket := f.createResumeUpdate()

	forwarded := f.mustAct(f.resume, ticket.ID, TransitionInput{
		Action:  ActionForwardResume,
		Comment: "Updated resume ready",
		File:    &FileUpload{Name: "resume-v2.pdf", Content: []byte("%PDF")},
	})
	assert.Equal(t, domain.TicketStatusInProgress, forwarded.Ticket.Status)
	require.Len(t, forwarded.Comments, 1)
	assert.Equal(t, "Updated resume ready [Attached file: resume-v2.pdf]", forwarded.Comments[0].Content)

	// The resume team owns the ticket only while it is open.
	_, err := f.act(f.resume, ticket.ID, TransitionInput{Action: ActionComment, Comment: "one more thing"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	teams := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionForwardToTeams})
	assert.Equal(t, domain.TicketStatusForwarded, teams.Ticket.Status)
	assert.ElementsMatch(t, []string{f.ca.ID, f.lead.ID, f.scraper.ID}, teams.Assigned)

	_, err = f.act(f.am, ticket.ID, TransitionInput{Action: ActionAcknowledge})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	first := f.mustAct(f.lead, ticket.ID, TransitionInput{Action: ActionAcknowledge})
	assert.Equal(t, domain.TicketStatusForwarded, first.Ticket.Status)
	require.Len(t, first.Comments, 1)
	assert.Equal(t, "ca team lead acknowledged resume update.", first.Comments[0].Content)

	f.mustAct(f.ca, ticket.ID, TransitionInput{Action: ActionAcknowledge, Comment: "LinkedIn synced too"})
	last := f.mustAct(f.scraper, ticket.ID, TransitionInput{Action: ActionAcknowledge})

	assert.Equal(t, domain.TicketStatusClosed, last.Ticket.Status)
	assert.True(t, last.Automatic)
	require.Len(t, last.Comments, 2)
	done := last.Comments[1]
	assert.Equal(t, resumeUpdatesDoneMessage, done.Content)
	assert.Equal(t, f.am.ID, done.UserID)
	assert.Equal(t, domain.TicketStatusClosed, done.TicketStatusAtTime)

	comments := f.comments(ticket.ID)
	assert.Equal(t, "career associate acknowledged resume update.\n\nLinkedIn synced too", comments[len(comments)-3].Content)

	resolved := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionMarkResolved})
	assert.Equal(t, domain.TicketStatusResolved, resolved.Ticket.Status)

	history := f.history(ticket.ID)
	require.Len(t, history, 4)
	assert.Equal(t, []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusForwarded,
		domain.TicketStatusClosed,
		domain.TicketStatusResolved,
	}, []domain.TicketStatus{history[0].ToStatus, history[1].ToStatus, history[2].ToStatus, history[3].ToStatus})
}

func TestResumeUpdateSendBackPrefersLead(t *testing.T) {
	f := newFixture(t)
	ticket := f.createResumeUpdate()
	f.mustAct(f.resume, ticket.ID, TransitionInput{Action: ActionForwardResume, Comment: "draft"})

	_, err := f.act(f.am, ticket.ID, TransitionInput{Action: ActionSendBack})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	result := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionSendBack, Comment: "Missing the new certification"})

	assert.Equal(t, domain.TicketStatusOpen, result.Ticket.Status)
	assert.Equal(t, []string{f.resumeLead.ID}, result.Assigned)
	assert.NotContains(t, f.assignees(ticket.ID), f.resume.ID)
}

func TestResumeUpdateSendBackFallsBackToTeam(t *testing.T) {
	f := newFixture(t)
	second := f.addUser("u-resume-2", domain.RoleResumeTeam)
	retired := f.resumeLead
	retired.IsActive = false
	require.NoError(t, f.store.Repos().Users.Create(f.ctx, &retired))

	ticket := f.createResumeUpdate()
	f.mustAct(f.resume, ticket.ID, TransitionInput{Action: ActionForwardResume, Comment: "draft"})
	result := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionSendBack, Comment: "redo"})

	assert.Equal(t, domain.TicketStatusOpen, result.Ticket.Status)
	assert.ElementsMatch(t, []string{f.resume.ID, second.ID}, result.Assigned)
}

func TestResumeUpdateForwardToTeamsNeedsBindings(t *testing.T) {
	f := newFixture(t)
	bare := f.addClient("c-bare", &f.am.ID, nil, nil, nil)
	ticket, err := f.tickets.CreateTicket(f.ctx, f.am, TicketCreateInput{
		Type:        domain.TicketTypeResumeUpdate,
		Title:       "Resume",
		Description: "Refresh",
		ClientID:    &bare.ID,
	})
	require.NoError(t, err)
	f.mustAct(f.resumeLead, ticket.ID, TransitionInput{Action: ActionForwardResume, Comment: "done"})

	_, err = f.act(f.am, ticket.ID, TransitionInput{Action: ActionForwardToTeams})

	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, domain.TicketStatusInProgress, f.ticket(ticket.ID).Status)
}

func TestGenericUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.tickets.CreateTicket(f.ctx, f.am, TicketCreateInput{
		Type:        domain.TicketTypeHighRejections,
		Title:       "Rejections spiking",
		Description: "Most applications rejected within a day",
		Metadata:    []byte(`{"notes":"mostly senior roles"}`),
	})
	require.NoError(t, err)

	_, err = f.act(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: domain.TicketStatusClosed})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))

	_, err = f.act(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: "done"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, "target_status", apperrors.ToDomainError(err).Details["field"])

	_, err = f.act(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: domain.TicketStatusEscalated})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, "escalation_reason", apperrors.ToDomainError(err).Details["field"])

	progress := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: domain.TicketStatusInProgress, Comment: "Looking into it"})
	assert.Equal(t, domain.TicketStatusInProgress, progress.Ticket.Status)
	require.Len(t, progress.Comments, 1)
	assert.Equal(t, domain.TicketStatusOpen, progress.Comments[0].TicketStatusAtTime)

	resolved := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: domain.TicketStatusResolved, Resolution: "Tailored the cover letters"})
	require.Len(t, resolved.Comments, 1)
	assert.Equal(t, "Resolution: Tailored the cover letters", resolved.Comments[0].Content)

	// A status change with nothing to say writes no comment.
	closed := f.mustAct(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: domain.TicketStatusClosed})
	assert.Empty(t, closed.Comments)
	assert.Len(t, f.history(ticket.ID), 3)

	_, err = f.act(f.am, ticket.ID, TransitionInput{Action: ActionUpdateStatus, TargetStatus: domain.TicketStatusOpen})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))
}

func TestJobFeedEmptySubmitRequiredFile(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.tickets.CreateTicket(f.ctx, f.ca, TicketCreateInput{
		Type:        domain.TicketTypeJobFeedEmpty,
		Title:       "No jobs for data analysts",
		Description: "Feed empty since Monday",
		Metadata:    []byte(`{"job_categories":["data analyst"],"locations":["Austin"]}`),
	})
	require.NoError(t, err)

	_, err = f.act(f.scraper, ticket.ID, TransitionInput{Action: ActionSubmitRequiredFile, Comment: "attached"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, "file", apperrors.ToDomainError(err).Details["field"])

	f.blobs.err = errBlobDown
	_, err = f.act(f.scraper, ticket.ID, TransitionInput{Action: ActionSubmitRequiredFile, File: &FileUpload{Name: "jobs.csv", Content: []byte("a,b")}})
	require.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure))
	assert.Equal(t, domain.TicketStatusOpen, f.ticket(ticket.ID).Status)
	assert.Empty(t, f.comments(ticket.ID))

	f.blobs.err = nil
	result := f.mustAct(f.scraper, ticket.ID, TransitionInput{Action: ActionSubmitRequiredFile, File: &FileUpload{Name: "jobs.csv", Content: []byte("a,b")}})
	assert.Equal(t, domain.TicketStatusResolved, result.Ticket.Status)
	require.Len(t, result.Files, 1)
	assert.Empty(t, result.Comments)

	_, err = f.act(f.ca, ticket.ID, TransitionInput{Action: ActionSubmitRequiredFile, File: &FileUpload{Name: "x.csv"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "only the scraping team submits the file")
}

func TestLegalActions(t *testing.T) {
	f := newFixture(t)
	open := f.createVolumeShortfall(f.client.ID)
	wf := WorkflowFor(domain.TicketTypeVolumeShortfall)

	assert.Equal(t, []Action{ActionClose, ActionComment, ActionForward}, LegalActions(wf, open, f.lead, true))
	assert.Equal(t, []Action{ActionComment, ActionForward}, LegalActions(wf, open, f.am, false))
	assert.Empty(t, LegalActions(wf, open, f.sales, false))
	assert.Equal(t, []Action{ActionComment}, LegalActions(wf, open, f.coo, false))

	resume := f.createResumeUpdate()
	rwf := WorkflowFor(domain.TicketTypeResumeUpdate)
	assert.Equal(t, []Action{ActionComment, ActionForwardResume}, LegalActions(rwf, resume, f.resume, false))
	assert.Empty(t, LegalActions(rwf, resume, f.ca, false))
}

func TestWorkflowForDispatch(t *testing.T) {
	assert.Equal(t, "volume_shortfall", WorkflowFor(domain.TicketTypeVolumeShortfall).Name())
	assert.Equal(t, "resume_update", WorkflowFor(domain.TicketTypeResumeUpdate).Name())
	for _, tt := range domain.AllTicketTypes {
		if tt == domain.TicketTypeVolumeShortfall || tt == domain.TicketTypeResumeUpdate {
			continue
		}
		assert.Equal(t, "generic", WorkflowFor(tt).Name(), tt)
	}
}

func TestAllRequiredRolesHaveResponded(t *testing.T) {
	roleOf := map[string]domain.Role{"a": domain.RoleCareerAssociate, "b": domain.RoleScrapingTeam, "c": domain.RoleCATeamLead}
	comments := []domain.Comment{{UserID: "a"}, {UserID: "c"}, {UserID: "ghost"}}
	required := []domain.Role{domain.RoleCareerAssociate, domain.RoleScrapingTeam}

	assert.False(t, AllRequiredRolesHaveResponded(comments, roleOf, required))
	comments = append(comments, domain.Comment{UserID: "b"})
	assert.True(t, AllRequiredRolesHaveResponded(comments, roleOf, required))
	assert.True(t, AllRequiredRolesHaveResponded(comments, roleOf, required), "repeatable")
	assert.True(t, AllRequiredRolesHaveResponded(nil, roleOf, nil))
}
