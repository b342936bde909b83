package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/events"
	"github.com/placementops/ticketing/internal/observability"
	"github.com/placementops/ticketing/internal/rbac"
	"github.com/placementops/ticketing/internal/repository"
	"github.com/placementops/ticketing/internal/storage"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// MetricsRecorder receives ticket counters. *observability.Metrics satisfies it.
type MetricsRecorder interface {
	RecordTransition(ticketType, action, result string)
	RecordTicketCreated(ticketType, priority string)
}

// TicketService coordinates ticket creation, visibility and workflow transitions.
type TicketService struct {
	store       repository.Store
	sla         *SLAService
	assignments *AssignmentService
	activity    *ActivityService
	blobs       storage.BlobStore
	permissions *rbac.Table
	metrics     MetricsRecorder
	publisher
	logger *zap.Logger
	now    Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	SLA         *SLAService
	Assignments *AssignmentService
	Activity    *ActivityService
	Blobs       storage.BlobStore
	Permissions *rbac.Table
	Metrics     MetricsRecorder
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := orNop(deps.Logger)
	now := orClock(deps.Clock)
	permissions := deps.Permissions
	if permissions == nil {
		permissions = rbac.Default()
	}
	return &TicketService{
		store:       deps.Store,
		sla:         deps.SLA,
		assignments: deps.Assignments,
		activity:    deps.Activity,
		blobs:       deps.Blobs,
		permissions: permissions,
		metrics:     deps.Metrics,
		publisher:   publisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		logger:      logger,
		now:         now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type        domain.TicketType
	Title       string
	Description string
	ClientID    *string
	Metadata    json.RawMessage
}

// TicketListFilter narrows a visibility-filtered listing.
type TicketListFilter struct {
	ClientID   *string
	Statuses   []domain.TicketStatus
	Types      []domain.TicketType
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketDetail is a ticket together with everything a reader needs to act on it.
type TicketDetail struct {
	Ticket          *domain.Ticket
	VolumeShortfall *domain.VolumeShortfallRecord
	Activity        []domain.ActivityEntry
	Assignments     []domain.Assignment
	Escalations     []domain.Escalation
	History         []domain.TicketHistory
	LegalActions    []Action
	CanEdit         bool
}

// clientScopedTypes need client bindings to run their workflow.
var clientScopedTypes = map[domain.TicketType]bool{
	domain.TicketTypeVolumeShortfall: true,
	domain.TicketTypeResumeUpdate:    true,
}

// CreateTicket opens a ticket on behalf of actor. Priority, SLA hours and due date
// come from the SLA table; the creator is the first assignee.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	ctx, span := observability.Tracer().Start(ctx, "TicketService.CreateTicket")
	defer span.End()
	span.SetAttributes(attribute.String("ticket.type", string(input.Type)))

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	switch {
	case title == "":
		return nil, apperrors.NewFieldError("title", "title is required")
	case description == "":
		return nil, apperrors.NewFieldError("description", "description is required")
	case !input.Type.Valid():
		return nil, apperrors.NewFieldError("type", fmt.Sprintf("unknown ticket type %q", input.Type))
	}
	if !s.permissions.CanCreate(actor.Role, input.Type) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("role %s cannot create %s tickets", actor.Role, input.Type))
	}
	clientID := input.ClientID
	if clientID != nil && strings.TrimSpace(*clientID) == "" {
		clientID = nil
	}
	if clientID == nil && clientScopedTypes[input.Type] {
		return nil, apperrors.NewFieldError("client_id", fmt.Sprintf("%s tickets require a client", input.Type))
	}

	meta, err := domain.DecodeMetadata(input.Type, input.Metadata)
	if err != nil {
		var metaErr *domain.MetadataError
		if errors.As(err, &metaErr) {
			return nil, apperrors.NewValidationError(metaErr.Error(), map[string]any{"field": "metadata." + metaErr.Field})
		}
		return nil, apperrors.NewValidationError("metadata is not valid JSON for this ticket type", map[string]any{"field": "metadata", "reason": err.Error()})
	}

	cfg, err := s.sla.Resolve(ctx, input.Type)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		ShortCode:   generateShortCode(),
		Type:        input.Type,
		Priority:    cfg.Priority,
		Status:      domain.TicketStatusOpen,
		Title:       title,
		Description: description,
		Metadata:    meta,
		ClientID:    clientID,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     ComputeDueDate(now, cfg.Hours),
		SLAHours:    cfg.Hours,
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if clientID != nil {
			if _, err := repos.Clients.GetByID(ctx, *clientID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewFieldError("client_id", "client does not exist")
				}
				return persist("read client", err)
			}
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return persist("tickets", err)
		}
		if vs, ok := meta.(*domain.VolumeShortfallMeta); ok {
			notes := strings.TrimSpace(vs.Notes)
			if notes == "" {
				notes = description
			}
			record := &domain.VolumeShortfallRecord{
				TicketID:             ticket.ID,
				ExpectedApplications: vs.ExpectedApplications,
				ActualApplications:   vs.ActualApplications,
				TimePeriod:           vs.TimePeriod,
				Notes:                notes,
			}
			if err := repos.VolumeShortfall.Create(ctx, record); err != nil {
				return persist("volume_shortfall_tickets", err)
			}
		}
		_, err := s.assignments.Assign(ctx, repos, ticket.ID, []string{actor.ID}, actor.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.ToDomainError(err).Code)
		return nil, persist("commit", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			ShortCode: ticket.ShortCode,
			Type:      ticket.Type,
			Priority:  ticket.Priority,
			ClientID:  ticket.ClientID,
			DueDate:   ticket.DueDate,
			Title:     ticket.Title,
		},
	})
	if s.metrics != nil {
		s.metrics.RecordTicketCreated(string(ticket.Type), string(ticket.Priority))
	}
	s.logger.Info("ticket created", append(
		observability.TicketFields(ticket.ID, ticket.ShortCode, string(ticket.Type)),
		zap.String("actor_id", actor.ID))...)
	return ticket, nil
}

// ListTickets returns the tickets user may see. Managerial roles see everything;
// everyone else sees only tickets they are assigned to.
func (s *TicketService) ListTickets(ctx context.Context, user domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if !s.permissions.For(user.Role).CanViewTickets {
		return nil, apperrors.NewForbidden(fmt.Sprintf("role %s cannot view tickets", user.Role))
	}
	repos := s.store.Repos()
	query := repository.TicketFilter{
		ClientID:   filter.ClientID,
		Statuses:   filter.Statuses,
		Types:      filter.Types,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if user.Role.SeesAllTickets() {
		tickets, err := repos.Tickets.List(ctx, query)
		return tickets, persist("read tickets", err)
	}

	assignments, err := repos.Assignments.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, persist("read assignments", err)
	}
	query.IDs = make([]string, 0, len(assignments))
	for _, a := range assignments {
		query.IDs = append(query.IDs, a.TicketID)
	}
	query.Owned = primaryScopes(user.Role)
	tickets, err := repos.Tickets.List(ctx, query)
	if err != nil {
		return nil, persist("read tickets", err)
	}

	visible := make(map[string]bool)
	for _, t := range VisibleTickets(tickets, assignments, user) {
		visible[t.ID] = true
	}
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if visible[tickets[i].ID] || WorkflowFor(tickets[i].Type).IsPrimaryOwner(&tickets[i], user.Role) {
			out = append(out, tickets[i])
		}
	}
	return out, nil
}

// primaryScopes lists the (type, statuses) pairs where role is a primary owner,
// which is where it can read and edit without an assignment.
func primaryScopes(role domain.Role) []repository.TicketScope {
	var scopes []repository.TicketScope
	for _, ticketType := range domain.AllTicketTypes {
		wf := WorkflowFor(ticketType)
		var statuses []domain.TicketStatus
		for _, status := range domain.AllTicketStatuses {
			if wf.IsPrimaryOwner(&domain.Ticket{Type: ticketType, Status: status}, role) {
				statuses = append(statuses, status)
			}
		}
		if len(statuses) > 0 {
			scopes = append(scopes, repository.TicketScope{Type: ticketType, Statuses: statuses})
		}
	}
	return scopes
}

// GetTicket loads a ticket with its activity log and the actions user may take.
func (s *TicketService) GetTicket(ctx context.Context, user domain.User, ticketID string) (*TicketDetail, error) {
	repos := s.store.Repos()
	ticket, canEdit, assigned, err := s.readable(ctx, repos, user, ticketID)
	if err != nil {
		return nil, err
	}
	detail := &TicketDetail{Ticket: ticket, CanEdit: canEdit}
	wf := WorkflowFor(ticket.Type)
	detail.LegalActions = LegalActions(wf, ticket, user, assigned)

	if detail.Activity, err = s.activity.ListActivity(ctx, ticket.ID); err != nil {
		return nil, err
	}
	if detail.Assignments, err = repos.Assignments.ListByTicket(ctx, ticket.ID); err != nil {
		return nil, persist("read assignments", err)
	}
	if detail.Escalations, err = repos.Escalations.ListByTicket(ctx, ticket.ID); err != nil {
		return nil, persist("read escalations", err)
	}
	if detail.History, err = repos.History.ListByTicket(ctx, ticket.ID); err != nil {
		return nil, persist("read history", err)
	}
	if ticket.Type == domain.TicketTypeVolumeShortfall {
		record, err := repos.VolumeShortfall.GetByTicket(ctx, ticket.ID)
		switch {
		case err == nil:
			detail.VolumeShortfall = record
		case !errors.Is(err, repository.ErrNotFound):
			return nil, persist("read volume_shortfall_tickets", err)
		}
	}
	return detail, nil
}

// ListActivity returns the merged comment and file log of a ticket.
func (s *TicketService) ListActivity(ctx context.Context, user domain.User, ticketID string) ([]domain.ActivityEntry, error) {
	if _, _, _, err := s.readable(ctx, s.store.Repos(), user, ticketID); err != nil {
		return nil, err
	}
	return s.activity.ListActivity(ctx, ticketID)
}

// ListEscalations returns the escalation records of a ticket.
func (s *TicketService) ListEscalations(ctx context.Context, user domain.User, ticketID string) ([]domain.Escalation, error) {
	repos := s.store.Repos()
	if _, _, _, err := s.readable(ctx, repos, user, ticketID); err != nil {
		return nil, err
	}
	escalations, err := repos.Escalations.ListByTicket(ctx, ticketID)
	return escalations, persist("read escalations", err)
}

// readable loads the ticket if user may see it: managerial roles, assignees, and
// anyone who could currently edit it. ListTickets applies the same rule.
func (s *TicketService) readable(ctx context.Context, repos repository.Repositories, user domain.User, ticketID string) (*domain.Ticket, bool, bool, error) {
	if !s.permissions.For(user.Role).CanViewTickets {
		return nil, false, false, apperrors.NewForbidden(fmt.Sprintf("role %s cannot view tickets", user.Role))
	}
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, false, false, lookup("ticket", err)
	}
	assigned, err := s.assignments.IsAssigned(ctx, repos, ticket.ID, user.ID)
	if err != nil {
		return nil, false, false, err
	}
	canEdit := CanEdit(WorkflowFor(ticket.Type), ticket, user, assigned)
	if !user.Role.SeesAllTickets() && !assigned && !canEdit {
		return nil, false, false, apperrors.NewForbidden("you are not allowed to view this ticket")
	}
	return ticket, canEdit, assigned, nil
}

// Transition applies one workflow action. The edit gate and the per-action role
// check run first, then status legality, then input validation. A file upload
// happens before the unit of work; everything after it commits or rolls back as one.
func (s *TicketService) Transition(ctx context.Context, actor domain.User, ticketID string, input TransitionInput) (*TransitionResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "TicketService.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket.id", ticketID),
		attribute.String("ticket.action", string(input.Action)),
		attribute.String("actor.role", string(actor.Role)),
	)

	ticket, err := s.store.Repos().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookup("ticket", err)
	}
	span.SetAttributes(attribute.String("ticket.type", string(ticket.Type)))

	result, err := s.transition(ctx, actor, ticket, input)
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if s.metrics != nil {
		s.metrics.RecordTransition(string(ticket.Type), string(input.Action), outcome)
	}
	return result, err
}

func (s *TicketService) transition(ctx context.Context, actor domain.User, ticket *domain.Ticket, input TransitionInput) (*TransitionResult, error) {
	wf := WorkflowFor(ticket.Type)
	rule, ok := wf.Rules(ticket.Type)[input.Action]
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("action %q is not available for %s tickets", input.Action, ticket.Type),
			map[string]any{"field": "action"},
		)
	}

	assigned, err := s.assignments.IsAssigned(ctx, s.store.Repos(), ticket.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(wf, ticket, actor, assigned) {
		return nil, apperrors.NewForbidden("you are not allowed to edit this ticket")
	}
	if !rule.allowsActor(actor.Role, assigned) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("role %s cannot %s this ticket", actor.Role, input.Action))
	}
	if err := checkLegal(rule, ticket, input.Action); err != nil {
		return nil, err
	}
	if err := checkEvidence(rule, input); err != nil {
		return nil, err
	}
	if err := wf.Validate(s.newContext(repository.Repositories{}, ticket, actor, input, nil)); err != nil {
		return nil, err
	}

	upload := s.upload(ctx, ticket, input.File)
	if upload != nil && upload.err != nil && rule.Evidence == EvidenceFile {
		return nil, apperrors.NewStorageFailure(upload.err, map[string]any{"file": upload.name})
	}

	var tc *TransitionContext
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		// The row lock serialises concurrent actions on this ticket, so the
		// auto-transition checks see every committed comment.
		current, err := repos.Tickets.GetByIDForUpdate(ctx, ticket.ID)
		if err != nil {
			return lookup("ticket", err)
		}
		if err := checkLegal(rule, current, input.Action); err != nil {
			return err
		}
		tc = s.newContext(repos, current, actor, input, upload)
		from, fromLevel, version := current.Status, current.EscalationLevel, current.Version
		tc.result.PreviousStatus = from
		if err := wf.Apply(ctx, tc); err != nil {
			return err
		}
		if tc.Ticket.EscalationLevel < fromLevel {
			return apperrors.NewInternalError(errors.New("escalation level decreased"))
		}
		if tc.Ticket.Status == from && tc.Ticket.EscalationLevel == fromLevel {
			return nil
		}
		tc.Ticket.UpdatedAt = s.now()
		if tc.Ticket.Status != from {
			history := &domain.TicketHistory{
				TicketID:   tc.Ticket.ID,
				Action:     string(input.Action),
				FromStatus: from,
				ToStatus:   tc.Ticket.Status,
				ActorID:    actor.ID,
				Automatic:  tc.result.Automatic,
				Note:       tc.note,
				CreatedAt:  tc.Ticket.UpdatedAt,
			}
			if err := repos.History.Create(ctx, history); err != nil {
				return persist("ticket_history", err)
			}
			tc.result.History = history
		}
		if err := repos.Tickets.UpdateState(ctx, tc.Ticket, version); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return apperrors.NewStateConflict("ticket was modified concurrently; reload and retry", map[string]any{"ticket_id": ticket.ID})
			}
			return persist("tickets", err)
		}
		return nil
	})
	if err != nil {
		err = persist("commit", err)
		if upload != nil && upload.err == nil {
			s.logger.Warn("uploaded file orphaned by rolled back transition",
				zap.String("ticket_id", ticket.ID),
				zap.String("file_path", upload.path),
				zap.Error(err))
			err = apperrors.WithDetail(apperrors.WithDetail(err, "file_uploaded", true), "file_path", upload.path)
		}
		return nil, err
	}

	result := tc.result
	result.Ticket = tc.Ticket
	if tc.upload != nil && tc.upload.err != nil {
		result.Notices = append(result.Notices, "file upload failed; the comment was annotated")
	}
	s.publishTransition(ctx, actor, input, result)
	s.logger.Info("ticket transitioned", append(
		observability.TicketFields(result.Ticket.ID, result.Ticket.ShortCode, string(result.Ticket.Type)),
		zap.String("action", string(input.Action)),
		zap.String("from", string(result.PreviousStatus)),
		zap.String("to", string(result.Ticket.Status)),
		zap.Bool("automatic", result.Automatic),
		zap.String("actor_id", actor.ID))...)
	return result, nil
}

func checkLegal(rule Rule, ticket *domain.Ticket, action Action) error {
	if rule.allowsStatus(ticket.Status) {
		return nil
	}
	return apperrors.NewStateConflict(
		fmt.Sprintf("cannot %s a ticket in status %s", action, ticket.Status),
		map[string]any{"status": ticket.Status, "action": action},
	)
}

func (s *TicketService) newContext(repos repository.Repositories, ticket *domain.Ticket, actor domain.User, input TransitionInput, upload *uploadOutcome) *TransitionContext {
	working := *ticket
	return &TransitionContext{
		Repos:       repos,
		Ticket:      &working,
		Actor:       actor,
		Action:      input.Action,
		Input:       input,
		upload:      upload,
		result:      &TransitionResult{},
		assignments: s.assignments,
		activity:    s.activity,
		now:         s.now,
	}
}

// upload stores the attached file ahead of the unit of work.
func (s *TicketService) upload(ctx context.Context, ticket *domain.Ticket, file *FileUpload) *uploadOutcome {
	if file == nil {
		return nil
	}
	out := &uploadOutcome{name: file.Name, path: storage.AttachmentPath(ticket.ID, s.now(), file.Name)}
	if s.blobs == nil {
		out.err = errors.New("blob storage is not configured")
	} else {
		out.err = s.blobs.Upload(ctx, out.path, file.Content, file.ContentType)
	}
	if out.err != nil {
		s.logger.Warn("file upload failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("file_path", out.path),
			zap.Error(out.err))
	}
	return out
}

func (s *TicketService) publishTransition(ctx context.Context, actor domain.User, input TransitionInput, result *TransitionResult) {
	ticketID := result.Ticket.ID
	for _, c := range result.Comments {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketCommentAdded,
			TicketID: ticketID,
			Actor:    actorOf(actor),
			Payload: events.TicketCommentAddedPayload{
				CommentID:   c.ID,
				AuthorID:    c.UserID,
				IsInternal:  c.IsInternal,
				BodyPreview: stringPreview(c.Content, 120),
			},
		})
	}
	for _, f := range result.Files {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketFileAttached,
			TicketID: ticketID,
			Actor:    actorOf(actor),
			Payload:  events.TicketFileAttachedPayload{FileID: f.ID, FilePath: f.FilePath},
		})
	}
	if len(result.Assigned) > 0 {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticketID,
			Actor:    actorOf(actor),
			Payload:  events.TicketAssignedPayload{UserIDs: result.Assigned},
		})
	}
	if result.Escalation != nil || (result.Ticket.Status == domain.TicketStatusEscalated && result.StatusChanged()) {
		payload := events.TicketEscalatedPayload{Level: result.Ticket.EscalationLevel, Reason: strings.TrimSpace(input.EscalationReason)}
		if e := result.Escalation; e != nil {
			payload.EscalationID, payload.CAID, payload.Reason = e.ID, e.CAID, e.Reason
		}
		s.publish(ctx, events.Event{Type: events.EventTicketEscalated, TicketID: ticketID, Actor: actorOf(actor), Payload: payload})
	}
	if result.StatusChanged() {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticketID,
			Actor:    actorOf(actor),
			Payload: events.TicketStatusChangedPayload{
				Action:    string(input.Action),
				OldStatus: result.PreviousStatus,
				NewStatus: result.Ticket.Status,
				Automatic: result.Automatic,
			},
		})
	}
}
