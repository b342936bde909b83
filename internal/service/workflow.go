package service

import (
	"context"
	"sort"
	"strings"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// Action is a user-requested operation on a ticket.
type Action string

const (
	ActionComment            Action = "comment"
	ActionForward            Action = "forward"
	ActionClose              Action = "close"
	ActionReply              Action = "reply"
	ActionResolve            Action = "resolve"
	ActionForwardResume      Action = "forward_resume"
	ActionForwardToTeams     Action = "forward_to_teams"
	ActionSendBack           Action = "send_back"
	ActionAcknowledge        Action = "acknowledge"
	ActionMarkResolved       Action = "mark_resolved"
	ActionSubmitRequiredFile Action = "submit_required_file"
	ActionUpdateStatus       Action = "update_status"
)

// UploadFailedMarker prefixes comments whose attached file could not be stored.
const UploadFailedMarker = "[FILE UPLOAD FAILED]"

// Evidence is what an action must carry.
type Evidence int

const (
	EvidenceNone Evidence = iota
	EvidenceCommentOrFile
	EvidenceComment
	// EvidenceFile actions exist to deliver the file; an upload failure aborts them.
	EvidenceFile
)

// Rule is one row of a workflow transition table.
type Rule struct {
	From []domain.TicketStatus
	// Actors restricts the action to these roles. Empty means anyone who may edit the ticket.
	Actors []domain.Role
	// AllowAssignee lets any assigned user act regardless of Actors.
	AllowAssignee bool
	Evidence      Evidence
}

func (r Rule) allowsStatus(status domain.TicketStatus) bool {
	for _, s := range r.From {
		if s == status {
			return true
		}
	}
	return false
}

func (r Rule) allowsActor(role domain.Role, assigned bool) bool {
	if len(r.Actors) == 0 || (r.AllowAssignee && assigned) {
		return true
	}
	for _, allowed := range r.Actors {
		if allowed == role {
			return true
		}
	}
	return false
}

// RuleSet is a workflow transition table keyed by action.
type RuleSet map[Action]Rule

var openStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusInProgress,
	domain.TicketStatusForwarded,
	domain.TicketStatusReplied,
	domain.TicketStatusEscalated,
}

// commentRule appends activity without changing status.
var commentRule = Rule{From: openStatuses, Evidence: EvidenceCommentOrFile}

// Workflow is the transition strategy of one family of ticket types.
type Workflow interface {
	Name() string
	Rules(ticketType domain.TicketType) RuleSet
	// IsPrimaryOwner reports whether role owns tickets like t without an assignment.
	IsPrimaryOwner(t *domain.Ticket, role domain.Role) bool
	// Validate checks action-specific input before anything is written.
	Validate(tc *TransitionContext) error
	// Apply performs the action's writes through tc. Status changes are staged on
	// tc and persisted by the engine after Apply returns.
	Apply(ctx context.Context, tc *TransitionContext) error
}

// WorkflowFor dispatches on the ticket type.
func WorkflowFor(ticketType domain.TicketType) Workflow {
	switch ticketType {
	case domain.TicketTypeVolumeShortfall:
		return volumeShortfallWorkflow{}
	case domain.TicketTypeResumeUpdate:
		return resumeUpdateWorkflow{}
	default:
		return genericWorkflow{}
	}
}

// CanEdit is the edit gate: executives, assignees and the type's primary owner pass.
func CanEdit(wf Workflow, t *domain.Ticket, user domain.User, assigned bool) bool {
	return user.Role.IsExecutive() || assigned || wf.IsPrimaryOwner(t, user.Role)
}

// LegalActions lists the actions user may take on t right now.
func LegalActions(wf Workflow, t *domain.Ticket, user domain.User, assigned bool) []Action {
	if !CanEdit(wf, t, user, assigned) {
		return nil
	}
	var actions []Action
	for action, rule := range wf.Rules(t.Type) {
		if rule.allowsStatus(t.Status) && rule.allowsActor(user.Role, assigned) {
			actions = append(actions, action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

func checkEvidence(rule Rule, in TransitionInput) error {
	hasComment := strings.TrimSpace(in.Comment) != ""
	switch rule.Evidence {
	case EvidenceCommentOrFile:
		if !hasComment && in.File == nil {
			return apperrors.NewFieldError("comment", "a comment or an attached file is required")
		}
	case EvidenceComment:
		if !hasComment {
			return apperrors.NewFieldError("comment", "a comment is required")
		}
	case EvidenceFile:
		if in.File == nil {
			return apperrors.NewFieldError("file", "a file is required")
		}
	}
	return nil
}

// FileUpload is a file submitted with an action.
type FileUpload struct {
	Name        string
	ContentType string
	Content     []byte
}

// TransitionInput is everything an actor may submit with an action.
type TransitionInput struct {
	Action           Action
	Comment          string
	IsInternal       bool
	File             *FileUpload
	Escalate         bool
	EscalationReason string
	TargetStatus     domain.TicketStatus
	Resolution       string
}

// TransitionResult reports what an applied action wrote.
type TransitionResult struct {
	Ticket           *domain.Ticket
	PreviousStatus   domain.TicketStatus
	Comments         []domain.Comment
	Files            []domain.FileAttachment
	Assigned         []string
	Escalation       *domain.Escalation
	History          *domain.TicketHistory
	Automatic        bool
	FileUploadFailed bool
	Notices          []string
}

// StatusChanged reports whether the action moved the ticket.
func (r *TransitionResult) StatusChanged() bool {
	return r.Ticket != nil && r.Ticket.Status != r.PreviousStatus
}

type uploadOutcome struct {
	name string
	path string
	err  error
}

// TransitionContext carries one action through a workflow inside a unit of work.
type TransitionContext struct {
	Repos  repository.Repositories
	Ticket *domain.Ticket
	Actor  domain.User
	Action Action
	Input  TransitionInput

	upload      *uploadOutcome
	result      *TransitionResult
	note        string
	client      *domain.Client
	assignments *AssignmentService
	activity    *ActivityService
	now         Clock
}

// Status is the ticket's status as staged so far.
func (tc *TransitionContext) Status() domain.TicketStatus {
	return tc.Ticket.Status
}

// MoveTo stages a status change requested by the actor.
func (tc *TransitionContext) MoveTo(status domain.TicketStatus) {
	tc.Ticket.Status = status
}

// MoveAutomatically stages a status change derived from the activity log.
func (tc *TransitionContext) MoveAutomatically(status domain.TicketStatus, note string) {
	tc.Ticket.Status = status
	tc.result.Automatic = true
	tc.note = note
}

// Notice records a non-fatal message for the actor.
func (tc *TransitionContext) Notice(msg string) {
	tc.result.Notices = append(tc.result.Notices, msg)
}

// RecordEvidence stores the uploaded file, if any, and a comment from the actor.
// A failed upload is never silent: the comment is prefixed with UploadFailedMarker
// even when the actor wrote no text.
func (tc *TransitionContext) RecordEvidence(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if up := tc.upload; up != nil {
		if up.err == nil {
			file, err := tc.activity.AppendFile(ctx, tc.Repos, tc.Ticket.ID, tc.Actor.ID, up.path)
			if err != nil {
				return err
			}
			tc.result.Files = append(tc.result.Files, *file)
		} else {
			content = strings.TrimSpace(UploadFailedMarker + " " + content)
			tc.result.FileUploadFailed = true
		}
	}
	if content == "" {
		return nil
	}
	return tc.AppendCommentAs(ctx, tc.Actor.ID, content, tc.Input.IsInternal, tc.Ticket.Status)
}

// AppendCommentAs writes a comment authored by userID.
func (tc *TransitionContext) AppendCommentAs(ctx context.Context, userID, content string, internal bool, status domain.TicketStatus) error {
	comment, err := tc.activity.AppendComment(ctx, tc.Repos, CommentInput{
		TicketID:     tc.Ticket.ID,
		UserID:       userID,
		Content:      content,
		IsInternal:   internal,
		StatusAtTime: status,
	})
	if err != nil {
		return err
	}
	tc.result.Comments = append(tc.result.Comments, *comment)
	return nil
}

// Assign fans the ticket out to candidates and returns the users newly added.
func (tc *TransitionContext) Assign(ctx context.Context, candidates ...string) ([]string, error) {
	added, err := tc.assignments.Assign(ctx, tc.Repos, tc.Ticket.ID, candidates, tc.Actor.ID)
	tc.result.Assigned = append(tc.result.Assigned, added...)
	return added, err
}

// Client reads the ticket's client bindings once per action.
func (tc *TransitionContext) Client(ctx context.Context) (*domain.Client, error) {
	if tc.client != nil {
		return tc.client, nil
	}
	client, err := tc.assignments.ClientBindings(ctx, tc.Repos, tc.Ticket.ClientID)
	if err != nil {
		return nil, err
	}
	tc.client = client
	return client, nil
}

// Escalate raises the escalation level by one.
func (tc *TransitionContext) Escalate() {
	tc.Ticket.EscalationLevel++
}

// RaiseEscalation records an escalation against caID and raises the level.
func (tc *TransitionContext) RaiseEscalation(ctx context.Context, caID, reason string) error {
	escalation := &domain.Escalation{
		TicketID:    tc.Ticket.ID,
		EscalatedBy: tc.Actor.ID,
		CAID:        caID,
		Reason:      reason,
		CreatedAt:   tc.now(),
	}
	if err := tc.Repos.Escalations.Create(ctx, escalation); err != nil {
		return persist("ticket_escalations", err)
	}
	tc.result.Escalation = escalation
	tc.Escalate()
	return nil
}

// AllResponded reports whether every required role has commented on the ticket.
func (tc *TransitionContext) AllResponded(ctx context.Context, required ...domain.Role) (bool, error) {
	comments, roleOf, err := tc.activity.RespondedRoles(ctx, tc.Repos, tc.Ticket.ID)
	if err != nil {
		return false, err
	}
	return AllRequiredRolesHaveResponded(comments, roleOf, required), nil
}

func noBindingsError(roles string) error {
	return apperrors.NewFieldError("client_id", "client has no "+roles+" bound")
}
