package events

import (
	"time"

	"github.com/placementops/ticketing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketFileAttached  EventType = "ticket_file_attached"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventClientOnboarded     EventType = "client_onboarded"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ShortCode string                `json:"short_code"`
	Type      domain.TicketType     `json:"type"`
	Priority  domain.TicketPriority `json:"priority"`
	ClientID  *string               `json:"client_id,omitempty"`
	DueDate   time.Time             `json:"due_date"`
	Title     string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Action    string              `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Automatic bool                `json:"automatic"`
}

// TicketAssignedPayload lists users newly added to the ticket.
type TicketAssignedPayload struct {
	UserIDs []string `json:"user_ids"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// TicketFileAttachedPayload payload.
type TicketFileAttachedPayload struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationID string `json:"escalation_id,omitempty"`
	CAID         string `json:"ca_id,omitempty"`
	Reason       string `json:"reason"`
	Level        int    `json:"level"`
}

// ClientOnboardedPayload payload.
type ClientOnboardedPayload struct {
	ClientID          string `json:"client_id"`
	PendingClientID   string `json:"pending_client_id"`
	AccountManagerID  string `json:"account_manager_id"`
	CATeamLeadID      string `json:"ca_team_lead_id"`
	CareerAssociateID string `json:"career_associate_id"`
	ScraperID         string `json:"scraper_id"`
}
