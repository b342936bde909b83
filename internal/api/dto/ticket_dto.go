package dto

import (
	"encoding/json"
	"time"

	"github.com/placementops/ticketing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type        domain.TicketType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ClientID    *string           `json:"client_id"`
	Metadata    json.RawMessage   `json:"metadata"`
}

// TransitionRequest carries the non-file fields of an action. Multipart requests
// use the same field names as form values.
type TransitionRequest struct {
	Comment          string              `json:"comment" form:"comment"`
	IsInternal       bool                `json:"is_internal" form:"is_internal"`
	Escalate         bool                `json:"escalate" form:"escalate"`
	EscalationReason string              `json:"escalation_reason" form:"escalation_reason"`
	TargetStatus     domain.TicketStatus `json:"target_status" form:"target_status"`
	Resolution       string              `json:"resolution" form:"resolution"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	ShortCode       string                `json:"short_code"`
	Type            domain.TicketType     `json:"type"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	Title           string                `json:"title"`
	ClientID        *string               `json:"client_id"`
	CreatedBy       string                `json:"created_by"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	DueDate         time.Time             `json:"due_date"`
	SLAHours        int                   `json:"sla_hours"`
	EscalationLevel int                   `json:"escalation_level"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description     string                   `json:"description"`
	Metadata        domain.TicketMetadata    `json:"metadata"`
	VolumeShortfall *VolumeShortfallResponse `json:"volume_shortfall,omitempty"`
	Activity        []ActivityEntryResponse  `json:"activity"`
	Assignees       []string                 `json:"assignees"`
	Escalations     []EscalationResponse     `json:"escalations"`
	History         []HistoryResponse        `json:"history"`
	LegalActions    []string                 `json:"legal_actions"`
	CanEdit         bool                     `json:"can_edit"`
}

// VolumeShortfallResponse is the volume shortfall sub-record.
type VolumeShortfallResponse struct {
	ExpectedApplications  int        `json:"expected_applications"`
	ActualApplications    int        `json:"actual_applications"`
	TimePeriod            string     `json:"time_period"`
	Notes                 string     `json:"notes"`
	ForwardedToCAScraping bool       `json:"forwarded_to_ca_scraping"`
	ForwardedAt           *time.Time `json:"forwarded_at,omitempty"`
}

// ActivityEntryResponse is one comment or file in the activity log.
type ActivityEntryResponse struct {
	Kind               domain.ActivityKind `json:"kind"`
	ID                 string              `json:"id"`
	UserID             string              `json:"user_id"`
	At                 time.Time           `json:"at"`
	Content            string              `json:"content,omitempty"`
	IsInternal         bool                `json:"is_internal,omitempty"`
	TicketStatusAtTime domain.TicketStatus `json:"ticket_status_at_time,omitempty"`
	FilePath           string              `json:"file_path,omitempty"`
	FileURL            string              `json:"file_url,omitempty"`
}

// EscalationResponse describes one escalation record.
type EscalationResponse struct {
	ID          string    `json:"id"`
	EscalatedBy string    `json:"escalated_by"`
	CAID        string    `json:"ca_id"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse describes one status change.
type HistoryResponse struct {
	Action     string              `json:"action"`
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	ActorID    string              `json:"actor_id"`
	Automatic  bool                `json:"automatic"`
	Note       string              `json:"note,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// TransitionResponse reports the outcome of an action.
type TransitionResponse struct {
	Ticket           TicketSummary       `json:"ticket"`
	PreviousStatus   domain.TicketStatus `json:"previous_status"`
	Automatic        bool                `json:"automatic"`
	Assigned         []string            `json:"assigned"`
	CommentIDs       []string            `json:"comment_ids"`
	FileIDs          []string            `json:"file_ids"`
	Escalation       *EscalationResponse `json:"escalation,omitempty"`
	FileUploadFailed bool                `json:"file_upload_failed"`
	Notices          []string            `json:"notices,omitempty"`
}

// SLAConfigResponse is one row of the SLA table.
type SLAConfigResponse struct {
	TicketType domain.TicketType     `json:"ticket_type"`
	Priority   domain.TicketPriority `json:"priority"`
	Hours      int                   `json:"hours"`
}
