package domain

import "time"

// TicketType is the discriminant that selects a workflow and a metadata shape.
type TicketType string

const (
	TicketTypeVolumeShortfall         TicketType = "volume_shortfall"
	TicketTypeHighRejections          TicketType = "high_rejections"
	TicketTypeNoInterviews            TicketType = "no_interviews"
	TicketTypeProfileDataIssue        TicketType = "profile_data_issue"
	TicketTypeCredentialIssue         TicketType = "credential_issue"
	TicketTypeBulkComplaints          TicketType = "bulk_complaints"
	TicketTypeEarlyApplicationRequest TicketType = "early_application_request"
	TicketTypeResumeUpdate            TicketType = "resume_update"
	TicketTypeJobFeedEmpty            TicketType = "job_feed_empty"
	TicketTypeSystemTechnicalFailure  TicketType = "system_technical_failure"
	TicketTypeAMNotResponding         TicketType = "am_not_responding"
)

// AllTicketTypes lists every ticket type in display order.
var AllTicketTypes = []TicketType{
	TicketTypeVolumeShortfall,
	TicketTypeHighRejections,
	TicketTypeNoInterviews,
	TicketTypeProfileDataIssue,
	TicketTypeCredentialIssue,
	TicketTypeBulkComplaints,
	TicketTypeEarlyApplicationRequest,
	TicketTypeResumeUpdate,
	TicketTypeJobFeedEmpty,
	TicketTypeSystemTechnicalFailure,
	TicketTypeAMNotResponding,
}

// Valid reports whether t is one of the known ticket types.
func (t TicketType) Valid() bool {
	for _, known := range AllTicketTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusForwarded  TicketStatus = "forwarded"
	TicketStatusReplied    TicketStatus = "replied"
	TicketStatusEscalated  TicketStatus = "escalated"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// AllTicketStatuses lists every status in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusForwarded,
	TicketStatusReplied,
	TicketStatusEscalated,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusForwarded, TicketStatusReplied,
		TicketStatusEscalated, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether s ends the ordinary lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "critical"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityLow      TicketPriority = "low"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// Ticket is the aggregate for operational issues.
type Ticket struct {
	ID              string
	ShortCode       string
	Type            TicketType
	Priority        TicketPriority
	Status          TicketStatus
	Title           string
	Description     string
	Metadata        TicketMetadata
	ClientID        *string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DueDate         time.Time
	SLAHours        int
	EscalationLevel int
	// Version is bumped on every status write and guards against lost updates.
	Version int64
}

// VolumeShortfallRecord is the type-specific sub-record for volume_shortfall tickets.
type VolumeShortfallRecord struct {
	TicketID              string
	ExpectedApplications  int
	ActualApplications    int
	TimePeriod            string
	Notes                 string
	ForwardedToCAScraping bool
	ForwardedAt           *time.Time
}

// SLAConfig maps a ticket type to its contractual priority and response budget.
type SLAConfig struct {
	TicketType TicketType
	Priority   TicketPriority
	Hours      int
}

// Assignment records that a user is responsible for a ticket.
type Assignment struct {
	TicketID   string
	UserID     string
	AssignedBy string
	CreatedAt  time.Time
}

// Escalation is raised against a career associate when a lead rejects a reply.
type Escalation struct {
	ID          string
	TicketID    string
	EscalatedBy string
	CAID        string
	Reason      string
	CreatedAt   time.Time
}
