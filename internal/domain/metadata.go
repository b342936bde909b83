package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TicketMetadata is the type-specific payload carried by a ticket.
// The concrete variant always matches the ticket's TicketType.
type TicketMetadata interface {
	Validate() error
}

// MetadataError reports an invalid metadata field.
type MetadataError struct {
	Field  string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata.%s: %s", e.Field, e.Reason)
}

// VolumeShortfallMeta describes a shortfall in applications submitted for a client.
type VolumeShortfallMeta struct {
	ExpectedApplications int    `json:"expected_applications"`
	ActualApplications   int    `json:"actual_applications"`
	TimePeriod           string `json:"time_period"`
	Notes                string `json:"notes,omitempty"`
}

func (m *VolumeShortfallMeta) Validate() error {
	if m.ExpectedApplications <= 0 {
		return &MetadataError{Field: "expected_applications", Reason: "must be positive"}
	}
	if m.ActualApplications < 0 {
		return &MetadataError{Field: "actual_applications", Reason: "must not be negative"}
	}
	if strings.TrimSpace(m.TimePeriod) == "" {
		return &MetadataError{Field: "time_period", Reason: "is required"}
	}
	return nil
}

// CredentialIssueType enumerates why a job-portal credential stopped working.
type CredentialIssueType string

const (
	CredentialPasswordChanged   CredentialIssueType = "password_changed"
	CredentialAccountLocked     CredentialIssueType = "account_locked"
	CredentialTwoFactorEnabled  CredentialIssueType = "2fa_enabled"
	CredentialEmailAccessDenied CredentialIssueType = "email_access_denied"
)

// CredentialIssueMeta describes a broken credential.
type CredentialIssueMeta struct {
	IssueType  CredentialIssueType `json:"issue_type"`
	LastAccess *string             `json:"last_access,omitempty"`
}

func (m *CredentialIssueMeta) Validate() error {
	switch m.IssueType {
	case CredentialPasswordChanged, CredentialAccountLocked, CredentialTwoFactorEnabled, CredentialEmailAccessDenied:
		return nil
	case "":
		return &MetadataError{Field: "issue_type", Reason: "is required"}
	}
	return &MetadataError{Field: "issue_type", Reason: fmt.Sprintf("unknown value %q", m.IssueType)}
}

// ProfileField enumerates client profile fields that can be reported wrong.
type ProfileField string

const (
	ProfileFieldJobRole         ProfileField = "job_role"
	ProfileFieldSalaryRange     ProfileField = "salary_range"
	ProfileFieldLocation        ProfileField = "location"
	ProfileFieldExperienceLevel ProfileField = "experience_level"
)

// ProfileDataIssueMeta describes an incorrect field on a client profile.
type ProfileDataIssueMeta struct {
	IncorrectField ProfileField `json:"incorrect_field"`
	CurrentValue   string       `json:"current_value"`
	CorrectValue   string       `json:"correct_value"`
}

func (m *ProfileDataIssueMeta) Validate() error {
	switch m.IncorrectField {
	case ProfileFieldJobRole, ProfileFieldSalaryRange, ProfileFieldLocation, ProfileFieldExperienceLevel:
	case "":
		return &MetadataError{Field: "incorrect_field", Reason: "is required"}
	default:
		return &MetadataError{Field: "incorrect_field", Reason: fmt.Sprintf("unknown value %q", m.IncorrectField)}
	}
	if strings.TrimSpace(m.CorrectValue) == "" {
		return &MetadataError{Field: "correct_value", Reason: "is required"}
	}
	return nil
}

// JobFeedEmptyMeta describes a scraping feed that stopped producing jobs.
type JobFeedEmptyMeta struct {
	JobCategories []string `json:"job_categories,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	LastJobFound  *string  `json:"last_job_found,omitempty"`
}

func (m *JobFeedEmptyMeta) Validate() error { return nil }

// AMNotRespondingMeta describes a client reporting an unresponsive account manager.
type AMNotRespondingMeta struct {
	OnboardingDate      *string `json:"onboarding_date,omitempty"`
	AssignedAM          string  `json:"assigned_am"`
	DaysSinceOnboarding int     `json:"days_since_onboarding"`
}

func (m *AMNotRespondingMeta) Validate() error {
	if strings.TrimSpace(m.AssignedAM) == "" {
		return &MetadataError{Field: "assigned_am", Reason: "is required"}
	}
	if m.DaysSinceOnboarding < 0 {
		return &MetadataError{Field: "days_since_onboarding", Reason: "must not be negative"}
	}
	return nil
}

// GenericMeta carries free-form notes for types without a dedicated shape.
type GenericMeta struct {
	Notes string `json:"notes,omitempty"`
}

func (m *GenericMeta) Validate() error { return nil }

func newMetadata(t TicketType) TicketMetadata {
	switch t {
	case TicketTypeVolumeShortfall:
		return &VolumeShortfallMeta{}
	case TicketTypeCredentialIssue:
		return &CredentialIssueMeta{}
	case TicketTypeProfileDataIssue:
		return &ProfileDataIssueMeta{}
	case TicketTypeJobFeedEmpty:
		return &JobFeedEmptyMeta{}
	case TicketTypeAMNotResponding:
		return &AMNotRespondingMeta{}
	default:
		return &GenericMeta{}
	}
}

// DecodeMetadata parses raw into the variant selected by t and validates it.
// Fields that belong to another variant are rejected.
func DecodeMetadata(t TicketType, raw []byte) (TicketMetadata, error) {
	if !t.Valid() {
		return nil, &MetadataError{Field: "type", Reason: fmt.Sprintf("unknown ticket type %q", t)}
	}
	meta := newMetadata(t)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(meta); err != nil {
			return nil, &MetadataError{Field: string(t), Reason: err.Error()}
		}
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// DecodeStoredMetadata parses metadata read back from storage without re-validating it.
func DecodeStoredMetadata(t TicketType, raw []byte) (TicketMetadata, error) {
	meta := newMetadata(t)
	if len(bytes.TrimSpace(raw)) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// EncodeMetadata serializes meta for storage. A nil meta encodes as an empty object.
func EncodeMetadata(meta TicketMetadata) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}
