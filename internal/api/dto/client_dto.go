package dto

import (
	"time"

	"github.com/placementops/ticketing/internal/domain"
)

// ClientProfileRequest is the intake form of a prospective client.
type ClientProfileRequest struct {
	FullName            string   `json:"full_name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone"`
	JobRolePreferences  []string `json:"job_role_preferences"`
	SalaryRange         string   `json:"salary_range"`
	LocationPreferences []string `json:"location_preferences"`
	WorkAuthDetails     string   `json:"work_auth_details"`
}

// ToProfile converts the request into the domain profile.
func (r ClientProfileRequest) ToProfile() domain.ClientProfile {
	return domain.ClientProfile{
		FullName:            r.FullName,
		Email:               r.Email,
		Phone:               r.Phone,
		JobRolePreferences:  r.JobRolePreferences,
		SalaryRange:         r.SalaryRange,
		LocationPreferences: r.LocationPreferences,
		WorkAuthDetails:     r.WorkAuthDetails,
	}
}

// AssignRolesRequest binds the four responsible users.
type AssignRolesRequest struct {
	AccountManagerID  string `json:"account_manager_id"`
	CATeamLeadID      string `json:"ca_team_lead_id"`
	CareerAssociateID string `json:"career_associate_id"`
	ScraperID         string `json:"scraper_id"`
}

// ClientProfileResponse mirrors the intake fields.
type ClientProfileResponse struct {
	FullName            string   `json:"full_name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone"`
	JobRolePreferences  []string `json:"job_role_preferences"`
	SalaryRange         string   `json:"salary_range"`
	LocationPreferences []string `json:"location_preferences"`
	WorkAuthDetails     string   `json:"work_auth_details"`
}

// PendingClientResponse is a client awaiting role bindings.
type PendingClientResponse struct {
	ID string `json:"id"`
	ClientProfileResponse
	SubmittedBy string    `json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClientResponse is an onboarded client.
type ClientResponse struct {
	ID string `json:"id"`
	ClientProfileResponse
	AccountManagerID  *string   `json:"account_manager_id"`
	CATeamLeadID      *string   `json:"ca_team_lead_id"`
	CareerAssociateID *string   `json:"career_associate_id"`
	ScraperID         *string   `json:"scraper_id"`
	OnboardedBy       string    `json:"onboarded_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewProfileResponse converts a domain profile.
func NewProfileResponse(p domain.ClientProfile) ClientProfileResponse {
	return ClientProfileResponse{
		FullName:            p.FullName,
		Email:               p.Email,
		Phone:               p.Phone,
		JobRolePreferences:  p.JobRolePreferences,
		SalaryRange:         p.SalaryRange,
		LocationPreferences: p.LocationPreferences,
		WorkAuthDetails:     p.WorkAuthDetails,
	}
}
