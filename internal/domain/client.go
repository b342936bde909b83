package domain

import "time"

// ClientProfile holds the intake fields shared by pending and onboarded clients.
type ClientProfile struct {
	FullName            string
	Email               string
	Phone               string
	JobRolePreferences  []string
	SalaryRange         string
	LocationPreferences []string
	WorkAuthDetails     string
}

// Client is an onboarded client together with its role bindings.
type Client struct {
	ID string
	ClientProfile
	AccountManagerID  *string
	CATeamLeadID      *string
	CareerAssociateID *string
	ScraperID         *string
	OnboardedBy       string
	CreatedAt         time.Time
}

// PendingClient is a prospective client awaiting role bindings.
type PendingClient struct {
	ID string
	ClientProfile
	SubmittedBy string
	CreatedAt   time.Time
}
