package domain

import "time"

// Role is an operator or client role as issued by the identity provider.
type Role string

const (
	RoleClient               Role = "client"
	RoleSales                Role = "sales"
	RoleAccountManager       Role = "account_manager"
	RoleCareerAssociate      Role = "career_associate"
	RoleCATeamLead           Role = "ca_team_lead"
	RoleCAManager            Role = "ca_manager"
	RoleResumeTeam           Role = "resume_team"
	RoleResumeTeamLead       Role = "resume_team_lead"
	RoleScrapingTeam         Role = "scraping_team"
	RoleCredentialResolution Role = "credential_resolution"
	RoleCRO                  Role = "cro"
	RoleCROManager           Role = "cro_manager"
	RoleCOO                  Role = "coo"
	RoleCEO                  Role = "ceo"
	RoleSystemAdmin          Role = "system_admin"
)

// AllRoles lists every known role.
var AllRoles = []Role{
	RoleClient, RoleSales, RoleAccountManager, RoleCareerAssociate, RoleCATeamLead,
	RoleCAManager, RoleResumeTeam, RoleResumeTeamLead, RoleScrapingTeam,
	RoleCredentialResolution, RoleCRO, RoleCROManager, RoleCOO, RoleCEO, RoleSystemAdmin,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsExecutive reports whether r may edit any ticket.
func (r Role) IsExecutive() bool {
	return r == RoleCRO || r == RoleCOO || r == RoleCEO
}

// SeesAllTickets reports whether r bypasses assignment-based visibility.
func (r Role) SeesAllTickets() bool {
	return r.IsExecutive() || r == RoleAccountManager
}

// User is an authenticated operator.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	Department string
	IsActive   bool
	CreatedAt  time.Time
}
