package memstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
)

// Seed is fixture data for a store started without Postgres.
type Seed struct {
	Users   []SeedUser   `yaml:"users"`
	Clients []SeedClient `yaml:"clients"`
	SLA     []SeedSLA    `yaml:"sla"`
}

// SeedUser is one user fixture.
type SeedUser struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Email      string      `yaml:"email"`
	Role       domain.Role `yaml:"role"`
	Department string      `yaml:"department"`
	Inactive   bool        `yaml:"inactive"`
}

// SeedClient is one onboarded client fixture.
type SeedClient struct {
	ID                string  `yaml:"id"`
	FullName          string  `yaml:"full_name"`
	Email             string  `yaml:"email"`
	AccountManagerID  *string `yaml:"account_manager_id"`
	CATeamLeadID      *string `yaml:"ca_team_lead_id"`
	CareerAssociateID *string `yaml:"career_associate_id"`
	ScraperID         *string `yaml:"scraper_id"`
}

// SeedSLA overrides one default SLA row.
type SeedSLA struct {
	TicketType domain.TicketType     `yaml:"ticket_type"`
	Priority   domain.TicketPriority `yaml:"priority"`
	Hours      int                   `yaml:"hours"`
}

// DefaultSLA mirrors the rows installed by migrations/0002_sla_defaults.sql.
func DefaultSLA() []domain.SLAConfig {
	return []domain.SLAConfig{
		{TicketType: domain.TicketTypeVolumeShortfall, Priority: domain.TicketPriorityHigh, Hours: 24},
		{TicketType: domain.TicketTypeHighRejections, Priority: domain.TicketPriorityMedium, Hours: 48},
		{TicketType: domain.TicketTypeNoInterviews, Priority: domain.TicketPriorityMedium, Hours: 72},
		{TicketType: domain.TicketTypeProfileDataIssue, Priority: domain.TicketPriorityMedium, Hours: 48},
		{TicketType: domain.TicketTypeCredentialIssue, Priority: domain.TicketPriorityCritical, Hours: 4},
		{TicketType: domain.TicketTypeBulkComplaints, Priority: domain.TicketPriorityHigh, Hours: 24},
		{TicketType: domain.TicketTypeEarlyApplicationRequest, Priority: domain.TicketPriorityLow, Hours: 72},
		{TicketType: domain.TicketTypeResumeUpdate, Priority: domain.TicketPriorityMedium, Hours: 48},
		{TicketType: domain.TicketTypeJobFeedEmpty, Priority: domain.TicketPriorityHigh, Hours: 12},
		{TicketType: domain.TicketTypeSystemTechnicalFailure, Priority: domain.TicketPriorityCritical, Hours: 4},
		{TicketType: domain.TicketTypeAMNotResponding, Priority: domain.TicketPriorityHigh, Hours: 24},
	}
}

// LoadSeed reads a YAML fixture file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// Apply installs the default SLA rows and then the seed's fixtures.
func (s *Store) Apply(ctx context.Context, seed *Seed, now time.Time) error {
	for _, cfg := range DefaultSLA() {
		s.PutSLA(cfg)
	}
	if seed == nil {
		return nil
	}
	for _, row := range seed.SLA {
		if !row.TicketType.Valid() || !row.Priority.Valid() || row.Hours <= 0 {
			return fmt.Errorf("seed sla row for %q is invalid", row.TicketType)
		}
		s.PutSLA(domain.SLAConfig{TicketType: row.TicketType, Priority: row.Priority, Hours: row.Hours})
	}
	return s.WithinTx(ctx, func(repos repository.Repositories) error {
		for _, u := range seed.Users {
			if !u.Role.Valid() {
				return fmt.Errorf("seed user %q has unknown role %q", u.ID, u.Role)
			}
			user := &domain.User{
				ID:         u.ID,
				Name:       u.Name,
				Email:      u.Email,
				Role:       u.Role,
				Department: u.Department,
				IsActive:   !u.Inactive,
				CreatedAt:  now,
			}
			if err := repos.Users.Create(ctx, user); err != nil {
				return fmt.Errorf("seed user %q: %w", u.ID, err)
			}
		}
		for _, c := range seed.Clients {
			client := &domain.Client{
				ID:                c.ID,
				ClientProfile:     domain.ClientProfile{FullName: c.FullName, Email: c.Email},
				AccountManagerID:  c.AccountManagerID,
				CATeamLeadID:      c.CATeamLeadID,
				CareerAssociateID: c.CareerAssociateID,
				ScraperID:         c.ScraperID,
				CreatedAt:         now,
			}
			if err := repos.Clients.Create(ctx, client); err != nil {
				return fmt.Errorf("seed client %q: %w", c.ID, err)
			}
		}
		return nil
	})
}
