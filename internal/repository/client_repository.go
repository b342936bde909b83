package repository

import (
	"context"

	"github.com/placementops/ticketing/internal/domain"
)

// ClientRepository reads and creates onboarded clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

type clientRepository struct {
	db DBTX
}

// NewClientRepository builds repository.
func NewClientRepository(db DBTX) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (full_name, email, phone, job_role_preferences, salary_range, location_preferences,
            work_auth_details, account_manager_id, ca_team_lead_id, career_associate_id, scraper_id, onboarded_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		client.FullName,
		client.Email,
		client.Phone,
		client.JobRolePreferences,
		client.SalaryRange,
		client.LocationPreferences,
		client.WorkAuthDetails,
		client.AccountManagerID,
		client.CATeamLeadID,
		client.CareerAssociateID,
		client.ScraperID,
		client.OnboardedBy,
		client.CreatedAt,
	).Scan(&client.ID)
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	const query = `
        SELECT id, full_name, email, phone, job_role_preferences, salary_range, location_preferences,
               work_auth_details, account_manager_id, ca_team_lead_id, career_associate_id, scraper_id,
               onboarded_by, created_at
        FROM clients WHERE id=$1`
	var client domain.Client
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.FullName,
		&client.Email,
		&client.Phone,
		&client.JobRolePreferences,
		&client.SalaryRange,
		&client.LocationPreferences,
		&client.WorkAuthDetails,
		&client.AccountManagerID,
		&client.CATeamLeadID,
		&client.CareerAssociateID,
		&client.ScraperID,
		&client.OnboardedBy,
		&client.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}
