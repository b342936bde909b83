package repository

import (
	"context"

	"github.com/placementops/ticketing/internal/domain"
)

// PendingClientRepository manages the onboarding staging table.
type PendingClientRepository interface {
	Create(ctx context.Context, pending *domain.PendingClient) error
	GetByID(ctx context.Context, id string) (*domain.PendingClient, error)
	List(ctx context.Context) ([]domain.PendingClient, error)
	Delete(ctx context.Context, id string) error
}

type pendingClientRepository struct {
	db DBTX
}

// NewPendingClientRepository builds repository.
func NewPendingClientRepository(db DBTX) PendingClientRepository {
	return &pendingClientRepository{db: db}
}

const pendingClientColumns = `id, full_name, email, phone, job_role_preferences, salary_range,
        location_preferences, work_auth_details, submitted_by, created_at`

func (r *pendingClientRepository) Create(ctx context.Context, pending *domain.PendingClient) error {
	const query = `
        INSERT INTO pending_clients (full_name, email, phone, job_role_preferences, salary_range,
            location_preferences, work_auth_details, submitted_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		pending.FullName,
		pending.Email,
		pending.Phone,
		pending.JobRolePreferences,
		pending.SalaryRange,
		pending.LocationPreferences,
		pending.WorkAuthDetails,
		pending.SubmittedBy,
		pending.CreatedAt,
	).Scan(&pending.ID)
}

func (r *pendingClientRepository) GetByID(ctx context.Context, id string) (*domain.PendingClient, error) {
	query := `SELECT ` + pendingClientColumns + ` FROM pending_clients WHERE id=$1`
	var pending domain.PendingClient
	if err := scanPendingClient(r.db.QueryRow(ctx, query, id), &pending); err != nil {
		return nil, notFound(err)
	}
	return &pending, nil
}

func (r *pendingClientRepository) List(ctx context.Context) ([]domain.PendingClient, error) {
	query := `SELECT ` + pendingClientColumns + ` FROM pending_clients ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PendingClient
	for rows.Next() {
		var pending domain.PendingClient
		if err := scanPendingClient(rows, &pending); err != nil {
			return nil, err
		}
		result = append(result, pending)
	}
	return result, rows.Err()
}

func (r *pendingClientRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM pending_clients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingClient(row rowScanner, pending *domain.PendingClient) error {
	return row.Scan(
		&pending.ID,
		&pending.FullName,
		&pending.Email,
		&pending.Phone,
		&pending.JobRolePreferences,
		&pending.SalaryRange,
		&pending.LocationPreferences,
		&pending.WorkAuthDetails,
		&pending.SubmittedBy,
		&pending.CreatedAt,
	)
}
