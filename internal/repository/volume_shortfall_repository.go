package repository

import (
	"context"
	"time"

	"github.com/placementops/ticketing/internal/domain"
)

// VolumeShortfallRepository stores the volume_shortfall_tickets sub-records.
type VolumeShortfallRepository interface {
	Create(ctx context.Context, record *domain.VolumeShortfallRecord) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.VolumeShortfallRecord, error)
	MarkForwarded(ctx context.Context, ticketID string, at time.Time) error
}

type volumeShortfallRepository struct {
	db DBTX
}

// NewVolumeShortfallRepository builds repository.
func NewVolumeShortfallRepository(db DBTX) VolumeShortfallRepository {
	return &volumeShortfallRepository{db: db}
}

func (r *volumeShortfallRepository) Create(ctx context.Context, record *domain.VolumeShortfallRecord) error {
	const query = `
        INSERT INTO volume_shortfall_tickets (ticket_id, expected_applications, actual_applications, time_period, notes, forwarded_to_ca_scraping)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.Exec(ctx, query,
		record.TicketID,
		record.ExpectedApplications,
		record.ActualApplications,
		record.TimePeriod,
		record.Notes,
		record.ForwardedToCAScraping,
	)
	return err
}

func (r *volumeShortfallRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.VolumeShortfallRecord, error) {
	const query = `
        SELECT ticket_id, expected_applications, actual_applications, time_period, notes, forwarded_to_ca_scraping, forwarded_at
        FROM volume_shortfall_tickets WHERE ticket_id=$1`
	var record domain.VolumeShortfallRecord
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&record.TicketID,
		&record.ExpectedApplications,
		&record.ActualApplications,
		&record.TimePeriod,
		&record.Notes,
		&record.ForwardedToCAScraping,
		&record.ForwardedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

func (r *volumeShortfallRepository) MarkForwarded(ctx context.Context, ticketID string, at time.Time) error {
	const query = `
        UPDATE volume_shortfall_tickets SET forwarded_to_ca_scraping=TRUE, forwarded_at=$1
        WHERE ticket_id=$2`
	cmd, err := r.db.Exec(ctx, query, at, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
