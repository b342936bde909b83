package repository

import (
	"context"

	"github.com/placementops/ticketing/internal/domain"
)

// SLARepository reads the externally managed sla_config table.
type SLARepository interface {
	GetByType(ctx context.Context, ticketType domain.TicketType) (*domain.SLAConfig, error)
	List(ctx context.Context) ([]domain.SLAConfig, error)
}

type slaRepository struct {
	db DBTX
}

// NewSLARepository builds repository.
func NewSLARepository(db DBTX) SLARepository {
	return &slaRepository{db: db}
}

func (r *slaRepository) GetByType(ctx context.Context, ticketType domain.TicketType) (*domain.SLAConfig, error) {
	const query = `SELECT ticket_type, priority, hours FROM sla_config WHERE ticket_type=$1`
	var cfg domain.SLAConfig
	if err := r.db.QueryRow(ctx, query, ticketType).Scan(&cfg.TicketType, &cfg.Priority, &cfg.Hours); err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}

func (r *slaRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	rows, err := r.db.Query(ctx, `SELECT ticket_type, priority, hours FROM sla_config ORDER BY ticket_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAConfig
	for rows.Next() {
		var cfg domain.SLAConfig
		if err := rows.Scan(&cfg.TicketType, &cfg.Priority, &cfg.Hours); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}
