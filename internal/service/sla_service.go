package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// SLACache caches sla_config rows. A miss is (nil, nil).
type SLACache interface {
	Get(ctx context.Context, ticketType domain.TicketType) (*domain.SLAConfig, error)
	Set(ctx context.Context, cfg domain.SLAConfig) error
}

// SLAService resolves the contractual priority and response budget per ticket type.
type SLAService struct {
	store  repository.Store
	cache  SLACache
	logger *zap.Logger
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	Store  repository.Store
	Cache  SLACache
	Logger *zap.Logger
}

// NewSLAService constructs the service. Cache is optional.
func NewSLAService(deps SLADependencies) *SLAService {
	return &SLAService{store: deps.Store, cache: deps.Cache, logger: orNop(deps.Logger)}
}

// Resolve returns the SLA row for ticketType. A missing row is ConfigurationMissing;
// there is no default.
func (s *SLAService) Resolve(ctx context.Context, ticketType domain.TicketType) (*domain.SLAConfig, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ticketType)
		if err != nil {
			s.logger.Warn("sla cache read failed", zap.String("ticket_type", string(ticketType)), zap.Error(err))
		} else if cached != nil {
			if cached.TicketType == ticketType && usableSLA(cached) {
				return cached, nil
			}
			s.logger.Warn("ignoring invalid cached sla row",
				zap.String("ticket_type", string(ticketType)),
				zap.String("priority", string(cached.Priority)),
				zap.Int("hours", cached.Hours))
		}
	}

	cfg, err := s.store.Repos().SLA.GetByType(ctx, ticketType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewConfigurationMissing(
				fmt.Sprintf("no SLA configuration for ticket type %s", ticketType),
				map[string]any{"ticket_type": ticketType})
		}
		return nil, persist("read sla_config", err)
	}
	if !usableSLA(cfg) {
		return nil, apperrors.NewConfigurationMissing(
			fmt.Sprintf("SLA configuration for ticket type %s is invalid", ticketType),
			map[string]any{"ticket_type": ticketType, "priority": cfg.Priority, "hours": cfg.Hours})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, *cfg); err != nil {
			s.logger.Warn("sla cache write failed", zap.String("ticket_type", string(ticketType)), zap.Error(err))
		}
	}
	return cfg, nil
}

// List returns every configured SLA row.
func (s *SLAService) List(ctx context.Context) ([]domain.SLAConfig, error) {
	rows, err := s.store.Repos().SLA.List(ctx)
	if err != nil {
		return nil, persist("read sla_config", err)
	}
	return rows, nil
}

// MissingTypes lists ticket types without an SLA row. Tickets of those types cannot be created.
func (s *SLAService) MissingTypes(ctx context.Context) ([]domain.TicketType, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	configured := make(map[domain.TicketType]bool, len(rows))
	for _, row := range rows {
		configured[row.TicketType] = true
	}
	var missing []domain.TicketType
	for _, t := range domain.AllTicketTypes {
		if !configured[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// usableSLA rejects rows that cannot price a ticket.
func usableSLA(cfg *domain.SLAConfig) bool {
	return cfg.Priority.Valid() && cfg.Hours > 0
}

// ComputeDueDate is createdAt plus hours of wall-clock time.
func ComputeDueDate(createdAt time.Time, hours int) time.Time {
	return createdAt.Add(time.Duration(hours) * time.Hour)
}
