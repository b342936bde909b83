package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository/memstore"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

type mapSLACache struct {
	rows   map[domain.TicketType]domain.SLAConfig
	getErr error
	sets   int
}

func (c *mapSLACache) Get(_ context.Context, t domain.TicketType) (*domain.SLAConfig, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	row, ok := c.rows[t]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (c *mapSLACache) Set(_ context.Context, cfg domain.SLAConfig) error {
	c.sets++
	c.rows[cfg.TicketType] = cfg
	return nil
}

func TestComputeDueDate(t *testing.T) {
	created := time.Date(2026, 3, 7, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 8, 2, 30, 0, 0, time.UTC), ComputeDueDate(created, 4))
	assert.Equal(t, time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC), ComputeDueDate(created, 72))
}

func TestResolveReadsThroughCache(t *testing.T) {
	store := memstore.New()
	store.PutSLA(domain.SLAConfig{TicketType: domain.TicketTypeCredentialIssue, Priority: domain.TicketPriorityCritical, Hours: 4})
	cache := &mapSLACache{rows: map[domain.TicketType]domain.SLAConfig{}}
	svc := NewSLAService(SLADependencies{Store: store, Cache: cache})

	cfg, err := svc.Resolve(context.Background(), domain.TicketTypeCredentialIssue)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Hours)
	assert.Equal(t, 1, cache.sets)

	store.FailOn("sla.get", errors.New("database down"))
	cfg, err = svc.Resolve(context.Background(), domain.TicketTypeCredentialIssue)
	require.NoError(t, err, "served from cache")
	assert.Equal(t, domain.TicketPriorityCritical, cfg.Priority)
}

func TestResolveFallsBackWhenCacheFails(t *testing.T) {
	store := memstore.New()
	store.PutSLA(domain.SLAConfig{TicketType: domain.TicketTypeNoInterviews, Priority: domain.TicketPriorityMedium, Hours: 72})
	svc := NewSLAService(SLADependencies{Store: store, Cache: &mapSLACache{getErr: errors.New("redis down"), rows: map[domain.TicketType]domain.SLAConfig{}}})

	cfg, err := svc.Resolve(context.Background(), domain.TicketTypeNoInterviews)
	require.NoError(t, err)
	assert.Equal(t, 72, cfg.Hours)
}

func TestResolveIgnoresInvalidCachedRows(t *testing.T) {
	store := memstore.New()
	store.PutSLA(domain.SLAConfig{TicketType: domain.TicketTypeHighRejections, Priority: domain.TicketPriorityMedium, Hours: 48})
	cache := &mapSLACache{rows: map[domain.TicketType]domain.SLAConfig{
		domain.TicketTypeHighRejections: {TicketType: domain.TicketTypeHighRejections, Priority: "urgent", Hours: 0},
	}}
	svc := NewSLAService(SLADependencies{Store: store, Cache: cache})

	cfg, err := svc.Resolve(context.Background(), domain.TicketTypeHighRejections)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, cfg.Priority)
	assert.Equal(t, 48, cfg.Hours)
	assert.Equal(t, 1, cache.sets, "the bad row is overwritten from postgres")

	cache.rows[domain.TicketTypeHighRejections] = domain.SLAConfig{TicketType: domain.TicketTypeNoInterviews, Priority: domain.TicketPriorityLow, Hours: 72}
	cfg, err = svc.Resolve(context.Background(), domain.TicketTypeHighRejections)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Hours, "a row cached under the wrong key is not trusted")
}

func TestResolveMissingOrInvalidRow(t *testing.T) {
	store := memstore.New()
	store.PutSLA(domain.SLAConfig{TicketType: domain.TicketTypeBulkComplaints, Priority: "urgent", Hours: 24})
	svc := NewSLAService(SLADependencies{Store: store})

	_, err := svc.Resolve(context.Background(), domain.TicketTypeVolumeShortfall)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigurationMissing))

	_, err = svc.Resolve(context.Background(), domain.TicketTypeBulkComplaints)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigurationMissing))
}

func TestMissingTypes(t *testing.T) {
	store := memstore.New()
	for _, cfg := range memstore.DefaultSLA() {
		if cfg.TicketType != domain.TicketTypeAMNotResponding {
			store.PutSLA(cfg)
		}
	}
	svc := NewSLAService(SLADependencies{Store: store})

	missing, err := svc.MissingTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.TicketType{domain.TicketTypeAMNotResponding}, missing)
}
