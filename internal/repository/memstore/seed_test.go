package memstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
)

const seedYAML = `
users:
  - id: u-am
    name: Avery
    email: am@example.com
    role: account_manager
  - id: u-old
    name: Old
    role: career_associate
    inactive: true
clients:
  - id: c-1
    full_name: Jane Client
    account_manager_id: u-am
sla:
  - ticket_type: no_interviews
    priority: critical
    hours: 6
`

func TestLoadAndApplySeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	seed, err := LoadSeed(path)
	require.NoError(t, err)

	ctx := context.Background()
	s := New()
	require.NoError(t, s.Apply(ctx, seed, time.Now()))

	rows, err := s.Repos().SLA.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, len(domain.AllTicketTypes))
	cfg, err := s.Repos().SLA.GetByType(ctx, domain.TicketTypeNoInterviews)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, cfg.Priority)
	assert.Equal(t, 6, cfg.Hours)

	old, err := s.Repos().Users.GetByID(ctx, "u-old")
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	client, err := s.Repos().Clients.GetByID(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, client.AccountManagerID)
	assert.Equal(t, "u-am", *client.AccountManagerID)
	assert.Nil(t, client.ScraperID)
}

func TestApplyRejectsBadSeed(t *testing.T) {
	s := New()
	err := s.Apply(context.Background(), &Seed{Users: []SeedUser{{ID: "u-x", Role: "janitor"}}}, time.Now())
	assert.Error(t, err)

	err = s.Apply(context.Background(), &Seed{SLA: []SeedSLA{{TicketType: domain.TicketTypeNoInterviews, Priority: domain.TicketPriorityLow}}}, time.Now())
	assert.Error(t, err)
}

func TestSeedExampleFileLoads(t *testing.T) {
	seed, err := LoadSeed(filepath.Join("..", "..", "..", "seed.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, New().Apply(context.Background(), seed, time.Now()))
	assert.NotEmpty(t, seed.Users)
}
