package rbac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
)

func TestDefaultTableCoversEveryRole(t *testing.T) {
	table := Default()
	for _, role := range domain.AllRoles {
		assert.True(t, table.For(role).CanViewTickets, "role %s", role)
	}
}

func TestCanCreate(t *testing.T) {
	table := Default()

	assert.True(t, table.CanCreate(domain.RoleCATeamLead, domain.TicketTypeVolumeShortfall))
	assert.True(t, table.CanCreate(domain.RoleAccountManager, domain.TicketTypeResumeUpdate))
	assert.False(t, table.CanCreate(domain.RoleSales, domain.TicketTypeVolumeShortfall))
	assert.False(t, table.CanCreate(domain.Role("intern"), domain.TicketTypeVolumeShortfall))

	assert.Len(t, table.CreatableTypes(domain.RoleCEO), len(domain.AllTicketTypes))
}

func TestParseRejectsUnknownEntries(t *testing.T) {
	_, err := Parse([]byte("roles:\n  janitor:\n    can_view_tickets: true\n"))
	assert.ErrorContains(t, err, "unknown role")

	_, err = Parse([]byte("roles:\n  sales:\n    can_create_tickets: [printer_jam]\n"))
	assert.ErrorContains(t, err, "unknown ticket type")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  sales:\n    can_create_tickets: [bulk_complaints]\n    can_onboard_clients: false\n"), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	assert.True(t, table.CanCreate(domain.RoleSales, domain.TicketTypeBulkComplaints))
	assert.False(t, table.CanOnboardClients(domain.RoleSales))
	assert.False(t, table.CanCreate(domain.RoleCEO, domain.TicketTypeBulkComplaints))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
