// Package rbac holds the data-driven role permission table.
package rbac

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/placementops/ticketing/internal/domain"
)

//go:embed default_permissions.yaml
var defaultPermissions []byte

const allTypes = "*"

// Permissions is what a role may reach.
type Permissions struct {
	CanCreateTickets   []string `yaml:"can_create_tickets"`
	CanViewTickets     bool     `yaml:"can_view_tickets"`
	CanEditTickets     bool     `yaml:"can_edit_tickets"`
	CanResolveTickets  bool     `yaml:"can_resolve_tickets"`
	CanEscalateTickets bool     `yaml:"can_escalate_tickets"`
	CanViewClients     bool     `yaml:"can_view_clients"`
	CanManageUsers     bool     `yaml:"can_manage_users"`
	CanViewReports     bool     `yaml:"can_view_reports"`
	CanOnboardClients  bool     `yaml:"can_onboard_clients"`
}

type file struct {
	Roles map[domain.Role]Permissions `yaml:"roles"`
}

// Table maps roles to permissions. Unknown roles have no permissions.
type Table struct {
	roles map[domain.Role]Permissions
}

// Default returns the table compiled into the binary.
func Default() *Table {
	table, err := Parse(defaultPermissions)
	if err != nil {
		panic(fmt.Sprintf("rbac: embedded permission table is invalid: %v", err))
	}
	return table
}

// Load reads a permission table from path, or returns Default when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML permission table and rejects unknown roles and ticket types.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse permission table: %w", err)
	}
	for role, perms := range f.Roles {
		if !role.Valid() {
			return nil, fmt.Errorf("permission table: unknown role %q", role)
		}
		for _, t := range perms.CanCreateTickets {
			if t != allTypes && !domain.TicketType(t).Valid() {
				return nil, fmt.Errorf("permission table: role %q lists unknown ticket type %q", role, t)
			}
		}
	}
	return &Table{roles: f.Roles}, nil
}

// For returns the permissions of role.
func (t *Table) For(role domain.Role) Permissions {
	return t.roles[role]
}

// CanCreate reports whether role may open tickets of type tt.
func (t *Table) CanCreate(role domain.Role, tt domain.TicketType) bool {
	for _, allowed := range t.roles[role].CanCreateTickets {
		if allowed == allTypes || domain.TicketType(allowed) == tt {
			return true
		}
	}
	return false
}

// CreatableTypes lists the ticket types role may open.
func (t *Table) CreatableTypes(role domain.Role) []domain.TicketType {
	var out []domain.TicketType
	for _, tt := range domain.AllTicketTypes {
		if t.CanCreate(role, tt) {
			out = append(out, tt)
		}
	}
	return out
}

// CanOnboardClients reports whether role may promote pending clients.
func (t *Table) CanOnboardClients(role domain.Role) bool {
	return t.roles[role].CanOnboardClients
}
