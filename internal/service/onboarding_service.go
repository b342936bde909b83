package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/events"
	"github.com/placementops/ticketing/internal/rbac"
	"github.com/placementops/ticketing/internal/repository"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// OnboardingService turns pending clients into clients with role bindings.
type OnboardingService struct {
	store       repository.Store
	permissions *rbac.Table
	publisher
	logger *zap.Logger
	now    Clock
}

// OnboardingDependencies bundles collaborators for onboarding.
type OnboardingDependencies struct {
	Store       repository.Store
	Permissions *rbac.Table
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// NewOnboardingService constructs the service.
func NewOnboardingService(deps OnboardingDependencies) *OnboardingService {
	logger := orNop(deps.Logger)
	now := orClock(deps.Clock)
	permissions := deps.Permissions
	if permissions == nil {
		permissions = rbac.Default()
	}
	return &OnboardingService{
		store:       deps.Store,
		permissions: permissions,
		publisher:   publisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		logger:      logger,
		now:         now,
	}
}

// RoleBindings names the four users responsible for a client.
type RoleBindings struct {
	AccountManagerID  string
	CATeamLeadID      string
	CareerAssociateID string
	ScraperID         string
}

func (b RoleBindings) required() []struct {
	field  string
	userID string
	role   domain.Role
} {
	return []struct {
		field  string
		userID string
		role   domain.Role
	}{
		{"account_manager_id", strings.TrimSpace(b.AccountManagerID), domain.RoleAccountManager},
		{"ca_team_lead_id", strings.TrimSpace(b.CATeamLeadID), domain.RoleCATeamLead},
		{"career_associate_id", strings.TrimSpace(b.CareerAssociateID), domain.RoleCareerAssociate},
		{"scraper_id", strings.TrimSpace(b.ScraperID), domain.RoleScrapingTeam},
	}
}

func (s *OnboardingService) authorize(actor domain.User) error {
	if !s.permissions.CanOnboardClients(actor.Role) {
		return apperrors.NewForbidden(fmt.Sprintf("role %s cannot onboard clients", actor.Role))
	}
	return nil
}

// ListPending returns clients awaiting role bindings, oldest first.
func (s *OnboardingService) ListPending(ctx context.Context, actor domain.User) ([]domain.PendingClient, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	pending, err := s.store.Repos().PendingClients.List(ctx)
	return pending, persist("read pending_clients", err)
}

// SubmitPending records a prospective client.
func (s *OnboardingService) SubmitPending(ctx context.Context, actor domain.User, profile domain.ClientProfile) (*domain.PendingClient, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	profile.FullName = strings.TrimSpace(profile.FullName)
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.FullName == "" {
		return nil, apperrors.NewFieldError("full_name", "full name is required")
	}
	if profile.Email != "" {
		if _, err := mail.ParseAddress(profile.Email); err != nil {
			return nil, apperrors.NewFieldError("email", "email is not a valid address")
		}
	}
	pending := &domain.PendingClient{
		ID:            uuid.NewString(),
		ClientProfile: profile,
		SubmittedBy:   actor.ID,
		CreatedAt:     s.now(),
	}
	if err := s.store.Repos().PendingClients.Create(ctx, pending); err != nil {
		return nil, persist("pending_clients", err)
	}
	s.logger.Info("pending client submitted", zap.String("pending_client_id", pending.ID), zap.String("actor_id", actor.ID))
	return pending, nil
}

// AssignRoles binds the four responsible users and promotes the pending client.
// Each binding must name an active user holding the matching role. The client is
// created and the pending row removed in one unit of work.
func (s *OnboardingService) AssignRoles(ctx context.Context, actor domain.User, pendingID string, bindings RoleBindings) (*domain.Client, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	for _, b := range bindings.required() {
		if b.userID == "" {
			return nil, apperrors.NewFieldError(b.field, "all four role bindings are required")
		}
	}

	var client *domain.Client
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		pending, err := repos.PendingClients.GetByID(ctx, pendingID)
		if err != nil {
			return lookup("pending client", err)
		}
		for _, b := range bindings.required() {
			user, err := repos.Users.GetByID(ctx, b.userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewFieldError(b.field, "user does not exist")
				}
				return persist("read users", err)
			}
			if !user.IsActive {
				return apperrors.NewFieldError(b.field, "user is not active")
			}
			if user.Role != b.role {
				return apperrors.NewValidationError(
					fmt.Sprintf("user holds role %s, expected %s", user.Role, b.role),
					map[string]any{"field": b.field},
				)
			}
		}
		client = &domain.Client{
			ID:                uuid.NewString(),
			ClientProfile:     pending.ClientProfile,
			AccountManagerID:  stringPtr(bindings.AccountManagerID),
			CATeamLeadID:      stringPtr(bindings.CATeamLeadID),
			CareerAssociateID: stringPtr(bindings.CareerAssociateID),
			ScraperID:         stringPtr(bindings.ScraperID),
			OnboardedBy:       actor.ID,
			CreatedAt:         s.now(),
		}
		if err := repos.Clients.Create(ctx, client); err != nil {
			return persist("clients", err)
		}
		if err := repos.PendingClients.Delete(ctx, pending.ID); err != nil {
			return persist("pending_clients", err)
		}
		return nil
	})
	if err != nil {
		return nil, persist("commit", err)
	}

	s.publish(ctx, events.Event{
		Type:  events.EventClientOnboarded,
		Actor: actorOf(actor),
		Payload: events.ClientOnboardedPayload{
			ClientID:          client.ID,
			PendingClientID:   pendingID,
			AccountManagerID:  bindings.AccountManagerID,
			CATeamLeadID:      bindings.CATeamLeadID,
			CareerAssociateID: bindings.CareerAssociateID,
			ScraperID:         bindings.ScraperID,
		},
	})
	s.logger.Info("client onboarded", zap.String("client_id", client.ID), zap.String("actor_id", actor.ID))
	return client, nil
}

// GetClient returns an onboarded client.
func (s *OnboardingService) GetClient(ctx context.Context, actor domain.User, clientID string) (*domain.Client, error) {
	if !s.permissions.For(actor.Role).CanViewClients && !s.permissions.CanOnboardClients(actor.Role) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("role %s cannot view clients", actor.Role))
	}
	client, err := s.store.Repos().Clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, lookup("client", err)
	}
	return client, nil
}

func stringPtr(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
