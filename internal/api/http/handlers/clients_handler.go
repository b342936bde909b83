package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/placementops/ticketing/internal/api/dto"
	"github.com/placementops/ticketing/internal/auth"
	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/service"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// ClientsHandler manages client onboarding endpoints.
type ClientsHandler struct {
	service *service.OnboardingService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(onboarding *service.OnboardingService) *ClientsHandler {
	return &ClientsHandler{service: onboarding}
}

// ListPending GET /clients/pending.
func (h *ClientsHandler) ListPending(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	pending, err := h.service.ListPending(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.PendingClientResponse, 0, len(pending))
	for i := range pending {
		items = append(items, pendingResponse(&pending[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SubmitPending POST /clients/pending.
func (h *ClientsHandler) SubmitPending(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ClientProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pending, err := h.service.SubmitPending(c.UserContext(), principal.User, req.ToProfile())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": pendingResponse(pending)})
}

// AssignRoles POST /clients/pending/:id/assign.
func (h *ClientsHandler) AssignRoles(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRolesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	client, err := h.service.AssignRoles(c.UserContext(), principal.User, c.Params("id"), service.RoleBindings{
		AccountManagerID:  req.AccountManagerID,
		CATeamLeadID:      req.CATeamLeadID,
		CareerAssociateID: req.CareerAssociateID,
		ScraperID:         req.ScraperID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": clientResponse(client)})
}

// GetClient GET /clients/:id.
func (h *ClientsHandler) GetClient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	client, err := h.service.GetClient(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

func pendingResponse(p *domain.PendingClient) dto.PendingClientResponse {
	return dto.PendingClientResponse{
		ID:                    p.ID,
		ClientProfileResponse: dto.NewProfileResponse(p.ClientProfile),
		SubmittedBy:           p.SubmittedBy,
		CreatedAt:             p.CreatedAt,
	}
}

func clientResponse(cl *domain.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:                    cl.ID,
		ClientProfileResponse: dto.NewProfileResponse(cl.ClientProfile),
		AccountManagerID:      cl.AccountManagerID,
		CATeamLeadID:          cl.CATeamLeadID,
		CareerAssociateID:     cl.CareerAssociateID,
		ScraperID:             cl.ScraperID,
		OnboardedBy:           cl.OnboardedBy,
		CreatedAt:             cl.CreatedAt,
	}
}
