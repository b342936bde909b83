package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/placementops/ticketing/internal/api/dto"
	"github.com/placementops/ticketing/internal/service"
)

// SLAHandler exposes the SLA table.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(sla *service.SLAService) *SLAHandler {
	return &SLAHandler{service: sla}
}

// List GET /sla. Ticket types without a row are listed under "missing".
func (h *SLAHandler) List(c *fiber.Ctx) error {
	configs, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	missing, err := h.service.MissingTypes(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLAConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, dto.SLAConfigResponse{TicketType: cfg.TicketType, Priority: cfg.Priority, Hours: cfg.Hours})
	}
	return c.JSON(fiber.Map{"data": items, "missing": missing})
}
