package handlers

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/placementops/ticketing/internal/api/dto"
	"github.com/placementops/ticketing/internal/auth"
	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/service"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service        *service.TicketService
	maxUploadBytes int64
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, maxUploadBytes int64) *TicketsHandler {
	return &TicketsHandler{service: ticketService, maxUploadBytes: maxUploadBytes}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, service.TicketCreateInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		ClientID:    req.ClientID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.service.GetTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// ListActivity GET /tickets/:id/activity.
func (h *TicketsHandler) ListActivity(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.service.ListActivity(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponse(entries)})
}

// ListEscalations GET /tickets/:id/escalations.
func (h *TicketsHandler) ListEscalations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	escalations, err := h.service.ListEscalations(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		items = append(items, escalationResponse(&escalations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transition POST /tickets/:id/actions/:action. Accepts JSON, or multipart form
// fields with an optional "file" part.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	file, err := h.readFile(c)
	if err != nil {
		return err
	}

	result, err := h.service.Transition(c.UserContext(), principal.User, c.Params("id"), service.TransitionInput{
		Action:           service.Action(c.Params("action")),
		Comment:          req.Comment,
		IsInternal:       req.IsInternal,
		File:             file,
		Escalate:         req.Escalate,
		EscalationReason: req.EscalationReason,
		TargetStatus:     req.TargetStatus,
		Resolution:       req.Resolution,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(result)})
}

func (h *TicketsHandler) readFile(c *fiber.Ctx) (*service.FileUpload, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	header, err := c.FormFile("file")
	if err != nil {
		// no file part
		return nil, nil
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return nil, apperrors.NewValidationError("file exceeds the upload limit", map[string]any{
			"field":     "file",
			"max_bytes": h.maxUploadBytes,
		})
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("file could not be read", map[string]any{"field": "file"})
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewValidationError("file could not be read", map[string]any{"field": "file"})
	}
	return &service.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitQuery(c.Query("status")) {
		status := domain.TicketStatus(part)
		if !status.Valid() {
			return filter, apperrors.NewFieldError("status", "unknown status "+strconv.Quote(part))
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitQuery(c.Query("type")) {
		ticketType := domain.TicketType(part)
		if !ticketType.Valid() {
			return filter, apperrors.NewFieldError("type", "unknown ticket type "+strconv.Quote(part))
		}
		filter.Types = append(filter.Types, ticketType)
	}
	for _, part := range splitQuery(c.Query("priority")) {
		priority := domain.TicketPriority(part)
		if !priority.Valid() {
			return filter, apperrors.NewFieldError("priority", "unknown priority "+strconv.Quote(part))
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	if clientID := strings.TrimSpace(c.Query("client_id")); clientID != "" {
		filter.ClientID = &clientID
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := min(parseInt(c.Query("page_size"), defaultPageSize), maxPageSize)
	if page-1 > math.MaxInt32/pageSize {
		return filter, apperrors.NewFieldError("page", "page is out of range")
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func splitQuery(val string) []string {
	var parts []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		ShortCode:       ticket.ShortCode,
		Type:            ticket.Type,
		Priority:        ticket.Priority,
		Status:          ticket.Status,
		Title:           ticket.Title,
		ClientID:        ticket.ClientID,
		CreatedBy:       ticket.CreatedBy,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		DueDate:         ticket.DueDate,
		SLAHours:        ticket.SLAHours,
		EscalationLevel: ticket.EscalationLevel,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(detail.Ticket),
		Description:   detail.Ticket.Description,
		Metadata:      detail.Ticket.Metadata,
		Activity:      activityResponse(detail.Activity),
		Assignees:     make([]string, 0, len(detail.Assignments)),
		Escalations:   make([]dto.EscalationResponse, 0, len(detail.Escalations)),
		History:       make([]dto.HistoryResponse, 0, len(detail.History)),
		LegalActions:  make([]string, 0, len(detail.LegalActions)),
		CanEdit:       detail.CanEdit,
	}
	for _, a := range detail.Assignments {
		resp.Assignees = append(resp.Assignees, a.UserID)
	}
	for i := range detail.Escalations {
		resp.Escalations = append(resp.Escalations, escalationResponse(&detail.Escalations[i]))
	}
	for _, h := range detail.History {
		resp.History = append(resp.History, dto.HistoryResponse{
			Action:     h.Action,
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			ActorID:    h.ActorID,
			Automatic:  h.Automatic,
			Note:       h.Note,
			CreatedAt:  h.CreatedAt,
		})
	}
	for _, action := range detail.LegalActions {
		resp.LegalActions = append(resp.LegalActions, string(action))
	}
	if vs := detail.VolumeShortfall; vs != nil {
		resp.VolumeShortfall = &dto.VolumeShortfallResponse{
			ExpectedApplications:  vs.ExpectedApplications,
			ActualApplications:    vs.ActualApplications,
			TimePeriod:            vs.TimePeriod,
			Notes:                 vs.Notes,
			ForwardedToCAScraping: vs.ForwardedToCAScraping,
			ForwardedAt:           vs.ForwardedAt,
		}
	}
	return resp
}

func activityResponse(entries []domain.ActivityEntry) []dto.ActivityEntryResponse {
	items := make([]dto.ActivityEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := dto.ActivityEntryResponse{Kind: e.Kind, At: e.At}
		switch {
		case e.Comment != nil:
			item.ID = e.Comment.ID
			item.UserID = e.Comment.UserID
			item.Content = e.Comment.Content
			item.IsInternal = e.Comment.IsInternal
			item.TicketStatusAtTime = e.Comment.TicketStatusAtTime
		case e.File != nil:
			item.ID = e.File.ID
			item.UserID = e.File.UploadedBy
			item.FilePath = e.File.FilePath
			item.FileURL = e.FileURL
		}
		items = append(items, item)
	}
	return items
}

func escalationResponse(e *domain.Escalation) dto.EscalationResponse {
	return dto.EscalationResponse{
		ID:          e.ID,
		EscalatedBy: e.EscalatedBy,
		CAID:        e.CAID,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt,
	}
}

func transitionResponse(result *service.TransitionResult) dto.TransitionResponse {
	resp := dto.TransitionResponse{
		Ticket:           ticketSummary(result.Ticket),
		PreviousStatus:   result.PreviousStatus,
		Automatic:        result.Automatic,
		Assigned:         append([]string{}, result.Assigned...),
		CommentIDs:       make([]string, 0, len(result.Comments)),
		FileIDs:          make([]string, 0, len(result.Files)),
		FileUploadFailed: result.FileUploadFailed,
		Notices:          result.Notices,
	}
	for _, c := range result.Comments {
		resp.CommentIDs = append(resp.CommentIDs, c.ID)
	}
	for _, f := range result.Files {
		resp.FileIDs = append(resp.FileIDs, f.ID)
	}
	if result.Escalation != nil {
		esc := escalationResponse(result.Escalation)
		resp.Escalation = &esc
	}
	return resp
}
