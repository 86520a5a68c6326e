package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fabrimaq/maintenance-service/internal/api/dto"
	"github.com/fabrimaq/maintenance-service/internal/auth"
	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/service"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// TicketsHandler exposes the chamado endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, lifecycle: lifecycle}
}

// Create POST /chamados.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		MachineID:       req.MachineID,
		MachineTag:      req.MachineTag,
		MachineName:     req.MachineName,
		Description:     req.Description,
		Type:            req.Type,
		Status:          req.Status,
		MaintainerEmail: req.MaintainerEmail,
		ChecklistItems:  req.Checklist,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket, nil)})
}

// List GET /chamados.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	input := service.TicketListInput{
		Status:          c.Query("status"),
		Type:            c.Query("tipo"),
		MachineTag:      c.Query("maquinaTag"),
		MachineID:       c.Query("maquinaId"),
		CreatorEmail:    c.Query("criadoPorEmail"),
		MaintainerEmail: c.Query("manutentorEmail"),
		Page:            queryInt(c, "page", 1),
		PageSize:        queryInt(c, "pageSize", 20),
	}
	if from, ok := queryTime(c, "de"); ok {
		input.From = &from
	}
	if to, ok := queryTime(c, "ate"); ok {
		input.To = &to
	}

	page, err := h.tickets.List(c.UserContext(), input)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummaryResponse, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, dto.FromTicketSummary(row))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		HasNext:  page.HasNext(),
	}})
}

// Get GET /chamados/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	detail, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(detail.Ticket, detail.Observations)})
}

// Claim POST /chamados/:id/atender.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if _, err := h.lifecycle.Claim(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return h.respondDetail(c)
}

// Complete POST /chamados/:id/concluir.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CompleteTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}

	input := service.CompletionInput{Cause: req.Cause, Solution: req.Solution}
	if req.Checklist != nil {
		input.Checklist = domain.NormalizeChecklist(req.Checklist)
	}
	if _, err := h.lifecycle.Complete(c.UserContext(), actor, c.Params("id"), input); err != nil {
		return err
	}
	return h.respondDetail(c)
}

// PatchStatus PATCH /chamados/:id/status.
func (h *TicketsHandler) PatchStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PatchStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}
	if _, err := h.lifecycle.PatchStatus(c.UserContext(), actor, c.Params("id"), service.StatusPatchInput{
		Status:          req.Status,
		MaintainerEmail: req.MaintainerEmail,
	}); err != nil {
		return err
	}
	return h.respondDetail(c)
}

// PatchChecklist PATCH /chamados/:id/checklist.
func (h *TicketsHandler) PatchChecklist(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChecklistPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}
	items := domain.NormalizeChecklist(req.Checklist)
	if len(items) == 0 {
		return apperrors.NewValidationError(apperrors.CodeValidation, "checklist required", nil)
	}
	if err := h.tickets.PatchChecklist(c.UserContext(), actor, c.Params("id"), items); err != nil {
		return err
	}
	return h.respondDetail(c)
}

// AddObservation POST /chamados/:id/observacoes.
func (h *TicketsHandler) AddObservation(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ObservationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}
	observations, err := h.tickets.AppendObservation(c.UserContext(), actor, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	items := make([]dto.ObservationResponse, 0, len(observations))
	for _, obs := range observations {
		items = append(items, dto.FromObservation(obs))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) respondDetail(c *fiber.Ctx) error {
	detail, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(detail.Ticket, detail.Observations)})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryTime(c *fiber.Ctx, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
