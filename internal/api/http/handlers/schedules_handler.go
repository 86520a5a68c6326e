package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fabrimaq/maintenance-service/internal/api/dto"
	"github.com/fabrimaq/maintenance-service/internal/auth"
	"github.com/fabrimaq/maintenance-service/internal/service"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// SchedulesHandler exposes the agendamento endpoints.
type SchedulesHandler struct {
	schedules *service.ScheduleService
}

// NewSchedulesHandler constructs handler.
func NewSchedulesHandler(schedules *service.ScheduleService) *SchedulesHandler {
	return &SchedulesHandler{schedules: schedules}
}

// Create POST /agendamentos.
func (h *SchedulesHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}
	schedule, err := h.schedules.Create(c.UserContext(), actor, service.ScheduleCreateInput{
		MachineID:   req.MachineID,
		Description: req.Description,
		Template:    req.Checklist,
		Start:       req.Start,
		End:         req.End,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromSchedule(schedule)})
}

// List GET /agendamentos.
func (h *SchedulesHandler) List(c *fiber.Ctx) error {
	input := service.ScheduleListInput{
		Limit:       queryInt(c, "limit", 100),
		RecentFirst: c.Query("ordem") == "recentes",
	}
	if from, ok := queryTime(c, "de"); ok {
		input.From = &from
	}
	if to, ok := queryTime(c, "ate"); ok {
		input.To = &to
	}
	views, err := h.schedules.List(c.UserContext(), input)
	if err != nil {
		return err
	}
	items := make([]dto.ScheduleResponse, 0, len(views))
	for _, view := range views {
		items = append(items, dto.FromScheduleView(view))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /agendamentos/:id.
func (h *SchedulesHandler) Get(c *fiber.Ctx) error {
	schedule, err := h.schedules.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSchedule(schedule)})
}

// Patch PATCH /agendamentos/:id.
func (h *SchedulesHandler) Patch(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PatchScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
	}
	schedule, err := h.schedules.Patch(c.UserContext(), actor, c.Params("id"), service.SchedulePatchInput{
		Start:  req.Start,
		End:    req.End,
		Status: req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSchedule(schedule)})
}

// Delete DELETE /agendamentos/:id.
func (h *SchedulesHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.schedules.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Start POST /agendamentos/:id/iniciar.
func (h *SchedulesHandler) Start(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StartScheduleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError(apperrors.CodeValidation, "invalid payload", nil)
		}
	}
	ticket, err := h.schedules.Start(c.UserContext(), actor, c.Params("id"), req.MaintainerEmail)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.StartScheduleResponse{
		ScheduleID: c.Params("id"),
		TicketID:   ticket.ID,
		Status:     string(ticket.Status),
	}})
}
