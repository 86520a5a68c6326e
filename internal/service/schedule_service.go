package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/events"
	"github.com/fabrimaq/maintenance-service/internal/observability"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// ScheduleService manages agendamentos preventivos and the bridge that turns
// one into a running chamado.
type ScheduleService struct {
	schedules  repository.ScheduleRepository
	store      repository.LifecycleStore
	users      repository.UserRepository
	machines   repository.MachineRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ScheduleDependencies bundles what the schedule service needs.
type ScheduleDependencies struct {
	ScheduleRepo repository.ScheduleRepository
	Store        repository.LifecycleStore
	UserRepo     repository.UserRepository
	MachineRepo  repository.MachineRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ScheduleCreateInput describes a new agendamento.
type ScheduleCreateInput struct {
	MachineID   string
	Description string
	Template    any
	Start       time.Time
	End         time.Time
}

// ScheduleListInput describes listing parameters.
type ScheduleListInput struct {
	From        *time.Time
	To          *time.Time
	Limit       int
	RecentFirst bool
}

// SchedulePatchInput reschedules an entry or overrides its status. Nil
// fields keep stored values.
type SchedulePatchInput struct {
	Start  *time.Time
	End    *time.Time
	Status *string
}

// ScheduleView is a list row with the late-completion flag computed.
type ScheduleView struct {
	Schedule domain.Schedule
	Late     bool
}

// NewScheduleService constructs the service.
func NewScheduleService(deps ScheduleDependencies) *ScheduleService {
	return &ScheduleService{
		schedules:  deps.ScheduleRepo,
		store:      deps.Store,
		users:      deps.UserRepo,
		machines:   deps.MachineRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create registers a new agendamento in `agendado`. Manager only. The actual
// window starts equal to the planned one.
func (s *ScheduleService) Create(ctx context.Context, actor domain.Actor, input ScheduleCreateInput) (*domain.Schedule, error) {
	if !actor.Is(domain.RoleManager) {
		return nil, apperrors.NewPermissionDenied("only gestor may create agendamentos")
	}
	if input.Start.IsZero() || input.End.IsZero() {
		return nil, apperrors.NewValidationError(apperrors.CodeValidation, "inicio and fim are required", nil)
	}
	if !input.End.After(input.Start) {
		return nil, apperrors.NewValidationError(apperrors.CodeValidation, "fim must be after inicio", nil)
	}

	machine, err := s.machines.GetByID(ctx, input.MachineID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError(apperrors.CodeUnknownMachine, "machine not found", map[string]any{"maquina_id": input.MachineID})
		}
		return nil, apperrors.MapError(err)
	}

	schedule := &domain.Schedule{
		MachineID:         machine.ID,
		Machine:           machine.Name,
		Description:       strings.TrimSpace(input.Description),
		ChecklistTemplate: domain.NormalizeChecklist(input.Template),
		OriginalStart:     input.Start,
		OriginalEnd:       input.End,
		Start:             input.Start,
		End:               input.End,
		Status:            domain.ScheduleStatusScheduled,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.TopicSchedules, events.ActionCreated, schedule.ID, nil)
	return schedule, nil
}

// List returns agendamentos inside the window, each with its late flag. The
// limit is clamped to 500.
func (s *ScheduleService) List(ctx context.Context, input ScheduleListInput) ([]ScheduleView, error) {
	limit := input.Limit
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	schedules, err := s.schedules.List(ctx, repository.ScheduleFilter{
		From:        input.From,
		To:          input.To,
		Limit:       limit,
		RecentFirst: input.RecentFirst,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]ScheduleView, 0, len(schedules))
	for _, schedule := range schedules {
		views = append(views, ScheduleView{Schedule: schedule, Late: schedule.Late()})
	}
	return views, nil
}

// Get fetches one agendamento.
func (s *ScheduleService) Get(ctx context.Context, id string) (*domain.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(apperrors.CodeScheduleNotFound, "agendamento", map[string]any{"agendamento_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// Patch reschedules the actual window and/or overrides the status. Manager
// only. Moving to concluido stamps the completion time; any other status
// clears it.
func (s *ScheduleService) Patch(ctx context.Context, actor domain.Actor, id string, input SchedulePatchInput) (*domain.Schedule, error) {
	if !actor.Is(domain.RoleManager) {
		return nil, apperrors.NewPermissionDenied("only gestor may change agendamentos")
	}
	patch := repository.SchedulePatch{Start: input.Start, End: input.End}
	if input.Status != nil {
		status := domain.NormalizeScheduleStatus(*input.Status)
		patch.Status = &status
	}
	if err := s.schedules.Update(ctx, id, patch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(apperrors.CodeScheduleNotFound, "agendamento", map[string]any{"agendamento_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.TopicSchedules, events.ActionUpdated, id, nil)
	return schedule, nil
}

// Delete removes an agendamento. Manager only.
func (s *ScheduleService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.Is(domain.RoleManager) {
		return apperrors.NewPermissionDenied("only gestor may delete agendamentos")
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound(apperrors.CodeScheduleNotFound, "agendamento", map[string]any{"agendamento_id": id})
		}
		return apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.TopicSchedules, events.ActionDeleted, id, nil)
	return nil
}

// Start turns an `agendado` entry into a preventiva chamado, atomically. The
// schedule row is locked first; the new chamado carries the template as its
// checklist and links back through agendamento_id. With a resolved maintainer
// the chamado starts claimed in Em Andamento, otherwise it opens in Aberto.
func (s *ScheduleService) Start(ctx context.Context, actor domain.Actor, scheduleID, maintainerEmail string) (*domain.Ticket, error) {
	if !actor.Is(domain.RoleTechnician, domain.RoleManager) {
		return nil, apperrors.NewPermissionDenied("only manutentor or gestor may start an agendamento")
	}

	creator, err := s.resolveUser(ctx, actor.Email)
	if err != nil {
		return nil, err
	}

	var maintainer *domain.User
	if email := strings.TrimSpace(maintainerEmail); email != "" {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError(apperrors.CodeUnknownUser, "manutentorEmail does not match a known user", map[string]any{"email": email})
			}
			return nil, apperrors.MapError(err)
		}
		maintainer = user
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	schedule, err := tx.LockSchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(apperrors.CodeScheduleNotFound, "agendamento", map[string]any{"agendamento_id": scheduleID})
		}
		return nil, apperrors.MapError(err)
	}
	if schedule.Status != domain.ScheduleStatusScheduled {
		return nil, apperrors.NewStateConflict(string(schedule.Status))
	}

	ticket := &domain.Ticket{
		MachineID:   schedule.MachineID,
		Machine:     schedule.Machine,
		Type:        domain.TicketTypePreventive,
		Status:      domain.TicketStatusOpen,
		Description: bridgeDescription(schedule),
		Checklist:   schedule.ChecklistTemplate,
		CreatedBy:   snapshotOf(creator),
		ScheduleID:  &schedule.ID,
	}
	if maintainer != nil {
		now := time.Now()
		ticket.Status = domain.TicketStatusInProgress
		ticket.ClaimedBy = snapshotOf(maintainer)
		ticket.ClaimedAt = &now
		ticket.ResponsibleID = &maintainer.ID
	}

	if err := tx.InsertTicket(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.MarkScheduleStarted(ctx, schedule.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	observability.ScheduleStarts.Inc()
	s.logger.Info("agendamento started",
		zap.String("agendamento_id", schedule.ID),
		zap.String("chamado_id", ticket.ID))
	publish(ctx, s.dispatcher, events.TopicSchedules, events.ActionStarted, schedule.ID,
		events.TicketStartedPayload{TicketID: ticket.ID})
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionCreated, ticket.ID, nil)
	return ticket, nil
}

func (s *ScheduleService) resolveUser(ctx context.Context, email string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.NewUnauthorized("actor email required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("actor is not a registered user")
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func bridgeDescription(schedule *domain.Schedule) string {
	if description := strings.TrimSpace(schedule.Description); description != "" {
		return "Preventiva: " + description
	}
	return "Preventiva: " + schedule.Machine
}
