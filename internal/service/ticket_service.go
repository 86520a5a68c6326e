package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/events"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// TicketService owns chamado creation and the read/append paths. State
// transitions live in LifecycleService.
type TicketService struct {
	tickets      repository.TicketRepository
	observations repository.ObservationRepository
	users        repository.UserRepository
	machines     repository.MachineRepository
	dispatcher   events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	ObservationRepo repository.ObservationRepository
	UserRepo        repository.UserRepository
	MachineRepo     repository.MachineRepository
	Dispatcher      events.Dispatcher
}

// TicketCreateInput describes the creation payload. Machine may be referenced
// by id, tag or display name; Status and Type arrive as free text and are
// normalized here.
type TicketCreateInput struct {
	MachineID       string
	MachineTag      string
	MachineName     string
	Description     string
	Type            string
	Status          string
	MaintainerEmail string
	ChecklistItems  []string
}

// TicketListInput describes listing filters as received from the request
// layer.
type TicketListInput struct {
	Status          string
	Type            string
	MachineTag      string
	MachineID       string
	CreatorEmail    string
	MaintainerEmail string
	From            *time.Time
	To              *time.Time
	Page            int
	PageSize        int
}

// TicketPage is one window of the listing plus the independent total.
type TicketPage struct {
	Items    []repository.TicketSummary
	Page     int
	PageSize int
	Total    int
}

// HasNext reports whether another page follows this one.
func (p TicketPage) HasNext() bool {
	return (p.Page-1)*p.PageSize+len(p.Items) < p.Total
}

// TicketDetail is the full read model of a chamado.
type TicketDetail struct {
	Ticket       *domain.Ticket
	Observations []domain.Observation
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:      deps.TicketRepo,
		observations: deps.ObservationRepo,
		users:        deps.UserRepo,
		machines:     deps.MachineRepo,
		dispatcher:   deps.Dispatcher,
	}
}

// Create opens a chamado. Operators may only open in Aberto without a
// maintainer; technicians and managers may open directly in Em Andamento by
// naming the maintainer, who becomes claimant and current responsible.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	description := strings.TrimSpace(input.Description)
	if len(description) < 5 {
		return nil, apperrors.NewValidationError(apperrors.CodeValidation, "descricao must have at least 5 characters", nil)
	}

	status := domain.NormalizeTicketStatus(input.Status)
	if input.Status == "" {
		status = domain.TicketStatusOpen
	}
	if !status.IsActive() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidStatus, "status not allowed at creation", map[string]any{"status": status})
	}

	if actor.Role == domain.RoleOperator {
		if status != domain.TicketStatusOpen {
			return nil, apperrors.NewPermissionDenied("operador can only open chamados in Aberto")
		}
		if input.MaintainerEmail != "" {
			return nil, apperrors.NewPermissionDenied("operador cannot assign a maintainer at creation")
		}
	}
	if status == domain.TicketStatusInProgress && input.MaintainerEmail == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeValidation, "manutentorEmail is required when status is Em Andamento", nil)
	}

	creator, err := s.resolveUser(ctx, actor.Email)
	if err != nil {
		return nil, err
	}

	machine, err := s.resolveMachine(ctx, input)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		MachineID:   machine.ID,
		Machine:     machine.Name,
		Type:        domain.NormalizeTicketType(input.Type),
		Status:      status,
		Description: description,
		Checklist:   domain.NormalizeChecklist(input.ChecklistItems),
		CreatedBy:   snapshotOf(creator),
	}

	if status == domain.TicketStatusInProgress {
		maintainer, err := s.users.GetByEmail(ctx, input.MaintainerEmail)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError(apperrors.CodeUnknownUser, "manutentorEmail does not match a known user", map[string]any{"email": input.MaintainerEmail})
			}
			return nil, apperrors.MapError(err)
		}
		now := time.Now()
		ticket.ClaimedBy = snapshotOf(maintainer)
		ticket.ClaimedAt = &now
		ticket.ResponsibleID = &maintainer.ID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionCreated, ticket.ID, nil)
	return ticket, nil
}

// List returns a page of chamado summaries. Completed listings filter and
// order by completion time; everything else by creation time. The total is
// computed independently of the page window.
func (s *TicketService) List(ctx context.Context, input TicketListInput) (*TicketPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.TicketFilter{
		From:   input.From,
		To:     input.To,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if input.Status != "" {
		status := domain.NormalizeTicketStatus(input.Status)
		filter.Status = &status
	}
	if input.Type != "" {
		ticketType := domain.NormalizeTicketType(input.Type)
		filter.Type = &ticketType
	}
	if input.MachineTag != "" {
		filter.MachineTag = &input.MachineTag
	}
	if input.MachineID != "" {
		filter.MachineID = &input.MachineID
	}
	if input.CreatorEmail != "" {
		filter.CreatorEmail = &input.CreatorEmail
	}
	if input.MaintainerEmail != "" {
		filter.MaintainerEmail = &input.MaintainerEmail
	}

	items, total, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// Get fetches the full detail of one chamado with its ordered observations.
func (s *TicketService) Get(ctx context.Context, id string) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(apperrors.CodeTicketNotFound, "chamado", map[string]any{"chamado_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	observations, err := s.observations.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{Ticket: ticket, Observations: observations}, nil
}

// AppendObservation adds one immutable note to a chamado and returns the
// refreshed list. A missing chamado surfaces through the insert itself.
func (s *TicketService) AppendObservation(ctx context.Context, actor domain.Actor, ticketID, text string) ([]domain.Observation, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return nil, apperrors.NewValidationError(apperrors.CodeValidation, "texto must have at least 2 characters", nil)
	}

	obs := &domain.Observation{
		TicketID: ticketID,
		Author:   actorDisplayName(actor),
		Text:     text,
	}
	if actor.ID != "" {
		id := actor.ID
		obs.AuthorID = &id
	}
	if err := s.observations.Append(ctx, obs); err != nil {
		return nil, apperrors.MapError(err)
	}

	list, err := s.observations.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	last := obs
	if len(list) > 0 {
		last = &list[len(list)-1]
	}
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionObservationAdded, ticketID, last)
	return list, nil
}

// PatchChecklist replaces the live checklist of a non-terminal chamado.
// Managers always may; anyone else must be associated with the ticket.
func (s *TicketService) PatchChecklist(ctx context.Context, actor domain.Actor, ticketID string, items []domain.ChecklistItem) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound(apperrors.CodeTicketNotFound, "chamado", map[string]any{"chamado_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if ticket.Status.IsTerminal() {
		return apperrors.NewStateConflict(string(ticket.Status))
	}
	if !actor.Is(domain.RoleManager) && !ticket.IsAssociated(actor.ID) {
		return apperrors.NewPermissionDenied("only gestor or an associated user may edit the checklist")
	}

	if err := s.tickets.UpdateChecklist(ctx, ticketID, items); err != nil {
		return apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionUpdated, ticketID, nil)
	return nil
}

func (s *TicketService) resolveUser(ctx context.Context, email string) (*domain.User, error) {
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

func (s *TicketService) resolveMachine(ctx context.Context, input TicketCreateInput) (*domain.Machine, error) {
	var (
		machine *domain.Machine
		err     error
	)
	switch {
	case input.MachineID != "":
		machine, err = s.machines.GetByID(ctx, input.MachineID)
	case input.MachineTag != "" || input.MachineName != "":
		machine, err = s.machines.GetByTagOrName(ctx, input.MachineTag, input.MachineName)
	default:
		return nil, apperrors.NewValidationError(apperrors.CodeValidation, "inform maquinaId, maquinaTag or maquinaNome", nil)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError(apperrors.CodeUnknownMachine, "machine not found", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return machine, nil
}

func snapshotOf(user *domain.User) domain.UserSnapshot {
	id, name, email := user.ID, user.Name, user.Email
	return domain.UserSnapshot{ID: &id, Name: &name, Email: &email}
}

func actorDisplayName(actor domain.Actor) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(actor.Email); email != "" {
		return email
	}
	return "Sistema"
}

func publish(ctx context.Context, dispatcher events.Dispatcher, topic events.Topic, action events.Action, entityID string, payload any) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Action:    action,
		EntityID:  entityID,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
