package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/events"
	"github.com/fabrimaq/maintenance-service/internal/observability"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// LifecycleService drives chamado state transitions. Every transition runs in
// a single transaction that locks the row first, so concurrent callers
// serialize on the database instead of on application state.
type LifecycleService struct {
	store      repository.LifecycleStore
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles what the lifecycle service needs.
type LifecycleDependencies struct {
	Store      repository.LifecycleStore
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CompletionInput carries the closing payload. Nil fields keep whatever the
// chamado already stores.
type CompletionInput struct {
	Checklist []domain.ChecklistItem
	Cause     *string
	Solution  *string
}

// StatusPatchInput is the administrative status override.
type StatusPatchInput struct {
	Status          string
	MaintainerEmail string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		store:      deps.Store,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Claim moves an open chamado to Em Andamento and records the actor as the
// first claimant. The claimant fields are written with COALESCE so a race
// that slips past the row lock can never replace the first claimant.
func (s *LifecycleService) Claim(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if !actor.Is(domain.RoleTechnician) {
		return nil, apperrors.NewPermissionDenied("only manutentor may claim a chamado")
	}

	ticket, err := s.inTransaction(ctx, ticketID, func(tx repository.LifecycleTx, ticket *domain.Ticket) error {
		if ticket.Status != domain.TicketStatusOpen {
			return apperrors.NewStateConflict(string(ticket.Status))
		}
		patch := repository.ClaimPatch{UserID: actor.ID}
		if actor.Name != "" {
			name := actor.Name
			patch.Name = &name
		}
		if actor.Email != "" {
			email := actor.Email
			patch.Email = &email
		}
		return tx.ApplyClaim(ctx, ticketID, patch)
	})
	if err != nil {
		return nil, err
	}

	observability.TicketTransitions.WithLabelValues("claim").Inc()
	s.logger.Info("chamado claimed", zap.String("chamado_id", ticketID), zap.String("user_id", actor.ID))
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionUpdated, ticketID, nil)
	return ticket, nil
}

// Complete closes a chamado. The payload alone must satisfy the rules of the
// chamado's type: preventiva needs a non-empty checklist, corretiva needs
// causa and solucao. Provided fields then merge over the stored columns with
// COALESCE semantics. A chamado spawned by an agendamento cascades the
// completion to it in the same transaction.
func (s *LifecycleService) Complete(ctx context.Context, actor domain.Actor, ticketID string, input CompletionInput) (*domain.Ticket, error) {
	var scheduleID *string
	ticket, err := s.inTransaction(ctx, ticketID, func(tx repository.LifecycleTx, ticket *domain.Ticket) error {
		if ticket.Status != domain.TicketStatusInProgress {
			return apperrors.NewStateConflict(string(ticket.Status))
		}
		if !actor.Is(domain.RoleManager) && !ticket.IsAssociated(actor.ID) {
			return apperrors.NewPermissionDenied("only gestor or an associated user may complete the chamado")
		}
		if err := validateCompletion(ticket, input); err != nil {
			return err
		}

		patch := repository.CompletionPatch{
			Checklist: input.Checklist,
			Cause:     input.Cause,
			Solution:  input.Solution,
			By:        actor.Snapshot(),
		}
		if err := tx.ApplyCompletion(ctx, ticketID, patch); err != nil {
			return err
		}
		if ticket.ScheduleID != nil {
			if err := tx.MarkScheduleCompleted(ctx, *ticket.ScheduleID); err != nil {
				return err
			}
			scheduleID = ticket.ScheduleID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.TicketTransitions.WithLabelValues("complete").Inc()
	s.logger.Info("chamado completed", zap.String("chamado_id", ticketID), zap.String("user_id", actor.ID))
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionUpdated, ticketID, nil)
	if scheduleID != nil {
		publish(ctx, s.dispatcher, events.TopicSchedules, events.ActionUpdated, *scheduleID, nil)
	}
	return ticket, nil
}

// PatchStatus is the administrative override. It locks the row but enforces
// no status precondition and no per-type payload validation; the role rules
// are the only guard. Reopening clears all claim and completion fields.
func (s *LifecycleService) PatchStatus(ctx context.Context, actor domain.Actor, ticketID string, input StatusPatchInput) (*domain.Ticket, error) {
	target := domain.NormalizeTicketStatus(input.Status)

	switch target {
	case domain.TicketStatusInProgress, domain.TicketStatusCompleted:
		if !actor.Is(domain.RoleTechnician, domain.RoleManager) {
			return nil, apperrors.NewPermissionDenied("only manutentor or gestor may set this status")
		}
	case domain.TicketStatusOpen, domain.TicketStatusCancelled:
		if !actor.Is(domain.RoleManager) {
			return nil, apperrors.NewPermissionDenied("only gestor may set this status")
		}
	}

	var maintainer *domain.User
	if target == domain.TicketStatusInProgress {
		email := strings.TrimSpace(input.MaintainerEmail)
		if email == "" {
			return nil, apperrors.NewValidationError(apperrors.CodeValidation, "manutentorEmail is required when moving to Em Andamento", nil)
		}
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError(apperrors.CodeUnknownUser, "manutentorEmail does not match a known user", map[string]any{"email": email})
			}
			return nil, apperrors.MapError(err)
		}
		maintainer = user
	}

	ticket, err := s.inTransaction(ctx, ticketID, func(tx repository.LifecycleTx, ticket *domain.Ticket) error {
		switch target {
		case domain.TicketStatusOpen:
			return tx.ApplyReopen(ctx, ticketID)
		case domain.TicketStatusInProgress:
			name, email := maintainer.Name, maintainer.Email
			return tx.ApplyHandover(ctx, ticketID, repository.MaintainerPatch{
				UserID: maintainer.ID,
				Name:   &name,
				Email:  &email,
			})
		case domain.TicketStatusCompleted:
			return tx.ApplyForcedCompletion(ctx, ticketID, actor.Snapshot())
		case domain.TicketStatusCancelled:
			return tx.ApplyCancel(ctx, ticketID)
		}
		return apperrors.NewValidationError(apperrors.CodeInvalidStatus, "unknown status", map[string]any{"status": input.Status})
	})
	if err != nil {
		return nil, err
	}

	observability.TicketTransitions.WithLabelValues("patch").Inc()
	s.logger.Info("chamado status patched",
		zap.String("chamado_id", ticketID),
		zap.String("status", string(target)),
		zap.String("user_id", actor.ID))
	publish(ctx, s.dispatcher, events.TopicTickets, events.ActionUpdated, ticketID, nil)
	return ticket, nil
}

// inTransaction runs fn against the locked chamado, commits on success and
// re-locks nothing afterwards: the returned ticket reflects the pre-patch
// row, so callers re-read when they need the updated state.
func (s *LifecycleService) inTransaction(ctx context.Context, ticketID string, fn func(repository.LifecycleTx, *domain.Ticket) error) (*domain.Ticket, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ticket, err := tx.LockTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(apperrors.CodeTicketNotFound, "chamado", map[string]any{"chamado_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := fn(tx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// validateCompletion checks the closing payload on its own. Stored values
// never satisfy the rule: a preventiva must arrive with its filled checklist
// and a corretiva with causa and solucao, even when the row already carries
// them from a previous completion or a schedule template.
func validateCompletion(ticket *domain.Ticket, input CompletionInput) error {
	switch ticket.Type {
	case domain.TicketTypePreventive:
		if len(input.Checklist) == 0 {
			return apperrors.NewValidationError(apperrors.CodeChecklistRequired, "preventiva requires a filled checklist", nil)
		}
	case domain.TicketTypeCorrective:
		if blank(input.Cause) {
			return apperrors.NewValidationError(apperrors.CodeCauseRequired, "corretiva requires causa", nil)
		}
		if blank(input.Solution) {
			return apperrors.NewValidationError(apperrors.CodeSolutionRequired, "corretiva requires solucao", nil)
		}
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
