package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/events"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

type fakeUserRepo struct {
	users []*domain.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeMachineRepo struct {
	machines []*domain.Machine
}

func (r *fakeMachineRepo) GetByID(_ context.Context, id string) (*domain.Machine, error) {
	for _, m := range r.machines {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeMachineRepo) GetByTagOrName(_ context.Context, tag, name string) (*domain.Machine, error) {
	for _, m := range r.machines {
		if (tag != "" && m.Tag == tag) || (name != "" && m.Name == name) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = "t-" + strconv.Itoa(r.nextID)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]repository.TicketSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []repository.TicketSummary
	for _, t := range r.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		all = append(all, repository.TicketSummary{
			ID:          t.ID,
			Machine:     t.Machine,
			Type:        t.Type,
			Status:      t.Status,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
			CompletedAt: t.CompletedAt,
		})
	}
	total := len(all)
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (r *fakeTicketRepo) UpdateChecklist(_ context.Context, id string, items []domain.ChecklistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Checklist = items
	ticket.UpdatedAt = time.Now()
	return nil
}

type fakeObservationRepo struct {
	mu       sync.Mutex
	known    map[string]bool
	byTicket map[string][]domain.Observation
	nextID   int
}

func newFakeObservationRepo(ticketIDs ...string) *fakeObservationRepo {
	known := map[string]bool{}
	for _, id := range ticketIDs {
		known[id] = true
	}
	return &fakeObservationRepo{known: known, byTicket: map[string][]domain.Observation{}}
}

func (r *fakeObservationRepo) Append(_ context.Context, obs *domain.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.known[obs.TicketID] {
		return pgx.ErrNoRows
	}
	r.nextID++
	obs.ID = "o-" + strconv.Itoa(r.nextID)
	obs.CreatedAt = time.Now()
	r.byTicket[obs.TicketID] = append(r.byTicket[obs.TicketID], *obs)
	return nil
}

func (r *fakeObservationRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Observation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Observation{}, r.byTicket[ticketID]...), nil
}

type fakeScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*domain.Schedule
	linked    map[string]bool
	nextID    int
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		schedules: map[string]*domain.Schedule{},
		linked:    map[string]bool{},
	}
}

func (r *fakeScheduleRepo) Create(_ context.Context, schedule *domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	schedule.ID = "s-" + strconv.Itoa(r.nextID)
	schedule.CreatedAt = time.Now()
	copied := *schedule
	r.schedules[schedule.ID] = &copied
	return nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id string) (*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.schedules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *schedule
	return &copied, nil
}

func (r *fakeScheduleRepo) List(_ context.Context, filter repository.ScheduleFilter) ([]domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Schedule
	for _, s := range r.schedules {
		if filter.From != nil && s.Start.Before(*filter.From) {
			continue
		}
		if filter.To != nil && s.Start.After(*filter.To) {
			continue
		}
		out = append(out, *s)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Update(_ context.Context, id string, patch repository.SchedulePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.schedules[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if patch.Start != nil {
		schedule.Start = *patch.Start
	}
	if patch.End != nil {
		schedule.End = *patch.End
	}
	if patch.Status != nil {
		schedule.Status = *patch.Status
		if *patch.Status == domain.ScheduleStatusCompleted {
			now := time.Now()
			schedule.CompletedAt = &now
		} else {
			schedule.CompletedAt = nil
		}
	}
	return nil
}

// Delete refuses entries with a linked chamado, mirroring the foreign key
// on chamados.agendamento_id.
func (r *fakeScheduleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[id]; !ok {
		return pgx.ErrNoRows
	}
	if r.linked[id] {
		return apperrors.NewValidationError(apperrors.CodeValidation,
			"agendamento already has a linked chamado and cannot be removed",
			map[string]any{"agendamento_id": id})
	}
	delete(r.schedules, id)
	return nil
}

// fakeLifecycleStore serializes transactions with a mutex held from Begin to
// Commit/Rollback, mirroring the row lock the real store takes. Mutations
// buffer until Commit.
type fakeLifecycleStore struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	schedules map[string]*domain.Schedule
	nextID    int
}

func newFakeLifecycleStore() *fakeLifecycleStore {
	return &fakeLifecycleStore{
		tickets:   map[string]*domain.Ticket{},
		schedules: map[string]*domain.Schedule{},
	}
}

func (s *fakeLifecycleStore) Begin(_ context.Context) (repository.LifecycleTx, error) {
	s.mu.Lock()
	return &fakeLifecycleTx{store: s}, nil
}

type fakeLifecycleTx struct {
	store   *fakeLifecycleStore
	pending []func()
	done    bool
}

func (t *fakeLifecycleTx) LockTicket(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := t.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (t *fakeLifecycleTx) ApplyClaim(_ context.Context, id string, patch repository.ClaimPatch) error {
	t.pending = append(t.pending, func() {
		ticket := t.store.tickets[id]
		ticket.Status = domain.TicketStatusInProgress
		ticket.UpdatedAt = time.Now()
		if !ticket.ClaimedBy.Present() {
			userID := patch.UserID
			ticket.ClaimedBy = domain.UserSnapshot{ID: &userID, Name: patch.Name, Email: patch.Email}
			now := time.Now()
			ticket.ClaimedAt = &now
		}
		if ticket.ResponsibleID == nil {
			userID := patch.UserID
			ticket.ResponsibleID = &userID
		}
	})
	return nil
}

func (t *fakeLifecycleTx) ApplyCompletion(_ context.Context, id string, patch repository.CompletionPatch) error {
	t.pending = append(t.pending, func() {
		ticket := t.store.tickets[id]
		ticket.Status = domain.TicketStatusCompleted
		now := time.Now()
		ticket.CompletedAt = &now
		ticket.UpdatedAt = now
		ticket.CompletedBy = patch.By
		if len(patch.Checklist) > 0 {
			ticket.Checklist = patch.Checklist
		}
		if patch.Cause != nil {
			ticket.Cause = patch.Cause
		}
		if patch.Solution != nil {
			ticket.Solution = patch.Solution
			ticket.ServicePerformed = patch.Solution
		}
	})
	return nil
}

func (t *fakeLifecycleTx) ApplyReopen(_ context.Context, id string) error {
	t.pending = append(t.pending, func() {
		ticket := t.store.tickets[id]
		ticket.Status = domain.TicketStatusOpen
		ticket.ClaimedBy = domain.UserSnapshot{}
		ticket.ClaimedAt = nil
		ticket.ResponsibleID = nil
		ticket.CompletedBy = domain.UserSnapshot{}
		ticket.CompletedAt = nil
		ticket.UpdatedAt = time.Now()
	})
	return nil
}

func (t *fakeLifecycleTx) ApplyHandover(_ context.Context, id string, patch repository.MaintainerPatch) error {
	t.pending = append(t.pending, func() {
		ticket := t.store.tickets[id]
		ticket.Status = domain.TicketStatusInProgress
		userID := patch.UserID
		ticket.ClaimedBy = domain.UserSnapshot{ID: &userID, Name: patch.Name, Email: patch.Email}
		if ticket.ClaimedAt == nil {
			now := time.Now()
			ticket.ClaimedAt = &now
		}
		ticket.ResponsibleID = &userID
		ticket.UpdatedAt = time.Now()
	})
	return nil
}

func (t *fakeLifecycleTx) ApplyForcedCompletion(_ context.Context, id string, by domain.UserSnapshot) error {
	t.pending = append(t.pending, func() {
		ticket := t.store.tickets[id]
		ticket.Status = domain.TicketStatusCompleted
		now := time.Now()
		ticket.CompletedAt = &now
		ticket.UpdatedAt = now
		ticket.CompletedBy = by
	})
	return nil
}

func (t *fakeLifecycleTx) ApplyCancel(_ context.Context, id string) error {
	t.pending = append(t.pending, func() {
		ticket := t.store.tickets[id]
		ticket.Status = domain.TicketStatusCancelled
		ticket.UpdatedAt = time.Now()
	})
	return nil
}

func (t *fakeLifecycleTx) LockSchedule(_ context.Context, id string) (*domain.Schedule, error) {
	schedule, ok := t.store.schedules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *schedule
	return &copied, nil
}

func (t *fakeLifecycleTx) InsertTicket(_ context.Context, ticket *domain.Ticket) error {
	t.store.nextID++
	ticket.ID = "t-" + strconv.Itoa(t.store.nextID)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	t.pending = append(t.pending, func() {
		t.store.tickets[copied.ID] = &copied
	})
	return nil
}

func (t *fakeLifecycleTx) MarkScheduleStarted(_ context.Context, id string) error {
	t.pending = append(t.pending, func() {
		schedule := t.store.schedules[id]
		schedule.Status = domain.ScheduleStatusStarted
		now := time.Now()
		schedule.StartedAt = &now
	})
	return nil
}

func (t *fakeLifecycleTx) MarkScheduleCompleted(_ context.Context, id string) error {
	t.pending = append(t.pending, func() {
		schedule := t.store.schedules[id]
		schedule.Status = domain.ScheduleStatusCompleted
		now := time.Now()
		schedule.CompletedAt = &now
	})
	return nil
}

func (t *fakeLifecycleTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	for _, apply := range t.pending {
		apply()
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *fakeLifecycleTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.pending = nil
	t.done = true
	t.store.mu.Unlock()
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.Topic, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}
