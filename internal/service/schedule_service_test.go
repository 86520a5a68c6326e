package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/events"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

func newScheduleEnv() (*ScheduleService, *fakeScheduleRepo, *fakeLifecycleStore, *recordingDispatcher) {
	schedules := newFakeScheduleRepo()
	store := newFakeLifecycleStore()
	dispatcher := &recordingDispatcher{}
	svc := NewScheduleService(ScheduleDependencies{
		ScheduleRepo: schedules,
		Store:        store,
		UserRepo: &fakeUserRepo{users: []*domain.User{
			{ID: "u-tech", Name: "Tecnico", Email: "tech@fabrica.com", Role: domain.RoleTechnician},
			{ID: "u-boss", Name: "Gestor", Email: "boss@fabrica.com", Role: domain.RoleManager},
		}},
		MachineRepo: &fakeMachineRepo{machines: []*domain.Machine{
			{ID: "m-1", Name: "Prensa 01", Tag: "PR-01"},
		}},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, schedules, store, dispatcher
}

func seedSchedule(store *fakeLifecycleStore, id string, status domain.ScheduleStatus) *domain.Schedule {
	start := time.Now().Add(24 * time.Hour)
	schedule := &domain.Schedule{
		ID:                id,
		MachineID:         "m-1",
		Machine:           "Prensa 01",
		Description:       "revisao mensal",
		ChecklistTemplate: domain.NormalizeChecklist([]string{"trocar filtro", "medir folga"}),
		OriginalStart:     start,
		OriginalEnd:       start.Add(2 * time.Hour),
		Start:             start,
		End:               start.Add(2 * time.Hour),
		Status:            status,
	}
	store.schedules[id] = schedule
	return schedule
}

func TestCreateScheduleManagerOnly(t *testing.T) {
	svc, _, _, _ := newScheduleEnv()
	start := time.Now().Add(time.Hour)

	_, err := svc.Create(context.Background(), techActor, ScheduleCreateInput{
		MachineID: "m-1", Start: start, End: start.Add(time.Hour),
	})
	if !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("technician create should be denied, got %v", err)
	}

	schedule, err := svc.Create(context.Background(), managerActor, ScheduleCreateInput{
		MachineID:   "m-1",
		Description: "revisao",
		Template:    "trocar filtro\nmedir folga",
		Start:       start,
		End:         start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if schedule.Status != domain.ScheduleStatusScheduled {
		t.Errorf("status = %q, want agendado", schedule.Status)
	}
	if len(schedule.ChecklistTemplate) != 2 {
		t.Errorf("template items = %d, want 2", len(schedule.ChecklistTemplate))
	}
	if !schedule.OriginalStart.Equal(schedule.Start) {
		t.Error("actual window must default to the planned one")
	}
}

func TestCreateScheduleValidatesWindow(t *testing.T) {
	svc, _, _, _ := newScheduleEnv()
	start := time.Now()

	if _, err := svc.Create(context.Background(), managerActor, ScheduleCreateInput{MachineID: "m-1", Start: start}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("missing fim should fail, got %v", err)
	}
	if _, err := svc.Create(context.Background(), managerActor, ScheduleCreateInput{MachineID: "m-1", Start: start, End: start.Add(-time.Hour)}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("inverted window should fail, got %v", err)
	}
	if _, err := svc.Create(context.Background(), managerActor, ScheduleCreateInput{MachineID: "m-9", Start: start, End: start.Add(time.Hour)}); !apperrors.IsCode(err, apperrors.CodeUnknownMachine) {
		t.Fatalf("unknown machine should fail, got %v", err)
	}
}

func TestListClampsLimit(t *testing.T) {
	svc, schedules, _, _ := newScheduleEnv()
	start := time.Now().Add(time.Hour)
	for i := 0; i < 3; i++ {
		schedule := &domain.Schedule{MachineID: "m-1", Start: start, End: start.Add(time.Hour), Status: domain.ScheduleStatusScheduled}
		if err := schedules.Create(context.Background(), schedule); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	views, err := svc.List(context.Background(), ScheduleListInput{Limit: 9999})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 3 {
		t.Errorf("expected 3 entries, got %d", len(views))
	}
}

func TestScheduleLateFlag(t *testing.T) {
	end := time.Now().Add(-2 * time.Hour)
	completedLate := end.Add(time.Hour)
	schedule := domain.Schedule{
		Status:      domain.ScheduleStatusCompleted,
		End:         end,
		CompletedAt: &completedLate,
	}
	if !schedule.Late() {
		t.Error("completion after end_ts must flag atrasado")
	}
	completedOnTime := end.Add(-time.Hour)
	schedule.CompletedAt = &completedOnTime
	if schedule.Late() {
		t.Error("completion before end_ts must not flag atrasado")
	}
}

func TestPatchScheduleStatusStampsCompletion(t *testing.T) {
	svc, schedules, _, _ := newScheduleEnv()
	start := time.Now().Add(time.Hour)
	seed := &domain.Schedule{MachineID: "m-1", Machine: "Prensa 01", Start: start, End: start.Add(time.Hour), Status: domain.ScheduleStatusScheduled}
	if err := schedules.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := svc.Patch(context.Background(), techActor, seed.ID, SchedulePatchInput{}); !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("technician patch should be denied, got %v", err)
	}

	status := "concluída"
	patched, err := svc.Patch(context.Background(), managerActor, seed.ID, SchedulePatchInput{Status: &status})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if patched.Status != domain.ScheduleStatusCompleted {
		t.Errorf("status = %q, want concluido", patched.Status)
	}
	if patched.CompletedAt == nil {
		t.Error("moving to concluido must stamp concluido_em")
	}
}

func TestDeleteSchedule(t *testing.T) {
	svc, schedules, _, _ := newScheduleEnv()
	start := time.Now()
	seed := &domain.Schedule{MachineID: "m-1", Start: start, End: start.Add(time.Hour), Status: domain.ScheduleStatusScheduled}
	if err := schedules.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := svc.Delete(context.Background(), techActor, seed.ID); !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("technician delete should be denied, got %v", err)
	}
	if err := svc.Delete(context.Background(), managerActor, seed.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.Delete(context.Background(), managerActor, seed.ID); !apperrors.IsCode(err, apperrors.CodeScheduleNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestDeleteScheduleWithLinkedTicket(t *testing.T) {
	svc, schedules, _, _ := newScheduleEnv()
	start := time.Now()
	seed := &domain.Schedule{MachineID: "m-1", Start: start, End: start.Add(time.Hour), Status: domain.ScheduleStatusStarted}
	if err := schedules.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	schedules.linked[seed.ID] = true

	err := svc.Delete(context.Background(), managerActor, seed.ID)
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("delete of a started agendamento should surface a validation error, got %v", err)
	}
	if _, getErr := schedules.GetByID(context.Background(), seed.ID); getErr != nil {
		t.Error("agendamento must survive the refused delete")
	}
}

func TestStartSchedule(t *testing.T) {
	svc, _, store, dispatcher := newScheduleEnv()
	seedSchedule(store, "s-1", domain.ScheduleStatusScheduled)

	ticket, err := svc.Start(context.Background(), techActor, "s-1", "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ticket.Type != domain.TicketTypePreventive {
		t.Errorf("type = %q, want preventiva", ticket.Type)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %q, want Aberto without a maintainer", ticket.Status)
	}
	if ticket.Description != "Preventiva: revisao mensal" {
		t.Errorf("description = %q", ticket.Description)
	}
	if len(ticket.Checklist) != 2 {
		t.Errorf("checklist from template has %d items, want 2", len(ticket.Checklist))
	}
	if ticket.ScheduleID == nil || *ticket.ScheduleID != "s-1" {
		t.Error("ticket must link back to the schedule")
	}

	schedule := store.schedules["s-1"]
	if schedule.Status != domain.ScheduleStatusStarted {
		t.Errorf("schedule status = %q, want iniciado", schedule.Status)
	}
	if schedule.StartedAt == nil {
		t.Error("iniciado_em missing")
	}

	published := dispatcher.published()
	if len(published) != 2 {
		t.Fatalf("expected schedule and ticket events, got %d", len(published))
	}
	if published[0].Action != events.ActionStarted {
		t.Errorf("first event action = %q", published[0].Action)
	}
	payload, ok := published[0].Payload.(events.TicketStartedPayload)
	if !ok || payload.TicketID != ticket.ID {
		t.Errorf("started event must carry the chamado id, got %+v", published[0].Payload)
	}
}

func TestStartScheduleWithMaintainer(t *testing.T) {
	svc, _, store, _ := newScheduleEnv()
	seedSchedule(store, "s-1", domain.ScheduleStatusScheduled)

	ticket, err := svc.Start(context.Background(), managerActor, "s-1", "tech@fabrica.com")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ticket.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want Em Andamento with maintainer", ticket.Status)
	}
	if ticket.ClaimedBy.ID == nil || *ticket.ClaimedBy.ID != "u-tech" {
		t.Error("maintainer must be the claimant")
	}
}

func TestStartScheduleGuards(t *testing.T) {
	svc, _, store, _ := newScheduleEnv()
	seedSchedule(store, "s-1", domain.ScheduleStatusStarted)

	if _, err := svc.Start(context.Background(), operActor, "s-1", ""); !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("operator start should be denied, got %v", err)
	}
	if _, err := svc.Start(context.Background(), techActor, "s-1", ""); !apperrors.IsCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("non-agendado schedule should conflict, got %v", err)
	}
	if _, err := svc.Start(context.Background(), techActor, "s-missing", ""); !apperrors.IsCode(err, apperrors.CodeScheduleNotFound) {
		t.Fatalf("missing schedule should be not found, got %v", err)
	}
	if _, err := svc.Start(context.Background(), techActor, "s-1", "ghost@fabrica.com"); !apperrors.IsCode(err, apperrors.CodeUnknownUser) {
		t.Fatalf("unknown maintainer should fail validation, got %v", err)
	}
}
