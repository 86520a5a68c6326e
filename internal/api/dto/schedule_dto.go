package dto

import (
	"time"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/service"
)

// CreateScheduleRequest payload for POST /agendamentos.
type CreateScheduleRequest struct {
	MachineID   string    `json:"maquinaId"`
	Description string    `json:"descricao"`
	Checklist   any       `json:"checklist"`
	Start       time.Time `json:"inicio"`
	End         time.Time `json:"fim"`
}

// PatchScheduleRequest payload for PATCH /agendamentos/:id.
type PatchScheduleRequest struct {
	Start  *time.Time `json:"inicio"`
	End    *time.Time `json:"fim"`
	Status *string    `json:"status"`
}

// StartScheduleRequest payload for POST /agendamentos/:id/iniciar.
type StartScheduleRequest struct {
	MaintainerEmail string `json:"manutentorEmail"`
}

// ScheduleResponse is one agendamento on the wire.
type ScheduleResponse struct {
	ID            string                  `json:"id"`
	MachineID     string                  `json:"maquinaId"`
	Machine       string                  `json:"maquina"`
	Description   string                  `json:"descricao,omitempty"`
	Checklist     []ChecklistItemResponse `json:"checklist,omitempty"`
	OriginalStart time.Time               `json:"inicioOriginal"`
	OriginalEnd   time.Time               `json:"fimOriginal"`
	Start         time.Time               `json:"inicio"`
	End           time.Time               `json:"fim"`
	Status        string                  `json:"status"`
	Late          bool                    `json:"atrasado"`
	CreatedAt     time.Time               `json:"criadoEm"`
	StartedAt     *time.Time              `json:"iniciadoEm,omitempty"`
	CompletedAt   *time.Time              `json:"concluidoEm,omitempty"`
}

// StartScheduleResponse returns the chamado spawned by iniciar.
type StartScheduleResponse struct {
	ScheduleID string `json:"agendamentoId"`
	TicketID   string `json:"chamadoId"`
	Status     string `json:"status"`
}

// FromSchedule maps the aggregate.
func FromSchedule(schedule *domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:            schedule.ID,
		MachineID:     schedule.MachineID,
		Machine:       schedule.Machine,
		Description:   schedule.Description,
		Checklist:     fromChecklist(schedule.ChecklistTemplate),
		OriginalStart: schedule.OriginalStart,
		OriginalEnd:   schedule.OriginalEnd,
		Start:         schedule.Start,
		End:           schedule.End,
		Status:        string(schedule.Status),
		Late:          schedule.Late(),
		CreatedAt:     schedule.CreatedAt,
		StartedAt:     schedule.StartedAt,
		CompletedAt:   schedule.CompletedAt,
	}
}

// FromScheduleView maps a listing row with its computed late flag.
func FromScheduleView(view service.ScheduleView) ScheduleResponse {
	resp := FromSchedule(&view.Schedule)
	resp.Late = view.Late
	return resp
}
