package domain

import "time"

// Schedule is an agendamento preventivo: a planned preventive-maintenance
// window that, once started, spawns a linked preventive ticket.
type Schedule struct {
	ID          string
	MachineID   string
	Machine     string // maquinas.nome, joined on reads
	Description string
	// Checklist template copied onto the spawned ticket.
	ChecklistTemplate []ChecklistItem
	// Planned window, immutable once created.
	OriginalStart time.Time
	OriginalEnd   time.Time
	// Actual window, defaults to the planned one and moves on reschedule.
	Start  time.Time
	End    time.Time
	Status ScheduleStatus

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Late reports whether the entry was completed after its window closed.
func (s *Schedule) Late() bool {
	return s.Status == ScheduleStatusCompleted && s.CompletedAt != nil && s.CompletedAt.After(s.End)
}
