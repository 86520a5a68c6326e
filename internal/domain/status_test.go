package domain

import "testing"

func TestNormalizeTicketStatus(t *testing.T) {
	cases := []struct {
		in   string
		want TicketStatus
	}{
		{"Aberto", TicketStatusOpen},
		{"aberto", TicketStatusOpen},
		{"ABERTO", TicketStatusOpen},
		{"Em Andamento", TicketStatusInProgress},
		{"em_andamento", TicketStatusInProgress},
		{"em-andamento", TicketStatusInProgress},
		{"EM  ANDAMENTO", TicketStatusInProgress},
		{"andamento", TicketStatusInProgress},
		{"Concluído", TicketStatusCompleted},
		{"concluido", TicketStatusCompleted},
		{"concluída", TicketStatusCompleted},
		{"conclusao", TicketStatusCompleted},
		{"Cancelado", TicketStatusCancelled},
		{"cancelada", TicketStatusCancelled},
		{"", TicketStatusOpen},
		{"qualquer coisa", TicketStatusOpen},
	}
	for _, tc := range cases {
		if got := NormalizeTicketStatus(tc.in); got != tc.want {
			t.Errorf("NormalizeTicketStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTicketStatusIdempotent(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusCompleted, TicketStatusCancelled} {
		if got := NormalizeTicketStatus(string(status)); got != status {
			t.Errorf("canonical %q renormalized to %q", status, got)
		}
	}
}

func TestNormalizeScheduleStatus(t *testing.T) {
	cases := []struct {
		in   string
		want ScheduleStatus
	}{
		{"agendado", ScheduleStatusScheduled},
		{"AGENDADA", ScheduleStatusScheduled},
		{"iniciado", ScheduleStatusStarted},
		{"Iniciada", ScheduleStatusStarted},
		{"concluído", ScheduleStatusCompleted},
		{"cancelado", ScheduleStatusCancelled},
		{"", ScheduleStatusScheduled},
		{"desconhecido", ScheduleStatusScheduled},
	}
	for _, tc := range cases {
		if got := NormalizeScheduleStatus(tc.in); got != tc.want {
			t.Errorf("NormalizeScheduleStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTicketStatusPredicates(t *testing.T) {
	if !TicketStatusOpen.IsActive() || !TicketStatusInProgress.IsActive() {
		t.Fatal("open and in-progress must be active")
	}
	if TicketStatusCompleted.IsActive() || TicketStatusCancelled.IsActive() {
		t.Fatal("terminal statuses must not be active")
	}
	if !TicketStatusCompleted.IsTerminal() || !TicketStatusCancelled.IsTerminal() {
		t.Fatal("completed and cancelled must be terminal")
	}
}
