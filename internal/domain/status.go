package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TicketStatus enumerates lifecycle states for chamados. The canonical
// spellings carry no accents so that normalizing stored values is a fixed
// point.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Aberto"
	TicketStatusInProgress TicketStatus = "Em Andamento"
	TicketStatusCompleted  TicketStatus = "Concluido"
	TicketStatusCancelled  TicketStatus = "Cancelado"
)

// ScheduleStatus enumerates lifecycle states for preventive schedule entries.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "agendado"
	ScheduleStatusStarted   ScheduleStatus = "iniciado"
	ScheduleStatusCompleted ScheduleStatus = "concluido"
	ScheduleStatusCancelled ScheduleStatus = "cancelado"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeBase folds an arbitrary status string: strips diacritics, treats
// underscores/hyphens as spaces, lowercases, and collapses whitespace.
func normalizeBase(value string) string {
	folded, _, err := transform.String(stripMarks, value)
	if err != nil {
		folded = value
	}
	folded = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// NormalizeTicketStatus maps any free-form variant ("Concluído", "em_andamento",
// "EM-ANDAMENTO"...) to one of the four canonical ticket statuses. It never
// fails; unrecognized input falls back to Aberto.
func NormalizeTicketStatus(value string) TicketStatus {
	n := normalizeBase(value)

	switch {
	case strings.HasPrefix(n, "conclu"):
		return TicketStatusCompleted
	case strings.Contains(n, "andament"):
		return TicketStatusInProgress
	case strings.HasPrefix(n, "cancel"):
		return TicketStatusCancelled
	case strings.HasPrefix(n, "abert"):
		return TicketStatusOpen
	}
	return TicketStatusOpen
}

// NormalizeScheduleStatus maps any free-form variant to one of the four
// canonical schedule statuses, falling back to agendado.
func NormalizeScheduleStatus(value string) ScheduleStatus {
	n := normalizeBase(value)

	switch {
	case strings.HasPrefix(n, "conclu"):
		return ScheduleStatusCompleted
	case strings.HasPrefix(n, "inici"):
		return ScheduleStatusStarted
	case strings.HasPrefix(n, "cancel"):
		return ScheduleStatusCancelled
	case strings.HasPrefix(n, "agend"):
		return ScheduleStatusScheduled
	}
	return ScheduleStatusScheduled
}

// IsActive reports whether the status counts as live for creation rules and
// default listings.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// IsTerminal reports whether no further transitions are allowed outside the
// administrative patch path.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusCancelled
}
