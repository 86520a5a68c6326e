package domain

import "time"

// TicketType classifies a chamado. Immutable after creation.
type TicketType string

const (
	TicketTypeCorrective TicketType = "corretiva"
	TicketTypePreventive TicketType = "preventiva"
	TicketTypePredictive TicketType = "preditiva"
)

// NormalizeTicketType folds free text to a known type, defaulting to
// corretiva the way the legacy API did.
func NormalizeTicketType(value string) TicketType {
	switch TicketType(normalizeBase(value)) {
	case TicketTypePreventive:
		return TicketTypePreventive
	case TicketTypePredictive:
		return TicketTypePredictive
	default:
		return TicketTypeCorrective
	}
}

// UserSnapshot is a denormalized copy of a user taken at the moment of an
// action (creation, claim, completion). Deliberate historical record: the
// source usuarios row may later change or be deactivated.
type UserSnapshot struct {
	ID    *string
	Name  *string
	Email *string
}

// Present reports whether the snapshot references a user.
func (s UserSnapshot) Present() bool {
	return s.ID != nil && *s.ID != ""
}

// Ticket is the chamado aggregate.
type Ticket struct {
	ID         string
	ExternalID *string // fs_id kept from the data migration
	MachineID  string
	Machine    string // maquinas.nome, joined on reads
	Type       TicketType
	Status     TicketStatus

	Description      string
	ReportedProblem  *string
	Cause            *string
	Solution         *string
	ServicePerformed *string
	Checklist        []ChecklistItem
	ChecklistItemKey *string // originating checklist item, when opened from one

	CreatedBy UserSnapshot
	// ClaimedBy is set exactly once by the first successful claim.
	ClaimedBy UserSnapshot
	ClaimedAt *time.Time
	// ResponsibleID is the mutable "current responsible" pointer; defaults to
	// the claimant but supports reassignment.
	ResponsibleID    *string
	ResponsibleName  *string
	ResponsibleEmail *string
	CompletedBy      UserSnapshot

	ScheduleID *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// AssociatedUserIDs returns the ids allowed to act on the ticket besides a
// manager: the claimant and the current responsible.
func (t *Ticket) AssociatedUserIDs() []string {
	var ids []string
	for _, id := range []*string{t.ClaimedBy.ID, t.ResponsibleID} {
		if id != nil && *id != "" {
			ids = append(ids, *id)
		}
	}
	return ids
}

// IsAssociated reports whether the user id is one of the ticket's associated
// actors.
func (t *Ticket) IsAssociated(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range t.AssociatedUserIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// Observation is one append-only note on a ticket. Never mutated or deleted.
type Observation struct {
	ID        string
	TicketID  string
	AuthorID  *string
	Author    string
	Text      string
	CreatedAt time.Time
}
