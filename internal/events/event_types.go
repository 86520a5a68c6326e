package events

import "time"

// Topic groups events by the entity they concern.
type Topic string

const (
	TopicTickets   Topic = "chamados"
	TopicSchedules Topic = "agendamentos"
)

// Action identifies what happened to the entity.
type Action string

const (
	ActionCreated          Action = "created"
	ActionUpdated          Action = "updated"
	ActionStarted          Action = "started"
	ActionDeleted          Action = "deleted"
	ActionObservationAdded Action = "observacao-criada"
)

// Event is a lifecycle notification. Consumers (the realtime UI gateway)
// treat it as advisory: it carries ids, not authoritative state.
type Event struct {
	ID        string    `json:"event_id"`
	Topic     Topic     `json:"topic"`
	Action    Action    `json:"action"`
	EntityID  string    `json:"id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketStartedPayload accompanies a schedule "started" event with the id of
// the chamado it spawned.
type TicketStartedPayload struct {
	TicketID string `json:"chamadoId"`
}
