package dto

import (
	"time"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/repository"
)

// CreateTicketRequest payload for POST /chamados.
type CreateTicketRequest struct {
	MachineID       string   `json:"maquinaId"`
	MachineTag      string   `json:"maquinaTag"`
	MachineName     string   `json:"maquinaNome"`
	Description     string   `json:"descricao"`
	Type            string   `json:"tipo"`
	Status          string   `json:"status"`
	MaintainerEmail string   `json:"manutentorEmail"`
	Checklist       []string `json:"checklist"`
}

// CompleteTicketRequest payload for POST /chamados/:id/concluir. Checklist
// accepts strings, objects or JSON text.
type CompleteTicketRequest struct {
	Checklist any     `json:"checklist"`
	Cause     *string `json:"causa"`
	Solution  *string `json:"solucao"`
}

// PatchStatusRequest payload for PATCH /chamados/:id/status.
type PatchStatusRequest struct {
	Status          string `json:"status"`
	MaintainerEmail string `json:"manutentorEmail"`
}

// ObservationRequest payload for POST /chamados/:id/observacoes.
type ObservationRequest struct {
	Text string `json:"texto"`
}

// ChecklistPatchRequest payload for PATCH /chamados/:id/checklist.
type ChecklistPatchRequest struct {
	Checklist any `json:"checklist"`
}

// ChecklistItemResponse is one checklist entry on the wire.
type ChecklistItemResponse struct {
	Key      string `json:"key,omitempty"`
	Item     string `json:"item"`
	Answer   string `json:"resposta"`
	Comment  string `json:"comentario,omitempty"`
}

// UserRefResponse is the denormalized user snapshot on the wire.
type UserRefResponse struct {
	ID    *string `json:"id,omitempty"`
	Name  *string `json:"nome,omitempty"`
	Email *string `json:"email,omitempty"`
}

// TicketSummaryResponse is one listing row.
type TicketSummaryResponse struct {
	ID          string     `json:"id"`
	Machine     string     `json:"maquina"`
	Type        string     `json:"tipo"`
	Status      string     `json:"status"`
	Cause       *string    `json:"causa,omitempty"`
	Description string     `json:"descricao"`
	CreatedBy   *string    `json:"criadoPor,omitempty"`
	Maintainer  *string    `json:"manutentor,omitempty"`
	CreatedAt   time.Time  `json:"criadoEm"`
	CompletedAt *time.Time `json:"concluidoEm,omitempty"`
}

// TicketListResponse wraps a page of chamados.
type TicketListResponse struct {
	Items    []TicketSummaryResponse `json:"items"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"pageSize"`
	Total    int                     `json:"total"`
	HasNext  bool                    `json:"hasNext"`
}

// ObservationResponse is one immutable note.
type ObservationResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"autor"`
	Text      string    `json:"texto"`
	CreatedAt time.Time `json:"criadoEm"`
}

// TicketDetailResponse is the full chamado read model.
type TicketDetailResponse struct {
	ID           string                  `json:"id"`
	ExternalID   *string                 `json:"fsId,omitempty"`
	MachineID    string                  `json:"maquinaId"`
	Machine      string                  `json:"maquina"`
	Type         string                  `json:"tipo"`
	Status       string                  `json:"status"`
	Description  string                  `json:"descricao"`
	Problem      *string                 `json:"problemaRelatado,omitempty"`
	Cause        *string                 `json:"causa,omitempty"`
	Solution     *string                 `json:"solucao,omitempty"`
	Checklist    []ChecklistItemResponse `json:"checklist,omitempty"`
	CreatedBy    UserRefResponse         `json:"criadoPor"`
	ClaimedBy    *UserRefResponse        `json:"atendidoPor,omitempty"`
	ClaimedAt    *time.Time              `json:"atendidoEm,omitempty"`
	CompletedBy  *UserRefResponse        `json:"concluidoPor,omitempty"`
	ScheduleID   *string                 `json:"agendamentoId,omitempty"`
	CreatedAt    time.Time               `json:"criadoEm"`
	UpdatedAt    time.Time               `json:"atualizadoEm"`
	CompletedAt  *time.Time              `json:"concluidoEm,omitempty"`
	Observations []ObservationResponse   `json:"observacoes,omitempty"`
}

// FromTicketSummary maps a repository row.
func FromTicketSummary(row repository.TicketSummary) TicketSummaryResponse {
	return TicketSummaryResponse{
		ID:          row.ID,
		Machine:     row.Machine,
		Type:        string(row.Type),
		Status:      string(row.Status),
		Cause:       row.Cause,
		Description: row.Description,
		CreatedBy:   row.CreatedBy,
		Maintainer:  row.Maintainer,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
	}
}

// FromTicket maps the aggregate plus its observations.
func FromTicket(ticket *domain.Ticket, observations []domain.Observation) TicketDetailResponse {
	resp := TicketDetailResponse{
		ID:          ticket.ID,
		ExternalID:  ticket.ExternalID,
		MachineID:   ticket.MachineID,
		Machine:     ticket.Machine,
		Type:        string(ticket.Type),
		Status:      string(ticket.Status),
		Description: ticket.Description,
		Problem:     ticket.ReportedProblem,
		Cause:       ticket.Cause,
		Solution:    ticket.Solution,
		Checklist:   fromChecklist(ticket.Checklist),
		CreatedBy:   fromSnapshot(ticket.CreatedBy),
		ClaimedAt:   ticket.ClaimedAt,
		ScheduleID:  ticket.ScheduleID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		CompletedAt: ticket.CompletedAt,
	}
	if ticket.ClaimedBy.Present() {
		ref := fromSnapshot(ticket.ClaimedBy)
		resp.ClaimedBy = &ref
	}
	if ticket.CompletedBy.Present() {
		ref := fromSnapshot(ticket.CompletedBy)
		resp.CompletedBy = &ref
	}
	for _, obs := range observations {
		resp.Observations = append(resp.Observations, FromObservation(obs))
	}
	return resp
}

// FromObservation maps one note.
func FromObservation(obs domain.Observation) ObservationResponse {
	return ObservationResponse{
		ID:        obs.ID,
		Author:    obs.Author,
		Text:      obs.Text,
		CreatedAt: obs.CreatedAt,
	}
}

func fromChecklist(items []domain.ChecklistItem) []ChecklistItemResponse {
	if len(items) == 0 {
		return nil
	}
	out := make([]ChecklistItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ChecklistItemResponse{
			Key:     item.Key,
			Item:    item.Item,
			Answer:  string(item.Resposta),
			Comment: item.Comentario,
		})
	}
	return out
}

func fromSnapshot(snap domain.UserSnapshot) UserRefResponse {
	return UserRefResponse{ID: snap.ID, Name: snap.Name, Email: snap.Email}
}
