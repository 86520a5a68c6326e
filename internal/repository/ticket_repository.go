package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrimaq/maintenance-service/internal/domain"
)

// TicketFilter captures listing parameters. Status and Type are expected in
// canonical form (callers normalize free text first).
type TicketFilter struct {
	Status          *domain.TicketStatus
	Type            *domain.TicketType
	MachineID       *string
	MachineTag      *string
	CreatorEmail    *string
	MaintainerEmail *string
	From            *time.Time
	To              *time.Time
	Limit           int
	Offset          int
}

// ByCompletion reports whether the date filter and ordering should use the
// completion timestamp instead of the creation one.
func (f TicketFilter) ByCompletion() bool {
	return f.Status != nil && *f.Status == domain.TicketStatusCompleted
}

// TicketSummary is the listing projection of a chamado.
type TicketSummary struct {
	ID          string
	Machine     string
	Type        domain.TicketType
	Status      domain.TicketStatus
	Cause       *string
	Description string
	CreatedBy   *string
	Maintainer  *string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// TicketRepository encapsulates chamado persistence outside the lifecycle
// transactions.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]TicketSummary, int, error)
	UpdateChecklist(ctx context.Context, id string, items []domain.ChecklistItem) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	checklist, err := json.Marshal(domain.NormalizeChecklist(ticket.Checklist))
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO chamados
            (maquina_id, tipo, status, descricao, checklist, checklist_item_key,
             criado_por_id, criado_por_nome, criado_por_email,
             atendido_por_id, atendido_por_nome, atendido_por_email, atendido_em,
             responsavel_atual_id, agendamento_id)
        VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, criado_em, atualizado_em`
	return r.pool.QueryRow(ctx, query,
		ticket.MachineID,
		ticket.Type,
		ticket.Status,
		ticket.Description,
		checklist,
		ticket.ChecklistItemKey,
		ticket.CreatedBy.ID,
		ticket.CreatedBy.Name,
		ticket.CreatedBy.Email,
		ticket.ClaimedBy.ID,
		ticket.ClaimedBy.Name,
		ticket.ClaimedBy.Email,
		ticket.ClaimedAt,
		ticket.ResponsibleID,
		ticket.ScheduleID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

const ticketDetailQuery = `
        SELECT c.id, c.fs_id, c.maquina_id, m.nome, c.tipo, c.status,
               c.descricao, c.problema_reportado, c.causa,
               COALESCE(c.solucao, c.servico_realizado),
               COALESCE(c.servico_realizado, c.solucao),
               c.checklist, c.checklist_item_key,
               c.criado_por_id, COALESCE(c.criado_por_nome, ucri.nome), COALESCE(c.criado_por_email, ucri.email),
               c.atendido_por_id, c.atendido_por_nome, c.atendido_por_email, c.atendido_em,
               c.responsavel_atual_id, ru.nome, ru.email,
               c.concluido_por_id, c.concluido_por_nome, c.concluido_por_email,
               c.agendamento_id, c.criado_em, c.atualizado_em, c.concluido_em
        FROM chamados c
        JOIN maquinas m ON m.id = c.maquina_id
        LEFT JOIN usuarios ucri ON ucri.id = c.criado_por_id
        LEFT JOIN usuarios ru   ON ru.id   = c.responsavel_atual_id
        WHERE c.id = $1`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var (
		ticket    domain.Ticket
		checklist []byte
	)
	if err := r.pool.QueryRow(ctx, ticketDetailQuery, id).Scan(
		&ticket.ID,
		&ticket.ExternalID,
		&ticket.MachineID,
		&ticket.Machine,
		&ticket.Type,
		&ticket.Status,
		&ticket.Description,
		&ticket.ReportedProblem,
		&ticket.Cause,
		&ticket.Solution,
		&ticket.ServicePerformed,
		&checklist,
		&ticket.ChecklistItemKey,
		&ticket.CreatedBy.ID,
		&ticket.CreatedBy.Name,
		&ticket.CreatedBy.Email,
		&ticket.ClaimedBy.ID,
		&ticket.ClaimedBy.Name,
		&ticket.ClaimedBy.Email,
		&ticket.ClaimedAt,
		&ticket.ResponsibleID,
		&ticket.ResponsibleName,
		&ticket.ResponsibleEmail,
		&ticket.CompletedBy.ID,
		&ticket.CompletedBy.Name,
		&ticket.CompletedBy.Email,
		&ticket.ScheduleID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.NormalizeTicketStatus(string(ticket.Status))
	ticket.Checklist = domain.NormalizeChecklist(checklist)
	return &ticket, nil
}

func (r *ticketRepository) UpdateChecklist(ctx context.Context, id string, items []domain.ChecklistItem) error {
	checklist, err := json.Marshal(domain.NormalizeChecklist(items))
	if err != nil {
		return err
	}
	const query = `
        UPDATE chamados SET checklist = $2::jsonb, atualizado_em = NOW()
        WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, checklist)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]TicketSummary, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("LOWER(c.status) = LOWER($%d)", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("LOWER(c.tipo) = LOWER($%d)", len(args)))
	}
	if filter.MachineTag != nil {
		args = append(args, *filter.MachineTag)
		clauses = append(clauses, fmt.Sprintf("m.tag = $%d", len(args)))
	}
	if filter.MachineID != nil {
		args = append(args, *filter.MachineID)
		clauses = append(clauses, fmt.Sprintf("c.maquina_id = $%d", len(args)))
	}
	if filter.CreatorEmail != nil {
		args = append(args, *filter.CreatorEmail)
		clauses = append(clauses, fmt.Sprintf("LOWER(u.email) = LOWER($%d)", len(args)))
	}
	if filter.MaintainerEmail != nil {
		args = append(args, *filter.MaintainerEmail)
		idx := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(COALESCE(um.email, '')) = LOWER($%d) OR LOWER(COALESCE(c.atendido_por_email, '')) = LOWER($%d))", idx, idx))
	}

	// Completed listings filter and sort by completion time, everything else
	// by creation time.
	dateCol := "c.criado_em"
	if filter.ByCompletion() {
		dateCol = "c.concluido_em"
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("%s >= $%d", dateCol, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("%s <= $%d", dateCol, len(args)))
	}

	whereSQL := strings.Join(clauses, " AND ")
	const fromSQL = `
        FROM chamados c
        JOIN maquinas m ON m.id = c.maquina_id
        LEFT JOIN usuarios u  ON u.id  = c.criado_por_id
        LEFT JOIN usuarios um ON um.id = c.atendido_por_id`

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+fromSQL+" WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT c.id, m.nome, c.tipo, c.status, c.causa, c.descricao,
               COALESCE(c.criado_por_nome, u.nome), COALESCE(c.atendido_por_nome, um.nome),
               c.criado_em, c.concluido_em
        %s WHERE %s ORDER BY %s DESC NULLS LAST LIMIT %d OFFSET %d`,
		fromSQL, whereSQL, dateCol, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []TicketSummary
	for rows.Next() {
		var summary TicketSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.Machine,
			&summary.Type,
			&summary.Status,
			&summary.Cause,
			&summary.Description,
			&summary.CreatedBy,
			&summary.Maintainer,
			&summary.CreatedAt,
			&summary.CompletedAt,
		); err != nil {
			return nil, 0, err
		}
		summary.Status = domain.NormalizeTicketStatus(string(summary.Status))
		result = append(result, summary)
	}
	return result, total, rows.Err()
}
