package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrimaq/maintenance-service/internal/domain"
)

// ClaimPatch records who is taking an open chamado.
type ClaimPatch struct {
	UserID string
	Name   *string
	Email  *string
}

// CompletionPatch closes a chamado. Checklist, Cause and Solution follow
// COALESCE semantics: a nil field never overwrites a stored value.
type CompletionPatch struct {
	Checklist []domain.ChecklistItem
	Cause     *string
	Solution  *string
	By        domain.UserSnapshot
}

// MaintainerPatch identifies the user an administrative move to Em Andamento
// hands the chamado to.
type MaintainerPatch struct {
	UserID string
	Name   *string
	Email  *string
}

// LifecycleTx is a single database transaction holding row locks for the
// duration of a state transition. Every precondition is checked against the
// locked row; Rollback after an error leaves nothing applied.
type LifecycleTx interface {
	// LockTicket reads the chamado under FOR UPDATE, serializing concurrent
	// transitions on the same row.
	LockTicket(ctx context.Context, id string) (*domain.Ticket, error)
	ApplyClaim(ctx context.Context, id string, patch ClaimPatch) error
	ApplyCompletion(ctx context.Context, id string, patch CompletionPatch) error
	ApplyReopen(ctx context.Context, id string) error
	ApplyHandover(ctx context.Context, id string, patch MaintainerPatch) error
	ApplyForcedCompletion(ctx context.Context, id string, by domain.UserSnapshot) error
	ApplyCancel(ctx context.Context, id string) error

	// LockSchedule reads the agendamento under FOR UPDATE.
	LockSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error
	MarkScheduleStarted(ctx context.Context, id string) error
	MarkScheduleCompleted(ctx context.Context, id string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// LifecycleStore opens lifecycle transactions.
type LifecycleStore interface {
	Begin(ctx context.Context) (LifecycleTx, error)
}

type lifecycleStore struct {
	pool *pgxpool.Pool
}

// NewLifecycleStore returns a pgx-backed store.
func NewLifecycleStore(pool *pgxpool.Pool) LifecycleStore {
	return &lifecycleStore{pool: pool}
}

func (s *lifecycleStore) Begin(ctx context.Context) (LifecycleTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &lifecycleTx{tx: tx}, nil
}

type lifecycleTx struct {
	tx pgx.Tx
}

func (t *lifecycleTx) LockTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, maquina_id, tipo, status, descricao, causa, solucao, checklist,
               criado_por_id, atendido_por_id, atendido_por_nome, atendido_por_email, atendido_em,
               responsavel_atual_id, agendamento_id, criado_em, atualizado_em, concluido_em
        FROM chamados
        WHERE id = $1
        FOR UPDATE`
	var (
		ticket    domain.Ticket
		checklist []byte
	)
	if err := t.tx.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.MachineID,
		&ticket.Type,
		&ticket.Status,
		&ticket.Description,
		&ticket.Cause,
		&ticket.Solution,
		&checklist,
		&ticket.CreatedBy.ID,
		&ticket.ClaimedBy.ID,
		&ticket.ClaimedBy.Name,
		&ticket.ClaimedBy.Email,
		&ticket.ClaimedAt,
		&ticket.ResponsibleID,
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

// ApplyClaim moves the chamado to Em Andamento. The claimant columns only
// fill when still empty, so a duplicate delivery of the same claim is a
// no-op on attribution.
func (t *lifecycleTx) ApplyClaim(ctx context.Context, id string, patch ClaimPatch) error {
	const query = `
        UPDATE chamados
           SET status               = $2,
               responsavel_atual_id = COALESCE(responsavel_atual_id, $3),
               atendido_por_id      = COALESCE(atendido_por_id,      $3),
               atendido_por_email   = COALESCE(atendido_por_email,   $4),
               atendido_por_nome    = COALESCE(atendido_por_nome,    $5),
               atendido_em          = COALESCE(atendido_em,          NOW()),
               atualizado_em        = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.TicketStatusInProgress, patch.UserID, patch.Email, patch.Name)
}

func (t *lifecycleTx) ApplyCompletion(ctx context.Context, id string, patch CompletionPatch) error {
	var checklist []byte
	if len(patch.Checklist) > 0 {
		data, err := json.Marshal(patch.Checklist)
		if err != nil {
			return err
		}
		checklist = data
	}
	const query = `
        UPDATE chamados
           SET status              = $2,
               concluido_em        = NOW(),
               checklist           = COALESCE($3::jsonb, checklist),
               causa               = COALESCE($4::text, causa),
               solucao             = COALESCE($5::text, solucao),
               servico_realizado   = COALESCE($5::text, servico_realizado),
               concluido_por_id    = $6,
               concluido_por_email = $7,
               concluido_por_nome  = $8,
               atualizado_em       = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.TicketStatusCompleted,
		checklist, patch.Cause, patch.Solution,
		patch.By.ID, patch.By.Email, patch.By.Name)
}

// ApplyReopen is the administrative return to Aberto: claimant, responsible
// and completion marks are all cleared.
func (t *lifecycleTx) ApplyReopen(ctx context.Context, id string) error {
	const query = `
        UPDATE chamados
           SET status               = $2,
               responsavel_atual_id = NULL,
               atendido_por_id      = NULL,
               atendido_por_email   = NULL,
               atendido_por_nome    = NULL,
               atendido_em          = NULL,
               concluido_em         = NULL,
               concluido_por_id     = NULL,
               concluido_por_email  = NULL,
               concluido_por_nome   = NULL,
               atualizado_em        = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.TicketStatusOpen)
}

func (t *lifecycleTx) ApplyHandover(ctx context.Context, id string, patch MaintainerPatch) error {
	const query = `
        UPDATE chamados
           SET status               = $2,
               responsavel_atual_id = $3,
               atendido_por_id      = $3,
               atendido_por_email   = $4,
               atendido_por_nome    = $5,
               atendido_em          = COALESCE(atendido_em, NOW()),
               atualizado_em        = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.TicketStatusInProgress, patch.UserID, patch.Email, patch.Name)
}

func (t *lifecycleTx) ApplyForcedCompletion(ctx context.Context, id string, by domain.UserSnapshot) error {
	const query = `
        UPDATE chamados
           SET status              = $2,
               concluido_em        = NOW(),
               concluido_por_id    = $3,
               concluido_por_email = $4,
               concluido_por_nome  = $5,
               atualizado_em       = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.TicketStatusCompleted, by.ID, by.Email, by.Name)
}

func (t *lifecycleTx) ApplyCancel(ctx context.Context, id string) error {
	const query = `
        UPDATE chamados SET status = $2, atualizado_em = NOW() WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.TicketStatusCancelled)
}

func (t *lifecycleTx) LockSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	const query = `
        SELECT a.id, a.maquina_id, m.nome, a.descricao,
               COALESCE(a.itens_checklist, '[]'::jsonb),
               a.original_start, a.original_end, a.start_ts, a.end_ts,
               a.status, a.criado_em, a.iniciado_em, a.concluido_em
        FROM agendamentos_preventivos a
        JOIN maquinas m ON m.id = a.maquina_id
        WHERE a.id = $1
        FOR UPDATE OF a`
	var (
		schedule domain.Schedule
		template []byte
	)
	if err := t.tx.QueryRow(ctx, query, id).Scan(
		&schedule.ID,
		&schedule.MachineID,
		&schedule.Machine,
		&schedule.Description,
		&template,
		&schedule.OriginalStart,
		&schedule.OriginalEnd,
		&schedule.Start,
		&schedule.End,
		&schedule.Status,
		&schedule.CreatedAt,
		&schedule.StartedAt,
		&schedule.CompletedAt,
	); err != nil {
		return nil, err
	}
	schedule.Status = domain.NormalizeScheduleStatus(string(schedule.Status))
	schedule.ChecklistTemplate = domain.NormalizeChecklist(template)
	return &schedule, nil
}

func (t *lifecycleTx) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	checklist, err := json.Marshal(domain.NormalizeChecklist(ticket.Checklist))
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO chamados
            (maquina_id, tipo, status, descricao, checklist,
             criado_por_id, criado_por_nome, criado_por_email,
             atendido_por_id, atendido_por_nome, atendido_por_email, atendido_em,
             responsavel_atual_id, agendamento_id)
        VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, criado_em, atualizado_em`
	return t.tx.QueryRow(ctx, query,
		ticket.MachineID,
		ticket.Type,
		ticket.Status,
		ticket.Description,
		checklist,
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

func (t *lifecycleTx) MarkScheduleStarted(ctx context.Context, id string) error {
	const query = `
        UPDATE agendamentos_preventivos
           SET status = $2, iniciado_em = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.ScheduleStatusStarted)
}

func (t *lifecycleTx) MarkScheduleCompleted(ctx context.Context, id string) error {
	const query = `
        UPDATE agendamentos_preventivos
           SET status = $2, concluido_em = NOW()
         WHERE id = $1`
	return exec(ctx, t.tx, query, id, domain.ScheduleStatusCompleted)
}

func (t *lifecycleTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *lifecycleTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func exec(ctx context.Context, tx pgx.Tx, query string, args ...any) error {
	cmd, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
