package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// ScheduleFilter captures agendamento listing parameters.
type ScheduleFilter struct {
	From        *time.Time
	To          *time.Time
	Limit       int
	RecentFirst bool
}

// SchedulePatch carries the fields a manager may change on an entry. Nil
// fields are left untouched.
type SchedulePatch struct {
	Start  *time.Time
	End    *time.Time
	Status *domain.ScheduleStatus
}

// ScheduleRepository encapsulates agendamento persistence outside the bridge
// transaction.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error)
	Update(ctx context.Context, id string, patch SchedulePatch) error
	Delete(ctx context.Context, id string) error
}

type scheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository instantiates repository.
func NewScheduleRepository(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepository{pool: pool}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *domain.Schedule) error {
	template, err := json.Marshal(domain.NormalizeChecklist(schedule.ChecklistTemplate))
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO agendamentos_preventivos
            (maquina_id, descricao, itens_checklist, original_start, original_end, start_ts, end_ts, status)
        VALUES ($1, $2, $3::jsonb, $4, $5, $4, $5, $6)
        RETURNING id, criado_em`
	return r.pool.QueryRow(ctx, query,
		schedule.MachineID,
		schedule.Description,
		template,
		schedule.OriginalStart,
		schedule.OriginalEnd,
		schedule.Status,
	).Scan(&schedule.ID, &schedule.CreatedAt)
}

const scheduleSelect = `
        SELECT a.id, a.maquina_id, m.nome, a.descricao,
               COALESCE(a.itens_checklist, '[]'::jsonb),
               a.original_start, a.original_end, a.start_ts, a.end_ts,
               a.status, a.criado_em, a.iniciado_em, a.concluido_em
        FROM agendamentos_preventivos a
        JOIN maquinas m ON m.id = a.maquina_id`

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, scheduleSelect+" WHERE a.id = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanSchedule(rows)
}

func (r *scheduleRepository) List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("a.start_ts >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("a.end_ts <= $%d", len(args)))
	}

	order := "a.start_ts ASC"
	if filter.RecentFirst {
		order = "a.criado_em DESC"
	}

	query := scheduleSelect + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY " + order
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *schedule)
	}
	return result, rows.Err()
}

func (r *scheduleRepository) Update(ctx context.Context, id string, patch SchedulePatch) error {
	sets := []string{}
	args := []any{}

	if patch.Start != nil {
		args = append(args, *patch.Start)
		sets = append(sets, fmt.Sprintf("start_ts = $%d", len(args)))
	}
	if patch.End != nil {
		args = append(args, *patch.End)
		sets = append(sets, fmt.Sprintf("end_ts = $%d", len(args)))
	}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
		if *patch.Status == domain.ScheduleStatusCompleted {
			sets = append(sets, "concluido_em = NOW()")
		} else {
			sets = append(sets, "concluido_em = NULL")
		}
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE agendamentos_preventivos SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes an entry. An agendamento that already spawned a chamado is
// protected by the chamados foreign key; the violation surfaces as a
// validation error instead of an infrastructure failure.
func (r *scheduleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM agendamentos_preventivos WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperrors.NewValidationError(apperrors.CodeValidation,
				"agendamento already has a linked chamado and cannot be removed",
				map[string]any{"agendamento_id": id})
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSchedule(rows pgx.Rows) (*domain.Schedule, error) {
	var (
		schedule domain.Schedule
		template []byte
	)
	if err := rows.Scan(
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
