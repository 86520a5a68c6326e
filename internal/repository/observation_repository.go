package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// pgForeignKeyViolation is the Postgres error code raised when the chamado
// referenced by an observation does not exist.
const pgForeignKeyViolation = "23503"

// ObservationRepository stores the append-only notes of a chamado.
type ObservationRepository interface {
	Append(ctx context.Context, obs *domain.Observation) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Observation, error)
}

type observationRepository struct {
	pool *pgxpool.Pool
}

// NewObservationRepository builds repository.
func NewObservationRepository(pool *pgxpool.Pool) ObservationRepository {
	return &observationRepository{pool: pool}
}

// Append inserts the observation. A missing ticket is detected through the
// foreign-key violation rather than a pre-check, so there is no window
// between an existence check and the insert.
func (r *observationRepository) Append(ctx context.Context, obs *domain.Observation) error {
	const query = `
        INSERT INTO chamado_observacoes (chamado_id, autor_id, autor_nome, texto, criado_em)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, criado_em`
	err := r.pool.QueryRow(ctx, query,
		obs.TicketID,
		obs.AuthorID,
		obs.Author,
		obs.Text,
	).Scan(&obs.ID, &obs.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperrors.NewNotFound(apperrors.CodeTicketNotFound, "chamado", map[string]any{"chamado_id": obs.TicketID})
		}
		return err
	}
	return nil
}

func (r *observationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Observation, error) {
	const query = `
        SELECT o.id, o.chamado_id, o.autor_id, COALESCE(o.autor_nome, u.nome, 'Sistema'), o.texto, o.criado_em
        FROM chamado_observacoes o
        LEFT JOIN usuarios u ON u.id = o.autor_id
        WHERE o.chamado_id = $1
        ORDER BY o.criado_em ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Observation
	for rows.Next() {
		var obs domain.Observation
		if err := rows.Scan(&obs.ID, &obs.TicketID, &obs.AuthorID, &obs.Author, &obs.Text, &obs.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}
