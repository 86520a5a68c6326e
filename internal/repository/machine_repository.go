package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrimaq/maintenance-service/internal/domain"
)

// MachineRepository resolves maquinas rows (read-only, owned externally).
type MachineRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Machine, error)
	// GetByTagOrName resolves a machine by its tag or display name; either
	// argument may be empty.
	GetByTagOrName(ctx context.Context, tag, name string) (*domain.Machine, error)
}

type machineRepository struct {
	pool *pgxpool.Pool
}

// NewMachineRepository returns a Postgres-backed implementation.
func NewMachineRepository(pool *pgxpool.Pool) MachineRepository {
	return &machineRepository{pool: pool}
}

func (r *machineRepository) GetByID(ctx context.Context, id string) (*domain.Machine, error) {
	const query = `SELECT id, nome, COALESCE(tag, '') FROM maquinas WHERE id = $1`
	var machine domain.Machine
	if err := r.pool.QueryRow(ctx, query, id).Scan(&machine.ID, &machine.Name, &machine.Tag); err != nil {
		return nil, err
	}
	return &machine, nil
}

func (r *machineRepository) GetByTagOrName(ctx context.Context, tag, name string) (*domain.Machine, error) {
	const query = `
        SELECT id, nome, COALESCE(tag, '') FROM maquinas
        WHERE ($1 <> '' AND tag = $1) OR ($2 <> '' AND nome = $2)
        LIMIT 1`
	var machine domain.Machine
	if err := r.pool.QueryRow(ctx, query, tag, name).Scan(&machine.ID, &machine.Name, &machine.Tag); err != nil {
		return nil, err
	}
	return &machine, nil
}
