package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	inErrors "github.com/plateful/plateful/internal/errors"
)

// Repository persists one cart snapshot row per customer. Writes are
// last-write-wins; concurrent sessions for the same customer are not
// coordinated.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const upsertSnapshot = `
INSERT INTO cart_snapshots (customer_id, snapshot, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (customer_id)
DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()
`

func (r *Repository) UpsertSnapshot(c context.Context, customerID string, snapshot []byte) error {
	_, err := r.pool.Exec(c, upsertSnapshot, customerID, snapshot)
	if err != nil {
		return fmt.Errorf("failed upserting cart snapshot with error=%w", err)
	}
	return nil
}

const findSnapshot = `
SELECT snapshot FROM cart_snapshots WHERE customer_id = $1
`

func (r *Repository) FindSnapshot(c context.Context, customerID string) ([]byte, error) {
	var snapshot []byte
	err := r.pool.QueryRow(c, findSnapshot, customerID).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, inErrors.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed finding cart snapshot with error=%w", err)
	}
	return snapshot, nil
}

const deleteSnapshot = `
DELETE FROM cart_snapshots WHERE customer_id = $1
`

func (r *Repository) DeleteSnapshot(c context.Context, customerID string) error {
	_, err := r.pool.Exec(c, deleteSnapshot, customerID)
	if err != nil {
		return fmt.Errorf("failed deleting cart snapshot with error=%w", err)
	}
	return nil
}
