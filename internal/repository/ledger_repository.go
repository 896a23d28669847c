package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

// LedgerRepository owns user point balances, the point transaction ledger
// and the manual override audit log.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// AddPoints increments a user's total points.
func (r *LedgerRepository) AddPoints(ctx context.Context, exec sqlx.ExtContext, userID string, amount int) error {
	const query = `UPDATE users SET total_points = total_points + $2 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("add user points: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertTransaction appends a ledger entry. It reports false without error
// when an entry with the same idempotency key already exists.
func (r *LedgerRepository) InsertTransaction(ctx context.Context, exec sqlx.ExtContext, txn *models.PointTransaction) (bool, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	const query = `INSERT INTO point_transactions (id, user_id, mission_id, amount, reason, description, idempotency_key, created_at)
        VALUES (:id, :user_id, :mission_id, :amount, :reason, :description, :idempotency_key, :created_at)
        ON CONFLICT (idempotency_key) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, txn)
	if err != nil {
		return false, fmt.Errorf("insert point transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert point transaction: %w", err)
	}
	return n == 1, nil
}

// InsertOverrideLog appends a manual override audit entry.
func (r *LedgerRepository) InsertOverrideLog(ctx context.Context, exec sqlx.ExtContext, entry *models.ManualOverrideLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `INSERT INTO manual_override_logs (id, coordinator_id, user_id, mission_id, action_type, reason, created_at)
        VALUES (:id, :coordinator_id, :user_id, :mission_id, :action_type, :reason, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("insert override log: %w", err)
	}
	return nil
}
