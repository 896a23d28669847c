package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

const missionColumns = `id, title, status, start_time, end_time, actual_start_time, actual_end_time,
        location_gps, max_volunteers, current_volunteers, points_value, auto_promote, created_by, created_at, updated_at`

// MissionRepository reads missions and maintains their occupancy counter.
type MissionRepository struct {
	db *sqlx.DB
}

// NewMissionRepository constructs the repository.
func NewMissionRepository(db *sqlx.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

func (r *MissionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a mission without locking it.
func (r *MissionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = $1`
	var mission models.Mission
	if err := sqlx.GetContext(ctx, r.exec(exec), &mission, query, id); err != nil {
		return nil, err
	}
	return &mission, nil
}

// LockByID returns a mission holding a row lock until the transaction ends.
func (r *MissionRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = $1 FOR UPDATE`
	var mission models.Mission
	if err := sqlx.GetContext(ctx, r.exec(exec), &mission, query, id); err != nil {
		return nil, err
	}
	return &mission, nil
}

// ListIDs returns every mission id ordered by creation.
func (r *MissionRepository) ListIDs(ctx context.Context, exec sqlx.ExtContext) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, `SELECT id FROM missions ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list mission ids: %w", err)
	}
	return ids, nil
}

// CountOccupying counts registrations holding a slot on the mission.
func (r *MissionRepository) CountOccupying(ctx context.Context, exec sqlx.ExtContext, missionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE mission_id = $1 AND status IN ($2, $3, $4)`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, missionID,
		models.RegistrationStatusRegistered, models.RegistrationStatusCheckedIn, models.RegistrationStatusCompleted); err != nil {
		return 0, fmt.Errorf("count occupying registrations: %w", err)
	}
	return count, nil
}

// SetVolunteers overwrites the occupancy counter.
func (r *MissionRepository) SetVolunteers(ctx context.Context, exec sqlx.ExtContext, missionID string, count int, at time.Time) error {
	if count < 0 {
		return fmt.Errorf("set volunteers: negative count %d for mission %s", count, missionID)
	}
	const query = `UPDATE missions SET current_volunteers = $2, updated_at = $3 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, missionID, count, at)
	if err != nil {
		return fmt.Errorf("set volunteers: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsCollaborator reports whether userID is on the mission's team.
func (r *MissionRepository) IsCollaborator(ctx context.Context, exec sqlx.ExtContext, missionID, userID string) (bool, error) {
	const query = `SELECT 1 FROM mission_collaborators WHERE mission_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, missionID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check mission collaborator: %w", err)
	}
	return true, nil
}
