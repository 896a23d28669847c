package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

const attendanceColumns = `id, user_id, mission_id, check_in_time, check_out_time, gps_proof, total_hours,
        status, verified_by, verified_at, override_reason, created_at, updated_at`

const attendanceDetailSelect = `SELECT a.id, a.user_id, a.mission_id, a.check_in_time, a.check_out_time, a.gps_proof,
        a.total_hours, a.status, a.verified_by, a.verified_at, a.override_reason, a.created_at, a.updated_at,
        u.name AS user_name, m.title AS mission_title
        FROM attendances a
        JOIN users u ON u.id = a.user_id
        JOIN missions m ON m.id = a.mission_id`

// AttendanceRepository persists attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockByUserAndMission returns the attendance row for a user on a mission, locked.
func (r *AttendanceRepository) LockByUserAndMission(ctx context.Context, exec sqlx.ExtContext, userID, missionID string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE user_id = $1 AND mission_id = $2 FOR UPDATE`
	var att models.Attendance
	if err := sqlx.GetContext(ctx, r.exec(exec), &att, query, userID, missionID); err != nil {
		return nil, err
	}
	return &att, nil
}

// FindByID returns an attendance row by id without locking it.
func (r *AttendanceRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1`
	var att models.Attendance
	if err := sqlx.GetContext(ctx, r.exec(exec), &att, query, id); err != nil {
		return nil, err
	}
	return &att, nil
}

// FindOpenByUser returns the user's attendance with no check-out, if any.
func (r *AttendanceRepository) FindOpenByUser(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances
        WHERE user_id = $1 AND check_in_time IS NOT NULL AND check_out_time IS NULL
        ORDER BY check_in_time DESC LIMIT 1`
	var att models.Attendance
	if err := sqlx.GetContext(ctx, r.exec(exec), &att, query, userID); err != nil {
		return nil, err
	}
	return &att, nil
}

// Create inserts an attendance row. A second open row for the same user
// fails with ErrDuplicate.
func (r *AttendanceRepository) Create(ctx context.Context, exec sqlx.ExtContext, att *models.Attendance) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendances (id, user_id, mission_id, check_in_time, check_out_time, gps_proof, total_hours,
        status, verified_by, verified_at, override_reason, created_at, updated_at)
        VALUES (:id, :user_id, :mission_id, :check_in_time, :check_out_time, :gps_proof, :total_hours,
        :status, :verified_by, :verified_at, :override_reason, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, att); err != nil {
		return fmt.Errorf("create attendance: %w", translateWriteErr(err))
	}
	return nil
}

// Update overwrites the mutable fields of an attendance row.
func (r *AttendanceRepository) Update(ctx context.Context, exec sqlx.ExtContext, att *models.Attendance) error {
	const query = `UPDATE attendances SET check_in_time = :check_in_time, check_out_time = :check_out_time,
        gps_proof = :gps_proof, total_hours = :total_hours, status = :status, verified_by = :verified_by,
        verified_at = :verified_at, override_reason = :override_reason, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, att); err != nil {
		return fmt.Errorf("update attendance: %w", translateWriteErr(err))
	}
	return nil
}

// ListPending returns checked-out attendances awaiting review. A non-empty
// managerID limits the result to missions that user created or collaborates on.
func (r *AttendanceRepository) ListPending(ctx context.Context, exec sqlx.ExtContext, managerID string) ([]models.AttendanceDetail, error) {
	query := attendanceDetailSelect + ` WHERE a.status = $1 AND a.check_out_time IS NOT NULL`
	args := []interface{}{models.AttendanceStatusPending}
	if managerID != "" {
		query += ` AND (m.created_by = $2 OR EXISTS (
            SELECT 1 FROM mission_collaborators mc WHERE mc.mission_id = m.id AND mc.user_id = $2))`
		args = append(args, managerID)
	}
	query += ` ORDER BY a.check_out_time DESC`

	var rows []models.AttendanceDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pending verifications: %w", err)
	}
	return rows, nil
}

// ListRecent returns the most recently updated attendance rows.
func (r *AttendanceRepository) ListRecent(ctx context.Context, exec sqlx.ExtContext, limit int) ([]models.AttendanceDetail, error) {
	query := attendanceDetailSelect + ` ORDER BY a.updated_at DESC LIMIT $1`
	var rows []models.AttendanceDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent attendance: %w", err)
	}
	return rows, nil
}
