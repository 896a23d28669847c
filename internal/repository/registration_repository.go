package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

const registrationColumns = `id, user_id, mission_id, status, is_priority, created_at, updated_at`

// RegistrationRepository persists registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockByUserAndMission returns the user's registration for a mission, locked.
func (r *RegistrationRepository) LockByUserAndMission(ctx context.Context, exec sqlx.ExtContext, userID, missionID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 AND mission_id = $2 FOR UPDATE`
	var reg models.Registration
	if err := sqlx.GetContext(ctx, r.exec(exec), &reg, query, userID, missionID); err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindByID returns a registration by id without locking it.
func (r *RegistrationRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := sqlx.GetContext(ctx, r.exec(exec), &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create inserts a registration.
func (r *RegistrationRepository) Create(ctx context.Context, exec sqlx.ExtContext, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	const query = `INSERT INTO registrations (id, user_id, mission_id, status, is_priority, created_at, updated_at)
        VALUES (:id, :user_id, :mission_id, :status, :is_priority, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, reg); err != nil {
		return fmt.Errorf("create registration: %w", translateWriteErr(err))
	}
	return nil
}

// Update writes status and priority. created_at is never changed so wait
// time keeps counting from the first registration.
func (r *RegistrationRepository) Update(ctx context.Context, exec sqlx.ExtContext, reg *models.Registration) error {
	const query = `UPDATE registrations SET status = :status, is_priority = :is_priority, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, reg); err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

// ListByMission returns registrations joined with the volunteer profile.
func (r *RegistrationRepository) ListByMission(ctx context.Context, exec sqlx.ExtContext, missionID string, statuses []models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	args := []interface{}{missionID}
	query := `SELECT r.id, r.user_id, r.mission_id, r.status, r.is_priority, r.created_at, r.updated_at,
        u.name AS user_name, u.email AS user_email, u.total_points
        FROM registrations r
        JOIN users u ON u.id = r.user_id
        WHERE r.mission_id = $1`
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += " AND r.status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY r.created_at, r.id"

	var regs []models.RegistrationDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &regs, query, args...); err != nil {
		return nil, fmt.Errorf("list mission registrations: %w", err)
	}
	return regs, nil
}

// ListWaitlistCandidates returns the waitlist with each user's attendance
// history across all missions.
func (r *RegistrationRepository) ListWaitlistCandidates(ctx context.Context, exec sqlx.ExtContext, missionID string) ([]models.WaitlistCandidate, error) {
	const query = `SELECT r.id AS registration_id, r.user_id, r.is_priority, r.created_at,
        COUNT(a.id) FILTER (WHERE a.status = $3) AS verified_attendances,
        COUNT(a.id) AS total_attendances
        FROM registrations r
        LEFT JOIN attendances a ON a.user_id = r.user_id
        WHERE r.mission_id = $1 AND r.status = $2
        GROUP BY r.id, r.user_id, r.is_priority, r.created_at
        ORDER BY r.created_at, r.id`
	var candidates []models.WaitlistCandidate
	if err := sqlx.SelectContext(ctx, r.exec(exec), &candidates, query, missionID,
		models.RegistrationStatusWaitlisted, models.AttendanceStatusVerified); err != nil {
		return nil, fmt.Errorf("list waitlist candidates: %w", err)
	}
	return candidates, nil
}
