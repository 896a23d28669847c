package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

// ErrDuplicate is returned when a write violates a unique constraint, such
// as a second open attendance for the same user.
var ErrDuplicate = errors.New("duplicate row")

// Tx exposes every read and write the lifecycle engine performs inside one
// atomic unit. Lookups that miss return sql.ErrNoRows. LockMission and the
// Find methods lock the returned row until the unit ends; Get methods do
// not. Callers lock in the order mission, registration, attendance.
type Tx interface {
	GetMission(ctx context.Context, id string) (*models.Mission, error)
	LockMission(ctx context.Context, id string) (*models.Mission, error)
	ListMissionIDs(ctx context.Context) ([]string, error)
	CountOccupying(ctx context.Context, missionID string) (int, error)
	SetMissionVolunteers(ctx context.Context, missionID string, count int, at time.Time) error
	IsCollaborator(ctx context.Context, missionID, userID string) (bool, error)

	FindRegistration(ctx context.Context, userID, missionID string) (*models.Registration, error)
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	UpdateRegistration(ctx context.Context, reg *models.Registration) error
	ListRegistrations(ctx context.Context, missionID string, statuses []models.RegistrationStatus) ([]models.RegistrationDetail, error)
	ListWaitlistCandidates(ctx context.Context, missionID string) ([]models.WaitlistCandidate, error)

	FindAttendance(ctx context.Context, userID, missionID string) (*models.Attendance, error)
	GetAttendance(ctx context.Context, id string) (*models.Attendance, error)
	FindOpenAttendance(ctx context.Context, userID string) (*models.Attendance, error)
	CreateAttendance(ctx context.Context, att *models.Attendance) error
	UpdateAttendance(ctx context.Context, att *models.Attendance) error
	ListPendingVerifications(ctx context.Context, managerID string) ([]models.AttendanceDetail, error)
	ListRecentAttendance(ctx context.Context, limit int) ([]models.AttendanceDetail, error)

	AddUserPoints(ctx context.Context, userID string, amount int) error
	InsertPointTransaction(ctx context.Context, txn *models.PointTransaction) (bool, error)
	InsertOverrideLog(ctx context.Context, entry *models.ManualOverrideLog) error
}

// Store runs fn inside one atomic unit. The unit commits when fn returns nil
// and rolls back otherwise.
type Store interface {
	RunInTx(ctx context.Context, fn func(Tx) error) error
}

const uniqueViolation = "23505"

func translateWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
