package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

const defaultTxTimeout = 5 * time.Second

// PostgresStore runs lifecycle operations in READ COMMITTED transactions and
// serialises conflicting writers with row locks.
type PostgresStore struct {
	db            *sqlx.DB
	timeout       time.Duration
	missions      *MissionRepository
	registrations *RegistrationRepository
	attendances   *AttendanceRepository
	ledger        *LedgerRepository
}

// NewPostgresStore wires the per-entity repositories around db.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &PostgresStore{
		db:            db,
		timeout:       timeout,
		missions:      NewMissionRepository(db),
		registrations: NewRegistrationRepository(db),
		attendances:   NewAttendanceRepository(db),
		ledger:        NewLedgerRepository(db),
	}
}

// RunInTx implements Store.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&postgresTx{store: s, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type postgresTx struct {
	store *PostgresStore
	tx    *sqlx.Tx
}

func (t *postgresTx) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	return t.store.missions.FindByID(ctx, t.tx, id)
}

func (t *postgresTx) LockMission(ctx context.Context, id string) (*models.Mission, error) {
	return t.store.missions.LockByID(ctx, t.tx, id)
}

func (t *postgresTx) ListMissionIDs(ctx context.Context) ([]string, error) {
	return t.store.missions.ListIDs(ctx, t.tx)
}

func (t *postgresTx) CountOccupying(ctx context.Context, missionID string) (int, error) {
	return t.store.missions.CountOccupying(ctx, t.tx, missionID)
}

func (t *postgresTx) SetMissionVolunteers(ctx context.Context, missionID string, count int, at time.Time) error {
	return t.store.missions.SetVolunteers(ctx, t.tx, missionID, count, at)
}

func (t *postgresTx) IsCollaborator(ctx context.Context, missionID, userID string) (bool, error) {
	return t.store.missions.IsCollaborator(ctx, t.tx, missionID, userID)
}

func (t *postgresTx) FindRegistration(ctx context.Context, userID, missionID string) (*models.Registration, error) {
	return t.store.registrations.LockByUserAndMission(ctx, t.tx, userID, missionID)
}

func (t *postgresTx) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	return t.store.registrations.FindByID(ctx, t.tx, id)
}

func (t *postgresTx) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return t.store.registrations.Create(ctx, t.tx, reg)
}

func (t *postgresTx) UpdateRegistration(ctx context.Context, reg *models.Registration) error {
	return t.store.registrations.Update(ctx, t.tx, reg)
}

func (t *postgresTx) ListRegistrations(ctx context.Context, missionID string, statuses []models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	return t.store.registrations.ListByMission(ctx, t.tx, missionID, statuses)
}

func (t *postgresTx) ListWaitlistCandidates(ctx context.Context, missionID string) ([]models.WaitlistCandidate, error) {
	return t.store.registrations.ListWaitlistCandidates(ctx, t.tx, missionID)
}

func (t *postgresTx) FindAttendance(ctx context.Context, userID, missionID string) (*models.Attendance, error) {
	return t.store.attendances.LockByUserAndMission(ctx, t.tx, userID, missionID)
}

func (t *postgresTx) GetAttendance(ctx context.Context, id string) (*models.Attendance, error) {
	return t.store.attendances.FindByID(ctx, t.tx, id)
}

func (t *postgresTx) FindOpenAttendance(ctx context.Context, userID string) (*models.Attendance, error) {
	return t.store.attendances.FindOpenByUser(ctx, t.tx, userID)
}

func (t *postgresTx) CreateAttendance(ctx context.Context, att *models.Attendance) error {
	return t.store.attendances.Create(ctx, t.tx, att)
}

func (t *postgresTx) UpdateAttendance(ctx context.Context, att *models.Attendance) error {
	return t.store.attendances.Update(ctx, t.tx, att)
}

func (t *postgresTx) ListPendingVerifications(ctx context.Context, managerID string) ([]models.AttendanceDetail, error) {
	return t.store.attendances.ListPending(ctx, t.tx, managerID)
}

func (t *postgresTx) ListRecentAttendance(ctx context.Context, limit int) ([]models.AttendanceDetail, error) {
	return t.store.attendances.ListRecent(ctx, t.tx, limit)
}

func (t *postgresTx) AddUserPoints(ctx context.Context, userID string, amount int) error {
	return t.store.ledger.AddPoints(ctx, t.tx, userID, amount)
}

func (t *postgresTx) InsertPointTransaction(ctx context.Context, txn *models.PointTransaction) (bool, error) {
	return t.store.ledger.InsertTransaction(ctx, t.tx, txn)
}

func (t *postgresTx) InsertOverrideLog(ctx context.Context, entry *models.ManualOverrideLog) error {
	return t.store.ledger.InsertOverrideLog(ctx, t.tx, entry)
}
