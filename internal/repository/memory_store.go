package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

type memoryState struct {
	missions      map[string]models.Mission
	users         map[string]models.User
	collaborators map[string]map[string]struct{}
	registrations map[string]models.Registration
	attendances   map[string]models.Attendance
	transactions  []models.PointTransaction
	overrideLogs  []models.ManualOverrideLog
}

func newMemoryState() *memoryState {
	return &memoryState{
		missions:      make(map[string]models.Mission),
		users:         make(map[string]models.User),
		collaborators: make(map[string]map[string]struct{}),
		registrations: make(map[string]models.Registration),
		attendances:   make(map[string]models.Attendance),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.missions {
		c.missions[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, set := range s.collaborators {
		copied := make(map[string]struct{}, len(set))
		for u := range set {
			copied[u] = struct{}{}
		}
		c.collaborators[k] = copied
	}
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	for k, v := range s.attendances {
		c.attendances[k] = v
	}
	c.transactions = append([]models.PointTransaction(nil), s.transactions...)
	c.overrideLogs = append([]models.ManualOverrideLog(nil), s.overrideLogs...)
	return c
}

// MemoryStore is an in-process Store. One mutex serialises every unit of
// work and each unit writes to a private copy that replaces the committed
// state only when fn succeeds.
type MemoryStore struct {
	mu      sync.Mutex
	state   *memoryState
	timeout time.Duration
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState(), timeout: defaultTxTimeout}
}

// RunInTx implements Store.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	work := s.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit aborted: %w", err)
	}
	s.state = work
	return nil
}

// PutUser seeds or replaces a user.
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = u
}

// PutMission seeds or replaces a mission.
func (s *MemoryStore) PutMission(m models.Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.missions[m.ID] = m
}

// AddCollaborator puts userID on the mission team.
func (s *MemoryStore) AddCollaborator(missionID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.state.collaborators[missionID]
	if !ok {
		set = make(map[string]struct{})
		s.state.collaborators[missionID] = set
	}
	set[userID] = struct{}{}
}

// PutAttendance seeds or replaces an attendance row.
func (s *MemoryStore) PutAttendance(a models.Attendance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.state.attendances[a.ID] = a
}

// Mission returns the committed mission.
func (s *MemoryStore) Mission(id string) (models.Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.missions[id]
	return m, ok
}

// User returns the committed user.
func (s *MemoryStore) User(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	return u, ok
}

// PointTransactions returns the committed ledger entries of a user.
func (s *MemoryStore) PointTransactions(userID string) []models.PointTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PointTransaction
	for _, txn := range s.state.transactions {
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	return out
}

// OverrideLogs returns every committed override audit entry.
func (s *MemoryStore) OverrideLogs() []models.ManualOverrideLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ManualOverrideLog(nil), s.state.overrideLogs...)
}

// Registration returns the committed registration of userID on missionID.
func (s *MemoryStore) Registration(userID, missionID string) (models.Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.state.registrations {
		if r.UserID == userID && r.MissionID == missionID {
			return r, true
		}
	}
	return models.Registration{}, false
}

// Attendance returns the committed attendance of userID on missionID.
func (s *MemoryStore) Attendance(userID, missionID string) (models.Attendance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.state.attendances {
		if a.UserID == userID && a.MissionID == missionID {
			return a, true
		}
	}
	return models.Attendance{}, false
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	return t.LockMission(ctx, id)
}

func (t *memoryTx) LockMission(_ context.Context, id string) (*models.Mission, error) {
	m, ok := t.state.missions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (t *memoryTx) ListMissionIDs(context.Context) ([]string, error) {
	missions := make([]models.Mission, 0, len(t.state.missions))
	for _, m := range t.state.missions {
		missions = append(missions, m)
	}
	sort.Slice(missions, func(i, j int) bool {
		if missions[i].CreatedAt.Equal(missions[j].CreatedAt) {
			return missions[i].ID < missions[j].ID
		}
		return missions[i].CreatedAt.Before(missions[j].CreatedAt)
	})
	ids := make([]string, len(missions))
	for i, m := range missions {
		ids[i] = m.ID
	}
	return ids, nil
}

func (t *memoryTx) CountOccupying(_ context.Context, missionID string) (int, error) {
	count := 0
	for _, r := range t.state.registrations {
		if r.MissionID == missionID && r.Status.Occupying() {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) SetMissionVolunteers(_ context.Context, missionID string, count int, at time.Time) error {
	if count < 0 {
		return fmt.Errorf("set volunteers: negative count %d for mission %s", count, missionID)
	}
	m, ok := t.state.missions[missionID]
	if !ok {
		return sql.ErrNoRows
	}
	m.CurrentVolunteers = count
	m.UpdatedAt = at
	t.state.missions[missionID] = m
	return nil
}

func (t *memoryTx) IsCollaborator(_ context.Context, missionID, userID string) (bool, error) {
	_, ok := t.state.collaborators[missionID][userID]
	return ok, nil
}

func (t *memoryTx) FindRegistration(_ context.Context, userID, missionID string) (*models.Registration, error) {
	for _, r := range t.state.registrations {
		if r.UserID == userID && r.MissionID == missionID {
			reg := r
			return &reg, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (t *memoryTx) GetRegistration(_ context.Context, id string) (*models.Registration, error) {
	r, ok := t.state.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (t *memoryTx) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if _, err := t.FindRegistration(ctx, reg.UserID, reg.MissionID); err == nil {
		return fmt.Errorf("create registration: %w", ErrDuplicate)
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	t.state.registrations[reg.ID] = *reg
	return nil
}

func (t *memoryTx) UpdateRegistration(_ context.Context, reg *models.Registration) error {
	existing, ok := t.state.registrations[reg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Status = reg.Status
	existing.IsPriority = reg.IsPriority
	existing.UpdatedAt = reg.UpdatedAt
	t.state.registrations[reg.ID] = existing
	return nil
}

func (t *memoryTx) ListRegistrations(_ context.Context, missionID string, statuses []models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	allowed := make(map[models.RegistrationStatus]struct{}, len(statuses))
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}
	var out []models.RegistrationDetail
	for _, r := range t.state.registrations {
		if r.MissionID != missionID {
			continue
		}
		if _, ok := allowed[r.Status]; len(allowed) > 0 && !ok {
			continue
		}
		u := t.state.users[r.UserID]
		out = append(out, models.RegistrationDetail{
			Registration: r,
			UserName:     u.Name,
			UserEmail:    u.Email,
			TotalPoints:  u.TotalPoints,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return registrationBefore(out[i].Registration, out[j].Registration)
	})
	return out, nil
}

func (t *memoryTx) ListWaitlistCandidates(_ context.Context, missionID string) ([]models.WaitlistCandidate, error) {
	var waitlisted []models.Registration
	for _, r := range t.state.registrations {
		if r.MissionID == missionID && r.Status == models.RegistrationStatusWaitlisted {
			waitlisted = append(waitlisted, r)
		}
	}
	sort.Slice(waitlisted, func(i, j int) bool { return registrationBefore(waitlisted[i], waitlisted[j]) })

	out := make([]models.WaitlistCandidate, 0, len(waitlisted))
	for _, r := range waitlisted {
		c := models.WaitlistCandidate{
			RegistrationID: r.ID,
			UserID:         r.UserID,
			IsPriority:     r.IsPriority,
			CreatedAt:      r.CreatedAt,
		}
		for _, a := range t.state.attendances {
			if a.UserID != r.UserID {
				continue
			}
			c.TotalAttendances++
			if a.Status == models.AttendanceStatusVerified {
				c.VerifiedAttended++
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func registrationBefore(a, b models.Registration) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (t *memoryTx) FindAttendance(_ context.Context, userID, missionID string) (*models.Attendance, error) {
	for _, a := range t.state.attendances {
		if a.UserID == userID && a.MissionID == missionID {
			att := a
			return &att, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (t *memoryTx) GetAttendance(_ context.Context, id string) (*models.Attendance, error) {
	a, ok := t.state.attendances[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (t *memoryTx) FindOpenAttendance(_ context.Context, userID string) (*models.Attendance, error) {
	var found *models.Attendance
	for _, a := range t.state.attendances {
		if a.UserID != userID || !a.Open() {
			continue
		}
		if found == nil || a.CheckInTime.After(*found.CheckInTime) {
			att := a
			found = &att
		}
	}
	if found == nil {
		return nil, sql.ErrNoRows
	}
	return found, nil
}

// checkOpenConflict enforces one open attendance per user.
func (t *memoryTx) checkOpenConflict(att *models.Attendance) error {
	if !att.Open() {
		return nil
	}
	for id, a := range t.state.attendances {
		if id != att.ID && a.UserID == att.UserID && a.Open() {
			return ErrDuplicate
		}
	}
	return nil
}

func (t *memoryTx) CreateAttendance(ctx context.Context, att *models.Attendance) error {
	if _, err := t.FindAttendance(ctx, att.UserID, att.MissionID); err == nil {
		return fmt.Errorf("create attendance: %w", ErrDuplicate)
	}
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if err := t.checkOpenConflict(att); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	t.state.attendances[att.ID] = *att
	return nil
}

func (t *memoryTx) UpdateAttendance(_ context.Context, att *models.Attendance) error {
	existing, ok := t.state.attendances[att.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if err := t.checkOpenConflict(att); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	updated := *att
	updated.UserID = existing.UserID
	updated.MissionID = existing.MissionID
	updated.CreatedAt = existing.CreatedAt
	t.state.attendances[att.ID] = updated
	return nil
}

func (t *memoryTx) attendanceDetail(a models.Attendance) models.AttendanceDetail {
	return models.AttendanceDetail{
		Attendance:   a,
		UserName:     t.state.users[a.UserID].Name,
		MissionTitle: t.state.missions[a.MissionID].Title,
	}
}

func (t *memoryTx) ListPendingVerifications(_ context.Context, managerID string) ([]models.AttendanceDetail, error) {
	var out []models.AttendanceDetail
	for _, a := range t.state.attendances {
		if a.Status != models.AttendanceStatusPending || a.CheckOutTime == nil {
			continue
		}
		if managerID != "" {
			m := t.state.missions[a.MissionID]
			_, collab := t.state.collaborators[a.MissionID][managerID]
			if m.CreatedBy != managerID && !collab {
				continue
			}
		}
		out = append(out, t.attendanceDetail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckOutTime.After(*out[j].CheckOutTime) })
	return out, nil
}

func (t *memoryTx) ListRecentAttendance(_ context.Context, limit int) ([]models.AttendanceDetail, error) {
	out := make([]models.AttendanceDetail, 0, len(t.state.attendances))
	for _, a := range t.state.attendances {
		out = append(out, t.attendanceDetail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memoryTx) AddUserPoints(_ context.Context, userID string, amount int) error {
	u, ok := t.state.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.TotalPoints += amount
	t.state.users[userID] = u
	return nil
}

func (t *memoryTx) InsertPointTransaction(_ context.Context, txn *models.PointTransaction) (bool, error) {
	for _, existing := range t.state.transactions {
		if txn.IdempotencyKey != "" && existing.IdempotencyKey == txn.IdempotencyKey {
			return false, nil
		}
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	t.state.transactions = append(t.state.transactions, *txn)
	return true, nil
}

func (t *memoryTx) InsertOverrideLog(_ context.Context, entry *models.ManualOverrideLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	t.state.overrideLogs = append(t.state.overrideLogs, *entry)
	return nil
}
