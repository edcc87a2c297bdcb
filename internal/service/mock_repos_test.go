package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"staffhub/backend/internal/model"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	// managedBy: user_id → 担当者 ID 集合
	managedBy map[string][]string
	// getByIDCalls 记录落库次数，用于验证请求级缓存
	getByIDCalls int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:     make(map[string]*model.User),
		managedBy: make(map[string][]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.getByIDCalls++
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []model.User
	for i, id := range ids {
		if i < offset || len(result) >= limit {
			continue
		}
		result = append(result, *m.users[id])
	}
	return result, int64(len(m.users)), nil
}

func (m *mockUserRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) ListIDsByCompany(_ context.Context, companyID *string) ([]string, error) {
	var ids []string
	for id, u := range m.users {
		if companyID == nil && u.CompanyID == nil {
			ids = append(ids, id)
		} else if companyID != nil && u.CompanyID != nil && *companyID == *u.CompanyID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) ListIDsManagedBy(_ context.Context, managerID string) ([]string, error) {
	var ids []string
	for userID, managers := range m.managedBy {
		for _, mid := range managers {
			if mid == managerID {
				ids = append(ids, userID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) ReplaceManagers(_ context.Context, userID string, managerIDs []string) error {
	m.managedBy[userID] = append([]string(nil), managerIDs...)
	return nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock RoleRepository ──

type mockRoleRepo struct {
	roles map[string]*model.Role
	// usersByRole 供 CountUsers 使用
	usersByRole map[string]int64
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{
		roles:       make(map[string]*model.Role),
		usersByRole: make(map[string]int64),
	}
}

func (m *mockRoleRepo) Create(_ context.Context, role *model.Role) error {
	if role.RoleID == "" {
		role.RoleID = "role-" + role.Name
	}
	m.roles[role.RoleID] = role
	return nil
}

func (m *mockRoleRepo) GetByID(_ context.Context, id string) (*model.Role, error) {
	if r, ok := m.roles[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) List(_ context.Context) ([]model.Role, error) {
	var result []model.Role
	for _, r := range m.roles {
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockRoleRepo) Update(_ context.Context, role *model.Role) error {
	m.roles[role.RoleID] = role
	return nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.roles[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRoleRepo) CountUsers(_ context.Context, roleID string) (int64, error) {
	return m.usersByRole[roleID], nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	shifts map[string]*model.Shift
	seq    int
	// attendanceDays: "userID|2006-01-02" → true，供 HasAttendance 使用
	attendanceDays map[string]bool
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{
		shifts:         make(map[string]*model.Shift),
		attendanceDays: make(map[string]bool),
	}
}

func shiftDayKey(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	if s, ok := m.shifts[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) GetByUserAndDate(_ context.Context, userID string, date time.Time) (*model.Shift, error) {
	for _, s := range m.shifts {
		if s.UserID == userID && s.ShiftDate.Format("2006-01-02") == date.Format("2006-01-02") {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) ListByUserAndRange(_ context.Context, userID string, from, to time.Time) ([]model.Shift, error) {
	var result []model.Shift
	for _, s := range m.shifts {
		if s.UserID != userID {
			continue
		}
		if s.ShiftDate.Before(from) || s.ShiftDate.After(to) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ShiftDate.Before(result[j].ShiftDate) })
	return result, nil
}

func (m *mockShiftRepo) ListByUsersAndRange(ctx context.Context, userIDs []string, from, to time.Time) ([]model.Shift, error) {
	var result []model.Shift
	for _, id := range userIDs {
		shifts, _ := m.ListByUserAndRange(ctx, id, from, to)
		result = append(result, shifts...)
	}
	return result, nil
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.seq++
	if shift.ShiftID == "" {
		shift.ShiftID = fmt.Sprintf("shift-%03d", m.seq)
	}
	m.shifts[shift.ShiftID] = shift
	return nil
}

func (m *mockShiftRepo) BatchCreate(ctx context.Context, shifts []model.Shift) ([]model.Shift, []int, error) {
	taken := make(map[string]bool)
	for _, s := range m.shifts {
		taken[shiftDayKey(s.UserID, s.ShiftDate)] = true
	}

	var created []model.Shift
	var skipped []int
	for i := range shifts {
		key := shiftDayKey(shifts[i].UserID, shifts[i].ShiftDate)
		if taken[key] {
			skipped = append(skipped, i)
			continue
		}
		taken[key] = true
		s := shifts[i]
		if err := m.Create(ctx, &s); err != nil {
			return nil, nil, err
		}
		created = append(created, s)
	}
	return created, skipped, nil
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	if _, ok := m.shifts[shift.ShiftID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.shifts[shift.ShiftID] = shift
	return nil
}

func (m *mockShiftRepo) Delete(_ context.Context, id string, _ string) error {
	if _, ok := m.shifts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.shifts, id)
	return nil
}

func (m *mockShiftRepo) HasAttendance(_ context.Context, userID string, date time.Time) (bool, error) {
	return m.attendanceDays[shiftDayKey(userID, date)], nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	events      map[string]*model.AttendanceEvent
	corrections []model.AttendanceCorrection
	seq         int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{events: make(map[string]*model.AttendanceEvent)}
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceEvent, error) {
	if e, ok := m.events[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetByUserDateType(_ context.Context, userID string, date time.Time, eventType string) (*model.AttendanceEvent, error) {
	for _, e := range m.events {
		if e.UserID == userID && e.EventType == eventType &&
			e.EventDate.Format("2006-01-02") == date.Format("2006-01-02") {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByUserAndRange(_ context.Context, userID string, from, to time.Time) ([]model.AttendanceEvent, error) {
	var result []model.AttendanceEvent
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		if e.EventDate.Before(from) || e.EventDate.After(to) {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EventAt.Before(result[j].EventAt) })
	return result, nil
}

func (m *mockAttendanceRepo) ListByUsersAndRange(ctx context.Context, userIDs []string, from, to time.Time) ([]model.AttendanceEvent, error) {
	var result []model.AttendanceEvent
	for _, id := range userIDs {
		events, _ := m.ListByUserAndRange(ctx, id, from, to)
		result = append(result, events...)
	}
	return result, nil
}

func (m *mockAttendanceRepo) Create(_ context.Context, event *model.AttendanceEvent) error {
	m.seq++
	if event.EventID == "" {
		event.EventID = fmt.Sprintf("event-%03d", m.seq)
	}
	m.events[event.EventID] = event
	return nil
}

func (m *mockAttendanceRepo) CorrectTimestamp(_ context.Context, event *model.AttendanceEvent, newAt time.Time, approverID, reason string) (*model.AttendanceCorrection, error) {
	stored, ok := m.events[event.EventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	correction := model.AttendanceCorrection{
		CorrectionID: fmt.Sprintf("corr-%03d", len(m.corrections)+1),
		EventID:      event.EventID,
		OldEventAt:   stored.EventAt,
		NewEventAt:   newAt,
		ApproverID:   approverID,
		Reason:       reason,
		CreatedAt:    time.Now(),
	}
	stored.EventAt = newAt
	m.corrections = append(m.corrections, correction)
	return &correction, nil
}

func (m *mockAttendanceRepo) ListCorrectionsByEvent(_ context.Context, eventID string) ([]model.AttendanceCorrection, error) {
	var result []model.AttendanceCorrection
	for _, c := range m.corrections {
		if c.EventID == eventID {
			result = append(result, c)
		}
	}
	return result, nil
}

// ── Mock LockRepository ──

type mockLockRepo struct {
	locks map[string]*model.ShiftRegistrationLock
	// expireCalls 记录 ExpireIfDue 的调用次数，用于验证幂等回锁的触发
	expireCalls int
}

func newMockLockRepo() *mockLockRepo {
	return &mockLockRepo{locks: make(map[string]*model.ShiftRegistrationLock)}
}

func lockKey(userID string, year, month int) string {
	return fmt.Sprintf("%s|%d|%d", userID, year, month)
}

func (m *mockLockRepo) Get(_ context.Context, userID string, year, month int) (*model.ShiftRegistrationLock, error) {
	if l, ok := m.locks[lockKey(userID, year, month)]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLockRepo) Unlock(_ context.Context, userID string, year, month int, now time.Time, grantedBy string) (*model.ShiftRegistrationLock, error) {
	key := lockKey(userID, year, month)
	lock, ok := m.locks[key]
	if !ok {
		lock = &model.ShiftRegistrationLock{
			LockID: "lock-" + key,
			UserID: userID,
			Year:   year,
			Month:  month,
		}
		m.locks[key] = lock
	}
	lock.IsUnlocked = true
	lock.UnlockedAt = &now
	lock.UpdatedBy = &grantedBy
	return lock, nil
}

func (m *mockLockRepo) ExpireIfDue(_ context.Context, lock *model.ShiftRegistrationLock, now time.Time) error {
	m.expireCalls++
	if !lock.IsUnlocked || !lock.IsExpired(now) {
		return nil
	}
	lock.IsUnlocked = false
	if stored, ok := m.locks[lockKey(lock.UserID, lock.Year, lock.Month)]; ok {
		stored.IsUnlocked = false
	}
	return nil
}

// ── Mock SettingsRepository ──

type mockSettingsRepo struct {
	settings *model.SystemSettings
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{}
}

func (m *mockSettingsRepo) GetOrCreate(_ context.Context) (*model.SystemSettings, error) {
	if m.settings == nil {
		m.settings = &model.SystemSettings{
			Singleton:               true,
			RegistrationDeadlineDay: model.DefaultRegistrationDeadlineDay,
		}
	}
	return m.settings, nil
}

func (m *mockSettingsRepo) Update(_ context.Context, settings *model.SystemSettings) error {
	m.settings = settings
	return nil
}
