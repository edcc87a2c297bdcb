package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

// ── 测试夹具 ──

type attendanceFixture struct {
	svc    *attendanceService
	users  *mockUserRepo
	roles  *mockRoleRepo
	shifts *mockShiftRepo
	events *mockAttendanceRepo
	clock  time.Time
}

func setupAttendanceFixture(clock time.Time) *attendanceFixture {
	f := &attendanceFixture{
		users:  newMockUserRepo(),
		roles:  newMockRoleRepo(),
		shifts: newMockShiftRepo(),
		events: newMockAttendanceRepo(),
		clock:  clock,
	}
	repo := &repository.Repository{
		User:       f.users,
		Role:       f.roles,
		Shift:      f.shifts,
		Attendance: f.events,
		Lock:       newMockLockRepo(),
		Settings:   newMockSettingsRepo(),
	}
	f.svc = &attendanceService{
		repo:     repo,
		resolver: NewPermissionResolver(repo, zap.NewNop()),
		logger:   zap.NewNop(),
		loc:      testLoc,
		defBreak: 60,
		now:      func() time.Time { return f.clock },
	}
	return f
}

func (f *attendanceFixture) addRole(id string, matrix model.PermissionMatrix) {
	f.roles.roles[id] = &model.Role{RoleID: id, Name: id, PermissionMatrix: matrix}
}

func (f *attendanceFixture) addUser(id, roleID string, wakeUp, departure bool) {
	f.users.users[id] = &model.User{
		UserID:           id,
		Name:             id,
		Email:            id + "@example.com",
		RoleID:           roleID,
		WakeUpEnabled:    wakeUp,
		DepartureEnabled: departure,
	}
}

func (f *attendanceFixture) addStaff(id string) {
	if _, ok := f.roles.roles["staff"]; !ok {
		f.addRole("staff", model.PermissionMatrix{})
	}
	f.addUser(id, "staff", false, false)
}

func (f *attendanceFixture) addManager(id string) {
	if _, ok := f.roles.roles["manager"]; !ok {
		f.addRole("manager", model.PermissionMatrix{
			model.CategoryAttendance: {
				model.CapabilityViewAll: true, model.CapabilityEditAll: true,
				model.CapabilityForceClock: true, model.CapabilityCorrect: true,
			},
		})
	}
	f.addUser(id, "manager", false, false)
}

// ── Punch ──

func TestAttendanceService_Punch(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 9, 0, 0))
	f.addStaff("user-a")

	resp, err := f.svc.Punch(context.Background(), NewRequestContext(),
		&dto.PunchRequest{EventType: model.EventTypeClockIn}, "user-a")
	if err != nil {
		t.Fatalf("Punch 应成功: %v", err)
	}
	if resp.UserID != "user-a" || resp.EventType != model.EventTypeClockIn {
		t.Errorf("响应不符: %+v", resp)
	}
	if resp.Date != "2026-09-10" {
		t.Errorf("事件应落在当日（业务时区），实际=%s", resp.Date)
	}
	if resp.EventAt != f.clock.Format(time.RFC3339) {
		t.Errorf("事件时刻应为当前时刻，期望=%s 实际=%s", f.clock.Format(time.RFC3339), resp.EventAt)
	}
}

func TestAttendanceService_Punch_DuplicateSameDayType(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 9, 0, 0))
	f.addStaff("user-a")

	rc := NewRequestContext()
	ctx := context.Background()
	if _, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeClockIn}, "user-a"); err != nil {
		t.Fatalf("首次打卡应成功: %v", err)
	}

	f.clock = at(2026, time.September, 10, 9, 5, 0)
	_, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeClockIn}, "user-a")
	if !errors.Is(err, ErrAlreadyPunched) {
		t.Errorf("同日同类型重复打卡期望 ErrAlreadyPunched，实际: %v", err)
	}

	// 不同类型不受影响
	if _, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeClockOut}, "user-a"); err != nil {
		t.Errorf("同日不同类型应可登记: %v", err)
	}
}

func TestAttendanceService_Punch_OptionalTypesGated(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 6, 30, 0))
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("user-a", "staff", false, false)
	f.addUser("user-b", "staff", true, true)

	rc := NewRequestContext()
	ctx := context.Background()

	if _, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeWakeUp}, "user-a"); !errors.Is(err, ErrPunchTypeDisabled) {
		t.Errorf("未启用起床报告期望 ErrPunchTypeDisabled，实际: %v", err)
	}
	if _, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeDeparture}, "user-a"); !errors.Is(err, ErrPunchTypeDisabled) {
		t.Errorf("未启用出发报告期望 ErrPunchTypeDisabled，实际: %v", err)
	}
	if _, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeWakeUp}, "user-b"); err != nil {
		t.Errorf("已启用起床报告应可登记: %v", err)
	}
}

// ── ForceClock ──

func TestAttendanceService_ForceClock(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 11, 10, 0, 0))
	f.addManager("mgr-a")
	f.addStaff("user-a")

	eventAt := at(2026, time.September, 10, 9, 0, 0)
	resp, err := f.svc.ForceClock(context.Background(), NewRequestContext(), &dto.ForceClockRequest{
		UserID:    "user-a",
		Date:      "2026-09-10",
		EventType: model.EventTypeClockIn,
		EventAt:   eventAt.Format(time.RFC3339),
	}, "mgr-a")
	if err != nil {
		t.Fatalf("ForceClock 应成功: %v", err)
	}
	if resp.UserID != "user-a" || resp.Date != "2026-09-10" {
		t.Errorf("响应不符: %+v", resp)
	}
	if resp.EventAt != eventAt.Format(time.RFC3339) {
		t.Errorf("期望事件时刻=%s，实际=%s", eventAt.Format(time.RFC3339), resp.EventAt)
	}
}

func TestAttendanceService_ForceClock_RequiresCapability(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 11, 10, 0, 0))
	f.addStaff("user-a")
	f.addStaff("user-b")

	_, err := f.svc.ForceClock(context.Background(), NewRequestContext(), &dto.ForceClockRequest{
		UserID: "user-b", Date: "2026-09-10",
		EventType: model.EventTypeClockIn,
		EventAt:   at(2026, time.September, 10, 9, 0, 0).Format(time.RFC3339),
	}, "user-a")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无 forceClock 能力应被拒，实际: %v", err)
	}
}

func TestAttendanceService_ForceClock_RequiresEditScope(t *testing.T) {
	// 仅有 forceClock 能力而无范围型编辑：仍被拒
	f := setupAttendanceFixture(at(2026, time.September, 11, 10, 0, 0))
	f.addRole("clocker", model.PermissionMatrix{
		model.CategoryAttendance: {model.CapabilityForceClock: true},
	})
	f.addUser("clocker-a", "clocker", false, false)
	f.addStaff("user-a")

	_, err := f.svc.ForceClock(context.Background(), NewRequestContext(), &dto.ForceClockRequest{
		UserID: "user-a", Date: "2026-09-10",
		EventType: model.EventTypeClockIn,
		EventAt:   at(2026, time.September, 10, 9, 0, 0).Format(time.RFC3339),
	}, "clocker-a")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无编辑范围应被拒，实际: %v", err)
	}
}

func TestAttendanceService_ForceClock_TargetNotFound(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 11, 10, 0, 0))
	f.addManager("mgr-a")

	_, err := f.svc.ForceClock(context.Background(), NewRequestContext(), &dto.ForceClockRequest{
		UserID: "ghost", Date: "2026-09-10",
		EventType: model.EventTypeClockIn,
		EventAt:   at(2026, time.September, 10, 9, 0, 0).Format(time.RFC3339),
	}, "mgr-a")
	if !errors.Is(err, ErrAttendanceNoTarget) {
		t.Errorf("期望 ErrAttendanceNoTarget，实际: %v", err)
	}
}

// ── Correct ──

func TestAttendanceService_Correct(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 9, 3, 0))
	f.addManager("mgr-a")
	f.addStaff("user-a")

	rc := NewRequestContext()
	ctx := context.Background()
	created, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeClockIn}, "user-a")
	if err != nil {
		t.Fatalf("预置事件失败: %v", err)
	}

	newAt := at(2026, time.September, 10, 9, 0, 0)
	corr, err := f.svc.Correct(ctx, rc, &dto.CorrectEventRequest{
		EventID: created.ID,
		NewAt:   newAt.Format(time.RFC3339),
		Reason:  "打刻遅延の申告による修正",
	}, "mgr-a")
	if err != nil {
		t.Fatalf("Correct 应成功: %v", err)
	}
	if corr.OldEventAt != created.EventAt {
		t.Errorf("审计应保留修正前时刻，期望=%s 实际=%s", created.EventAt, corr.OldEventAt)
	}
	if corr.NewEventAt != newAt.Format(time.RFC3339) {
		t.Errorf("期望修正后时刻=%s，实际=%s", newAt.Format(time.RFC3339), corr.NewEventAt)
	}
	if corr.ApproverID != "mgr-a" {
		t.Errorf("期望审批人=mgr-a，实际=%s", corr.ApproverID)
	}

	// 事件本体已更新
	stored := f.events.events[created.ID]
	if !stored.EventAt.Equal(newAt) {
		t.Errorf("事件时刻应被更新为 %v，实际=%v", newAt, stored.EventAt)
	}

	// 审计仅追加，可由本人查询
	list, err := f.svc.ListCorrections(ctx, rc, created.ID, "user-a")
	if err != nil {
		t.Fatalf("ListCorrections 应成功: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("期望审计记录 1 条，实际=%d", len(list))
	}
}

func TestAttendanceService_Correct_RequiresCapability(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 9, 0, 0))
	f.addStaff("user-a")

	rc := NewRequestContext()
	ctx := context.Background()
	created, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeClockIn}, "user-a")
	if err != nil {
		t.Fatalf("预置事件失败: %v", err)
	}

	// 本人也不能绕过修正能力直接改时刻
	_, err = f.svc.Correct(ctx, rc, &dto.CorrectEventRequest{
		EventID: created.ID,
		NewAt:   at(2026, time.September, 10, 8, 0, 0).Format(time.RFC3339),
	}, "user-a")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无 correct 能力应被拒，实际: %v", err)
	}
}

func TestAttendanceService_Correct_EventNotFound(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 9, 0, 0))
	f.addManager("mgr-a")

	_, err := f.svc.Correct(context.Background(), NewRequestContext(), &dto.CorrectEventRequest{
		EventID: "missing",
		NewAt:   at(2026, time.September, 10, 9, 0, 0).Format(time.RFC3339),
	}, "mgr-a")
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("期望 ErrEventNotFound，实际: %v", err)
	}
}

// ── MonthlyView / TeamSummary ──

func TestAttendanceService_MonthlyView(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 20, 12, 0, 0))
	f.addStaff("user-a")

	day := date(2026, time.September, 10)
	shift := testShift("user-a", day, 9, 0, 17, 0, 60)
	shift.ShiftID = "shift-fixed"
	f.shifts.shifts[shift.ShiftID] = &shift
	in := testEvent("user-a", day, model.EventTypeClockIn, 9, 0)
	out := testEvent("user-a", day, model.EventTypeClockOut, 17, 0)
	in.EventID, out.EventID = "ev-in", "ev-out"
	f.events.events[in.EventID] = &in
	f.events.events[out.EventID] = &out

	resp, err := f.svc.MonthlyView(context.Background(), NewRequestContext(), "", 2026, 9, "user-a")
	if err != nil {
		t.Fatalf("MonthlyView 应成功: %v", err)
	}
	if resp.UserID != "user-a" {
		t.Errorf("省略 user_id 应默认为本人，实际=%s", resp.UserID)
	}
	if resp.Totals.WorkedMinutes != 420 || resp.Totals.WorkedTimeText != "7:00" {
		t.Errorf("期望实働 420 分（7:00），实际 %d 分（%s）",
			resp.Totals.WorkedMinutes, resp.Totals.WorkedTimeText)
	}
	if resp.Totals.WorkDays != 1 || resp.Totals.ScheduledDays != 1 {
		t.Errorf("期望出勤 1 天班次 1 天，实际 出勤=%d 班次=%d",
			resp.Totals.WorkDays, resp.Totals.ScheduledDays)
	}
	if len(resp.Days) != 1 {
		t.Fatalf("期望 1 个对账日，实际=%d", len(resp.Days))
	}
	gotDay := resp.Days[0]
	if gotDay.Date != "2026-09-10" || gotDay.Shift == nil || gotDay.ClockInAt == nil || gotDay.ClockOutAt == nil {
		t.Errorf("对账日内容不符: %+v", gotDay)
	}
	if gotDay.IsLate == nil || *gotDay.IsLate {
		t.Errorf("定刻打卡不应判迟到: %+v", gotDay.IsLate)
	}
}

func TestAttendanceService_MonthlyView_PermissionDenied(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 20, 12, 0, 0))
	f.addStaff("user-a")
	f.addStaff("user-b")

	_, err := f.svc.MonthlyView(context.Background(), NewRequestContext(), "user-a", 2026, 9, "user-b")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无查看能力查他人月度应被拒，实际: %v", err)
	}
}

func TestAttendanceService_TeamSummary_ScopedMembers(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 20, 12, 0, 0))
	f.addManager("mgr-a")
	f.addStaff("user-a")
	f.addStaff("user-b")

	resp, err := f.svc.TeamSummary(context.Background(), NewRequestContext(), 2026, 9, "mgr-a")
	if err != nil {
		t.Fatalf("TeamSummary 应成功: %v", err)
	}
	if resp.Year != 2026 || resp.Month != 9 {
		t.Errorf("年月不符: %+v", resp)
	}
	if len(resp.Members) != 3 {
		t.Errorf("viewAll 期望成员 3 人，实际=%d", len(resp.Members))
	}
}

func TestAttendanceService_TeamSummary_SelfFallback(t *testing.T) {
	// 无范围型查看能力：回落为只看本人
	f := setupAttendanceFixture(at(2026, time.September, 20, 12, 0, 0))
	f.addStaff("user-a")
	f.addStaff("user-b")

	resp, err := f.svc.TeamSummary(context.Background(), NewRequestContext(), 2026, 9, "user-a")
	if err != nil {
		t.Fatalf("TeamSummary 应成功: %v", err)
	}
	if len(resp.Members) != 1 || resp.Members[0].UserID != "user-a" {
		t.Errorf("期望仅本人 1 条，实际: %+v", resp.Members)
	}
}

func TestAttendanceService_ListCorrections_PermissionDenied(t *testing.T) {
	f := setupAttendanceFixture(at(2026, time.September, 10, 9, 0, 0))
	f.addStaff("user-a")
	f.addStaff("user-b")

	rc := NewRequestContext()
	ctx := context.Background()
	created, err := f.svc.Punch(ctx, rc, &dto.PunchRequest{EventType: model.EventTypeClockIn}, "user-a")
	if err != nil {
		t.Fatalf("预置事件失败: %v", err)
	}

	_, err = f.svc.ListCorrections(ctx, rc, created.ID, "user-b")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无查看能力查他人审计应被拒，实际: %v", err)
	}
}
