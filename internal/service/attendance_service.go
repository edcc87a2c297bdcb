package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffhub/backend/config"
	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

// ── 考勤模块业务错误 ──

var (
	ErrEventNotFound      = errors.New("考勤事件不存在")
	ErrAlreadyPunched     = errors.New("该类型事件当日已登记，请走修正流程")
	ErrPunchTypeDisabled  = errors.New("该用户未启用此报告类型")
	ErrEventInvalidDate   = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrEventInvalidTime   = errors.New("时间格式无效，应为 RFC3339")
	ErrAttendanceNoTarget = errors.New("目标用户不存在")
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// Punch 本人打卡 / 报告；同日同类型重复时拒绝
	Punch(ctx context.Context, rc *RequestContext, req *dto.PunchRequest, callerID string) (*dto.AttendanceEventResponse, error)
	// ForceClock 管理员代打卡（需 attendance_management.forceClock 能力）
	ForceClock(ctx context.Context, rc *RequestContext, req *dto.ForceClockRequest, callerID string) (*dto.AttendanceEventResponse, error)
	// Correct 修正既有事件的时间（需 attendance_management.correct 能力，审计仅追加）
	Correct(ctx context.Context, rc *RequestContext, req *dto.CorrectEventRequest, callerID string) (*dto.CorrectionResponse, error)
	// MonthlyView 单用户月度对账视图
	MonthlyView(ctx context.Context, rc *RequestContext, userID string, year, month int, callerID string) (*dto.MonthlyAttendanceResponse, error)
	// TeamSummary 操作者可见范围内全员的月度汇总
	TeamSummary(ctx context.Context, rc *RequestContext, year, month int, callerID string) (*dto.TeamMonthlySummaryResponse, error)
	// ListCorrections 某事件的修正审计记录
	ListCorrections(ctx context.Context, rc *RequestContext, eventID string, callerID string) ([]dto.CorrectionResponse, error)
}

type attendanceService struct {
	repo     *repository.Repository
	resolver PermissionResolver
	logger   *zap.Logger
	loc      *time.Location
	defBreak int
	now      func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, resolver PermissionResolver, logger *zap.Logger) AttendanceService {
	loc, err := time.LoadLocation(cfg.Shift.Timezone)
	if err != nil {
		loc = time.Local
	}
	return &attendanceService{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		loc:      loc,
		defBreak: cfg.Shift.DefaultBreakMinutes,
		now:      time.Now,
	}
}

// ────────────────────── Punch ──────────────────────

func (s *attendanceService) Punch(ctx context.Context, rc *RequestContext, req *dto.PunchRequest, callerID string) (*dto.AttendanceEventResponse, error) {
	user, err := s.repo.User.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNoTarget
		}
		return nil, err
	}

	// 起床 / 出发报告按用户开关启用
	switch req.EventType {
	case model.EventTypeWakeUp:
		if !user.WakeUpEnabled {
			return nil, ErrPunchTypeDisabled
		}
	case model.EventTypeDeparture:
		if !user.DepartureEnabled {
			return nil, ErrPunchTypeDisabled
		}
	}

	now := s.now().In(s.loc)
	return s.createEvent(ctx, callerID, civilDate(now), req.EventType, now, callerID)
}

// ────────────────────── ForceClock ──────────────────────

func (s *attendanceService) ForceClock(ctx context.Context, rc *RequestContext, req *dto.ForceClockRequest, callerID string) (*dto.AttendanceEventResponse, error) {
	allowed, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategoryAttendance, model.CapabilityForceClock)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.ErrPermissionDenied
	}
	canEdit, err := s.resolver.Can(ctx, rc, callerID, model.CategoryAttendance, ActionEdit, req.UserID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, pkgerrors.ErrPermissionDenied
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
	if err != nil {
		return nil, ErrEventInvalidDate
	}
	at, err := time.Parse(time.RFC3339, req.EventAt)
	if err != nil {
		return nil, ErrEventInvalidTime
	}

	if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNoTarget
		}
		return nil, err
	}

	return s.createEvent(ctx, req.UserID, date, req.EventType, at.In(s.loc), callerID)
}

// createEvent 事件创建共通路径：同日同类型已存在时拒绝，引导走修正流程
func (s *attendanceService) createEvent(ctx context.Context, userID string, date time.Time, eventType string, at time.Time, operatorID string) (*dto.AttendanceEventResponse, error) {
	if _, err := s.repo.Attendance.GetByUserDateType(ctx, userID, date, eventType); err == nil {
		return nil, ErrAlreadyPunched
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询既有考勤事件失败", zap.Error(err))
		return nil, err
	}

	event := &model.AttendanceEvent{
		UserID:    userID,
		EventDate: date,
		EventType: eventType,
		EventAt:   at,
	}
	event.CreatedBy = &operatorID
	event.UpdatedBy = &operatorID

	if err := s.repo.Attendance.Create(ctx, event); err != nil {
		s.logger.Error("登记考勤事件失败", zap.Error(err))
		return nil, err
	}

	return eventToDTO(event, s.loc), nil
}

// ────────────────────── Correct ──────────────────────

func (s *attendanceService) Correct(ctx context.Context, rc *RequestContext, req *dto.CorrectEventRequest, callerID string) (*dto.CorrectionResponse, error) {
	allowed, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategoryAttendance, model.CapabilityCorrect)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.ErrPermissionDenied
	}

	event, err := s.repo.Attendance.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	canEdit, err := s.resolver.Can(ctx, rc, callerID, model.CategoryAttendance, ActionEdit, event.UserID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, pkgerrors.ErrPermissionDenied
	}

	newAt, err := time.Parse(time.RFC3339, req.NewAt)
	if err != nil {
		return nil, ErrEventInvalidTime
	}

	correction, err := s.repo.Attendance.CorrectTimestamp(ctx, event, newAt.In(s.loc), callerID, req.Reason)
	if err != nil {
		s.logger.Error("修正考勤事件失败", zap.Error(err))
		return nil, err
	}

	return correctionToDTO(correction), nil
}

// ────────────────────── MonthlyView ──────────────────────

func (s *attendanceService) MonthlyView(ctx context.Context, rc *RequestContext, userID string, year, month int, callerID string) (*dto.MonthlyAttendanceResponse, error) {
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryAttendance, ActionView, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, pkgerrors.ErrPermissionDenied
		}
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNoTarget
		}
		return nil, err
	}

	return s.buildMonthly(ctx, user, year, month)
}

// ────────────────────── TeamSummary ──────────────────────

func (s *attendanceService) TeamSummary(ctx context.Context, rc *RequestContext, year, month int, callerID string) (*dto.TeamMonthlySummaryResponse, error) {
	ids, err := s.resolver.AccessibleUserIDs(ctx, rc, callerID, model.CategoryAttendance, ActionView)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		// 无范围型查看能力时回落到只看本人
		ids = []string{callerID}
	}

	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询可见用户失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.TeamMonthlySummaryResponse{
		Year:    year,
		Month:   month,
		Members: make([]dto.MonthlyAttendanceResponse, 0, len(users)),
	}
	for i := range users {
		member, err := s.buildMonthly(ctx, &users[i], year, month)
		if err != nil {
			return nil, err
		}
		resp.Members = append(resp.Members, *member)
	}
	return resp, nil
}

// buildMonthly 拉取单用户单月的班次与事件并执行对账
func (s *attendanceService) buildMonthly(ctx context.Context, user *model.User, year, month int) (*dto.MonthlyAttendanceResponse, error) {
	from, to := monthRange(year, month, s.loc)

	shifts, err := s.repo.Shift.ListByUserAndRange(ctx, user.UserID, from, to)
	if err != nil {
		s.logger.Error("查询月度班次失败", zap.Error(err))
		return nil, err
	}
	events, err := s.repo.Attendance.ListByUserAndRange(ctx, user.UserID, from, to)
	if err != nil {
		s.logger.Error("查询月度考勤事件失败", zap.Error(err))
		return nil, err
	}

	result := Reconcile(shifts, events, s.now().In(s.loc), s.defBreak)

	resp := &dto.MonthlyAttendanceResponse{
		UserID:   user.UserID,
		UserName: user.Name,
		Year:     year,
		Month:    month,
		Days:     make([]dto.ReconciledDayResponse, 0, len(result.Days)),
		Totals: dto.AttendanceTotalsResponse{
			WorkedMinutes:  result.Totals.WorkedMinutes,
			WorkedTimeText: FormatWorkedTime(result.Totals.WorkedMinutes),
			WorkDays:       result.Totals.WorkDays,
			LateCount:      result.Totals.LateCount,
			AbsentDays:     result.Totals.AbsentDays,
			ScheduledDays:  result.Totals.ScheduledDays,
		},
		Warnings: result.Warnings,
	}
	for i := range result.Days {
		resp.Days = append(resp.Days, reconciledDayToDTO(&result.Days[i], s.loc))
	}
	return resp, nil
}

// ────────────────────── ListCorrections ──────────────────────

func (s *attendanceService) ListCorrections(ctx context.Context, rc *RequestContext, eventID string, callerID string) ([]dto.CorrectionResponse, error) {
	event, err := s.repo.Attendance.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if event.UserID != callerID {
		allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryAttendance, ActionView, event.UserID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, pkgerrors.ErrPermissionDenied
		}
	}

	corrections, err := s.repo.Attendance.ListCorrectionsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CorrectionResponse, 0, len(corrections))
	for i := range corrections {
		result = append(result, *correctionToDTO(&corrections[i]))
	}
	return result, nil
}

// ── DTO 变换 ──

func eventToDTO(event *model.AttendanceEvent, loc *time.Location) *dto.AttendanceEventResponse {
	return &dto.AttendanceEventResponse{
		ID:        event.EventID,
		UserID:    event.UserID,
		Date:      event.EventDate.Format("2006-01-02"),
		EventType: event.EventType,
		EventAt:   event.EventAt.In(loc).Format(time.RFC3339),
	}
}

func correctionToDTO(c *model.AttendanceCorrection) *dto.CorrectionResponse {
	return &dto.CorrectionResponse{
		ID:         c.CorrectionID,
		EventID:    c.EventID,
		OldEventAt: c.OldEventAt.Format(time.RFC3339),
		NewEventAt: c.NewEventAt.Format(time.RFC3339),
		ApproverID: c.ApproverID,
		Reason:     c.Reason,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}

func reconciledDayToDTO(day *ReconciledDay, loc *time.Location) dto.ReconciledDayResponse {
	resp := dto.ReconciledDayResponse{
		Date:          day.Date.Format("2006-01-02"),
		WorkedMinutes: day.WorkedMinutes,
		IsLate:        day.IsLate,
		IsAbsent:      day.IsAbsent,
	}
	if day.Shift != nil {
		resp.Shift = shiftToDTO(day.Shift, loc)
	}
	resp.WakeUpAt = formatAt(day.WakeUpAt, loc)
	resp.DepartureAt = formatAt(day.DepartureAt, loc)
	resp.ClockInAt = formatAt(day.ClockInAt, loc)
	resp.ClockOutAt = formatAt(day.ClockOutAt, loc)
	return resp
}

func formatAt(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(time.RFC3339)
	return &s
}
