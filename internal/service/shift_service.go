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

// ── 班次模块业务错误 ──

var (
	ErrShiftNotFound      = errors.New("班次不存在")
	ErrShiftDuplicate     = errors.New("该用户该日期已存在班次")
	ErrShiftHasAttendance = errors.New("该日期已存在考勤事件，班次不可删除")
	ErrShiftInvalidDate   = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrShiftInvalidTime   = errors.New("时刻格式无效，应为 HH:MM")
	ErrShiftEndNotAfter   = errors.New("班次结束时刻必须晚于开始时刻")
	ErrShiftUserNotFound  = errors.New("目标用户不存在")
)

// 批量操作单条结果的机器可读原因
const (
	batchReasonDuplicate = "DUPLICATE_DATE"
)

// ShiftService 班次业务接口
type ShiftService interface {
	// Register 登记单条班次（经权限门与登记窗口门）
	Register(ctx context.Context, rc *RequestContext, req *dto.ShiftItemRequest, callerID string) (*dto.ShiftResponse, error)
	// Update 修改班次内容
	Update(ctx context.Context, rc *RequestContext, shiftID string, req *dto.UpdateShiftRequest, callerID string) (*dto.ShiftResponse, error)
	// Delete 删除班次（该日已有考勤事件时拒绝）
	Delete(ctx context.Context, rc *RequestContext, shiftID string, callerID string) error
	// BatchCreate 批量登记：整批一个事务，重复日期逐条过滤并报告
	BatchCreate(ctx context.Context, rc *RequestContext, req *dto.BatchCreateShiftRequest, callerID string) (*dto.ShiftBatchResponse, error)
	// BulkUpdate 批量更新：允许部分成功，逐条报告结果
	BulkUpdate(ctx context.Context, rc *RequestContext, req *dto.BulkUpdateShiftRequest, callerID string) (*dto.ShiftBatchResponse, error)
	// BulkDelete 批量删除：允许部分成功，逐条报告结果
	BulkDelete(ctx context.Context, rc *RequestContext, req *dto.BulkShiftIDsRequest, callerID string) (*dto.ShiftBatchResponse, error)
	// GetMonth 某用户某月的班次一览
	GetMonth(ctx context.Context, rc *RequestContext, userID string, year, month int, callerID string) ([]dto.ShiftResponse, error)
	// CheckWindow 查询目标日期当前的登记窗口状态
	CheckWindow(ctx context.Context, rc *RequestContext, userID, dateStr string, callerID string) (*dto.RegistrationWindowResponse, error)
	// Unlock 管理员发放解锁覆盖（需 shift_management.unlock 能力）
	Unlock(ctx context.Context, rc *RequestContext, req *dto.UnlockRegistrationRequest, callerID string) (*dto.UnlockRegistrationResponse, error)
}

type shiftService struct {
	repo     *repository.Repository
	resolver PermissionResolver
	logger   *zap.Logger
	loc      *time.Location
	defBreak int
	now      func() time.Time // 便于测试注入
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(cfg *config.Config, repo *repository.Repository, resolver PermissionResolver, logger *zap.Logger) ShiftService {
	loc, err := time.LoadLocation(cfg.Shift.Timezone)
	if err != nil {
		// Config.Validate 已确保时区可加载
		loc = time.Local
	}
	return &shiftService{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		loc:      loc,
		defBreak: cfg.Shift.DefaultBreakMinutes,
		now:      time.Now,
	}
}

// ────────────────────── Register ──────────────────────

func (s *shiftService) Register(ctx context.Context, rc *RequestContext, req *dto.ShiftItemRequest, callerID string) (*dto.ShiftResponse, error) {
	shift, err := s.parseItem(req, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureEditable(ctx, rc, shift.UserID, callerID); err != nil {
		return nil, err
	}
	if err := s.ensureWindow(ctx, rc, shift.UserID, shift.ShiftDate, callerID); err != nil {
		return nil, err
	}

	if _, err := s.repo.Shift.GetByUserAndDate(ctx, shift.UserID, shift.ShiftDate); err == nil {
		return nil, ErrShiftDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询既有班次失败", zap.Error(err))
		return nil, err
	}

	shift.CreatedBy = &callerID
	shift.UpdatedBy = &callerID
	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("登记班次失败", zap.Error(err))
		return nil, err
	}

	return shiftToDTO(shift, s.loc), nil
}

// ────────────────────── Update ──────────────────────

func (s *shiftService) Update(ctx context.Context, rc *RequestContext, shiftID string, req *dto.UpdateShiftRequest, callerID string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}

	if err := s.ensureEditable(ctx, rc, shift.UserID, callerID); err != nil {
		return nil, err
	}
	if err := s.ensureWindow(ctx, rc, shift.UserID, shift.ShiftDate, callerID); err != nil {
		return nil, err
	}

	if req.StartTime != nil {
		at, err := combineDateTime(shift.ShiftDate, *req.StartTime, s.loc)
		if err != nil {
			return nil, ErrShiftInvalidTime
		}
		shift.StartTime = at
	}
	if req.EndTime != nil {
		at, err := combineDateTime(shift.ShiftDate, *req.EndTime, s.loc)
		if err != nil {
			return nil, ErrShiftInvalidTime
		}
		shift.EndTime = at
	}
	if !shift.EndTime.After(shift.StartTime) {
		return nil, ErrShiftEndNotAfter
	}
	if req.BreakMinutes != nil {
		shift.BreakMinutes = *req.BreakMinutes
	}
	if req.ShiftType != nil {
		shift.ShiftType = *req.ShiftType
	}
	if req.Location != nil {
		shift.Location = *req.Location
	}
	shift.UpdatedBy = &callerID

	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		s.logger.Error("更新班次失败", zap.Error(err))
		return nil, err
	}

	return shiftToDTO(shift, s.loc), nil
}

// ────────────────────── Delete ──────────────────────

func (s *shiftService) Delete(ctx context.Context, rc *RequestContext, shiftID string, callerID string) error {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return err
	}

	if err := s.ensureEditable(ctx, rc, shift.UserID, callerID); err != nil {
		return err
	}

	// 该日已有考勤事件的班次不可删除
	has, err := s.repo.Shift.HasAttendance(ctx, shift.UserID, shift.ShiftDate)
	if err != nil {
		s.logger.Error("查询考勤事件失败", zap.Error(err))
		return err
	}
	if has {
		return ErrShiftHasAttendance
	}

	if err := s.ensureWindow(ctx, rc, shift.UserID, shift.ShiftDate, callerID); err != nil {
		return err
	}

	return s.repo.Shift.Delete(ctx, shiftID, callerID)
}

// ────────────────────── BatchCreate ──────────────────────
//
// 整批写入共用一个事务（重复检查与插入同处事务内），
// 校验 / 权限 / 窗口被拒的条目不进入事务，逐条带原因报告。

func (s *shiftService) BatchCreate(ctx context.Context, rc *RequestContext, req *dto.BatchCreateShiftRequest, callerID string) (*dto.ShiftBatchResponse, error) {
	resp := &dto.ShiftBatchResponse{
		Results: make([]dto.ShiftBatchItemResult, len(req.Shifts)),
	}

	toCreate := make([]model.Shift, 0, len(req.Shifts))
	createIdx := make([]int, 0, len(req.Shifts)) // toCreate 下标 → 请求下标

	for i := range req.Shifts {
		item := &req.Shifts[i]
		resp.Results[i] = dto.ShiftBatchItemResult{Index: i, Date: item.Date}

		shift, err := s.parseItem(item, callerID)
		if err != nil {
			resp.Results[i].Reason = err.Error()
			continue
		}

		if err := s.ensureEditable(ctx, rc, shift.UserID, callerID); err != nil {
			resp.Results[i].Reason = err.Error()
			continue
		}
		if err := s.ensureWindow(ctx, rc, shift.UserID, shift.ShiftDate, callerID); err != nil {
			resp.Results[i].Reason = err.Error()
			continue
		}

		shift.CreatedBy = &callerID
		shift.UpdatedBy = &callerID
		toCreate = append(toCreate, *shift)
		createIdx = append(createIdx, i)
	}

	created, skipped, err := s.repo.Shift.BatchCreate(ctx, toCreate)
	if err != nil {
		s.logger.Error("批量登记事务失败", zap.Error(err))
		return nil, err
	}

	skippedSet := make(map[int]bool, len(skipped))
	for _, idx := range skipped {
		skippedSet[idx] = true
	}

	for j, reqIdx := range createIdx {
		if skippedSet[j] {
			resp.Results[reqIdx].Reason = batchReasonDuplicate
			continue
		}
		resp.Results[reqIdx].OK = true
	}

	for i := range created {
		resp.Shifts = append(resp.Shifts, *shiftToDTO(&created[i], s.loc))
	}
	for _, r := range resp.Results {
		if r.OK {
			resp.SucceededCount++
		} else {
			resp.FailedCount++
		}
	}

	return resp, nil
}

// ────────────────────── BulkUpdate ──────────────────────
//
// 每条更新各自原子；权限门与窗口门逐条生效，汇总逐条成败。

func (s *shiftService) BulkUpdate(ctx context.Context, rc *RequestContext, req *dto.BulkUpdateShiftRequest, callerID string) (*dto.ShiftBatchResponse, error) {
	resp := &dto.ShiftBatchResponse{
		Results: make([]dto.ShiftBatchItemResult, len(req.Shifts)),
	}

	for i := range req.Shifts {
		item := &req.Shifts[i]
		resp.Results[i] = dto.ShiftBatchItemResult{Index: i, ID: item.ID}

		updated, err := s.Update(ctx, rc, item.ID, &item.UpdateShiftRequest, callerID)
		if err != nil {
			resp.Results[i].Reason = err.Error()
			resp.FailedCount++
			continue
		}
		resp.Results[i].OK = true
		resp.SucceededCount++
		resp.Shifts = append(resp.Shifts, *updated)
	}

	return resp, nil
}

// ────────────────────── BulkDelete ──────────────────────
//
// 每条删除各自原子；允许部分成功，汇总逐条成败。

func (s *shiftService) BulkDelete(ctx context.Context, rc *RequestContext, req *dto.BulkShiftIDsRequest, callerID string) (*dto.ShiftBatchResponse, error) {
	resp := &dto.ShiftBatchResponse{
		Results: make([]dto.ShiftBatchItemResult, len(req.ShiftIDs)),
	}

	for i, id := range req.ShiftIDs {
		resp.Results[i] = dto.ShiftBatchItemResult{Index: i, ID: id}
		if err := s.Delete(ctx, rc, id, callerID); err != nil {
			resp.Results[i].Reason = err.Error()
			resp.FailedCount++
			continue
		}
		resp.Results[i].OK = true
		resp.SucceededCount++
	}

	return resp, nil
}

// ────────────────────── GetMonth ──────────────────────

func (s *shiftService) GetMonth(ctx context.Context, rc *RequestContext, userID string, year, month int, callerID string) ([]dto.ShiftResponse, error) {
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryShift, ActionView, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, pkgerrors.ErrPermissionDenied
		}
	}

	from, to := monthRange(year, month, s.loc)
	shifts, err := s.repo.Shift.ListByUserAndRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询月度班次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *shiftToDTO(&shifts[i], s.loc))
	}
	return result, nil
}

// ────────────────────── CheckWindow ──────────────────────

func (s *shiftService) CheckWindow(ctx context.Context, rc *RequestContext, userID, dateStr string, callerID string) (*dto.RegistrationWindowResponse, error) {
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryShift, ActionView, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, pkgerrors.ErrPermissionDenied
		}
	}

	target, err := time.ParseInLocation("2006-01-02", dateStr, s.loc)
	if err != nil {
		return nil, ErrShiftInvalidDate
	}

	force, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategoryShift, model.CapabilityForceRegister)
	if err != nil {
		return nil, err
	}
	if force {
		return &dto.RegistrationWindowResponse{Allowed: true}, nil
	}

	decision, err := s.evaluateWindow(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	return &dto.RegistrationWindowResponse{
		Allowed: decision.Allowed,
		Reason:  string(decision.Reason),
	}, nil
}

// ────────────────────── Unlock ──────────────────────

func (s *shiftService) Unlock(ctx context.Context, rc *RequestContext, req *dto.UnlockRegistrationRequest, callerID string) (*dto.UnlockRegistrationResponse, error) {
	allowed, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategoryShift, model.CapabilityUnlock)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.ErrPermissionDenied
	}

	if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftUserNotFound
		}
		return nil, err
	}

	now := s.now().In(s.loc)
	lock, err := s.repo.Lock.Unlock(ctx, req.UserID, req.Year, req.Month, now, callerID)
	if err != nil {
		s.logger.Error("发放解锁覆盖失败", zap.Error(err))
		return nil, err
	}

	return &dto.UnlockRegistrationResponse{
		UserID:     lock.UserID,
		Year:       lock.Year,
		Month:      lock.Month,
		IsUnlocked: lock.IsUnlocked,
		UnlockedAt: lock.UnlockedAt.Format(time.RFC3339),
		ExpiresAt:  lock.ExpiresAt().Format(time.RFC3339),
	}, nil
}

// ── 内部辅助 ──

// ensureEditable 权限门：非本人操作需要班次分类的范围型编辑能力
func (s *shiftService) ensureEditable(ctx context.Context, rc *RequestContext, targetUserID, callerID string) error {
	if targetUserID == callerID {
		return nil
	}
	allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryShift, ActionEdit, targetUserID)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.ErrPermissionDenied
	}
	return nil
}

// ensureWindow 登记窗口门：forceRegister 能力整体绕过窗口判定
func (s *shiftService) ensureWindow(ctx context.Context, rc *RequestContext, targetUserID string, targetDate time.Time, callerID string) error {
	force, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategoryShift, model.CapabilityForceRegister)
	if err != nil {
		return err
	}
	if force {
		return nil
	}

	decision, err := s.evaluateWindow(ctx, targetUserID, targetDate)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &RegistrationDeniedError{Reason: decision.Reason}
	}
	return nil
}

// evaluateWindow 组装窗口判定所需输入并执行纯判定；
// 解锁过期时执行幂等的自动回锁
func (s *shiftService) evaluateWindow(ctx context.Context, targetUserID string, targetDate time.Time) (WindowDecision, error) {
	settings, err := s.repo.Settings.GetOrCreate(ctx)
	if err != nil {
		s.logger.Error("读取系统设置失败", zap.Error(err))
		return WindowDecision{}, err
	}

	lock, err := s.repo.Lock.Get(ctx, targetUserID, targetDate.Year(), int(targetDate.Month()))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("读取解锁记录失败", zap.Error(err))
			return WindowDecision{}, err
		}
		lock = nil
	}

	now := s.now().In(s.loc)
	decision := EvaluateRegistrationWindow(targetDate, now, settings.RegistrationDeadlineDay, lock)

	if decision.NeedsRelock {
		if err := s.repo.Lock.ExpireIfDue(ctx, lock, now); err != nil {
			// 回锁失败不改变本次拒绝结论，下次判定会重试
			s.logger.Error("自动回锁失败", zap.Error(err))
		}
	}

	return decision, nil
}

// parseItem 解析并校验单条班次请求
func (s *shiftService) parseItem(req *dto.ShiftItemRequest, callerID string) (*model.Shift, error) {
	userID := req.UserID
	if userID == "" {
		userID = callerID
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
	if err != nil {
		return nil, ErrShiftInvalidDate
	}

	start, err := combineDateTime(date, req.StartTime, s.loc)
	if err != nil {
		return nil, ErrShiftInvalidTime
	}
	end, err := combineDateTime(date, req.EndTime, s.loc)
	if err != nil {
		return nil, ErrShiftInvalidTime
	}
	if !end.After(start) {
		return nil, ErrShiftEndNotAfter
	}

	breakMinutes := s.defBreak
	if req.BreakMinutes != nil {
		breakMinutes = *req.BreakMinutes
	}
	shiftType := req.ShiftType
	if shiftType == "" {
		shiftType = model.ShiftTypeRegular
	}

	return &model.Shift{
		UserID:       userID,
		ShiftDate:    date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: breakMinutes,
		ShiftType:    shiftType,
		Location:     req.Location,
		Status:       model.ShiftStatusApproved,
	}, nil
}

// combineDateTime 将 "HH:MM" 时刻落到指定日期上
func combineDateTime(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// monthRange 某年某月的首日与末日
func monthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, -1)
	return from, to
}

// shiftToDTO 班次模型转响应
func shiftToDTO(shift *model.Shift, loc *time.Location) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:           shift.ShiftID,
		UserID:       shift.UserID,
		Date:         shift.ShiftDate.Format("2006-01-02"),
		StartTime:    shift.StartTime.In(loc).Format("15:04"),
		EndTime:      shift.EndTime.In(loc).Format("15:04"),
		BreakMinutes: shift.BreakMinutes,
		ShiftType:    shift.ShiftType,
		Location:     shift.Location,
		Status:       shift.Status,
	}
	if shift.User != nil {
		resp.UserName = shift.User.Name
	}
	return resp
}
