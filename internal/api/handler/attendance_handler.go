package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/service"
	pkgerrors "staffhub/backend/pkg/errors"
	"staffhub/backend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Punch 本人打卡 / 报告
// POST /api/v1/attendance/punch
func (h *AttendanceHandler) Punch(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Punch(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// ForceClock 管理员代打卡
// POST /api/v1/attendance/force-clock
func (h *AttendanceHandler) ForceClock(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ForceClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.ForceClock(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// Correct 修正打卡时间
// POST /api/v1/attendance/corrections
func (h *AttendanceHandler) Correct(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CorrectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Correct(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// MonthlyView 单用户月度对账视图
// GET /api/v1/attendance/monthly?user_id=&year=2026&month=8
func (h *AttendanceHandler) MonthlyView(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.MonthlyView(c.Request.Context(), RequestScope(c), c.Query("user_id"), year, month, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// TeamSummary 可见范围的团队月度汇总
// GET /api/v1/attendance/team?year=2026&month=8
func (h *AttendanceHandler) TeamSummary(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.TeamSummary(c.Request.Context(), RequestScope(c), year, month, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// ListCorrections 某事件的修正审计记录
// GET /api/v1/attendance/events/:id/corrections
func (h *AttendanceHandler) ListCorrections(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.ListCorrections(c.Request.Context(), RequestScope(c), c.Param("id"), callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// writeError 考勤模块统一错误映射
func (h *AttendanceHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		response.Forbidden(c, 16001, "无权访问目标用户的数据")
	case errors.Is(err, service.ErrAlreadyPunched):
		response.Conflict(c, 16002, "该类型事件当日已登记，请走修正流程")
	case errors.Is(err, service.ErrPunchTypeDisabled):
		response.BadRequest(c, 16003, "该用户未启用此报告类型")
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 16004, "考勤事件不存在")
	case errors.Is(err, service.ErrAttendanceNoTarget):
		response.NotFound(c, 16005, "目标用户不存在")
	case errors.Is(err, service.ErrEventInvalidDate),
		errors.Is(err, service.ErrEventInvalidTime):
		response.BadRequest(c, 16006, err.Error())
	default:
		response.InternalError(c)
	}
}
