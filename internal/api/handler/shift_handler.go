package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/service"
	pkgerrors "staffhub/backend/pkg/errors"
	"staffhub/backend/pkg/response"
)

// ShiftHandler 班次模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// Register 登记单条班次
// POST /api/v1/shifts
func (h *ShiftHandler) Register(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ShiftItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.Register(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// BatchCreate 批量登记班次
// POST /api/v1/shifts/batch
func (h *ShiftHandler) BatchCreate(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BatchCreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.BatchCreate(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 更新班次
// PATCH /api/v1/shifts/:id
func (h *ShiftHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.Update(c.Request.Context(), RequestScope(c), c.Param("id"), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除班次
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.shiftSvc.Delete(c.Request.Context(), RequestScope(c), c.Param("id"), callerID); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, nil)
}

// BulkUpdate 批量更新班次
// POST /api/v1/shifts/bulk-update
func (h *ShiftHandler) BulkUpdate(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BulkUpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.BulkUpdate(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// BulkDelete 批量删除班次
// POST /api/v1/shifts/bulk-delete
func (h *ShiftHandler) BulkDelete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BulkShiftIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.BulkDelete(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// GetMonth 月度班次一览
// GET /api/v1/shifts?user_id=&year=2026&month=8
func (h *ShiftHandler) GetMonth(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	result, err := h.shiftSvc.GetMonth(c.Request.Context(), RequestScope(c), c.Query("user_id"), year, month, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// CheckWindow 查询登记窗口状态
// GET /api/v1/shifts/window?user_id=&date=2026-09-15
func (h *ShiftHandler) CheckWindow(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.shiftSvc.CheckWindow(c.Request.Context(), RequestScope(c), c.Query("user_id"), c.Query("date"), callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Unlock 发放解锁覆盖
// POST /api/v1/shifts/unlock
func (h *ShiftHandler) Unlock(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UnlockRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.Unlock(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// writeError 班次模块统一错误映射
func (h *ShiftHandler) writeError(c *gin.Context, err error) {
	var denied *service.RegistrationDeniedError
	switch {
	case errors.As(err, &denied):
		// 窗口拒绝携带机器可读原因码
		response.ErrorWithDetails(c, 403, 15001, "登记窗口已关闭", string(denied.Reason))
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		response.Forbidden(c, 15002, "无权访问目标用户的数据")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 15003, "班次不存在")
	case errors.Is(err, service.ErrShiftDuplicate):
		response.Conflict(c, 15004, "该用户该日期已存在班次")
	case errors.Is(err, service.ErrShiftHasAttendance):
		response.Conflict(c, 15005, "该日期已存在考勤事件，班次不可删除")
	case errors.Is(err, service.ErrShiftInvalidDate),
		errors.Is(err, service.ErrShiftInvalidTime),
		errors.Is(err, service.ErrShiftEndNotAfter):
		response.BadRequest(c, 15006, err.Error())
	case errors.Is(err, service.ErrShiftUserNotFound):
		response.NotFound(c, 15007, "目标用户不存在")
	default:
		response.InternalError(c)
	}
}

// parseYearMonth 解析 year / month 查询参数，缺省为当前月
func parseYearMonth(c *gin.Context) (int, int, bool) {
	now := time.Now()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil || year < 2000 || year > 2100 {
		response.BadRequest(c, 10001, "year 参数无效")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		response.BadRequest(c, 10001, "month 参数无效")
		return 0, 0, false
	}
	return year, month, true
}
