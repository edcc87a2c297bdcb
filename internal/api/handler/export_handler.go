package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/service"
	pkgerrors "staffhub/backend/pkg/errors"
	"staffhub/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportMonthlyAttendance 导出月度考勤汇总
// GET /api/v1/export/attendance?year=2026&month=8
func (h *ExportHandler) ExportMonthlyAttendance(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportMonthlyAttendance(c.Request.Context(), RequestScope(c), year, month, callerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		response.Forbidden(c, 17001, "无权导出考勤数据")
	case errors.Is(err, service.ErrExportNoMembers):
		response.NotFound(c, 17002, "可见范围内没有用户")
	default:
		response.InternalError(c)
	}
}
