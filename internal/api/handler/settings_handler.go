package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/service"
	pkgerrors "staffhub/backend/pkg/errors"
	"staffhub/backend/pkg/response"
)

// SettingsHandler 系统设置 HTTP 处理器
type SettingsHandler struct {
	settingsSvc service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingsSvc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

// Get 读取系统设置（首次访问时落默认值）
// GET /api/v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	result, err := h.settingsSvc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Update 更新系统设置
// PATCH /api/v1/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.settingsSvc.Update(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrPermissionDenied) {
			response.Forbidden(c, 14001, "无权修改系统设置")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}
