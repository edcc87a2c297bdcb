package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/service"
	pkgerrors "staffhub/backend/pkg/errors"
	"staffhub/backend/pkg/response"
)

// RoleHandler 角色模块 HTTP 处理器
type RoleHandler struct {
	roleSvc service.RoleService
}

// NewRoleHandler 创建 RoleHandler
func NewRoleHandler(roleSvc service.RoleService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc}
}

// Create 创建角色
// POST /api/v1/roles
func (h *RoleHandler) Create(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.roleSvc.Create(c.Request.Context(), RequestScope(c), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// List 角色列表
// GET /api/v1/roles
func (h *RoleHandler) List(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.roleSvc.List(c.Request.Context(), RequestScope(c), callerID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Get 角色详情
// GET /api/v1/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.roleSvc.Get(c.Request.Context(), RequestScope(c), c.Param("id"), callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 更新角色
// PATCH /api/v1/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.roleSvc.Update(c.Request.Context(), RequestScope(c), c.Param("id"), &req, callerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除角色
// DELETE /api/v1/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.roleSvc.Delete(c.Request.Context(), RequestScope(c), c.Param("id"), callerID); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, nil)
}

// writeError 角色模块统一错误映射
func (h *RoleHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		response.Forbidden(c, 13001, "无权管理角色")
	case errors.Is(err, service.ErrRoleNotFound):
		response.NotFound(c, 13002, "角色不存在")
	case errors.Is(err, service.ErrRoleInUse):
		response.Conflict(c, 13003, "仍有用户使用该角色，无法删除")
	case errors.Is(err, service.ErrInvalidMatrix):
		response.BadRequest(c, 13004, err.Error())
	default:
		response.InternalError(c)
	}
}
