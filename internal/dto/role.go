package dto

import "staffhub/backend/internal/model"

// ── 角色模块 DTO ──

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Name             string                 `json:"name" binding:"required,min=1,max=100"`
	PermissionMatrix model.PermissionMatrix `json:"permission_matrix" binding:"required"`
	PageAccess       model.PageAccess       `json:"page_access"`
}

// UpdateRoleRequest 更新角色请求
type UpdateRoleRequest struct {
	Name             *string                 `json:"name" binding:"omitempty,min=1,max=100"`
	PermissionMatrix *model.PermissionMatrix `json:"permission_matrix"`
	PageAccess       *model.PageAccess       `json:"page_access"`
}

// RoleResponse 角色响应
type RoleResponse struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	PermissionMatrix model.PermissionMatrix `json:"permission_matrix"`
	PageAccess       model.PageAccess       `json:"page_access"`
}
