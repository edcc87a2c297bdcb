package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/service"
	pkgerrors "staffhub/backend/pkg/errors"
	"staffhub/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// List 可见范围内的用户列表
// GET /api/v1/users?page=1&page_size=20
func (h *UserHandler) List(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	list, total, err := h.userSvc.List(c.Request.Context(), RequestScope(c), callerID, page, pageSize)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, page, pageSize)
}

// Get 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.userSvc.Get(c.Request.Context(), RequestScope(c), c.Param("id"), callerID)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrPermissionDenied):
			response.Forbidden(c, 12001, "无权访问目标用户的数据")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 12002, "用户不存在")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// Update 更新用户资料
// PATCH /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.userSvc.Update(c.Request.Context(), RequestScope(c), c.Param("id"), &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrPermissionDenied):
			response.Forbidden(c, 12001, "无权访问目标用户的数据")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 12002, "用户不存在")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}
