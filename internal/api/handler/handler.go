package handler

import "staffhub/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Role       *RoleHandler
	Settings   *SettingsHandler
	Shift      *ShiftHandler
	Attendance *AttendanceHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Role:       NewRoleHandler(svc.Role),
		Settings:   NewSettingsHandler(svc.Settings),
		Shift:      NewShiftHandler(svc.Shift),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Export:     NewExportHandler(svc.Export),
	}
}
