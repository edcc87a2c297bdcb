package service

import (
	"go.uber.org/zap"

	"staffhub/backend/config"
	"staffhub/backend/internal/repository"
	"staffhub/backend/pkg/jwt"
	"staffhub/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Role       RoleService
	Settings   SettingsService
	Shift      ShiftService
	Attendance AttendanceService
	Export     ExportService

	// Resolver 供中间件 / Handler 做细粒度权限判定
	Resolver PermissionResolver
}

// NewService 创建 Service 聚合
// rdb 可为 nil：未配置 Redis 时认证黑名单降级
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	resolver := NewPermissionResolver(repo, logger)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:       NewUserService(repo, resolver, logger),
		Role:       NewRoleService(repo, resolver, logger),
		Settings:   NewSettingsService(repo, resolver, logger),
		Shift:      NewShiftService(cfg, repo, resolver, logger),
		Attendance: NewAttendanceService(cfg, repo, resolver, logger),
		Export:     NewExportService(cfg, repo, resolver, logger),
		Resolver:   resolver,
	}
}
