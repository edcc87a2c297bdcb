package service

import (
	"context"

	"go.uber.org/zap"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

// SettingsService 系统设置业务接口
type SettingsService interface {
	// Get 读取系统设置（不存在时以默认值懒创建）
	Get(ctx context.Context) (*dto.SettingsResponse, error)
	// Update 更新系统设置（需 system_settings.edit 能力）
	Update(ctx context.Context, rc *RequestContext, req *dto.UpdateSettingsRequest, callerID string) (*dto.SettingsResponse, error)
}

type settingsService struct {
	repo     *repository.Repository
	resolver PermissionResolver
	logger   *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(repo *repository.Repository, resolver PermissionResolver, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, resolver: resolver, logger: logger}
}

func (s *settingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	settings, err := s.repo.Settings.GetOrCreate(ctx)
	if err != nil {
		s.logger.Error("读取系统设置失败", zap.Error(err))
		return nil, err
	}
	return settingsToDTO(settings), nil
}

func (s *settingsService) Update(ctx context.Context, rc *RequestContext, req *dto.UpdateSettingsRequest, callerID string) (*dto.SettingsResponse, error) {
	allowed, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategorySettings, model.CapabilityEdit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.ErrPermissionDenied
	}

	settings, err := s.repo.Settings.GetOrCreate(ctx)
	if err != nil {
		s.logger.Error("读取系统设置失败", zap.Error(err))
		return nil, err
	}

	if req.RegistrationDeadlineDay != nil {
		settings.RegistrationDeadlineDay = *req.RegistrationDeadlineDay
	}
	settings.UpdatedBy = &callerID

	if err := s.repo.Settings.Update(ctx, settings); err != nil {
		s.logger.Error("更新系统设置失败", zap.Error(err))
		return nil, err
	}

	return settingsToDTO(settings), nil
}

func settingsToDTO(settings *model.SystemSettings) *dto.SettingsResponse {
	return &dto.SettingsResponse{
		RegistrationDeadlineDay: settings.RegistrationDeadlineDay,
		UpdatedAt:               settings.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
