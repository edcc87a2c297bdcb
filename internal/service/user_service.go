package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

// UserService 用户业务接口
type UserService interface {
	// List 操作者可见范围内的用户列表（分页）
	List(ctx context.Context, rc *RequestContext, callerID string, page, pageSize int) ([]dto.UserResponse, int64, error)
	Get(ctx context.Context, rc *RequestContext, userID, callerID string) (*dto.UserDetailResponse, error)
	// Update 修改用户资料；ManagerIDs 非 nil 时整体替换担当关系
	Update(ctx context.Context, rc *RequestContext, userID string, req *dto.UpdateUserRequest, callerID string) (*dto.UserDetailResponse, error)
}

type userService struct {
	repo     *repository.Repository
	resolver PermissionResolver
	logger   *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, resolver PermissionResolver, logger *zap.Logger) UserService {
	return &userService{repo: repo, resolver: resolver, logger: logger}
}

func (s *userService) List(ctx context.Context, rc *RequestContext, callerID string, page, pageSize int) ([]dto.UserResponse, int64, error) {
	ids, err := s.resolver.AccessibleUserIDs(ctx, rc, callerID, model.CategoryUser, ActionView)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		ids = []string{callerID}
	}

	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}

	total := int64(len(users))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(users) {
		return []dto.UserResponse{}, total, nil
	}
	end := start + pageSize
	if end > len(users) {
		end = len(users)
	}

	result := make([]dto.UserResponse, 0, end-start)
	for i := start; i < end; i++ {
		result = append(result, *userToDTO(&users[i]))
	}
	return result, total, nil
}

func (s *userService) Get(ctx context.Context, rc *RequestContext, userID, callerID string) (*dto.UserDetailResponse, error) {
	if userID != callerID {
		allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryUser, ActionView, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, pkgerrors.ErrPermissionDenied
		}
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return userToDetailDTO(user), nil
}

func (s *userService) Update(ctx context.Context, rc *RequestContext, userID string, req *dto.UpdateUserRequest, callerID string) (*dto.UserDetailResponse, error) {
	allowed, err := s.resolver.Can(ctx, rc, callerID, model.CategoryUser, ActionEdit, userID)
	if err != nil {
		return nil, err
	}
	if !allowed && userID != callerID {
		return nil, pkgerrors.ErrPermissionDenied
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.CompanyID != nil {
		if *req.CompanyID == "" {
			user.CompanyID = nil // 转为内勤员工
		} else {
			user.CompanyID = req.CompanyID
		}
	}
	if req.WakeUpEnabled != nil {
		user.WakeUpEnabled = *req.WakeUpEnabled
	}
	if req.DepartureEnabled != nil {
		user.DepartureEnabled = *req.DepartureEnabled
	}
	if req.DefaultLocation != nil {
		user.DefaultLocation = *req.DefaultLocation
	}
	user.UpdatedBy = &callerID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.Error(err))
		return nil, err
	}

	if req.ManagerIDs != nil {
		if err := s.repo.User.ReplaceManagers(ctx, userID, *req.ManagerIDs); err != nil {
			s.logger.Error("替换担当关系失败", zap.Error(err))
			return nil, err
		}
	}

	// 返回更新后完整资料（含担当）
	user, err = s.repo.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userToDetailDTO(user), nil
}
