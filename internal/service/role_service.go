package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

var (
	ErrRoleNotFound  = errors.New("角色不存在")
	ErrRoleInUse     = errors.New("仍有用户使用该角色，无法删除")
	ErrInvalidMatrix = errors.New("权限矩阵无效")
)

// RoleService 角色业务接口
// 权限矩阵为封闭集合：未知分类 / 能力在写入前即拒绝
type RoleService interface {
	Create(ctx context.Context, rc *RequestContext, req *dto.CreateRoleRequest, callerID string) (*dto.RoleResponse, error)
	Get(ctx context.Context, rc *RequestContext, roleID, callerID string) (*dto.RoleResponse, error)
	List(ctx context.Context, rc *RequestContext, callerID string) ([]dto.RoleResponse, error)
	Update(ctx context.Context, rc *RequestContext, roleID string, req *dto.UpdateRoleRequest, callerID string) (*dto.RoleResponse, error)
	Delete(ctx context.Context, rc *RequestContext, roleID, callerID string) error
}

type roleService struct {
	repo     *repository.Repository
	resolver PermissionResolver
	logger   *zap.Logger
}

// NewRoleService 创建 RoleService 实例
func NewRoleService(repo *repository.Repository, resolver PermissionResolver, logger *zap.Logger) RoleService {
	return &roleService{repo: repo, resolver: resolver, logger: logger}
}

// ensureAdmin 角色管理统一要求系统设置编辑能力
func (s *roleService) ensureAdmin(ctx context.Context, rc *RequestContext, callerID string) error {
	allowed, err := s.resolver.HasCapability(ctx, rc, callerID, model.CategorySettings, model.CapabilityEdit)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.ErrPermissionDenied
	}
	return nil
}

func (s *roleService) Create(ctx context.Context, rc *RequestContext, req *dto.CreateRoleRequest, callerID string) (*dto.RoleResponse, error) {
	if err := s.ensureAdmin(ctx, rc, callerID); err != nil {
		return nil, err
	}
	if err := req.PermissionMatrix.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatrix, err)
	}

	role := &model.Role{
		Name:             req.Name,
		PermissionMatrix: req.PermissionMatrix,
		PageAccess:       req.PageAccess,
	}
	role.CreatedBy = &callerID
	role.UpdatedBy = &callerID

	if err := s.repo.Role.Create(ctx, role); err != nil {
		s.logger.Error("创建角色失败", zap.Error(err))
		return nil, err
	}
	return roleToDTO(role), nil
}

func (s *roleService) Get(ctx context.Context, rc *RequestContext, roleID, callerID string) (*dto.RoleResponse, error) {
	role, err := s.repo.Role.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return roleToDTO(role), nil
}

func (s *roleService) List(ctx context.Context, rc *RequestContext, callerID string) ([]dto.RoleResponse, error) {
	roles, err := s.repo.Role.List(ctx)
	if err != nil {
		s.logger.Error("查询角色列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		result = append(result, *roleToDTO(&roles[i]))
	}
	return result, nil
}

func (s *roleService) Update(ctx context.Context, rc *RequestContext, roleID string, req *dto.UpdateRoleRequest, callerID string) (*dto.RoleResponse, error) {
	if err := s.ensureAdmin(ctx, rc, callerID); err != nil {
		return nil, err
	}

	role, err := s.repo.Role.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.PermissionMatrix != nil {
		if err := req.PermissionMatrix.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMatrix, err)
		}
		role.PermissionMatrix = *req.PermissionMatrix
	}
	if req.PageAccess != nil {
		role.PageAccess = *req.PageAccess
	}
	role.UpdatedBy = &callerID

	if err := s.repo.Role.Update(ctx, role); err != nil {
		s.logger.Error("更新角色失败", zap.Error(err))
		return nil, err
	}
	return roleToDTO(role), nil
}

func (s *roleService) Delete(ctx context.Context, rc *RequestContext, roleID, callerID string) error {
	if err := s.ensureAdmin(ctx, rc, callerID); err != nil {
		return err
	}

	count, err := s.repo.Role.CountUsers(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.repo.Role.Delete(ctx, roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return err
	}
	return nil
}

func roleToDTO(role *model.Role) *dto.RoleResponse {
	return &dto.RoleResponse{
		ID:               role.RoleID,
		Name:             role.Name,
		PermissionMatrix: role.PermissionMatrix,
		PageAccess:       role.PageAccess,
	}
}
