package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"staffhub/backend/config"
	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	"staffhub/backend/pkg/jwt"
	"staffhub/backend/pkg/redis"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrWrongTokenType     = errors.New("token 类型错误")
	ErrPasswordMismatch   = errors.New("原密码不正确")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// RefreshToken 用 refresh token 换发新的 token 对；旧 refresh token 加入黑名单
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	// Logout 将当前 token 加入黑名单直至其自然过期
	Logout(ctx context.Context, claims *jwt.Claims) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserDetailResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// rdb 可为 nil（未配置 Redis 时黑名单降级为不可用）
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(user, req.RememberMe)
}

func (s *authService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, ErrWrongTokenType
	}

	// 已注销的 refresh token 不可复用
	if s.rdb != nil {
		blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("查询 token 黑名单失败", zap.Error(err))
		} else if blacklisted {
			return nil, jwt.ErrTokenInvalid
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 旧 refresh token 作废，实现单次轮换
	if s.rdb != nil && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl > 0 {
			if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
				s.logger.Warn("旧 refresh token 拉黑失败", zap.Error(err))
			}
		}
	}

	return s.issueTokens(user, claims.RememberMe)
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.rdb == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.BlacklistToken(ctx, claims.ID, ttl)
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserDetailResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	return userToDetailDTO(user), nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.UpdatedBy = &userID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新密码失败", zap.Error(err))
		return err
	}
	return nil
}

// issueTokens 生成并包装 token 对
func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	companyID := ""
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.RoleID, companyID)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.RoleID, companyID, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         *userToDTO(user),
	}, nil
}

// ── 用户 DTO 变换（认证与用户模块共用）──

func userToDTO(user *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:               user.UserID,
		Name:             user.Name,
		Email:            user.Email,
		RoleID:           user.RoleID,
		WakeUpEnabled:    user.WakeUpEnabled,
		DepartureEnabled: user.DepartureEnabled,
		DefaultLocation:  user.DefaultLocation,
	}
	if user.Role != nil {
		resp.RoleName = user.Role.Name
	}
	if user.Company != nil {
		resp.Company = &dto.CompanyResponse{
			ID:   user.Company.CompanyID,
			Name: user.Company.Name,
		}
	}
	return resp
}

func userToDetailDTO(user *model.User) *dto.UserDetailResponse {
	resp := &dto.UserDetailResponse{
		UserResponse: *userToDTO(user),
		ManagerIDs:   make([]string, 0, len(user.Managers)),
	}
	for i := range user.Managers {
		resp.ManagerIDs = append(resp.ManagerIDs, user.Managers[i].UserID)
	}
	return resp
}
