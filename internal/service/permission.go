package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
)

// ── 权限解析 ──
//
// 设计说明：
//   - 解析顺序编码业务优先级（矩阵各标志相互独立，并非互斥）：
//     global → company → assigned → self → 拒绝。
//   - RequestContext 是显式传递的请求范围缓存句柄：每个入站请求构造一次、
//     请求结束即丢弃，绝不跨请求复用。它只是优化，不是事实来源，
//     任何时刻丢弃都不影响正确性。
//   - 若角色对某分类不具备任何范围标志，可见集合为空；
//     回退到「仅本人可见」由调用方负责，解析器保持纯能力函数。

var ErrPermissionActorNotFound = errors.New("操作者不存在")

// ScopedAction 范围型动作：按 global/company/assigned 三级标志解析
type ScopedAction string

const (
	ActionView ScopedAction = "view"
	ActionEdit ScopedAction = "edit"
)

// scopeCaps 动作对应的三级能力标志
func (a ScopedAction) scopeCaps() (all, company, assigned model.Capability) {
	if a == ActionEdit {
		return model.CapabilityEditAll, model.CapabilityEditCompany, model.CapabilityEditAssigned
	}
	return model.CapabilityViewAll, model.CapabilityViewCompany, model.CapabilityViewAssigned
}

// RequestContext 请求范围缓存
// 非并发安全：同一请求内同步调用，禁止跨请求共享
type RequestContext struct {
	users          map[string]*model.User
	roles          map[string]*model.Role
	assignedIDs    map[string][]string // actorID → 担当对象用户 ID
	companyMembers map[string][]string // 企业键 → 成员用户 ID（内勤键为空串）
	allUserIDs     []string
	allLoaded      bool
	decisions      map[string]bool // "actor|cat|action|target" → 判定
}

// NewRequestContext 创建请求范围缓存（每个入站请求一次）
func NewRequestContext() *RequestContext {
	return &RequestContext{
		users:          make(map[string]*model.User),
		roles:          make(map[string]*model.Role),
		assignedIDs:    make(map[string][]string),
		companyMembers: make(map[string][]string),
		decisions:      make(map[string]bool),
	}
}

// PermissionResolver 权限解析接口
type PermissionResolver interface {
	// Can 判定操作者对目标用户是否具备某分类下的范围型动作
	Can(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, action ScopedAction, targetID string) (bool, error)
	// AccessibleUserIDs 物化操作者在某分类某动作下的可见用户 ID 集合
	AccessibleUserIDs(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, action ScopedAction) ([]string, error)
	// HasCapability 查询非范围型能力标志（forceRegister、unlock、forceClock 等）
	HasCapability(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, cap model.Capability) (bool, error)
}

type permissionResolver struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPermissionResolver 创建 PermissionResolver 实例
func NewPermissionResolver(repo *repository.Repository, logger *zap.Logger) PermissionResolver {
	return &permissionResolver{repo: repo, logger: logger}
}

func (r *permissionResolver) Can(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, action ScopedAction, targetID string) (bool, error) {
	memoKey := actorID + "|" + string(cat) + "|" + string(action) + "|" + targetID
	if v, ok := rc.decisions[memoKey]; ok {
		return v, nil
	}

	allowed, err := r.resolve(ctx, rc, actorID, cat, action, targetID)
	if err != nil {
		return false, err
	}

	rc.decisions[memoKey] = allowed
	return allowed, nil
}

func (r *permissionResolver) resolve(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, action ScopedAction, targetID string) (bool, error) {
	matrix, actor, err := r.actorMatrix(ctx, rc, actorID)
	if err != nil {
		return false, err
	}

	capAll, capCompany, capAssigned := action.scopeCaps()

	// 1. global
	if matrix.Has(cat, capAll) {
		return true, nil
	}

	// 2. company：与目标同企业（双方均为内勤即同为 NULL 也视为同企业）
	if matrix.Has(cat, capCompany) {
		target, err := r.cachedUser(ctx, rc, targetID)
		if err != nil {
			return false, err
		}
		if sameCompany(actor.CompanyID, target.CompanyID) {
			return true, nil
		}
	}

	// 3. assigned：操作者被列入目标的担当者
	if matrix.Has(cat, capAssigned) {
		assigned, err := r.cachedAssigned(ctx, rc, actorID)
		if err != nil {
			return false, err
		}
		for _, id := range assigned {
			if id == targetID {
				return true, nil
			}
		}
	}

	// 4. self：本人记录始终可访问，与矩阵无关
	if actorID == targetID {
		return true, nil
	}

	return false, nil
}

func (r *permissionResolver) AccessibleUserIDs(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, action ScopedAction) ([]string, error) {
	matrix, actor, err := r.actorMatrix(ctx, rc, actorID)
	if err != nil {
		return nil, err
	}

	capAll, capCompany, capAssigned := action.scopeCaps()

	if matrix.Has(cat, capAll) {
		return r.cachedAllUserIDs(ctx, rc)
	}

	if matrix.Has(cat, capCompany) {
		return r.cachedCompanyMembers(ctx, rc, actor.CompanyID)
	}

	if matrix.Has(cat, capAssigned) {
		return r.cachedAssigned(ctx, rc, actorID)
	}

	// 无任何范围标志：返回空集，仅本人可见的回退由调用方决定
	return nil, nil
}

func (r *permissionResolver) HasCapability(ctx context.Context, rc *RequestContext, actorID string, cat model.Category, cap model.Capability) (bool, error) {
	matrix, _, err := r.actorMatrix(ctx, rc, actorID)
	if err != nil {
		return false, err
	}
	return matrix.Has(cat, cap), nil
}

// ── 缓存包装的仓储读取 ──

func (r *permissionResolver) actorMatrix(ctx context.Context, rc *RequestContext, actorID string) (model.PermissionMatrix, *model.User, error) {
	actor, err := r.cachedUser(ctx, rc, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPermissionActorNotFound
		}
		return nil, nil, err
	}

	role, err := r.cachedRole(ctx, rc, actor.RoleID)
	if err != nil {
		return nil, nil, err
	}
	return role.PermissionMatrix, actor, nil
}

func (r *permissionResolver) cachedUser(ctx context.Context, rc *RequestContext, userID string) (*model.User, error) {
	if u, ok := rc.users[userID]; ok {
		return u, nil
	}
	u, err := r.repo.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rc.users[userID] = u
	return u, nil
}

func (r *permissionResolver) cachedRole(ctx context.Context, rc *RequestContext, roleID string) (*model.Role, error) {
	if role, ok := rc.roles[roleID]; ok {
		return role, nil
	}
	role, err := r.repo.Role.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	rc.roles[roleID] = role
	return role, nil
}

func (r *permissionResolver) cachedAssigned(ctx context.Context, rc *RequestContext, actorID string) ([]string, error) {
	if ids, ok := rc.assignedIDs[actorID]; ok {
		return ids, nil
	}
	ids, err := r.repo.User.ListIDsManagedBy(ctx, actorID)
	if err != nil {
		return nil, err
	}
	rc.assignedIDs[actorID] = ids
	return ids, nil
}

func (r *permissionResolver) cachedCompanyMembers(ctx context.Context, rc *RequestContext, companyID *string) ([]string, error) {
	key := ""
	if companyID != nil {
		key = *companyID
	}
	if ids, ok := rc.companyMembers[key]; ok {
		return ids, nil
	}
	ids, err := r.repo.User.ListIDsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	rc.companyMembers[key] = ids
	return ids, nil
}

func (r *permissionResolver) cachedAllUserIDs(ctx context.Context, rc *RequestContext) ([]string, error) {
	if rc.allLoaded {
		return rc.allUserIDs, nil
	}
	ids, err := r.repo.User.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	rc.allUserIDs = ids
	rc.allLoaded = true
	return ids, nil
}

// sameCompany 企业归属比较：双方均为 NULL（内勤）视为同企业
func sameCompany(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
