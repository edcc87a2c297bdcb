package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"go.uber.org/zap"

	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
)

// ── 测试辅助 ──

func strPtr(s string) *string { return &s }

type permFixture struct {
	resolver PermissionResolver
	userRepo *mockUserRepo
	roleRepo *mockRoleRepo
	repo     *repository.Repository
}

func setupPermFixture() *permFixture {
	userRepo := newMockUserRepo()
	roleRepo := newMockRoleRepo()
	repo := &repository.Repository{
		User:       userRepo,
		Role:       roleRepo,
		Shift:      newMockShiftRepo(),
		Attendance: newMockAttendanceRepo(),
		Lock:       newMockLockRepo(),
		Settings:   newMockSettingsRepo(),
	}
	return &permFixture{
		resolver: NewPermissionResolver(repo, zap.NewNop()),
		userRepo: userRepo,
		roleRepo: roleRepo,
		repo:     repo,
	}
}

func (f *permFixture) addRole(id string, matrix model.PermissionMatrix) {
	f.roleRepo.roles[id] = &model.Role{RoleID: id, Name: id, PermissionMatrix: matrix}
}

func (f *permFixture) addUser(id, roleID string, companyID *string) {
	f.userRepo.users[id] = &model.User{
		UserID:    id,
		Name:      id,
		Email:     id + "@example.com",
		RoleID:    roleID,
		CompanyID: companyID,
	}
}

// ── 优先级解析 ──

func TestPermissionResolver_GlobalScope(t *testing.T) {
	f := setupPermFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryShift: {model.CapabilityViewAll: true},
	})
	f.addUser("actor", "admin", nil)
	f.addUser("target", "admin", strPtr("company-a"))

	allowed, err := f.resolver.Can(context.Background(), NewRequestContext(),
		"actor", model.CategoryShift, ActionView, "target")
	if err != nil {
		t.Fatalf("Can 应成功: %v", err)
	}
	if !allowed {
		t.Error("viewAll 应允许访问任意用户")
	}
}

func TestPermissionResolver_CompanyScope(t *testing.T) {
	f := setupPermFixture()
	f.addRole("coordinator", model.PermissionMatrix{
		model.CategoryShift: {model.CapabilityViewCompany: true},
	})
	f.addUser("actor", "coordinator", strPtr("company-a"))
	f.addUser("same-co", "coordinator", strPtr("company-a"))
	f.addUser("other-co", "coordinator", strPtr("company-b"))

	rc := NewRequestContext()
	ctx := context.Background()

	allowed, _ := f.resolver.Can(ctx, rc, "actor", model.CategoryShift, ActionView, "same-co")
	if !allowed {
		t.Error("viewCompany 应允许访问同企业用户")
	}
	allowed, _ = f.resolver.Can(ctx, rc, "actor", model.CategoryShift, ActionView, "other-co")
	if allowed {
		t.Error("viewCompany 不应允许访问其他企业用户")
	}
}

func TestPermissionResolver_CompanyScope_BothInternal(t *testing.T) {
	// 双方 company_id 均为 NULL（内勤）视为同企业
	f := setupPermFixture()
	f.addRole("coordinator", model.PermissionMatrix{
		model.CategoryUser: {model.CapabilityViewCompany: true},
	})
	f.addUser("actor", "coordinator", nil)
	f.addUser("target", "coordinator", nil)

	allowed, _ := f.resolver.Can(context.Background(), NewRequestContext(),
		"actor", model.CategoryUser, ActionView, "target")
	if !allowed {
		t.Error("双方均为内勤时 viewCompany 应允许")
	}
}

func TestPermissionResolver_AssignedScope(t *testing.T) {
	f := setupPermFixture()
	f.addRole("manager", model.PermissionMatrix{
		model.CategoryAttendance: {model.CapabilityViewAssigned: true},
	})
	f.addUser("actor", "manager", nil)
	f.addUser("ward", "manager", strPtr("company-a"))
	f.addUser("stranger", "manager", strPtr("company-a"))
	f.userRepo.managedBy["ward"] = []string{"actor"}

	rc := NewRequestContext()
	ctx := context.Background()

	allowed, _ := f.resolver.Can(ctx, rc, "actor", model.CategoryAttendance, ActionView, "ward")
	if !allowed {
		t.Error("viewAssigned 应允许访问担当对象")
	}
	allowed, _ = f.resolver.Can(ctx, rc, "actor", model.CategoryAttendance, ActionView, "stranger")
	if allowed {
		t.Error("viewAssigned 不应允许访问非担当对象")
	}
}

func TestPermissionResolver_SelfAlwaysAllowed(t *testing.T) {
	// 矩阵全空也可访问本人记录
	f := setupPermFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("actor", "staff", strPtr("company-a"))

	allowed, err := f.resolver.Can(context.Background(), NewRequestContext(),
		"actor", model.CategoryShift, ActionEdit, "actor")
	if err != nil {
		t.Fatalf("Can 应成功: %v", err)
	}
	if !allowed {
		t.Error("本人记录应始终可访问")
	}
}

func TestPermissionResolver_DeniedWithoutAnyScope(t *testing.T) {
	f := setupPermFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("actor", "staff", nil)
	f.addUser("target", "staff", nil)

	allowed, _ := f.resolver.Can(context.Background(), NewRequestContext(),
		"actor", model.CategoryShift, ActionView, "target")
	if allowed {
		t.Error("无任何范围标志不应允许访问他人")
	}
}

func TestPermissionResolver_ViewAndEditIndependent(t *testing.T) {
	// 只有 viewCompany 不含 editCompany：查看与编辑标志相互独立
	f := setupPermFixture()
	f.addRole("viewer", model.PermissionMatrix{
		model.CategoryShift: {model.CapabilityViewCompany: true},
	})
	f.addUser("actor", "viewer", strPtr("company-a"))
	f.addUser("target", "viewer", strPtr("company-a"))

	rc := NewRequestContext()
	ctx := context.Background()

	allowed, _ := f.resolver.Can(ctx, rc, "actor", model.CategoryShift, ActionView, "target")
	if !allowed {
		t.Error("viewCompany 应允许查看")
	}
	allowed, _ = f.resolver.Can(ctx, rc, "actor", model.CategoryShift, ActionEdit, "target")
	if allowed {
		t.Error("仅有 viewCompany 不应允许编辑")
	}
}

func TestPermissionResolver_ActorNotFound(t *testing.T) {
	f := setupPermFixture()

	_, err := f.resolver.Can(context.Background(), NewRequestContext(),
		"ghost", model.CategoryShift, ActionView, "anyone")
	if !errors.Is(err, ErrPermissionActorNotFound) {
		t.Errorf("期望 ErrPermissionActorNotFound，实际: %v", err)
	}
}

// ── 可见集合物化 ──

func TestPermissionResolver_AccessibleUserIDs_Global(t *testing.T) {
	f := setupPermFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryAttendance: {model.CapabilityViewAll: true},
	})
	f.addUser("actor", "admin", nil)
	f.addUser("u1", "admin", strPtr("company-a"))
	f.addUser("u2", "admin", strPtr("company-b"))

	ids, err := f.resolver.AccessibleUserIDs(context.Background(), NewRequestContext(),
		"actor", model.CategoryAttendance, ActionView)
	if err != nil {
		t.Fatalf("AccessibleUserIDs 应成功: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("viewAll 期望可见 3 人，实际=%d", len(ids))
	}
}

func TestPermissionResolver_AccessibleUserIDs_Company(t *testing.T) {
	f := setupPermFixture()
	f.addRole("coordinator", model.PermissionMatrix{
		model.CategoryAttendance: {model.CapabilityViewCompany: true},
	})
	f.addUser("actor", "coordinator", strPtr("company-a"))
	f.addUser("mate", "coordinator", strPtr("company-a"))
	f.addUser("outsider", "coordinator", strPtr("company-b"))

	ids, err := f.resolver.AccessibleUserIDs(context.Background(), NewRequestContext(),
		"actor", model.CategoryAttendance, ActionView)
	if err != nil {
		t.Fatalf("AccessibleUserIDs 应成功: %v", err)
	}
	sort.Strings(ids)
	want := []string{"actor", "mate"}
	if len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("期望可见 %v，实际=%v", want, ids)
	}
}

func TestPermissionResolver_AccessibleUserIDs_NoScopeReturnsEmpty(t *testing.T) {
	// 无范围标志返回空集；仅本人回退由调用方负责
	f := setupPermFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("actor", "staff", nil)
	f.addUser("other", "staff", nil)

	ids, err := f.resolver.AccessibleUserIDs(context.Background(), NewRequestContext(),
		"actor", model.CategoryAttendance, ActionView)
	if err != nil {
		t.Fatalf("AccessibleUserIDs 应成功: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("无范围标志期望空集，实际=%v", ids)
	}
}

// ── 非范围型能力 ──

func TestPermissionResolver_HasCapability(t *testing.T) {
	f := setupPermFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryShift: {model.CapabilityUnlock: true},
	})
	f.addUser("actor", "admin", nil)

	rc := NewRequestContext()
	ctx := context.Background()

	has, _ := f.resolver.HasCapability(ctx, rc, "actor", model.CategoryShift, model.CapabilityUnlock)
	if !has {
		t.Error("期望具备 unlock 能力")
	}
	has, _ = f.resolver.HasCapability(ctx, rc, "actor", model.CategoryShift, model.CapabilityForceRegister)
	if has {
		t.Error("未授予的 forceRegister 不应具备")
	}
}

// ── 请求级缓存 ──

func TestPermissionResolver_RequestContextMemoizes(t *testing.T) {
	f := setupPermFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryShift: {model.CapabilityViewAll: true},
	})
	f.addUser("actor", "admin", nil)
	f.addUser("target", "admin", nil)

	rc := NewRequestContext()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.resolver.Can(ctx, rc, "actor", model.CategoryShift, ActionView, "target"); err != nil {
			t.Fatalf("Can 应成功: %v", err)
		}
	}
	// viewAll 立即命中，仅首次判定读取 actor 一次
	if f.userRepo.getByIDCalls != 1 {
		t.Errorf("同一请求重复判定期望落库 1 次，实际=%d", f.userRepo.getByIDCalls)
	}
}

func TestPermissionResolver_FreshContextHitsStoreAgain(t *testing.T) {
	// 缓存与请求同生命周期：新请求重新落库
	f := setupPermFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryShift: {model.CapabilityViewAll: true},
	})
	f.addUser("actor", "admin", nil)
	f.addUser("target", "admin", nil)

	ctx := context.Background()
	f.resolver.Can(ctx, NewRequestContext(), "actor", model.CategoryShift, ActionView, "target")
	first := f.userRepo.getByIDCalls
	f.resolver.Can(ctx, NewRequestContext(), "actor", model.CategoryShift, ActionView, "target")
	if f.userRepo.getByIDCalls != first*2 {
		t.Errorf("新请求应重新落库：首次=%d，两次后=%d", first, f.userRepo.getByIDCalls)
	}
}
