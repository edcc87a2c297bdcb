package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"staffhub/backend/internal/dto"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

type userFixture struct {
	svc   UserService
	users *mockUserRepo
	roles *mockRoleRepo
}

func setupUserFixture() *userFixture {
	users := newMockUserRepo()
	roles := newMockRoleRepo()
	repo := &repository.Repository{
		User:       users,
		Role:       roles,
		Shift:      newMockShiftRepo(),
		Attendance: newMockAttendanceRepo(),
		Lock:       newMockLockRepo(),
		Settings:   newMockSettingsRepo(),
	}
	return &userFixture{
		svc:   NewUserService(repo, NewPermissionResolver(repo, zap.NewNop()), zap.NewNop()),
		users: users,
		roles: roles,
	}
}

func (f *userFixture) addRole(id string, matrix model.PermissionMatrix) {
	f.roles.roles[id] = &model.Role{RoleID: id, Name: id, PermissionMatrix: matrix}
}

func (f *userFixture) addUser(id, roleID string, companyID *string) {
	f.users.users[id] = &model.User{
		UserID: id, Name: id, Email: id + "@example.com",
		RoleID: roleID, CompanyID: companyID,
	}
}

func TestUserService_List_ScopeAndPaging(t *testing.T) {
	f := setupUserFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryUser: {model.CapabilityViewAll: true},
	})
	f.addUser("admin-a", "admin", nil)
	f.addUser("user-b", "admin", nil)
	f.addUser("user-c", "admin", nil)

	rc := NewRequestContext()
	ctx := context.Background()

	page1, total, err := f.svc.List(ctx, rc, "admin-a", 1, 2)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 3 {
		t.Errorf("期望总数 3，实际=%d", total)
	}
	if len(page1) != 2 {
		t.Errorf("期望第一页 2 条，实际=%d", len(page1))
	}

	page2, _, err := f.svc.List(ctx, rc, "admin-a", 2, 2)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("期望第二页 1 条，实际=%d", len(page2))
	}
}

func TestUserService_List_SelfFallback(t *testing.T) {
	// 无范围型查看能力：列表只含本人
	f := setupUserFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("user-a", "staff", nil)
	f.addUser("user-b", "staff", nil)

	list, total, err := f.svc.List(context.Background(), NewRequestContext(), "user-a", 1, 20)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != "user-a" {
		t.Errorf("期望仅本人 1 条，实际 total=%d list=%+v", total, list)
	}
}

func TestUserService_Get_PermissionDenied(t *testing.T) {
	f := setupUserFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("user-a", "staff", nil)
	f.addUser("user-b", "staff", nil)

	rc := NewRequestContext()
	ctx := context.Background()

	if _, err := f.svc.Get(ctx, rc, "user-a", "user-a"); err != nil {
		t.Errorf("查看本人应成功: %v", err)
	}
	if _, err := f.svc.Get(ctx, rc, "user-b", "user-a"); !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无查看能力查他人应被拒，实际: %v", err)
	}
}

func TestUserService_Update_SelfProfile(t *testing.T) {
	f := setupUserFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("user-a", "staff", nil)

	name := "新しい名前"
	wakeUp := true
	resp, err := f.svc.Update(context.Background(), NewRequestContext(), "user-a",
		&dto.UpdateUserRequest{Name: &name, WakeUpEnabled: &wakeUp}, "user-a")
	if err != nil {
		t.Fatalf("本人更新应成功: %v", err)
	}
	if resp.Name != name || !resp.WakeUpEnabled {
		t.Errorf("更新未生效: %+v", resp)
	}
}

func TestUserService_Update_CompanyTransfer(t *testing.T) {
	f := setupUserFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryUser: {model.CapabilityEditAll: true},
	})
	f.addUser("admin-a", "admin", nil)
	companyA := "company-a"
	f.addUser("user-a", "admin", &companyA)

	// 空串表示转为内勤（所属企业清空）
	empty := ""
	_, err := f.svc.Update(context.Background(), NewRequestContext(), "user-a",
		&dto.UpdateUserRequest{CompanyID: &empty}, "admin-a")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if f.users.users["user-a"].CompanyID != nil {
		t.Error("转内勤后 company_id 应为 NULL")
	}
}

func TestUserService_Update_ReplacesManagers(t *testing.T) {
	f := setupUserFixture()
	f.addRole("admin", model.PermissionMatrix{
		model.CategoryUser: {model.CapabilityEditAll: true},
	})
	f.addUser("admin-a", "admin", nil)
	f.addUser("user-a", "admin", nil)
	f.users.managedBy["user-a"] = []string{"old-mgr"}

	managers := []string{"mgr-1", "mgr-2"}
	_, err := f.svc.Update(context.Background(), NewRequestContext(), "user-a",
		&dto.UpdateUserRequest{ManagerIDs: &managers}, "admin-a")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	got := f.users.managedBy["user-a"]
	if len(got) != 2 || got[0] != "mgr-1" || got[1] != "mgr-2" {
		t.Errorf("担当关系应整体替换，实际=%v", got)
	}
}

func TestUserService_Update_PermissionDenied(t *testing.T) {
	f := setupUserFixture()
	f.addRole("staff", model.PermissionMatrix{})
	f.addUser("user-a", "staff", nil)
	f.addUser("user-b", "staff", nil)

	name := "x"
	_, err := f.svc.Update(context.Background(), NewRequestContext(), "user-b",
		&dto.UpdateUserRequest{Name: &name}, "user-a")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无编辑能力改他人应被拒，实际: %v", err)
	}
}
