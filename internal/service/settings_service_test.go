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

func setupSettingsService() (SettingsService, *mockUserRepo, *mockRoleRepo, *mockSettingsRepo) {
	users := newMockUserRepo()
	roles := newMockRoleRepo()
	settings := newMockSettingsRepo()
	repo := &repository.Repository{
		User:       users,
		Role:       roles,
		Shift:      newMockShiftRepo(),
		Attendance: newMockAttendanceRepo(),
		Lock:       newMockLockRepo(),
		Settings:   settings,
	}
	svc := NewSettingsService(repo, NewPermissionResolver(repo, zap.NewNop()), zap.NewNop())
	return svc, users, roles, settings
}

func TestSettingsService_Get_LazyDefault(t *testing.T) {
	svc, _, _, _ := setupSettingsService()

	resp, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if resp.RegistrationDeadlineDay != model.DefaultRegistrationDeadlineDay {
		t.Errorf("期望默认截止日=%d，实际=%d",
			model.DefaultRegistrationDeadlineDay, resp.RegistrationDeadlineDay)
	}
}

func TestSettingsService_Update(t *testing.T) {
	svc, users, roles, settings := setupSettingsService()
	roles.roles["admin"] = &model.Role{RoleID: "admin", Name: "admin", PermissionMatrix: model.PermissionMatrix{
		model.CategorySettings: {model.CapabilityEdit: true},
	}}
	users.users["admin-a"] = &model.User{UserID: "admin-a", Name: "admin-a", Email: "a@example.com", RoleID: "admin"}

	day := 10
	resp, err := svc.Update(context.Background(), NewRequestContext(),
		&dto.UpdateSettingsRequest{RegistrationDeadlineDay: &day}, "admin-a")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.RegistrationDeadlineDay != 10 {
		t.Errorf("期望截止日=10，实际=%d", resp.RegistrationDeadlineDay)
	}
	if settings.settings.RegistrationDeadlineDay != 10 {
		t.Errorf("更新应落库，实际=%d", settings.settings.RegistrationDeadlineDay)
	}
}

func TestSettingsService_Update_RequiresEditCapability(t *testing.T) {
	svc, users, roles, _ := setupSettingsService()
	roles.roles["staff"] = &model.Role{RoleID: "staff", Name: "staff", PermissionMatrix: model.PermissionMatrix{}}
	users.users["user-a"] = &model.User{UserID: "user-a", Name: "user-a", Email: "u@example.com", RoleID: "staff"}

	day := 10
	_, err := svc.Update(context.Background(), NewRequestContext(),
		&dto.UpdateSettingsRequest{RegistrationDeadlineDay: &day}, "user-a")
	if !errors.Is(err, pkgerrors.ErrPermissionDenied) {
		t.Errorf("无 edit 能力应被拒，实际: %v", err)
	}
}
