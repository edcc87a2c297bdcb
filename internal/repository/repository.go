package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Role       RoleRepository
	Shift      ShiftRepository
	Attendance AttendanceRepository
	Lock       LockRepository
	Settings   SettingsRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Role:       NewRoleRepo(db),
		Shift:      NewShiftRepo(db),
		Attendance: NewAttendanceRepo(db),
		Lock:       NewLockRepo(db),
		Settings:   NewSettingsRepo(db),
	}
}
