package model

import "time"

// UnlockValidity 解锁覆盖的有效时长：发放后 1 小时自动回锁
const UnlockValidity = time.Hour

// ShiftRegistrationLock 班次登记解锁记录表 — 对应 shift_registration_locks
// 每 (用户, 年, 月) 至多一条；仅由管理员解锁操作或窗口策略的自动回锁写入
type ShiftRegistrationLock struct {
	LockID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"lock_id"`
	UserID     string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Year       int        `gorm:"not null"                                       json:"year"`
	Month      int        `gorm:"not null"                                       json:"month"`
	IsUnlocked bool       `gorm:"not null;default:false"                         json:"is_unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ShiftRegistrationLock) TableName() string { return "shift_registration_locks" }

// ExpiresAt 解锁自动失效时刻；未解锁时返回零值
func (l *ShiftRegistrationLock) ExpiresAt() time.Time {
	if l.UnlockedAt == nil {
		return time.Time{}
	}
	return l.UnlockedAt.Add(UnlockValidity)
}

// IsExpired 解锁是否已过有效期
// 每次判定都以传入的 now 重新计算，绝不信任缓存的 is_unlocked 超过其失效时刻
func (l *ShiftRegistrationLock) IsExpired(now time.Time) bool {
	if !l.IsUnlocked || l.UnlockedAt == nil {
		return false
	}
	return !now.Before(l.ExpiresAt())
}
