package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffhub/backend/internal/model"
)

// LockRepository 班次登记解锁记录数据访问接口
type LockRepository interface {
	Get(ctx context.Context, userID string, year, month int) (*model.ShiftRegistrationLock, error)
	// Unlock 发放解锁覆盖：不存在则创建，存在则更新 (user, year, month) 记录
	Unlock(ctx context.Context, userID string, year, month int, now time.Time, grantedBy string) (*model.ShiftRegistrationLock, error)
	// ExpireIfDue 自动回锁：解锁已过有效期时将 is_unlocked 翻转为 false。
	// 幂等契约：对已回锁的记录调用是空操作；条件更新保证并发下只生效一次。
	ExpireIfDue(ctx context.Context, lock *model.ShiftRegistrationLock, now time.Time) error
}

type lockRepo struct {
	db *gorm.DB
}

// NewLockRepo 创建 LockRepository 实例
func NewLockRepo(db *gorm.DB) LockRepository {
	return &lockRepo{db: db}
}

func (r *lockRepo) Get(ctx context.Context, userID string, year, month int) (*model.ShiftRegistrationLock, error) {
	var lock model.ShiftRegistrationLock
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *lockRepo) Unlock(ctx context.Context, userID string, year, month int, now time.Time, grantedBy string) (*model.ShiftRegistrationLock, error) {
	lock := &model.ShiftRegistrationLock{
		UserID:     userID,
		Year:       year,
		Month:      month,
		IsUnlocked: true,
		UnlockedAt: &now,
	}
	lock.CreatedBy = &grantedBy
	lock.UpdatedBy = &grantedBy

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_unlocked": true,
			"unlocked_at": now,
			"updated_at":  now,
			"updated_by":  grantedBy,
		}),
	}).Create(lock).Error
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, userID, year, month)
}

func (r *lockRepo) ExpireIfDue(ctx context.Context, lock *model.ShiftRegistrationLock, now time.Time) error {
	if !lock.IsUnlocked || lock.UnlockedAt == nil {
		return nil // 已回锁，空操作
	}
	if now.Before(lock.UnlockedAt.Add(model.UnlockValidity)) {
		return nil // 尚在有效期内
	}

	// is_unlocked = true 作为更新条件，重复调用与并发调用均安全
	err := r.db.WithContext(ctx).Model(&model.ShiftRegistrationLock{}).
		Where("lock_id = ? AND is_unlocked = ?", lock.LockID, true).
		Update("is_unlocked", false).Error
	if err != nil {
		return err
	}

	lock.IsUnlocked = false
	return nil
}
