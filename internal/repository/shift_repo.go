package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffhub/backend/internal/model"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Shift, error)
	ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.Shift, error)
	ListByUsersAndRange(ctx context.Context, userIDs []string, from, to time.Time) ([]model.Shift, error)
	Create(ctx context.Context, shift *model.Shift) error
	// BatchCreate 在单个事务中批量登记：先查询已存在的 (user_id, date)
	// 组合并过滤重复，再插入其余条目。返回实际插入的班次与被跳过的下标。
	// 重复检查与插入同处一个事务，保证唯一不变量在并发下成立。
	BatchCreate(ctx context.Context, shifts []model.Shift) (created []model.Shift, skipped []int, err error)
	Update(ctx context.Context, shift *model.Shift) error
	// Delete 软删除并记录操作者
	Delete(ctx context.Context, id string, deletedBy string) error
	// HasAttendance 该用户该日期是否已存在考勤事件（删除前置校验）
	HasAttendance(ctx context.Context, userID string, date time.Time) (bool, error)
}

type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND shift_date = ?", userID, date.Format("2006-01-02")).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND shift_date BETWEEN ? AND ?",
			userID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("shift_date ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListByUsersAndRange(ctx context.Context, userIDs []string, from, to time.Time) ([]model.Shift, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ? AND shift_date BETWEEN ? AND ?",
			userIDs, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("user_id ASC, shift_date ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) BatchCreate(ctx context.Context, shifts []model.Shift) ([]model.Shift, []int, error) {
	if len(shifts) == 0 {
		return nil, nil, nil
	}

	var created []model.Shift
	var skipped []int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁定相关用户的现有班次行，避免并发批量登记穿透唯一检查
		userSet := make(map[string]bool)
		for _, s := range shifts {
			userSet[s.UserID] = true
		}
		userIDs := make([]string, 0, len(userSet))
		for id := range userSet {
			userIDs = append(userIDs, id)
		}

		var existing []model.Shift
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("user_id", "shift_date").
			Where("user_id IN ?", userIDs).
			Find(&existing).Error; err != nil {
			return err
		}

		taken := make(map[string]bool, len(existing))
		for _, s := range existing {
			taken[s.UserID+":"+s.ShiftDate.Format("2006-01-02")] = true
		}

		toInsert := make([]model.Shift, 0, len(shifts))
		for i, s := range shifts {
			key := s.UserID + ":" + s.ShiftDate.Format("2006-01-02")
			if taken[key] {
				skipped = append(skipped, i)
				continue
			}
			taken[key] = true // 同一批内的重复也要过滤
			toInsert = append(toInsert, s)
		}

		if len(toInsert) > 0 {
			if err := tx.Create(&toInsert).Error; err != nil {
				return err
			}
		}
		created = toInsert
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, skipped, nil
}

func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

func (r *shiftRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).Model(&model.Shift{}).
		Where("shift_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"deleted_by": deletedBy,
		}).Error
}

func (r *shiftRepo) HasAttendance(ctx context.Context, userID string, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AttendanceEvent{}).
		Where("user_id = ? AND event_date = ?", userID, date.Format("2006-01-02")).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
