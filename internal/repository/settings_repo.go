package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffhub/backend/internal/model"
)

// SettingsRepository 系统设置数据访问接口
type SettingsRepository interface {
	// GetOrCreate 读取单行设置；不存在时以默认值懒创建。
	// 并发首读竞争下采用 ON CONFLICT DO NOTHING + 重读，
	// 所有写入者写入同一默认值，后写覆盖无害。
	GetOrCreate(ctx context.Context) (*model.SystemSettings, error)
	Update(ctx context.Context, settings *model.SystemSettings) error
}

type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepo 创建 SettingsRepository 实例
func NewSettingsRepo(db *gorm.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) GetOrCreate(ctx context.Context) (*model.SystemSettings, error) {
	var settings model.SystemSettings
	err := r.db.WithContext(ctx).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 懒创建默认行
	seed := model.SystemSettings{
		Singleton:               true,
		RegistrationDeadlineDay: model.DefaultRegistrationDeadlineDay,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepo) Update(ctx context.Context, settings *model.SystemSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
