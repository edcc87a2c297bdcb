package repository

import (
	"context"

	"gorm.io/gorm"

	"staffhub/backend/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	// ListIDs 全量用户 ID（global 范围的可见集合）
	ListIDs(ctx context.Context) ([]string, error)
	// ListIDsByCompany 同企业用户 ID；companyID 为 nil 时返回全部内勤员工
	ListIDsByCompany(ctx context.Context, companyID *string) ([]string, error)
	// ListIDsManagedBy 担当关系图：将 managerID 列入担当者的用户 ID
	ListIDsManagedBy(ctx context.Context, managerID string) ([]string, error)
	// ReplaceManagers 全量替换某用户的担当者集合
	ReplaceManagers(ctx context.Context, userID string, managerIDs []string) error
	// ListByIDs 按 ID 集合查询用户
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Company").
		Preload("Managers").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Role").Preload("Company").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *userRepo) ListIDsByCompany(ctx context.Context, companyID *string) ([]string, error) {
	var ids []string
	db := r.db.WithContext(ctx).Model(&model.User{})
	if companyID == nil {
		db = db.Where("company_id IS NULL")
	} else {
		db = db.Where("company_id = ?", *companyID)
	}
	err := db.Order("user_id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

func (r *userRepo) ListIDsManagedBy(ctx context.Context, managerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("user_managers").
		Where("manager_id = ?", managerID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *userRepo) ReplaceManagers(ctx context.Context, userID string, managerIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_managers WHERE user_id = ?", userID).Error; err != nil {
			return err
		}
		for _, mid := range managerIDs {
			if err := tx.Exec(
				"INSERT INTO user_managers (user_id, manager_id) VALUES (?, ?)",
				userID, mid,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Company").
		Where("user_id IN ?", ids).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
