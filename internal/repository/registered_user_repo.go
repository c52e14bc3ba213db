package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/premium_bot/internal/model"
)

type RegisteredUserRepository struct {
	db *gorm.DB
}

func NewRegisteredUserRepository(db *gorm.DB) *RegisteredUserRepository {
	return &RegisteredUserRepository{db: db}
}

// Upsert 每次订阅请求都会刷新用户名
func (r *RegisteredUserRepository) Upsert(ctx context.Context, id, name string) error {
	user := &model.RegisteredUser{ID: id, Name: name}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(user).Error
}

func (r *RegisteredUserRepository) GetByID(ctx context.Context, id string) (*model.RegisteredUser, error) {
	var user model.RegisteredUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetNames 批量查询用户名，返回 id -> name
func (r *RegisteredUserRepository) GetNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []model.RegisteredUser
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// SetBlacklisted 拉黑用户，用户不存在时以 id 作为名字创建
func (r *RegisteredUserRepository) SetBlacklisted(ctx context.Context, id string, reason *string) error {
	user := &model.RegisteredUser{ID: id, Name: id, IsBlacklisted: true, Reason: reason}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_blacklisted", "reason", "updated_at"}),
	}).Create(user).Error
}

// ClearBlacklist 解除拉黑
func (r *RegisteredUserRepository) ClearBlacklist(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.RegisteredUser{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_blacklisted": false,
			"reason":         nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
