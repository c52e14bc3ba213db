package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/premium_bot/internal/model"
)

// SubscriptionKey 批量删除时使用的 (transaction_id, user_id) 组合键
type SubscriptionKey struct {
	TransactionID string
	UserID        string
}

// TerminateFilter 终止条件；MatchAny 为 true 时按 OR 组合
type TerminateFilter struct {
	TransactionID string
	UserID        string
	MatchAny      bool
}

// SubscriptionFilter 列表过滤条件
type SubscriptionFilter struct {
	UserID   string
	Approved *bool
}

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Transaction 在同一个数据库事务中执行 fn
func (r *SubscriptionRepository) Transaction(ctx context.Context, fn func(txRepo *SubscriptionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SubscriptionRepository{db: tx})
	})
}

// CreatePending 插入待审核记录，交易号已存在时返回 false
func (r *SubscriptionRepository) CreatePending(ctx context.Context, sub *model.Subscription) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *SubscriptionRepository) GetByTransaction(ctx context.Context, transactionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByTransactionForUpdate 读取并锁定记录，须在事务内调用
func (r *SubscriptionRepository) GetByTransactionForUpdate(ctx context.Context, transactionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ClaimIfUnclaimed 原子地绑定用户：仅当记录已审核、未被认领、且未绑定他人时才更新
func (r *SubscriptionRepository) ClaimIfUnclaimed(ctx context.Context, transactionID, userID string, expireAt, claimedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("transaction_id = ? AND approved = ? AND claimed_at IS NULL AND (user_id IS NULL OR user_id = ?)",
			transactionID, true, userID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"expire_at":  expireAt,
			"claimed_at": claimedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpsertApproved 登记交易号：不存在则插入，存在则只更新 approved/expire_at，保留 user_id/claimed_at
func (r *SubscriptionRepository) UpsertApproved(ctx context.Context, transactionID string, expireAt, now time.Time) (*model.Subscription, error) {
	var sub *model.Subscription
	err := r.Transaction(ctx, func(txRepo *SubscriptionRepository) error {
		record := &model.Subscription{
			TransactionID: transactionID,
			Approved:      true,
			RegisteredAt:  now,
			ExpireAt:      &expireAt,
		}
		err := txRepo.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"approved", "expire_at"}),
		}).Create(record).Error
		if err != nil {
			return err
		}

		sub, err = txRepo.GetByTransaction(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// MarkClaimed 补记认领时间（仅在尚未认领时）
func (r *SubscriptionRepository) MarkClaimed(ctx context.Context, transactionID, userID string, claimedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("transaction_id = ? AND user_id = ? AND claimed_at IS NULL", transactionID, userID).
		Update("claimed_at", claimedAt).Error
}

// ClearBinding 解除绑定，以便之后重新认领
func (r *SubscriptionRepository) ClearBinding(ctx context.Context, transactionID, userID string) error {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("transaction_id = ? AND user_id = ?", transactionID, userID).
		Updates(map[string]interface{}{
			"user_id":    nil,
			"claimed_at": nil,
		}).Error
}

// ListBound 所有已绑定用户且有过期时间的记录
func (r *SubscriptionRepository) ListBound(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id IS NOT NULL AND expire_at IS NOT NULL").
		Order("expire_at ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("registered_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) List(ctx context.Context, filter SubscriptionFilter, page, pageSize int) ([]model.Subscription, int64, error) {
	var subs []model.Subscription
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Subscription{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Approved != nil {
		query = query.Where("approved = ?", *filter.Approved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("registered_at DESC").Offset(offset).Limit(pageSize).Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

// DeleteByKeys 按 (transaction_id, user_id) 批量删除，期间被重新绑定的记录不会被删除
func (r *SubscriptionRepository) DeleteByKeys(ctx context.Context, keys []SubscriptionKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	cond := r.db.Where("transaction_id = ? AND user_id = ?", keys[0].TransactionID, keys[0].UserID)
	for _, k := range keys[1:] {
		cond = cond.Or("transaction_id = ? AND user_id = ?", k.TransactionID, k.UserID)
	}

	result := r.db.WithContext(ctx).Where(cond).Delete(&model.Subscription{})
	return result.RowsAffected, result.Error
}

// DeleteMatching 删除符合条件的记录并返回被删除的行
func (r *SubscriptionRepository) DeleteMatching(ctx context.Context, filter TerminateFilter) ([]model.Subscription, error) {
	var deleted []model.Subscription

	err := r.Transaction(ctx, func(txRepo *SubscriptionRepository) error {
		query := txRepo.db.Model(&model.Subscription{})
		switch {
		case filter.TransactionID != "" && filter.UserID != "":
			if filter.MatchAny {
				query = query.Where("transaction_id = ? OR user_id = ?", filter.TransactionID, filter.UserID)
			} else {
				query = query.Where("transaction_id = ? AND user_id = ?", filter.TransactionID, filter.UserID)
			}
		case filter.TransactionID != "":
			query = query.Where("transaction_id = ?", filter.TransactionID)
		case filter.UserID != "":
			query = query.Where("user_id = ?", filter.UserID)
		default:
			return nil
		}

		if err := query.Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}

		ids := make([]string, 0, len(deleted))
		for _, s := range deleted {
			ids = append(ids, s.TransactionID)
		}
		return txRepo.db.Where("transaction_id IN ?", ids).Delete(&model.Subscription{}).Error
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}
