package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/premium_bot/internal/model"
)

// TestSubscription 创建测试账本记录，默认是一条待审核记录
func TestSubscription(t *testing.T, db *gorm.DB, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		TransactionID: fmt.Sprintf("TX%d", time.Now().UnixNano()),
		RegisteredAt:  time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithTransaction 设置交易号
func WithTransaction(id string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.TransactionID = id
	}
}

// WithUser 绑定用户
func WithUser(userID string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.UserID = &userID
	}
}

// WithApproved 审核通过，有效期为 registered_at 之后的 duration
func WithApproved(duration time.Duration) func(*model.Subscription) {
	return func(s *model.Subscription) {
		expireAt := s.RegisteredAt.Add(duration)
		s.Approved = true
		s.ExpireAt = &expireAt
	}
}

// WithRegisteredAt 设置登记时间；需放在 WithApproved 之前
func WithRegisteredAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.RegisteredAt = at.UTC()
	}
}

// WithExpireAt 直接设置过期时间
func WithExpireAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		at = at.UTC()
		s.Approved = true
		s.ExpireAt = &at
	}
}

// WithClaimedAt 设置认领时间
func WithClaimedAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		at = at.UTC()
		s.ClaimedAt = &at
	}
}

// TestRegisteredUser 创建测试用户
func TestRegisteredUser(t *testing.T, db *gorm.DB, id, name string, opts ...func(*model.RegisteredUser)) *model.RegisteredUser {
	t.Helper()

	user := &model.RegisteredUser{ID: id, Name: name}
	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithBlacklist 拉黑用户
func WithBlacklist(reason string) func(*model.RegisteredUser) {
	return func(u *model.RegisteredUser) {
		u.IsBlacklisted = true
		u.Reason = &reason
	}
}

// GetSubscription 直接从数据库读取记录，不存在时返回 nil
func GetSubscription(t *testing.T, db *gorm.DB, transactionID string) *model.Subscription {
	t.Helper()

	var sub model.Subscription
	err := db.Where("transaction_id = ?", transactionID).Limit(1).Find(&sub).Error
	if err != nil {
		t.Fatalf("Failed to load subscription %s: %v", transactionID, err)
	}
	if sub.TransactionID == "" {
		return nil
	}
	return &sub
}

// CountSubscriptions 统计账本行数
func CountSubscriptions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&model.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count subscriptions: %v", err)
	}
	return count
}
