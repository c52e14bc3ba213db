package model

import (
	"time"
)

// Subscription 账本记录，一个交易号对应一行
type Subscription struct {
	TransactionID string     `gorm:"column:transaction_id;primaryKey;size:64" json:"transaction_id"`
	UserID        *string    `gorm:"column:user_id;size:32;index" json:"user_id,omitempty"`
	Approved      bool       `gorm:"not null;default:false" json:"approved"`
	RegisteredAt  time.Time  `gorm:"not null" json:"registered_at"`
	ExpireAt      *time.Time `gorm:"index" json:"expire_at,omitempty"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
}

func (Subscription) TableName() string {
	return "subscribe"
}

// IsBound 是否已绑定用户
func (s *Subscription) IsBound() bool {
	return s.UserID != nil && *s.UserID != ""
}

// BoundTo 是否绑定到指定用户
func (s *Subscription) BoundTo(userID string) bool {
	return s.IsBound() && *s.UserID == userID
}

// IsActive 已审核且有过期时间
func (s *Subscription) IsActive() bool {
	return s.Approved && s.ExpireAt != nil
}

// ExpiredAt 过期判断包含边界：expire_at == now 视为已过期
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return s.ExpireAt != nil && !s.ExpireAt.After(now)
}
