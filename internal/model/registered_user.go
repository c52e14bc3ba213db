package model

import (
	"time"
)

type RegisteredUser struct {
	ID            string    `gorm:"primaryKey;size:32" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	IsBlacklisted bool      `gorm:"not null;default:false;index" json:"is_blacklisted"`
	Reason        *string   `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (RegisteredUser) TableName() string {
	return "registered_user"
}
