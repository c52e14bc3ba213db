package service

import (
	"context"
	"time"

	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
)

// Guild 服务器侧的能力：成员查询、角色授予/移除、私信
type Guild interface {
	IsMember(ctx context.Context, userID string) (bool, error)
	AddPremiumRole(ctx context.Context, userID, reason string) error
	RemovePremiumRole(ctx context.Context, userID, reason string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// DateParser 把管理员输入的有效期解析为绝对时间
type DateParser interface {
	Parse(text string, now time.Time) (time.Time, bool)
}

// EventPublisher 账本事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.Event) error
}
