package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultChannel = "premium_events"
)

// 账本事件类型
const (
	EventPending    = "subscription.pending"
	EventClaimed    = "subscription.claimed"
	EventRegistered = "subscription.registered"
	EventExpired    = "subscription.expired"
	EventTerminated = "subscription.terminated"
)

// 事件对应的通知文案
var EventMessages = map[string]string{
	EventPending:    "Nouvelle demande d'abonnement en attente",
	EventClaimed:    "Abonnement activé",
	EventRegistered: "Transaction enregistrée",
	EventExpired:    "Abonnement expiré",
	EventTerminated: "Abonnement résilié",
}

// Event 账本变更事件
type Event struct {
	Type          string     `json:"type"`
	TransactionID string     `json:"transaction_id"`
	UserID        string     `json:"user_id,omitempty"`
	ActorID       string     `json:"actor_id,omitempty"`
	ExpireAt      *time.Time `json:"expire_at,omitempty"`
	Message       string     `json:"message,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者，channel 为空时使用默认频道
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish 发布账本事件
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Message == "" {
		event.Message = EventMessages[event.Type]
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅账本事件，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// 确认订阅成功后再开始消费
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", s.channel, err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
