package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultQueueName = "report_queue"

// Queue 异常报告队列：bot 推入，worker 取出
type Queue struct {
	client    *redis.Client
	queueName string
}

// ReportMessage 异常报告，由 worker 投递到运维频道
type ReportMessage struct {
	IncidentID string    `json:"incident_id"`
	Source     string    `json:"source"` // command / modal / reconcile / event
	Command    string    `json:"command,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	GuildID    string    `json:"guild_id,omitempty"`
	ChannelID  string    `json:"channel_id,omitempty"`
	Error      string    `json:"error"`
	Stack      string    `json:"stack,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewQueue queueName 为空时使用默认队列
func NewQueue(client *redis.Client, queueName string) *Queue {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将报告加入队列，未设置时间时补上当前时间
func (q *Queue) Push(ctx context.Context, msg *ReportMessage) error {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取报告（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*ReportMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无报告
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg ReportMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
