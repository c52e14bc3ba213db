package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	stateKeyPrefix = "premium:oauth:state:"
	stateTTL       = 10 * time.Minute
)

var (
	ErrEmptyState   = errors.New("empty state parameter")
	ErrInvalidState = errors.New("invalid or expired state")
)

// StateStore OAuth state 参数，保存在 Redis 中，一次性使用
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// GenerateState 生成 state，并记住登录完成后要跳回的前端地址
func (s *StateStore) GenerateState(ctx context.Context, returnTo string) (string, error) {
	state := uuid.NewString()

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, returnTo, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return state, nil
}

// ConsumeState 校验并删除 state，返回生成时记录的地址
func (s *StateStore) ConsumeState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrEmptyState
	}

	returnTo, err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Result()
	if err == redis.Nil {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state: %w", err)
	}

	return returnTo, nil
}
