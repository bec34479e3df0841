package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contentgenie/publisher/internal/model"
)

// AccountStatus 单个账号的实时发布状态（UI 轮询用）
type AccountStatus struct {
	State     model.AttemptState `json:"state"`
	MessageID string             `json:"messageId,omitempty"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// StatusBoard 把逐账号进度写进 Redis hash，供状态查询接口读取。
// key: publish:status:<postID>, field: accountID
type StatusBoard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusBoard(client *redis.Client, ttl time.Duration) *StatusBoard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StatusBoard{client: client, ttl: ttl}
}

func (b *StatusBoard) Set(ctx context.Context, postID, accountID string, st AccountStatus) {
	if b == nil || b.client == nil {
		return
	}
	st.UpdatedAt = time.Now()
	payload, err := json.Marshal(st)
	if err != nil {
		return
	}
	key := statusKey(postID)
	pipe := b.client.Pipeline()
	pipe.HSet(ctx, key, accountID, payload)
	pipe.Expire(ctx, key, b.ttl)
	_, _ = pipe.Exec(ctx)
}

func (b *StatusBoard) Snapshot(ctx context.Context, postID string) (map[string]AccountStatus, error) {
	if b == nil || b.client == nil {
		return map[string]AccountStatus{}, nil
	}
	raw, err := b.client.HGetAll(ctx, statusKey(postID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]AccountStatus, len(raw))
	for accountID, payload := range raw {
		var st AccountStatus
		if uErr := json.Unmarshal([]byte(payload), &st); uErr == nil {
			out[accountID] = st
		}
	}
	return out, nil
}

func statusKey(postID string) string { return fmt.Sprintf("publish:status:%s", postID) }
