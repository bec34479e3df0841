package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
)

// IdempotencyGuard (post, account) 去重：DB 唯一键做 insert-if-absent，
// Redis SetNX 做 post 级运行锁（防用户连点两次并发跑两轮 fan-out）。
type IdempotencyGuard struct {
	attempts repository.AttemptRepository
	locks    *redis.Client
	lockTTL  time.Duration
}

func NewIdempotencyGuard(attempts repository.AttemptRepository, locks *redis.Client, lockTTL time.Duration) *IdempotencyGuard {
	if lockTTL <= 0 {
		lockTTL = 3 * time.Minute
	}
	return &IdempotencyGuard{attempts: attempts, locks: locks, lockTTL: lockTTL}
}

// Admit 返回当前 attempt 行与本次是否新建
func (g *IdempotencyGuard) Admit(ctx context.Context, postID, accountID string) (*model.PublishAttempt, bool, error) {
	return g.attempts.Admit(ctx, postID, accountID)
}

// AcquireRunLock 拿到锁的调用方负责聚合与落库；没拿到的走 follower 路径
// （只等待 attempt 落定并返回结果，不写 post）。
func (g *IdempotencyGuard) AcquireRunLock(ctx context.Context, postID string) (release func(), owned bool, err error) {
	if g.locks == nil {
		return func() {}, true, nil
	}
	key := runLockKey(postID)
	value := uuid.New().String()
	ok, err := g.locks.SetNX(ctx, key, value, g.lockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return func() {}, false, nil
	}
	release = func() {
		// 只有持有者能释放
		script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
		_, _ = g.locks.Eval(context.WithoutCancel(ctx), script, []string{key}, value).Result()
	}
	return release, true, nil
}

// WaitTerminal 轮询直到 attempt 落定；重复提交的请求靠它拿到与首次一致的结果
func (g *IdempotencyGuard) WaitTerminal(ctx context.Context, postID, accountID string) (*model.PublishAttempt, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		att, err := g.attempts.Get(ctx, postID, accountID)
		if err != nil {
			return nil, err
		}
		if att.State.Terminal() {
			return att, nil
		}
		select {
		case <-ctx.Done():
			return att, ctx.Err()
		case <-ticker.C:
		}
	}
}

func runLockKey(postID string) string { return fmt.Sprintf("publish:run:%s", postID) }
