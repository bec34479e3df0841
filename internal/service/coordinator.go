package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/contentgenie/publisher/internal/adapter"
	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/pkg/logger"
)

// PublishResult 单账号的发布结果（响应体与原 API 对齐）
type PublishResult struct {
	AccountID   string            `json:"accountId"`
	Service     model.ServiceKind `json:"service"`
	AccountName string            `json:"accountName"`
	Success     bool              `json:"success"`
	MessageID   string            `json:"messageId,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Coordinator fan-out 协调器：逐账号询问幂等守卫，把新 pair 交给调度策略，
// 结果按完成顺序吐出（调用方不能假定列表顺序）。
type Coordinator struct {
	attempts repository.AttemptRepository
	guard    *IdempotencyGuard
	registry *adapter.Registry
	policy   *DispatchPolicy
	status   *StatusBoard
}

func NewCoordinator(attempts repository.AttemptRepository, guard *IdempotencyGuard, registry *adapter.Registry, policy *DispatchPolicy, status *StatusBoard) *Coordinator {
	return &Coordinator{attempts: attempts, guard: guard, registry: registry, policy: policy, status: status}
}

// Dispatch 对每个账号恰好产出一条结果后关闭通道。
// ctx 取消：已在途的 attempt 允许跑完，未接纳的不再接纳。
func (c *Coordinator) Dispatch(ctx context.Context, postID string, content adapter.Content, accounts []*repository.Account) <-chan PublishResult {
	out := make(chan PublishResult, len(accounts))
	go func() {
		defer close(out)
		var wg sync.WaitGroup
		for _, acc := range accounts {
			if ctx.Err() != nil {
				// 取消后不再接纳新 pair，但每个账号仍要有结果条目
				out <- PublishResult{
					AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
					Success: false, Error: "publish canceled before dispatch",
				}
				continue
			}
			att, created, err := c.guard.Admit(ctx, postID, acc.ID)
			if err != nil {
				logger.Error("admit attempt failed",
					zap.String("post", postID), zap.String("account", acc.ID), zap.Error(err))
				out <- PublishResult{
					AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
					Success: false, Error: "internal error",
				}
				continue
			}
			if !created && att.State.Terminal() {
				// 重复请求：直接复用已存结果，不再调外部服务
				out <- c.resultFrom(acc, att)
				continue
			}
			wg.Add(1)
			if !created {
				// 另一轮运行在途，等它落定
				go func(acc *repository.Account) {
					defer wg.Done()
					settled, werr := c.guard.WaitTerminal(ctx, postID, acc.ID)
					if werr != nil || settled == nil || !settled.State.Terminal() {
						out <- PublishResult{
							AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
							Success: false, Error: "publish in progress",
						}
						return
					}
					out <- c.resultFrom(acc, settled)
				}(acc)
				continue
			}
			go func(att *model.PublishAttempt, acc *repository.Account) {
				defer wg.Done()
				out <- c.run(ctx, att, acc, content)
			}(att, acc)
		}
		wg.Wait()
	}()
	return out
}

// run 推进单个 attempt 到终态；状态写用 detached ctx，避免取消打断半程转移
func (c *Coordinator) run(ctx context.Context, att *model.PublishAttempt, acc *repository.Account, content adapter.Content) PublishResult {
	dbCtx := context.WithoutCancel(ctx)

	ok, err := c.attempts.MarkInFlight(dbCtx, att.ID)
	if err != nil {
		logger.Error("mark in_flight failed", zap.String("attempt", att.ID), zap.Error(err))
		return PublishResult{AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName, Success: false, Error: "internal error"}
	}
	if !ok {
		// pair 已被别的 worker 拿走（同 pair 同时至多一个在途调用）
		settled, werr := c.guard.WaitTerminal(ctx, att.PostID, acc.ID)
		if werr != nil || settled == nil || !settled.State.Terminal() {
			return PublishResult{AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName, Success: false, Error: "publish in progress"}
		}
		return c.resultFrom(acc, settled)
	}
	c.status.Set(ctx, att.PostID, acc.ID, AccountStatus{State: model.AttemptInFlight})

	ad, found := c.registry.Lookup(acc.Service)
	if !found {
		// twitter/dzen 等已枚举但尚无适配器的服务
		return c.fail(dbCtx, att, acc, 0, adapter.NewError(adapter.KindPayloadRejected, "unsupported service: %s", acc.Service))
	}

	messageID, retries, perr := c.policy.Execute(ctx, ad, acc.Data, content)
	if perr != nil {
		return c.fail(dbCtx, att, acc, retries, perr)
	}

	if err := c.attempts.MarkSucceeded(dbCtx, att.ID, messageID, retries); err != nil {
		logger.Error("mark succeeded failed", zap.String("attempt", att.ID), zap.Error(err))
	}
	c.status.Set(ctx, att.PostID, acc.ID, AccountStatus{State: model.AttemptSucceeded, MessageID: messageID})
	return PublishResult{
		AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
		Success: true, MessageID: messageID,
	}
}

func (c *Coordinator) fail(dbCtx context.Context, att *model.PublishAttempt, acc *repository.Account, retries int, perr error) PublishResult {
	kind := adapter.KindOf(perr)
	if err := c.attempts.MarkFailed(dbCtx, att.ID, string(kind), retries); err != nil {
		logger.Error("mark failed failed", zap.String("attempt", att.ID), zap.Error(err))
	}
	c.status.Set(dbCtx, att.PostID, acc.ID, AccountStatus{State: model.AttemptFailed, Error: string(kind)})
	logger.Warn("publish attempt failed",
		zap.String("post", att.PostID), zap.String("account", acc.ID),
		zap.String("service", string(acc.Service)), zap.String("kind", string(kind)),
		zap.Int("retries", retries), zap.Error(perr))
	return PublishResult{
		AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
		Success: false, Error: string(kind),
	}
}

func (c *Coordinator) resultFrom(acc *repository.Account, att *model.PublishAttempt) PublishResult {
	if att.State == model.AttemptSucceeded {
		return PublishResult{
			AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
			Success: true, MessageID: att.MessageID,
		}
	}
	return PublishResult{
		AccountID: acc.ID, Service: acc.Service, AccountName: acc.AccountName,
		Success: false, Error: att.ErrorKind,
	}
}
