package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/contentgenie/publisher/config"
	"github.com/contentgenie/publisher/internal/adapter"
	"github.com/contentgenie/publisher/internal/model"
)

// DispatchPolicy 决定并发上限、单次超时、重试与退避。
// 重试语义集中在这里，适配器自身从不重试。
type DispatchPolicy struct {
	sem            chan struct{}
	timeout        time.Duration
	maxRetries     uint64
	initialBackoff time.Duration
	limiters       map[model.ServiceKind]*rate.Limiter
}

func NewDispatchPolicy(cfg config.DispatchConfig) *DispatchPolicy {
	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 4
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	limiters := make(map[model.ServiceKind]*rate.Limiter, len(cfg.RateLimits))
	for svc, perSec := range cfg.RateLimits {
		if perSec > 0 {
			limiters[model.ServiceKind(svc)] = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &DispatchPolicy{
		sem:            make(chan struct{}, maxParallel),
		timeout:        timeout,
		maxRetries:     uint64(retries),
		initialBackoff: initial,
		limiters:       limiters,
	}
}

// Execute 在并发额度内执行一个 attempt：限流 -> 调用 -> 按分类决定重试。
// ctx 取消时：排队中的直接放弃；已发出的调用不被打断（detached ctx + 超时），
// 但不再安排新的重试。返回实际发生的重试次数。
func (p *DispatchPolicy) Execute(ctx context.Context, ad adapter.Adapter, creds model.AccountData, content adapter.Content) (messageID string, retries int, err error) {
	if ctx.Err() != nil {
		return "", 0, adapter.NewError(adapter.KindNetworkError, "dispatch: canceled while queued")
	}
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return "", 0, adapter.NewError(adapter.KindNetworkError, "dispatch: canceled while queued")
	}

	calls := 0
	op := func() error {
		if lim := p.limiters[ad.Service()]; lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				return backoff.Permanent(adapter.NewError(adapter.KindNetworkError, "dispatch: %v", werr))
			}
		}
		calls++
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		id, perr := ad.Publish(callCtx, creds, content)
		if perr == nil {
			messageID = id
			return nil
		}
		if !adapter.KindOf(perr).Retryable() {
			return backoff.Permanent(perr)
		}
		if ctx.Err() != nil {
			// 整体已取消：在途的这一次算数，但不补发重试
			return backoff.Permanent(perr)
		}
		return perr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, p.maxRetries), ctx))
	if calls > 0 {
		retries = calls - 1
	}
	return messageID, retries, err
}
