package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/contentgenie/publisher/internal/adapter"
	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/pkg/logger"
)

// RecoveryWorker 轮询残留的 pending/in_flight attempt（进程崩溃或取消遗留），
// 重新执行或判死，并在帖子的所有 attempt 落定后补写聚合状态。
type RecoveryWorker struct {
	attempts     repository.AttemptRepository
	posts        repository.PostRepository
	accounts     repository.AccountRepository
	registry     *adapter.Registry
	policy       *DispatchPolicy
	status       *StatusBoard
	staleAfter   time.Duration
	pollInterval time.Duration
	claimLimit   int
}

func NewRecoveryWorker(
	attempts repository.AttemptRepository,
	posts repository.PostRepository,
	accounts repository.AccountRepository,
	registry *adapter.Registry,
	policy *DispatchPolicy,
	status *StatusBoard,
	staleAfter, pollInterval time.Duration,
) *RecoveryWorker {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &RecoveryWorker{
		attempts:     attempts,
		posts:        posts,
		accounts:     accounts,
		registry:     registry,
		policy:       policy,
		status:       status,
		staleAfter:   staleAfter,
		pollInterval: pollInterval,
		claimLimit:   64,
	}
}

// Start 启动轮询；返回停止函数
func (w *RecoveryWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	go w.loop(stop)
	return func(ctx context.Context) error { close(stop); return nil }
}

func (w *RecoveryWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := w.processOnce(context.Background()); err != nil {
				logger.Warn("attempt recovery pass failed", zap.Error(err))
			}
		}
	}
}

func (w *RecoveryWorker) processOnce(ctx context.Context) error {
	batch, err := w.attempts.ClaimStale(ctx, time.Now().Add(-w.staleAfter), w.claimLimit)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	logger.Info("recovering stale publish attempts", zap.Int("count", len(batch)))

	touched := make(map[string]struct{})
	for _, att := range batch {
		w.recover(ctx, att)
		touched[att.PostID] = struct{}{}
	}

	// 落定后的帖子补写聚合状态
	for postID := range touched {
		attempts, err := w.attempts.ListByPost(ctx, postID)
		if err != nil {
			continue
		}
		status := AggregateStatus(attempts)
		if status == model.PostStatusPublishing {
			continue // 还有在途的，下一轮再看
		}
		writer := NewResultWriter(w.posts)
		if _, err := writer.Write(ctx, postID, attempts); err != nil {
			logger.Warn("recovery aggregate write failed", zap.String("post", postID), zap.Error(err))
		}
	}
	return nil
}

func (w *RecoveryWorker) recover(ctx context.Context, att *model.PublishAttempt) {
	post, err := w.posts.Find(ctx, att.PostID)
	if err != nil {
		w.failAttempt(ctx, att, adapter.KindUnknown)
		return
	}
	acc, err := w.accounts.GetByID(ctx, att.AccountID)
	if err != nil {
		w.failAttempt(ctx, att, adapter.KindUnknown)
		return
	}
	ad, found := w.registry.Lookup(acc.Service)
	if !found {
		w.failAttempt(ctx, att, adapter.KindPayloadRejected)
		return
	}

	content := adapter.Content{Title: post.Title, Text: post.Text, MediaURLs: post.MediaURLs}
	messageID, retries, perr := w.policy.Execute(ctx, ad, acc.Data, content)
	if perr != nil {
		kind := adapter.KindOf(perr)
		if err := w.attempts.MarkFailed(ctx, att.ID, string(kind), att.Retries+retries); err != nil {
			logger.Warn("recovery mark failed", zap.String("attempt", att.ID), zap.Error(err))
		}
		w.status.Set(ctx, att.PostID, att.AccountID, AccountStatus{State: model.AttemptFailed, Error: string(kind)})
		return
	}
	if err := w.attempts.MarkSucceeded(ctx, att.ID, messageID, att.Retries+retries); err != nil {
		logger.Warn("recovery mark succeeded", zap.String("attempt", att.ID), zap.Error(err))
	}
	w.status.Set(ctx, att.PostID, att.AccountID, AccountStatus{State: model.AttemptSucceeded, MessageID: messageID})
}

func (w *RecoveryWorker) failAttempt(ctx context.Context, att *model.PublishAttempt, kind adapter.ErrorKind) {
	if err := w.attempts.MarkFailed(ctx, att.ID, string(kind), att.Retries); err != nil {
		logger.Warn("recovery mark failed", zap.String("attempt", att.ID), zap.Error(err))
	}
	w.status.Set(ctx, att.PostID, att.AccountID, AccountStatus{State: model.AttemptFailed, Error: string(kind)})
}
