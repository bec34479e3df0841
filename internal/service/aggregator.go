package service

import (
	"context"
	"sync/atomic"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
)

// AggregateStatus attempt 状态到帖子状态的纯函数：
// 全成功 published，全失败 failed，混合 partially_published，
// 还有未落定的则仍是 publishing。
func AggregateStatus(attempts []*model.PublishAttempt) model.PostStatus {
	if len(attempts) == 0 {
		return model.PostStatusFailed
	}
	succeeded, failed := 0, 0
	for _, a := range attempts {
		switch a.State {
		case model.AttemptSucceeded:
			succeeded++
		case model.AttemptFailed:
			failed++
		default:
			return model.PostStatusPublishing
		}
	}
	switch {
	case failed == 0:
		return model.PostStatusPublished
	case succeeded == 0:
		return model.PostStatusFailed
	default:
		return model.PostStatusPartiallyPublished
	}
}

// ResultWriter 一次 fan-out 运行对应一个实例；Write 只允许调用一次。
// 二次调用是编程错误，直接 panic 而不是吞掉。
type ResultWriter struct {
	posts repository.PostRepository
	used  atomic.Bool
}

func NewResultWriter(posts repository.PostRepository) *ResultWriter {
	return &ResultWriter{posts: posts}
}

func (w *ResultWriter) Write(ctx context.Context, postID string, attempts []*model.PublishAttempt) (model.PostStatus, error) {
	if !w.used.CompareAndSwap(false, true) {
		panic("service: ResultWriter.Write called twice for one fan-out run")
	}
	status := AggregateStatus(attempts)
	targets := make(model.PublishTargets, 0, len(attempts))
	for _, a := range attempts {
		targets = append(targets, model.PublishTarget{
			AccountID: a.AccountID,
			Success:   a.State == model.AttemptSucceeded,
			MessageID: a.MessageID,
		})
	}
	if err := w.posts.SavePublishOutcome(ctx, postID, status, targets); err != nil {
		return status, err
	}
	return status, nil
}
