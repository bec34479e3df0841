package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/contentgenie/publisher/internal/adapter"
	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/pkg/logger"
)

var (
	ErrNoActiveAccounts = errors.New("no active accounts found")
)

// PublishRequest 与原 API 对齐的请求体
type PublishRequest struct {
	UserID     string   `json:"userId" binding:"required"`
	PostID     string   `json:"postId" binding:"required"`
	AccountIDs []string `json:"accountIds" binding:"required,min=1"`
	Title      string   `json:"title"`
	Text       string   `json:"text" binding:"required"`
	MediaURLs  []string `json:"mediaUrls"`
}

// PublishResponse success 指整轮编排是否正常完成；逐账号成败看 results
type PublishResponse struct {
	Success bool            `json:"success"`
	Status  string          `json:"status"`
	Results []PublishResult `json:"results"`
}

type PublishService interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error)
	Status(ctx context.Context, postID string) (map[string]AccountStatus, error)
}

type publishService struct {
	posts       repository.PostRepository
	accounts    repository.AccountRepository
	attempts    repository.AttemptRepository
	coordinator *Coordinator
	guard       *IdempotencyGuard
	status      *StatusBoard
	tracer      trace.Tracer
}

func NewPublishService(
	posts repository.PostRepository,
	accounts repository.AccountRepository,
	attempts repository.AttemptRepository,
	coordinator *Coordinator,
	guard *IdempotencyGuard,
	status *StatusBoard,
) PublishService {
	return &publishService{
		posts:       posts,
		accounts:    accounts,
		attempts:    attempts,
		coordinator: coordinator,
		guard:       guard,
		status:      status,
		tracer:      otel.Tracer("publisher/service"),
	}
}

func (s *publishService) Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error) {
	ctx, span := s.tracer.Start(ctx, "publish.fanout",
		trace.WithAttributes(
			attribute.String("post.id", req.PostID),
			attribute.Int("accounts.requested", len(req.AccountIDs)),
		))
	defer span.End()

	post, err := s.posts.GetByID(ctx, req.UserID, req.PostID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.ListActiveByIDs(ctx, req.UserID, req.AccountIDs)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoActiveAccounts
	}
	// 没匹配上的账号也要在结果里有一条（不新建 attempt）
	matched := make(map[string]struct{}, len(accounts))
	for _, acc := range accounts {
		matched[acc.ID] = struct{}{}
	}
	var skipped []PublishResult
	for _, id := range req.AccountIDs {
		if _, ok := matched[id]; !ok {
			skipped = append(skipped, PublishResult{AccountID: id, Success: false, Error: "account inactive or not found"})
		}
	}

	// 内容以请求为准（用户发布前可能改过草稿）
	content := adapter.Content{Title: req.Title, Text: req.Text, MediaURLs: req.MediaURLs}

	release, owned, err := s.guard.AcquireRunLock(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if owned {
		defer release()
		if _, err := s.posts.MarkPublishing(ctx, req.UserID, post.ID); err != nil {
			return nil, err
		}
	}

	results := make([]PublishResult, 0, len(req.AccountIDs))
	for res := range s.coordinator.Dispatch(ctx, post.ID, content, accounts) {
		results = append(results, res)
	}
	results = append(results, skipped...)

	resp := &PublishResponse{Success: true, Results: results}
	if owned {
		// 运行归属者负责一次且仅一次的聚合落库
		attempts, err := s.attempts.ListByPost(context.WithoutCancel(ctx), post.ID)
		if err != nil {
			return nil, err
		}
		writer := NewResultWriter(s.posts)
		finalStatus, err := writer.Write(context.WithoutCancel(ctx), post.ID, attempts)
		if err != nil {
			return nil, err
		}
		resp.Status = string(finalStatus)
		span.SetAttributes(attribute.String("post.status", string(finalStatus)))
		logger.Info("publish run finished",
			zap.String("post", post.ID),
			zap.String("status", string(finalStatus)),
			zap.Int("accounts", len(accounts)))
	}
	return resp, nil
}

func (s *publishService) Status(ctx context.Context, postID string) (map[string]AccountStatus, error) {
	return s.status.Snapshot(ctx, postID)
}
