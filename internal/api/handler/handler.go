package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/internal/service"
)

// Handler 聚合全部 HTTP 处理器依赖
type Handler struct {
	publishSvc    service.PublishService
	generationSvc service.GenerationService
	transcribeSvc service.TranscribeService
	posts         repository.PostRepository
	accounts      repository.AccountRepository
}

func New(
	publishSvc service.PublishService,
	generationSvc service.GenerationService,
	transcribeSvc service.TranscribeService,
	posts repository.PostRepository,
	accounts repository.AccountRepository,
) *Handler {
	return &Handler{
		publishSvc:    publishSvc,
		generationSvc: generationSvc,
		transcribeSvc: transcribeSvc,
		posts:         posts,
		accounts:      accounts,
	}
}

// userID 认证中间件写入的用户优先，否则用请求携带的
func userID(c *gin.Context, fallback string) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
