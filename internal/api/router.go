package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/contentgenie/publisher/config"
	"github.com/contentgenie/publisher/internal/api/handler"
	"github.com/contentgenie/publisher/internal/api/middleware"
	"github.com/contentgenie/publisher/internal/model"
)

// NewRouter 组装中间件与路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	registerValidators()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("contentgenie-publisher"))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Enabled))
	{
		v1.POST("/publish", h.Publish)
		v1.GET("/publish/:post_id/status", h.PublishStatus)

		v1.POST("/posts", h.CreatePost)
		v1.GET("/posts/:post_id", h.GetPost)
		v1.GET("/posts/user/:user_id", h.ListPosts)

		v1.POST("/accounts", h.ConnectAccount)
		v1.GET("/accounts/user/:user_id", h.ListAccounts)

		v1.POST("/generate", h.Generate)
		v1.GET("/generate/:user_id/history", h.GenerationHistory)
		v1.POST("/transcribe", h.Transcribe)
	}
	return r
}

// registerValidators 补充 binding 校验：service 字段必须是已支持的平台
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("servicekind", func(fl validator.FieldLevel) bool {
		kind := model.ServiceKind(fl.Field().String())
		for _, known := range model.KnownServices {
			if kind == known {
				return true
			}
		}
		return false
	})
}
