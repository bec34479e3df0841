package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/contentgenie/publisher/config"
	"github.com/contentgenie/publisher/internal/adapter"
	"github.com/contentgenie/publisher/internal/api"
	"github.com/contentgenie/publisher/internal/api/handler"
	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/internal/service"
	"github.com/contentgenie/publisher/pkg/database"
	"github.com/contentgenie/publisher/pkg/logger"
	"github.com/contentgenie/publisher/pkg/secrets"
	"github.com/contentgenie/publisher/pkg/tracing"
)

// @title ContentGenie Publisher API
// @version 1.0
// @description 多账号社交发布编排服务
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Server.Mode}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.Init(ctx, cfg)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		return
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("database migrate failed", zap.Error(err))
		return
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, caches and run locks degraded", zap.Error(err))
	}

	var box *secrets.Box
	if cfg.Auth.CredentialKey != "" {
		if box, err = secrets.NewBox(cfg.Auth.CredentialKey); err != nil {
			logger.Error("credential key invalid", zap.Error(err))
			return
		}
	} else {
		logger.Warn("credential_key unset, account credentials stored in plaintext")
	}

	posts := repository.NewPostRepository(db)
	accounts := repository.NewCachedAccountRepository(repository.NewAccountRepository(db, box), rdb, 5*time.Minute)
	attempts := repository.NewAttemptRepository(db)
	users := repository.NewUserRepository(db)
	generations := repository.NewGenerationRepository(db)

	httpClient := &http.Client{Timeout: cfg.Services.HTTPTimeout}
	registry := adapter.NewRegistry(
		adapter.NewTelegramAdapter(httpClient),
		adapter.NewVKAdapter(cfg.Services.VKBaseURL, httpClient),
		adapter.NewInstagramAdapter(cfg.Services.InstagramBaseURL, httpClient),
	)

	policy := service.NewDispatchPolicy(cfg.Dispatch)
	status := service.NewStatusBoard(rdb, time.Hour)
	guard := service.NewIdempotencyGuard(attempts, rdb, 3*time.Minute)
	coordinator := service.NewCoordinator(attempts, guard, registry, policy, status)
	publishSvc := service.NewPublishService(posts, accounts, attempts, coordinator, guard, status)
	generationSvc := service.NewGenerationService(users, generations, cfg.Services.GenerateURL, httpClient)
	transcribeSvc := service.NewTranscribeService(cfg.Services.TranscribeURL, httpClient)

	recovery := service.NewRecoveryWorker(attempts, posts, accounts, registry, policy, status,
		cfg.Dispatch.StaleAfter, cfg.Dispatch.PollInterval)
	stopRecovery := recovery.Start()

	// 每日刷新生成额度
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := users.ResetAllCredits(context.Background(), cfg.Credits.DailyLimit); err != nil {
					logger.Warn("credits reset failed", zap.Error(err))
				}
			}
		}
	}()

	h := handler.New(publishSvc, generationSvc, transcribeSvc, posts, accounts)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(cfg, h),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := stopRecovery(shutdownCtx); err != nil {
		logger.Warn("recovery worker shutdown", zap.Error(err))
	}
	_ = rdb.Close()
}
