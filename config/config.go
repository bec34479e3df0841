package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Services ServicesConfig `mapstructure:"services"`
	Credits  CreditsConfig  `mapstructure:"credits"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug / release
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres / sqlite
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	// CredentialKey 用于账号凭证的静态加密（32 字节，hex 编码）
	CredentialKey string `mapstructure:"credential_key"`
}

// DispatchConfig 发布调度策略参数
type DispatchConfig struct {
	MaxParallel    int           `mapstructure:"max_parallel"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// RateLimits 每个服务的限流（次/秒），0 表示不限
	RateLimits map[string]float64 `mapstructure:"rate_limits"`
	// StaleAfter 恢复 worker 判定残留 attempt 的阈值
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ServicesConfig 外部服务端点
type ServicesConfig struct {
	VKBaseURL        string        `mapstructure:"vk_base_url"`
	InstagramBaseURL string        `mapstructure:"instagram_base_url"`
	GenerateURL      string        `mapstructure:"generate_url"`
	TranscribeURL    string        `mapstructure:"transcribe_url"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
}

type CreditsConfig struct {
	DailyLimit int `mapstructure:"daily_limit"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TraceConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load 读取 config.yaml，环境变量可覆盖（CG_SERVER_ADDR 等）
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("CG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// 没有配置文件时使用默认值 + 环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=contentgenie port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.enabled", false)

	v.SetDefault("dispatch.max_parallel", 4)
	v.SetDefault("dispatch.attempt_timeout", 30*time.Second)
	v.SetDefault("dispatch.max_retries", 2)
	v.SetDefault("dispatch.initial_backoff", time.Second)
	v.SetDefault("dispatch.stale_after", 5*time.Minute)
	v.SetDefault("dispatch.poll_interval", 30*time.Second)

	v.SetDefault("services.vk_base_url", "https://api.vk.com")
	v.SetDefault("services.instagram_base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("services.http_timeout", 30*time.Second)

	v.SetDefault("credits.daily_limit", 10)
}
