package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/contentgenie/publisher/internal/model"
)

// ErrorKind 适配器失败分类；重试与否由调度策略决定，适配器自身从不重试
type ErrorKind string

const (
	KindAuthInvalid     ErrorKind = "auth_invalid"
	KindRateLimited     ErrorKind = "rate_limited"
	KindPayloadRejected ErrorKind = "payload_rejected"
	KindNetworkError    ErrorKind = "network_error"
	KindUnknown         ErrorKind = "unknown"
)

// Retryable 瞬时失败可重试；凭证/内容坏了重试无意义
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindNetworkError
}

// Error 带分类的适配器错误
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf 提取错误分类；超时归为 network_error
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetworkError
	}
	return KindUnknown
}

// Content 与服务无关的发布载荷
type Content struct {
	Title     string
	Text      string
	MediaURLs []string
}

// Adapter 单个社交服务的发布实现。
// 约束：一次 Publish 对应一次外部调用，超时由 ctx 控制。
type Adapter interface {
	Service() model.ServiceKind
	Publish(ctx context.Context, creds model.AccountData, content Content) (messageID string, err error)
}

// Registry 按服务类型查找适配器
type Registry struct {
	adapters map[model.ServiceKind]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[model.ServiceKind]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Service()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Lookup(kind model.ServiceKind) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}
