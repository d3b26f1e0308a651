package xbind

import (
	"context"
	"log/slog"
	"time"
)

// Option 配置 Binder。
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger 设置日志记录器，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// RegisterOption 配置单次 Register / RegisterModel 调用。
type RegisterOption func(*registerOptions)

type registerOptions struct {
	close         func(ctx context.Context, instance any) error
	retryAttempts uint
	retryDelay    time.Duration
}

// WithClose 显式指定关闭函数，优先于实例自身的 Close 方法。
//
// 同一次注册创建的每个实例都会用它关闭：
//
//	b.Register(ctx, xbind.TargetTenants, "conn", factory,
//	    xbind.WithClose(func(ctx context.Context, v any) error {
//	        return v.(*Conn).Release()
//	    }))
func WithClose(fn func(ctx context.Context, instance any) error) RegisterOption {
	return func(o *registerOptions) {
		o.close = fn
	}
}

// WithConnectRetry 对 Connect 失败进行重试。
//
// attempts 为总尝试次数（含首次），<= 1 表示不重试；delay 为固定间隔。
func WithConnectRetry(attempts uint, delay time.Duration) RegisterOption {
	return func(o *registerOptions) {
		o.retryAttempts = attempts
		if delay > 0 {
			o.retryDelay = delay
		}
	}
}
