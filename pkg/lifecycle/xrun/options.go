package xrun

import (
	"log/slog"
	"os"
	"time"
)

// Option 配置 Group 与 Coordinator 的选项函数。
//
// 两者共享同一组选项，不适用的字段会被忽略
// （例如 Group 不使用 WithCloseTimeout）。
type Option func(*options)

type options struct {
	logger          *slog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
	closeTimeout    time.Duration
}

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		name:   "xrun",
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithLogger 设置日志记录器。默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置日志中使用的名称，默认 "xrun"。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run/RunWithOptions 监听的信号列表。
//
// 默认监听 DefaultSignals()。空列表等同于默认值；
// 如需完全禁用信号处理，使用 WithoutSignalHandler。
func WithSignals(signals []os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *options) {
		o.signals = copied
	}
}

// WithoutSignalHandler 禁用 Run/RunWithOptions 的自动信号处理。
func WithoutSignalHandler() Option {
	return func(o *options) {
		o.noSignalHandler = true
	}
}

// WithCloseTimeout 为 Coordinator 的每个关闭函数设置超时。
//
// 超时通过传给关闭函数的 ctx 生效，关闭函数需要自行响应 ctx.Done()。
// 0 或负数表示不限制（默认）。
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.closeTimeout = d
		}
	}
}
