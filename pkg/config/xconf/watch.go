package xconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc 配置重载后的回调。err 非 nil 表示重载失败，cfg 保持旧内容。
type ReloadFunc func(cfg *Config, err error)

// WatchOption 配置 Watcher。
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger 设置日志记录器，默认 slog.Default()。
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher 监视配置文件并在变更时重载。
//
// 监视文件所在目录而非文件本身，以覆盖编辑器“写临时文件再 rename”的保存方式。
type Watcher struct {
	cfg      *Config
	fs       *fsnotify.Watcher
	onReload ReloadFunc
	debounce time.Duration
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Watch 为从文件创建的配置建立监视器。调用方负责 Run 与 Close。
//
//	w, err := xconf.Watch(cfg, func(c *xconf.Config, err error) { ... })
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	go w.Run(ctx)
func Watch(cfg *Config, onReload ReloadFunc, opts ...WatchOption) (*Watcher, error) {
	if cfg == nil || cfg.path == "" {
		return nil, ErrNotReloadable
	}

	w := &Watcher{
		cfg:      cfg,
		onReload: onReload,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(cfg.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fsw.Close())
	}
	w.fs = fsw
	return w, nil
}

// Run 处理文件事件直到 ctx 取消或 Close 被调用，返回 nil。
//
// 重载在 Run 所在 goroutine 内执行，Run 返回后不会再有回调。
func (w *Watcher) Run(ctx context.Context) error {
	target := filepath.Base(w.cfg.path)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "config watch error", slog.String("path", w.cfg.path), slog.Any("error", err))

		case <-timer.C:
			err := w.cfg.Reload()
			if err != nil {
				w.logger.WarnContext(ctx, "config reload failed", slog.String("path", w.cfg.path), slog.Any("error", err))
			} else {
				w.logger.InfoContext(ctx, "config reloaded", slog.String("path", w.cfg.path))
			}
			if w.onReload != nil {
				w.onReload(w.cfg, err)
			}
		}
	}
}

// Close 释放底层 fsnotify 资源，可多次调用。
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}
