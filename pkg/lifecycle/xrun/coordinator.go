package xrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// 状态
// =============================================================================

// State Coordinator 的生命周期状态。
type State int32

const (
	// StateRunning 接受注册。
	StateRunning State = iota
	// StateShuttingDown 正在依次关闭已注册的服务。
	StateShuttingDown
	// StateStopped 全部关闭函数已执行完毕。
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// =============================================================================
// 注册项
// =============================================================================

// Registration 一个需要在关闭时释放的服务实例。
type Registration struct {
	// Name 用于日志与失败归因，例如 "tenant 3/db"。
	Name string
	// Instance 被管理的实例本身，仅用于诊断。
	Instance any
	// Close 释放实例的函数，必须非 nil。
	Close func(ctx context.Context) error
}

// =============================================================================
// Coordinator
// =============================================================================

// Coordinator 按注册的逆序关闭服务。
//
// 后注册的服务先关闭（栈语义），保证依赖方总是在被依赖方之前释放。
// Coordinator 只负责关闭顺序与失败隔离：它不订阅信号，也不会退出进程，
// 由宿主（通常是 Run/RunWithOptions 返回之后）调用 Shutdown。
//
// 所有方法可并发调用。
type Coordinator struct {
	mu      sync.Mutex
	state   State
	entries []Registration
	done    chan struct{}
	opts    *options
}

// NewCoordinator 创建处于 Running 状态的 Coordinator。
func NewCoordinator(opts ...Option) *Coordinator {
	return &Coordinator{
		state: StateRunning,
		done:  make(chan struct{}),
		opts:  applyOptions(opts),
	}
}

// State 返回当前状态。
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Len 返回尚未关闭的注册项数量。
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Done 返回在 Shutdown 完成（进入 Stopped）后关闭的 channel。
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Push 将注册项压入关闭栈。
//
// 仅在 Running 状态下有效，否则返回 ErrShuttingDown；
// reg.Close 为 nil 返回 ErrNilClose。
func (c *Coordinator) Push(reg Registration) error {
	if reg.Close == nil {
		return fmt.Errorf("%w: %q", ErrNilClose, reg.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return ErrShuttingDown
	}
	c.entries = append(c.entries, reg)
	return nil
}

// Shutdown 按后进先出顺序依次关闭全部注册项。
//
// 只有第一次调用会执行关闭，之后的调用（包括并发调用）立即返回 nil。
// 每个关闭函数都在独立的失败边界内执行：返回的错误或 panic 会被记录为
// *CloseError 并写入日志，迭代继续进行。全部执行完后进入 Stopped，
// Done() 被关闭，返回值为所有 *CloseError 的 errors.Join。
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = StateShuttingDown
	entries := c.entries
	c.entries = nil
	c.mu.Unlock()

	logger := c.opts.logger
	logger.Info("shutdown started",
		slog.String("coordinator", c.opts.name),
		slog.Int("services", len(entries)),
	)

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		reg := entries[i]
		start := time.Now()
		if err := c.closeOne(ctx, reg); err != nil {
			logger.Error("close failed",
				slog.String("coordinator", c.opts.name),
				slog.String("service", reg.Name),
				slog.Any("error", err),
			)
			errs = append(errs, &CloseError{Name: reg.Name, Err: err})
			continue
		}
		logger.Debug("service closed",
			slog.String("coordinator", c.opts.name),
			slog.String("service", reg.Name),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	close(c.done)

	logger.Info("shutdown finished",
		slog.String("coordinator", c.opts.name),
		slog.Int("failures", len(errs)),
	)
	return errors.Join(errs...)
}

func (c *Coordinator) closeOne(ctx context.Context, reg Registration) (err error) {
	if c.opts.closeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.closeTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrClosePanic, r)
		}
	}()
	return reg.Close(ctx)
}
