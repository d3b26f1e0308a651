package xrun

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
)

// Group 基于 errgroup + context 并发运行宿主的长期任务（HTTP 服务器、信号监听等）。
//
// 任一任务返回错误或 context 被取消时，其余任务都会收到取消信号。
// Go、Cancel 可并发调用；Wait 只应调用一次。
//
// Group 只管理"运行"，服务实例的释放由 Coordinator 负责：
//
//	err := xrun.RunWithOptions(ctx, opts, xrun.HTTPServer(srv, 10*time.Second))
//	shutdownErr := coord.Shutdown(context.Background())
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *options
}

// NewGroup 创建 Group，返回的 context 在任一任务出错时被取消。
// nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     applyOptions(opts),
	}, egCtx
}

// Go 在新的 goroutine 中运行 fn。fn 应监听 ctx.Done() 以响应取消。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// Wait 等待全部任务结束，返回第一个非 nil 错误。
//
// 通过 Cancel(cause) 设置的退出原因（如 *SignalError）优先返回；
// 没有显式原因的普通取消返回 nil。
// 任务内部自行产生的 context.Canceled（Group 本身未被取消）原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.opts.logger.Debug("all tasks stopped", slog.String("group", g.opts.name))

	cancelled := g.causeCtx.Err() != nil
	if err == nil || errors.Is(err, context.Canceled) {
		if !cancelled {
			return err
		}
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return nil
	}
	return err
}

// Cancel 取消全部任务，cause 会作为 Wait 的返回值。
//
// cause 不应包装 context.Canceled，否则会被当作普通取消过滤掉。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// =============================================================================
// 便捷函数
// =============================================================================

// Run 监听默认信号并运行 services，收到信号时返回 *SignalError。
//
//	err := xrun.Run(ctx, xrun.HTTPServer(srv, 10*time.Second))
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 与 Run 相同，但支持配置选项。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			return g.watchSignals(ctx, signals)
		})
	}

	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func (g *Group) watchSignals(ctx context.Context, signals []os.Signal) error {
	testc := testSigChan(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-testc:
	case sig = <-sigCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.opts.logger.Info("received signal",
		slog.String("group", g.opts.name),
		slog.String("signal", sig.String()),
	)
	g.cancel(&SignalError{Signal: sig})
	return nil
}

// =============================================================================
// HTTP Server
// =============================================================================

// HTTPServerInterface 是 HTTPServer 需要的最小服务器接口，*http.Server 满足它。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 将服务器包装为可放入 Group 的任务。
//
// ctx 取消时调用 Shutdown 并等待在途请求结束；shutdownTimeout <= 0 表示不限时。
// Shutdown 的错误会作为任务的返回值，不会被吞掉。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		served := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				sctx := context.Background()
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-served:
			}
		}()

		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			close(served)
			return err
		}
		// ErrServerClosed：区分由 ctx 驱动的关闭与外部直接关闭。
		select {
		case e := <-shutdownErr:
			return e
		case <-ctx.Done():
			return <-shutdownErr
		default:
			close(served)
			return nil
		}
	}
}
