package xbind

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/avast/retry-go/v5"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xsite/pkg/lifecycle/xrun"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

const (
	kindService = "service"
	kindModel   = "model"
	ownerProc   = "process"
)

// Process 进程级的服务所有者。
type Process struct {
	config   xtenant.Config
	services *xtenant.Registry
}

// Config 返回进程配置。
func (p *Process) Config() xtenant.Config { return p.config }

// Services 返回进程的服务注册表。
func (p *Process) Services() *xtenant.Registry { return p.services }

// Binder 将命名服务与模型绑定到进程和各租户。
//
// 每次注册遵循相同的协议：重复检查 → 创建（租户间并发）→ 登记关闭项 → Connect。
// 所有失败都同步返回，调用方应中止启动。
//
// Register / RegisterModel 互斥执行，关闭栈的顺序与调用顺序一致。
type Binder struct {
	mu       sync.Mutex
	dir      *xtenant.Directory
	process  *Process
	teardown Teardown
	logger   *slog.Logger
}

// New 创建 Binder。teardown 为 nil 时不登记关闭项。
func New(dir *xtenant.Directory, process xtenant.Config, teardown Teardown, opts ...Option) *Binder {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Binder{
		dir:      dir,
		process:  &Process{config: process, services: xtenant.NewRegistry()},
		teardown: teardown,
		logger:   o.logger,
	}
}

// Process 返回进程级所有者。
func (b *Binder) Process() *Process {
	return b.process
}

// Register 按 target 注册服务。
//
//   - process：factory(ctx, 进程配置) 创建一个实例，进程已有同名服务时返回 *DuplicateServiceError
//   - tenants：先检查所有租户是否已有 key（报告第一个冲突的租户），再并发为每个租户创建实例
//   - both：进程实例 + 每个租户的实例
//
// 任一租户创建失败则整体返回错误，但已成功创建的实例保持注册，不做回滚，
// 其关闭项照常登记。实例实现 Connector 时，在全部创建完成后按租户顺序依次 Connect，
// 失败返回 *ServiceConnectError。
func (b *Binder) Register(ctx context.Context, target Target, key string, factory Factory, opts ...RegisterOption) error {
	if !target.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	if key == "" {
		return ErrEmptyKey
	}
	if factory == nil {
		return ErrNilFactory
	}
	ro := applyRegisterOptions(opts)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.accepting(); err != nil {
		return err
	}
	if target.process() && b.process.services.Has(key) {
		return &DuplicateServiceError{Kind: kindService, Key: key, Owner: ownerProc}
	}
	services := func(t *xtenant.Tenant) *xtenant.Registry { return t.Services() }
	if target.tenants() {
		if err := b.precheck(kindService, key, services); err != nil {
			return err
		}
	}

	if target.process() {
		if err := b.bindProcess(ctx, key, factory, ro); err != nil {
			return err
		}
	}
	if target.tenants() {
		create := func(ctx context.Context, t *xtenant.Tenant) (any, error) {
			return factory(ctx, t.Config())
		}
		if err := b.fanOut(ctx, kindService, key, services, create, ro); err != nil {
			return err
		}
	}

	b.logger.Info("service registered",
		slog.String("key", key),
		slog.String("target", string(target)),
	)
	return nil
}

// RegisterModel 为每个租户注册模型。
//
// 模型总是租户级的，factory 收到租户本身。重复检查、关闭项与 Connect 语义同 Register。
func (b *Binder) RegisterModel(ctx context.Context, name string, factory ModelFactory, opts ...RegisterOption) error {
	if name == "" {
		return ErrEmptyModelName
	}
	if factory == nil {
		return ErrNilFactory
	}
	ro := applyRegisterOptions(opts)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.accepting(); err != nil {
		return err
	}
	models := func(t *xtenant.Tenant) *xtenant.Registry { return t.Models() }
	if err := b.precheck(kindModel, name, models); err != nil {
		return err
	}
	if err := b.fanOut(ctx, kindModel, name, models, factory, ro); err != nil {
		return err
	}

	b.logger.Info("model registered", slog.String("name", name))
	return nil
}

// =============================================================================
// 内部实现
// =============================================================================

func applyRegisterOptions(opts []RegisterOption) *registerOptions {
	ro := &registerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(ro)
		}
	}
	return ro
}

// accepting 关停开始后返回 xrun.ErrShuttingDown，此时不调用 factory、不写注册表。
func (b *Binder) accepting() error {
	if b.teardown != nil && b.teardown.State() != xrun.StateRunning {
		return xrun.ErrShuttingDown
	}
	return nil
}

func tenantOwner(t *xtenant.Tenant) string {
	return "tenant " + strconv.Itoa(t.ID())
}

func (b *Binder) precheck(kind, key string, regOf func(*xtenant.Tenant) *xtenant.Registry) error {
	for _, t := range b.dir.All() {
		if regOf(t).Has(key) {
			return &DuplicateServiceError{Kind: kind, Key: key, Owner: tenantOwner(t)}
		}
	}
	return nil
}

func (b *Binder) bindProcess(ctx context.Context, key string, factory Factory, ro *registerOptions) error {
	inst, err := factory(ctx, b.process.config)
	if err != nil {
		return fmt.Errorf("xbind: create service %q on %s: %w", key, ownerProc, err)
	}
	if err := b.process.services.Add(key, inst); err != nil {
		return &DuplicateServiceError{Kind: kindService, Key: key, Owner: ownerProc}
	}
	if err := b.pushTeardown(ownerProc, key, inst, ro); err != nil {
		return err
	}
	return b.connect(ctx, ownerProc, key, inst, ro)
}

// fanOut 为全部租户并发创建实例，等待全部完成后依次登记关闭项与 Connect。
func (b *Binder) fanOut(
	ctx context.Context,
	kind, key string,
	regOf func(*xtenant.Tenant) *xtenant.Registry,
	create func(context.Context, *xtenant.Tenant) (any, error),
	ro *registerOptions,
) error {
	tenants := b.dir.All()
	instances := make([]any, len(tenants))
	created := make([]bool, len(tenants))

	// 不使用 errgroup.WithContext：一个租户失败不取消其他租户的创建。
	var g errgroup.Group
	for i, t := range tenants {
		g.Go(func() error {
			inst, err := create(ctx, t)
			if err != nil {
				return fmt.Errorf("xbind: create %s %q on %s: %w", kind, key, tenantOwner(t), err)
			}
			if err := regOf(t).Add(key, inst); err != nil {
				return &DuplicateServiceError{Kind: kind, Key: key, Owner: tenantOwner(t)}
			}
			instances[i], created[i] = inst, true
			return nil
		})
	}
	createErr := g.Wait()

	for i, t := range tenants {
		if !created[i] {
			continue
		}
		if err := b.pushTeardown(tenantOwner(t), key, instances[i], ro); err != nil {
			return err
		}
	}
	if createErr != nil {
		return createErr
	}

	for i, t := range tenants {
		if err := b.connect(ctx, tenantOwner(t), key, instances[i], ro); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) pushTeardown(owner, key string, inst any, ro *registerOptions) error {
	if b.teardown == nil {
		return nil
	}
	fn := closeFunc(inst, ro.close)
	if fn == nil {
		return nil
	}
	return b.teardown.Push(xrun.Registration{
		Name:     owner + "/" + key,
		Instance: inst,
		Close:    fn,
	})
}

func (b *Binder) connect(ctx context.Context, owner, key string, inst any, ro *registerOptions) error {
	c, ok := inst.(Connector)
	if !ok {
		return nil
	}

	var err error
	if ro.retryAttempts > 1 {
		err = retry.New(
			retry.Attempts(ro.retryAttempts),
			retry.Delay(ro.retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				b.logger.Warn("connect retry",
					slog.String("owner", owner),
					slog.String("key", key),
					slog.Uint64("attempt", uint64(n)+1),
					slog.Any("error", err),
				)
			}),
		).Do(func() error {
			return c.Connect(ctx)
		})
	} else {
		err = c.Connect(ctx)
	}

	if err != nil {
		return &ServiceConnectError{Key: key, Owner: owner, Err: err}
	}
	b.logger.Debug("service connected",
		slog.String("owner", owner),
		slog.String("key", key),
	)
	return nil
}
