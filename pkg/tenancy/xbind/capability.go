package xbind

import (
	"context"
	"fmt"
	"io"

	"github.com/omeyang/xsite/pkg/lifecycle/xrun"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// Target 服务的绑定目标。
type Target string

const (
	// TargetProcess 只为进程创建一个实例。
	TargetProcess Target = "process"
	// TargetTenants 为每个租户各创建一个实例。
	TargetTenants Target = "tenants"
	// TargetBoth 同时创建进程实例与每个租户的实例。
	TargetBoth Target = "both"
)

// ParseTarget 解析目标字面量，非法值返回包装了 ErrInvalidTarget 的错误。
func ParseTarget(s string) (Target, error) {
	t := Target(s)
	if !t.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	return t, nil
}

func (t Target) valid() bool {
	switch t {
	case TargetProcess, TargetTenants, TargetBoth:
		return true
	}
	return false
}

func (t Target) process() bool { return t == TargetProcess || t == TargetBoth }
func (t Target) tenants() bool { return t == TargetTenants || t == TargetBoth }

// Factory 根据配置创建服务实例。
//
// 进程实例收到进程配置，租户实例收到租户配置。
// 同一次注册中各租户的 Factory 会被并发调用。
type Factory func(ctx context.Context, cfg xtenant.Config) (any, error)

// ModelFactory 为租户创建模型实例，可读取租户的任意状态（包括已注册的服务）。
type ModelFactory func(ctx context.Context, t *xtenant.Tenant) (any, error)

// Connector 需要在注册后立即建立连接的实例。
type Connector interface {
	Connect(ctx context.Context) error
}

// Closer 需要在关闭时释放资源的实例。
type Closer interface {
	Close(ctx context.Context) error
}

// Teardown 接收关闭注册项，*xrun.Coordinator 满足该接口。
//
// State 不为 xrun.StateRunning 时 Binder 拒绝新的注册。
type Teardown interface {
	Push(reg xrun.Registration) error
	State() xrun.State
}

// closeFunc 按 WithClose、Closer、io.Closer 的顺序解析实例的关闭函数。
func closeFunc(instance any, explicit func(context.Context, any) error) func(context.Context) error {
	if explicit != nil {
		return func(ctx context.Context) error { return explicit(ctx, instance) }
	}
	switch c := instance.(type) {
	case Closer:
		return c.Close
	case io.Closer:
		return func(context.Context) error { return c.Close() }
	}
	return nil
}
