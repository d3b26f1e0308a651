package xtenant

import (
	"context"
	"maps"
)

// =============================================================================
// Context Key 类型定义
// =============================================================================

type contextKey string

const (
	keyTenant contextKey = "xtenant.tenant"
	keyLocals contextKey = "xtenant.locals"
)

// =============================================================================
// 租户
// =============================================================================

// WithTenant 将租户注入 context。
//
// ctx 为 nil 时使用 context.Background()；t 为 nil 返回 ErrNilTenant。
func WithTenant(ctx context.Context, t *Tenant) (context.Context, error) {
	if t == nil {
		return nil, ErrNilTenant
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyTenant, t), nil
}

// FromContext 从 context 获取租户。
func FromContext(ctx context.Context) (*Tenant, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(keyTenant).(*Tenant)
	return t, ok && t != nil
}

// RequireTenant 从 context 获取租户，不存在时返回 ErrMissingTenant。
//
// 适用于只会挂在租户分发中间件之后的处理器。
func RequireTenant(ctx context.Context) (*Tenant, error) {
	t, ok := FromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}
	return t, nil
}

// =============================================================================
// 响应上下文（site_ 前缀配置）
// =============================================================================

// WithLocals 将请求级的响应上下文注入 context。
//
// locals 按引用保存：同一请求内的处理器可以向其中追加条目，供后续模板渲染使用。
func WithLocals(ctx context.Context, locals map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if locals == nil {
		locals = make(map[string]any)
	}
	return context.WithValue(ctx, keyLocals, locals)
}

// Locals 返回请求级响应上下文。未设置时返回 nil。
func Locals(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(keyLocals).(map[string]any)
	return m
}

// LocalsCopy 返回请求级响应上下文的浅拷贝。
func LocalsCopy(ctx context.Context) map[string]any {
	return maps.Clone(Locals(ctx))
}

// MustFromContext 从 context 获取租户，不存在时 panic。
//
// 仅用于确定挂在分发中间件之后的代码路径。
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic(ErrMissingTenant)
	}
	return t
}
