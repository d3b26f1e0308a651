package xtenant

import (
	"fmt"
	"slices"
	"sync"
)

// Registry 按名称查找的实例注册表。
//
// 租户的 services / models 以及进程级 services 都以 Registry 表示，
// 名称唯一，Names 按注册顺序返回。并发安全。
type Registry struct {
	mu    sync.RWMutex
	items map[string]any
	order []string
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]any)}
}

// Add 注册一个实例。
//
// name 为空返回 ErrEmptyName；同名已存在返回包装了 ErrDuplicateName 的错误，
// 原有条目保持不变。
func (r *Registry) Add(name string, v any) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.items[name] = v
	r.order = append(r.order, name)
	return nil
}

// Get 按名称获取实例。
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	return v, ok
}

// Has 判断名称是否已注册。
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names 按注册顺序返回全部名称。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Len 返回条目数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Lookup 按名称获取实例并断言为 T。
//
// 名称不存在或类型不匹配时返回零值和 false。
//
//	db, ok := xtenant.Lookup[*xmongo.Database](t.Services(), "db")
func Lookup[T any](r *Registry, name string) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.Get(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
