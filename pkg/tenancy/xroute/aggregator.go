package xroute

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Aggregator 将多个 Source 的路由挂载到 Transport，并维护一张扁平路由表。
//
// 路由表按挂载顺序排列，对于首个匹配生效的传输层这个顺序是有意义的。
// Mount 在启动期调用；List 可在请求期并发调用。
type Aggregator struct {
	mu        sync.RWMutex
	transport Transport
	routes    []Route
	snapshot  []Route
}

// New 创建 Aggregator。transport 为 nil 时只维护路由表。
func New(transport Transport) *Aggregator {
	return &Aggregator{transport: transport}
}

// Mount 将 src 的全部路由以 prefix 为前缀挂载。
//
// 先校验全部路由：方法去空白并转大写后必须属于 SupportedMethods()
// （"get"、" Post " 分别按 GET、POST 挂载），否则返回 *UnsupportedMethodError；
// 处理器为 nil 返回 ErrNilHandler。任一失败都不挂载任何一条。
// 校验通过后依次写入 Transport 并追加到路由表。
func (a *Aggregator) Mount(prefix string, src Source) error {
	if src == nil {
		return nil
	}
	in := src.Routes()
	out := make([]Route, 0, len(in))
	for _, r := range in {
		method := strings.ToUpper(strings.TrimSpace(r.Method))
		path := Join(prefix, r.Path)
		if !IsSupportedMethod(method) {
			return &UnsupportedMethodError{Method: r.Method, Path: path}
		}
		if r.Handler == nil {
			return fmt.Errorf("%w: %s %s", ErrNilHandler, method, path)
		}
		out = append(out, Route{Method: method, Path: path, Handler: r.Handler})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range out {
		if a.transport != nil {
			a.transport.Method(r.Method, r.Path, r.Handler)
		}
		a.routes = append(a.routes, r)
	}
	a.snapshot = nil
	return nil
}

// List 返回扁平路由表的副本。
func (a *Aggregator) List() []Route {
	return slices.Clone(a.shared())
}

// Len 返回路由数量。
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.routes)
}

// Shared 返回路由表的共享只读视图，供请求期注入 context 使用，避免每个请求复制。
//
// 视图在下一次 Mount 之前保持不变，调用方不得修改。
func (a *Aggregator) Shared() []Route {
	return a.shared()
}

func (a *Aggregator) shared() []Route {
	a.mu.RLock()
	s := a.snapshot
	a.mu.RUnlock()
	if s != nil {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snapshot == nil {
		a.snapshot = slices.Clip(slices.Clone(a.routes))
		if a.snapshot == nil {
			a.snapshot = []Route{}
		}
	}
	return a.snapshot
}
