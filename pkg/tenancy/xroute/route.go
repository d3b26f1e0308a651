package xroute

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// ErrUnsupportedMethod 路由声明了不受支持的 HTTP 方法。
var ErrUnsupportedMethod = errors.New("xroute: unsupported method")

// ErrNilHandler 路由的处理器为 nil。
var ErrNilHandler = errors.New("xroute: nil handler")

// UnsupportedMethodError 描述一条方法不受支持的路由。
type UnsupportedMethodError struct {
	Method string
	Path   string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("xroute: unsupported method %q for %s", e.Method, e.Path)
}

// Is 支持 errors.Is(err, ErrUnsupportedMethod)。
func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// supportedMethods 可挂载的 HTTP 方法。
var supportedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// SupportedMethods 返回可挂载的 HTTP 方法列表副本。
func SupportedMethods() []string {
	return slices.Clone(supportedMethods)
}

// IsSupportedMethod 报告 method（区分大小写）是否属于 SupportedMethods()。
func IsSupportedMethod(method string) bool {
	return slices.Contains(supportedMethods, method)
}

// Route 一条路由：方法、完整路径与处理器。
type Route struct {
	Method  string
	Path    string
	Handler http.Handler
}

// Key 返回 "METHOD PATH" 形式的路由键。
func (r Route) Key() string {
	return r.Method + " " + r.Path
}

// Source 能提供一组路由的对象。
type Source interface {
	Routes() []Route
}

// Table 将静态路由切片适配为 Source。
type Table []Route

// Routes 实现 Source。
func (t Table) Routes() []Route { return t }

// SourceFunc 将函数适配为 Source。
type SourceFunc func() []Route

// Routes 实现 Source。
func (f SourceFunc) Routes() []Route { return f() }

// Transport 路由的实际承载者，chi.Router 满足该接口。
type Transport interface {
	Method(method, pattern string, h http.Handler)
}

// Join 拼接挂载前缀与路由路径。
//
// 直接拼接，接缝处的双斜杠折叠为一个；结果总以 "/" 开头，为空时返回 "/"。
//
//	Join("/api", "/users")  // "/api/users"
//	Join("/api/", "/users") // "/api/users"
//	Join("", "")            // "/"
func Join(prefix, path string) string {
	if strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	full := prefix + path
	if !strings.HasPrefix(full, "/") {
		full = "/" + full
	}
	return full
}

// =============================================================================
// Context
// =============================================================================

type contextKey struct{}

// WithRoutes 将路由表注入 context。
func WithRoutes(ctx context.Context, routes []Route) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, routes)
}

// Routes 返回 context 中的路由表，未设置时返回 nil。
//
// 返回的切片为只读视图，调用方不应修改。
func Routes(ctx context.Context) []Route {
	if ctx == nil {
		return nil
	}
	routes, _ := ctx.Value(contextKey{}).([]Route)
	return routes
}
