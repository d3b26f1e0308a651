package xdispatch

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xsite/pkg/observability/xmetrics"
	"github.com/omeyang/xsite/pkg/tenancy/xroute"
)

// RouteKeyFunc 计算请求的统计键，在 handler 返回后调用。
//
// 每个不同的返回值都会在租户统计中长期占用一个条目，返回值的集合应当有界。
type RouteKeyFunc func(r *http.Request) string

// 未匹配任何路由的请求使用的统计键。
const (
	UnmatchedRoute = "<unmatched>"
	OtherMethod    = "OTHER"
)

// Option 配置 Dispatcher。
type Option func(*options)

type options struct {
	logger             *slog.Logger
	observer           xmetrics.Observer
	propagator         propagation.TextMapPropagator
	trustForwardedHost bool
	notFound           http.Handler
	routeKey           RouteKeyFunc
	requestIDHeader    string
	disableRequestID   bool
}

func defaultOptions() *options {
	return &options{
		logger:          slog.Default(),
		observer:        xmetrics.NoopObserver{},
		propagator:      propagation.TraceContext{},
		notFound:        http.HandlerFunc(notFound),
		routeKey:        DefaultRouteKey,
		requestIDHeader: HeaderRequestID,
	}
}

// WithLogger 设置日志记录器，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置请求观测器，默认 NoopObserver。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithPropagator 设置上游追踪上下文的提取方式，默认 W3C traceparent。
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		if p != nil {
			o.propagator = p
		}
	}
}

// WithTrustForwardedHost 优先使用 X-Forwarded-Host 解析租户。
//
// 仅在可信反向代理之后启用。
func WithTrustForwardedHost() Option {
	return func(o *options) { o.trustForwardedHost = true }
}

// WithNotFoundHandler 替换未匹配租户时的响应。
//
// 处理器可通过 NotFoundHost(r.Context()) 取得解析用的主机名。
func WithNotFoundHandler(h http.Handler) Option {
	return func(o *options) {
		if h != nil {
			o.notFound = h
		}
	}
}

// WithRouteKey 替换统计键的计算方式，默认见 DefaultRouteKey。
func WithRouteKey(fn RouteKeyFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.routeKey = fn
		}
	}
}

// WithRequestIDHeader 设置请求 ID 所在的 Header，默认 X-Request-ID。
func WithRequestIDHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.requestIDHeader = http.CanonicalHeaderKey(name)
		}
	}
}

// WithoutRequestID 不生成、不回写请求 ID。
func WithoutRequestID() Option {
	return func(o *options) { o.disableRequestID = true }
}

// DefaultRouteKey 按以下顺序计算统计键：
//  1. chi 匹配到的路由模板："GET /users/{id}"
//  2. 路由表中与方法、路径完全相同的条目："GET /about"
//  3. 其余请求归入 "METHOD <unmatched>"，方法不在 xroute.SupportedMethods() 中时记为 OTHER
//
// 客户端构造的任意路径都不会产生新的统计条目。
func DefaultRouteKey(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return r.Method + " " + pattern
		}
	}
	for _, rt := range xroute.Routes(r.Context()) {
		if rt.Method == r.Method && rt.Path == r.URL.Path {
			return rt.Key()
		}
	}
	return boundedMethod(r.Method) + " " + UnmatchedRoute
}
