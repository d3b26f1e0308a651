package xdispatch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xsite/pkg/observability/xlog"
	"github.com/omeyang/xsite/pkg/observability/xmetrics"
	"github.com/omeyang/xsite/pkg/tenancy/xroute"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// HTTP Header 名称
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderForwardedHost = "X-Forwarded-Host"
)

const componentName = "xdispatch"

// Resolver 按主机名查找租户，*xtenant.Directory 满足该接口。
type Resolver interface {
	Resolve(host string) (*xtenant.Tenant, error)
}

// RouteLister 提供请求期共享的扁平路由表，*xroute.Aggregator 满足该接口。
type RouteLister interface {
	Shared() []xroute.Route
}

// Dispatcher 请求分发中间件：解析租户、注入请求上下文、记录租户统计。
type Dispatcher struct {
	dir    Resolver
	routes RouteLister
	opts   *options
}

// New 创建 Dispatcher。routes 为 nil 时请求上下文中的路由表为空。
func New(dir Resolver, routes RouteLister, opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Dispatcher{dir: dir, routes: routes, opts: o}
}

// Middleware 返回包装 next 的 HTTP 处理器。
//
// 每个请求：
//  1. 取 Host（去端口、转小写）解析租户，未匹配时响应 404 并结束，不记录统计
//  2. 向 context 注入租户、路由表、site_ 配置副本、请求 ID 和上游追踪上下文
//  3. 调用 Metrics.Begin 后执行 next
//  4. next 返回（含 panic）后计算路由键，恰好一次地记录耗时与状态码，结束观测跨度
//
// 路由键在 next 返回后计算，此时 chi 已完成路由匹配，RouteKeyFunc 可以读取
// chi.RouteContext(r.Context()).RoutePattern()。
// handler panic 时按 500 记录统计，随后重新抛出交由 http.Server 处理。
func (d *Dispatcher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := d.hostOf(r)
		tenant, err := d.dir.Resolve(host)
		if err != nil {
			ctx := context.WithValue(r.Context(), notFoundHostKey{}, host)
			d.opts.logger.DebugContext(ctx, "tenant not found",
				xlog.Component(componentName), xlog.Host(host), xlog.Path(r.URL.Path))
			d.opts.notFound.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx, reqID := d.prepareContext(r, tenant)
		if reqID != "" {
			w.Header().Set(d.opts.requestIDHeader, reqID)
		}

		metrics := tenant.Metrics()
		metrics.Begin(time.Now())

		ctx, span := xmetrics.Start(ctx, d.opts.observer, xmetrics.SpanOptions{
			Component: componentName,
			Operation: boundedMethod(r.Method),
			Tenant:    strconv.Itoa(tenant.ID()),
			Kind:      xmetrics.KindServer,
			Attrs: []xmetrics.Attr{
				xmetrics.String("http.host", host),
				xmetrics.Int("tenant.node", tenant.Node()),
			},
		})

		rec := &statusRecorder{}
		ww := httpsnoop.Wrap(w, rec.hooks())
		req := r.WithContext(ctx)
		start := time.Now()

		defer func() {
			elapsed := time.Since(start)
			p := recover()
			status := rec.result(p != nil)
			routeKey := d.opts.routeKey(req)

			metrics.Observe(routeKey, elapsed, status)

			result := xmetrics.Result{
				Status: xmetrics.StatusFromHTTP(status),
				Attrs: []xmetrics.Attr{
					xmetrics.Int("http.status_code", status),
					xmetrics.String("http.route", routeKey),
				},
			}
			if p != nil {
				result.Err = fmt.Errorf("xdispatch: handler panic: %v", p)
			}
			span.End(result)

			d.opts.logger.DebugContext(ctx, "request completed",
				xlog.Component(componentName),
				xlog.Method(r.Method),
				xlog.Path(r.URL.Path),
				xlog.Route(routeKey),
				xlog.StatusCode(status),
				xlog.Duration(elapsed),
			)

			if p != nil {
				panic(p)
			}
		}()

		next.ServeHTTP(ww, req)
	})
}

// boundedMethod 将 xroute.SupportedMethods() 之外的方法记为 OtherMethod。
func boundedMethod(method string) string {
	if xroute.IsSupportedMethod(method) {
		return method
	}
	return OtherMethod
}

// prepareContext 构建请求 context，返回请求 ID（禁用时为空）。
func (d *Dispatcher) prepareContext(r *http.Request, tenant *xtenant.Tenant) (context.Context, string) {
	ctx := d.opts.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	// WithTenant 仅在 tenant 为 nil 时失败，Resolve 成功时不会出现
	if tc, err := xtenant.WithTenant(ctx, tenant); err == nil {
		ctx = tc
	}

	var routes []xroute.Route
	if d.routes != nil {
		routes = d.routes.Shared()
	}
	ctx = xroute.WithRoutes(ctx, routes)
	ctx = xtenant.WithLocals(ctx, tenant.SiteLocals())

	if d.opts.disableRequestID {
		return ctx, ""
	}
	reqID := strings.TrimSpace(r.Header.Get(d.opts.requestIDHeader))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return xlog.WithRequestID(ctx, reqID), reqID
}

// hostOf 返回用于租户解析的主机名：去端口、去空白、转小写。
func (d *Dispatcher) hostOf(r *http.Request) string {
	raw := r.Host
	if d.opts.trustForwardedHost {
		if fwd := r.Header.Get(HeaderForwardedHost); fwd != "" {
			// 多级代理时取第一个
			raw, _, _ = strings.Cut(fwd, ",")
		}
	}
	return Hostname(raw)
}

// Hostname 从 Host 头取出主机名部分，去端口并规范化。
//
//	Hostname("Example.COM:8080") // "example.com"
//	Hostname("[::1]:80")         // "::1"
func Hostname(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return xtenant.NormalizeHost(host)
	}
	return xtenant.NormalizeHost(strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]"))
}

// =============================================================================
// 未匹配租户
// =============================================================================

type notFoundHostKey struct{}

// NotFoundHost 返回未匹配租户时用于解析的主机名，供自定义 404 处理器使用。
func NotFoundHost(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	host, _ := ctx.Value(notFoundHostKey{}).(string)
	return host
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, fmt.Sprintf("no site configured for host %q", NotFoundHost(r.Context())), http.StatusNotFound)
}

// =============================================================================
// 状态码捕获
// =============================================================================

// statusRecorder 通过 httpsnoop 钩子记录首次写出的状态码。
// 保留 http.Flusher、http.Hijacker 等可选接口。
type statusRecorder struct {
	status      int
	wroteHeader bool
}

func (s *statusRecorder) hooks() httpsnoop.Hooks {
	return httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				// 1xx 信息响应之后还会有最终状态码
				if !s.wroteHeader && code >= http.StatusOK {
					s.status = code
					s.wroteHeader = true
				}
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				s.markOK()
				return next(b)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				s.markOK()
				return next(src)
			}
		},
	}
}

func (s *statusRecorder) markOK() {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
}

// result 返回应记录的状态码：panic 时为 500，未写出时为 200。
func (s *statusRecorder) result(panicked bool) int {
	if panicked {
		return http.StatusInternalServerError
	}
	if !s.wroteHeader {
		return http.StatusOK
	}
	return s.status
}
