package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/omeyang/xsite/pkg/config/xconf"
	"github.com/omeyang/xsite/pkg/lifecycle/xrun"
	"github.com/omeyang/xsite/pkg/observability/xlog"
	"github.com/omeyang/xsite/pkg/observability/xmetrics"
	"github.com/omeyang/xsite/pkg/storage/xcache"
	"github.com/omeyang/xsite/pkg/storage/xmongo"
	"github.com/omeyang/xsite/pkg/tenancy/xbind"
	"github.com/omeyang/xsite/pkg/tenancy/xdispatch"
	"github.com/omeyang/xsite/pkg/tenancy/xroute"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// 注册的服务名与宿主使用的配置项。
const (
	serviceCache = "cache"
	serviceRedis = "redis"
	serviceDB    = "db"

	settingSiteTitle      = "site_title"
	settingMongoSlowQuery = "mongo_slow_query"

	connectAttempts   = 3
	connectRetryDelay = time.Second
	homeCacheTTL      = time.Minute
	readHeaderTimeout = 10 * time.Second
)

// host 组装完成、尚未开始监听的进程。
type host struct {
	site    *xconf.Site
	conf    *xconf.Config
	logger  *slog.Logger
	level   *slog.LevelVar
	cleanup func() error

	dir    *xtenant.Directory
	coord  *xrun.Coordinator
	binder *xbind.Binder
	routes *xroute.Aggregator
	server *http.Server
}

// loadSite 读取配置并构建租户目录，任何错误都视为配置无效。
func loadSite(path string) (*xconf.Site, *xconf.Config, *xtenant.Directory, error) {
	site, conf, err := xconf.LoadSiteFile(path)
	if err != nil {
		return nil, nil, nil, &usageError{err: err}
	}
	dir, err := xtenant.NewDirectory(site.Tenants)
	if err != nil {
		return nil, nil, nil, &usageError{err: err}
	}
	return site, conf, dir, nil
}

func cmdCheck(w io.Writer, path string) error {
	site, _, dir, err := loadSite(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "ok: %d tenants, %d domains, listen %s\n", dir.Len(), len(dir.Domains()), site.Server.Addr)
	for _, t := range dir.All() {
		fmt.Fprintf(w, "  %s node=%d\n", t, t.Node())
	}
	return nil
}

func cmdServe(ctx context.Context, path, addr string) (err error) {
	h, err := newHost(ctx, path, addr)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, h.shutdown())
	}()
	return h.run(ctx)
}

func newLogger(cfg xconf.LogConfig) (*slog.Logger, *slog.LevelVar, func() error, error) {
	b := xlog.New().SetLevelString(cfg.Level).SetFormat(cfg.Format)
	if cfg.File != "" {
		var ropts []xlog.RotationOption
		if cfg.MaxSizeMB > 0 {
			ropts = append(ropts, xlog.WithMaxSize(cfg.MaxSizeMB))
		}
		if cfg.MaxBackups > 0 {
			ropts = append(ropts, xlog.WithMaxBackups(cfg.MaxBackups))
		}
		if cfg.MaxAgeDays > 0 {
			ropts = append(ropts, xlog.WithMaxAge(cfg.MaxAgeDays))
		}
		ropts = append(ropts, xlog.WithCompress(cfg.Compress))
		b = b.SetRotation(cfg.File, ropts...)
	}
	return b.Build()
}

// newHost 构建日志、租户目录、服务绑定与路由。
//
// 注册失败时已创建的服务会立即被释放。
func newHost(ctx context.Context, path, addr string) (*host, error) {
	site, conf, dir, err := loadSite(path)
	if err != nil {
		return nil, err
	}
	if addr != "" {
		site.Server.Addr = addr
	}

	logger, level, cleanup, err := newLogger(site.Log)
	if err != nil {
		return nil, &usageError{err: fmt.Errorf("log config: %w", err)}
	}

	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("github.com/omeyang/xsite/cmd/xsited"))
	if err != nil {
		return nil, errors.Join(err, cleanup())
	}

	coord := xrun.NewCoordinator(xrun.WithLogger(logger), xrun.WithCloseTimeout(site.Server.CloseTimeout))
	h := &host{
		site:    site,
		conf:    conf,
		logger:  logger,
		level:   level,
		cleanup: cleanup,
		dir:     dir,
		coord:   coord,
		binder:  xbind.New(dir, xtenant.NewConfig(site.Process), coord, xbind.WithLogger(logger)),
	}

	if err := h.registerServices(ctx, observer); err != nil {
		return nil, errors.Join(err, h.shutdown())
	}
	if err := h.buildRoutes(observer); err != nil {
		return nil, errors.Join(err, h.shutdown())
	}

	logger.InfoContext(ctx, "site ready",
		slog.Int("tenants", dir.Len()),
		slog.Int("routes", h.routes.Len()),
		slog.String("addr", site.Server.Addr),
	)
	return h, nil
}

// registerServices 按配置为进程和租户绑定服务。
//
// 每个租户都有内存缓存；所有租户都配置了 redis_url 或 mongo_uri 时
// 才为租户绑定对应服务，部分配置会被忽略并记录 warn。
func (h *host) registerServices(ctx context.Context, observer xmetrics.Observer) error {
	retry := xbind.WithConnectRetry(connectAttempts, connectRetryDelay)

	process := h.binder.Process().Config()
	if process.Has(xcache.SettingRedisURL) {
		if err := h.binder.Register(ctx, xbind.TargetProcess, serviceRedis, xcache.RedisFactory(), retry); err != nil {
			return err
		}
	}

	if err := h.binder.Register(ctx, xbind.TargetTenants, serviceCache, xcache.MemoryFactory()); err != nil {
		return err
	}

	if h.everyTenant(ctx, xcache.SettingRedisURL) {
		if err := h.binder.Register(ctx, xbind.TargetTenants, serviceRedis, xcache.RedisFactory(), retry); err != nil {
			return err
		}
	}

	if h.everyTenant(ctx, xmongo.SettingURI) {
		factory := xmongo.Factory(
			xmongo.WithLogger(h.logger),
			xmongo.WithObserver(observer),
			xmongo.WithSlowQueryThreshold(process.Duration(settingMongoSlowQuery)),
		)
		if err := h.binder.Register(ctx, xbind.TargetTenants, serviceDB, factory, retry); err != nil {
			return err
		}
	}
	return nil
}

func (h *host) everyTenant(ctx context.Context, key string) bool {
	n := 0
	for _, t := range h.dir.All() {
		if t.Config().Has(key) {
			n++
		}
	}
	if n > 0 && n < h.dir.Len() {
		h.logger.WarnContext(ctx, "setting present on some tenants only, service not bound",
			slog.String("setting", key),
			slog.Int("tenants", n),
		)
	}
	return n > 0 && n == h.dir.Len()
}

func (h *host) buildRoutes(observer xmetrics.Observer) error {
	r := chi.NewRouter()
	h.routes = xroute.New(r)

	opts := []xdispatch.Option{
		xdispatch.WithLogger(h.logger),
		xdispatch.WithObserver(observer),
	}
	if h.site.Server.TrustForwardedHost {
		opts = append(opts, xdispatch.WithTrustForwardedHost())
	}
	r.Use(xdispatch.New(h.dir, h.routes, opts...).Middleware)

	if err := h.routes.Mount("/", homeRoutes()); err != nil {
		return err
	}
	if prefix := h.site.Server.StatusPrefix; prefix != "" {
		if err := h.routes.Mount(prefix, xdispatch.StatusRoutes()); err != nil {
			return err
		}
	}

	h.server = &http.Server{
		Addr:              h.site.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(h.logger.Handler(), slog.LevelWarn),
	}
	return nil
}

// run 监听直到收到信号或服务器出错，期间热更新日志级别。
func (h *host) run(ctx context.Context) error {
	services := []func(context.Context) error{
		xrun.HTTPServer(h.server, h.site.Server.ShutdownTimeout),
	}

	watcher, err := xconf.Watch(h.conf, h.onReload, xconf.WithWatchLogger(h.logger))
	if err != nil {
		h.logger.WarnContext(ctx, "config watch disabled", xlog.Err(err))
	} else {
		defer watcher.Close()
		services = append(services, watcher.Run)
	}

	h.logger.InfoContext(ctx, "listening", slog.String("addr", h.server.Addr))
	err = xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithLogger(h.logger), xrun.WithName("xsited")}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

// onReload 只应用日志级别，租户与服务在进程生命周期内不变。
func (h *host) onReload(conf *xconf.Config, err error) {
	if err != nil {
		return
	}
	site, err := xconf.LoadSite(conf)
	if err != nil {
		h.logger.Warn("reloaded config is invalid, keeping current settings", xlog.Err(err))
		return
	}
	if err := xlog.SetLevelString(h.level, site.Log.Level); err != nil {
		h.logger.Warn("invalid log level in reloaded config", xlog.Err(err))
		return
	}
	h.logger.Info("log level applied", slog.String("level", h.level.Level().String()))
}

// shutdown 释放所有已注册服务并关闭日志文件。
func (h *host) shutdown() error {
	err := h.coord.Shutdown(context.Background())
	if err != nil {
		h.logger.Error("shutdown finished with errors", xlog.Err(err))
	} else {
		h.logger.Info("shutdown complete")
	}
	return errors.Join(err, h.cleanup())
}

// =============================================================================
// 站点路由
// =============================================================================

func homeRoutes() xroute.Source {
	return xroute.Table{
		{Method: http.MethodGet, Path: "/", Handler: http.HandlerFunc(serveHome)},
	}
}

// serveHome 渲染租户首页，结果缓存在租户的内存缓存中。
func serveHome(w http.ResponseWriter, r *http.Request) {
	t, err := xtenant.RequireTenant(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render := func(context.Context) ([]byte, error) {
		title := t.Config().String(settingSiteTitle)
		if title == "" {
			title = t.String()
		}
		return []byte("<h1>" + html.EscapeString(title) + "</h1>\n"), nil
	}

	var body []byte
	if cache, ok := xtenant.Lookup[*xcache.Memory](t.Services(), serviceCache); ok {
		body, err = cache.GetOrLoad(r.Context(), "home", homeCacheTTL, render)
	} else {
		body, err = render(r.Context())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}
