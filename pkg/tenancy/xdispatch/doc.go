// Package xdispatch 按主机名把 HTTP 请求分发到租户。
//
// Dispatcher.Middleware 挂在路由器最外层：
//
//	dir, _ := xtenant.NewDirectory(defs)
//	r := chi.NewRouter()
//	agg := xroute.New(r)
//	d := xdispatch.New(dir, agg, xdispatch.WithLogger(logger))
//	r.Use(d.Middleware)
//	agg.Mount("/api", apiRoutes)
//
// 下游处理器通过 xtenant.FromContext、xtenant.Locals、xroute.Routes
// 和 xlog.RequestID 读取请求上下文。
//
// 每个请求恰好记录一次租户统计（Metrics.Begin/Observe），
// 状态码经 httpsnoop 捕获，未显式写出时为 200，handler panic 时为 500。
// 统计键在 handler 返回后计算，默认取 chi 路由模板，
// 未匹配任何路由的请求合并到 "METHOD <unmatched>"，见 DefaultRouteKey。
// 未匹配租户的请求直接响应 404，不进入统计。
package xdispatch
