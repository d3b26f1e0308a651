// Package xmetrics 提供统一的请求观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr，默认实现基于 OpenTelemetry；
// 未配置时使用 NoopObserver。
//
//	obs, _ := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xdispatch",
//		Operation: "GET /users",
//		Tenant:    "3",
//		Kind:      xmetrics.KindServer,
//	})
//	defer span.End(xmetrics.Result{Status: xmetrics.StatusFromHTTP(code)})
//
// # 指标
//
//   - xsite.request.total：计数器
//   - xsite.request.duration：直方图，单位秒
//   - xsite.request.active：进行中的 KindServer 请求数
//
// 属性：component / operation / status，以及设置了 Tenant 时的 tenant_id。
// xsite.request.active 只带 component 与 tenant_id。
package xmetrics
