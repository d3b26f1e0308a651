// Package xlog 基于 log/slog 构建进程日志。
//
// # 构建
//
//	logger, levelVar, cleanup, err := xlog.New().
//		SetLevelString("info").
//		SetFormat("json").
//		SetRotation("/var/log/xsite/xsite.log", xlog.WithMaxSize(100)).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//	slog.SetDefault(logger)
//
// levelVar 可在运行时调整级别（例如配置文件热更新时调用 SetLevelString）。
//
// # Context 注入
//
// 默认启用 EnrichHandler：使用 *Context 系列方法记录日志时，
// 自动附加 request_id（WithRequestID）、tenant_id 与 tenant_node（xtenant.WithTenant）。
//
//	logger.InfoContext(r.Context(), "page rendered", xlog.Path(r.URL.Path))
//	// ... request_id=4f1c... tenant_id=3 tenant_node=1
//
// # 文件轮转
//
// SetRotation 使用 lumberjack 按大小轮转，默认 100MB、保留 7 个、30 天、gzip 压缩。
package xlog
