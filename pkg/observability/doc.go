// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转与 context 注入
//   - xmetrics: 统一观测接口（指标、追踪），默认实现基于 OpenTelemetry
//
// 日志从 context 中提取租户与请求 ID，级别可在运行时调整。
package observability
