package xlog

import "context"

type requestIDKey struct{}

// WithRequestID 将请求 ID 注入 context，EnrichHandler 会把它写入每条日志。
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 返回 context 中的请求 ID，不存在时返回空字符串。
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
