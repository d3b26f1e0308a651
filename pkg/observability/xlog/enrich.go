package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

var (
	// ErrNilHandler NewEnrichHandler 的 base handler 为 nil。
	ErrNilHandler = errors.New("xlog: base handler is nil")
	// ErrNilLevelVar SetLevelString 的 levelVar 为 nil。
	ErrNilLevelVar = errors.New("xlog: nil level var")
)

// EnrichHandler 从 context 提取请求与租户信息并注入日志。
//
// 装饰已有 slog.Handler，在 Handle 时追加：
//   - request_id：WithRequestID 注入的请求 ID
//   - tenant_id / tenant_node：xtenant.WithTenant 注入的租户
//
// context 中缺少的字段直接跳过。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler。
//
// 对 logger 调用 WithGroup 后，注入的字段也会归入该 group。
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler。
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// maxEnrichAttrs request_id + tenant_id + tenant_node
const maxEnrichAttrs = 3

// Handle 注入 context 字段后交给底层 handler。
//
// 按 slog 契约，修改前先 Clone record。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		var buf [maxEnrichAttrs]slog.Attr
		attrs := buf[:0]
		if id := RequestID(ctx); id != "" {
			attrs = append(attrs, slog.String(KeyRequestID, id))
		}
		if t, ok := xtenant.FromContext(ctx); ok {
			attrs = append(attrs,
				slog.Int(KeyTenantID, t.ID()),
				slog.Int(KeyTenantNode, t.Node()),
			)
		}
		if len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler。
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler。
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
