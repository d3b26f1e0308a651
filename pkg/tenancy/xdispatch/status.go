package xdispatch

import (
	"encoding/json"
	"net/http"

	"github.com/omeyang/xsite/pkg/tenancy/xroute"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// StatusReport GET /metrics 的响应体。
type StatusReport struct {
	TenantID int                     `json:"tenantId"`
	Node     int                     `json:"node"`
	Domains  []string                `json:"domains"`
	Metrics  xtenant.MetricsSnapshot `json:"metrics"`
}

// RouteInfo GET /routes 响应中的一条路由。
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// StatusRoutes 返回当前租户的状态路由，需挂在 Dispatcher 之后。
//
//	agg.Mount("/_status", xdispatch.StatusRoutes())
//
// 包含两条路由：
//   - GET /metrics：当前租户的统计快照
//   - GET /routes：扁平路由表（方法与路径）
func StatusRoutes() xroute.Source {
	return xroute.Table{
		{Method: http.MethodGet, Path: "/metrics", Handler: http.HandlerFunc(serveMetrics)},
		{Method: http.MethodGet, Path: "/routes", Handler: http.HandlerFunc(serveRoutes)},
	}
}

func serveMetrics(w http.ResponseWriter, r *http.Request) {
	t, err := xtenant.RequireTenant(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, StatusReport{
		TenantID: t.ID(),
		Node:     t.Node(),
		Domains:  t.Domains(),
		Metrics:  t.Metrics().Snapshot(),
	})
}

func serveRoutes(w http.ResponseWriter, r *http.Request) {
	routes := xroute.Routes(r.Context())
	out := make([]RouteInfo, 0, len(routes))
	for _, rt := range routes {
		out = append(out, RouteInfo{Method: rt.Method, Path: rt.Path})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
