package xtenant

import (
	"sync"
	"time"
)

// Metrics 单个租户的请求统计。
//
// 同一租户的所有并发请求共享一个 Metrics，所有读写都在 mu 下完成：
// 计数递增与路由条目的惰性创建都是原子的，静止时
// 所有路由 count 之和恒等于 totalRequests。
type Metrics struct {
	mu            sync.Mutex
	startTime     time.Time
	totalRequests uint64
	totalErrors   uint64
	routes        map[string]*routeStat
}

type routeStat struct {
	count     uint64
	totalTime time.Duration
}

// RouteSnapshot 单条路由的统计快照。
type RouteSnapshot struct {
	Count       uint64  `json:"count"`
	TotalTimeMs float64 `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
}

// MetricsSnapshot 租户统计的一致性快照。
type MetricsSnapshot struct {
	StartTime     time.Time                `json:"startTime"`
	TotalRequests uint64                   `json:"totalRequests"`
	TotalErrors   uint64                   `json:"totalErrors"`
	Routes        map[string]RouteSnapshot `json:"routes"`
}

// Begin 在请求开始时调用，首次使用时设置 startTime。
//
// 路由条目由 Observe 在请求完成时创建，此时路由键已经确定。
func (m *Metrics) Begin(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initLocked(now)
}

// Observe 在请求完成时调用，记录耗时与最终状态码。
//
// routeKey 对应的条目不存在时创建，并发的首次命中只会创建一个条目。
// status >= 400 计入 totalErrors。
func (m *Metrics) Observe(routeKey string, elapsed time.Duration, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initLocked(time.Now())
	rs := m.routeLocked(routeKey)
	rs.count++
	rs.totalTime += elapsed
	m.totalRequests++
	if status >= 400 {
		m.totalErrors++
	}
}

// Started 返回统计是否已初始化（至少有一次 Begin 或 Observe）。
func (m *Metrics) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routes != nil
}

// Snapshot 返回当前统计的副本。
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		StartTime:     m.startTime,
		TotalRequests: m.totalRequests,
		TotalErrors:   m.totalErrors,
		Routes:        make(map[string]RouteSnapshot, len(m.routes)),
	}
	for k, rs := range m.routes {
		total := float64(rs.totalTime) / float64(time.Millisecond)
		var avg float64
		if rs.count > 0 {
			avg = total / float64(rs.count)
		}
		snap.Routes[k] = RouteSnapshot{
			Count:       rs.count,
			TotalTimeMs: total,
			AvgTimeMs:   avg,
		}
	}
	return snap
}

func (m *Metrics) initLocked(now time.Time) {
	if m.routes != nil {
		return
	}
	m.startTime = now
	m.routes = make(map[string]*routeStat)
}

func (m *Metrics) routeLocked(key string) *routeStat {
	rs, ok := m.routes[key]
	if !ok {
		rs = &routeStat{}
		m.routes[key] = rs
	}
	return rs
}
