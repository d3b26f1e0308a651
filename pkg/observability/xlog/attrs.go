package xlog

import (
	"log/slog"
	"time"
)

// 日志中常用的标准字段名。
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyRequestID  = "request_id"
	KeyTenantID   = "tenant_id"
	KeyTenantNode = "tenant_node"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyRoute      = "route"
	KeyHost       = "host"
	KeyStatusCode = "status_code"
	KeyComponent  = "component"
)

// Err 创建错误属性。err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性。
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Component 创建组件名属性。
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Method 创建 HTTP 方法属性。
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path 创建请求路径属性。
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Route 创建路由键属性。
func Route(key string) slog.Attr {
	return slog.String(KeyRoute, key)
}

// Host 创建主机名属性。
func Host(h string) slog.Attr {
	return slog.String(KeyHost, h)
}

// StatusCode 创建 HTTP 状态码属性。
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}
