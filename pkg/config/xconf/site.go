package xconf

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// 站点配置默认值
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Site 进程的完整站点配置。
//
//	server:
//	  addr: ":8080"
//	log:
//	  level: info
//	process:
//	  redis_url: redis://localhost:6379/0
//	tenant_defaults:
//	  cache_max_cost: 1048576
//	tenants:
//	  - id: 1
//	    node: 1
//	    domain: a.example,www.a.example
//	    site_title: A
type Site struct {
	Server ServerConfig
	Log    LogConfig
	// Process 进程级服务使用的配置。
	Process map[string]any
	// Tenants 按声明顺序排列的租户定义。
	Tenants []xtenant.Definition
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr               string        `koanf:"addr"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
	CloseTimeout       time.Duration `koanf:"close_timeout"`
	TrustForwardedHost bool          `koanf:"trust_forwarded_host"`
	// StatusPrefix 状态路由的挂载前缀，为空时不挂载。
	StatusPrefix string `koanf:"status_prefix"`
}

// LogConfig 日志配置。File 为空时输出到 stderr。
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// LoadSite 从配置构建 Site。
//
// tenants 的每一项要求有 id 和 domain；domain 可以是逗号分隔的字符串或字符串列表。
// tenant_defaults 中的条目会浅合并到每个租户，租户自身的同名条目优先。
// 租户的 Settings 保留该项的全部原始内容（含 id、node、domain）。
func LoadSite(cfg *Config) (*Site, error) {
	k := cfg.Client()

	site := &Site{
		Server: ServerConfig{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Log:    LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
	if err := cfg.Unmarshal("server", &site.Server); err != nil {
		return nil, err
	}
	if err := cfg.Unmarshal("log", &site.Log); err != nil {
		return nil, err
	}
	site.Process = k.Cut("process").Raw()

	defaults := k.Cut("tenant_defaults").Raw()
	for i, tk := range k.Slices("tenants") {
		def, err := tenantDefinition(i, tk, defaults)
		if err != nil {
			return nil, err
		}
		site.Tenants = append(site.Tenants, def)
	}
	if len(site.Tenants) == 0 {
		return nil, fmt.Errorf("%w: no tenants declared", ErrInvalidSite)
	}
	return site, nil
}

// LoadSiteFile 读取文件并构建 Site。
func LoadSiteFile(path string) (*Site, *Config, error) {
	cfg, err := New(path)
	if err != nil {
		return nil, nil, err
	}
	site, err := LoadSite(cfg)
	if err != nil {
		return nil, nil, err
	}
	return site, cfg, nil
}

func tenantDefinition(index int, tk *koanf.Koanf, defaults map[string]any) (xtenant.Definition, error) {
	id, ok, err := intField(tk, "id")
	if err != nil {
		return xtenant.Definition{}, fmt.Errorf("%w: tenants[%d]: %w", ErrInvalidSite, index, err)
	}
	if !ok {
		return xtenant.Definition{}, fmt.Errorf("%w: tenants[%d]: missing id", ErrInvalidSite, index)
	}
	node, _, err := intField(tk, "node")
	if err != nil {
		return xtenant.Definition{}, fmt.Errorf("%w: tenants[%d]: %w", ErrInvalidSite, index, err)
	}

	domain := tk.String("domain")
	if list := tk.Strings("domain"); len(list) > 0 {
		domain = strings.Join(list, ",")
	}

	settings := maps.Clone(defaults)
	if settings == nil {
		settings = make(map[string]any)
	}
	maps.Copy(settings, tk.Raw())

	return xtenant.Definition{
		ID:       id,
		Node:     node,
		Domain:   domain,
		Settings: settings,
	}, nil
}

// intField 读取整数字段，接受整数、整数值的浮点数（JSON）和十进制字符串。
// 字段不存在或为 null 时第二个返回值为 false。
func intField(tk *koanf.Koanf, key string) (int, bool, error) {
	switch v := tk.Get(key).(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, false, fmt.Errorf("%s %d out of range", key, v)
		}
		return int(v), true, nil
	case uint64:
		if v > math.MaxInt {
			return 0, false, fmt.Errorf("%s %d out of range", key, v)
		}
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt || v >= math.MaxInt {
			return 0, false, fmt.Errorf("%s %v is not an integer", key, v)
		}
		return int(v), true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, fmt.Errorf("%s %q is not an integer", key, v)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("%s %v is not an integer", key, v)
	}
}
