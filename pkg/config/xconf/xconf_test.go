package xconf_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xsite/pkg/config/xconf"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const siteYAML = `
server:
  addr: ":9090"
  shutdown_timeout: 3s
  status_prefix: /_status
log:
  level: debug
  format: json
process:
  redis_url: redis://localhost:6379/0
tenant_defaults:
  cache_max_cost: 1024
  site_footer: default footer
tenants:
  - id: 1
    node: 2
    domain: a.example, WWW.a.example
    site_title: A
  - id: 2
    domain:
      - b.example
      - shop.b.example
    cache_max_cost: 4096
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// =============================================================================
// 加载
// =============================================================================

func TestNew(t *testing.T) {
	path := writeFile(t, "site.yml", siteYAML)
	cfg, err := xconf.New(path)
	require.NoError(t, err)
	assert.Equal(t, xconf.FormatYAML, cfg.Format())
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, ":9090", cfg.Client().String("server.addr"))
}

func TestNew_Errors(t *testing.T) {
	_, err := xconf.New("")
	assert.ErrorIs(t, err, xconf.ErrEmptyPath)

	_, err = xconf.New("site.toml")
	assert.ErrorIs(t, err, xconf.ErrUnsupportedFormat)

	_, err = xconf.New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, xconf.ErrLoadFailed)

	_, err = xconf.New(writeFile(t, "bad.json", "{not json"))
	assert.ErrorIs(t, err, xconf.ErrParseFailed)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte(`{"server":{"addr":":1"}}`), xconf.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, ":1", cfg.Client().String("server.addr"))
	assert.Empty(t, cfg.Path())
	assert.ErrorIs(t, cfg.Reload(), xconf.ErrNotReloadable)

	empty, err := xconf.NewFromBytes(nil, xconf.FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())

	_, err = xconf.NewFromBytes([]byte("a: 1"), "toml")
	assert.ErrorIs(t, err, xconf.ErrUnsupportedFormat)
}

func TestUnmarshal(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte("server:\n  addr: ':1'\n  shutdown_timeout: 2s\n  close_timeout: 1500\n"), xconf.FormatYAML)
	require.NoError(t, err)

	var s xconf.ServerConfig
	require.NoError(t, cfg.Unmarshal("server", &s))
	assert.Equal(t, ":1", s.Addr)
	assert.Equal(t, 2*time.Second, s.ShutdownTimeout)
	assert.Equal(t, time.Duration(1500), s.CloseTimeout)

	var bad struct {
		Addr int `koanf:"addr"`
	}
	assert.ErrorIs(t, cfg.Unmarshal("server", &bad), xconf.ErrUnmarshalFailed)
}

// =============================================================================
// 站点
// =============================================================================

func TestLoadSite(t *testing.T) {
	site, _, err := xconf.LoadSiteFile(writeFile(t, "site.yaml", siteYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", site.Server.Addr)
	assert.Equal(t, 3*time.Second, site.Server.ShutdownTimeout)
	assert.Equal(t, "/_status", site.Server.StatusPrefix)
	assert.Equal(t, "debug", site.Log.Level)
	assert.Equal(t, "json", site.Log.Format)
	assert.Equal(t, "redis://localhost:6379/0", site.Process["redis_url"])

	require.Len(t, site.Tenants, 2)
	a, b := site.Tenants[0], site.Tenants[1]
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, a.Node)
	assert.Equal(t, "a.example, WWW.a.example", a.Domain)
	assert.Equal(t, "A", a.Settings["site_title"])
	assert.Equal(t, "default footer", a.Settings["site_footer"])
	assert.EqualValues(t, 1024, a.Settings["cache_max_cost"])

	assert.Equal(t, "b.example,shop.b.example", b.Domain)
	assert.EqualValues(t, 4096, b.Settings["cache_max_cost"], "租户配置优先于 tenant_defaults")

	dir, err := xtenant.NewDirectory(site.Tenants)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example", "b.example", "shop.b.example", "www.a.example"}, dir.Domains())
}

func TestLoadSite_Defaults(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte(`{"tenants":[{"id":5,"domain":"x.test"}]}`), xconf.FormatJSON)
	require.NoError(t, err)

	site, err := xconf.LoadSite(cfg)
	require.NoError(t, err)
	assert.Equal(t, xconf.DefaultAddr, site.Server.Addr)
	assert.Equal(t, xconf.DefaultShutdownTimeout, site.Server.ShutdownTimeout)
	assert.Equal(t, xconf.DefaultLogLevel, site.Log.Level)
	assert.Empty(t, site.Process)
	require.Len(t, site.Tenants, 1)
	assert.Equal(t, 5, site.Tenants[0].ID)
}

func TestLoadSite_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		format xconf.Format
		data   string
	}{
		{"没有租户", xconf.FormatJSON, `{"server":{"addr":":1"}}`},
		{"缺少 id", xconf.FormatJSON, `{"tenants":[{"domain":"a.test"}]}`},
		{"id 为 null", xconf.FormatJSON, `{"tenants":[{"id":null,"domain":"a.test"}]}`},
		{"id 非数字", xconf.FormatYAML, "tenants:\n  - id: abc\n    domain: a.test\n"},
		{"id 为小数", xconf.FormatJSON, `{"tenants":[{"id":1.5,"domain":"a.test"}]}`},
		{"id 为布尔", xconf.FormatYAML, "tenants:\n  - id: true\n    domain: a.test\n"},
		{"id 为列表", xconf.FormatJSON, `{"tenants":[{"id":[1],"domain":"a.test"}]}`},
		{"node 非数字", xconf.FormatYAML, "tenants:\n  - id: 1\n    node: primary\n    domain: a.test\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := xconf.NewFromBytes([]byte(tt.data), tt.format)
			require.NoError(t, err)
			_, err = xconf.LoadSite(cfg)
			assert.ErrorIs(t, err, xconf.ErrInvalidSite)
		})
	}
}

func TestLoadSite_IntegerIDs(t *testing.T) {
	tests := []struct {
		name   string
		format xconf.Format
		data   string
		id     int
		node   int
	}{
		{"yaml 整数", xconf.FormatYAML, "tenants:\n  - id: 7\n    node: 2\n    domain: a.test\n", 7, 2},
		{"json 数字", xconf.FormatJSON, `{"tenants":[{"id":7,"node":2,"domain":"a.test"}]}`, 7, 2},
		{"十进制字符串", xconf.FormatYAML, "tenants:\n  - id: \"7\"\n    domain: a.test\n", 7, 0},
		{"json 整数值浮点", xconf.FormatJSON, `{"tenants":[{"id":7.0,"domain":"a.test"}]}`, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := xconf.NewFromBytes([]byte(tt.data), tt.format)
			require.NoError(t, err)
			site, err := xconf.LoadSite(cfg)
			require.NoError(t, err)
			require.Len(t, site.Tenants, 1)
			assert.Equal(t, tt.id, site.Tenants[0].ID)
			assert.Equal(t, tt.node, site.Tenants[0].Node)
		})
	}
}

// =============================================================================
// 重载与监视
// =============================================================================

func TestReload(t *testing.T) {
	path := writeFile(t, "site.yaml", "log:\n  level: info\n")
	cfg, err := xconf.New(path)
	require.NoError(t, err)
	old := cfg.Client()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, "warn", cfg.Client().String("log.level"))
	assert.Equal(t, "info", old.String("log.level"), "旧快照保持不变")

	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), xconf.ErrParseFailed)
	assert.Equal(t, "warn", cfg.Client().String("log.level"), "解析失败保留旧配置")
}

func TestWatch(t *testing.T) {
	path := writeFile(t, "site.yaml", "log:\n  level: info\n")
	cfg, err := xconf.New(path)
	require.NoError(t, err)

	reloaded := make(chan string, 8)
	w, err := xconf.Watch(cfg, func(c *xconf.Config, err error) {
		if err == nil {
			reloaded <- c.Client().String("log.level")
		}
	}, xconf.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	select {
	case level := <-reloaded:
		assert.Equal(t, "error", level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatch_NotReloadable(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte("a: 1"), xconf.FormatYAML)
	require.NoError(t, err)
	_, err = xconf.Watch(cfg, nil)
	assert.ErrorIs(t, err, xconf.ErrNotReloadable)

	_, err = xconf.Watch(nil, nil)
	assert.ErrorIs(t, err, xconf.ErrNotReloadable)
}
