package xtenant

import (
	"slices"
	"strconv"
	"strings"
)

// SiteLocalPrefix 会被暴露给响应上下文的配置 key 前缀。
//
// 只有显式以 site_ 开头的条目才会进入响应上下文，
// 数据库地址等其余配置永远不会泄漏到模板或响应中。
const SiteLocalPrefix = "site_"

// Definition 单个租户的启动期定义。
type Definition struct {
	// ID 租户 ID，目录内唯一。
	ID int
	// Node 部署/分片提示。
	Node int
	// Domain 逗号分隔的主机名列表。
	Domain string
	// Settings 该租户完整的原始配置。
	Settings map[string]any
}

// Tenant 一个逻辑站点。
//
// 由 Directory 在启动时构造，进程生命周期内不会被单独销毁。
// ID、Node、Domains、Config 构造后不可变；Services/Models 仅在注册阶段写入；
// Metrics 随请求完成持续更新。
type Tenant struct {
	id      int
	node    int
	domains []string
	config  Config
	locals  map[string]any

	services *Registry
	models   *Registry
	metrics  Metrics
}

func newTenant(def Definition, domains []string) *Tenant {
	cfg := NewConfig(def.Settings)
	return &Tenant{
		id:       def.ID,
		node:     def.Node,
		domains:  domains,
		config:   cfg,
		locals:   cfg.WithPrefix(SiteLocalPrefix),
		services: NewRegistry(),
		models:   NewRegistry(),
	}
}

// ID 返回租户 ID。
func (t *Tenant) ID() int { return t.id }

// Node 返回部署/分片提示。
func (t *Tenant) Node() int { return t.node }

// Domains 返回租户声明的主机名（小写，按声明顺序）。
func (t *Tenant) Domains() []string { return slices.Clone(t.domains) }

// Config 返回租户的只读配置。
func (t *Tenant) Config() Config { return t.config }

// Services 返回租户的服务注册表。
func (t *Tenant) Services() *Registry { return t.services }

// Models 返回租户的模型注册表。
func (t *Tenant) Models() *Registry { return t.models }

// Metrics 返回租户的请求统计。
func (t *Tenant) Metrics() *Metrics { return &t.metrics }

// SiteLocals 返回 site_ 前缀配置的新副本，调用方可自由修改。
func (t *Tenant) SiteLocals() map[string]any {
	return cloneMap(t.locals)
}

// String 返回便于日志输出的标识。
func (t *Tenant) String() string {
	return "tenant(" + strconv.Itoa(t.id) + ":" + strings.Join(t.domains, ",") + ")"
}

// ParseDomains 拆分逗号分隔的域名列表。
//
// 每一项去除首尾空白并转小写，丢弃空项，同一列表内的重复项只保留第一次出现。
func ParseDomains(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		d := NormalizeHost(p)
		if d == "" || slices.Contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// NormalizeHost 将主机名规范化为查找键：去除首尾空白并转小写。
func NormalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
