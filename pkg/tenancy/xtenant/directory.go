package xtenant

import (
	"maps"
	"slices"
)

// Directory 租户目录：权威租户列表和主机名查找表。
//
// NewDirectory 一次性构建，之后只读，
// Resolve/All/Lookup 可被任意数量的 goroutine 并发调用，无需加锁。
type Directory struct {
	tenants []*Tenant
	byHost  map[string]*Tenant
	byID    map[int]*Tenant
}

// NewDirectory 根据租户定义构建目录。
//
// 每个定义的 Domain 按逗号拆分、去空白、转小写并丢弃空项：
//   - 拆分后为空返回 *ConfigError（errors.Is(err, ErrConfig)）
//   - 租户 ID 重复返回 *ConfigError
//   - 同一域名映射到两个不同租户返回 *DuplicateDomainError
//
// 任一错误都表示配置不可用，调用方应中止启动。
func NewDirectory(defs []Definition) (*Directory, error) {
	d := &Directory{
		tenants: make([]*Tenant, 0, len(defs)),
		byHost:  make(map[string]*Tenant),
		byID:    make(map[int]*Tenant, len(defs)),
	}

	for _, def := range defs {
		if _, ok := d.byID[def.ID]; ok {
			return nil, &ConfigError{TenantID: def.ID, Field: "id", Reason: "duplicate tenant id"}
		}

		domains := ParseDomains(def.Domain)
		if len(domains) == 0 {
			return nil, &ConfigError{TenantID: def.ID, Field: "domain", Reason: "no domains declared"}
		}

		t := newTenant(def, domains)
		for _, host := range domains {
			if owner, ok := d.byHost[host]; ok && owner.id != t.id {
				return nil, &DuplicateDomainError{Domain: host, Owner: owner.id, TenantID: t.id}
			}
			d.byHost[host] = t
		}

		d.byID[t.id] = t
		d.tenants = append(d.tenants, t)
	}

	return d, nil
}

// Resolve 返回声明了该主机名的租户。
//
// 主机名大小写不敏感、忽略首尾空白，精确匹配（不支持通配或子域名）。
// 未匹配时返回 *NotFoundError（errors.Is(err, ErrTenantNotFound)），其中 Host 为原始输入。
func (d *Directory) Resolve(host string) (*Tenant, error) {
	if t, ok := d.byHost[NormalizeHost(host)]; ok {
		return t, nil
	}
	return nil, &NotFoundError{Host: host}
}

// All 按定义顺序返回全部租户。
func (d *Directory) All() []*Tenant {
	return slices.Clone(d.tenants)
}

// Lookup 按租户 ID 查找。
func (d *Directory) Lookup(id int) (*Tenant, bool) {
	t, ok := d.byID[id]
	return t, ok
}

// Len 返回租户数量。
func (d *Directory) Len() int {
	return len(d.tenants)
}

// Domains 返回全部已声明的主机名（排序后）。
func (d *Directory) Domains() []string {
	return slices.Sorted(maps.Keys(d.byHost))
}
