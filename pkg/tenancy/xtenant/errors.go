package xtenant

import (
	"errors"
	"fmt"
)

// =============================================================================
// 哨兵错误
// =============================================================================

var (
	// ErrConfig 租户或注册输入不合法（空域名集合、重复租户 ID 等）。
	// 属于启动期致命错误，进程不应开始接收流量。
	ErrConfig = errors.New("xtenant: invalid config")

	// ErrDuplicateDomain 同一域名被声明给两个不同的租户。
	ErrDuplicateDomain = errors.New("xtenant: duplicate domain")

	// ErrTenantNotFound 请求的主机名没有匹配的租户。
	ErrTenantNotFound = errors.New("xtenant: tenant not found")

	// ErrDuplicateName Registry 中已存在同名条目。
	ErrDuplicateName = errors.New("xtenant: duplicate registry name")

	// ErrEmptyName Registry 条目名称为空。
	ErrEmptyName = errors.New("xtenant: empty registry name")

	// ErrNilTenant context 注入时传入了 nil 租户。
	ErrNilTenant = errors.New("xtenant: nil tenant")

	// ErrMissingTenant context 中没有租户。
	ErrMissingTenant = errors.New("xtenant: missing tenant in context")
)

// =============================================================================
// 类型化错误
// =============================================================================

// ConfigError 描述一条不合法的租户定义。
type ConfigError struct {
	// TenantID 出错的租户 ID（定义顺序中的 ID）。
	TenantID int
	// Field 出错的字段名。
	Field string
	// Reason 人类可读的原因。
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("xtenant: invalid config for tenant %d: %s: %s", e.TenantID, e.Field, e.Reason)
}

// Is 支持 errors.Is(err, ErrConfig)。
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// DuplicateDomainError 描述一次跨租户的域名冲突。
type DuplicateDomainError struct {
	Domain string
	// Owner 先声明该域名的租户 ID。
	Owner int
	// TenantID 后声明、导致冲突的租户 ID。
	TenantID int
}

func (e *DuplicateDomainError) Error() string {
	return fmt.Sprintf("xtenant: duplicate domain %q: claimed by tenant %d and tenant %d",
		e.Domain, e.Owner, e.TenantID)
}

// Is 支持 errors.Is(err, ErrDuplicateDomain)。
func (e *DuplicateDomainError) Is(target error) bool {
	return target == ErrDuplicateDomain
}

// NotFoundError 表示主机名未匹配任何租户，携带原始请求主机名。
type NotFoundError struct {
	Host string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("xtenant: no tenant for host %q", e.Host)
}

// Is 支持 errors.Is(err, ErrTenantNotFound)。
func (e *NotFoundError) Is(target error) bool {
	return target == ErrTenantNotFound
}
