package xbind

import (
	"errors"
	"fmt"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// =============================================================================
// 哨兵错误
// =============================================================================

var (
	// ErrInvalidTarget 注册目标不是 process / tenants / both 之一。
	ErrInvalidTarget = fmt.Errorf("xbind: invalid target: %w", xtenant.ErrConfig)

	// ErrEmptyKey 服务 key 为空。
	ErrEmptyKey = fmt.Errorf("xbind: empty service key: %w", xtenant.ErrConfig)

	// ErrEmptyModelName 模型名称为空。
	ErrEmptyModelName = fmt.Errorf("xbind: empty model name: %w", xtenant.ErrConfig)

	// ErrNilFactory 工厂函数为 nil。
	ErrNilFactory = fmt.Errorf("xbind: nil factory: %w", xtenant.ErrConfig)

	// ErrDuplicateService 同一所有者已注册了同名服务或模型。
	ErrDuplicateService = errors.New("xbind: duplicate service")

	// ErrServiceConnect 服务的 Connect 失败。
	ErrServiceConnect = errors.New("xbind: service connect failed")
)

// =============================================================================
// 类型化错误
// =============================================================================

// DuplicateServiceError 描述一次重复注册。
type DuplicateServiceError struct {
	// Kind "service" 或 "model"。
	Kind string
	Key  string
	// Owner "process" 或 "tenant <id>"。
	Owner string
}

func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("xbind: duplicate %s %q on %s", e.Kind, e.Key, e.Owner)
}

// Is 支持 errors.Is(err, ErrDuplicateService)。
func (e *DuplicateServiceError) Is(target error) bool {
	return target == ErrDuplicateService
}

// ServiceConnectError 描述一次失败的 Connect。
type ServiceConnectError struct {
	Key   string
	Owner string
	Err   error
}

func (e *ServiceConnectError) Error() string {
	return fmt.Sprintf("xbind: connect %q on %s: %v", e.Key, e.Owner, e.Err)
}

// Is 支持 errors.Is(err, ErrServiceConnect)。
func (e *ServiceConnectError) Is(target error) bool {
	return target == ErrServiceConnect
}

// Unwrap 返回底层错误。
func (e *ServiceConnectError) Unwrap() error {
	return e.Err
}
