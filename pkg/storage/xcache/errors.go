package xcache

import "errors"

var (
	// ErrNilClient 传入的底层客户端为 nil。
	ErrNilClient = errors.New("xcache: nil client")

	// ErrClosed 缓存已关闭。
	ErrClosed = errors.New("xcache: closed")

	// ErrEmptyKey key 为空字符串。
	ErrEmptyKey = errors.New("xcache: empty key")

	// ErrNilLoader 回源函数为 nil。
	ErrNilLoader = errors.New("xcache: nil load function")

	// ErrLoadPanic 回源函数发生 panic，已转换为错误。
	ErrLoadPanic = errors.New("xcache: load function panicked")

	// ErrMissingSetting 工厂所需的配置项缺失。
	ErrMissingSetting = errors.New("xcache: missing setting")

	// ErrLockFailed 获取锁失败。
	ErrLockFailed = errors.New("xcache: failed to acquire lock")

	// ErrLockExpired 锁已过期或被其他持有者抢走。
	ErrLockExpired = errors.New("xcache: lock expired or stolen")

	// ErrInvalidLockTTL 锁的 TTL 必须为正数。
	ErrInvalidLockTTL = errors.New("xcache: lock TTL must be positive")
)
