package xmongo

import "errors"

var (
	// ErrNilClient 传入的客户端为 nil。
	ErrNilClient = errors.New("xmongo: nil client")

	// ErrClosed 客户端已关闭。
	ErrClosed = errors.New("xmongo: client closed")

	// ErrEmptyDatabase 数据库名为空。
	ErrEmptyDatabase = errors.New("xmongo: empty database name")

	// ErrMissingSetting 工厂所需的配置项缺失。
	ErrMissingSetting = errors.New("xmongo: missing setting")

	// ErrNilCollection 传入的集合为 nil。
	ErrNilCollection = errors.New("xmongo: nil collection")

	// ErrInvalidPage 页码必须 >= 1。
	ErrInvalidPage = errors.New("xmongo: invalid page number, must be >= 1")

	// ErrInvalidPageSize 每页大小必须 >= 1。
	ErrInvalidPageSize = errors.New("xmongo: invalid page size, must be >= 1")

	// ErrPageOverflow 分页偏移量溢出。
	ErrPageOverflow = errors.New("xmongo: page offset overflow")
)
