package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 表示因收到系统信号而终止。
	// 使用 errors.Is(err, ErrSignal) 判断是否为信号错误。
	ErrSignal = errors.New("received signal")

	// ErrNilFunc 传给 Group.Go 的服务函数为 nil。
	ErrNilFunc = errors.New("xrun: nil service func")

	// ErrNilServer 传给 HTTPServer 的服务器为 nil。
	ErrNilServer = errors.New("xrun: nil http server")

	// ErrShuttingDown Coordinator 已离开 Running 状态，不再接受新的注册。
	ErrShuttingDown = errors.New("xrun: coordinator is shutting down")

	// ErrNilClose 注册项缺少关闭函数。
	ErrNilClose = errors.New("xrun: registration has nil close func")

	// ErrClosePanic 关闭函数发生 panic，已被恢复。
	ErrClosePanic = errors.New("xrun: close panicked")
)

// SignalError 包含触发终止的具体信号信息。
//
// Run/RunWithOptions 在收到系统信号时返回此错误：
//
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    fmt.Printf("received signal: %v\n", sigErr.Signal)
//	}
type SignalError struct {
	Signal os.Signal
}

// Error 实现 error 接口。
func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Is 支持 errors.Is(err, ErrSignal) 判断。
func (e *SignalError) Is(target error) bool {
	return target == ErrSignal
}

// CloseError 记录单个注册项在关闭时的失败。
//
// Shutdown 不会因单个失败而中止，所有 CloseError 通过 errors.Join 汇总返回。
type CloseError struct {
	// Name 注册项名称，用于定位失败的服务。
	Name string
	// Err 关闭函数返回的错误，或包装了 ErrClosePanic 的 panic 信息。
	Err error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("xrun: close %q: %v", e.Name, e.Err)
}

// Unwrap 返回底层错误。
func (e *CloseError) Unwrap() error {
	return e.Err
}
