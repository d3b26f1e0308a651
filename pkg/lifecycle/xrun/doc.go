// Package xrun 提供进程生命周期管理：宿主任务的并发运行与服务实例的有序关闭。
//
// # 概述
//
// 包内有两个相互独立的部分：
//
//   - Coordinator：关闭栈。服务实例在启动期依次 Push，Shutdown 时按逆序关闭，
//     每个关闭函数都在独立的失败边界内执行，单个失败不会中止整体关闭。
//   - Group / Run / HTTPServer：基于 [errgroup] 的宿主运行工具，负责信号监听、
//     HTTP 服务器的优雅关闭以及取消原因的传播。
//
// # Coordinator
//
// 状态机只前进不回退：
//
//	Running --Shutdown--> ShuttingDown --全部关闭完成--> Stopped
//
// Running 之外的 Push 返回 ErrShuttingDown；第二次及之后的 Shutdown 立即返回 nil，
// 不会重复关闭任何实例。关闭失败（错误或 panic）包装为 *CloseError，
// 全部失败通过 errors.Join 一并返回。
//
//	coord := xrun.NewCoordinator(xrun.WithLogger(logger))
//	_ = coord.Push(xrun.Registration{Name: "db", Close: db.Close})
//	_ = coord.Push(xrun.Registration{Name: "cache", Close: cache.Close})
//	// cache 先于 db 关闭
//	err := coord.Shutdown(ctx)
//
// Coordinator 不订阅信号，也不退出进程，由宿主决定何时调用 Shutdown。
//
// # 宿主运行
//
//	srv := &http.Server{Addr: ":8080", Handler: h}
//	err := xrun.Run(ctx, xrun.HTTPServer(srv, 10*time.Second))
//	if errors.Is(err, xrun.ErrSignal) {
//	    // SIGINT/SIGTERM 等触发的正常退出
//	}
//	_ = coord.Shutdown(context.Background())
//
// Run 默认监听 DefaultSignals()，可用 WithSignals 自定义，
// 或用 WithoutSignalHandler 关闭。Group.Wait 优先返回 Cancel(cause) 的 cause，
// 没有显式原因的普通取消返回 nil。
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
