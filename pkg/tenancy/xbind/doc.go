// Package xbind 将命名服务与模型绑定到进程和每个租户。
//
// # 注册协议
//
// 每次 Register / RegisterModel 按以下顺序执行：
//
//  1. 参数校验：target 必须是 process / tenants / both，key 非空，
//     否则返回包装了 xtenant.ErrConfig 的错误；Teardown 已不处于 Running 时
//     返回 xrun.ErrShuttingDown，不调用 factory
//  2. 重复检查：任何所有者已有同名条目时返回 *DuplicateServiceError，不创建任何实例
//  3. 创建：进程实例直接创建；租户实例通过 errgroup 并发创建并等待全部完成
//  4. 登记关闭项：每个已创建且可关闭的实例压入 Teardown（通常是 *xrun.Coordinator）
//  5. Connect：实现了 Connector 的实例按租户顺序依次连接
//
// 租户创建不是原子的：部分租户失败时调用返回错误，但成功创建的实例保留在注册表中，
// 并已登记关闭项，启动失败后的 Shutdown 仍能释放它们。
//
// # 能力接口
//
// Binder 只依赖能力，不依赖具体类型：
//
//   - Connector：Connect(ctx) error
//   - Closer：Close(ctx) error；也接受 io.Closer；WithClose 可显式覆盖
//
// # 快速开始
//
//	coord := xrun.NewCoordinator()
//	b := xbind.New(dir, processConfig, coord, xbind.WithLogger(logger))
//
//	err := b.Register(ctx, xbind.TargetTenants, "cache", xcache.Factory())
//	err = b.RegisterModel(ctx, "pages", func(ctx context.Context, t *xtenant.Tenant) (any, error) {
//	    return newPages(t), nil
//	})
//
//	// 处理器中
//	c, ok := xtenant.Lookup[*xcache.Cache](t.Services(), "cache")
package xbind
