// Package xcache 提供可注册到 xbind 的缓存服务。
//
// # 组件
//
//   - Memory：基于 ristretto 的进程内缓存，通常每个租户一个实例
//   - Redis：基于 go-redis 的共享缓存，按租户加 key 前缀，附带轻量锁
//
// 两者都提供 GetOrLoad：未命中时回源，同一 key 的并发回源经 singleflight 合并。
//
// # 注册
//
//	binder.Register(ctx, xbind.TargetTenants, "cache", xcache.MemoryFactory())
//	binder.Register(ctx, xbind.TargetBoth, "redis", xcache.RedisFactory())
//
// Redis 实现 Connect（PING），注册时即校验连通性；
// 两者都实现 Close(ctx)，由关停协调器按注册逆序关闭。
//
// 请求期通过租户注册表取用：
//
//	cache, _ := xtenant.Lookup[*xcache.Memory](tenant.Services(), "cache")
package xcache
