// Package storage 提供可绑定到租户的存储服务。
//
// 子包列表：
//   - xcache: Redis 与内存缓存，含 singleflight 加载与分布式锁
//   - xmongo: MongoDB 数据库服务与分页查询
//
// 每个子包都提供 xbind.Factory，实例通过 Connect 建立连接，
// 通过 Close(ctx) 在关停时释放。
package storage
