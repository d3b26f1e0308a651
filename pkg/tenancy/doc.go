// Package tenancy 提供多租户请求服务的核心子包。
//
// 子包列表：
//   - xtenant: 租户目录、租户配置与请求 context
//   - xbind: 为进程和租户创建、连接并登记服务
//   - xroute: 汇总各来源的路由并挂载到路由器
//   - xdispatch: 按 Host 解析租户并记录请求统计
//
// 服务的释放由 lifecycle/xrun 的 Coordinator 统一负责。
package tenancy
