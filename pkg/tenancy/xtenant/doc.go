// Package xtenant 提供多租户目录：租户构建、主机名解析和租户级可变状态。
//
// # 核心概念
//
//   - Tenant: 一个逻辑站点，由一组主机名标识，拥有独立的配置、服务、模型和统计
//   - Directory: 启动时一次性构建的租户列表与主机名查找表
//   - Config: 不可变的配置视图
//   - Registry: 按名称查找的服务/模型注册表
//   - Metrics: 租户级请求计数（总数、错误数、按 "METHOD PATH" 分组的耗时）
//
// # 快速开始
//
//	dir, err := xtenant.NewDirectory([]xtenant.Definition{
//	    {ID: 1, Domain: "a.example.com, www.a.example.com", Settings: cfgA},
//	    {ID: 2, Domain: "b.example.com", Settings: cfgB},
//	})
//	if err != nil {
//	    return err // ErrConfig / ErrDuplicateDomain：启动期致命
//	}
//
//	t, err := dir.Resolve(" A.Example.com ")
//	if errors.Is(err, xtenant.ErrTenantNotFound) {
//	    // 404
//	}
//
// # 主机名匹配
//
// 域名声明按逗号拆分后 TrimSpace + ToLower，请求主机名做同样的规范化后精确匹配。
// 不支持通配符，也不做子域名回退。一个域名在整个目录中最多属于一个租户，
// 冲突在构建时以 *DuplicateDomainError 报出。
//
// # 响应上下文
//
// 只有 key 以 "site_" 开头的配置会进入请求的响应上下文（见 Tenant.SiteLocals、WithLocals），
// 这是显式白名单，其余配置（例如数据库地址）不会被暴露。
//
// # 线程安全
//
//   - Directory 构建后只读，Resolve 无锁
//   - Registry 内部使用读写锁
//   - Metrics 每个租户一把互斥锁，计数和路由条目的惰性创建都在锁内完成
package xtenant
