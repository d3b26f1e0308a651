// Package xroute 将多个路由来源汇总为一张扁平路由表，同时挂载到传输层。
//
// 路由来源是一个能力而非具体类型：任何实现了 Routes() []Route 的对象都可以挂载，
// 静态表可用 Table，动态生成可用 SourceFunc。
//
//	r := chi.NewRouter()
//	agg := xroute.New(r)
//	err := agg.Mount("/api", xroute.Table{
//	    {Method: "GET", Path: "/users", Handler: listUsers},
//	    {Method: "POST", Path: "/users", Handler: createUser},
//	})
//	// agg.List(): GET /api/users, POST /api/users
//
// 只支持 GET、POST、PUT、PATCH、DELETE；方法大小写不敏感，挂载时统一转为大写。
// 同一次 Mount 中任一路由不合法时整批拒绝。
//
// 路由表会在每个请求中注入 context（见 WithRoutes / Routes），
// 处理器可据此生成导航或做权限判断。
package xroute
