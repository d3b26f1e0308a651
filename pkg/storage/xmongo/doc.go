// Package xmongo 提供可注册到 xbind 的 MongoDB 数据库服务。
//
// 每个 DB 绑定一个数据库，通常每个租户一个实例：
//
//	binder.Register(ctx, xbind.TargetTenants, "db", xmongo.Factory())
//
//	db, _ := xtenant.Lookup[*xmongo.DB](tenant.Services(), "db")
//	page, err := db.FindPage(ctx, "articles", bson.D{{"published", true}},
//	    xmongo.PageOptions{Page: 1, PageSize: 20, Sort: bson.D{{"_id", -1}}})
//
// Connect 在注册时以 Ping 校验连通性，Close 由关停协调器调用。
// 超过 WithSlowQueryThreshold 的查询记录 warn 日志并计入 Stats。
package xmongo
