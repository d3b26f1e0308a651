// Package xconf 基于 koanf 加载站点配置。
//
// # 加载
//
//	cfg, err := xconf.New("/etc/xsite/site.yaml")
//	site, err := xconf.LoadSite(cfg)
//
// 支持 YAML（.yaml/.yml）与 JSON（.json），NewFromBytes 需显式指定格式。
// Client 暴露底层 koanf 实例，Unmarshal 使用 koanf 标签并允许弱类型转换。
//
// # 站点结构
//
// LoadSite 读取 server、log、process、tenant_defaults、tenants 五个顶层键，
// 构建 xtenant.Definition 列表；租户目录的校验（空域名、重复域名）由 xtenant 完成。
//
// # 热重载
//
// Watch 基于 fsnotify 监视配置文件目录，带防抖。
// 租户集合在进程生命周期内不可变，热重载只用于日志级别等进程参数。
package xconf
