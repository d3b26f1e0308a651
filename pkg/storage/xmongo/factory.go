package xmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xsite/pkg/tenancy/xbind"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// 工厂读取的配置项。
const (
	SettingURI      = "mongo_uri"
	SettingDatabase = "mongo_database"
)

// Factory 返回创建 DB 的 xbind.Factory。
//
// 连接串取自 mongo_uri，数据库名取自 mongo_database，任一缺失返回 ErrMissingSetting。
// mongo.Connect 不做网络 IO，连通性由注册时的 Connect（Ping）校验。
//
//	binder.Register(ctx, xbind.TargetTenants, "db", xmongo.Factory(),
//	    xbind.WithConnectRetry(3, time.Second))
func Factory(opts ...Option) xbind.Factory {
	return func(_ context.Context, cfg xtenant.Config) (any, error) {
		uri := cfg.String(SettingURI)
		if uri == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSetting, SettingURI)
		}
		database := cfg.String(SettingDatabase)
		if database == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSetting, SettingDatabase)
		}

		client, err := mongo.Connect(mopts.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("xmongo: create client: %w", err)
		}
		return New(client, database, opts...)
	}
}
