package xmongo

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/omeyang/xsite/pkg/observability/xlog"
	"github.com/omeyang/xsite/pkg/observability/xmetrics"
)

const (
	componentName = "xmongo"

	// DefaultHealthTimeout Connect 的默认超时。
	DefaultHealthTimeout = 5 * time.Second
)

// =============================================================================
// 选项
// =============================================================================

type options struct {
	healthTimeout time.Duration
	slowThreshold time.Duration
	logger        *slog.Logger
	observer      xmetrics.Observer
}

func defaultOptions() *options {
	return &options{
		healthTimeout: DefaultHealthTimeout,
		logger:        slog.Default(),
		observer:      xmetrics.NoopObserver{},
	}
}

// Option 配置 DB。
type Option func(*options)

// WithHealthTimeout 设置 Connect（Ping）的超时，调用方 ctx 已有 deadline 时不生效。
func WithHealthTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.healthTimeout = d
		}
	}
}

// WithSlowQueryThreshold 设置慢查询阈值，超过时记录 warn 日志。0 表示关闭。
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// WithLogger 设置日志记录器，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置查询观测器，默认 NoopObserver。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// =============================================================================
// DB
// =============================================================================

// clientOperations *mongo.Client 的子集，便于测试替换。
type clientOperations interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
	NumberSessionsInProgress() int
}

// Stats DB 统计。
type Stats struct {
	PingCount        int64 `json:"pingCount"`
	PingErrors       int64 `json:"pingErrors"`
	SlowQueries      int64 `json:"slowQueries"`
	SessionsInFlight int   `json:"sessionsInFlight"`
}

// DB 绑定到单个数据库的 MongoDB 服务，通常每个租户一个实例。
//
// Connect 以 Ping 校验连通性，Close(ctx) 断开连接，
// 注册到 xbind 后分别在启动与关停时被调用。
type DB struct {
	client   *mongo.Client
	ops      clientOperations
	database string
	opts     *options

	pingCount   atomic.Int64
	pingErrors  atomic.Int64
	slowQueries atomic.Int64
	closed      atomic.Bool
}

// New 包装已创建的客户端。Close 时断开该客户端。
func New(client *mongo.Client, database string, opts ...Option) (*DB, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return newDB(client, client, database, opts...)
}

func newDB(client *mongo.Client, ops clientOperations, database string, opts ...Option) (*DB, error) {
	if database == "" {
		return nil, ErrEmptyDatabase
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &DB{client: client, ops: ops, database: database, opts: o}, nil
}

// Connect 对主节点执行 Ping。
func (d *DB) Connect(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.healthTimeout)
		defer cancel()
	}

	d.pingCount.Add(1)
	if err := d.ops.Ping(ctx, readpref.Primary()); err != nil {
		d.pingErrors.Add(1)
		return err
	}
	return nil
}

// Client 返回底层客户端。
func (d *DB) Client() *mongo.Client { return d.client }

// Name 返回数据库名。
func (d *DB) Name() string { return d.database }

// Database 返回绑定的数据库。
func (d *DB) Database() *mongo.Database {
	return d.client.Database(d.database)
}

// Collection 返回绑定数据库中的集合。
func (d *DB) Collection(name string) *mongo.Collection {
	return d.Database().Collection(name)
}

// Stats 返回统计信息。
func (d *DB) Stats() Stats {
	s := Stats{
		PingCount:   d.pingCount.Load(),
		PingErrors:  d.pingErrors.Load(),
		SlowQueries: d.slowQueries.Load(),
	}
	if !d.closed.Load() {
		s.SessionsInFlight = d.ops.NumberSessionsInProgress()
	}
	return s
}

// Close 断开连接，重复调用返回 ErrClosed。
func (d *DB) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return d.ops.Disconnect(ctx)
}

// observeSlow 超过阈值时计数并记录日志。
func (d *DB) observeSlow(ctx context.Context, op, coll string, elapsed time.Duration) bool {
	if d.opts.slowThreshold <= 0 || elapsed < d.opts.slowThreshold {
		return false
	}
	d.slowQueries.Add(1)
	d.opts.logger.WarnContext(ctx, "slow mongo query",
		xlog.Component(componentName),
		slog.String("operation", op),
		slog.String("database", d.database),
		slog.String("collection", coll),
		xlog.Duration(elapsed),
	)
	return true
}
