package xcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// unlockScript 仅当锁值匹配时删除，返回 0 表示锁已不属于调用方。
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlocker 释放锁。
type Unlocker func(ctx context.Context) error

// RedisOption 配置 Redis。
type RedisOption func(*Redis)

// WithKeyPrefix 为所有 key 加前缀，用于在共享 Redis 中隔离租户。
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// Redis 基于 go-redis 的共享缓存。
//
// Connect 以 PING 校验连通性，Close(ctx) 关闭连接，
// 注册到 xbind 后分别在启动与关停时被调用。
type Redis struct {
	client redis.UniversalClient
	prefix string
	group  singleflight.Group
	closed atomic.Bool
}

// NewRedis 包装已初始化的客户端。Close 时一并关闭该客户端。
func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Connect 发送 PING。
func (r *Redis) Connect(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.client.Ping(ctx).Err()
}

// Key 返回加上前缀的完整 key。
func (r *Redis) Key(key string) string {
	return r.prefix + key
}

// Prefix 返回 key 前缀。
func (r *Redis) Prefix() string {
	return r.prefix
}

// Get 读取 key。不存在时返回 (nil, false, nil)。
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	v, err := r.client.Get(ctx, r.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set 写入 key。ttl <= 0 表示不过期。
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.client.Set(ctx, r.Key(key), value, max(ttl, 0)).Err()
}

// Delete 删除 key。
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.Key(k)
	}
	return r.client.Del(ctx, full...).Err()
}

// GetOrLoad 读取 key，未命中时调用 load 回源并写回。
//
// 同一进程内同一 key 的并发回源合并为一次；写回失败不影响返回值。
func (r *Redis) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load LoadFunc) ([]byte, error) {
	if load == nil {
		return nil, ErrNilLoader
	}
	if v, ok, err := r.Get(ctx, key); err != nil || ok {
		return v, err
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		data, err := safeLoad(ctx, load)
		if err != nil {
			return nil, err
		}
		_ = r.Set(context.WithoutCancel(ctx), key, data, ttl)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Lock 以 SET NX 获取轻量锁，返回解锁函数。
//
// 锁 key 为 Key("lock:" + key)，ttl 到期自动释放。已被持有时返回 ErrLockFailed。
func (r *Redis) Lock(ctx context.Context, key string, ttl time.Duration) (Unlocker, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		return nil, ErrInvalidLockTTL
	}

	lockKey := r.Key("lock:" + key)
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockFailed
	}

	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, r.client, []string{lockKey}, token).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrLockExpired
		}
		return nil
	}, nil
}

// Client 返回底层客户端。
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// Close 关闭底层客户端，重复调用返回 ErrClosed。
func (r *Redis) Close(context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return r.client.Close()
}
