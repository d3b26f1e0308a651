package xcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Memory 配置选项
// =============================================================================

// MinMemoryMaxCost 内存缓存最小容量（1MB）。
const MinMemoryMaxCost = 1 << 20

type memoryOptions struct {
	numCounters int64
	maxCost     int64
	bufferItems int64
}

func defaultMemoryOptions() *memoryOptions {
	return &memoryOptions{
		numCounters: 1e6,
		maxCost:     32 << 20,
		bufferItems: 64,
	}
}

// MemoryOption 配置内存缓存。
type MemoryOption func(*memoryOptions)

// WithNumCounters 设置频率计数器数量，建议为预期 key 数量的 10 倍。n <= 0 时忽略。
func WithNumCounters(n int64) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.numCounters = n
		}
	}
}

// WithMaxCost 设置最大容量（字节），小于 MinMemoryMaxCost 时取 MinMemoryMaxCost。cost <= 0 时忽略。
func WithMaxCost(cost int64) MemoryOption {
	return func(o *memoryOptions) {
		if cost > 0 {
			o.maxCost = max(cost, MinMemoryMaxCost)
		}
	}
}

// WithBufferItems 设置写入缓冲区大小。n <= 0 时忽略。
func WithBufferItems(n int64) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.bufferItems = n
		}
	}
}

// =============================================================================
// Memory
// =============================================================================

// LoadFunc 缓存未命中时的回源函数。
type LoadFunc func(ctx context.Context) ([]byte, error)

// MemoryStats 内存缓存统计。
type MemoryStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitRatio    float64 `json:"hitRatio"`
	KeysAdded   uint64  `json:"keysAdded"`
	KeysEvicted uint64  `json:"keysEvicted"`
	CostAdded   uint64  `json:"costAdded"`
	CostEvicted uint64  `json:"costEvicted"`
}

// Memory 基于 ristretto 的进程内缓存，通常每个租户一个实例。
//
// ristretto 异步写入：Set 之后需要 Wait 才能保证立即可读。
// GetOrLoad 内部已等待写入完成。
type Memory struct {
	cache  *ristretto.Cache[string, []byte]
	group  singleflight.Group
	closed atomic.Bool
}

// NewMemory 创建内存缓存。
func NewMemory(opts ...MemoryOption) (*Memory, error) {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: o.numCounters,
		MaxCost:     o.maxCost,
		BufferItems: o.bufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("xcache: create memory cache: %w", err)
	}
	return &Memory{cache: cache}, nil
}

// Get 读取缓存。
func (m *Memory) Get(key string) ([]byte, bool) {
	if m.closed.Load() {
		return nil, false
	}
	return m.cache.Get(key)
}

// Set 写入缓存，cost 为值的字节数。ttl <= 0 表示不过期。
// 返回 false 表示被准入策略丢弃或缓存已关闭。
func (m *Memory) Set(key string, value []byte, ttl time.Duration) bool {
	if m.closed.Load() || key == "" {
		return false
	}
	cost := max(int64(len(value)), 1)
	if ttl > 0 {
		return m.cache.SetWithTTL(key, value, cost, ttl)
	}
	return m.cache.Set(key, value, cost)
}

// Delete 删除缓存。
func (m *Memory) Delete(key string) {
	if !m.closed.Load() {
		m.cache.Del(key)
	}
}

// GetOrLoad 读取缓存，未命中时调用 load 回源并写入。
//
// 同一 key 的并发回源通过 singleflight 合并为一次；load 的 panic 转为 ErrLoadPanic。
func (m *Memory) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load LoadFunc) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	if load == nil {
		return nil, ErrNilLoader
	}
	if v, ok := m.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		data, err := safeLoad(ctx, load)
		if err != nil {
			return nil, err
		}
		m.Set(key, data, ttl)
		m.cache.Wait()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Wait 等待缓冲中的写入完成。
func (m *Memory) Wait() {
	if !m.closed.Load() {
		m.cache.Wait()
	}
}

// Stats 返回命中率等统计，关闭后返回零值。
func (m *Memory) Stats() MemoryStats {
	if m.closed.Load() || m.cache.Metrics == nil {
		return MemoryStats{}
	}
	mt := m.cache.Metrics
	return MemoryStats{
		Hits:        mt.Hits(),
		Misses:      mt.Misses(),
		HitRatio:    mt.Ratio(),
		KeysAdded:   mt.KeysAdded(),
		KeysEvicted: mt.KeysEvicted(),
		CostAdded:   mt.CostAdded(),
		CostEvicted: mt.CostEvicted(),
	}
}

// Client 返回底层 ristretto 实例。
func (m *Memory) Client() *ristretto.Cache[string, []byte] {
	return m.cache
}

// Close 关闭缓存，重复调用返回 ErrClosed。
func (m *Memory) Close(context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	m.cache.Close()
	return nil
}

func safeLoad(ctx context.Context, load LoadFunc) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoadPanic, r)
		}
	}()
	return load(ctx)
}
