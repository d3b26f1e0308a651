package xtenant

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config 租户（或进程）配置的只读视图。
//
// 构造时深拷贝输入 map，之后不再可变；所有读取方法返回值或副本，
// 可被任意数量的 goroutine 并发读取。
type Config struct {
	m map[string]any
}

// NewConfig 从原始配置 map 创建只读配置。nil map 得到空配置。
func NewConfig(raw map[string]any) Config {
	return Config{m: cloneMap(raw)}
}

// Get 返回 key 对应的原始值。
func (c Config) Get(key string) (any, bool) {
	v, ok := c.m[key]
	return v, ok
}

// Has 判断 key 是否存在。
func (c Config) Has(key string) bool {
	_, ok := c.m[key]
	return ok
}

// String 返回 key 的字符串形式，不存在时返回空字符串。
func (c Config) String(key string) string {
	v, ok := c.m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int 返回 key 的整数值，不存在或无法解析时返回 0。
func (c Config) Int(key string) int {
	n, _ := toInt(c.m[key])
	return n
}

// Duration 返回 key 的时长值。
//
// 支持 time.Duration、"1m30s" 形式的字符串，以及按毫秒解释的整数。
func (c Config) Duration(key string) time.Duration {
	switch v := c.m[key].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return d
	default:
		n, ok := toInt(v)
		if !ok {
			return 0
		}
		return time.Duration(n) * time.Millisecond
	}
}

// Keys 返回排序后的全部 key。
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.m))
}

// Len 返回条目数量。
func (c Config) Len() int {
	return len(c.m)
}

// WithPrefix 返回所有以 prefix 开头的条目副本（key 保持原样）。
func (c Config) WithPrefix(prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range c.m {
		if strings.HasPrefix(k, prefix) {
			out[k] = cloneValue(v)
		}
	}
	return out
}

// Map 返回整个配置的深拷贝。
func (c Config) Map() map[string]any {
	return cloneMap(c.m)
}

// =============================================================================
// 内部辅助函数
// =============================================================================

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(x)
	default:
		return v
	}
}
