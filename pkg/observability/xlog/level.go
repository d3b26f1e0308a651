package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseLevel 解析日志级别：debug/info/warn/warning/error，大小写不敏感，忽略首尾空白。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
}

// SetLevelString 解析 s 并设置到 levelVar，用于配置热更新。
//
// 解析失败时保持原级别不变并返回错误。
func SetLevelString(levelVar *slog.LevelVar, s string) error {
	if levelVar == nil {
		return ErrNilLevelVar
	}
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	levelVar.Set(level)
	return nil
}
