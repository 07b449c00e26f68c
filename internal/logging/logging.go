// Package logging 统一配置 zerolog，并为各个包提供带 pkg 字段的 logger。
package logging

import (
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup 设置全局日志级别与时间格式，并把标准库 log 的输出重定向到 zerolog。
func Setup(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(ParseLevel(level))

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// ParseLevel 将 debug/info/warn/error 转换为 zerolog 级别，未知值回退到 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// For 返回带有 pkg=<name> 字段的 logger。
func For(pkg string) zerolog.Logger {
	return log.With().Str("pkg", pkg).Logger()
}
