// Package logging 构建诊断日志。日志写到 stderr，stdout 只留给模型输出。
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建 logger。verbose 时强制 debug 级别。
func New(level string, verbose bool) (*zap.Logger, error) {
	return build(level, verbose, zapcore.Lock(os.Stderr))
}

func build(level string, verbose bool, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = !verbose

	encoder := zapcore.NewConsoleEncoder(config.EncoderConfig)
	core := zapcore.NewCore(encoder, out, config.Level)

	opts := []zap.Option{zap.ErrorOutput(out)}
	if verbose {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...), nil
}

// Quiet 把 info 级别的日志提高到 warn，spinner 占用终端时使用。
// 已经是 warn 或更高级别的 logger 原样返回。
func Quiet(logger *zap.Logger) *zap.Logger {
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		return logger
	}
	return logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
}

// ParseLevel 解析日志级别，空字符串为 info
func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
