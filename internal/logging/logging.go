package logging

import (
	"os"
	"path/filepath"

	"bn-strike-bot/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func New(cfg config.LoggingConfig) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	var opts []zap.Option
	if sink := errorSink(cfg); sink != nil {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, sink)
		}))
	}
	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// errorSink returns a core that appends warn and error entries to a rotating
// text file. Returns nil when no error log is configured or the directory
// cannot be created.
func errorSink(cfg config.LoggingConfig) zapcore.Core {
	if cfg.ErrorLog == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ErrorLog), 0o755); err != nil {
		return nil
	}
	writer := &lumberjack.Logger{
		Filename:   cfg.ErrorLog,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(writer), zapcore.WarnLevel)
}
