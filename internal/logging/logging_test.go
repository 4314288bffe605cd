package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bn-strike-bot/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"info":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) expected %v, got %v", in, want, got)
		}
	}
}

func TestErrorLogReceivesWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors.log")
	log := New(config.LoggingConfig{Level: "info", ErrorLog: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	log.Info("routine message")
	log.Warn("socket closed", zap.String("conn_id", "abc"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "socket closed") {
		t.Fatalf("expected warning in error log, got %q", content)
	}
	if strings.Contains(content, "routine message") {
		t.Fatalf("info entries must not reach the error log, got %q", content)
	}
}

func TestNewWithoutErrorLog(t *testing.T) {
	log := New(config.LoggingConfig{Level: "debug"})
	if log == nil {
		t.Fatalf("expected logger")
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
}
