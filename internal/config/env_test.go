package config

import (
	"os"
	"path/filepath"
	"testing"
)

var botEnvKeys = []string{
	"BINANCE_QUOTE_ASSETS",
	"BINANCE_WEBSOCKET_URL",
	"TELEGRAM_BOT_CHAT_ID",
	"TELEGRAM_APE_IN_BOT_TOKEN_SECRET",
	"EMAIL_PASSWORD",
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadEnvFeedsConfig(t *testing.T) {
	for _, key := range botEnvKeys {
		unsetEnv(t, key)
	}
	envPath := writeFile(t, ".env", ""+
		"# quotes tracked by the bot\n"+
		"BINANCE_QUOTE_ASSETS=usdt,fdusd\n"+
		"BINANCE_WEBSOCKET_URL=\"wss://stream.test:9443\"\n"+
		"TELEGRAM_BOT_CHAT_ID='-100123'\n"+
		"TELEGRAM_APE_IN_BOT_TOKEN_SECRET=ape-token\n"+
		"EMAIL_PASSWORD=\"p@ss word\"\n")
	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("load env: %v", err)
	}
	cfgPath := writeFile(t, "config.yaml", "log:\n  level: debug\n")
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Catalog.QuoteAssets) != 2 || cfg.Catalog.QuoteAssets[0] != "USDT" || cfg.Catalog.QuoteAssets[1] != "FDUSD" {
		t.Fatalf("expected quotes from .env, got %v", cfg.Catalog.QuoteAssets)
	}
	if cfg.WS.URL != "wss://stream.test:9443" {
		t.Fatalf("expected quoted ws url, got %q", cfg.WS.URL)
	}
	if cfg.Telegram.ChatID != "-100123" || cfg.Telegram.ApeInToken != "ape-token" {
		t.Fatalf("expected telegram settings from .env, got %+v", cfg.Telegram)
	}
	if cfg.Email.Password != "p@ss word" {
		t.Fatalf("expected email password from .env, got %q", cfg.Email.Password)
	}
}

func TestLoadEnvKeepsProcessValues(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_CHAT_ID", "777")
	path := writeFile(t, ".env", "TELEGRAM_BOT_CHAT_ID=-100123\n")
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("TELEGRAM_BOT_CHAT_ID"); got != "777" {
		t.Fatalf("expected process value to win, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func TestLoadEnvRejectsDirectory(t *testing.T) {
	if err := LoadEnv(t.TempDir()); err == nil {
		t.Fatalf("expected error when the env path is a directory")
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}
