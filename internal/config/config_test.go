package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if cfg.Log.Level != "info" {
		t.Fatalf("expected log level info, got %q", cfg.Log.Level)
	}
	if len(cfg.Catalog.QuoteAssets) != 1 || cfg.Catalog.QuoteAssets[0] != "USDT" {
		t.Fatalf("expected default quote assets [USDT], got %v", cfg.Catalog.QuoteAssets)
	}
	if cfg.Pool.MaxSubscriptions != 200 {
		t.Fatalf("expected 200 subscriptions per connection, got %d", cfg.Pool.MaxSubscriptions)
	}
	if cfg.Pool.MaxMessagesPerSecond != 5 {
		t.Fatalf("expected 5 messages per second, got %d", cfg.Pool.MaxMessagesPerSecond)
	}
	if len(cfg.Pool.Streams) != 1 || cfg.Pool.Streams[0] != "trade" {
		t.Fatalf("expected default streams [trade], got %v", cfg.Pool.Streams)
	}
	if cfg.Strike.UnitPercent != 0.01 {
		t.Fatalf("expected strike unit percent 0.01, got %v", cfg.Strike.UnitPercent)
	}
	if cfg.Catalog.RefreshInterval != 10*time.Minute {
		t.Fatalf("expected refresh interval 10m, got %v", cfg.Catalog.RefreshInterval)
	}
	if cfg.WS.LivenessTimeout <= 0 || cfg.WS.PingInterval <= 0 || cfg.WS.MaxLifetime <= 0 {
		t.Fatalf("expected ws timing defaults, got %+v", cfg.WS)
	}
	if cfg.Pool.AckMaxAttempts <= 0 || cfg.Pool.AckMaxBackoff <= 0 {
		t.Fatalf("expected ack retry defaults, got %+v", cfg.Pool)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestDefaultsNormaliseLists(t *testing.T) {
	cfg := &Config{
		Catalog: CatalogConfig{QuoteAssets: []string{" usdt", "btc "}},
		Pool:    PoolConfig{Streams: []string{"TRADE", " Ticker"}},
	}
	applyDefaults(cfg)
	if cfg.Catalog.QuoteAssets[0] != "USDT" || cfg.Catalog.QuoteAssets[1] != "BTC" {
		t.Fatalf("expected upper-cased quotes, got %v", cfg.Catalog.QuoteAssets)
	}
	if cfg.Pool.Streams[0] != "trade" || cfg.Pool.Streams[1] != "ticker" {
		t.Fatalf("expected lower-cased streams, got %v", cfg.Pool.Streams)
	}
}

func TestValidateRejectsUnknownStream(t *testing.T) {
	cfg := &Config{Pool: PoolConfig{Streams: []string{"depth"}}}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for unsupported stream")
	}
}

func TestValidateApeInNeedsTicker(t *testing.T) {
	cfg := &Config{ApeIn: ApeInConfig{Enabled: true}}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error when ape-in is enabled without ticker stream")
	}
	cfg.Pool.Streams = []string{"trade", "ticker"}
	if err := validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateTelegramCredentials(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Enabled: true}}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing telegram credentials")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("BINANCE_QUOTE_ASSETS", "usdt, busd")
	t.Setenv("BINANCE_REST_BASE_URL", "http://rest.local")
	t.Setenv("TELEGRAM_BOT_TOKEN_SECRET", "secret")
	t.Setenv("TELEGRAM_BOT_CHAT_ID", "42")
	t.Setenv("USER_NAME", "trader")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "" +
		"pool:\n" +
		"  max_subscriptions_per_connection: 50\n" +
		"  max_messages_per_second: 4\n" +
		"strike:\n" +
		"  unit_percent: 0.02\n" +
		"  timeout: 2m\n" +
		"telegram:\n" +
		"  enabled: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Catalog.QuoteAssets) != 2 || cfg.Catalog.QuoteAssets[1] != "BUSD" {
		t.Fatalf("expected env quote assets, got %v", cfg.Catalog.QuoteAssets)
	}
	if cfg.REST.BaseURL != "http://rest.local" {
		t.Fatalf("expected env rest url, got %q", cfg.REST.BaseURL)
	}
	if cfg.Telegram.Token != "secret" || cfg.Telegram.ChatID != "42" {
		t.Fatalf("expected telegram env overrides, got %+v", cfg.Telegram)
	}
	if cfg.Notify.UserName != "trader" {
		t.Fatalf("expected user name trader, got %q", cfg.Notify.UserName)
	}
	if cfg.Pool.MaxSubscriptions != 50 || cfg.Pool.MaxMessagesPerSecond != 4 {
		t.Fatalf("expected pool values from yaml, got %+v", cfg.Pool)
	}
	if cfg.Strike.UnitPercent != 0.02 || cfg.Strike.Timeout != 2*time.Minute {
		t.Fatalf("expected strike values from yaml, got %+v", cfg.Strike)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
