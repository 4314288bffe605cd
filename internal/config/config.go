package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	REST     RESTConfig     `yaml:"rest"`
	WS       WSConfig       `yaml:"ws"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Pool     PoolConfig     `yaml:"pool"`
	Strike   StrikeConfig   `yaml:"strike"`
	ApeIn    ApeInConfig    `yaml:"ape_in"`
	Notify   NotifyConfig   `yaml:"notify"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	State    StateConfig    `yaml:"state"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	ErrorLog   string `yaml:"error_log"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WSConfig struct {
	URL             string        `yaml:"url"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	LivenessTimeout time.Duration `yaml:"liveness_timeout"`
	MaxLifetime     time.Duration `yaml:"max_lifetime"`
	QueueSize       int           `yaml:"queue_size"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
	ReconnectMax    time.Duration `yaml:"reconnect_max"`
}

type CatalogConfig struct {
	QuoteAssets     []string      `yaml:"quote_assets"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RetryBase       time.Duration `yaml:"retry_base"`
	RetryMax        time.Duration `yaml:"retry_max"`
	MaxAttempts     int           `yaml:"max_attempts"`
}

type PoolConfig struct {
	MaxSubscriptions     int           `yaml:"max_subscriptions_per_connection"`
	MaxMessagesPerSecond int           `yaml:"max_messages_per_second"`
	Streams              []string      `yaml:"streams"`
	AckMaxAttempts       int           `yaml:"ack_max_attempts"`
	AckMaxBackoff        time.Duration `yaml:"ack_max_backoff"`
}

type StrikeConfig struct {
	UnitPercent float64       `yaml:"unit_percent"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ApeInConfig struct {
	Enabled             bool          `yaml:"enabled"`
	StartPercentage     float64       `yaml:"start_percentage"`
	IncrementPercentage float64       `yaml:"increment_percentage"`
	Timeout             time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	UserName    string        `yaml:"user_name"`
	QueueSize   int           `yaml:"queue_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	ApeInToken string `yaml:"ape_in_token"`
	ChatID     string `yaml:"chat_id"`
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	SenderName      string `yaml:"sender_name"`
	ReceiverName    string `yaml:"receiver_name"`
	ReceiverAddress string `yaml:"receiver_address"`
	ReceiverCC      string `yaml:"receiver_cc"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyEnv(cfg *Config) {
	if v := env("BINANCE_REST_BASE_URL"); v != "" {
		cfg.REST.BaseURL = v
	}
	if v := env("BINANCE_WEBSOCKET_URL"); v != "" {
		cfg.WS.URL = v
	}
	if v := env("BINANCE_QUOTE_ASSETS"); v != "" {
		cfg.Catalog.QuoteAssets = splitList(v)
	}
	if v := env("TELEGRAM_BOT_TOKEN_SECRET"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := env("TELEGRAM_APE_IN_BOT_TOKEN_SECRET"); v != "" {
		cfg.Telegram.ApeInToken = v
	}
	if v := env("TELEGRAM_BOT_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := env("EMAIL_USER"); v != "" {
		cfg.Email.User = v
	}
	if v := env("EMAIL_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
	if v := env("USER_NAME"); v != "" {
		cfg.Notify.UserName = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = "https://api.binance.com"
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://stream.binance.com:9443"
	}
	if cfg.WS.DialTimeout == 0 {
		cfg.WS.DialTimeout = 10 * time.Second
	}
	if cfg.WS.WriteTimeout == 0 {
		cfg.WS.WriteTimeout = 5 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = time.Minute
	}
	if cfg.WS.LivenessTimeout == 0 {
		cfg.WS.LivenessTimeout = 10 * time.Minute
	}
	if cfg.WS.MaxLifetime == 0 {
		cfg.WS.MaxLifetime = 23 * time.Hour
	}
	if cfg.WS.QueueSize == 0 {
		cfg.WS.QueueSize = 4096
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = time.Second
	}
	if cfg.WS.ReconnectMax == 0 {
		cfg.WS.ReconnectMax = time.Minute
	}
	if len(cfg.Catalog.QuoteAssets) == 0 {
		cfg.Catalog.QuoteAssets = []string{"USDT"}
	}
	if cfg.Catalog.RefreshInterval == 0 {
		cfg.Catalog.RefreshInterval = 10 * time.Minute
	}
	if cfg.Catalog.RetryBase == 0 {
		cfg.Catalog.RetryBase = time.Second
	}
	if cfg.Catalog.RetryMax == 0 {
		cfg.Catalog.RetryMax = time.Minute
	}
	if cfg.Catalog.MaxAttempts == 0 {
		cfg.Catalog.MaxAttempts = 8
	}
	if cfg.Pool.MaxSubscriptions == 0 {
		cfg.Pool.MaxSubscriptions = 200
	}
	if cfg.Pool.MaxMessagesPerSecond == 0 {
		cfg.Pool.MaxMessagesPerSecond = 5
	}
	if len(cfg.Pool.Streams) == 0 {
		cfg.Pool.Streams = []string{"trade"}
	}
	if cfg.Pool.AckMaxAttempts == 0 {
		cfg.Pool.AckMaxAttempts = 10
	}
	if cfg.Pool.AckMaxBackoff == 0 {
		cfg.Pool.AckMaxBackoff = 5 * time.Minute
	}
	if cfg.Strike.UnitPercent == 0 {
		cfg.Strike.UnitPercent = 0.01
	}
	if cfg.Strike.Timeout == 0 {
		cfg.Strike.Timeout = 5 * time.Minute
	}
	if cfg.ApeIn.StartPercentage == 0 {
		cfg.ApeIn.StartPercentage = -10
	}
	if cfg.ApeIn.IncrementPercentage == 0 {
		cfg.ApeIn.IncrementPercentage = -5
	}
	if cfg.ApeIn.Timeout == 0 {
		cfg.ApeIn.Timeout = 6 * time.Hour
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 256
	}
	if cfg.Notify.MaxAttempts == 0 {
		cfg.Notify.MaxAttempts = 5
	}
	if cfg.Notify.RetryDelay == 0 {
		cfg.Notify.RetryDelay = time.Second
	}
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Email.Port == 0 {
		cfg.Email.Port = 465
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/bn-strike-bot.db"
	}
	for i, q := range cfg.Catalog.QuoteAssets {
		cfg.Catalog.QuoteAssets[i] = strings.ToUpper(strings.TrimSpace(q))
	}
	for i, s := range cfg.Pool.Streams {
		cfg.Pool.Streams[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

func validate(cfg *Config) error {
	if len(cfg.Catalog.QuoteAssets) == 0 {
		return errors.New("catalog.quote_assets is required")
	}
	for _, q := range cfg.Catalog.QuoteAssets {
		if q == "" {
			return errors.New("catalog.quote_assets contains an empty entry")
		}
	}
	if cfg.Pool.MaxSubscriptions <= 0 {
		return errors.New("pool.max_subscriptions_per_connection must be > 0")
	}
	if cfg.Pool.MaxMessagesPerSecond <= 0 {
		return errors.New("pool.max_messages_per_second must be > 0")
	}
	for _, s := range cfg.Pool.Streams {
		if s != "trade" && s != "ticker" {
			return errors.New("pool.streams supports only trade and ticker")
		}
	}
	if cfg.ApeIn.Enabled && !hasStream(cfg.Pool.Streams, "ticker") {
		return errors.New("ape_in.enabled requires the ticker stream in pool.streams")
	}
	if cfg.Strike.UnitPercent <= 0 {
		return errors.New("strike.unit_percent must be > 0")
	}
	if cfg.Strike.Timeout <= 0 || cfg.Catalog.RefreshInterval <= 0 || cfg.WS.LivenessTimeout <= 0 {
		return errors.New("strike.timeout, catalog.refresh_interval and ws.liveness_timeout must be > 0")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.enabled requires token and chat_id")
	}
	if cfg.Email.Enabled && (cfg.Email.Host == "" || cfg.Email.User == "" || cfg.Email.ReceiverAddress == "") {
		return errors.New("email.enabled requires host, user and receiver_address")
	}
	return nil
}

func hasStream(streams []string, kind string) bool {
	for _, s := range streams {
		if s == kind {
			return true
		}
	}
	return false
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
