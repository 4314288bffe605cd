package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bn-strike-bot/internal/binance/rest"
	"bn-strike-bot/internal/catalog"
	"bn-strike-bot/internal/config"
	"bn-strike-bot/internal/logging"
	"bn-strike-bot/internal/ratelimit"

	"go.uber.org/zap"
)

const (
	defaultRESTTimeout    = 10 * time.Second
	defaultRESTBaseURL    = "https://api.binance.com"
	defaultCapacity       = 200
	defaultMessagesPerSec = 5
	defaultVerifyEnvFile  = ".env"
)

type plan struct {
	Instruments      int            `json:"instruments"`
	Pairs            int            `json:"pairs"`
	PairsByQuote     map[string]int `json:"pairs_by_quote"`
	Connections      int            `json:"connections"`
	SubscribeSeconds float64        `json:"subscribe_seconds"`
	Symbols          []string       `json:"symbols,omitempty"`
}

// verify fetches the live catalog and prints the subscription plan the bot
// would start with, without opening any stream connection.
func main() {
	configPath := flag.String("config", "", "optional config path for REST and pool settings")
	quotes := flag.String("quotes", "", "comma separated quote assets, overrides config")
	listSymbols := flag.Bool("symbols", false, "include the selected symbols in the output")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}

	logCfg := config.LoggingConfig{Level: "info"}
	baseURL := defaultRESTBaseURL
	timeout := defaultRESTTimeout
	capacity := defaultCapacity
	perSecond := defaultMessagesPerSec
	quoteAssets := []string{"USDT"}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		logCfg = cfg.Log
		baseURL = cfg.REST.BaseURL
		timeout = cfg.REST.Timeout
		capacity = cfg.Pool.MaxSubscriptions
		perSecond = cfg.Pool.MaxMessagesPerSecond
		quoteAssets = cfg.Catalog.QuoteAssets
	}
	if *quotes != "" {
		quoteAssets = nil
		for _, q := range strings.Split(*quotes, ",") {
			if q = strings.ToUpper(strings.TrimSpace(q)); q != "" {
				quoteAssets = append(quoteAssets, q)
			}
		}
	}

	log := logging.New(logCfg)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	instruments, err := rest.New(baseURL, timeout, log).Fetch(ctx)
	if err != nil {
		fatal(err)
	}
	out := buildPlan(catalog.Build(instruments), quoteAssets, capacity, perSecond, *listSymbols)
	log.Info("catalog verified", zap.Int("pairs", out.Pairs), zap.Int("connections", out.Connections))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal(err)
	}
}

// buildPlan selects the initial pairs and sizes the pool. Each connection
// paces its own subscribes, so the slowest batch bounds the start-up time.
func buildPlan(snap catalog.Snapshot, quotes []string, capacity, perSecond int, withSymbols bool) plan {
	diff := catalog.Compute(nil, snap, quotes)
	pairs := len(diff.Add)
	if capacity < 1 {
		capacity = 1
	}
	batch := pairs
	if batch > capacity {
		batch = capacity
	}
	out := plan{
		Instruments:      snap.Len(),
		Pairs:            pairs,
		PairsByQuote:     make(map[string]int),
		Connections:      (pairs + capacity - 1) / capacity,
		SubscribeSeconds: (time.Duration(batch) * ratelimit.Interval(perSecond)).Seconds(),
	}
	for _, inst := range diff.Add {
		out.PairsByQuote[inst.Quote]++
		if withSymbols {
			out.Symbols = append(out.Symbols, inst.Symbol)
		}
	}
	return out
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "verify: %v\n", err)
	os.Exit(1)
}
