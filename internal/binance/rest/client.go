package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bn-strike-bot/internal/catalog"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

// Client reads the public spot exchangeInfo catalog. No credentials are used.
type Client struct {
	api *binance.Client
	log *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	api := binance.NewClient("", "")
	if baseURL != "" {
		api.BaseURL = strings.TrimRight(baseURL, "/")
	}
	api.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: api, log: log}
}

// Fetch implements catalog.Fetcher.
func (c *Client) Fetch(ctx context.Context) ([]catalog.Instrument, error) {
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	out := make([]catalog.Instrument, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		out = append(out, catalog.Instrument{
			Symbol:        sym.Symbol,
			Base:          sym.BaseAsset,
			Quote:         sym.QuoteAsset,
			Status:        sym.Status,
			BaseDecimals:  sym.BaseAssetPrecision,
			QuoteDecimals: sym.QuoteAssetPrecision,
		})
	}
	c.log.Debug("exchange info fetched", zap.Int("symbols", len(out)))
	return out, nil
}
