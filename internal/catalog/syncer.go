package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bn-strike-bot/internal/metrics"
	"bn-strike-bot/internal/retry"

	"go.uber.org/zap"
)

var ErrEmptyCatalog = errors.New("catalog fetch returned no instruments")

type Fetcher interface {
	Fetch(ctx context.Context) ([]Instrument, error)
}

type SyncConfig struct {
	Interval    time.Duration
	Backoff     retry.Backoff
	MaxAttempts int
}

// Syncer fetches the catalog once at start, then every Interval, and on
// demand through Trigger. Each cycle retries failed fetches with backoff
// until MaxAttempts and then waits for the next cycle.
type Syncer struct {
	fetcher Fetcher
	cfg     SyncConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	trigger chan struct{}
}

func NewSyncer(fetcher Fetcher, cfg SyncConfig, log *zap.Logger, m *metrics.Metrics) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Syncer{
		fetcher: fetcher,
		cfg:     cfg,
		log:     log.With(zap.String("component", "catalog")),
		metrics: m,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate sync. Requests made while one is already
// pending collapse into one.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run delivers every successfully fetched snapshot until ctx is done.
func (s *Syncer) Run(ctx context.Context, deliver func(Snapshot)) error {
	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	s.cycle(ctx, deliver)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			s.cycle(ctx, deliver)
		case <-s.trigger:
			s.cycle(ctx, deliver)
		}
	}
}

func (s *Syncer) cycle(ctx context.Context, deliver func(Snapshot)) {
	snap, err := s.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.CatalogSyncFailures.Inc()
			s.log.Error("catalog sync abandoned until next cycle", zap.Error(err))
		}
		return
	}
	deliver(snap)
}

// Fetch retrieves and builds one snapshot, retrying with backoff.
func (s *Syncer) Fetch(ctx context.Context) (Snapshot, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		instruments, err := s.fetcher.Fetch(ctx)
		if err == nil && len(instruments) == 0 {
			err = ErrEmptyCatalog
		}
		if err == nil {
			return Build(instruments), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == s.cfg.MaxAttempts-1 {
			break
		}
		delay := s.cfg.Backoff.Delay(attempt)
		s.log.Warn("catalog fetch failed", zap.Int("attempt", attempt+1), zap.Duration("retry_in", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("catalog fetch failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}
