package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bn-strike-bot/internal/ack"
	"bn-strike-bot/internal/alerts"
	"bn-strike-bot/internal/binance/rest"
	"bn-strike-bot/internal/binance/ws"
	"bn-strike-bot/internal/catalog"
	"bn-strike-bot/internal/config"
	"bn-strike-bot/internal/metrics"
	"bn-strike-bot/internal/pool"
	"bn-strike-bot/internal/ratelimit"
	"bn-strike-bot/internal/registry"
	"bn-strike-bot/internal/retry"
	"bn-strike-bot/internal/sched"
	"bn-strike-bot/internal/signal"
	"bn-strike-bot/internal/state/sqlite"
	"bn-strike-bot/internal/tracker"

	"go.uber.org/zap"
)

type App struct {
	cfg        *config.Config
	log        *zap.Logger
	store      *sqlite.Store
	loop       *sched.Loop
	dialer     *wsDialer
	syncer     *catalog.Syncer
	tracker    *tracker.Tracker
	dispatcher *alerts.Dispatcher
	prom       *metrics.Prometheus
	metrics    *metrics.Metrics
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	var senders []alerts.Sender
	if cfg.Telegram.Enabled {
		senders = append(senders, alerts.NewTelegram(cfg.Telegram, log))
	}
	if cfg.Email.Enabled {
		senders = append(senders, alerts.NewEmail(cfg.Email, log))
	}
	dispatcher := alerts.NewDispatcher(cfg.Notify, senders, log)

	loop := sched.NewLoop(cfg.WS.QueueSize)
	reg := registry.New()
	acks := ack.NewTracker(loop)

	syncer := catalog.NewSyncer(
		rest.New(cfg.REST.BaseURL, cfg.REST.Timeout, log),
		catalog.SyncConfig{
			Interval:    cfg.Catalog.RefreshInterval,
			Backoff:     retry.Backoff{Base: cfg.Catalog.RetryBase, Max: cfg.Catalog.RetryMax},
			MaxAttempts: cfg.Catalog.MaxAttempts,
		},
		log, m)

	dialer := &wsDialer{
		cfg: ws.Config{
			URL:             strings.TrimRight(cfg.WS.URL, "/") + "/stream",
			DialTimeout:     cfg.WS.DialTimeout,
			WriteTimeout:    cfg.WS.WriteTimeout,
			PingInterval:    cfg.WS.PingInterval,
			LivenessTimeout: cfg.WS.LivenessTimeout,
			MaxLifetime:     cfg.WS.MaxLifetime,
			QueueSize:       cfg.WS.QueueSize,
			MessagesPerSec:  cfg.Pool.MaxMessagesPerSecond,
		},
		log: log,
	}
	manager := pool.NewManager(pool.Config{
		Capacity: cfg.Pool.MaxSubscriptions,
		Streams:  cfg.Pool.Streams,
		Ack: ack.Policy{
			Interval:    ratelimit.Interval(cfg.Pool.MaxMessagesPerSecond),
			MaxBackoff:  cfg.Pool.AckMaxBackoff,
			MaxAttempts: cfg.Pool.AckMaxAttempts,
		},
		Redial: retry.Backoff{Base: cfg.WS.ReconnectDelay, Max: cfg.WS.ReconnectMax},
	}, reg, acks, loop, dialer, log, m)

	deps := tracker.Deps{
		Registry: reg,
		Acks:     acks,
		Pool:     manager,
		Strike:   signal.NewStrikeEngine(cfg.Strike.UnitPercent, cfg.Strike.Timeout, loop, dispatcher, log, m),
		Store:    store,
		Clock:    loop,
		Resync:   syncer.Trigger,
	}
	if cfg.ApeIn.Enabled {
		deps.ApeIn = signal.NewApeInEngine(cfg.ApeIn.StartPercentage, cfg.ApeIn.IncrementPercentage, cfg.ApeIn.Timeout, loop, dispatcher, log, m)
	}
	core := tracker.New(tracker.Config{QuoteAssets: cfg.Catalog.QuoteAssets}, deps, log, m)
	dialer.handler = &loopHandler{loop: loop, target: core}

	return &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		loop:       loop,
		dialer:     dialer,
		syncer:     syncer,
		tracker:    core,
		dispatcher: dispatcher,
		prom:       prom,
		metrics:    m,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.dialer.ctx = ctx

	if age, ok := tracker.SyncAge(ctx, a.store, time.Now()); ok {
		a.log.Info("previous catalog sync", zap.Duration("age", age))
	}

	errCh := make(chan error, 3)
	go func() { errCh <- a.loop.Run(ctx) }()
	go func() { errCh <- a.dispatcher.Run(ctx) }()
	if a.prom != nil {
		srv := a.metricsServer()
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.dispatcher.NotifyStart()
	a.log.Info("service starting",
		zap.Strings("quote_assets", a.cfg.Catalog.QuoteAssets),
		zap.Strings("streams", a.cfg.Pool.Streams),
		zap.Int("capacity", a.cfg.Pool.MaxSubscriptions),
		zap.Int("messages_per_second", a.cfg.Pool.MaxMessagesPerSecond))
	go func() {
		errCh <- a.syncer.Run(ctx, func(snap catalog.Snapshot) {
			a.loop.Post(func() { a.tracker.ApplySnapshot(ctx, snap) })
		})
	}()

	err := <-errCh
	cancel()
	return err
}

func (a *App) metricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	return &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// wsDialer opens stream connections bound to the run context.
type wsDialer struct {
	ctx     context.Context
	cfg     ws.Config
	handler ws.Handler
	log     *zap.Logger
}

func (d *wsDialer) Dial(id string) pool.Transport {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return ws.Dial(ctx, id, d.cfg, d.handler, d.log)
}

// loopHandler moves connection events onto the event loop.
type loopHandler struct {
	loop   *sched.Loop
	target ws.Handler
}

func (h *loopHandler) Opened(id string) {
	h.loop.Post(func() { h.target.Opened(id) })
}

func (h *loopHandler) Received(id string, frame ws.Frame) {
	h.loop.Post(func() { h.target.Received(id, frame) })
}

func (h *loopHandler) Closed(id string, err error) {
	h.loop.Post(func() { h.target.Closed(id, err) })
}
