package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bn-strike-bot/internal/ack"
	"bn-strike-bot/internal/binance/ws"
	"bn-strike-bot/internal/catalog"
	"bn-strike-bot/internal/metrics"
	"bn-strike-bot/internal/pool"
	"bn-strike-bot/internal/registry"
	"bn-strike-bot/internal/sched"
	"bn-strike-bot/internal/signal"
	"bn-strike-bot/internal/state"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	QuoteAssets []string
}

// Deps are the collaborators a Tracker drives. ApeIn and Store may be nil.
type Deps struct {
	Registry *registry.Registry
	Acks     *ack.Tracker
	Pool     *pool.Manager
	Strike   *signal.StrikeEngine
	ApeIn    *signal.ApeInEngine
	Store    state.Store
	Clock    sched.Scheduler
	// Resync requests an immediate catalog fetch after a reset.
	Resync func()
}

// Tracker applies catalog snapshots to the registry and pool and routes
// stream frames. Every method must run on the owning event loop.
type Tracker struct {
	cfg     Config
	deps    Deps
	log     *zap.Logger
	metrics *metrics.Metrics

	snapshot catalog.Snapshot
}

func New(cfg Config, deps Deps, log *zap.Logger, m *metrics.Metrics) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Tracker{
		cfg:     cfg,
		deps:    deps,
		log:     log.With(zap.String("component", "tracker")),
		metrics: m,
	}
}

// ApplySnapshot diffs snap against the tracked pairs, unsubscribes removed
// pairs and places new ones. Any failure or panic while applying discards all
// state and starts over from an empty catalog.
func (t *Tracker) ApplySnapshot(ctx context.Context, snap catalog.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			t.Reset(fmt.Errorf("panic applying catalog: %v", r))
		}
	}()
	if err := t.apply(ctx, snap); err != nil {
		t.Reset(err)
	}
}

func (t *Tracker) apply(ctx context.Context, snap catalog.Snapshot) error {
	first := t.snapshot == nil
	diff := catalog.Compute(t.deps.Registry.Tracked(), snap, t.cfg.QuoteAssets)
	for _, base := range diff.Remove {
		if t.deps.Registry.Get(base) == nil {
			return fmt.Errorf("remove set names untracked base %s", base)
		}
	}
	t.deps.Pool.Unsubscribe(diff.Remove)

	added := make([]string, 0, len(diff.Add))
	for _, inst := range diff.Add {
		if _, err := t.deps.Registry.Create(inst); err != nil {
			return fmt.Errorf("create pair: %w", err)
		}
		added = append(added, inst.Base)
	}
	t.deps.Pool.Assign(added)
	t.snapshot = snap
	t.metrics.CatalogSyncs.Inc()
	t.log.Info("catalog applied",
		zap.Bool("initial", first),
		zap.Int("instruments", snap.Len()),
		zap.Int("added", len(added)),
		zap.Int("removed", len(diff.Remove)),
		zap.Int("pairs", t.deps.Registry.Len()))

	cp := state.SyncCheckpoint{LastSync: t.deps.Clock.Now(), Pairs: t.deps.Registry.Len()}
	if err := state.SaveSyncCheckpoint(ctx, t.deps.Store, cp); err != nil {
		t.log.Warn("checkpoint save failed", zap.Error(err))
	}
	return nil
}

// Reset closes every connection without re-homing, cancels all timers,
// forgets all pairs and the catalog, then asks for a fresh sync.
func (t *Tracker) Reset(cause error) {
	t.log.Error("resetting tracker state", zap.Error(cause))
	t.metrics.Resets.Inc()
	t.deps.Pool.CloseAll()
	t.deps.Acks.Clear()
	t.deps.Registry.Clear()
	t.snapshot = nil
	t.metrics.PairsTracked.Set(0)
	if t.deps.Resync != nil {
		t.deps.Resync()
	}
}

// Close tears every connection down for shutdown.
func (t *Tracker) Close() {
	t.deps.Pool.CloseAll()
	t.deps.Acks.Clear()
	t.deps.Registry.Clear()
}

func (t *Tracker) Opened(id string) {
	t.deps.Pool.HandleOpen(id)
}

func (t *Tracker) Closed(id string, err error) {
	t.deps.Pool.HandleClose(id, err)
}

func (t *Tracker) Received(id string, frame ws.Frame) {
	switch {
	case frame.IsAck():
		if err := t.deps.Pool.HandleAck(id, *frame.ID); err != nil {
			if errors.Is(err, ack.ErrUnknownID) {
				t.log.Debug("ignoring stale ack", zap.String("conn_id", id), zap.Int64("id", *frame.ID))
				return
			}
			t.log.Warn("ack handling failed", zap.Error(err))
		}
	case frame.Error != nil:
		var corr int64
		if frame.ID != nil {
			corr = *frame.ID
		}
		t.log.Warn("control message rejected",
			zap.String("conn_id", id), zap.Int64("id", corr), zap.Int("code", frame.Error.Code), zap.String("msg", frame.Error.Msg))
	case frame.Stream != "":
		t.route(id, frame)
	}
}

func (t *Tracker) route(id string, frame ws.Frame) {
	ev, err := frame.Event()
	if err != nil {
		t.log.Debug("dropping stream frame", zap.String("conn_id", id), zap.String("stream", frame.Stream), zap.Error(err))
		return
	}
	pair := t.deps.Registry.BySymbol(ev.Symbol)
	if pair == nil || pair.Removing {
		return
	}
	switch ev.Type {
	case ws.EventTrade:
		price, err := decimal.NewFromString(ev.Price)
		if err != nil {
			t.log.Debug("bad trade price", zap.String("symbol", ev.Symbol), zap.String("price", ev.Price))
			return
		}
		t.deps.Strike.OnTrade(&pair.Strike, pair.Market(), price)
	case ws.EventTicker:
		if t.deps.ApeIn == nil {
			return
		}
		last, err1 := decimal.NewFromString(ev.Last)
		high, err2 := decimal.NewFromString(ev.High)
		if err1 != nil || err2 != nil {
			t.log.Debug("bad ticker", zap.String("symbol", ev.Symbol))
			return
		}
		t.deps.ApeIn.OnTicker(&pair.ApeIn, pair.Market(), last, high)
	}
}

// Snapshot returns the last applied catalog, nil before the first sync.
func (t *Tracker) Snapshot() catalog.Snapshot {
	return t.snapshot
}

// SyncAge reports how long ago the last catalog was applied, from the
// checkpoint store.
func SyncAge(ctx context.Context, store state.Store, now time.Time) (time.Duration, bool) {
	if st, ok := store.(state.Stamped); ok {
		if at, found, err := st.UpdatedAt(ctx, state.LastSyncKey); err == nil && found {
			return now.Sub(at), true
		}
	}
	cp, ok, err := state.LoadSyncCheckpoint(ctx, store)
	if err != nil || !ok {
		return 0, false
	}
	return now.Sub(cp.LastSync), true
}
