package pool

import (
	"fmt"
	"time"

	"bn-strike-bot/internal/ack"
	"bn-strike-bot/internal/binance/ws"
	"bn-strike-bot/internal/metrics"
	"bn-strike-bot/internal/registry"
	"bn-strike-bot/internal/retry"
	"bn-strike-bot/internal/sched"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport is one live stream connection.
type Transport interface {
	Send(req ws.Request) error
	Close()
}

// Dialer opens a connection in the background. Open, frame and close events
// for it must be delivered to the Manager on its owning goroutine.
type Dialer interface {
	Dial(id string) Transport
}

type Config struct {
	Capacity int
	Streams  []string
	Ack      ack.Policy
	// Redial spaces reconnect attempts after connections that never opened.
	Redial retry.Backoff
}

type conn struct {
	id        string
	transport Transport
	open      bool
	homed     int
	active    int
	waiting   []string
}

// ConnInfo is a read-only view of one pooled connection.
type ConnInfo struct {
	ID     string
	Open   bool
	Homed  int
	Active int
}

// Manager packs pairs onto connections and keeps subscriptions acknowledged.
// All methods must run on the goroutine that owns the registry.
type Manager struct {
	cfg     Config
	reg     *registry.Registry
	acks    *ack.Tracker
	clock   sched.Scheduler
	dialer  Dialer
	log     *zap.Logger
	metrics *metrics.Metrics

	conns  map[string]*conn
	order  []string
	newID  func(time.Time) string
	lastID string

	dialFailures int
	deferred     []string
	redial       sched.Timer
}

func NewManager(cfg Config, reg *registry.Registry, acks *ack.Tracker, clock sched.Scheduler, dialer Dialer, log *zap.Logger, m *metrics.Metrics) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	if len(cfg.Streams) == 0 {
		cfg.Streams = []string{ws.KindTrade}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Manager{
		cfg:     cfg,
		reg:     reg,
		acks:    acks,
		clock:   clock,
		dialer:  dialer,
		log:     log.With(zap.String("component", "pool")),
		metrics: m,
		conns:   make(map[string]*conn),
		newID:   NewConnID,
	}
}

// NewConnID builds a connection id from the creation time and a random suffix.
func NewConnID(now time.Time) string {
	return fmt.Sprintf("%d.%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Assign places every listed pair that has no home yet. Existing connections
// with spare capacity are filled first; the rest are split into
// capacity-sized batches, one new connection per batch.
func (m *Manager) Assign(bases []string) {
	var leftover []*registry.Pair
	for _, base := range bases {
		p := m.reg.Get(base)
		if p == nil || p.Removing || p.Home != "" {
			continue
		}
		if c := m.spare(); c != nil {
			m.place(c, p)
			continue
		}
		leftover = append(leftover, p)
	}
	for start := 0; start < len(leftover); start += m.cfg.Capacity {
		end := start + m.cfg.Capacity
		if end > len(leftover) {
			end = len(leftover)
		}
		c := m.openConn()
		for _, p := range leftover[start:end] {
			m.place(c, p)
		}
	}
	m.refresh()
}

func (m *Manager) spare() *conn {
	for _, id := range m.order {
		if c := m.conns[id]; c.homed < m.cfg.Capacity {
			return c
		}
	}
	return nil
}

func (m *Manager) place(c *conn, p *registry.Pair) {
	p.Home = c.id
	p.ConnID = ""
	c.homed++
	if c.open {
		m.send(c, p, ack.Subscribe, 0)
		return
	}
	c.waiting = append(c.waiting, p.Base)
}

func (m *Manager) openConn() *conn {
	id := m.newID(m.clock.Now())
	for id == m.lastID || m.conns[id] != nil {
		id = m.newID(m.clock.Now())
	}
	m.lastID = id
	c := &conn{id: id}
	m.conns[id] = c
	m.order = append(m.order, id)
	m.log.Info("opening connection", zap.String("conn_id", id))
	c.transport = m.dialer.Dial(id)
	return c
}

// Unsubscribe stops tracking the listed pairs. Pairs that never reached an
// open connection are dropped at once; the rest are removed when their
// unsubscribe is acknowledged.
func (m *Manager) Unsubscribe(bases []string) {
	for _, base := range bases {
		p := m.reg.Get(base)
		if p == nil || p.Removing {
			continue
		}
		p.Removing = true
		m.acks.Drop(base)
		c := m.conns[p.Home]
		if c == nil || !c.open {
			m.drop(c, p)
			continue
		}
		m.send(c, p, ack.Unsubscribe, 0)
	}
	m.refresh()
}

func (m *Manager) drop(c *conn, p *registry.Pair) {
	if c != nil {
		c.homed--
		if p.ConnID == c.id {
			c.active--
		}
		c.waiting = without(c.waiting, p.Base)
	}
	m.acks.Drop(p.Base)
	m.reg.Remove(p.Base)
	m.log.Info("pair removed", zap.String("base", p.Base), zap.String("symbol", p.Symbol))
}

func (m *Manager) send(c *conn, p *registry.Pair, op ack.Op, attempt int) {
	window := m.cfg.Ack.Delay(attempt, m.reg.Len())
	entry := m.acks.Track(p.Base, op, c.id, attempt, window, m.onTimeout)
	method := ws.MethodSubscribe
	if op == ack.Unsubscribe {
		method = ws.MethodUnsubscribe
	}
	req := ws.Request{Method: method, Params: ws.StreamNames(p.Symbol, m.cfg.Streams), ID: entry.ID}
	m.metrics.ControlSent.Inc()
	if err := c.transport.Send(req); err != nil {
		m.log.Warn("control message not queued",
			zap.String("conn_id", c.id), zap.String("base", p.Base), zap.Int64("id", entry.ID), zap.Error(err))
	}
}

func (m *Manager) onTimeout(e ack.Entry) {
	p := m.reg.Get(e.Base)
	c := m.conns[e.ConnID]
	if p == nil || c == nil || p.Home != c.id {
		return
	}
	if m.cfg.Ack.Exhausted(e.Attempt) {
		m.log.Error("ack retries exhausted, recycling connection",
			zap.String("conn_id", c.id), zap.String("base", e.Base), zap.Stringer("op", e.Op), zap.Int("attempt", e.Attempt+1))
		c.transport.Close()
		return
	}
	m.metrics.AckRetries.Inc()
	m.log.Warn("ack timeout, resending",
		zap.String("conn_id", c.id), zap.String("base", e.Base), zap.Stringer("op", e.Op), zap.Int64("id", e.ID), zap.Int("attempt", e.Attempt+1))
	m.send(c, p, e.Op, e.Attempt+1)
}

// HandleOpen subscribes every pair waiting on the connection.
func (m *Manager) HandleOpen(id string) {
	c := m.conns[id]
	if c == nil {
		return
	}
	c.open = true
	m.dialFailures = 0
	waiting := c.waiting
	c.waiting = nil
	m.log.Info("connection open", zap.String("conn_id", id), zap.Int("pairs", len(waiting)))
	for _, base := range waiting {
		p := m.reg.Get(base)
		if p == nil || p.Home != id || p.Removing {
			continue
		}
		m.send(c, p, ack.Subscribe, 0)
	}
	m.refresh()
}

// HandleAck applies the acknowledgement for correlation id received on
// connection connID.
func (m *Manager) HandleAck(connID string, id int64) error {
	e, err := m.acks.Resolve(id)
	if err != nil {
		return fmt.Errorf("ack %d on %s: %w", id, connID, err)
	}
	m.metrics.AcksReceived.Inc()
	p := m.reg.Get(e.Base)
	c := m.conns[e.ConnID]
	if p == nil || c == nil || p.Home != c.id {
		return nil
	}
	switch e.Op {
	case ack.Subscribe:
		if p.ConnID != c.id {
			p.ConnID = c.id
			c.active++
		}
	case ack.Unsubscribe:
		m.drop(c, p)
	}
	m.refresh()
	return nil
}

// HandleClose forgets the connection and re-homes every pair it held. Pairs
// waiting for an unsubscribe ack are dropped instead. When the connection
// never opened, re-homing waits out the redial backoff.
func (m *Manager) HandleClose(id string, cause error) {
	c := m.conns[id]
	if c == nil {
		return
	}
	delete(m.conns, id)
	m.order = without(m.order, id)
	var rehome []string
	for _, p := range m.reg.ByHome(id) {
		m.acks.Drop(p.Base)
		if p.Removing {
			m.reg.Remove(p.Base)
			continue
		}
		p.Home = ""
		p.ConnID = ""
		rehome = append(rehome, p.Base)
	}
	if c.open {
		m.dialFailures = 0
		m.log.Warn("connection closed, re-homing pairs", zap.String("conn_id", id), zap.Int("pairs", len(rehome)), zap.Error(cause))
		m.Assign(rehome)
		return
	}
	delay := m.cfg.Redial.Delay(m.dialFailures)
	m.dialFailures++
	m.log.Warn("connection failed to open", zap.String("conn_id", id), zap.Int("pairs", len(rehome)),
		zap.Duration("retry_in", delay), zap.Error(cause))
	if delay <= 0 {
		m.Assign(rehome)
		return
	}
	m.deferred = append(m.deferred, rehome...)
	if m.redial == nil {
		m.redial = m.clock.AfterFunc(delay, m.flushDeferred)
	}
	m.refresh()
}

func (m *Manager) flushDeferred() {
	m.redial = nil
	bases := m.deferred
	m.deferred = nil
	m.Assign(bases)
}

// CloseAll tears every connection down without re-homing.
func (m *Manager) CloseAll() {
	conns := m.conns
	m.conns = make(map[string]*conn)
	m.order = nil
	sched.Stop(m.redial)
	m.redial = nil
	m.deferred = nil
	m.dialFailures = 0
	for _, c := range conns {
		if c.transport != nil {
			c.transport.Close()
		}
	}
	m.refresh()
}

func (m *Manager) Conns() []ConnInfo {
	out := make([]ConnInfo, 0, len(m.conns))
	for _, id := range m.order {
		c := m.conns[id]
		out = append(out, ConnInfo{ID: c.id, Open: c.open, Homed: c.homed, Active: c.active})
	}
	return out
}

func (m *Manager) Active() int {
	n := 0
	for _, c := range m.conns {
		n += c.active
	}
	return n
}

func (m *Manager) refresh() {
	m.metrics.ConnectionsOpen.Set(float64(len(m.conns)))
	m.metrics.SubscriptionsActive.Set(float64(m.Active()))
	m.metrics.PairsTracked.Set(float64(m.reg.Len()))
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
