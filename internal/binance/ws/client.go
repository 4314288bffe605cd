package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"bn-strike-bot/internal/ratelimit"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var (
	ErrQueueFull = errors.New("ws send queue full")
	ErrClosed    = errors.New("ws connection closed")
	errLifetime  = errors.New("ws max lifetime reached")
	errStale     = errors.New("ws liveness timeout")
)

// Handler receives connection events. Calls for one connection are made from
// its own goroutines; implementations must hand them off to their owner.
type Handler interface {
	Opened(id string)
	Received(id string, frame Frame)
	Closed(id string, err error)
}

type Config struct {
	URL             string
	DialTimeout     time.Duration
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	LivenessTimeout time.Duration
	MaxLifetime     time.Duration
	QueueSize       int
	MessagesPerSec  int
}

// Client is one duplex combined-stream connection. Outbound control messages
// are queued and written in order, paced by a per-connection Pacer.
type Client struct {
	id      string
	cfg     Config
	handler Handler
	log     *zap.Logger
	pacer   *ratelimit.Pacer

	queue     chan Request
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.Mutex
	conn     *websocket.Conn
	lastSeen time.Time
}

// Dial starts connecting in the background and returns immediately. The
// handler observes Opened once the socket is up and exactly one Closed.
func Dial(ctx context.Context, id string, cfg Config, handler Handler, log *zap.Logger) *Client {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := &Client{
		id:      id,
		cfg:     cfg,
		handler: handler,
		log:     log.With(zap.String("conn_id", id)),
		pacer:   ratelimit.NewPacer(cfg.MessagesPerSec),
		queue:   make(chan Request, cfg.QueueSize),
		ctx:     runCtx,
		cancel:  cancel,
	}
	go c.run()
	return c
}

// Send queues req for paced delivery. It never blocks.
func (c *Client) Send(req Request) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case c.queue <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close tears the connection down. The handler still receives Closed.
func (c *Client) Close() {
	c.cancel()
}

func (c *Client) run() {
	err := c.serve()
	c.cancel()
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "closing")
	}
	c.logClose(err)
	c.closeOnce.Do(func() {
		if c.handler != nil {
			c.handler.Closed(c.id, err)
		}
	})
}

func (c *Client) serve() error {
	dialCtx := c.ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(c.ctx, c.cfg.DialTimeout)
		defer cancel()
	}
	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)
	c.mu.Lock()
	c.conn = conn
	c.lastSeen = time.Now()
	c.mu.Unlock()
	if c.handler != nil {
		c.handler.Opened(c.id)
	}

	errCh := make(chan error, 3)
	go func() { errCh <- c.writeLoop(conn) }()
	go func() { errCh <- c.livenessLoop(conn) }()
	go func() { errCh <- c.readLoop(conn) }()

	var lifetime <-chan time.Time
	if c.cfg.MaxLifetime > 0 {
		timer := time.NewTimer(c.cfg.MaxLifetime)
		defer timer.Stop()
		lifetime = timer.C
	}
	select {
	case err = <-errCh:
	case <-lifetime:
		err = errLifetime
	case <-c.ctx.Done():
		err = ErrClosed
	}
	return err
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			return err
		}
		c.touch()
		frame, err := ParseFrame(data)
		if err != nil {
			c.log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}
		if c.handler != nil {
			c.handler.Received(c.id, frame)
		}
	}
}

func (c *Client) writeLoop(conn *websocket.Conn) error {
	for {
		select {
		case <-c.ctx.Done():
			return ErrClosed
		case req := <-c.queue:
			if err := c.pacer.Wait(c.ctx); err != nil {
				return err
			}
			if err := c.write(conn, req); err != nil {
				return err
			}
		}
	}
}

func (c *Client) write(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx := c.ctx
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// livenessLoop pings the server and fails the connection when neither a pong
// nor any inbound frame was seen within the liveness timeout.
func (c *Client) livenessLoop(conn *websocket.Conn) error {
	interval := c.cfg.PingInterval
	if interval <= 0 || c.cfg.LivenessTimeout <= 0 {
		<-c.ctx.Done()
		return ErrClosed
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return ErrClosed
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, c.cfg.LivenessTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err == nil {
				c.touch()
			}
			if time.Since(c.seen()) > c.cfg.LivenessTimeout {
				return errStale
			}
		}
	}
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Client) seen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Client) logClose(err error) {
	if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) {
		c.log.Info("ws connection closed")
		return
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			c.log.Info("ws read loop ended", zap.Int("status", int(closeErr.Code)), zap.String("reason", closeErr.Reason))
			return
		}
	}
	c.log.Warn("ws connection lost", zap.Error(err))
}
