package alerts

import (
	"context"
	"time"

	"bn-strike-bot/internal/config"
	"bn-strike-bot/internal/signal"

	"go.uber.org/zap"
)

type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher queues notifications and delivers them to every sender from a
// single worker, retrying each sender a bounded number of times.
type Dispatcher struct {
	user     string
	senders  []Sender
	queue    chan Message
	attempts int
	delay    time.Duration
	log      *zap.Logger
}

func NewDispatcher(cfg config.NotifyConfig, senders []Sender, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Dispatcher{
		user:     cfg.UserName,
		senders:  senders,
		queue:    make(chan Message, size),
		attempts: attempts,
		delay:    cfg.RetryDelay,
		log:      log.With(zap.String("component", "alerts")),
	}
}

// Enqueue never blocks; a full queue drops the message.
func (d *Dispatcher) Enqueue(msg Message) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		d.log.Warn("notification queue full, dropping message", zap.Stringer("kind", msg.Kind), zap.String("subject", msg.Subject))
		return false
	}
}

func (d *Dispatcher) NotifyStart() {
	d.Enqueue(StartMessage(d.user))
}

func (d *Dispatcher) NotifyStrike(a signal.StrikeAlert) {
	d.Enqueue(StrikeMessage(d.user, a))
}

func (d *Dispatcher) NotifyApeIn(a signal.ApeInAlert) {
	d.Enqueue(ApeInMessage(d.user, a))
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.queue:
			for _, s := range d.senders {
				d.deliver(ctx, s, msg)
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s Sender, msg Message) {
	for attempt := 1; attempt <= d.attempts; attempt++ {
		err := s.Send(ctx, msg)
		if err == nil {
			return
		}
		if attempt == d.attempts {
			d.log.Error("notification delivery failed",
				zap.String("sender", s.Name()), zap.Stringer("kind", msg.Kind), zap.Int("attempt", attempt), zap.Error(err))
			return
		}
		d.log.Warn("notification delivery retry",
			zap.String("sender", s.Name()), zap.Stringer("kind", msg.Kind), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.delay):
		}
	}
}
