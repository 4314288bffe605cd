package signal

import (
	"time"

	"bn-strike-bot/internal/metrics"
	"bn-strike-bot/internal/sched"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	tenK    = decimal.NewFromInt(10000)
)

type StrikeAlert struct {
	Symbol      string
	Price       decimal.Decimal
	Count       int
	UnitPercent decimal.Decimal
	Quote       string
}

type ApeInAlert struct {
	Symbol  string
	Percent decimal.Decimal
}

// Notifier delivers alerts. Implementations must not block the caller.
type Notifier interface {
	NotifyStrike(alert StrikeAlert)
	NotifyApeIn(alert ApeInAlert)
}

// StrikeEngine runs the price-strike ladder on trade ticks.
type StrikeEngine struct {
	unit     decimal.Decimal
	timeout  time.Duration
	clock    sched.Scheduler
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewStrikeEngine(unitPercent float64, timeout time.Duration, clock sched.Scheduler, notifier Notifier, log *zap.Logger, m *metrics.Metrics) *StrikeEngine {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &StrikeEngine{
		unit:     decimal.NewFromFloat(unitPercent),
		timeout:  timeout,
		clock:    clock,
		notifier: notifier,
		metrics:  m,
		log:      log.With(zap.String("component", "strike")),
	}
}

// OnTrade feeds one trade price into st.
//
// While idle the threshold follows the lowest price seen times (1+unit). A
// price at or above the threshold is a strike: the first strike fixes the
// unit step, every later one notifies. Each strike re-arms the idle reset for
// timeout times the strike count and raises the threshold by one step.
func (e *StrikeEngine) OnTrade(st *Strike, mkt Market, price decimal.Decimal) {
	places := int32(mkt.QuoteDecimals)
	var candidate decimal.Decimal
	if st.Count == 0 {
		candidate = price.Mul(one.Add(e.unit)).Round(places)
	} else {
		candidate = st.Threshold.Add(st.Unit)
	}
	if st.Threshold.IsZero() || candidate.LessThan(st.Threshold) {
		st.Threshold = candidate
	}
	if st.Threshold.IsZero() || price.LessThan(st.Threshold) {
		return
	}

	st.Count++
	if st.Count == 1 {
		st.Unit = st.Threshold.Mul(e.unit).Div(one.Add(e.unit)).Round(places)
	} else {
		e.metrics.StrikesNotified.Inc()
		e.log.Info("strike",
			zap.String("symbol", mkt.Symbol), zap.String("price", price.String()), zap.Int("count", st.Count))
		if e.notifier != nil {
			e.notifier.NotifyStrike(StrikeAlert{
				Symbol:      mkt.Symbol,
				Price:       price,
				Count:       st.Count,
				UnitPercent: e.unit,
				Quote:       mkt.Quote,
			})
		}
	}

	sched.Stop(st.Reset)
	st.Reset = e.clock.AfterFunc(e.timeout*time.Duration(st.Count), st.clear)
	st.Threshold = st.Threshold.Add(st.Unit)
}

// ApeInEngine alerts on deep drops from the 24h high.
type ApeInEngine struct {
	start     decimal.Decimal
	increment decimal.Decimal
	timeout   time.Duration
	clock     sched.Scheduler
	notifier  Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewApeInEngine(start, increment float64, timeout time.Duration, clock sched.Scheduler, notifier Notifier, log *zap.Logger, m *metrics.Metrics) *ApeInEngine {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &ApeInEngine{
		start:     decimal.NewFromFloat(start),
		increment: decimal.NewFromFloat(increment),
		timeout:   timeout,
		clock:     clock,
		notifier:  notifier,
		metrics:   m,
		log:       log.With(zap.String("component", "ape_in")),
	}
}

// PercentFromHigh is ((last-high)/high) as a percentage rounded to two places.
func PercentFromHigh(last, high decimal.Decimal) decimal.Decimal {
	return last.Sub(high).Div(high).Mul(tenK).Round(0).Div(hundred)
}

// OnTicker feeds one 24h ticker update into st.
func (e *ApeInEngine) OnTicker(st *ApeIn, mkt Market, last, high decimal.Decimal) {
	if high.Sign() <= 0 {
		return
	}
	if !st.Set {
		st.Threshold = e.start
		st.Set = true
	}
	pct := PercentFromHigh(last, high)
	if !pct.LessThan(st.Threshold) {
		return
	}
	e.metrics.ApeInsNotified.Inc()
	e.log.Info("ape-in", zap.String("symbol", mkt.Symbol), zap.String("percent", pct.String()),
		zap.String("threshold", st.Threshold.String()))
	if e.notifier != nil {
		e.notifier.NotifyApeIn(ApeInAlert{Symbol: mkt.Symbol, Percent: pct})
	}
	st.Threshold = st.Threshold.Add(e.increment)
	sched.Stop(st.Reset)
	st.Reset = e.clock.AfterFunc(e.timeout, func() {
		st.Threshold = e.start
		st.Reset = nil
	})
}
