package signal

import (
	"bn-strike-bot/internal/sched"

	"github.com/shopspring/decimal"
)

// Strike is the per-pair price-strike ladder. All fields are zero while
// Count is zero.
type Strike struct {
	Count     int
	Threshold decimal.Decimal
	Unit      decimal.Decimal
	Reset     sched.Timer
}

func (s *Strike) clear() {
	s.Count = 0
	s.Threshold = decimal.Zero
	s.Unit = decimal.Zero
	s.Reset = nil
}

// Stop cancels the reset timer and zeroes the ladder.
func (s *Strike) Stop() {
	sched.Stop(s.Reset)
	s.clear()
}

// ApeIn is the per-pair dip ladder keyed on percent change from the 24h high.
type ApeIn struct {
	Threshold decimal.Decimal
	Set       bool
	Reset     sched.Timer
}

func (a *ApeIn) Stop() {
	sched.Stop(a.Reset)
	a.Reset = nil
	a.Threshold = decimal.Zero
	a.Set = false
}

// Market identifies the pair a tick belongs to.
type Market struct {
	Symbol        string
	Quote         string
	QuoteDecimals int
}
