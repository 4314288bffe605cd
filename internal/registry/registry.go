package registry

import (
	"errors"
	"fmt"
	"sort"

	"bn-strike-bot/internal/catalog"
	"bn-strike-bot/internal/signal"
)

var (
	ErrExists         = errors.New("pair already tracked")
	ErrSymbolConflict = errors.New("symbol already tracked under another base asset")
)

// Pair is one tracked trading pair, keyed by base asset.
//
// Home is the connection the pair is placed on, set as soon as the pool
// reserves a slot. ConnID is set only once the subscription is acknowledged.
type Pair struct {
	Base          string
	Quote         string
	Symbol        string
	BaseDecimals  int
	QuoteDecimals int

	Home     string
	ConnID   string
	Removing bool

	Strike signal.Strike
	ApeIn  signal.ApeIn
}

func (p *Pair) Market() signal.Market {
	return signal.Market{Symbol: p.Symbol, Quote: p.Quote, QuoteDecimals: p.QuoteDecimals}
}

func (p *Pair) stop() {
	p.Strike.Stop()
	p.ApeIn.Stop()
}

// Registry is the table of tracked pairs. It is owned by a single goroutine
// and is not safe for concurrent use.
type Registry struct {
	byBase   map[string]*Pair
	bySymbol map[string]*Pair
}

func New() *Registry {
	return &Registry{
		byBase:   make(map[string]*Pair),
		bySymbol: make(map[string]*Pair),
	}
}

// Create adds an unassigned pair with no strike activity.
func (r *Registry) Create(inst catalog.Instrument) (*Pair, error) {
	if _, ok := r.byBase[inst.Base]; ok {
		return nil, fmt.Errorf("%s: %w", inst.Base, ErrExists)
	}
	if other, ok := r.bySymbol[inst.Symbol]; ok {
		return nil, fmt.Errorf("%s held by %s: %w", inst.Symbol, other.Base, ErrSymbolConflict)
	}
	p := &Pair{
		Base:          inst.Base,
		Quote:         inst.Quote,
		Symbol:        inst.Symbol,
		BaseDecimals:  inst.BaseDecimals,
		QuoteDecimals: inst.QuoteDecimals,
	}
	r.byBase[p.Base] = p
	r.bySymbol[p.Symbol] = p
	return p, nil
}

// Remove cancels the pair's timers and deletes it.
func (r *Registry) Remove(base string) bool {
	p, ok := r.byBase[base]
	if !ok {
		return false
	}
	p.stop()
	delete(r.byBase, base)
	delete(r.bySymbol, p.Symbol)
	return true
}

func (r *Registry) Get(base string) *Pair {
	return r.byBase[base]
}

func (r *Registry) BySymbol(symbol string) *Pair {
	return r.bySymbol[symbol]
}

// ByConn returns the acknowledged pairs on connection id.
func (r *Registry) ByConn(id string) []*Pair {
	return r.filter(func(p *Pair) bool { return p.ConnID == id })
}

// ByHome returns every pair placed on connection id, acknowledged or not.
func (r *Registry) ByHome(id string) []*Pair {
	return r.filter(func(p *Pair) bool { return p.Home == id })
}

// All returns the pairs sorted by base asset.
func (r *Registry) All() []*Pair {
	return r.filter(func(*Pair) bool { return true })
}

// Tracked maps base asset to quote asset for catalog diffing.
func (r *Registry) Tracked() map[string]string {
	out := make(map[string]string, len(r.byBase))
	for base, p := range r.byBase {
		out[base] = p.Quote
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.byBase)
}

// Clear cancels every timer and empties the registry.
func (r *Registry) Clear() {
	for _, p := range r.byBase {
		p.stop()
	}
	r.byBase = make(map[string]*Pair)
	r.bySymbol = make(map[string]*Pair)
}

func (r *Registry) filter(keep func(*Pair) bool) []*Pair {
	var out []*Pair
	for _, p := range r.byBase {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}
