package catalog

import (
	"sort"
	"strings"
)

const StatusTrading = "TRADING"

// Instrument is one exchange symbol as listed by the catalog endpoint.
type Instrument struct {
	Symbol        string
	Base          string
	Quote         string
	Status        string
	BaseDecimals  int
	QuoteDecimals int
}

func (i Instrument) Trading() bool {
	return i.Status == StatusTrading
}

// Snapshot maps base asset to quote asset to instrument. A snapshot is
// replaced wholesale on every sync and never mutated afterwards.
type Snapshot map[string]map[string]Instrument

func Build(instruments []Instrument) Snapshot {
	snap := make(Snapshot)
	for _, inst := range instruments {
		base := strings.ToUpper(inst.Base)
		quote := strings.ToUpper(inst.Quote)
		if base == "" || quote == "" {
			continue
		}
		inst.Base = base
		inst.Quote = quote
		quotes, ok := snap[base]
		if !ok {
			quotes = make(map[string]Instrument)
			snap[base] = quotes
		}
		quotes[quote] = inst
	}
	return snap
}

func (s Snapshot) Lookup(base, quote string) (Instrument, bool) {
	quotes, ok := s[base]
	if !ok {
		return Instrument{}, false
	}
	inst, ok := quotes[quote]
	return inst, ok
}

func (s Snapshot) Len() int {
	n := 0
	for _, quotes := range s {
		n += len(quotes)
	}
	return n
}

// Diff is the outcome of comparing the tracked pairs with a fresh snapshot.
// Add and Remove never share a base asset.
type Diff struct {
	Add    []Instrument
	Remove []string
}

func (d Diff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Compute diffs tracked (base asset to quote asset) against next. A tracked
// base is removed when it vanished, when its quote vanished, or when its
// instrument stopped trading. An untracked base is added with the first
// supported quote, in configured order, that is trading. Results are sorted
// by base asset.
func Compute(tracked map[string]string, next Snapshot, quotes []string) Diff {
	var diff Diff
	for base, quote := range tracked {
		inst, ok := next.Lookup(base, quote)
		if !ok || !inst.Trading() {
			diff.Remove = append(diff.Remove, base)
		}
	}
	for base := range next {
		if _, ok := tracked[base]; ok {
			continue
		}
		if inst, ok := Select(next, base, quotes); ok {
			diff.Add = append(diff.Add, inst)
		}
	}
	sort.Strings(diff.Remove)
	sort.Slice(diff.Add, func(i, j int) bool { return diff.Add[i].Base < diff.Add[j].Base })
	return diff
}

// Select picks the instrument to track for base.
func Select(snap Snapshot, base string, quotes []string) (Instrument, bool) {
	for _, quote := range quotes {
		inst, ok := snap.Lookup(base, quote)
		if ok && inst.Trading() {
			return inst, true
		}
	}
	return Instrument{}, false
}
