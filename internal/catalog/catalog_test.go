package catalog

import (
	"reflect"
	"testing"
)

func inst(base, quote, status string) Instrument {
	return Instrument{Symbol: base + quote, Base: base, Quote: quote, Status: status, BaseDecimals: 8, QuoteDecimals: 2}
}

func TestBuildGroupsByBase(t *testing.T) {
	snap := Build([]Instrument{
		inst("BTC", "USDT", StatusTrading),
		inst("BTC", "EUR", StatusTrading),
		inst("eth", "usdt", "BREAK"),
		{Symbol: "X"},
	})
	if len(snap) != 2 || snap.Len() != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	got, ok := snap.Lookup("ETH", "USDT")
	if !ok || got.Trading() {
		t.Fatalf("expected normalised non-trading ETHUSDT, got %+v %v", got, ok)
	}
}

func TestComputeInitialSelection(t *testing.T) {
	snap := Build([]Instrument{
		inst("BTC", "USDT", StatusTrading),
		inst("BTC", "BUSD", StatusTrading),
		inst("ETH", "BUSD", StatusTrading),
		inst("ETH", "USDT", "BREAK"),
		inst("XRP", "EUR", StatusTrading),
	})
	diff := Compute(nil, snap, []string{"USDT", "BUSD"})
	if len(diff.Remove) != 0 {
		t.Fatalf("unexpected removals %v", diff.Remove)
	}
	want := []Instrument{inst("BTC", "USDT", StatusTrading), inst("ETH", "BUSD", StatusTrading)}
	if !reflect.DeepEqual(diff.Add, want) {
		t.Fatalf("expected %+v, got %+v", want, diff.Add)
	}
}

func TestComputeRemovals(t *testing.T) {
	tracked := map[string]string{"BTC": "USDT", "ETH": "USDT", "LTC": "USDT", "SOL": "USDT"}
	next := Build([]Instrument{
		inst("BTC", "USDT", StatusTrading),
		inst("ETH", "BUSD", StatusTrading),
		inst("LTC", "USDT", "BREAK"),
	})
	diff := Compute(tracked, next, []string{"USDT", "BUSD"})
	if want := []string{"ETH", "LTC", "SOL"}; !reflect.DeepEqual(diff.Remove, want) {
		t.Fatalf("expected removals %v, got %v", want, diff.Remove)
	}
	if len(diff.Add) != 0 {
		t.Fatalf("tracked bases must not be re-added in the same cycle, got %+v", diff.Add)
	}
}

func TestComputeAddsNewListings(t *testing.T) {
	tracked := map[string]string{"BTC": "USDT"}
	next := Build([]Instrument{
		inst("BTC", "USDT", StatusTrading),
		inst("PEPE", "USDT", StatusTrading),
		inst("WIF", "USDT", "PRE_TRADING"),
	})
	diff := Compute(tracked, next, []string{"USDT"})
	if len(diff.Add) != 1 || diff.Add[0].Base != "PEPE" {
		t.Fatalf("expected PEPE added, got %+v", diff.Add)
	}
	if len(diff.Remove) != 0 {
		t.Fatalf("unexpected removals %v", diff.Remove)
	}
}

func TestComputeDisjointAndFromTracked(t *testing.T) {
	tracked := map[string]string{"A": "USDT", "B": "USDT", "C": "BUSD"}
	next := Build([]Instrument{
		inst("A", "USDT", "BREAK"),
		inst("B", "BUSD", StatusTrading),
		inst("C", "BUSD", StatusTrading),
		inst("D", "USDT", StatusTrading),
		inst("E", "BUSD", StatusTrading),
	})
	diff := Compute(tracked, next, []string{"USDT", "BUSD"})
	adds := make(map[string]bool)
	for _, a := range diff.Add {
		adds[a.Base] = true
	}
	for _, base := range diff.Remove {
		if adds[base] {
			t.Fatalf("base %s in both add and remove sets", base)
		}
		if _, ok := tracked[base]; !ok {
			t.Fatalf("removed base %s was never tracked", base)
		}
	}
	if len(diff.Add) != 2 || len(diff.Remove) != 2 {
		t.Fatalf("unexpected diff %+v", diff)
	}
}

func TestComputeUnchangedCatalogIsEmpty(t *testing.T) {
	snap := Build([]Instrument{
		inst("BTC", "USDT", StatusTrading),
		inst("ETH", "USDT", StatusTrading),
		inst("LTC", "USDT", "BREAK"),
	})
	quotes := []string{"USDT"}
	first := Compute(nil, snap, quotes)
	tracked := make(map[string]string)
	for _, a := range first.Add {
		tracked[a.Base] = a.Quote
	}
	if again := Compute(tracked, snap, quotes); !again.Empty() {
		t.Fatalf("expected empty diff, got %+v", again)
	}
}
