package retry

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 5 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{40, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestBackoffUncapped(t *testing.T) {
	b := Backoff{Base: 10 * time.Millisecond}
	if got := b.Delay(3); got != 80*time.Millisecond {
		t.Fatalf("expected 80ms, got %s", got)
	}
	if got := (Backoff{}).Delay(3); got != 0 {
		t.Fatalf("expected zero delay without base, got %s", got)
	}
}
