package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestInterval(t *testing.T) {
	cases := []struct {
		perSecond int
		want      time.Duration
	}{
		{perSecond: 5, want: 200 * time.Millisecond},
		{perSecond: 3, want: 333 * time.Millisecond},
		{perSecond: 1000, want: time.Millisecond},
		{perSecond: 2000, want: 0},
		{perSecond: 0, want: 0},
	}
	for _, tc := range cases {
		if got := Interval(tc.perSecond); got != tc.want {
			t.Fatalf("Interval(%d) expected %v, got %v", tc.perSecond, tc.want, got)
		}
	}
}

func TestPacerSpacesSends(t *testing.T) {
	p := NewPacer(100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	// The first send is immediate; three more need three intervals.
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("expected sends spaced by %v, took %v", p.Interval(), elapsed)
	}
}

func TestPacerWaitHonoursContext(t *testing.T) {
	p := NewPacer(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}
