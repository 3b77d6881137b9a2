package app

import (
	"sync/atomic"
	"testing"
	"time"
)

type stubTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (s *stubTicker) C() <-chan time.Time { return s.ch }
func (s *stubTicker) Stop()               { s.stopped.Store(true) }

func TestTimerStopsWhenTickReturnsFalse(t *testing.T) {
	ticker := &stubTicker{ch: make(chan time.Time)}
	timer := NewTimer(time.Second, func(time.Duration) Ticker { return ticker })

	var ticks atomic.Int32
	timer.Start(func(step time.Duration) bool {
		if step != time.Second {
			t.Errorf("unexpected step %v", step)
		}
		return ticks.Add(1) < 2
	})
	ticker.ch <- time.Now()
	ticker.ch <- time.Now()

	select {
	case <-timer.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not stop")
	}
	if ticks.Load() != 2 || !ticker.stopped.Load() {
		t.Fatalf("expected 2 ticks and a stopped ticker, got %d %v", ticks.Load(), ticker.stopped.Load())
	}
}

func TestTimerStopIsIdempotentAndSafeInsideTick(t *testing.T) {
	ticker := &stubTicker{ch: make(chan time.Time)}
	timer := NewTimer(time.Second, func(time.Duration) Ticker { return ticker })

	timer.Start(func(time.Duration) bool {
		timer.Stop()
		timer.Stop()
		return true
	})
	ticker.ch <- time.Now()

	select {
	case <-timer.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not exit after Stop")
	}
	timer.Stop()
}
