package app

import (
	"sync"
	"time"
)

// Ticker is the subset of *time.Ticker the countdown needs; tests swap in a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Timer drives a single countdown. onTick returning false ends the loop.
type Timer struct {
	interval  time.Duration
	newTicker func(time.Duration) Ticker

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewTimer(interval time.Duration, newTicker func(time.Duration) Ticker) *Timer {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Timer{
		interval:  interval,
		newTicker: newTicker,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the tick loop in its own goroutine.
func (t *Timer) Start(onTick func(step time.Duration) bool) {
	ticker := t.newTicker(t.interval)
	go func() {
		defer close(t.done)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C():
				select {
				case <-t.stop:
					return
				default:
				}
				if !onTick(t.interval) {
					return
				}
			}
		}
	}()
}

// Stop never blocks, so it is safe to call from inside onTick.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Done is closed once the tick loop has exited.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}
