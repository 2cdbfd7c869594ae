// Package clocktest provides a hand-driven ticker for deterministic clock tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/zurustar/beatbrawl/pkg/clock"
)

// FireTimeout bounds how long Fire waits for the clock to take a tick.
const FireTimeout = time.Second

// Ticker is a clock.Ticker that only fires when told to.
type Ticker struct {
	c        chan time.Time
	interval time.Duration

	mu      sync.Mutex
	stopped bool
}

func (t *Ticker) C() <-chan time.Time { return t.c }

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether the clock released this ticker.
func (t *Ticker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Interval returns the interval the clock asked for.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Fire delivers one tick. It returns false if the clock did not take it
// within FireTimeout, e.g. because it is paused.
func (t *Ticker) Fire() bool {
	select {
	case t.c <- time.Now():
		return true
	case <-time.After(FireTimeout):
		return false
	}
}

// Factory hands out Tickers and remembers the most recent one.
type Factory struct {
	mu      sync.Mutex
	tickers []*Ticker
}

// New is a clock.TickerFactory.
func (f *Factory) New(d time.Duration) clock.Ticker {
	t := &Ticker{c: make(chan time.Time), interval: d}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Current returns the ticker created last, or nil.
func (f *Factory) Current() *Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

// Created returns how many tickers were handed out.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Recorder collects tick events delivered by a clock.
type Recorder struct {
	Events chan clock.TickEvent
}

// NewRecorder creates a Recorder with room for n undelivered events.
func NewRecorder(n int) *Recorder {
	return &Recorder{Events: make(chan clock.TickEvent, n)}
}

// Handle is a clock.Handler.
func (r *Recorder) Handle(ev clock.TickEvent) {
	r.Events <- ev
}

// Next waits for the next event.
func (r *Recorder) Next() (clock.TickEvent, bool) {
	select {
	case ev := <-r.Events:
		return ev, true
	case <-time.After(FireTimeout):
		return clock.TickEvent{}, false
	}
}
