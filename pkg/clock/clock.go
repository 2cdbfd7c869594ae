// Package clock converts score playback into beat-relative timing events.
//
// A TempoClock samples each quarter note at a fixed number of subdivisions and
// emits a TickEvent per sample to every subscriber. Pausing re-anchors the
// position to the start of the current measure so beat counting stays
// musically meaningful across pause/resume.
package clock

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/zurustar/beatbrawl/pkg/logger"
	"github.com/zurustar/beatbrawl/pkg/score"
)

// DefaultSubdivisions is the number of samples taken per quarter note.
const DefaultSubdivisions = 5

// ScoreSource supplies the score once it has finished loading.
// score.Loader implements it.
type ScoreSource interface {
	Ready() <-chan struct{}
	Score() *score.Score
}

// Handler receives tick events. Handlers run on the clock goroutine one after
// another and must not call Toggle.
type Handler func(TickEvent)

type subscription struct {
	id int
	fn Handler
}

// TempoClock is the shared tempo clock. The zero value is not usable; use New.
type TempoClock struct {
	src          ScoreSource
	subdivisions int
	newTicker    TickerFactory
	log          *slog.Logger

	// ctrl serialises Toggle so start and pause never interleave.
	ctrl sync.Mutex

	mu       sync.Mutex
	running  bool
	tick     int
	step     int
	interval time.Duration
	ticker   Ticker
	stopCh   chan struct{}
	doneCh   chan struct{}

	subsMu sync.RWMutex
	subs   []subscription
	nextID int
}

// Option configures a TempoClock.
type Option func(*TempoClock)

// WithSubdivisions sets how many samples are taken per quarter note.
func WithSubdivisions(n int) Option {
	return func(c *TempoClock) {
		if n > 0 {
			c.subdivisions = n
		}
	}
}

// WithTickerFactory replaces the wall-clock ticker, mainly for tests.
func WithTickerFactory(f TickerFactory) Option {
	return func(c *TempoClock) {
		if f != nil {
			c.newTicker = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *TempoClock) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a stopped clock at tick 0.
func New(src ScoreSource, opts ...Option) *TempoClock {
	c := &TempoClock{
		src:          src,
		subdivisions: DefaultSubdivisions,
		newTicker:    NewRealTicker,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StepSize returns the tick advance per sample. It is ppq/subdivisions when
// that divides evenly, otherwise the largest divisor of ppq below it, so that
// every beat boundary is sampled exactly.
func StepSize(ppq, subdivisions int) int {
	if ppq <= 0 || subdivisions <= 0 {
		return 1
	}
	for step := ppq / subdivisions; step > 1; step-- {
		if ppq%step == 0 {
			return step
		}
	}
	return 1
}

// Interval returns the wall-clock time between samples:
// (60000 / (tempoBPM * ppq)) * step milliseconds.
func Interval(tempoBPM float64, ppq, step int) time.Duration {
	ms := (60000.0 / (tempoBPM * float64(ppq))) * float64(step)
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

// Ready is closed once the backing score is available.
func (c *TempoClock) Ready() <-chan struct{} {
	return c.src.Ready()
}

func (c *TempoClock) loadedScore() *score.Score {
	select {
	case <-c.src.Ready():
		return c.src.Score()
	default:
		return nil
	}
}

// Subscribe registers fn for every tick event. Subscribers are called in
// registration order. The returned function removes the subscription.
func (c *TempoClock) Subscribe(fn Handler) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			defer c.subsMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Toggle pauses a running clock or starts a stopped one. It does nothing
// while the score is still loading.
func (c *TempoClock) Toggle() {
	c.ctrl.Lock()
	defer c.ctrl.Unlock()

	if c.Running() {
		c.pause()
	} else {
		c.start()
	}
}

// Running reports whether ticks are being emitted.
func (c *TempoClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Tick returns the current playback position.
func (c *TempoClock) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Step returns the tick advance per sample, or 0 before the score is ready.
func (c *TempoClock) Step() int {
	s := c.loadedScore()
	if s == nil {
		return 0
	}
	return StepSize(s.TicksPerQuarterNote, c.subdivisions)
}

// SampleInterval returns the time between samples, or 0 before the score is ready.
func (c *TempoClock) SampleInterval() time.Duration {
	s := c.loadedScore()
	if s == nil {
		return 0
	}
	return Interval(s.TempoBPM, s.TicksPerQuarterNote, StepSize(s.TicksPerQuarterNote, c.subdivisions))
}

func (c *TempoClock) start() {
	s := c.loadedScore()
	if s == nil {
		return
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	ppq := s.TicksPerQuarterNote
	step := StepSize(ppq, c.subdivisions)
	interval := Interval(s.TempoBPM, ppq, step)
	if interval <= 0 {
		c.mu.Unlock()
		c.log.Error("Clock cannot start", "tempo_bpm", s.TempoBPM, "ppq", ppq, "interval", interval)
		return
	}
	c.step = step
	c.interval = interval
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.ticker = c.newTicker(c.interval)
	startTick := c.tick
	ticker, stopCh, doneCh := c.ticker, c.stopCh, c.doneCh
	c.mu.Unlock()

	c.log.Info("Clock started",
		"tick", startTick,
		"tempo_bpm", s.TempoBPM,
		"ppq", ppq,
		"step", c.step,
		"interval", c.interval)

	go c.run(ppq, ticker, stopCh, doneCh)
}

// run emits the current position immediately, then one event per ticker fire.
func (c *TempoClock) run(ppq int, ticker Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	c.emit(Position(c.Tick(), ppq))

	for {
		select {
		case <-stopCh:
			return
		case _, ok := <-ticker.C():
			if !ok {
				return
			}
			// stop wins over a tick that fired at the same time
			select {
			case <-stopCh:
				return
			default:
			}

			c.mu.Lock()
			c.tick += c.step
			tick := c.tick
			c.mu.Unlock()

			c.emit(Position(tick, ppq))
		}
	}
}

func (c *TempoClock) emit(ev TickEvent) {
	if ev.TickHasReachedBeat {
		c.log.Debug("Beat", "tick", ev.Tick, "beat", ev.ClosestBeat)
	}

	c.subsMu.RLock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.subsMu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// pause stops emission, waits for the emission goroutine to exit and moves
// the position back to the start of the current measure.
func (c *TempoClock) pause() {
	s := c.loadedScore()
	if s == nil {
		return
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	doneCh := c.doneCh
	c.mu.Unlock()

	// no callback may run after pause returns
	<-doneCh

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.stopCh = nil
	c.doneCh = nil

	from := c.tick
	c.tick = MeasureStart(c.tick, s.TicksPerQuarterNote)
	c.log.Info("Clock paused", "tick", from, "resume_tick", c.tick)
}
