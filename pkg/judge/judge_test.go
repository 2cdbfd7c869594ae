package judge

import (
	"math"
	"sync"
	"testing"

	"github.com/zurustar/beatbrawl/pkg/clock"
)

const testPPQ = 480

type recordingSink struct {
	mu      sync.Mutex
	damages []float64
}

func (s *recordingSink) ApplyDamage(actor string, damage float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.damages = append(s.damages, damage)
}

func (s *recordingSink) all() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.damages...)
}

// recordingDispatcher never acknowledges animations by itself.
type recordingDispatcher struct {
	mu          sync.Mutex
	transitions []Transition
}

func (d *recordingDispatcher) Transition(actor string, tr Transition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transitions = append(d.transitions, tr)
}

func (d *recordingDispatcher) last() Transition {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transitions[len(d.transitions)-1]
}

func tickAll(j *Judge, ticks ...int) {
	for _, tick := range ticks {
		j.HandleTick(clock.Position(tick, testPPQ))
	}
}

// samples returns ticks from..to inclusive in steps of 96 (5 per beat).
func samples(from, to int) []int {
	var out []int
	for t := from; t <= to; t += 96 {
		out = append(out, t)
	}
	return out
}

func TestPress_StartsCharging(t *testing.T) {
	d := &recordingDispatcher{}
	j := New("player", WithDispatcher(d))

	j.Press()

	if j.State() != Charging {
		t.Fatalf("state = %v, want Charging", j.State())
	}
	if tr := d.last(); tr.State != Charging {
		t.Errorf("transition = %+v, want Charging", tr)
	}
	snap := j.Snapshot()
	if snap.BeatsSinceCharging != nil || snap.LastPercentageToBeat != nil {
		t.Errorf("fresh charge should have no counts: %+v", snap)
	}
}

func TestFirstTick_InitializesCount(t *testing.T) {
	j := New("player")
	j.Press()
	tickAll(j, 1056) // pct 0.2, closest beat round(2.2)+1 = 3

	snap := j.Snapshot()
	if snap.BeatsSinceCharging == nil {
		t.Fatal("BeatsSinceCharging should be set after the first tick")
	}
	if *snap.BeatsSinceCharging != (BeatCount{ElapsedBeats: 0, AnchorBeat: 3}) {
		t.Errorf("count = %+v, want {0 3}", *snap.BeatsSinceCharging)
	}
	if snap.LastPercentageToBeat == nil || math.Abs(*snap.LastPercentageToBeat-0.2) > 1e-9 {
		t.Errorf("last pct = %v, want 0.2", snap.LastPercentageToBeat)
	}
}

func TestRelease_OnTargetBeatDealsMaxDamage(t *testing.T) {
	sink := &recordingSink{}
	d := &recordingDispatcher{}
	j := New("player", WithDamageSink(sink), WithDispatcher(d))

	j.Press()
	tickAll(j, samples(0, 960)...)
	if got := j.Snapshot().BeatsSinceCharging.ElapsedBeats; got != 2 {
		t.Fatalf("elapsed beats at tick 960 = %d, want 2", got)
	}
	j.Press()

	damages := sink.all()
	if len(damages) != 1 || math.Abs(damages[0]-DefaultMaxDamage) > 1e-9 {
		t.Fatalf("damages = %v, want [%v]", damages, DefaultMaxDamage)
	}
	tr := d.last()
	if tr.State != Attacking || tr.Outcome != OutcomeSuccess || tr.Grade != GradePerfect {
		t.Errorf("transition = %+v, want Attacking/success/Perfect", tr)
	}
	snap := j.Snapshot()
	if !snap.Attacking || snap.ChargingAttack || snap.BeatsSinceCharging != nil || snap.LastPercentageToBeat != nil {
		t.Errorf("after release state = %+v, want attacking with cleared charge", snap)
	}
}

func TestRelease_TooEarlyIsPenalty(t *testing.T) {
	sink := &recordingSink{}
	j := New("player", WithDamageSink(sink), WithMaxDamage(0.25))

	j.Press()
	tickAll(j, 0, 96)
	j.Press()

	if got := sink.all(); len(got) != 1 || got[0] != -0.25 {
		t.Errorf("damages = %v, want [-0.25]", got)
	}
}

func TestRelease_BeforeAnyTickIsPenalty(t *testing.T) {
	sink := &recordingSink{}
	j := New("player", WithDamageSink(sink))

	j.Press()
	j.Press()

	if got := sink.all(); len(got) != 1 || got[0] != -DefaultMaxDamage {
		t.Errorf("damages = %v, want [%v]", got, -DefaultMaxDamage)
	}
}

func TestTimeout_AfterHalfOfThirdBeat(t *testing.T) {
	sink := &recordingSink{}
	d := &recordingDispatcher{}
	j := New("player", WithDamageSink(sink), WithDispatcher(d))

	j.Press()
	tickAll(j, samples(0, 1152)...) // up to pct 0.4 after two beats
	if j.State() != Charging {
		t.Fatalf("state = %v, want still Charging", j.State())
	}

	tickAll(j, 1248) // pct 0.6
	if j.State() != Attacking {
		t.Fatalf("state = %v, want Attacking after timeout", j.State())
	}
	if got := sink.all(); len(got) != 1 || got[0] != -DefaultMaxDamage {
		t.Errorf("damages = %v, want [%v]", got, -DefaultMaxDamage)
	}
	if tr := d.last(); tr.Outcome != OutcomeTimeout || tr.Grade != GradeMiss {
		t.Errorf("transition = %+v, want timeout/Miss", tr)
	}
	if snap := j.Snapshot(); snap.ChargingAttack || snap.BeatsSinceCharging != nil {
		t.Errorf("charge data should be cleared: %+v", snap)
	}

	// further ticks do nothing
	tickAll(j, 1344, 1440)
	if got := sink.all(); len(got) != 1 {
		t.Errorf("damages after timeout = %v, want one entry", got)
	}
}

func TestPress_IgnoredWhileAttacking(t *testing.T) {
	sink := &recordingSink{}
	d := &recordingDispatcher{}
	j := New("player", WithDamageSink(sink), WithDispatcher(d))

	j.Press()
	j.Press()
	j.Press()

	if j.State() != Attacking {
		t.Fatalf("state = %v, want Attacking", j.State())
	}
	if got := sink.all(); len(got) != 1 {
		t.Errorf("damages = %v, want exactly one", got)
	}

	j.AnimationComplete()
	if j.State() != Idle {
		t.Fatalf("state = %v, want Idle", j.State())
	}
	if tr := d.last(); tr.State != Idle {
		t.Errorf("transition = %+v, want Idle", tr)
	}

	j.Press()
	if j.State() != Charging {
		t.Errorf("state = %v, want Charging after acknowledgement", j.State())
	}
}

func TestWithoutDispatcher_ReturnsToIdle(t *testing.T) {
	j := New("opponent")
	j.Press()
	j.Press()
	if j.State() != Idle {
		t.Errorf("state = %v, want Idle without a dispatcher", j.State())
	}
}

func TestAnimationComplete_NoOpWhenNotAttacking(t *testing.T) {
	d := &recordingDispatcher{}
	j := New("player", WithDispatcher(d))

	j.AnimationComplete()
	j.Press()
	j.AnimationComplete()

	if j.State() != Charging {
		t.Errorf("state = %v, want Charging", j.State())
	}
	if len(d.transitions) != 1 {
		t.Errorf("transitions = %+v, want only the Charging one", d.transitions)
	}
}

func TestHandleTick_IgnoredWhenIdle(t *testing.T) {
	j := New("player")
	tickAll(j, samples(0, 2400)...)

	snap := j.Snapshot()
	if snap.ChargingAttack || snap.BeatsSinceCharging != nil || snap.LastPercentageToBeat != nil {
		t.Errorf("idle judge changed state: %+v", snap)
	}
}

func TestHandleTick_BeatMatchingAnchorIsNotCounted(t *testing.T) {
	j := New("player")
	j.Press()

	// 1296 is 2.7 beats in: it rounds to the upcoming beat 4, so the
	// arrival on beat 4 at 1440 adds nothing
	tickAll(j, 1296, 1344, 1440)
	if got := j.Snapshot().BeatsSinceCharging.ElapsedBeats; got != 0 {
		t.Fatalf("elapsed = %d, want 0", got)
	}

	tickAll(j, samples(1536, 1920)...)
	bc := j.Snapshot().BeatsSinceCharging
	if bc.ElapsedBeats != 1 || bc.AnchorBeat != 1 {
		t.Errorf("count = %+v, want {1 1} after the measure boundary", *bc)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "Idle", Charging: "Charging", Attacking: "Attacking", State(9): "Unknown"} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
