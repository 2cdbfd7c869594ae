// Package judge implements the per-actor charge/release state machine that
// grades attacks by how closely the release lands on the target beat.
package judge

import (
	"log/slog"
	"sync"

	"github.com/zurustar/beatbrawl/pkg/clock"
	"github.com/zurustar/beatbrawl/pkg/logger"
)

// State is the externally visible state of a Judge.
type State int

const (
	Idle State = iota
	Charging
	Attacking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Charging:
		return "Charging"
	case Attacking:
		return "Attacking"
	default:
		return "Unknown"
	}
}

// Outcome says how an attack resolved.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// Transition is sent to the Dispatcher on every state change.
// Damage, Accuracy and Grade are only set when entering Attacking.
type Transition struct {
	State    State
	Outcome  Outcome
	Damage   float64
	Accuracy float64
	Grade    Grade
}

// Dispatcher drives visuals from transitions. After an Attacking transition
// it must eventually call AnimationComplete on the judge.
type Dispatcher interface {
	Transition(actor string, tr Transition)
}

// DamageSink receives the signed damage of every resolved attack.
type DamageSink interface {
	ApplyDamage(actor string, damage float64)
}

// BeatCount tracks beats crossed since a charge began. AnchorBeat is the
// measure-relative beat at which ElapsedBeats last changed.
type BeatCount struct {
	ElapsedBeats int
	AnchorBeat   int
}

// ChargeState is the mutable state owned by one Judge.
type ChargeState struct {
	ChargingAttack       bool
	Attacking            bool
	BeatsSinceCharging   *BeatCount
	LastPercentageToBeat *float64
}

func (cs ChargeState) clone() ChargeState {
	out := ChargeState{ChargingAttack: cs.ChargingAttack, Attacking: cs.Attacking}
	if cs.BeatsSinceCharging != nil {
		bc := *cs.BeatsSinceCharging
		out.BeatsSinceCharging = &bc
	}
	if cs.LastPercentageToBeat != nil {
		p := *cs.LastPercentageToBeat
		out.LastPercentageToBeat = &p
	}
	return out
}

func (cs *ChargeState) clearCharge() {
	cs.ChargingAttack = false
	cs.BeatsSinceCharging = nil
	cs.LastPercentageToBeat = nil
}

// Judge is the rhythm judge of one actor.
type Judge struct {
	actor      string
	maxDamage  float64
	sink       DamageSink
	dispatcher Dispatcher
	log        *slog.Logger

	mu    sync.Mutex
	state ChargeState
}

// Option configures a Judge.
type Option func(*Judge)

// WithMaxDamage sets the damage of a perfect release.
func WithMaxDamage(d float64) Option {
	return func(j *Judge) {
		if d > 0 {
			j.maxDamage = d
		}
	}
}

// WithDamageSink sets where damage is sent.
func WithDamageSink(s DamageSink) Option {
	return func(j *Judge) { j.sink = s }
}

// WithDispatcher sets the transition listener. Without one the judge
// acknowledges its own attack animations immediately.
func WithDispatcher(d Dispatcher) Option {
	return func(j *Judge) { j.dispatcher = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Judge) {
		if l != nil {
			j.log = l
		}
	}
}

// New creates an idle judge for actor.
func New(actor string, opts ...Option) *Judge {
	j := &Judge{
		actor:     actor,
		maxDamage: DefaultMaxDamage,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Actor returns the actor name.
func (j *Judge) Actor() string {
	return j.actor
}

// MaxDamage returns the damage of a perfect release.
func (j *Judge) MaxDamage() float64 {
	return j.maxDamage
}

// Snapshot returns a copy of the charge state.
func (j *Judge) Snapshot() ChargeState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.clone()
}

// State returns the current state.
func (j *Judge) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case j.state.Attacking:
		return Attacking
	case j.state.ChargingAttack:
		return Charging
	default:
		return Idle
	}
}

// Press handles combat input: it starts a charge when idle and releases it
// when charging. Presses during an attack are ignored.
func (j *Judge) Press() {
	j.mu.Lock()

	if j.state.Attacking {
		j.mu.Unlock()
		j.log.Debug("Press ignored while attacking", "actor", j.actor)
		return
	}

	if !j.state.ChargingAttack {
		j.state.ChargingAttack = true
		j.state.BeatsSinceCharging = nil
		j.state.LastPercentageToBeat = nil
		j.mu.Unlock()

		j.log.Debug("Charging", "actor", j.actor)
		j.notify(Transition{State: Charging})
		return
	}

	// a release before any tick counts as zero beats: always too early
	elapsed, pct := 0, 0.0
	if j.state.BeatsSinceCharging != nil {
		elapsed = j.state.BeatsSinceCharging.ElapsedBeats
	}
	if j.state.LastPercentageToBeat != nil {
		pct = *j.state.LastPercentageToBeat
	}
	j.state.Attacking = true
	j.state.clearCharge()
	j.mu.Unlock()

	j.resolve(Transition{
		State:    Attacking,
		Outcome:  OutcomeSuccess,
		Damage:   Damage(elapsed, pct, j.maxDamage),
		Accuracy: Accuracy(elapsed, pct),
		Grade:    GradeRelease(elapsed, pct),
	}, elapsed, pct)
}

// HandleTick advances the charge with a clock event. It is a clock.Handler.
func (j *Judge) HandleTick(ev clock.TickEvent) {
	j.mu.Lock()

	if !j.state.ChargingAttack {
		j.mu.Unlock()
		return
	}

	pct := ev.PercentageToBeat
	j.state.LastPercentageToBeat = &pct

	bc := j.state.BeatsSinceCharging
	if bc == nil {
		j.state.BeatsSinceCharging = &BeatCount{ElapsedBeats: 0, AnchorBeat: ev.ClosestBeat}
		j.mu.Unlock()
		return
	}

	// measure-relative beats: a boundary is only counted once
	if ev.TickHasReachedBeat && ev.ClosestBeat != bc.AnchorBeat {
		bc.ElapsedBeats++
		bc.AnchorBeat = ev.ClosestBeat
		j.log.Debug("Beat counted", "actor", j.actor, "elapsed", bc.ElapsedBeats, "beat", ev.ClosestBeat)
	}

	if bc.ElapsedBeats < ChargingBeatCount || ev.PercentageToBeat <= 0.5 {
		j.mu.Unlock()
		return
	}

	elapsed := bc.ElapsedBeats
	j.state.Attacking = true
	j.state.clearCharge()
	j.mu.Unlock()

	j.resolve(Transition{
		State:    Attacking,
		Outcome:  OutcomeTimeout,
		Damage:   -j.maxDamage,
		Accuracy: Accuracy(elapsed, pct),
		Grade:    GradeMiss,
	}, elapsed, pct)
}

func (j *Judge) resolve(tr Transition, elapsed int, pct float64) {
	j.log.Info("Attack resolved",
		"actor", j.actor,
		"outcome", tr.Outcome,
		"elapsed_beats", elapsed,
		"percentage_to_beat", pct,
		"accuracy", tr.Accuracy,
		"grade", tr.Grade,
		"damage", tr.Damage)

	if j.sink != nil {
		j.sink.ApplyDamage(j.actor, tr.Damage)
	}
	j.notify(tr)

	if j.dispatcher == nil {
		j.AnimationComplete()
	}
}

// AnimationComplete acknowledges the end of the attack animation and returns
// the judge to Idle. It does nothing unless attacking.
func (j *Judge) AnimationComplete() {
	j.mu.Lock()
	if !j.state.Attacking {
		j.mu.Unlock()
		return
	}
	j.state.Attacking = false
	j.state.clearCharge()
	j.mu.Unlock()

	j.log.Debug("Idle", "actor", j.actor)
	j.notify(Transition{State: Idle})
}

func (j *Judge) notify(tr Transition) {
	if j.dispatcher != nil {
		j.dispatcher.Transition(j.actor, tr)
	}
}
