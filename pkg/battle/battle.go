// Package battle はクロックとジャッジをつなぎ、メーターとボットを含む一戦を管理する。
package battle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zurustar/beatbrawl/pkg/clock"
	"github.com/zurustar/beatbrawl/pkg/judge"
	"github.com/zurustar/beatbrawl/pkg/logger"
)

// DefaultAnimationBeats は攻撃アニメーションの代わりに待つ拍数
const DefaultAnimationBeats = 1

// Config はバトルの設定
type Config struct {
	// MaxDamage は完璧なリリースのダメージ (0 ならデフォルト)
	MaxDamage float64
	// BotBeat は相手ボットがチャージを始める拍 (1..4)。0 ならボットなし
	BotBeat int
	// BotLateness は目標の拍からボットがリリースを遅らせるサンプル数
	BotLateness int
	// AnimationBeats は攻撃後 AnimationComplete を送るまでの拍数
	AnimationBeats int
}

// Event はジャッジの状態遷移の通知
type Event struct {
	Actor      string
	Transition judge.Transition
	Meter      float64
}

// Status はバトルのスナップショット
type Status struct {
	ID            string  `json:"id"`
	Ready         bool    `json:"ready"`
	Running       bool    `json:"running"`
	Tick          int     `json:"tick"`
	Meter         float64 `json:"meter"`
	OpponentMeter float64 `json:"opponent_meter"`
	PlayerState   string  `json:"player_state"`
	OpponentState string  `json:"opponent_state"`
	PlayerCharge  int     `json:"player_charge"` // チャージ開始から数えた拍
	Winner        string  `json:"winner,omitempty"`
	Step          int     `json:"step"`
	IntervalMS    float64 `json:"interval_ms"`
	Audio         bool    `json:"audio"` // 音声が鳴っているか（呼び出し側が設定）
}

// Battle はプレイヤーと相手の一戦。judge.Dispatcher を実装する。
type Battle struct {
	ID       uuid.UUID
	clock    *clock.TempoClock
	meter    *Meter
	player   *Actor
	opponent *Actor
	bot      *Bot
	cfg      Config
	log      *slog.Logger

	mu          sync.Mutex
	pending     map[string]int
	listeners   []func(Event)
	winner      string
	unsubscribe func()
}

// New バトルを作成。Start を呼ぶまでクロックには接続しない
func New(c *clock.TempoClock, cfg Config, log *slog.Logger) *Battle {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.AnimationBeats < 0 {
		cfg.AnimationBeats = 0
	}

	b := &Battle{
		ID:      uuid.New(),
		clock:   c,
		cfg:     cfg,
		log:     log,
		pending: make(map[string]int),
	}
	b.meter = NewMeter(PlayerName, log)

	opts := []judge.Option{
		judge.WithMaxDamage(cfg.MaxDamage),
		judge.WithDamageSink(b.meter),
		judge.WithDispatcher(b),
		judge.WithLogger(log),
	}
	b.player = newActor(PlayerName, opts...)
	b.opponent = newActor(OpponentName, opts...)

	if cfg.BotBeat >= 1 && cfg.BotBeat <= clock.BeatsPerMeasure {
		b.bot = NewBot(b.opponent.Judge, cfg.BotBeat, cfg.BotLateness)
	}
	return b
}

// Start クロックの購読を開始
func (b *Battle) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubscribe != nil {
		return
	}
	b.unsubscribe = b.clock.Subscribe(b.handleTick)
	b.log.Info("Battle started",
		"battle_id", b.ID,
		"player_id", b.player.ID,
		"opponent_id", b.opponent.ID,
		"bot", b.bot != nil)
}

// Close クロックの購読を解除
func (b *Battle) Close() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Player プレイヤーのアクター
func (b *Battle) Player() *Actor { return b.player }

// Opponent 相手のアクター
func (b *Battle) Opponent() *Actor { return b.opponent }

// Meter バトルメーター
func (b *Battle) Meter() *Meter { return b.meter }

// Clock 共有クロック
func (b *Battle) Clock() *clock.TempoClock { return b.clock }

// Toggle 再生と一時停止を切り替える
func (b *Battle) Toggle() {
	b.clock.Toggle()
}

// PressPlayer プレイヤーの攻撃入力
func (b *Battle) PressPlayer() {
	b.player.Judge.Press()
}

// OnEvent 遷移の通知先を登録。通知はクロックまたは入力のゴルーチンから来る
func (b *Battle) OnEvent(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Status 現在の状態
func (b *Battle) Status() Status {
	ready := false
	select {
	case <-b.clock.Ready():
		ready = true
	default:
	}

	b.mu.Lock()
	winner := b.winner
	b.mu.Unlock()

	charge := 0
	if bc := b.player.Judge.Snapshot().BeatsSinceCharging; bc != nil {
		charge = bc.ElapsedBeats
	}

	return Status{
		ID:            b.ID.String(),
		Ready:         ready,
		Running:       b.clock.Running(),
		Tick:          b.clock.Tick(),
		Meter:         b.meter.Value(),
		OpponentMeter: b.meter.OpponentValue(),
		PlayerState:   b.player.Judge.State().String(),
		OpponentState: b.opponent.Judge.State().String(),
		PlayerCharge:  charge,
		Winner:        winner,
		Step:          b.clock.Step(),
		IntervalMS:    float64(b.clock.SampleInterval()) / float64(time.Millisecond),
	}
}

// Transition judge.Dispatcher の実装
func (b *Battle) Transition(actor string, tr judge.Transition) {
	ev := Event{Actor: actor, Transition: tr, Meter: b.meter.Value()}

	b.mu.Lock()
	listeners := make([]func(Event), len(b.listeners))
	copy(listeners, b.listeners)
	decided := ""
	if tr.State == judge.Attacking {
		b.pending[actor] = b.cfg.AnimationBeats
		if b.winner == "" && b.meter.Decided() {
			b.winner = PlayerName
			if ev.Meter <= 0 {
				b.winner = OpponentName
			}
			decided = b.winner
		}
	}
	b.mu.Unlock()

	if tr.State == judge.Attacking {
		b.log.Info("Attack",
			"actor", actor,
			"outcome", tr.Outcome,
			"grade", tr.Grade,
			"damage", tr.Damage,
			"meter", ev.Meter)
	} else {
		b.log.Debug("Transition", "actor", actor, "state", tr.State)
	}
	if decided != "" {
		b.log.Info("Battle decided", "winner", decided)
	}

	for _, fn := range listeners {
		fn(ev)
	}

	if tr.State == judge.Attacking && b.cfg.AnimationBeats == 0 {
		b.acknowledge(actor)
	}
}

func (b *Battle) acknowledge(actor string) {
	b.mu.Lock()
	delete(b.pending, actor)
	b.mu.Unlock()

	switch actor {
	case PlayerName:
		b.player.Judge.AnimationComplete()
	case OpponentName:
		b.opponent.Judge.AnimationComplete()
	}
}

// handleTick クロックのゴルーチンで呼ばれる
func (b *Battle) handleTick(ev clock.TickEvent) {
	// 1. アニメーション待ちの消化 (このティックで始まった攻撃は数えない)
	if ev.TickHasReachedBeat {
		var done []string
		b.mu.Lock()
		for actor, left := range b.pending {
			left--
			if left <= 0 {
				done = append(done, actor)
			} else {
				b.pending[actor] = left
			}
		}
		b.mu.Unlock()
		for _, actor := range done {
			b.acknowledge(actor)
		}
	}

	// 2. ジャッジ
	b.player.Judge.HandleTick(ev)
	b.opponent.Judge.HandleTick(ev)

	// 3. ボット (ジャッジの後)
	if b.bot != nil {
		b.bot.HandleTick(ev)
	}
}
