package battle

import (
	"github.com/zurustar/beatbrawl/pkg/clock"
	"github.com/zurustar/beatbrawl/pkg/judge"
)

// Presser は Bot が操作するジャッジの部分
type Presser interface {
	Press()
	State() judge.State
}

// Bot はアクターを自動で操作する。
// pressBeat の拍でチャージを始め、ChargingBeatCount 拍後から lateness サンプル遅れてリリースする。
type Bot struct {
	target    Presser
	pressBeat int
	lateness  int

	beats  int
	waited int
}

// NewBot pressBeat (1..4) で押すボットを作成
func NewBot(target Presser, pressBeat, lateness int) *Bot {
	if lateness < 0 {
		lateness = 0
	}
	return &Bot{target: target, pressBeat: pressBeat, lateness: lateness}
}

// HandleTick は対象のジャッジが同じイベントを処理した後に呼ぶこと
func (b *Bot) HandleTick(ev clock.TickEvent) {
	switch b.target.State() {
	case judge.Idle:
		b.beats, b.waited = 0, 0
		if ev.TickHasReachedBeat && ev.ClosestBeat == b.pressBeat {
			b.target.Press()
		}
	case judge.Charging:
		if b.beats < judge.ChargingBeatCount {
			if ev.TickHasReachedBeat {
				b.beats++
			}
			if b.beats < judge.ChargingBeatCount {
				return
			}
		} else {
			b.waited++
		}
		if b.waited >= b.lateness {
			b.target.Press()
		}
	}
}
