package window

import (
	"fmt"

	"github.com/zurustar/beatbrawl/pkg/battle"
	"github.com/zurustar/beatbrawl/pkg/judge"
)

// FormatStatus 状態を1行で表す
func FormatStatus(st battle.Status) string {
	playback := "paused"
	switch {
	case !st.Ready:
		playback = "loading"
	case st.Running:
		playback = "playing"
	}
	s := fmt.Sprintf("%s tick=%d meter=%.2f/%.2f player=%s opponent=%s",
		playback, st.Tick, st.Meter, st.OpponentMeter, st.PlayerState, st.OpponentState)
	if st.PlayerState == judge.Charging.String() {
		s += fmt.Sprintf(" charge=%d/%d", st.PlayerCharge, judge.ChargingBeatCount)
	}
	if st.Audio {
		s += " audio"
	}
	if st.Winner != "" {
		s += " winner=" + st.Winner
	}
	return s
}

// FormatEvent 攻撃の判定を表す。攻撃以外の遷移は空文字
func FormatEvent(ev battle.Event) string {
	tr := ev.Transition
	if tr.State != judge.Attacking {
		return ""
	}
	if tr.Outcome == judge.OutcomeTimeout {
		return fmt.Sprintf("%s: TIMEOUT %+.3f", ev.Actor, tr.Damage)
	}
	return fmt.Sprintf("%s: %s %+.3f", ev.Actor, tr.Grade, tr.Damage)
}
