package battle

import (
	"log/slog"
	"sync"

	"github.com/zurustar/beatbrawl/pkg/logger"
)

// InitialMeterValue は開始時のプレイヤー側の割合
const InitialMeterValue = 0.5

// Meter はバトルメーター。プレイヤー側の割合を [0,1] で保持し、
// 相手側は 1 - Value となる。judge.DamageSink を実装する。
type Meter struct {
	player string
	log    *slog.Logger

	mu    sync.Mutex
	value float64
}

// NewMeter player をプレイヤーとして扱うメーターを作成
func NewMeter(player string, log *slog.Logger) *Meter {
	if log == nil {
		log = logger.Discard()
	}
	return &Meter{player: player, log: log, value: InitialMeterValue}
}

// ApplyDamage プレイヤーのダメージはメーターを上げ、相手のダメージは下げる
func (m *Meter) ApplyDamage(actor string, damage float64) {
	delta := damage
	if actor != m.player {
		delta = -damage
	}
	v := m.Offset(delta)
	m.log.Debug("Meter changed", "actor", actor, "damage", damage, "value", v)
}

// Offset プレイヤー側の割合を delta だけ動かし、クランプ後の値を返す
func (m *Meter) Offset(delta float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = clamp(m.value+delta, 0, 1)
	return m.value
}

// Value プレイヤー側の割合
func (m *Meter) Value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// OpponentValue 相手側の割合
func (m *Meter) OpponentValue() float64 {
	return 1 - m.Value()
}

// Decided メーターが端に達していれば true
func (m *Meter) Decided() bool {
	v := m.Value()
	return v <= 0 || v >= 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
