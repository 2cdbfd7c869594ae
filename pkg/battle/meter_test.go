package battle

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMeter_ApplyDamage(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		damages []float64
		want    float64
	}{
		{"initial", PlayerName, nil, 0.5},
		{"player hit raises", PlayerName, []float64{0.1}, 0.6},
		{"opponent hit lowers", OpponentName, []float64{0.1}, 0.4},
		{"player penalty lowers", PlayerName, []float64{-0.1}, 0.4},
		{"opponent penalty raises", OpponentName, []float64{-0.1}, 0.6},
		{"clamped at one", PlayerName, []float64{0.4, 0.4}, 1},
		{"clamped at zero", OpponentName, []float64{0.3, 0.3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeter(PlayerName, nil)
			for _, d := range tt.damages {
				m.ApplyDamage(tt.actor, d)
			}
			if got := m.Value(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
			if got := m.OpponentValue(); math.Abs(got-(1-tt.want)) > 1e-9 {
				t.Errorf("OpponentValue() = %v, want %v", got, 1-tt.want)
			}
		})
	}
}

func TestMeter_Decided(t *testing.T) {
	m := NewMeter(PlayerName, nil)
	if m.Decided() {
		t.Fatal("fresh meter must not be decided")
	}
	m.Offset(0.7)
	if !m.Decided() {
		t.Error("meter at 1 should be decided")
	}
}

// TestMeterProperties 任意のダメージ列でメーターが範囲内に収まることを確認
func TestMeterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("value stays within [0,1]", prop.ForAll(
		func(deltas []float64) bool {
			m := NewMeter(PlayerName, nil)
			for _, d := range deltas {
				v := m.Offset(d)
				if v < 0 || v > 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-1, 1)),
	))

	properties.Property("player and opponent shares add up to one", prop.ForAll(
		func(deltas []float64) bool {
			m := NewMeter(PlayerName, nil)
			for i, d := range deltas {
				actor := PlayerName
				if i%2 == 1 {
					actor = OpponentName
				}
				m.ApplyDamage(actor, d)
			}
			return math.Abs(m.Value()+m.OpponentValue()-1) < 1e-12
		},
		gen.SliceOf(gen.Float64Range(-0.2, 0.2)),
	))

	properties.TestingRun(t)
}
