package judge

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDamageProperties checks the damage formula over arbitrary releases.
func TestDamageProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	elapsed := gen.IntRange(-2, 10)
	pct := gen.Float64Range(0, 0.999999)
	maxDamage := gen.Float64Range(0.01, 100)

	properties.Property("damage stays within [-max, max]", prop.ForAll(
		func(e int, p, m float64) bool {
			d := Damage(e, p, m)
			return d >= -m && d <= m
		},
		elapsed, pct, maxDamage,
	))

	properties.Property("more than one beat off target is always the penalty", prop.ForAll(
		func(e int, p, m float64) bool {
			if e >= 1 && e <= 3 {
				return true
			}
			return Damage(e, p, m) == -m
		},
		elapsed, pct, maxDamage,
	))

	properties.Property("non-penalty damage is accuracy times max", prop.ForAll(
		func(e int, p, m float64) bool {
			d := Damage(e, p, m)
			if d == -m {
				return true
			}
			a := Accuracy(e, p)
			return a > 0.2 && d == a*m
		},
		elapsed, pct, maxDamage,
	))

	properties.Property("after two beats, releasing earlier never does less damage", prop.ForAll(
		func(a, b, m float64) bool {
			if a > b {
				a, b = b, a
			}
			return Damage(ChargingBeatCount, a, m) >= Damage(ChargingBeatCount, b, m)
		},
		pct, pct, maxDamage,
	))

	properties.Property("grade never decreases with accuracy", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return GradeFor(a) <= GradeFor(b)
		},
		gen.Float64Range(-2, 1), gen.Float64Range(-2, 1),
	))

	properties.TestingRun(t)
}
