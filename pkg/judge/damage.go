package judge

import "math"

// ChargingBeatCount is the ideal number of beats between charge and release.
const ChargingBeatCount = 2

// DefaultMaxDamage is the damage of a perfect release, as a share of the battle meter.
const DefaultMaxDamage = 0.1

// penaltyAccuracy is the accuracy at or below which a release is a penalty.
const penaltyAccuracy = 0.2

// Accuracy measures how close a release at elapsedBeats+percentageToBeat is
// to the target beat count. 1 is exact; it has no lower bound.
func Accuracy(elapsedBeats int, percentageToBeat float64) float64 {
	return 1 - math.Abs(ChargingBeatCount-(float64(elapsedBeats)+percentageToBeat))
}

// IsPenalty reports whether a release is too early or too late to do damage:
// more than a whole beat off target, or accuracy at or below 20%.
func IsPenalty(elapsedBeats int, percentageToBeat float64) bool {
	if math.Abs(float64(ChargingBeatCount-elapsedBeats)) > 1 {
		return true
	}
	return Accuracy(elapsedBeats, percentageToBeat) <= penaltyAccuracy
}

// Damage converts a release into signed damage in [-maxDamage, maxDamage].
func Damage(elapsedBeats int, percentageToBeat, maxDamage float64) float64 {
	if IsPenalty(elapsedBeats, percentageToBeat) {
		return -maxDamage
	}
	return Accuracy(elapsedBeats, percentageToBeat) * maxDamage
}

// Grade is the feedback tier of a release.
type Grade int

const (
	GradeMiss Grade = iota
	GradePoor
	GradeGood
	GradeGreat
	GradePerfect
)

func (g Grade) String() string {
	switch g {
	case GradeMiss:
		return "Miss"
	case GradePoor:
		return "Poor"
	case GradeGood:
		return "Good"
	case GradeGreat:
		return "Great"
	case GradePerfect:
		return "Perfect"
	default:
		return "Unknown"
	}
}

// GradeFor maps an accuracy to its tier: <=0.2 Miss, (0.2,0.4] Poor,
// (0.4,0.6] Good, (0.6,0.8] Great, >0.8 Perfect.
func GradeFor(accuracy float64) Grade {
	switch {
	case accuracy <= 0.2:
		return GradeMiss
	case accuracy <= 0.4:
		return GradePoor
	case accuracy <= 0.6:
		return GradeGood
	case accuracy <= 0.8:
		return GradeGreat
	default:
		return GradePerfect
	}
}

// GradeRelease grades a release; penalties are always a Miss.
func GradeRelease(elapsedBeats int, percentageToBeat float64) Grade {
	if IsPenalty(elapsedBeats, percentageToBeat) {
		return GradeMiss
	}
	return GradeFor(Accuracy(elapsedBeats, percentageToBeat))
}
