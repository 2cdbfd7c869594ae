package judge

import (
	"math"
	"testing"
)

func TestDamage(t *testing.T) {
	const maxDamage = 0.1

	tests := []struct {
		name    string
		elapsed int
		pct     float64
		want    float64
	}{
		{"exact release", 2, 0, 0.1},
		{"no beats yet", 0, 0, -0.1},
		{"one beat early", 1, 0, -0.1},
		{"just after one beat", 1, 0.5, 0.05},
		{"late in the third beat", 2, 0.3, 0.07},
		{"too late", 2, 0.9, -0.1},
		{"three beats", 3, 0, -0.1},
		{"far too late", 5, 0.1, -0.1},
		{"negative elapsed", -1, 0, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Damage(tt.elapsed, tt.pct, maxDamage)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Damage(%d, %v) = %v, want %v", tt.elapsed, tt.pct, got, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		elapsed int
		pct     float64
		want    float64
	}{
		{2, 0, 1},
		{1, 0.5, 0.5},
		{2, 0.5, 0.5},
		{0, 0, -1},
		{4, 0, -1},
	}
	for _, tt := range tests {
		if got := Accuracy(tt.elapsed, tt.pct); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Accuracy(%d, %v) = %v, want %v", tt.elapsed, tt.pct, got, tt.want)
		}
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     Grade
	}{
		{-1, GradeMiss},
		{0.1, GradeMiss},
		{0.2, GradeMiss},
		{0.3, GradePoor},
		{0.5, GradeGood},
		{0.7, GradeGreat},
		{0.9, GradePerfect},
		{1, GradePerfect},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := GradeFor(tt.accuracy); got != tt.want {
				t.Errorf("GradeFor(%v) = %v, want %v", tt.accuracy, got, tt.want)
			}
		})
	}
}

func TestGradeRelease_PenaltyIsMiss(t *testing.T) {
	if g := GradeRelease(0, 0); g != GradeMiss {
		t.Errorf("GradeRelease(0, 0) = %v, want Miss", g)
	}
	if g := GradeRelease(2, 0); g != GradePerfect {
		t.Errorf("GradeRelease(2, 0) = %v, want Perfect", g)
	}
}
