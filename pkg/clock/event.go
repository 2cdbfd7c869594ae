package clock

import "math"

// BeatsPerMeasure is fixed: every measure is four quarter notes.
const BeatsPerMeasure = 4

// TickEvent describes a clock tick relative to the nearest beat.
type TickEvent struct {
	Tick                  int
	TickHasReachedBeat    bool
	ClosestBeat           int     // 1..4 within the measure
	PercentageToBeat      float64 // [0,1) into the current beat
	TicksFromPreviousBeat int
	TicksToNextBeat       int
}

// Position computes the TickEvent for tick at resolution ppq.
//
// ClosestBeat is round(tick/ppq)+1 taken modulo 4 with 0 mapped to 4, so it
// flips to the next beat past the half-beat mark. ppq must be positive.
func Position(tick, ppq int) TickEvent {
	rem := floorMod(tick, ppq)
	prevBeatTick := tick - rem

	nextBeatTick := prevBeatTick
	if rem != 0 {
		nextBeatTick += ppq
	}

	beat := int(math.Round(float64(tick)/float64(ppq))) + 1
	closest := floorMod(beat, BeatsPerMeasure)
	if closest == 0 {
		closest = BeatsPerMeasure
	}

	return TickEvent{
		Tick:                  tick,
		TickHasReachedBeat:    rem == 0,
		ClosestBeat:           closest,
		PercentageToBeat:      float64(rem) / float64(ppq),
		TicksFromPreviousBeat: tick - prevBeatTick,
		TicksToNextBeat:       nextBeatTick - tick,
	}
}

// MeasureStart returns the first tick of the measure containing tick.
func MeasureStart(tick, ppq int) int {
	return tick - floorMod(tick, BeatsPerMeasure*ppq)
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
