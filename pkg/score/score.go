// Package score loads the timing metadata and note data of a Standard MIDI
// File. Only the tempo and resolution drive the rhythm engine; the notes and
// raw bytes are kept for the audio renderer.
package score

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultTempoBPM is the SMF default tempo used when a file has no tempo event.
const DefaultTempoBPM = 120.0

// DefaultTicksPerQuarterNote is the resolution of the built-in silent score.
const DefaultTicksPerQuarterNote = 480

var (
	// ErrInvalidTempo is returned for a non-positive tempo.
	ErrInvalidTempo = errors.New("tempo must be positive")

	// ErrInvalidResolution is returned for a non-positive ticks-per-quarter-note.
	ErrInvalidResolution = errors.New("ticks per quarter note must be positive")

	// ErrInvalidFormat is returned when the data is not a readable SMF.
	ErrInvalidFormat = errors.New("invalid MIDI file format")

	// ErrUnsupportedTimeFormat is returned for SMPTE based files.
	ErrUnsupportedTimeFormat = errors.New("only metric (ticks per quarter note) time format is supported")
)

// Note is a single sounding note in absolute ticks.
type Note struct {
	Channel   uint8
	Key       uint8
	Velocity  uint8
	StartTick int64
	EndTick   int64
}

// Track holds the notes of one SMF track.
type Track struct {
	Index int
	Name  string
	Notes []Note
}

// Score is immutable once loaded.
type Score struct {
	TempoBPM            float64
	TicksPerQuarterNote int
	Tracks              []Track
	LengthTicks         int64

	// Data is the original file, handed to the synthesizer as is.
	Data []byte
}

// New creates a score from timing metadata only.
func New(tempoBPM float64, ticksPerQuarterNote int) (*Score, error) {
	if err := validate(tempoBPM, ticksPerQuarterNote); err != nil {
		return nil, err
	}
	return &Score{TempoBPM: tempoBPM, TicksPerQuarterNote: ticksPerQuarterNote}, nil
}

func validate(tempoBPM float64, ticksPerQuarterNote int) error {
	// a zero microseconds-per-quarter tempo event decodes to +Inf
	if !(tempoBPM > 0) || math.IsInf(tempoBPM, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, tempoBPM)
	}
	if ticksPerQuarterNote <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, ticksPerQuarterNote)
	}
	return nil
}

// Parse reads an SMF. The tempo is the earliest tempo event in the file.
func Parse(data []byte) (s *Score, err error) {
	// gomidi can panic on truncated files
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("%w: %v", ErrInvalidFormat, r)
		}
	}()

	file, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	metric, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrUnsupportedTimeFormat
	}

	s = &Score{
		TempoBPM:            DefaultTempoBPM,
		TicksPerQuarterNote: int(metric.Resolution()),
		Data:                data,
	}

	tempoTick := int64(-1)
	for i, events := range file.Tracks {
		track := Track{Index: i}
		// index into track.Notes of the sounding note per channel/key
		open := make(map[[2]uint8][]int)

		var absTicks int64
		for _, ev := range events {
			absTicks += int64(ev.Delta)

			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				if tempoTick < 0 || absTicks < tempoTick {
					s.TempoBPM = bpm
					tempoTick = absTicks
				}
				continue
			}

			var name string
			if ev.Message.GetMetaTrackName(&name) {
				if track.Name == "" {
					track.Name = DecodeText(name)
				}
				continue
			}

			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := [2]uint8{ch, key}
				open[k] = append(open[k], len(track.Notes))
				track.Notes = append(track.Notes, Note{
					Channel:   ch,
					Key:       key,
					Velocity:  vel,
					StartTick: absTicks,
					EndTick:   absTicks,
				})
			case msg.GetNoteEnd(&ch, &key):
				k := [2]uint8{ch, key}
				if idx := open[k]; len(idx) > 0 {
					track.Notes[idx[0]].EndTick = absTicks
					open[k] = idx[1:]
				}
			}
		}

		if absTicks > s.LengthTicks {
			s.LengthTicks = absTicks
		}
		s.Tracks = append(s.Tracks, track)
	}

	if err := validate(s.TempoBPM, s.TicksPerQuarterNote); err != nil {
		return nil, err
	}
	return s, nil
}

// Title returns the first non-empty track name, usually the song title
// stored in the conductor track.
func (s *Score) Title() string {
	for _, t := range s.Tracks {
		if t.Name != "" {
			return t.Name
		}
	}
	return ""
}

// NoteCount returns the number of notes across all tracks.
func (s *Score) NoteCount() int {
	n := 0
	for _, t := range s.Tracks {
		n += len(t.Notes)
	}
	return n
}
