package audio

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/beatbrawl/pkg/logger"
	"github.com/zurustar/beatbrawl/pkg/score"
)

// SamplesAt converts a tick position to a sample offset at a fixed tempo.
func SamplesAt(tick, ppq int, tempoBPM float64) int64 {
	if tick <= 0 || ppq <= 0 || tempoBPM <= 0 {
		return 0
	}
	seconds := float64(tick) / float64(ppq) * 60 / tempoBPM
	return int64(math.Round(seconds * SampleRate))
}

// Player plays a score and follows the tempo clock: Sync(true, tick)
// (re)starts playback at tick, Sync(false, _) pauses it.
type Player struct {
	synth    *meltysynth.Synthesizer
	audioCtx *audio.Context
	log      *slog.Logger

	mu      sync.Mutex
	midi    *meltysynth.MidiFile
	score   *score.Score
	player  *audio.Player
	stream  *Stream
	playing bool
	muted   bool
}

// NewPlayer creates a player for sf. audioCtx may be nil, in which case the
// process-wide Ebitengine context is used or created.
func NewPlayer(sf *meltysynth.SoundFont, audioCtx *audio.Context, log *slog.Logger) (*Player, error) {
	if sf == nil {
		return nil, ErrNoSoundFont
	}
	if log == nil {
		log = logger.Discard()
	}
	if audioCtx == nil {
		audioCtx = audio.CurrentContext()
	}
	if audioCtx == nil {
		audioCtx = audio.NewContext(SampleRate)
	}

	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	return &Player{synth: synth, audioCtx: audioCtx, log: log}, nil
}

// Load prepares s for playback. Any current playback is stopped.
func (p *Player) Load(s *score.Score) error {
	if s == nil || len(s.Data) == 0 {
		return fmt.Errorf("%w: no MIDI data", ErrInvalidScore)
	}
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(s.Data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopInternal()
	p.midi = midi
	p.score = s
	p.log.Info("Audio loaded", "duration", midi.GetLength())
	return nil
}

// Sync starts playback at tick when running is true and pauses otherwise.
func (p *Player) Sync(running bool, tick int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.midi == nil {
		return
	}
	if !running {
		if p.player != nil && p.playing {
			p.player.Pause()
			p.playing = false
			p.log.Debug("Audio paused")
		}
		return
	}

	if err := p.startAt(tick); err != nil {
		p.log.Error("Audio start failed", "tick", tick, "error", err)
	}
}

// startAt must be called with p.mu held.
func (p *Player) startAt(tick int) error {
	p.stopInternal()

	sequencer := meltysynth.NewMidiFileSequencer(p.synth)
	sequencer.Play(p.midi, false)

	skip := SamplesAt(tick, p.score.TicksPerQuarterNote, p.score.TempoBPM)
	p.stream = NewStream(sequencer, skip)

	player, err := p.audioCtx.NewPlayer(p.stream)
	if err != nil {
		p.stream = nil
		return fmt.Errorf("failed to create audio player: %w", err)
	}
	p.player = player
	if p.muted {
		p.player.SetVolume(0)
	}
	p.player.Play()
	p.playing = true
	p.log.Debug("Audio started", "tick", tick, "skip_samples", skip)
	return nil
}

// stopInternal must be called with p.mu held.
func (p *Player) stopInternal() {
	if p.stream != nil {
		p.stream.Stop()
	}
	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
	p.stream = nil
	p.playing = false
}

// Close stops playback and releases the audio player.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopInternal()
}

// IsPlaying reports whether audio is being produced.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// SetMuted silences output without stopping playback.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	if p.player != nil {
		if muted {
			p.player.SetVolume(0)
		} else {
			p.player.SetVolume(1)
		}
	}
}
