package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"github.com/zurustar/beatbrawl/pkg/fileutil"
	"github.com/zurustar/beatbrawl/pkg/logger"
)

// ErrEffectNotFound is returned when the effect WAV file cannot be found.
var ErrEffectNotFound = errors.New("effect file not found")

// ErrInvalidEffect is returned when the effect is not a decodable WAV file.
var ErrInvalidEffect = errors.New("invalid WAV file format")

// Effect is a short sound played on top of the score, for example when an
// attack lands. The WAV file is decoded once; every Play starts a new
// overlapping voice that Ebitengine mixes with the score.
type Effect struct {
	audioCtx *audio.Context
	pcm      []byte
	log      *slog.Logger

	mu      sync.Mutex
	players []*audio.Player
	muted   bool
}

// DecodeEffect decodes WAV data to 16-bit stereo PCM at SampleRate.
// 8-bit and mono files are converted by the decoder.
func DecodeEffect(data []byte) ([]byte, error) {
	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEffect, err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEffect, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidEffect)
	}
	return pcm, nil
}

// LoadEffect reads and decodes a WAV file through fsys. audioCtx may be nil,
// in which case the process-wide Ebitengine context is used or created.
func LoadEffect(fsys fileutil.FileSystem, name string, audioCtx *audio.Context, log *slog.Logger) (*Effect, error) {
	if fsys == nil {
		fsys, name = fileutil.SplitPath(name)
	}
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEffectNotFound, name)
	}
	pcm, err := DecodeEffect(data)
	if err != nil {
		return nil, err
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
	return &Effect{audioCtx: audioCtx, pcm: pcm, log: log}, nil
}

// Play starts a new voice of the effect.
func (e *Effect) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cleanupFinished()

	player := e.audioCtx.NewPlayerFromBytes(e.pcm)
	if e.muted {
		player.SetVolume(0)
	}
	player.Play()
	e.players = append(e.players, player)
	e.log.Debug("Effect played", "voices", len(e.players))
}

// SetMuted silences current and future voices.
func (e *Effect) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.muted = muted
	for _, player := range e.players {
		if muted {
			player.SetVolume(0)
		} else {
			player.SetVolume(1)
		}
	}
}

// Close stops every voice.
func (e *Effect) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, player := range e.players {
		player.Close()
	}
	e.players = nil
}

// cleanupFinished must be called with e.mu held.
func (e *Effect) cleanupFinished() {
	active := e.players[:0]
	for _, player := range e.players {
		if player.IsPlaying() {
			active = append(active, player)
		} else {
			player.Close()
		}
	}
	e.players = active
}
