// Package audio renders the battle score with a SoundFont through Ebitengine
// audio, following the tempo clock's play/pause state.
package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/beatbrawl/pkg/fileutil"
)

// SampleRate is the audio sample rate used for synthesis.
const SampleRate = 44100

// ErrNoSoundFont is returned when no SoundFont file is configured.
var ErrNoSoundFont = errors.New("SoundFont file is required for playback")

// ErrSoundFontNotFound is returned when the SoundFont file cannot be found.
var ErrSoundFontNotFound = errors.New("SoundFont file not found")

// ErrInvalidSoundFont is returned when the SoundFont cannot be parsed.
var ErrInvalidSoundFont = errors.New("invalid SoundFont file")

// ErrInvalidScore is returned when the score data is not a playable MIDI file.
var ErrInvalidScore = errors.New("invalid score data")

// LoadSoundFont reads and parses a SoundFont through fsys.
func LoadSoundFont(fsys fileutil.FileSystem, name string) (*meltysynth.SoundFont, error) {
	if name == "" {
		return nil, ErrNoSoundFont
	}
	if fsys == nil {
		fsys, name = fileutil.SplitPath(name)
	}

	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSoundFontNotFound, name, err)
	}

	sf, err := parseSoundFont(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSoundFont, name, err)
	}
	return sf, nil
}

// parseSoundFont guards against parser panics on truncated files.
func parseSoundFont(data []byte) (sf *meltysynth.SoundFont, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return meltysynth.NewSoundFont(bytes.NewReader(data))
}
