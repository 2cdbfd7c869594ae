package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/zurustar/beatbrawl/pkg/fileutil"
)

// buildWAV returns a mono 16-bit PCM WAV file at SampleRate.
func buildWAV(samples []int16) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func TestDecodeEffect(t *testing.T) {
	pcm, err := DecodeEffect(buildWAV([]int16{0, 1000, -1000, 0}))
	if err != nil {
		t.Fatalf("DecodeEffect: %v", err)
	}
	// 4 mono samples become 4 stereo frames of two int16 each
	if len(pcm) != 16 {
		t.Errorf("len(pcm) = %d, want 16", len(pcm))
	}
}

func TestDecodeEffect_Invalid(t *testing.T) {
	inputs := map[string][]byte{
		"empty":   {},
		"garbage": []byte("not a wav file"),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeEffect(data); !errors.Is(err, ErrInvalidEffect) {
				t.Errorf("err = %v, want ErrInvalidEffect", err)
			}
		})
	}
}

func TestLoadEffect_Errors(t *testing.T) {
	fsys := fileutil.NewEmbedFS(fstest.MapFS{
		"fx/broken.wav": &fstest.MapFile{Data: []byte("RIFF")},
	}, "fx")

	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"missing file", "hit.wav", ErrEffectNotFound},
		{"broken file", "broken.wav", ErrInvalidEffect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, err := LoadEffect(fsys, tt.file, nil, nil)
			if fx != nil {
				t.Error("expected no effect")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
