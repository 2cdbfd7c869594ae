package audio

import (
	"encoding/binary"
	"sync"
)

const (
	// skipChunk is the number of samples rendered per step while skipping ahead.
	skipChunk = 4096

	// skipSpeedup bounds the skip work of one Read to this many times the
	// requested samples (at least skipChunk).
	skipSpeedup = 8
)

// renderer is the part of *meltysynth.MidiFileSequencer the stream uses.
type renderer interface {
	Render(left, right []float32)
}

// Stream implements io.Reader for Ebitengine audio by rendering the
// sequencer into 16-bit little-endian stereo. The first skip samples are
// rendered and dropped so playback can begin mid-score. A long skip is
// spread over several reads that return silence; the samples those reads
// cover are added to the skip so the audible output stays on the clock.
type Stream struct {
	mu        sync.Mutex
	sequencer renderer
	skip      int64
	stopped   bool
	left      []float32
	right     []float32
}

// NewStream creates a stream that starts skip samples into the sequence.
func NewStream(sequencer renderer, skip int64) *Stream {
	if skip < 0 {
		skip = 0
	}
	return &Stream{sequencer: sequencer, skip: skip}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.sequencer == nil {
		clear(p)
		return len(p), nil
	}

	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}

	if s.skip > 0 {
		budget := max(int64(samples)*skipSpeedup, skipChunk)
		if s.skip > budget {
			s.discard(budget)
			s.skip += int64(samples) - budget
			clear(p[:samples*4])
			return samples * 4, nil
		}
		s.discard(s.skip)
		s.skip = 0
	}

	left, right := s.buffers(samples)
	s.sequencer.Render(left, right)

	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(toInt16(left[i])))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(toInt16(right[i])))
	}
	return samples * 4, nil
}

// discard renders n samples and drops them.
func (s *Stream) discard(n int64) {
	left, right := s.buffers(skipChunk)
	for n > 0 {
		step := min(n, int64(skipChunk))
		s.sequencer.Render(left[:step], right[:step])
		n -= step
	}
}

func (s *Stream) buffers(n int) ([]float32, []float32) {
	if cap(s.left) < n {
		s.left = make([]float32, n)
		s.right = make([]float32, n)
	}
	return s.left[:n], s.right[:n]
}

// Stop makes Read return silence.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func toInt16(v float32) int16 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return int16(v * 32767)
}
