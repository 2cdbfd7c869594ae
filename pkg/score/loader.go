package score

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/beatbrawl/pkg/fileutil"
	"github.com/zurustar/beatbrawl/pkg/logger"
)

// Loader reads a score in the background and publishes it once.
// Ready is closed exactly once, when the score becomes available; it is never
// closed on failure, so everything gated on it stays inert.
type Loader struct {
	fsys fileutil.FileSystem
	name string
	log  *slog.Logger

	ready     chan struct{}
	done      chan struct{}
	readyOnce sync.Once
	startOnce sync.Once

	mu    sync.RWMutex
	score *Score
	err   error
}

// NewLoader creates a loader for name inside fsys.
func NewLoader(fsys fileutil.FileSystem, name string, log *slog.Logger) *Loader {
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{
		fsys:  fsys,
		name:  name,
		log:   log,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Preloaded returns a loader that is already resolved with s.
func Preloaded(s *Score) *Loader {
	l := NewLoader(nil, "", nil)
	l.startOnce.Do(func() {})
	l.resolve(s, nil)
	return l
}

// Start begins loading in a goroutine. Calling it again has no effect.
func (l *Loader) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go func() {
			s, err := l.load(ctx)
			l.resolve(s, err)
		}()
	})
}

func (l *Loader) load(ctx context.Context) (*Score, error) {
	if l.fsys == nil {
		return nil, fmt.Errorf("no file system for %s", l.name)
	}
	data, err := l.fsys.ReadFile(l.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read score %s: %w", l.name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score %s: %w", l.name, err)
	}
	return s, nil
}

func (l *Loader) resolve(s *Score, err error) {
	l.mu.Lock()
	l.score = s
	l.err = err
	l.mu.Unlock()

	if err != nil {
		l.log.Error("Score load failed", "name", l.name, "error", err)
	} else {
		l.log.Info("Score loaded",
			"name", l.name,
			"title", s.Title(),
			"tempo_bpm", s.TempoBPM,
			"ppq", s.TicksPerQuarterNote,
			"tracks", len(s.Tracks),
			"notes", s.NoteCount())
		l.readyOnce.Do(func() { close(l.ready) })
	}
	close(l.done)
}

// Ready is closed once the score is available.
func (l *Loader) Ready() <-chan struct{} {
	return l.ready
}

// Score returns the loaded score, or nil before Ready.
func (l *Loader) Score() *Score {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.score
}

// Err returns the load error, if any.
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Wait blocks until loading finishes or ctx is done.
func (l *Loader) Wait(ctx context.Context) (*Score, error) {
	select {
	case <-l.done:
		return l.Score(), l.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
