// Package fileutil provides unified access to scores and SoundFonts stored on
// the real file system or embedded into the binary.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FindFileCaseInsensitive searches dir for filename ignoring case.
// MIDI files shipped with games are often named in upper case (e.g. "THEME.MID").
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/path/to/songs", "theme.mid")
//	// finds "THEME.MID", "Theme.mid", ...
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", fs.ErrNotExist, filename, dir)
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive for an fs.FS.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return path.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", fs.ErrNotExist, filename, dir)
}
