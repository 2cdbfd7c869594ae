package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestFindFileCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()

	testFiles := []string{
		"Theme.mid",
		"GENERALUSER.SF2",
		"lowercase.mid",
	}
	for _, filename := range testFiles {
		path := filepath.Join(tmpDir, filename)
		if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	tests := []struct {
		name          string
		searchName    string
		shouldFind    bool
		expectedMatch string
	}{
		{"exact match", "Theme.mid", true, "Theme.mid"},
		{"lowercase search for mixed case file", "theme.mid", true, "Theme.mid"},
		{"mixed case search for uppercase file", "GeneralUser.sf2", true, "GENERALUSER.SF2"},
		{"uppercase search for lowercase file", "LOWERCASE.MID", true, "lowercase.mid"},
		{"non-existent file", "missing.mid", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := FindFileCaseInsensitive(tmpDir, tt.searchName)
			if !tt.shouldFind {
				if err == nil {
					t.Errorf("expected error for %s, got %s", tt.searchName, result)
				}
				if !errors.Is(err, fs.ErrNotExist) {
					t.Errorf("expected fs.ErrNotExist, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filepath.Base(result) != tt.expectedMatch {
				t.Errorf("expected %s, got %s", tt.expectedMatch, filepath.Base(result))
			}
		})
	}
}

func TestRealFS_ReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "SONG.MID"), []byte("MThd"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	rfs := NewRealFS(tmpDir)
	data, err := rfs.ReadFile("song.mid")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "MThd" {
		t.Errorf("unexpected content %q", data)
	}
	if !rfs.Exists("Song.Mid") {
		t.Error("Exists should ignore case")
	}
	if rfs.Exists("other.mid") {
		t.Error("Exists should be false for missing file")
	}
	if rfs.IsEmbedded() {
		t.Error("RealFS must not report embedded")
	}
}

func TestSplitPath(t *testing.T) {
	dir := filepath.Join("songs", "stage1")
	rfs, name := SplitPath(filepath.Join(dir, "theme.mid"))
	if rfs.BasePath() != dir {
		t.Errorf("BasePath = %s, want %s", rfs.BasePath(), dir)
	}
	if name != "theme.mid" {
		t.Errorf("name = %s, want theme.mid", name)
	}
}

func TestEmbedFS_ReadFile(t *testing.T) {
	mfs := fstest.MapFS{
		"soundfonts/Default.SF2": {Data: []byte("sf2")},
	}
	efs := NewEmbedFS(mfs, "soundfonts")

	data, err := efs.ReadFile("default.sf2")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "sf2" {
		t.Errorf("unexpected content %q", data)
	}
	if !efs.IsEmbedded() {
		t.Error("EmbedFS must report embedded")
	}
	if efs.Exists("missing.sf2") {
		t.Error("Exists should be false for missing file")
	}
}
