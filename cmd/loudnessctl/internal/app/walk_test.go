package app

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCollectTracks_FiltersAndSortsByDirectory(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "albumB", "02.wav"))
	touch(t, filepath.Join(root, "albumB", "01.wav"))
	touch(t, filepath.Join(root, "albumB", "notes.txt"))
	touch(t, filepath.Join(root, "albumA", "01.wav"))

	tracks, err := collectTracks([]string{root}, map[string]bool{"wav": true})
	if err != nil {
		t.Fatalf("collectTracks: %v", err)
	}

	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3: %v", len(tracks), tracks)
	}

	want := []string{
		filepath.Join(root, "albumA", "01.wav"),
		filepath.Join(root, "albumB", "01.wav"),
		filepath.Join(root, "albumB", "02.wav"),
	}

	for i, w := range want {
		if tracks[i].Path != w {
			t.Errorf("tracks[%d] = %q, want %q", i, tracks[i].Path, w)
		}
	}
}

func TestCollectTracks_SingleFileArgument(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "song.wav")
	touch(t, path)

	tracks, err := collectTracks([]string{path}, map[string]bool{"wav": true})
	if err != nil {
		t.Fatalf("collectTracks: %v", err)
	}

	if len(tracks) != 1 || tracks[0].Path != path {
		t.Fatalf("got %v, want [%s]", tracks, path)
	}
}

func TestCollectTracks_UnsupportedExtensionSkipped(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	touch(t, path)

	tracks, err := collectTracks([]string{path}, map[string]bool{"wav": true})
	if err != nil {
		t.Fatalf("collectTracks: %v", err)
	}

	if len(tracks) != 0 {
		t.Errorf("got %v, want empty", tracks)
	}
}
