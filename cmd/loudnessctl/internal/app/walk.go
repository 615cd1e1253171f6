package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/loudness-scanner/group"
)

// collectTracks expands a mix of file and directory arguments into an
// ordered list of group.TrackInput, walking directories recursively and
// keeping only files whose extension is in supported. Input order
// between top-level arguments is preserved; files discovered by walking
// a directory are sorted by path, so a directory's tracks always stream
// in file-path order.
func collectTracks(paths []string, supported map[string]bool) ([]group.TrackInput, error) {
	var tracks []group.TrackInput

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if supported[extensionOf(p)] {
				tracks = append(tracks, group.TrackInput{Path: p})
			}

			continue
		}

		var found []string

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				return nil
			}

			if supported[extensionOf(path)] {
				found = append(found, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}

		sort.Strings(found)

		for _, f := range found {
			tracks = append(tracks, group.TrackInput{Path: f})
		}
	}

	return tracks, nil
}

func extensionOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
