// Package group partitions an ordered list of tracks into albums by
// parent directory, grounded on scanner-tag.c's
// calculate_album_gain_and_peak/_last_dir directory-change detection:
// a buffer of tracks is flushed into an album whenever the next track's
// directory differs from the buffer's, or at end of input.
package group

import "path/filepath"

// TrackInput is one file awaiting grouping, prior to any scanning.
type TrackInput struct {
	Path string
}

// Options selects the grouper's two override modes, mirroring the
// original's --force-as-album and single-track-only switches.
type Options struct {
	// ForceSingleAlbum treats the entire input list as one album,
	// regardless of directory boundaries.
	ForceSingleAlbum bool
	// PerTrackOnly makes every track its own singleton album with
	// AlbumMode false, skipping directory grouping entirely.
	PerTrackOnly bool
}

// Batch is one album's worth of tracks in input order, plus whether
// album-level aggregation should run for it.
type Batch struct {
	Tracks    []TrackInput
	AlbumMode bool
}

// Stream partitions tracks into Batches, preserving input order both
// across batches and within each batch.
func Stream(tracks []TrackInput, opts Options) []Batch {
	if opts.PerTrackOnly {
		return singletons(tracks)
	}

	if opts.ForceSingleAlbum {
		if len(tracks) == 0 {
			return nil
		}

		return []Batch{{Tracks: tracks, AlbumMode: true}}
	}

	return byDirectory(tracks)
}

func singletons(tracks []TrackInput) []Batch {
	batches := make([]Batch, len(tracks))
	for i, t := range tracks {
		batches[i] = Batch{Tracks: []TrackInput{t}, AlbumMode: false}
	}

	return batches
}

func byDirectory(tracks []TrackInput) []Batch {
	var (
		batches    []Batch
		buf        []TrackInput
		currentDir string
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}

		batches = append(batches, Batch{Tracks: buf, AlbumMode: true})
		buf = nil
	}

	for _, t := range tracks {
		dir := filepath.Dir(t.Path)

		if len(buf) > 0 && dir != currentDir {
			flush()
		}

		currentDir = dir
		buf = append(buf, t)
	}

	flush()

	return batches
}
