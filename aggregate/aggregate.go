// Package aggregate computes per-track and per-album ReplayGain values
// from finished loudness.Meter state. Album loudness comes from gating
// the concatenated block-energy lists of every track in the album, not
// from averaging each track's already-gated loudness (mirroring
// scanner-tag.c's calculate_album_gain_and_peak_last_dir).
package aggregate

import (
	"math"

	"github.com/cwbudde/loudness-scanner/measure/loudness"
	"github.com/cwbudde/loudness-scanner/tags"
)

// TrackResult is one track's measured loudness, peak, and derived gain.
type TrackResult struct {
	Path       string
	Loudness   float64 // LUFS; NaN if no block passed the absolute gate
	Range      float64 // LU
	PeakLinear float64
	Gain       float64 // dB; REFERENCE - Loudness, or -REFERENCE if Loudness is NaN
}

// AlbumResult is the aggregation of every TrackResult in one album
// directory.
type AlbumResult struct {
	Tracks     []TrackResult
	Loudness   float64
	PeakLinear float64
	Gain       float64
}

// TrackGain derives a single track's ReplayGain gain from its
// integrated loudness, mapping a silent (NaN) track to the maximum
// positive gain the reference level implies.
func TrackGain(loudnessLUFS float64) float64 {
	if math.IsNaN(loudnessLUFS) {
		return -tags.ReferenceLoudnessLUFS
	}

	return tags.ReferenceLoudnessLUFS - loudnessLUFS
}

// Track builds a TrackResult from a meter that has finished processing
// one track.
func Track(path string, m *loudness.Meter) (TrackResult, error) {
	loud, err := m.LoudnessGlobal()
	if err != nil {
		return TrackResult{}, err
	}

	lra, err := m.LoudnessRange()
	if err != nil {
		lra = 0
	}

	return TrackResult{
		Path:       path,
		Loudness:   loud,
		Range:      lra,
		PeakLinear: m.MaxSamplePeak(),
		Gain:       TrackGain(loud),
	}, nil
}

// Album aggregates a set of already-measured tracks (and the raw block
// histories their meters produced) into an AlbumResult. blockHistories
// must be in the same order as tracks and holds each track's
// loudness.Meter.BlockEnergies().
func Album(tracks []TrackResult, blockHistories [][]float64) AlbumResult {
	albumLoudness := loudness.GlobalMultiple(blockHistories)

	peak := 0.0
	for _, t := range tracks {
		if t.PeakLinear > peak {
			peak = t.PeakLinear
		}
	}

	return AlbumResult{
		Tracks:     tracks,
		Loudness:   albumLoudness,
		PeakLinear: peak,
		Gain:       TrackGain(albumLoudness),
	}
}
