// Package tags dispatches ReplayGain-family tag writes to the format
// appropriate for a file's extension, and exposes the shared gain/peak
// rendering rules every format-specific writer uses.
package tags

// ReferenceLoudnessLUFS is the ReplayGain reference level. Track/album
// gain is always REFERENCE_LUFS - integrated loudness.
const ReferenceLoudnessLUFS = -18.0

// GainData is the set of loudness results a tag writer renders into a
// single file's metadata. AlbumGain/AlbumPeak are only applied when
// AlbumMode is true, mirroring scanner-tag's --force-as-album /
// single-track switch.
type GainData struct {
	TrackGain float64
	TrackPeak float64
	AlbumGain float64
	AlbumPeak float64
	AlbumMode bool
}
