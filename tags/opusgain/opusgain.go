// Package opusgain patches the Opus identification header's mandatory
// output-gain field and writes the optional R128_TRACK_GAIN /
// R128_ALBUM_GAIN (and, in compat mode, REPLAYGAIN_*) comment fields.
//
// This is the one place the scanner edits raw container bytes directly
// (the 16-bit output-gain field at offset 16 of the OpusHead packet)
// rather than going through a tag-abstraction library: no maintained Go
// library, and no version of TagLib either, exposes that field as a
// settable property -- every Opus-aware tag library treats it as
// immutable stream metadata.
package opusgain

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/loudness-scanner/tags/oggcodec"
	"github.com/cwbudde/loudness-scanner/tags/rgformat"
	"github.com/cwbudde/loudness-scanner/tags/xiph"
)

// Reference selects what HeaderGainDB's --opus-header-gain base value
// means.
type Reference int

const (
	// Absolute uses Offset directly as the header gain.
	Absolute Reference = iota
	// R128 derives the header gain from the track's or album's
	// ReplayGain-reference gain, shifted to the R128 reference level.
	R128
)

// replayGainToR128OffsetDB is the level difference between the
// ReplayGain reference (-18 LUFS) and the R128 reference (-23 LUFS).
const replayGainToR128OffsetDB = -5.0

// TagInfo configures how the Opus header gain and R128/ReplayGain
// comment fields are derived, mirroring the --opus-header-gain CLI
// grammar.
type TagInfo struct {
	Reference        Reference
	OffsetDB         float64
	IsTrack          bool
	VorbisgainCompat bool
}

const (
	opusHeadMagic  = "OpusHead"
	gainFieldStart = 16
)

// Write patches the OpusHead output-gain field and rewrites the
// R128/ReplayGain comment fields of filename.
func Write(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool, info TagInfo) error {
	headerGainDB := headerGain(info, trackGain, albumGain, albumMode)
	headerInt := encodeQ256(headerGainDB)

	if err := patchHeaderGain(filename, headerInt); err != nil {
		return err
	}

	appliedDB := float64(headerInt) / 256.0

	adjTrackGain := trackGain - appliedDB
	adjAlbumGain := albumGain - appliedDB
	adjTrackPeak := rescalePeak(trackPeak, appliedDB)
	adjAlbumPeak := rescalePeak(albumPeak, appliedDB)

	return xiph.EditOpusCommentFields(filename, func(set func(string, string), remove func(string)) {
		remove("R128_TRACK_GAIN")
		remove("R128_ALBUM_GAIN")
		remove("REPLAYGAIN_TRACK_GAIN")
		remove("REPLAYGAIN_TRACK_PEAK")
		remove("REPLAYGAIN_ALBUM_GAIN")
		remove("REPLAYGAIN_ALBUM_PEAK")

		set("R128_TRACK_GAIN", fmt.Sprintf("%d", encodeQ256(adjTrackGain+replayGainToR128OffsetDB)))

		if albumMode {
			set("R128_ALBUM_GAIN", fmt.Sprintf("%d", encodeQ256(adjAlbumGain+replayGainToR128OffsetDB)))
		}

		if info.VorbisgainCompat {
			set("REPLAYGAIN_TRACK_GAIN", rgformat.GainString(adjTrackGain))
			set("REPLAYGAIN_TRACK_PEAK", rgformat.PeakString(adjTrackPeak))

			if albumMode {
				set("REPLAYGAIN_ALBUM_GAIN", rgformat.GainString(adjAlbumGain))
				set("REPLAYGAIN_ALBUM_PEAK", rgformat.PeakString(adjAlbumPeak))
			}
		}
	})
}

// Has reports whether filename's comment header already carries an
// R128_TRACK_GAIN field, or a non-zero REPLAYGAIN_*_PEAK in compat mode.
func Has(filename string) (bool, error) {
	fields, err := xiph.OpusCommentFields(filename)
	if err != nil {
		return false, err
	}

	for _, f := range fields {
		if hasFieldPrefix(f, "R128_TRACK_GAIN") {
			return true, nil
		}
	}

	return xiph.HasOpus(filename)
}

func hasFieldPrefix(field, name string) bool {
	return len(field) > len(name) && field[:len(name)] == name && field[len(name)] == '='
}

// headerGain computes opus_header_gain_dB per the --opus-header-gain
// grammar: an absolute override, or a reference derived from the
// track's or album's ReplayGain gain shifted to the R128 level.
func headerGain(info TagInfo, trackGain, albumGain float64, albumMode bool) float64 {
	if info.Reference == Absolute {
		return info.OffsetDB
	}

	base := trackGain
	if !info.IsTrack && albumMode {
		base = albumGain
	}

	return base + replayGainToR128OffsetDB + info.OffsetDB
}

// encodeQ256 converts a dB value to the Q7.8 fixed-point int16 encoding
// the Opus header gain field and R128_* comment fields share.
func encodeQ256(gainDB float64) int16 {
	v := math.Round(gainDB * 256)

	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

// rescalePeak adjusts a linear sample peak for the gain now baked into
// the stream by the header patch, leaving a zero peak (never measured,
// or a silent track) untouched.
func rescalePeak(peak, appliedDB float64) float64 {
	if peak <= 0 {
		return peak
	}

	return math.Pow(10, (20*math.Log10(peak)-appliedDB)/20)
}

func patchHeaderGain(filename string, gain int16) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("opusgain: read %s: %w", filename, err)
	}

	pages, err := oggcodec.ParsePages(data)
	if err != nil {
		return err
	}

	idx := -1

	for i, p := range pages {
		if bytes.HasPrefix(p.Payload, []byte(opusHeadMagic)) {
			idx = i
			break
		}
	}

	if idx < 0 {
		return fmt.Errorf("opusgain: %s has no OpusHead page", filename)
	}

	if len(pages[idx].Payload) < gainFieldStart+2 {
		return fmt.Errorf("opusgain: %s OpusHead packet is too short", filename)
	}

	pages[idx].Payload[gainFieldStart] = byte(uint16(gain))
	pages[idx].Payload[gainFieldStart+1] = byte(uint16(gain) >> 8)

	var out bytes.Buffer
	for _, p := range pages {
		if err := oggcodec.WritePage(&out, p); err != nil {
			return fmt.Errorf("opusgain: write page: %w", err)
		}
	}

	if err := os.WriteFile(filename, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("opusgain: write %s: %w", filename, err)
	}

	return nil
}
