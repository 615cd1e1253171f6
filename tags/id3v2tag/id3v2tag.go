// Package id3v2tag writes ReplayGain TXXX frames (and, for ID3v2.4 files,
// RVA2 relative-volume frames) to MP3/MP2 files.
package id3v2tag

import (
	"fmt"
	"math"

	"github.com/bogem/id3v2/v2"

	"github.com/cwbudde/loudness-scanner/tags/rgformat"
)

const (
	descTrackGain = "REPLAYGAIN_TRACK_GAIN"
	descTrackPeak = "REPLAYGAIN_TRACK_PEAK"
	descAlbumGain = "REPLAYGAIN_ALBUM_GAIN"
	descAlbumPeak = "REPLAYGAIN_ALBUM_PEAK"
)

// Write sets the ReplayGain TXXX frames on an MP3/MP2 file, clearing any
// existing ones first so re-scanning a file is idempotent. On ID3v2.4
// files it additionally writes RVA2 master-volume frames, matching
// TagLib-based scanners that only emit RVA2 once the frame's fixed-point
// encoding is unambiguous (ID3v2.3's RVA2 payload layout is ambiguous
// across readers).
func Write(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	tag, err := id3v2.Open(filename, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("id3v2tag: open %s: %w", filename, err)
	}
	defer tag.Close()

	clearTXXX(tag, descAlbumGain)
	clearTXXX(tag, descAlbumPeak)
	clearRVA2(tag, "album")
	clearTXXX(tag, descTrackGain)
	clearTXXX(tag, descTrackPeak)
	clearRVA2(tag, "track")

	setTXXX(tag, descTrackGain, rgformat.GainString(trackGain))
	setTXXX(tag, descTrackPeak, rgformat.PeakString(trackPeak))

	isV4 := tag.Version() == 4

	if isV4 {
		setRVA2(tag, "track", trackGain, trackPeak)
	}

	if albumMode {
		setTXXX(tag, descAlbumGain, rgformat.GainString(albumGain))
		setTXXX(tag, descAlbumPeak, rgformat.PeakString(albumPeak))

		if isV4 {
			setRVA2(tag, "album", albumGain, albumPeak)
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("id3v2tag: save %s: %w", filename, err)
	}

	return nil
}

// Has reports whether filename already carries ReplayGain frames with a
// non-zero peak. A zero peak is treated as "not yet tagged" -- some
// broken taggers write a zero placeholder, and re-scanning such a file
// should not be skipped by --incremental.
func Has(filename string) (bool, error) {
	tag, err := id3v2.Open(filename, id3v2.Options{Parse: true})
	if err != nil {
		return false, fmt.Errorf("id3v2tag: open %s: %w", filename, err)
	}
	defer tag.Close()

	hasAny := false

	for _, desc := range []string{descAlbumGain, descTrackGain} {
		if findTXXX(tag, desc) != nil {
			hasAny = true
		}
	}

	for _, desc := range []string{descAlbumPeak, descTrackPeak} {
		frame := findTXXX(tag, desc)
		if frame == nil {
			continue
		}

		value, err := parseFloat(frame.Value)
		if err == nil && value == 0 {
			return false, nil
		}

		hasAny = true
	}

	return hasAny, nil
}

func findTXXX(tag *id3v2.Tag, description string) *id3v2.UserDefinedTextFrame {
	for _, f := range tag.GetFrames(tag.CommonID("TXXX")) {
		udtf, ok := f.(id3v2.UserDefinedTextFrame)
		if ok && udtf.Description == description {
			return &udtf
		}
	}

	return nil
}

func clearTXXX(tag *id3v2.Tag, description string) {
	frames := tag.GetFrames(tag.CommonID("TXXX"))
	kept := make([]id3v2.Framer, 0, len(frames))

	for _, f := range frames {
		if udtf, ok := f.(id3v2.UserDefinedTextFrame); ok && udtf.Description == description {
			continue
		}

		kept = append(kept, f)
	}

	tag.DeleteFrames("TXXX")

	for _, f := range kept {
		if udtf, ok := f.(id3v2.UserDefinedTextFrame); ok {
			tag.AddUserDefinedTextFrame(udtf)
		}
	}
}

func setTXXX(tag *id3v2.Tag, description, value string) {
	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

// rva2FrameID is the raw frame identifier bogem/id3v2 has no first-class
// type for; it is written as a raw frame body following the RVA2 layout
// from the ID3v2.4 spec (identification string, channel type byte,
// volume adjustment as a big-endian int16 in 1/512dB units, bits
// representing peak, peak bytes).
const rva2FrameID = "RVA2"

func clearRVA2(tag *id3v2.Tag, identification string) {
	frames := tag.GetFrames(tag.CommonID(rva2FrameID))
	kept := make([]id3v2.Framer, 0, len(frames))

	for _, f := range frames {
		body, ok := f.(id3v2.UnknownFrame)
		if ok && rva2Identification(body.Body) == identification {
			continue
		}

		kept = append(kept, f)
	}

	tag.DeleteFrames(rva2FrameID)

	for _, f := range kept {
		tag.AddFrame(rva2FrameID, f)
	}
}

func setRVA2(tag *id3v2.Tag, identification string, gainLU, peak float64) {
	tag.AddFrame(rva2FrameID, id3v2.UnknownFrame{Body: buildRVA2(identification, gainLU, peak)})
}

const masterVolumeChannelType = 1

func buildRVA2(identification string, gainLU, peak float64) []byte {
	body := append([]byte(identification), 0x00, masterVolumeChannelType)

	adjustment := int16(math.Round(rgformat.Clamp(gainLU) * 512))
	body = append(body, byte(adjustment>>8), byte(adjustment))

	ampPeak := peak * 32768.0
	if ampPeak > 65535.0 {
		ampPeak = 65535.0
	}

	peakInt := uint32(math.Ceil(ampPeak))
	body = append(body, 16, byte(peakInt>>8), byte(peakInt))

	return body
}

// rva2Identification extracts the null-terminated identification string
// from a previously-written RVA2 frame body, for clearRVA2 matching.
func rva2Identification(body []byte) string {
	for i, b := range body {
		if b == 0x00 {
			return string(body[:i])
		}
	}

	return ""
}

func parseFloat(s string) (float64, error) {
	var f float64

	_, err := fmt.Sscanf(s, "%g", &f)

	return f, err
}
