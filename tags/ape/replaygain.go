package ape

import "github.com/cwbudde/loudness-scanner/tags/rgformat"

const (
	fieldTrackGain = "replaygain_track_gain"
	fieldTrackPeak = "replaygain_track_peak"
	fieldAlbumGain = "replaygain_album_gain"
	fieldAlbumPeak = "replaygain_album_peak"
)

// Write upserts ReplayGain items into filename's APEv2 tag, grounded on
// rgtag.cpp's tag_ape: always sets track gain/peak, sets or removes
// album gain/peak depending on albumMode.
func Write(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	tag, base, err := ReadFile(filename)
	if err != nil {
		return err
	}

	tag.Set(fieldTrackGain, rgformat.GainString(trackGain))
	tag.Set(fieldTrackPeak, rgformat.PeakString(trackPeak))

	if albumMode {
		tag.Set(fieldAlbumGain, rgformat.GainString(albumGain))
		tag.Set(fieldAlbumPeak, rgformat.PeakString(albumPeak))
	} else {
		tag.Remove(fieldAlbumGain)
		tag.Remove(fieldAlbumPeak)
	}

	return WriteFile(filename, base, tag)
}

// Has reports whether filename already carries ReplayGain items; an item
// holding a zero peak makes it report false.
func Has(filename string) (bool, error) {
	tag, _, err := ReadFile(filename)
	if err != nil {
		return false, err
	}

	has := false

	for _, key := range []string{fieldAlbumPeak, fieldTrackPeak} {
		value, ok := tag.Get(key)
		if !ok {
			continue
		}

		if value == "0.000000" || value == "0" {
			return false, nil
		}

		has = true
	}

	if _, ok := tag.Get(fieldAlbumGain); ok {
		has = true
	}

	if _, ok := tag.Get(fieldTrackGain); ok {
		has = true
	}

	return has, nil
}
