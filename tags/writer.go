package tags

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cwbudde/loudness-scanner/tags/ape"
	"github.com/cwbudde/loudness-scanner/tags/id3v2tag"
	"github.com/cwbudde/loudness-scanner/tags/mp4tag"
	"github.com/cwbudde/loudness-scanner/tags/opusgain"
	"github.com/cwbudde/loudness-scanner/tags/xiph"
)

type writeFunc func(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error

type hasFunc func(filename string) (bool, error)

type format struct {
	write writeFunc
	has   hasFunc
}

var formatsByExt = map[string]format{
	"mp3": {id3v2tag.Write, id3v2tag.Has},
	"mp2": {id3v2tag.Write, id3v2tag.Has},
	"flac": {xiph.WriteFLAC, xiph.HasFLAC},
	"ogg":  {xiph.WriteOggVorbis, xiph.HasOggVorbis},
	"oga":  {xiph.WriteOggVorbis, xiph.HasOggVorbis},
	"mpc":  {ape.Write, ape.Has},
	"wv":   {ape.Write, ape.Has},
	"mp4":  {mp4tag.Write, mp4tag.Has},
	"m4a":  {mp4tag.Write, mp4tag.Has},
	// "opus" is deliberately absent: Opus always goes through
	// opusgain.Write/opusgain.Has below, since tagging an Opus file also
	// requires the opusgain.TagInfo the plain dispatch table has no room for.
}

// Write renders gd and writes it into filename's tag, dispatched by
// file extension. info is only consulted for Opus files; pass a zero
// opusgain.TagInfo for every other format.
func Write(filename string, gd GainData, info opusgain.TagInfo) error {
	ext := extension(filename)

	if ext == "opus" {
		return opusgain.Write(filename, gd.TrackGain, gd.TrackPeak, gd.AlbumGain, gd.AlbumPeak, gd.AlbumMode, info)
	}

	f, ok := formatsByExt[ext]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return f.write(filename, gd.TrackGain, gd.TrackPeak, gd.AlbumGain, gd.AlbumPeak, gd.AlbumMode)
}

// Has reports whether filename already carries a non-placeholder
// ReplayGain payload, dispatched by file extension.
func Has(filename string) (bool, error) {
	ext := extension(filename)

	if ext == "opus" {
		return opusgain.Has(filename)
	}

	f, ok := formatsByExt[ext]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return f.has(filename)
}

func extension(filename string) string {
	ext := filepath.Ext(filename)

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
