// Package xiph writes Vorbis-comment ReplayGain fields: natively for
// FLAC via go-flac/go-flac and go-flac/flacvorbis, and via a small
// internal Ogg bitstream codec for Ogg Vorbis and Ogg Opus, container
// formats no maintained Go library parses as bare Vorbis-comment
// streams.
//
// The Ogg codec assumes the comment header occupies whole Ogg pages of
// its own -- true of every common encoder (libvorbis, libopus always
// page-align it) but not guaranteed by the container format in general.
package xiph

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"

	"github.com/cwbudde/loudness-scanner/tags/oggcodec"
	"github.com/cwbudde/loudness-scanner/tags/rgformat"
)

const (
	fieldTrackGain = "REPLAYGAIN_TRACK_GAIN"
	fieldTrackPeak = "REPLAYGAIN_TRACK_PEAK"
	fieldAlbumGain = "REPLAYGAIN_ALBUM_GAIN"
	fieldAlbumPeak = "REPLAYGAIN_ALBUM_PEAK"
)

var (
	vorbisMagic = append([]byte{0x03}, []byte("vorbis")...)
	opusMagic   = []byte("OpusTags")
)

// WriteFLAC sets the ReplayGain Vorbis-comment block on a FLAC file.
func WriteFLAC(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	f, err := flac.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("xiph: parse flac %s: %w", filename, err)
	}

	var (
		cmt   *flacvorbis.MetaDataBlockVorbisComment
		cmtAt = -1
	)

	for i, b := range f.Meta {
		if b.Type == flac.VorbisComment {
			parsed, err := flacvorbis.ParseFromMetaDataBlock(*b)
			if err != nil {
				return fmt.Errorf("xiph: parse vorbis comment: %w", err)
			}

			cmt = parsed
			cmtAt = i

			break
		}
	}

	if cmt == nil {
		cmt = flacvorbis.New()
	}

	removeFLACField(cmt, fieldAlbumGain)
	removeFLACField(cmt, fieldAlbumPeak)
	removeFLACField(cmt, fieldTrackGain)
	removeFLACField(cmt, fieldTrackPeak)

	mustAdd(cmt.Add(fieldTrackGain, rgformat.GainString(trackGain)))
	mustAdd(cmt.Add(fieldTrackPeak, rgformat.PeakString(trackPeak)))

	if albumMode {
		mustAdd(cmt.Add(fieldAlbumGain, rgformat.GainString(albumGain)))
		mustAdd(cmt.Add(fieldAlbumPeak, rgformat.PeakString(albumPeak)))
	}

	block := cmt.Marshal()

	if cmtAt >= 0 {
		f.Meta[cmtAt] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(filename); err != nil {
		return fmt.Errorf("xiph: save flac %s: %w", filename, err)
	}

	return nil
}

// HasFLAC reports whether filename already carries ReplayGain fields; a
// field holding a zero peak makes it report false.
func HasFLAC(filename string) (bool, error) {
	f, err := flac.ParseFile(filename)
	if err != nil {
		return false, fmt.Errorf("xiph: parse flac %s: %w", filename, err)
	}

	for _, b := range f.Meta {
		if b.Type != flac.VorbisComment {
			continue
		}

		cmt, err := flacvorbis.ParseFromMetaDataBlock(*b)
		if err != nil {
			return false, fmt.Errorf("xiph: parse vorbis comment: %w", err)
		}

		return hasNonZeroPeaks(vorbisCommentFields(cmt)), nil
	}

	return false, nil
}

func vorbisCommentFields(cmt *flacvorbis.MetaDataBlockVorbisComment) []string {
	fields := make([]string, len(cmt.Comments))
	copy(fields, cmt.Comments)

	return fields
}

func removeFLACField(cmt *flacvorbis.MetaDataBlockVorbisComment, name string) {
	if values, _ := cmt.Get(name); len(values) > 0 {
		_ = cmt.Delete(name)
	}
}

func mustAdd(err error) {
	if err != nil {
		panic(fmt.Sprintf("xiph: flacvorbis rejected a well-formed field: %v", err))
	}
}

// WriteOggVorbis sets the ReplayGain Vorbis-comment fields on an Ogg
// Vorbis (.ogg/.oga) file.
func WriteOggVorbis(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	return writeOgg(filename, vorbisMagic, true, trackGain, trackPeak, albumGain, albumPeak, albumMode)
}

// HasOggVorbis reports whether filename already carries ReplayGain fields;
// a field holding a zero peak makes it report false.
func HasOggVorbis(filename string) (bool, error) {
	return hasOgg(filename, vorbisMagic, true)
}

// WriteOpus sets the ReplayGain Vorbis-comment fields on an Ogg Opus
// (.opus) file's comment header (distinct from the R128 header-gain
// fields opusgain.Write patches directly into the Opus header packet).
func WriteOpus(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	return writeOgg(filename, opusMagic, false, trackGain, trackPeak, albumGain, albumPeak, albumMode)
}

// HasOpus reports whether filename's comment header already carries
// ReplayGain fields; a field holding a zero peak makes it report false.
func HasOpus(filename string) (bool, error) {
	return hasOgg(filename, opusMagic, false)
}

func writeOgg(filename string, magic []byte, framingBit bool, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	return rewriteCommentPacket(filename, magic, framingBit, func(h *commentHeader) {
		h.removeField(fieldAlbumGain)
		h.removeField(fieldAlbumPeak)
		h.removeField(fieldTrackGain)
		h.removeField(fieldTrackPeak)

		h.addField(fieldTrackGain, rgformat.GainString(trackGain))
		h.addField(fieldTrackPeak, rgformat.PeakString(trackPeak))

		if albumMode {
			h.addField(fieldAlbumGain, rgformat.GainString(albumGain))
			h.addField(fieldAlbumPeak, rgformat.PeakString(albumPeak))
		}
	})
}

func hasOgg(filename string, magic []byte, framingBit bool) (bool, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return false, fmt.Errorf("xiph: read %s: %w", filename, err)
	}

	pages, err := oggcodec.ParsePages(data)
	if err != nil {
		return false, err
	}

	pkts := oggcodec.Packets(pages)
	if len(pkts) < 2 {
		return false, fmt.Errorf("xiph: %s has no comment header packet", filename)
	}

	h, err := parseCommentHeader(pkts[1], magic, framingBit)
	if err != nil {
		return false, err
	}

	return hasNonZeroPeaks(h.fields), nil
}

// rewriteCommentPacket replaces the second logical packet of an Ogg
// bitstream (the comment header, by convention immediately after the
// identification header) with a version mutated by edit, then rewrites
// the file. Page count and sequence numbers are unaffected: per this
// package's scope, the comment header always occupies its own whole
// page, so changing its payload size never adds or removes pages.
func rewriteCommentPacket(filename string, magic []byte, framingBit bool, edit func(*commentHeader)) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("xiph: read %s: %w", filename, err)
	}

	pages, err := oggcodec.ParsePages(data)
	if err != nil {
		return err
	}

	commentPageIdx, err := findCommentPage(pages, magic)
	if err != nil {
		return err
	}

	h, err := parseCommentHeader(pages[commentPageIdx].Payload, magic, framingBit)
	if err != nil {
		return err
	}

	edit(h)

	newPayload := h.encode()
	pages[commentPageIdx].Payload = newPayload
	pages[commentPageIdx].SegmentTable = oggcodec.Lace(newPayload)

	var out bytes.Buffer
	for _, p := range pages {
		if err := oggcodec.WritePage(&out, p); err != nil {
			return fmt.Errorf("xiph: write page: %w", err)
		}
	}

	if err := os.WriteFile(filename, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("xiph: write %s: %w", filename, err)
	}

	return nil
}

// findCommentPage locates the page whose payload (assumed, per this
// package's scope, to hold exactly one packet) carries the comment
// header magic.
func findCommentPage(pages []oggcodec.Page, magic []byte) (int, error) {
	for i, p := range pages {
		if bytes.HasPrefix(p.Payload, magic) {
			return i, nil
		}
	}

	return 0, fmt.Errorf("xiph: no page carries the %q comment header", magic)
}

// OpusCommentFields returns the raw "NAME=value" fields of an Ogg Opus
// file's comment header, for callers (the opusgain package) that need to
// probe fields this package doesn't know about (R128_TRACK_GAIN).
func OpusCommentFields(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("xiph: read %s: %w", filename, err)
	}

	pages, err := oggcodec.ParsePages(data)
	if err != nil {
		return nil, err
	}

	pkts := oggcodec.Packets(pages)
	if len(pkts) < 2 {
		return nil, fmt.Errorf("xiph: %s has no comment header packet", filename)
	}

	h, err := parseCommentHeader(pkts[1], opusMagic, false)
	if err != nil {
		return nil, err
	}

	return h.fields, nil
}

// EditOpusCommentFields mutates an Ogg Opus file's comment header field
// list in place, leaving the identification header and every audio page
// untouched. Exposed for the opusgain package, which needs to write
// R128_TRACK_GAIN/R128_ALBUM_GAIN (and, for --opus-vorbisgain-compat,
// REPLAYGAIN_*) fields into the same comment packet this package edits
// for plain (non-Opus-header-gain) Ogg Opus tagging.
func EditOpusCommentFields(filename string, edit func(set func(name, value string), remove func(name string))) error {
	return rewriteCommentPacket(filename, opusMagic, false, func(h *commentHeader) {
		edit(h.addField, h.removeField)
	})
}

func hasNonZeroPeaks(fields []string) bool {
	has := false

	for _, f := range fields {
		upper := strings.ToUpper(f)
		switch {
		case hasFieldPrefix(upper, fieldAlbumPeak), hasFieldPrefix(upper, fieldTrackPeak):
			if fieldIsZero(f) {
				return false
			}

			has = true
		case hasFieldPrefix(upper, fieldAlbumGain), hasFieldPrefix(upper, fieldTrackGain):
			has = true
		}
	}

	return has
}

func hasFieldPrefix(field, name string) bool {
	return len(field) > len(name) && field[:len(name)] == name && field[len(name)] == '='
}

func fieldIsZero(field string) bool {
	for i, c := range field {
		if c == '=' {
			return field[i+1:] == "0.000000" || field[i+1:] == "0"
		}
	}

	return false
}
