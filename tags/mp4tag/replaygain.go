package mp4tag

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/cwbudde/loudness-scanner/tags/rgformat"
)

const itunesMean = "com.apple.iTunes"

const (
	fieldTrackGain = "replaygain_track_gain"
	fieldTrackPeak = "replaygain_track_peak"
	fieldAlbumGain = "replaygain_album_gain"
	fieldAlbumPeak = "replaygain_album_peak"
)

// Write upserts ReplayGain freeform items into filename's ilst atom,
// grounded on rgtag.cpp's tag_mp4.
//
// Scope: any missing udta, meta or ilst box is created inside the
// existing moov box. A file with no moov box at all is reported as an
// error rather than synthesized from scratch.
func Write(filename string, trackGain, trackPeak, albumGain, albumPeak float64, albumMode bool) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("mp4tag: read %s: %w", filename, err)
	}

	top, err := parseBoxes(data)
	if err != nil {
		return err
	}

	moov := findChild(top, "moov")
	if moov == nil {
		return fmt.Errorf("mp4tag: %s has no moov box", filename)
	}

	ilst, err := findOrCreateIlst(moov)
	if err != nil {
		return err
	}

	removeFreeform(ilst, fieldAlbumGain)
	removeFreeform(ilst, fieldAlbumPeak)
	removeFreeform(ilst, fieldTrackGain)
	removeFreeform(ilst, fieldTrackPeak)

	ilst.children = append(ilst.children, freeformBox(fieldTrackGain, rgformat.GainString(trackGain)))
	ilst.children = append(ilst.children, freeformBox(fieldTrackPeak, rgformat.PeakString(trackPeak)))

	if albumMode {
		ilst.children = append(ilst.children, freeformBox(fieldAlbumGain, rgformat.GainString(albumGain)))
		ilst.children = append(ilst.children, freeformBox(fieldAlbumPeak, rgformat.PeakString(albumPeak)))
	}

	newTop := encodeAll(top)

	delta := int64(len(newTop)) - int64(len(data))
	if delta != 0 {
		fixChunkOffsets(top, delta)
		newTop = encodeAll(top)
	}

	if err := os.WriteFile(filename, newTop, 0o644); err != nil {
		return fmt.Errorf("mp4tag: write %s: %w", filename, err)
	}

	return nil
}

// Has reports whether filename already carries ReplayGain items; an
// item holding a zero peak makes it report false.
func Has(filename string) (bool, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return false, fmt.Errorf("mp4tag: read %s: %w", filename, err)
	}

	top, err := parseBoxes(data)
	if err != nil {
		return false, err
	}

	moov := findChild(top, "moov")
	if moov == nil {
		return false, nil
	}

	ilst := findIlst(moov)
	if ilst == nil {
		return false, nil
	}

	has := false

	for _, peakField := range []string{fieldAlbumPeak, fieldTrackPeak} {
		value, ok := freeformValue(ilst, peakField)
		if !ok {
			continue
		}

		if value == "0.000000" || value == "0" {
			return false, nil
		}

		has = true
	}

	if _, ok := freeformValue(ilst, fieldAlbumGain); ok {
		has = true
	}

	if _, ok := freeformValue(ilst, fieldTrackGain); ok {
		has = true
	}

	return has, nil
}

func findIlst(moov *box) *box {
	udta := findChild(moov.children, "udta")
	if udta == nil {
		return nil
	}

	meta := findChild(udta.children, "meta")
	if meta == nil {
		return nil
	}

	return findChild(meta.children, "ilst")
}

func findOrCreateIlst(moov *box) (*box, error) {
	udta := findChild(moov.children, "udta")
	if udta == nil {
		udta = &box{boxType: "udta"}
		moov.children = append(moov.children, udta)
	}

	meta := findChild(udta.children, "meta")
	if meta == nil {
		meta = &box{boxType: "meta", payload: []byte{0, 0, 0, 0}}
		udta.children = append(udta.children, meta)
	}

	ilst := findChild(meta.children, "ilst")
	if ilst == nil {
		ilst = &box{boxType: "ilst"}
		meta.children = append(meta.children, ilst)
	}

	return ilst, nil
}

func isFreeformField(b *box, field string) bool {
	if b.boxType != "----" {
		return false
	}

	mean := findChild(b.children, "mean")
	name := findChild(b.children, "name")

	return mean != nil && name != nil &&
		string(mean.payload[4:]) == itunesMean &&
		string(name.payload[4:]) == field
}

func removeFreeform(ilst *box, field string) {
	kept := ilst.children[:0]

	for _, c := range ilst.children {
		if isFreeformField(c, field) {
			continue
		}

		kept = append(kept, c)
	}

	ilst.children = kept
}

func freeformValue(ilst *box, field string) (string, bool) {
	for _, c := range ilst.children {
		if !isFreeformField(c, field) {
			continue
		}

		data := findChild(c.children, "data")
		if data == nil || len(data.payload) < 8 {
			return "", false
		}

		return string(data.payload[8:]), true
	}

	return "", false
}

func freeformBox(field, value string) *box {
	mean := &box{boxType: "mean", payload: append([]byte{0, 0, 0, 0}, []byte(itunesMean)...)}
	name := &box{boxType: "name", payload: append([]byte{0, 0, 0, 0}, []byte(field)...)}

	dataPayload := make([]byte, 8, 8+len(value))
	binary.BigEndian.PutUint32(dataPayload[0:4], 1) // well-known type 1 = UTF-8
	dataPayload = append(dataPayload, []byte(value)...)

	data := &box{boxType: "data", payload: dataPayload}

	return &box{boxType: "----", children: []*box{mean, name, data}}
}

// fixChunkOffsets adds delta to every stco/co64 chunk offset, keeping
// media-data references valid after moov has grown or shrunk in place,
// under the assumption (true of every common muxer) that moov precedes
// mdat and so every chunk offset in the file points past it.
func fixChunkOffsets(top []*box, delta int64) {
	for _, b := range top {
		walkBoxes(b, func(n *box) {
			switch n.boxType {
			case "stco":
				fixStco(n, delta)
			case "co64":
				fixCo64(n, delta)
			}
		})
	}
}

func walkBoxes(b *box, fn func(*box)) {
	fn(b)

	for _, c := range b.children {
		walkBoxes(c, fn)
	}
}

func fixStco(b *box, delta int64) {
	if len(b.payload) < 8 {
		return
	}

	count := binary.BigEndian.Uint32(b.payload[4:8])

	for i := uint32(0); i < count; i++ {
		off := 8 + i*4
		if int(off)+4 > len(b.payload) {
			break
		}

		orig := binary.BigEndian.Uint32(b.payload[off : off+4])
		binary.BigEndian.PutUint32(b.payload[off:off+4], uint32(int64(orig)+delta))
	}
}

func fixCo64(b *box, delta int64) {
	if len(b.payload) < 8 {
		return
	}

	count := binary.BigEndian.Uint32(b.payload[4:8])

	for i := uint32(0); i < count; i++ {
		off := 8 + i*8
		if int(off)+8 > len(b.payload) {
			break
		}

		orig := binary.BigEndian.Uint64(b.payload[off : off+8])
		binary.BigEndian.PutUint64(b.payload[off:off+8], uint64(int64(orig)+delta))
	}
}
