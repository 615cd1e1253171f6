package mp4tag

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func u32box(boxType string, body []byte) []byte {
	out := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(out)))
	copy(out[4:8], boxType)
	copy(out[8:], body)

	return out
}

// buildMinimalMP4 assembles a moov/udta/meta/ilst chain with no
// freeform items yet, plus a trailing mdat whose stco chunk offset
// points into itself, mirroring a real muxer's layout (moov before
// mdat, stco pointing past moov).
func buildMinimalMP4(stcoOffset uint32) []byte {
	ilst := u32box("ilst", nil)
	metaBody := append([]byte{0, 0, 0, 0}, ilst...)
	meta := u32box("meta", metaBody)
	udta := u32box("udta", meta)

	stcoBody := make([]byte, 8+4)
	binary.BigEndian.PutUint32(stcoBody[4:8], 1) // entry count
	binary.BigEndian.PutUint32(stcoBody[8:12], stcoOffset)
	stco := u32box("stco", stcoBody)

	stbl := u32box("stbl", stco)
	minf := u32box("minf", stbl)
	mdia := u32box("mdia", minf)
	trak := u32box("trak", mdia)

	moov := u32box("moov", append(append([]byte{}, trak...), udta...))
	mdat := u32box("mdat", []byte("audio-payload-bytes"))

	return append(moov, mdat...)
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.m4a")

	// The payload starts len(payload) bytes before the end of the file,
	// since mdat is the last box and its payload is its last bytes.
	payloadOffset := uint32(len(buildMinimalMP4(0)) - len("audio-payload-bytes"))

	data := buildMinimalMP4(payloadOffset)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := Write(path, -1.25, 0.5, -2, 0.6, true); err != nil {
		t.Fatalf("Write: %v", err)
	}

	has, err := Has(path)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}

	if !has {
		t.Error("expected Has to report true after Write")
	}

	// The file must still parse as valid boxes end-to-end after the
	// ilst grew and the stco offset was fixed up.
	grown, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	boxes, err := parseBoxes(grown)
	if err != nil {
		t.Fatalf("parseBoxes on written file: %v", err)
	}

	mdat := findChild(boxes, "mdat")
	if mdat == nil {
		t.Fatal("mdat box missing after write")
	}

	if string(mdat.payload) != "audio-payload-bytes" {
		t.Errorf("mdat payload corrupted: %q", mdat.payload)
	}
}

func TestWrite_AlbumModeFalseOmitsAlbumFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp4")
	data := buildMinimalMP4(0)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := Write(path, -1, 0.5, -2, 0.6, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	boxes, err := parseBoxes(raw)
	if err != nil {
		t.Fatalf("parseBoxes: %v", err)
	}

	moov := findChild(boxes, "moov")
	ilst := findIlst(moov)
	if ilst == nil {
		t.Fatal("ilst missing")
	}

	if _, ok := freeformValue(ilst, fieldAlbumGain); ok {
		t.Error("album gain should be absent when albumMode is false")
	}

	if _, ok := freeformValue(ilst, fieldTrackGain); !ok {
		t.Error("track gain should always be present")
	}
}

func TestWrite_NoMoovIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mp4")

	if err := os.WriteFile(path, u32box("ftyp", []byte("M4A ")), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := Write(path, -1, 0.5, -2, 0.6, true); err == nil {
		t.Error("expected an error for a file with no moov box")
	}
}
