// Package mp4tag writes ReplayGain freeform iTunes metadata atoms
// ("----:com.apple.iTunes:replaygain_*") into MP4/M4A files. TagLib has
// no maintained Go equivalent for MP4 box-format editing, so this is a
// minimal from-scratch ISO-BMFF box reader/writer scoped to exactly what
// ReplayGain tagging needs: locate moov/udta/meta/ilst, rewrite its
// freeform children, and fix up chunk offset tables if moov grows and
// precedes mdat.
package mp4tag

import (
	"encoding/binary"
	"fmt"
)

// box is one ISO-BMFF box (also called an "atom").
type box struct {
	boxType  string
	payload  []byte // for leaf/opaque boxes
	children []*box // for container boxes; payload is nil when set
}

// containerTypes lists boxes whose body is a plain sequence of child
// boxes with no leading fields. "meta" is deliberately absent: its body
// starts with a 4-byte version/flags prefix before its children, handled
// as a special case in parseBoxes.
var containerTypes = map[string]bool{
	"moov": true, "trak": true, "mdia": true, "minf": true,
	"stbl": true, "udta": true, "ilst": true,
	"----": true,
}

func parseBoxes(data []byte) ([]*box, error) {
	var boxes []*box

	offset := int64(0)

	for offset+8 <= int64(len(data)) {
		size := int64(binary.BigEndian.Uint32(data[offset : offset+4]))
		boxType := string(data[offset+4 : offset+8])

		headerLen := int64(8)
		if size == 1 {
			if offset+16 > int64(len(data)) {
				return nil, fmt.Errorf("mp4tag: truncated 64-bit box size")
			}

			size = int64(binary.BigEndian.Uint64(data[offset+8 : offset+16]))
			headerLen = 16
		}

		if size < headerLen || offset+size > int64(len(data)) {
			return nil, fmt.Errorf("mp4tag: box %q has invalid size %d", boxType, size)
		}

		b := &box{boxType: boxType}

		body := data[offset+headerLen : offset+size]
		if containerTypes[boxType] {
			children, err := parseBoxes(body)
			if err != nil {
				return nil, err
			}

			b.children = children
		} else if boxType == "meta" {
			// "meta" has a 4-byte version/flags prefix before its children.
			if len(body) < 4 {
				return nil, fmt.Errorf("mp4tag: truncated meta box")
			}

			children, err := parseBoxes(body[4:])
			if err != nil {
				return nil, err
			}

			b.payload = append([]byte(nil), body[:4]...)
			b.children = children
		} else {
			b.payload = append([]byte(nil), body...)
		}

		boxes = append(boxes, b)
		offset += size
	}

	return boxes, nil
}

func findChild(boxes []*box, boxType string) *box {
	for _, b := range boxes {
		if b.boxType == boxType {
			return b
		}
	}

	return nil
}

// encode serializes b, always using the 32-bit size form; callers that
// need 64-bit (>4GiB) boxes are out of scope for tag editing.
func (b *box) encode() []byte {
	var body []byte

	if b.boxType == "meta" {
		body = append(body, b.payload...)

		for _, c := range b.children {
			body = append(body, c.encode()...)
		}
	} else if len(b.children) > 0 {
		for _, c := range b.children {
			body = append(body, c.encode()...)
		}
	} else {
		body = b.payload
	}

	out := make([]byte, 8)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(body)+8))
	copy(out[4:8], b.boxType)

	return append(out, body...)
}

func encodeAll(boxes []*box) []byte {
	var out []byte
	for _, b := range boxes {
		out = append(out, b.encode()...)
	}

	return out
}
