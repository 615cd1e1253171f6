package xiph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// commentHeader is a parsed Vorbis-comment structure, shared by the
// Vorbis/FLAC ("\x03vorbis") and Opus ("OpusTags") packet framings,
// which differ only in their magic prefix and in whether a trailing
// framing bit follows the comment list.
type commentHeader struct {
	vendor       string
	fields       []string
	framingBit   bool
	magicPrefix  []byte
}

func parseCommentHeader(packet []byte, magic []byte, framingBit bool) (*commentHeader, error) {
	if !bytes.HasPrefix(packet, magic) {
		return nil, fmt.Errorf("xiph: comment packet missing %q magic", magic)
	}

	r := packet[len(magic):]

	vendor, r, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}

	if len(r) < 4 {
		return nil, fmt.Errorf("xiph: truncated comment list count")
	}

	count := binary.LittleEndian.Uint32(r[:4])
	r = r[4:]

	fields := make([]string, 0, count)

	for range count {
		field, rest, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}

		fields = append(fields, field)
		r = rest
	}

	return &commentHeader{
		vendor:      vendor,
		fields:      fields,
		framingBit:  framingBit,
		magicPrefix: magic,
	}, nil
}

func readLengthPrefixed(r []byte) (string, []byte, error) {
	if len(r) < 4 {
		return "", nil, fmt.Errorf("xiph: truncated length-prefixed field")
	}

	n := binary.LittleEndian.Uint32(r[:4])
	r = r[4:]

	if uint32(len(r)) < n {
		return "", nil, fmt.Errorf("xiph: length-prefixed field overruns packet")
	}

	return string(r[:n]), r[n:], nil
}

// removeField deletes every field whose name (case-insensitively) matches.
func (h *commentHeader) removeField(name string) {
	prefix := strings.ToUpper(name) + "="

	kept := h.fields[:0]

	for _, f := range h.fields {
		if strings.HasPrefix(strings.ToUpper(f), prefix) {
			continue
		}

		kept = append(kept, f)
	}

	h.fields = kept
}

func (h *commentHeader) addField(name, value string) {
	h.fields = append(h.fields, name+"="+value)
}

// fieldValues returns the values of every field matching name, for Has
// probes that need to inspect a previously-written peak.
func (h *commentHeader) fieldValues(name string) []string {
	prefix := strings.ToUpper(name) + "="

	var values []string

	for _, f := range h.fields {
		if strings.HasPrefix(strings.ToUpper(f), prefix) {
			values = append(values, f[len(prefix):])
		}
	}

	return values
}

func (h *commentHeader) encode() []byte {
	var buf bytes.Buffer

	buf.Write(h.magicPrefix)
	writeLengthPrefixed(&buf, h.vendor)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(h.fields)))
	buf.Write(countBuf[:])

	for _, f := range h.fields {
		writeLengthPrefixed(&buf, f)
	}

	if h.framingBit {
		buf.WriteByte(0x01)
	}

	return buf.Bytes()
}

func writeLengthPrefixed(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}
