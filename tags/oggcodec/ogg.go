// Package oggcodec implements just enough of the Ogg bitstream format
// (RFC 3533) to locate and rewrite individual packets in place: page
// parsing, packet reassembly across lacing, and page re-serialization
// with a recomputed checksum. Shared by tags/xiph (Vorbis/Opus comment
// headers) and tags/opusgain (the Opus identification header's gain
// field), both of which need to edit one packet of a file without
// disturbing the rest of the bitstream.
package oggcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Page is one physical Ogg page.
type Page struct {
	Version      byte
	HeaderType   byte
	GranulePos   int64
	Serial       uint32
	Sequence     uint32
	SegmentTable []byte
	Payload      []byte

	// Offset is the file byte offset of this page's payload, valid only
	// on pages returned by ParsePages against a full file, used by
	// callers that need to patch bytes in place without repagination.
	Offset int64
}

const Magic = "OggS"

// ParsePages splits data into its constituent Ogg pages.
func ParsePages(data []byte) ([]Page, error) {
	var pages []Page

	base := 0

	for len(data) > 0 {
		if len(data) < 27 || string(data[:4]) != Magic {
			return nil, fmt.Errorf("oggcodec: not a valid Ogg page at file offset %d", base)
		}

		p := Page{
			Version:    data[4],
			HeaderType: data[5],
			GranulePos: int64(binary.LittleEndian.Uint64(data[6:14])),
			Serial:     binary.LittleEndian.Uint32(data[14:18]),
			Sequence:   binary.LittleEndian.Uint32(data[18:22]),
		}

		segCount := int(data[26])
		p.SegmentTable = append([]byte(nil), data[27:27+segCount]...)

		payloadLen := 0
		for _, s := range p.SegmentTable {
			payloadLen += int(s)
		}

		headerLen := 27 + segCount
		p.Payload = append([]byte(nil), data[headerLen:headerLen+payloadLen]...)
		p.Offset = int64(base + headerLen)

		pages = append(pages, p)

		consumed := headerLen + payloadLen
		data = data[consumed:]
		base += consumed
	}

	return pages, nil
}

// Packets reassembles the logical packets carried by pages, honoring
// lacing (a 255-byte segment continues into the next segment/page).
func Packets(pages []Page) [][]byte {
	var (
		out     [][]byte
		current []byte
	)

	for _, p := range pages {
		offset := 0
		for _, segLen := range p.SegmentTable {
			current = append(current, p.Payload[offset:offset+int(segLen)]...)
			offset += int(segLen)

			if segLen < 255 {
				out = append(out, current)
				current = nil
			}
		}
	}

	if len(current) > 0 {
		out = append(out, current)
	}

	return out
}

// Lace splits a packet into 255-byte segments per RFC 3533 lacing rules.
func Lace(packet []byte) []byte {
	table := make([]byte, 0, len(packet)/255+1)

	n := len(packet)
	for n >= 255 {
		table = append(table, 255)
		n -= 255
	}

	table = append(table, byte(n))

	return table
}

// WritePage serializes p into buf, recomputing its CRC.
func WritePage(buf *bytes.Buffer, p Page) error {
	header := make([]byte, 27)
	copy(header[:4], Magic)
	header[4] = p.Version
	header[5] = p.HeaderType
	binary.LittleEndian.PutUint64(header[6:14], uint64(p.GranulePos))
	binary.LittleEndian.PutUint32(header[14:18], p.Serial)
	binary.LittleEndian.PutUint32(header[18:22], p.Sequence)
	header[26] = byte(len(p.SegmentTable))

	full := append(header, p.SegmentTable...)
	full = append(full, p.Payload...)

	binary.LittleEndian.PutUint32(full[22:26], 0)
	crc := CRC32(full)
	binary.LittleEndian.PutUint32(full[22:26], crc)

	_, err := buf.Write(full)

	return err
}

// CRC32 implements the CRC-32 variant RFC 3533 mandates for Ogg page
// checksums: polynomial 0x04c11db7, no reflection, no final XOR.
func CRC32(data []byte) uint32 {
	var crc uint32

	for _, b := range data {
		crc ^= uint32(b) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
