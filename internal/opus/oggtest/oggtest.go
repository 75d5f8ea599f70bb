// Package oggtest writes small Ogg bitstreams for tests.
package oggtest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jonas747/ogg"
)

const (
	headerTypeBOS = 0x02
	headerTypeEOS = 0x04

	pageHeaderSize = 27
	maxSegments    = 255
)

var crcTable = func() (t [256]uint32) {
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

func crc(b []byte) uint32 {
	var c uint32
	for _, v := range b {
		c = c<<8 ^ crcTable[byte(c>>24)^v]
	}
	return c
}

// Encode writes each packet on its own page with ogg.Encoder, the first
// one flagged BOS. The encoder leaves a packet whose length is a non-zero
// multiple of 255 unterminated, so those lengths panic; use Stream for them.
func Encode(serial uint32, packets ...[]byte) []byte {
	var buf bytes.Buffer
	enc := ogg.NewEncoder(serial, &buf)
	for i, p := range packets {
		if len(p) > 0 && len(p)%255 == 0 {
			panic(fmt.Sprintf("oggtest: ogg.Encoder cannot terminate a %d byte packet", len(p)))
		}
		encode := enc.Encode
		if i == 0 {
			encode = enc.EncodeBOS
		}
		if err := encode(int64(i)*960, p); err != nil {
			panic(fmt.Sprintf("oggtest: %v", err))
		}
	}
	return buf.Bytes()
}

// Page is the packets carried by one Ogg page. Packets never span pages.
type Page [][]byte

// Stream encodes pages as a single logical bitstream. The first page is
// flagged BOS and the last EOS.
func Stream(serial uint32, pages ...Page) []byte {
	var buf bytes.Buffer
	for i, p := range pages {
		var headerType byte
		if i == 0 {
			headerType |= headerTypeBOS
		}
		if i == len(pages)-1 {
			headerType |= headerTypeEOS
		}
		buf.Write(encodePage(serial, uint32(i), headerType, int64(i)*960, p))
	}
	return buf.Bytes()
}

// PerPage puts each packet on its own page, the way Opus headers are laid out.
func PerPage(packets ...[]byte) []Page {
	pages := make([]Page, 0, len(packets))
	for _, p := range packets {
		pages = append(pages, Page{p})
	}
	return pages
}

// OpusHead and OpusTags are minimal Opus header packets.
func OpusHead() []byte {
	b := []byte("OpusHead")
	// version 1, two channels, 312 samples pre-skip, 48 kHz input
	b = append(b, 1, 2)
	b = binary.LittleEndian.AppendUint16(b, 312)
	b = binary.LittleEndian.AppendUint32(b, 48000)
	// no output gain, mapping family 0
	b = append(b, 0, 0, 0)
	return b
}

func OpusTags() []byte {
	b := []byte("OpusTags")
	b = binary.LittleEndian.AppendUint32(b, 6)
	b = append(b, "oggdca"...)
	b = binary.LittleEndian.AppendUint32(b, 0)
	return b
}

// AppendOpenPage appends a page that carries only the start of a packet:
// every lacing value is 255, so the packet continues on a page that the
// caller may never write. len(data) must be a non-zero multiple of 255.
func AppendOpenPage(stream []byte, serial, seq uint32, data []byte) []byte {
	if len(data) == 0 || len(data)%255 != 0 {
		panic(fmt.Sprintf("oggtest: open page data must be a multiple of 255 bytes, got %d", len(data)))
	}
	lacing := bytes.Repeat([]byte{255}, len(data)/255)
	return append(bytes.Clone(stream), writePage(serial, seq, 0, -1, lacing, data)...)
}

// CorruptChecksum flips a bit of the CRC of the page starting at offset.
func CorruptChecksum(stream []byte, offset int) []byte {
	out := bytes.Clone(stream)
	out[offset+22] ^= 0x01
	return out
}

// PageOffsets returns where each page of stream begins.
func PageOffsets(stream []byte) []int {
	var offsets []int
	for i := 0; i+pageHeaderSize <= len(stream); {
		offsets = append(offsets, i)
		nsegs := int(stream[i+26])
		size := pageHeaderSize + nsegs
		for _, s := range stream[i+pageHeaderSize : i+pageHeaderSize+nsegs] {
			size += int(s)
		}
		i += size
	}
	return offsets
}

func encodePage(serial, seq uint32, headerType byte, granule int64, packets [][]byte) []byte {
	var lacing []byte
	var body []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
		body = append(body, p...)
	}
	return writePage(serial, seq, headerType, granule, lacing, body)
}

func writePage(serial, seq uint32, headerType byte, granule int64, lacing, body []byte) []byte {
	if len(lacing) > maxSegments {
		panic(fmt.Sprintf("oggtest: page needs %d segments, max is %d", len(lacing), maxSegments))
	}

	page := make([]byte, 0, pageHeaderSize+len(lacing)+len(body))
	page = append(page, "OggS"...)
	page = append(page, 0, headerType)
	page = binary.LittleEndian.AppendUint64(page, uint64(granule))
	page = binary.LittleEndian.AppendUint32(page, serial)
	page = binary.LittleEndian.AppendUint32(page, seq)
	page = binary.LittleEndian.AppendUint32(page, 0)
	page = append(page, byte(len(lacing)))
	page = append(page, lacing...)
	page = append(page, body...)

	binary.LittleEndian.PutUint32(page[22:26], crc(page))
	return page
}
