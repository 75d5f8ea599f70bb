package dca

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/glizzus/oggdca/internal/metadata"
)

// PacketSource yields raw Opus packets until it returns io.EOF.
type PacketSource interface {
	ReadPacket() ([]byte, error)
}

// Builder assembles a DCA1 container in memory.
// The header must be written exactly once, before any frame.
// A Builder is owned by a single goroutine.
type Builder struct {
	meta    metadata.Metadata
	profile Profile

	buf           bytes.Buffer
	headerSize    int
	headerWritten bool
	frames        int
}

// NewBuilder returns a Builder bound to meta. Nothing is written until
// WriteHeader is called.
func NewBuilder(meta metadata.Metadata, profile Profile) *Builder {
	return &Builder{meta: meta, profile: profile}
}

// WriteHeader appends the magic, the header length and the JSON header.
func (b *Builder) WriteHeader() error {
	if b.headerWritten {
		return ErrHeaderWritten
	}

	header, err := NewHeader(b.profile, b.meta)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if len(encoded) > math.MaxInt32 {
		return fmt.Errorf("%w: header is %d bytes", ErrSerialization, len(encoded))
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(int32(len(encoded))))

	b.buf.Grow(preambleSize + len(encoded))
	b.buf.WriteString(Magic)
	b.buf.Write(lenBuf[:])
	b.buf.Write(encoded)

	b.headerSize = len(encoded)
	b.headerWritten = true
	return nil
}

// WriteFrame appends one length-prefixed audio frame.
func (b *Builder) WriteFrame(frame []byte) error {
	if !b.headerWritten {
		return ErrHeaderNotWritten
	}
	if len(frame) > MaxFrameSize {
		return &FrameTooLargeError{Size: len(frame)}
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(int16(len(frame))))
	b.buf.Write(lenBuf[:])
	b.buf.Write(frame)

	b.frames++
	return nil
}

// CopyFrames writes every packet of src as a frame and returns how many
// were written. It stops at io.EOF or at the first error.
func (b *Builder) CopyFrames(src PacketSource) (int, error) {
	n := 0
	for {
		packet, err := src.ReadPacket()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := b.WriteFrame(packet); err != nil {
			return n, fmt.Errorf("frame %d: %w", n, err)
		}
		n++
	}
}

// Bytes returns a copy of the container written so far.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// WriteTo hands the container to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.buf.Bytes())
	return int64(n), err
}

// Len is the size of the container in bytes.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Frames is the number of frames written.
func (b *Builder) Frames() int {
	return b.frames
}

// HeaderBytes returns the JSON header, or nil before WriteHeader.
func (b *Builder) HeaderBytes() []byte {
	if !b.headerWritten {
		return nil
	}
	return bytes.Clone(b.buf.Bytes()[preambleSize : preambleSize+b.headerSize])
}

// AudioBytes returns the frame section, or nil when no frame was written.
func (b *Builder) AudioBytes() []byte {
	if b.frames == 0 {
		return nil
	}
	return bytes.Clone(b.buf.Bytes()[preambleSize+b.headerSize:])
}

// Build writes a complete container from meta and every packet of src.
func Build(meta metadata.Metadata, profile Profile, src PacketSource) ([]byte, error) {
	b := NewBuilder(meta, profile)
	if err := b.WriteHeader(); err != nil {
		return nil, err
	}
	if _, err := b.CopyFrames(src); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
