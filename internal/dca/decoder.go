package dca

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Decoder reads a DCA1 container, or a bare stream of length-prefixed frames.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a new Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadHeader reads the magic, the header length and the JSON header.
// It must be called before the first ReadFrame on a full container.
func (d *Decoder) ReadHeader() (*Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(d.r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic[:3]) != Magic[:3] {
		return nil, ErrNotDCA
	}
	if string(magic[:]) != Magic {
		return nil, &UnsupportedVersionError{Found: string(magic[:])}
	}

	var size int32
	if err := binary.Read(d.r, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("reading header length: %w", noEOF(err))
	}
	if size < 0 || size > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d", ErrHeaderTooLarge, size)
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(d.r, raw); err != nil {
		return nil, fmt.Errorf("reading header: %w", noEOF(err))
	}

	var header Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if header.DCA.Version != FormatVersion {
		return nil, &UnsupportedVersionError{Found: fmt.Sprint(header.DCA.Version)}
	}
	return &header, nil
}

// ReadFrame reads and returns the next raw Opus frame.
// Returns io.EOF when there are no more frames and io.ErrUnexpectedEOF
// when the stream ends inside a frame.
func (d *Decoder) ReadFrame() ([]byte, error) {
	var size int16
	if err := binary.Read(d.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeFrameLength, size)
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(d.r, frame); err != nil {
		return nil, noEOF(err)
	}
	return frame, nil
}

// ReadPacket is ReadFrame, so a Decoder can feed a Builder.
func (d *Decoder) ReadPacket() ([]byte, error) {
	return d.ReadFrame()
}

// Parse splits a complete container into its header and frames.
func Parse(b []byte) (*Header, [][]byte, error) {
	d := NewDecoder(bytes.NewReader(b))
	header, err := d.ReadHeader()
	if err != nil {
		return nil, nil, err
	}

	var frames [][]byte
	for {
		frame, err := d.ReadFrame()
		if errors.Is(err, io.EOF) {
			return header, frames, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		frames = append(frames, frame)
	}
}

// noEOF turns a clean EOF in the middle of a structure into a truncation.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
