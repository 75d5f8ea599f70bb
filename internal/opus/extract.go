package opus

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/jonas747/ogg"
)

// HeaderPackets is how many leading packets are dropped: the OpusHead
// identification header and the OpusTags comment header.
// The count is fixed; the packets are not inspected.
const HeaderPackets = 2

// ErrMalformedSource wraps every error the Ogg demultiplexer reports,
// including a stream that ends in the middle of a page or a packet.
var ErrMalformedSource = errors.New("malformed ogg source")

var (
	errNoPage     = errors.New("no ogg page found")
	errIncomplete = errors.New("stream ends before the last packet is complete")
)

// countingReader counts the bytes the demultiplexer has consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// PacketReader reads the audio packets of an Opus-in-Ogg stream.
// It reads lazily, cannot be restarted, and stops for good at the first error.
type PacketReader struct {
	src     *countingReader
	decoder *ogg.PacketDecoder
	skip    int
	read    int
	err     error

	pages    int
	pageEnd  int64
	openTail bool
}

// NewPacketReader returns a PacketReader that reads Ogg pages from r.
func NewPacketReader(r io.Reader) *PacketReader {
	src := &countingReader{r: r}
	return &PacketReader{
		src:     src,
		decoder: ogg.NewPacketDecoder(ogg.NewDecoder(src)),
		skip:    HeaderPackets,
	}
}

// ReadPacket returns the next audio packet.
// Returns io.EOF at the clean end of the stream.
func (p *PacketReader) ReadPacket() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}

	for {
		packet, page, err := p.decoder.Decode()
		if err != nil {
			p.err = p.fail(err)
			return nil, p.err
		}
		if len(page.SegTbl) > 0 {
			// The decoder reads whole pages and nothing past them.
			p.pages++
			p.pageEnd = p.src.n
			p.openTail = page.SegTbl[len(page.SegTbl)-1] == 0xff
		}
		p.read++

		if p.skip > 0 {
			p.skip--
			continue
		}

		return packet, nil
	}
}

// fail decides whether err ends the stream cleanly.
func (p *PacketReader) fail(err error) error {
	if errors.Is(err, io.EOF) {
		switch {
		case p.pages == 0 && p.src.n > 0:
			err = errNoPage
		case p.src.n > p.pageEnd, p.openTail:
			err = errIncomplete
		default:
			return io.EOF
		}
	}
	return fmt.Errorf("%w: packet %d: %w", ErrMalformedSource, p.read, err)
}

// Packets ranges over the remaining audio packets. A non-nil error is the
// last value yielded.
func (p *PacketReader) Packets() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			packet, err := p.ReadPacket()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(packet, err) || err != nil {
				return
			}
		}
	}
}
