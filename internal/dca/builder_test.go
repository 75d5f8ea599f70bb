package dca_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/glizzus/oggdca/internal/dca"
	"github.com/glizzus/oggdca/internal/metadata"
)

func songMetadata() metadata.Metadata {
	return metadata.Metadata{
		Title:     metadata.String("Song"),
		Artist:    metadata.String("Artist"),
		SourceURL: metadata.String("http://x"),
	}
}

func build(t *testing.T, meta metadata.Metadata, frames ...[]byte) []byte {
	t.Helper()
	b := dca.NewBuilder(meta, dca.DefaultProfile())
	if err := b.WriteHeader(); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for i, f := range frames {
		if err := b.WriteFrame(f); err != nil {
			t.Fatalf("failed to write frame %d: %v", i, err)
		}
	}
	return b.Bytes()
}

func TestBuilderConcreteLayout(t *testing.T) {
	out := build(t, songMetadata(), []byte{0x01, 0x02}, []byte{0xAA})

	if !bytes.HasPrefix(out, []byte{0x44, 0x43, 0x41, 0x31}) {
		t.Fatalf("expected DCA1 magic, got % x", out[:4])
	}

	headerLen := int(int32(binary.LittleEndian.Uint32(out[4:8])))
	header := out[8 : 8+headerLen]
	if !bytes.Contains(header, []byte(`"title":"Song"`)) {
		t.Errorf("expected title in header, got %s", header)
	}
	if !bytes.Contains(header, []byte(`"artist":"Artist"`)) {
		t.Errorf("expected artist in header, got %s", header)
	}

	frames := out[8+headerLen:]
	want := []byte{0x02, 0x00, 0x01, 0x02, 0x01, 0x00, 0xAA}
	if !bytes.Equal(frames, want) {
		t.Errorf("expected frames % x, got % x", want, frames)
	}
}

func TestBuilderInvariants(t *testing.T) {
	tc := []struct {
		name   string
		frames [][]byte
	}{
		{name: "no frames"},
		{name: "one empty frame", frames: [][]byte{{}}},
		{name: "mixed sizes", frames: [][]byte{{1}, bytes.Repeat([]byte{2}, 255), bytes.Repeat([]byte{3}, 4000)}},
		{name: "largest frame", frames: [][]byte{bytes.Repeat([]byte{4}, dca.MaxFrameSize)}},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			out := build(t, songMetadata(), test.frames...)

			if string(out[:4]) != dca.Magic {
				t.Fatalf("expected magic %q, got %q", dca.Magic, out[:4])
			}

			headerLen := int(int32(binary.LittleEndian.Uint32(out[4:8])))
			header, _, err := dca.Parse(out)
			if err != nil {
				t.Fatalf("failed to parse container: %v", err)
			}
			if header == nil {
				t.Fatal("expected a header")
			}

			sum := 0
			for _, f := range test.frames {
				sum += 2 + len(f)
			}
			if got := len(out) - 8 - headerLen; got != sum {
				t.Errorf("expected %d bytes of frames, got %d", sum, got)
			}
		})
	}
}

func TestBuilderRoundTrip(t *testing.T) {
	frames := [][]byte{{0xfc, 0xff, 0xfe}, {}, bytes.Repeat([]byte{0x11}, dca.MaxFrameSize), {0x00}}
	meta := songMetadata()

	out := build(t, meta, frames...)

	header, got, err := dca.Parse(out)
	if err != nil {
		t.Fatalf("failed to parse container: %v", err)
	}

	want, err := dca.NewHeader(dca.DefaultProfile(), meta)
	if err != nil {
		t.Fatalf("failed to build expected header: %v", err)
	}
	if diff := cmp.Diff(want, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(frames, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderFrameBounds(t *testing.T) {
	b := dca.NewBuilder(songMetadata(), dca.DefaultProfile())
	if err := b.WriteHeader(); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	if err := b.WriteFrame(make([]byte, dca.MaxFrameSize)); err != nil {
		t.Errorf("expected %d bytes to fit, got %v", dca.MaxFrameSize, err)
	}

	before := b.Len()
	err := b.WriteFrame(make([]byte, dca.MaxFrameSize+1))
	if !errors.Is(err, dca.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	var tooLarge *dca.FrameTooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Size != dca.MaxFrameSize+1 {
		t.Errorf("expected FrameTooLargeError of %d bytes, got %v", dca.MaxFrameSize+1, err)
	}
	if b.Len() != before {
		t.Errorf("expected a rejected frame to leave the buffer alone, grew by %d", b.Len()-before)
	}
	if b.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", b.Frames())
	}
}

func TestBuilderMissingFields(t *testing.T) {
	tc := []struct {
		name  string
		meta  metadata.Metadata
		field string
	}{
		{
			name:  "missing artist",
			meta:  metadata.Metadata{Title: metadata.String("Song")},
			field: "artist",
		},
		{
			name:  "missing title",
			meta:  metadata.Metadata{Artist: metadata.String("Artist")},
			field: "title",
		},
		{
			name:  "missing both",
			meta:  metadata.Metadata{},
			field: "title",
		},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			b := dca.NewBuilder(test.meta, dca.DefaultProfile())
			err := b.WriteHeader()
			if !errors.Is(err, dca.ErrMissingRequiredField) {
				t.Fatalf("expected ErrMissingRequiredField, got %v", err)
			}
			var missing *dca.MissingFieldError
			if !errors.As(err, &missing) || missing.Field != test.field {
				t.Errorf("expected missing field %q, got %v", test.field, err)
			}
			if b.Len() != 0 {
				t.Errorf("expected nothing written, got %d bytes", b.Len())
			}
			if err := b.WriteFrame([]byte{1}); !errors.Is(err, dca.ErrHeaderNotWritten) {
				t.Errorf("expected ErrHeaderNotWritten after a failed header, got %v", err)
			}
		})
	}

	b := dca.NewBuilder(songMetadata(), dca.DefaultProfile())
	if err := b.WriteHeader(); err != nil {
		t.Errorf("expected title and artist to be enough, got %v", err)
	}
}

func TestBuilderOrdering(t *testing.T) {
	b := dca.NewBuilder(songMetadata(), dca.DefaultProfile())

	if err := b.WriteFrame([]byte{1}); !errors.Is(err, dca.ErrHeaderNotWritten) {
		t.Errorf("expected ErrHeaderNotWritten, got %v", err)
	}
	if err := b.WriteHeader(); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	if err := b.WriteHeader(); !errors.Is(err, dca.ErrHeaderWritten) {
		t.Errorf("expected ErrHeaderWritten, got %v", err)
	}
}

func TestBuilderSlices(t *testing.T) {
	b := dca.NewBuilder(songMetadata(), dca.DefaultProfile())
	if b.HeaderBytes() != nil || b.AudioBytes() != nil {
		t.Fatal("expected no slices before anything is written")
	}

	if err := b.WriteHeader(); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	header := b.HeaderBytes()
	if len(header) == 0 || header[0] != '{' {
		t.Errorf("expected the JSON header, got %q", header)
	}
	if b.AudioBytes() != nil {
		t.Error("expected no audio before a frame is written")
	}

	if err := b.WriteFrame([]byte{0xAA}); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
	if diff := cmp.Diff([]byte{0x01, 0x00, 0xAA}, b.AudioBytes()); diff != "" {
		t.Errorf("audio mismatch (-want +got):\n%s", diff)
	}

	first := b.Bytes()
	second := b.Bytes()
	if !bytes.Equal(first, second) {
		t.Error("expected Bytes to be idempotent")
	}
	first[0] = 'X'
	if b.Bytes()[0] != 'D' {
		t.Error("expected Bytes to return a copy")
	}

	var sink bytes.Buffer
	n, err := b.WriteTo(&sink)
	if err != nil {
		t.Fatalf("failed to write to sink: %v", err)
	}
	if int(n) != b.Len() || !bytes.Equal(sink.Bytes(), second) {
		t.Errorf("expected the sink to receive the container, got %d bytes", n)
	}
}

func TestBuilderProfile(t *testing.T) {
	profile := dca.DefaultProfile()
	profile.Tool = dca.Tool{Name: "other", Version: "2.0.0", URL: "https://example.com", Author: "someone"}
	profile.Opus.Bitrate = 96000
	profile.Opus.Channels = 1

	b := dca.NewBuilder(songMetadata(), profile)
	if err := b.WriteHeader(); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	header, _, err := dca.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("failed to parse container: %v", err)
	}
	if diff := cmp.Diff(profile.Tool, header.DCA.Tool); diff != "" {
		t.Errorf("tool mismatch (-want +got):\n%s", diff)
	}
	if header.DCA.Version != dca.FormatVersion {
		t.Errorf("expected version %d, got %d", dca.FormatVersion, header.DCA.Version)
	}
	if *header.Origin.Bitrate != 96000 || *header.Origin.Channels != 1 {
		t.Errorf("expected origin to follow the profile, got %+v", header.Origin)
	}
}

type packetList [][]byte

func (p *packetList) ReadPacket() ([]byte, error) {
	if len(*p) == 0 {
		return nil, io.EOF
	}
	next := (*p)[0]
	*p = (*p)[1:]
	return next, nil
}

func TestBuild(t *testing.T) {
	packets := packetList{{1}, {2}, {3}}
	out, err := dca.Build(songMetadata(), dca.DefaultProfile(), &packets)
	if err != nil {
		t.Fatalf("failed to build: %v", err)
	}

	_, frames, err := dca.Parse(out)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if diff := cmp.Diff([][]byte{{1}, {2}, {3}}, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	tooLarge := packetList{{1}, make([]byte, dca.MaxFrameSize+1)}
	if _, err := dca.Build(songMetadata(), dca.DefaultProfile(), &tooLarge); !errors.Is(err, dca.ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}
