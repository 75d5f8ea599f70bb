// Package convert turns audio sources into DCA1 containers.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/glizzus/oggdca/internal/dca"
	"github.com/glizzus/oggdca/internal/metadata"
	"github.com/glizzus/oggdca/internal/opus"
)

// Transcoder produces an Opus-in-Ogg stream from an input file or URL.
type Transcoder interface {
	Transcode(ctx context.Context, input string, opts opus.TranscodeOptions) (io.ReadCloser, error)
}

var _ Transcoder = opus.FFmpeg{}

type Converter struct {
	Profile    dca.Profile
	Transcoder Transcoder
}

// NewConverter returns a Converter using ffmpeg at ffmpegPath.
func NewConverter(profile dca.Profile, ffmpegPath string) *Converter {
	return &Converter{
		Profile:    profile,
		Transcoder: opus.FFmpeg{Path: ffmpegPath},
	}
}

type Request struct {
	Input    string
	Metadata metadata.Metadata

	// Start and Duration trim the input. They fall back to the metadata's
	// StartTime and Duration when zero.
	Start    time.Duration
	Duration time.Duration
}

type Result struct {
	Data       []byte
	Frames     int
	HeaderSize int
}

func (c *Converter) transcodeOptions(req Request) opus.TranscodeOptions {
	opts := opus.DefaultTranscodeOptions()
	opts.Bitrate = c.Profile.Opus.Bitrate
	opts.Channels = c.Profile.Opus.Channels
	opts.SampleRate = c.Profile.Opus.SampleRate

	opts.Start = req.Start
	if opts.Start == 0 && req.Metadata.StartTime != nil {
		opts.Start = *req.Metadata.StartTime
	}
	opts.Duration = req.Duration
	if opts.Duration == 0 && req.Metadata.Duration != nil {
		opts.Duration = *req.Metadata.Duration
	}
	return opts
}

// Convert transcodes req.Input and packs the resulting Opus packets.
// The header is validated before the transcoder starts.
func (c *Converter) Convert(ctx context.Context, req Request) (result *Result, err error) {
	b := dca.NewBuilder(req.Metadata, c.Profile)
	if err := b.WriteHeader(); err != nil {
		return nil, err
	}

	stream, err := c.Transcoder.Transcode(ctx, req.Input, c.transcodeOptions(req))
	if err != nil {
		return nil, fmt.Errorf("failed to start transcoder: %w", err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			result = nil
			err = errors.Join(err, fmt.Errorf("transcoder: %w", closeErr))
		}
	}()

	return pack(b, stream)
}

// ConvertOgg packs an existing Opus-in-Ogg stream without transcoding it.
func (c *Converter) ConvertOgg(ctx context.Context, r io.Reader, meta metadata.Metadata) (*Result, error) {
	b := dca.NewBuilder(meta, c.Profile)
	if err := b.WriteHeader(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pack(b, r)
}

func pack(b *dca.Builder, r io.Reader) (*Result, error) {
	frames, err := b.CopyFrames(opus.NewPacketReader(r))
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:       b.Bytes(),
		Frames:     frames,
		HeaderSize: len(b.HeaderBytes()),
	}, nil
}
