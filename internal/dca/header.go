package dca

import (
	"github.com/glizzus/oggdca/internal/metadata"
)

const (
	// Magic is the frozen four byte tag at the start of every container.
	Magic = "DCA1"

	// FormatVersion is the only container version this package reads or writes.
	FormatVersion = 1

	// MaxFrameSize is the largest payload an int16 length prefix can describe.
	MaxFrameSize = 32767

	// MaxHeaderSize bounds the JSON header a Decoder is willing to allocate.
	MaxHeaderSize = 1 << 24

	preambleSize = len(Magic) + 4
)

// Header is the JSON metadata block of a DCA1 container.
type Header struct {
	DCA    FormatInfo `json:"dca"`
	Opus   OpusInfo   `json:"opus"`
	Info   *TrackInfo `json:"info"`
	Origin *Origin    `json:"origin"`
	Extra  Extra      `json:"extra"`
}

type FormatInfo struct {
	Version int  `json:"version"`
	Tool    Tool `json:"tool"`
}

// Tool identifies the program that wrote a container.
type Tool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
	Author  string `json:"author"`
}

// OpusInfo describes the encoder settings of the frames.
type OpusInfo struct {
	Mode       string `json:"mode"`
	SampleRate int    `json:"sample_rate"`
	FrameSize  int    `json:"frame_size"`
	Bitrate    int    `json:"abr"`
	VBR        bool   `json:"vbr"`
	Channels   int    `json:"channels"`
}

type TrackInfo struct {
	Title  *string `json:"title"`
	Artist *string `json:"artist"`
	Album  *string `json:"album"`
	Genre  *string `json:"genre"`
	Cover  *string `json:"cover"`
}

// Origin describes where the audio came from before it was encoded.
type Origin struct {
	Source   *string `json:"source"`
	Bitrate  *int    `json:"abr"`
	Channels *int    `json:"channels"`
	Encoding *string `json:"encoding"`
	URL      *string `json:"url"`
}

// Extra is reserved for future fields and is always written as {}.
type Extra struct{}

// Profile is the fixed part of every header a Builder writes.
// It is injected at construction so alternate tool identities or codec
// settings do not need code changes.
type Profile struct {
	Tool Tool
	Opus OpusInfo

	OriginSource   string
	OriginEncoding string
}

const (
	ToolName    = "oggdca"
	ToolVersion = "1.0.0"
	ToolURL     = "https://github.com/glizzus/oggdca"
	ToolAuthor  = "glizzus"
)

// DefaultProfile matches the parameters the transcoder is run with:
// 48 kHz stereo Opus at 64 kbps VBR in 20 ms frames.
func DefaultProfile() Profile {
	return Profile{
		Tool: Tool{
			Name:    ToolName,
			Version: ToolVersion,
			URL:     ToolURL,
			Author:  ToolAuthor,
		},
		Opus: OpusInfo{
			Mode:       "voip",
			SampleRate: 48000,
			FrameSize:  960,
			Bitrate:    64000,
			VBR:        true,
			Channels:   2,
		},
		OriginSource:   "file",
		OriginEncoding: "Ogg",
	}
}

// NewHeader builds the header for a track. Title and artist are required.
func NewHeader(profile Profile, meta metadata.Metadata) (*Header, error) {
	if meta.Title == nil {
		return nil, &MissingFieldError{Field: "title"}
	}
	if meta.Artist == nil {
		return nil, &MissingFieldError{Field: "artist"}
	}

	bitrate := profile.Opus.Bitrate
	channels := profile.Opus.Channels

	return &Header{
		DCA: FormatInfo{
			Version: FormatVersion,
			Tool:    profile.Tool,
		},
		Opus: profile.Opus,
		Info: &TrackInfo{
			Title:  meta.Title,
			Artist: meta.Artist,
		},
		Origin: &Origin{
			Source:   optional(profile.OriginSource),
			Bitrate:  &bitrate,
			Channels: &channels,
			Encoding: optional(profile.OriginEncoding),
			URL:      meta.SourceURL,
		},
		Extra: Extra{},
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
