// Package metadata describes the track a container is built for.
//
// Metadata arrives either in its own JSON shape or as the output of
// `yt-dlp --dump-json`. Every field is optional here; the container writer
// decides which ones it cannot do without.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// SampleRate is the rate every transcoded stream is resampled to.
const SampleRate = 48000

type Metadata struct {
	Track      *string
	Artist     *string
	Date       *string
	Channels   *int
	Channel    *string
	StartTime  *time.Duration
	Duration   *time.Duration
	SampleRate *int
	SourceURL  *string
	Title      *string
	Thumbnail  *string
}

// jsonMetadata is the on-disk shape. Durations are written as seconds and
// read as seconds or as {"secs": .., "nanos": ..} objects.
type jsonMetadata struct {
	Track      *string  `json:"track,omitempty"`
	Artist     *string  `json:"artist,omitempty"`
	Date       *string  `json:"date,omitempty"`
	Channels   *int     `json:"channels,omitempty"`
	Channel    *string  `json:"channel,omitempty"`
	StartTime  *seconds `json:"start_time,omitempty"`
	Duration   *seconds `json:"duration,omitempty"`
	SampleRate *int     `json:"sample_rate,omitempty"`
	SourceURL  *string  `json:"source_url,omitempty"`
	Title      *string  `json:"title,omitempty"`
	Thumbnail  *string  `json:"thumbnail,omitempty"`
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMetadata{
		Track:      m.Track,
		Artist:     m.Artist,
		Date:       m.Date,
		Channels:   m.Channels,
		Channel:    m.Channel,
		StartTime:  toSeconds(m.StartTime),
		Duration:   toSeconds(m.Duration),
		SampleRate: m.SampleRate,
		SourceURL:  m.SourceURL,
		Title:      m.Title,
		Thumbnail:  m.Thumbnail,
	})
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	var j jsonMetadata
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*m = Metadata{
		Track:      j.Track,
		Artist:     j.Artist,
		Date:       j.Date,
		Channels:   j.Channels,
		Channel:    j.Channel,
		StartTime:  j.StartTime.duration(),
		Duration:   j.Duration.duration(),
		SampleRate: j.SampleRate,
		SourceURL:  j.SourceURL,
		Title:      j.Title,
		Thumbnail:  j.Thumbnail,
	}
	return nil
}

// WithFallbacks fills in a missing title or artist. Empty fallbacks are ignored.
func (m Metadata) WithFallbacks(title, artist string) Metadata {
	if m.Title == nil && title != "" {
		m.Title = &title
	}
	if m.Artist == nil && artist != "" {
		m.Artist = &artist
	}
	return m
}

// Read decodes metadata from r, accepting both the native shape and
// yt-dlp's --dump-json output.
func Read(r io.Reader) (Metadata, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Metadata{}, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Metadata{}, fmt.Errorf("metadata is not a JSON object: %w", err)
	}
	if isYTDL(probe) {
		return FromYTDL(bytes.NewReader(raw))
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}

// Load reads a metadata file from disk.
func Load(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	return Read(f)
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// seconds is a duration in JSON.
type seconds time.Duration

func (s seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(s).Seconds())
}

func (s *seconds) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*s = seconds(f * float64(time.Second))
		return nil
	}

	var parts struct {
		Secs  *int64 `json:"secs"`
		Nanos int64  `json:"nanos"`
	}
	if err := json.Unmarshal(b, &parts); err != nil || parts.Secs == nil {
		return fmt.Errorf("duration must be seconds or {\"secs\", \"nanos\"}, got %s", b)
	}
	*s = seconds(time.Duration(*parts.Secs)*time.Second + time.Duration(parts.Nanos))
	return nil
}

func (s *seconds) duration() *time.Duration {
	if s == nil {
		return nil
	}
	d := time.Duration(*s)
	return &d
}

func toSeconds(d *time.Duration) *seconds {
	if d == nil {
		return nil
	}
	s := seconds(*d)
	return &s
}
