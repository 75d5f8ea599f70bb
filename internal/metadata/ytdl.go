package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ytdlKeys only appear in yt-dlp output.
var ytdlKeys = []string{"webpage_url", "uploader", "extractor", "upload_date"}

func isYTDL(obj map[string]json.RawMessage) bool {
	for _, k := range ytdlKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

type ytdlOutput struct {
	Track       *string  `json:"track"`
	Artist      *string  `json:"artist"`
	Uploader    *string  `json:"uploader"`
	ReleaseDate *string  `json:"release_date"`
	UploadDate  *string  `json:"upload_date"`
	Channel     *string  `json:"channel"`
	Duration    *float64 `json:"duration"`
	WebpageURL  *string  `json:"webpage_url"`
	Title       *string  `json:"title"`
	Thumbnail   *string  `json:"thumbnail"`
}

// FromYTDL maps `yt-dlp --dump-json` output onto Metadata.
// The artist falls back to the uploader and the release date to the upload
// date. Channels and sample rate describe the transcoded stream, not the source.
func FromYTDL(r io.Reader) (Metadata, error) {
	var out ytdlOutput
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	channels := 2
	sampleRate := SampleRate

	m := Metadata{
		Track:      out.Track,
		Artist:     firstOf(out.Artist, out.Uploader),
		Date:       firstOf(out.ReleaseDate, out.UploadDate),
		Channels:   &channels,
		Channel:    out.Channel,
		SampleRate: &sampleRate,
		SourceURL:  out.WebpageURL,
		Title:      out.Title,
		Thumbnail:  out.Thumbnail,
	}
	if out.Duration != nil {
		d := time.Duration(*out.Duration * float64(time.Second))
		m.Duration = &d
	}
	return m, nil
}

func firstOf(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
