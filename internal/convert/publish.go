package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/oggdca/internal/datalayer"
	"github.com/glizzus/oggdca/internal/dca"
	"github.com/glizzus/oggdca/internal/generator"
	"github.com/glizzus/oggdca/internal/repository"
)

// Publisher stores finished containers and records them in the catalog.
// A nil Catalog only stores.
type Publisher struct {
	Storage datalayer.BlobStorage
	Catalog repository.TrackPersister
	Keys    generator.Generator[generator.ObjectKey]
}

// Publish validates data, stores it under a fresh key and returns the
// catalog entry describing it.
func (p *Publisher) Publish(ctx context.Context, data []byte) (repository.Track, error) {
	header, frames, err := dca.Parse(data)
	if err != nil {
		return repository.Track{}, fmt.Errorf("refusing to publish an invalid container: %w", err)
	}

	key, err := p.Keys.Next()
	if err != nil {
		return repository.Track{}, fmt.Errorf("failed to generate object key: %w", err)
	}

	track := repository.Track{
		ID:         key.ID,
		ObjectKey:  key.Key,
		FrameCount: len(frames),
		Size:       int64(len(data)),
	}
	if header.Info != nil {
		track.Title = deref(header.Info.Title)
		track.Artist = deref(header.Info.Artist)
	}
	if header.Origin != nil {
		track.SourceURL = header.Origin.URL
	}

	if err := p.Storage.Put(ctx, key.Key, bytes.NewReader(data), datalayer.PutOptions{
		Size:        track.Size,
		ContentType: datalayer.ContentType,
	}); err != nil {
		return repository.Track{}, fmt.Errorf("failed to store container: %w", err)
	}
	slog.Info("stored container", "key", key.Key, "bytes", track.Size)

	if p.Catalog == nil {
		return track, nil
	}
	if err := p.Catalog.Save(ctx, track); err != nil {
		return repository.Track{}, fmt.Errorf("failed to save track %s: %w", track.ID, err)
	}
	slog.Info("cataloged track", "id", track.ID, "title", track.Title)
	return track, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
