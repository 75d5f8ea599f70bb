package convert_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/oggdca/internal/convert"
	"github.com/glizzus/oggdca/internal/datalayer"
	"github.com/glizzus/oggdca/internal/dca"
	"github.com/glizzus/oggdca/internal/generator"
	"github.com/glizzus/oggdca/internal/metadata"
	"github.com/glizzus/oggdca/internal/repository"
)

type fixedIDs struct{}

func (fixedIDs) Next() (string, error) {
	return "fixed", nil
}

type memoryCatalog struct {
	saved []repository.Track
	err   error
}

func (m *memoryCatalog) Save(_ context.Context, track repository.Track) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, track)
	return nil
}

func TestPublish(t *testing.T) {
	meta := metadata.Metadata{
		Title:     metadata.String("Song"),
		Artist:    metadata.String("Artist"),
		SourceURL: metadata.String("https://example.com/song"),
	}
	converter := &convert.Converter{Profile: dca.DefaultProfile()}
	result, err := converter.ConvertOgg(t.Context(), bytes.NewReader(audioStream([]byte{1}, []byte{2})), meta)
	if err != nil {
		t.Fatalf("failed to convert: %v", err)
	}

	storage := &datalayer.FileStorage{Dir: t.TempDir()}
	catalog := &memoryCatalog{}
	publisher := &convert.Publisher{
		Storage: storage,
		Catalog: catalog,
		Keys:    &generator.ObjectKeyGenerator{Prefix: "dca", IDs: fixedIDs{}},
	}

	track, err := publisher.Publish(t.Context(), result.Data)
	if err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	expected := repository.Track{
		ID:         "fixed",
		Title:      "Song",
		Artist:     "Artist",
		SourceURL:  metadata.String("https://example.com/song"),
		ObjectKey:  "dca/fixed.dca",
		FrameCount: 2,
		Size:       int64(len(result.Data)),
	}
	if diff := cmp.Diff(expected, track); diff != "" {
		t.Errorf("track mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]repository.Track{expected}, catalog.saved); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}

	stored, err := storage.Get(t.Context(), "dca/fixed.dca")
	if err != nil {
		t.Fatalf("failed to get stored container: %v", err)
	}
	defer stored.Close()
	got, err := io.ReadAll(stored)
	if err != nil {
		t.Fatalf("failed to read stored container: %v", err)
	}
	if !bytes.Equal(got, result.Data) {
		t.Error("expected the stored container to match the converted one")
	}
}

func TestPublishErrors(t *testing.T) {
	converter := &convert.Converter{Profile: dca.DefaultProfile()}
	result, err := converter.ConvertOgg(t.Context(), bytes.NewReader(audioStream([]byte{1})), songMetadata())
	if err != nil {
		t.Fatalf("failed to convert: %v", err)
	}

	t.Run("invalid containers are not stored", func(t *testing.T) {
		storage := &datalayer.FileStorage{Dir: t.TempDir()}
		publisher := &convert.Publisher{Storage: storage, Keys: &generator.ObjectKeyGenerator{IDs: fixedIDs{}}}

		_, err := publisher.Publish(t.Context(), result.Data[:len(result.Data)-1])
		if err == nil {
			t.Fatal("expected an error")
		}
		if _, err := storage.Get(t.Context(), "fixed.dca"); !errors.Is(err, datalayer.ErrNotFound) {
			t.Errorf("expected nothing stored, got %v", err)
		}
	})

	t.Run("catalog failures are reported", func(t *testing.T) {
		saveErr := errors.New("connection refused")
		publisher := &convert.Publisher{
			Storage: &datalayer.FileStorage{Dir: t.TempDir()},
			Catalog: &memoryCatalog{err: saveErr},
			Keys:    &generator.ObjectKeyGenerator{IDs: fixedIDs{}},
		}

		if _, err := publisher.Publish(t.Context(), result.Data); !errors.Is(err, saveErr) {
			t.Errorf("expected %v, got %v", saveErr, err)
		}
	})
}
