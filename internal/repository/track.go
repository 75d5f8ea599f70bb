package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTrackNotFound is returned by Get for an unknown ID.
var ErrTrackNotFound = errors.New("track not found")

// Track is a catalog entry for one stored container.
type Track struct {
	ID         string
	Title      string
	Artist     string
	SourceURL  *string
	ObjectKey  string
	FrameCount int
	Size       int64
	CreatedAt  time.Time
}

type TrackPersister interface {
	Save(ctx context.Context, track Track) error
}

type TrackLister interface {
	List(ctx context.Context, limit int) ([]Track, error)
}

type PostgresTrackRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTrackRepository(db *pgxpool.Pool) *PostgresTrackRepository {
	return &PostgresTrackRepository{db: db}
}

func TrackToRowParams(track Track) []any {
	return []any{
		track.ID,
		track.Title,
		track.Artist,
		track.SourceURL,
		track.ObjectKey,
		track.FrameCount,
		track.Size,
	}
}

// Save inserts the track, or replaces the entry with the same ID.
func (r *PostgresTrackRepository) Save(ctx context.Context, track Track) error {
	const trackQuery = `
	INSERT INTO track (id, title, artist, source_url, object_key, frame_count, size_bytes)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		artist = EXCLUDED.artist,
		source_url = EXCLUDED.source_url,
		object_key = EXCLUDED.object_key,
		frame_count = EXCLUDED.frame_count,
		size_bytes = EXCLUDED.size_bytes
	`

	if _, err := r.db.Exec(ctx, trackQuery, TrackToRowParams(track)...); err != nil {
		return fmt.Errorf("failed to execute track query: %w", err)
	}
	return nil
}

const selectTrack = `
	SELECT id, title, artist, source_url, object_key, frame_count, size_bytes, created_at
	FROM track
	`

func scanTrack(row pgx.Row) (Track, error) {
	var t Track
	err := row.Scan(&t.ID, &t.Title, &t.Artist, &t.SourceURL, &t.ObjectKey, &t.FrameCount, &t.Size, &t.CreatedAt)
	return t, err
}

func (r *PostgresTrackRepository) Get(ctx context.Context, id string) (Track, error) {
	track, err := scanTrack(r.db.QueryRow(ctx, selectTrack+"WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Track{}, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if err != nil {
		return Track{}, fmt.Errorf("failed to query track: %w", err)
	}
	return track, nil
}

// List returns the most recently cataloged tracks first.
func (r *PostgresTrackRepository) List(ctx context.Context, limit int) ([]Track, error) {
	rows, err := r.db.Query(ctx, selectTrack+"ORDER BY created_at DESC, id LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}
	return tracks, nil
}

var (
	_ TrackPersister = (*PostgresTrackRepository)(nil)
	_ TrackLister    = (*PostgresTrackRepository)(nil)
)
