package db

import (
	"context"
	"fmt"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/ports/driven"
)

const createFootprints = `
CREATE TABLE IF NOT EXISTS footprints (
	walk_id          TEXT PRIMARY KEY,
	dog_id           BIGINT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	ended_at         TIMESTAMPTZ NOT NULL,
	distance_km      DOUBLE PRECISION NOT NULL,
	duration_seconds INTEGER NOT NULL,
	image_key        TEXT NOT NULL DEFAULT '',
	occupied_blocks  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS footprints_dog_started_idx ON footprints (dog_id, started_at);`

type FootprintRepo struct {
	q Querier
}

var _ driven.IFootprintRepository = (*FootprintRepo)(nil)

func NewFootprintRepo(q Querier) *FootprintRepo {
	return &FootprintRepo{q: q}
}

func (r *FootprintRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, createFootprints); err != nil {
		return fmt.Errorf("create footprints table: %w", err)
	}
	return nil
}

// Record stores a finished walk. Recording the same walk again overwrites it.
func (r *FootprintRepo) Record(ctx context.Context, fp model.Footprint) error {
	q := `
	INSERT INTO footprints
		(walk_id, dog_id, started_at, ended_at, distance_km, duration_seconds, image_key, occupied_blocks)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (walk_id) DO UPDATE SET
		ended_at = EXCLUDED.ended_at,
		distance_km = EXCLUDED.distance_km,
		duration_seconds = EXCLUDED.duration_seconds,
		image_key = EXCLUDED.image_key,
		occupied_blocks = EXCLUDED.occupied_blocks`

	_, err := r.q.Exec(ctx, q,
		fp.WalkID, int64(fp.DogID), fp.StartedAt, fp.EndedAt,
		fp.DistanceKm, fp.DurationSeconds, fp.ImageKey, fp.OccupiedBlocks,
	)
	if err != nil {
		return fmt.Errorf("insert footprint %s: %w", fp.WalkID, err)
	}
	return nil
}

// ListByMonth returns the dog's walks that started in the given UTC month,
// oldest first.
func (r *FootprintRepo) ListByMonth(ctx context.Context, dogID model.DogID, year int, month time.Month) ([]model.Footprint, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	q := `
	SELECT
		walk_id, dog_id, started_at, ended_at, distance_km, duration_seconds, image_key, occupied_blocks
	FROM
		footprints
	WHERE
		dog_id = $1 AND started_at >= $2 AND started_at < $3
	ORDER BY started_at`

	rows, err := r.q.Query(ctx, q, int64(dogID), from, to)
	if err != nil {
		return nil, fmt.Errorf("select footprints: %w", err)
	}
	defer rows.Close()

	out := []model.Footprint{}
	for rows.Next() {
		var (
			fp  model.Footprint
			dog int64
		)
		if err := rows.Scan(&fp.WalkID, &dog, &fp.StartedAt, &fp.EndedAt,
			&fp.DistanceKm, &fp.DurationSeconds, &fp.ImageKey, &fp.OccupiedBlocks); err != nil {
			return nil, fmt.Errorf("scan footprint: %w", err)
		}
		fp.DogID = model.DogID(dog)
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate footprints: %w", err)
	}
	return out, nil
}
