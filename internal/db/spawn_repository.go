package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/worldplan/internal/model"
)

const insertSpawnIfAbsent = `
	INSERT INTO spawn_points
		(shard_id, spawn_id, region_id, type, archetype, proto_id, variant_id, x, y, z, meta)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11::jsonb, '{}'::jsonb))
	ON CONFLICT (shard_id, spawn_id) DO NOTHING
`

// SpawnRepository handles spawn point rows
type SpawnRepository struct {
	pool *pgxpool.Pool
}

// NewSpawnRepository creates a new spawn repository
func NewSpawnRepository(pool *pgxpool.Pool) *SpawnRepository {
	return &SpawnRepository{pool: pool}
}

// InsertIfAbsentTx inserts spawn points whose (shard, spawn id) is not
// stored yet. Existing rows are left untouched. Returns the number of rows
// inserted.
func (r *SpawnRepository) InsertIfAbsentTx(ctx context.Context, tx pgx.Tx, spawns []model.SpawnPoint) (int, error) {
	if len(spawns) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, sp := range spawns {
		var meta any
		if len(sp.Meta) > 0 {
			meta = sp.Meta
		}
		batch.Queue(insertSpawnIfAbsent,
			sp.ShardID, sp.SpawnID, nullIfEmpty(sp.RegionID), sp.Type, sp.Archetype, sp.ProtoID, sp.VariantID,
			sp.Position.X, sp.Position.Y, sp.Position.Z, meta,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for _, sp := range spawns {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting spawn %s: %w", sp.SpawnID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
