package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/planner"
)

// RegionRepository handles region rows and assembles region snapshots.
type RegionRepository struct {
	pool *pgxpool.Pool
}

// NewRegionRepository creates a new region repository
func NewRegionRepository(pool *pgxpool.Pool) *RegionRepository {
	return &RegionRepository{pool: pool}
}

// Upsert inserts regions or refreshes their cell and tier columns.
func (r *RegionRepository) Upsert(ctx context.Context, regions []model.RegionSnapshot) error {
	if len(regions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, reg := range regions {
		batch.Queue(`
			INSERT INTO regions (region_id, shard_id, cell_x, cell_z, base_tier, danger_tier, debug_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (region_id) DO UPDATE SET
				base_tier = EXCLUDED.base_tier,
				danger_tier = EXCLUDED.danger_tier,
				debug_score = EXCLUDED.debug_score`,
			reg.RegionID, reg.ShardID, reg.CellX, reg.CellZ, reg.BaseTier, reg.DangerTier, reg.DebugScore,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, reg := range regions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upserting region %s: %w", reg.RegionID, err)
		}
	}
	return nil
}

// UpdateTiers writes base and danger tiers.
func (r *RegionRepository) UpdateTiers(ctx context.Context, tiers []planner.RegionTier) error {
	if len(tiers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tiers {
		batch.Queue(`UPDATE regions SET base_tier = $1, danger_tier = $2 WHERE region_id = $3`,
			t.BaseTier, t.DangerTier, t.RegionID)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, t := range tiers {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("updating tiers of region %s: %w", t.RegionID, err)
		}
	}
	return nil
}

// LoadSnapshots loads every region of a shard with its spawns and
// settlements. All three reads run in one repeatable-read transaction so a
// snapshot never mixes two points in time.
func (r *RegionRepository) LoadSnapshots(ctx context.Context, shardID string) ([]model.RegionSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot transaction for shard %s: %w", shardID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only

	regions, index, err := loadRegions(ctx, tx, shardID)
	if err != nil {
		return nil, err
	}

	if err := loadRegionSpawns(ctx, tx, shardID, regions, index); err != nil {
		return nil, err
	}

	if err := loadRegionSettlements(ctx, tx, shardID, regions, index); err != nil {
		return nil, err
	}

	return regions, nil
}

func loadRegions(ctx context.Context, tx pgx.Tx, shardID string) ([]model.RegionSnapshot, map[string]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT region_id, shard_id, cell_x, cell_z, base_tier, danger_tier, debug_score
		FROM regions
		WHERE shard_id = $1
		ORDER BY cell_z, cell_x`, shardID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading regions of shard %s: %w", shardID, err)
	}
	defer rows.Close()

	regions := make([]model.RegionSnapshot, 0, 64)
	index := make(map[string]int)
	for rows.Next() {
		var reg model.RegionSnapshot
		if err := rows.Scan(&reg.RegionID, &reg.ShardID, &reg.CellX, &reg.CellZ,
			&reg.BaseTier, &reg.DangerTier, &reg.DebugScore); err != nil {
			return nil, nil, fmt.Errorf("scanning region row: %w", err)
		}
		index[reg.RegionID] = len(regions)
		regions = append(regions, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating region rows: %w", err)
	}

	return regions, index, nil
}

func loadRegionSpawns(ctx context.Context, tx pgx.Tx, shardID string, regions []model.RegionSnapshot, index map[string]int) error {
	rows, err := tx.Query(ctx, `
		SELECT region_id, spawn_id, type, archetype, proto_id, variant_id, x, z
		FROM spawn_points
		WHERE shard_id = $1 AND region_id IS NOT NULL
		ORDER BY spawn_id`, shardID)
	if err != nil {
		return fmt.Errorf("loading spawns of shard %s: %w", shardID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			regionID string
			s        model.SpawnSnapshot
		)
		if err := rows.Scan(&regionID, &s.ID, &s.Type, &s.Archetype, &s.ProtoID, &s.VariantID, &s.X, &s.Z); err != nil {
			return fmt.Errorf("scanning spawn row: %w", err)
		}
		if i, ok := index[regionID]; ok {
			regions[i].Spawns = append(regions[i].Spawns, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating spawn rows: %w", err)
	}
	return nil
}

func loadRegionSettlements(ctx context.Context, tx pgx.Tx, shardID string, regions []model.RegionSnapshot, index map[string]int) error {
	rows, err := tx.Query(ctx, `
		SELECT region_id, settlement_id, kind, x, z
		FROM settlements
		WHERE shard_id = $1
		ORDER BY settlement_id`, shardID)
	if err != nil {
		return fmt.Errorf("loading settlements of shard %s: %w", shardID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			regionID string
			s        model.SettlementSnapshot
		)
		if err := rows.Scan(&regionID, &s.ID, &s.Kind, &s.X, &s.Z); err != nil {
			return fmt.Errorf("scanning settlement row: %w", err)
		}
		if i, ok := index[regionID]; ok {
			regions[i].Settlements = append(regions[i].Settlements, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating settlement rows: %w", err)
	}
	return nil
}
