package db

import (
	"context"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/planner"
)

// Store bundles the PostgreSQL repositories used by a planning run.
type Store struct {
	regions     *RegionRepository
	spawns      *SpawnRepository
	runs        *RunRepository
	persistence *PlanPersistenceService
}

// NewStore wires the repositories on top of a connected DB.
func NewStore(d *DB) *Store {
	pool := d.Pool()
	spawns := NewSpawnRepository(pool)
	return &Store{
		regions:     NewRegionRepository(pool),
		spawns:      spawns,
		runs:        NewRunRepository(pool),
		persistence: NewPlanPersistenceService(pool, spawns, NewSettlementRepository(pool)),
	}
}

// LoadRegions returns the region snapshots of a shard.
func (s *Store) LoadRegions(ctx context.Context, shardID string) ([]model.RegionSnapshot, error) {
	return s.regions.LoadSnapshots(ctx, shardID)
}

// UpsertRegions stores region rows.
func (s *Store) UpsertRegions(ctx context.Context, regions []model.RegionSnapshot) error {
	return s.regions.Upsert(ctx, regions)
}

// UpdateRegionTiers writes tier assignments.
func (s *Store) UpdateRegionTiers(ctx context.Context, tiers []planner.RegionTier) error {
	return s.regions.UpdateTiers(ctx, tiers)
}

// SavePlan stores spawn points and settlements atomically.
func (s *Store) SavePlan(ctx context.Context, spawns []model.SpawnPoint, settlements []model.Settlement) (int, error) {
	return s.persistence.SavePlan(ctx, spawns, settlements)
}

// Runs returns the most recent runs of a shard, newest first.
func (s *Store) Runs(ctx context.Context, shardID string, limit int) ([]model.PlanningRun, error) {
	return s.runs.ListByShard(ctx, shardID, limit)
}

// RecordRun stores a run record.
func (s *Store) RecordRun(ctx context.Context, run model.PlanningRun) error {
	return s.runs.Create(ctx, run)
}
