package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/planner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	err = s.UpsertRegions(context.Background(), []model.RegionSnapshot{
		{RegionID: "prime:1,0", ShardID: "prime", CellX: 1, CellZ: 0, BaseTier: 2, DangerTier: 2},
		{RegionID: "prime:0,0", ShardID: "prime", CellX: 0, CellZ: 0, BaseTier: 1, DangerTier: 1},
		{RegionID: "prime:0,1", ShardID: "prime", CellX: 0, CellZ: 1, BaseTier: 1, DangerTier: 1},
		{RegionID: "other:0,0", ShardID: "other", CellX: 0, CellZ: 0, BaseTier: 1, DangerTier: 1},
	})
	require.NoError(t, err)
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestLoadRegions_Order(t *testing.T) {
	s := openTestStore(t)

	regions, err := s.LoadRegions(context.Background(), "prime")
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, "prime:0,0", regions[0].RegionID)
	assert.Equal(t, "prime:1,0", regions[1].RegionID)
	assert.Equal(t, "prime:0,1", regions[2].RegionID)
	assert.Nil(t, regions[0].DebugScore)
}

func TestSavePlan_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	spawns := []model.SpawnPoint{
		{
			ShardID: "prime", SpawnID: "res_herb_0_0_0", Type: "resource_node", ProtoID: "herb",
			Position: model.NewPosition(5, 0, 6), RegionID: "prime:0,0",
			Meta: map[string]any{"resourceKind": "herb"},
		},
		{
			ShardID: "prime", SpawnID: "outpost_red_0_1_0", Type: "settlement", Archetype: "outpost",
			ProtoID: "outpost", Position: model.NewPosition(300, 0, 100), RegionID: "prime:1,0",
		},
	}
	settlements := []model.Settlement{
		{
			SettlementSnapshot: model.SettlementSnapshot{ID: "outpost_red_0_1_0", Kind: "outpost", X: 300, Z: 100},
			ShardID:            "prime",
			RegionID:           "prime:1,0",
			FactionID:          "red",
		},
	}

	inserted, err := s.SavePlan(ctx, spawns, settlements)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = s.SavePlan(ctx, spawns, settlements)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	regions, err := s.LoadRegions(ctx, "prime")
	require.NoError(t, err)
	require.Len(t, regions[0].Spawns, 1)
	assert.Equal(t, "herb", regions[0].Spawns[0].VariantKey())
	require.Len(t, regions[1].Spawns, 1)
	require.Len(t, regions[1].Settlements, 1)
	assert.Equal(t, "outpost_red_0_1_0", regions[1].Settlements[0].ID)
	assert.Empty(t, regions[2].Spawns)
}

func TestSavePlan_SpawnWithoutRegion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.SavePlan(ctx, []model.SpawnPoint{
		{ShardID: "prime", SpawnID: "loose", Type: "npc", Position: model.NewPosition(1, 0, 1)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	regions, err := s.LoadRegions(ctx, "prime")
	require.NoError(t, err)
	for _, r := range regions {
		assert.Empty(t, r.Spawns)
	}
}

func TestUpdateRegionTiers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateRegionTiers(ctx, []planner.RegionTier{
		{RegionID: "prime:0,1", BaseTier: 3, DangerTier: 4},
	}))

	regions, err := s.LoadRegions(ctx, "prime")
	require.NoError(t, err)
	assert.Equal(t, 3, regions[2].BaseTier)
	assert.Equal(t, 4, regions[2].DangerTier)
	assert.Equal(t, 1, regions[0].BaseTier)
}

func TestRecordRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := model.NewPlanningRun("settlements", "prime", "seed-a", false)
	run.Planned = 4
	run.Applied = 3
	run.FinishedAt = run.StartedAt.Add(250 * time.Millisecond)
	require.NoError(t, s.RecordRun(ctx, run))

	runs, err := s.Runs(ctx, "prime", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, 3, runs[0].Applied)
	assert.False(t, runs[0].DryRun)
	assert.Equal(t, 250*time.Millisecond, runs[0].Duration())

	other, err := s.Runs(ctx, "other", 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSavePlan_SettlementsScopedByShard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Same faction config on two shards yields the same settlement id.
	for _, shard := range []string{"prime", "other"} {
		_, err := s.SavePlan(ctx, nil, []model.Settlement{{
			SettlementSnapshot: model.SettlementSnapshot{ID: "outpost_red_0_0_0", Kind: "outpost", X: 128, Z: 128},
			ShardID:            shard,
			RegionID:           shard + ":0,0",
			FactionID:          "red",
		}})
		require.NoError(t, err)
	}

	for _, shard := range []string{"prime", "other"} {
		regions, err := s.LoadRegions(ctx, shard)
		require.NoError(t, err)
		var ids []string
		for _, reg := range regions {
			for _, st := range reg.Settlements {
				ids = append(ids, st.ID)
			}
		}
		assert.Equal(t, []string{"outpost_red_0_0_0"}, ids, shard)
	}
}

func TestStore_ErrorsAfterClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	err := s.UpsertRegions(context.Background(), []model.RegionSnapshot{
		{RegionID: "prime:2,0", ShardID: "prime", CellX: 2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin upsert regions")
}
