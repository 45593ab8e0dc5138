package planner

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/worldplan/internal/rng"
	"github.com/udisondev/worldplan/internal/world"
)

func testSettlementConfig(seed int64) SettlementConfig {
	return SettlementConfig{
		Seed:            rng.IntSeed(seed),
		ShardID:         "prime",
		Bounds:          world.NewBounds(0, 0, 3, 3),
		CellSize:        100,
		BaseY:           12,
		BorderMargin:    10,
		MinCellDistance: 2,
		SpawnType:       "settlement",
		ProtoID:         "outpost_basic",
		Archetype:       "outpost",
	}
}

func assertSpacing(t *testing.T, plan SettlementPlan, minDist float64) {
	t.Helper()
	for i := range plan.Placements {
		for j := i + 1; j < len(plan.Placements); j++ {
			d := cellDistance(plan.Placements[i].Cell, plan.Placements[j].Cell)
			assert.GreaterOrEqual(t, d, minDist, "placements %d and %d too close", i, j)
		}
	}
}

func TestPlanSettlements_FourInSixteenCells(t *testing.T) {
	cfg := testSettlementConfig(42)
	reqs := []SettlementRequest{{FactionID: "iron_pact", Count: 4}}

	plan := PlanSettlements(reqs, cfg)

	require.Equal(t, 4, plan.Placed())
	assert.Equal(t, 4, plan.Requested)
	assert.Len(t, plan.Actions, 4)
	assertSpacing(t, plan, 2)

	again := PlanSettlements(reqs, cfg)
	assert.Equal(t, plan, again)
}

func TestPlanSettlements_SpacingAcrossSeeds(t *testing.T) {
	reqs := []SettlementRequest{
		{FactionID: "red", Count: 3},
		{FactionID: "blue", Count: 3},
	}

	for seed := range int64(25) {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			cfg := testSettlementConfig(seed)
			cfg.Bounds = world.NewBounds(-4, -4, 5, 5)

			plan := PlanSettlements(reqs, cfg)

			assert.Equal(t, 6, plan.Placed())
			assertSpacing(t, plan, 2)
		})
	}
}

func TestPlanSettlements_FirstPlacementIsFirstCandidate(t *testing.T) {
	cfg := testSettlementConfig(7)

	plan := PlanSettlements([]SettlementRequest{{FactionID: "solo", Count: 1}}, cfg)

	// Replay the stream: candidates are shuffled first.
	r := rng.New(cfg.Seed)
	candidates := rng.Shuffle(r, cfg.Bounds.Cells())

	require.Equal(t, 1, plan.Placed())
	assert.Equal(t, candidates[0], plan.Placements[0].Cell)
}

func TestPlanSettlements_UnderPlacement(t *testing.T) {
	cfg := testSettlementConfig(3)
	cfg.Bounds = world.NewBounds(0, 0, 1, 1)
	cfg.MinCellDistance = 5

	plan := PlanSettlements([]SettlementRequest{{FactionID: "crowded", Count: 3}}, cfg)

	assert.Equal(t, 3, plan.Requested)
	assert.Equal(t, 1, plan.Placed())
	assert.Len(t, plan.Actions, 1)
}

func TestPlanSettlements_CellUsedOnce(t *testing.T) {
	cfg := testSettlementConfig(11)
	cfg.Bounds = world.NewBounds(0, 0, 1, 0)
	cfg.MinCellDistance = 0

	plan := PlanSettlements([]SettlementRequest{{FactionID: "f", Count: 5}}, cfg)

	require.Equal(t, 2, plan.Placed())
	assert.NotEqual(t, plan.Placements[0].Cell, plan.Placements[1].Cell)
}

func TestPlanSettlements_EmptyRequests(t *testing.T) {
	cfg := testSettlementConfig(1)

	plan := PlanSettlements([]SettlementRequest{{FactionID: "none", Count: 0}, {FactionID: "neg", Count: -2}}, cfg)

	assert.Zero(t, plan.Requested)
	assert.Empty(t, plan.Actions)
}

func TestPlanSettlements_SpawnDescriptor(t *testing.T) {
	cfg := testSettlementConfig(42)
	cfg.ShardID = "shard-1"

	plan := PlanSettlements([]SettlementRequest{{FactionID: "Iron Pact!", Count: 2}}, cfg)
	require.Equal(t, 2, plan.Placed())

	idPattern := regexp.MustCompile(`^outpost_Iron_Pact_[01]_\d+_\d+$`)
	for i, a := range plan.Actions {
		p := plan.Placements[i]
		require.Equal(t, ActionPlaceSpawn, a.Kind)

		sp := a.Spawn
		assert.Regexp(t, idPattern, sp.SpawnID)
		assert.Equal(t, fmt.Sprintf("outpost_Iron_Pact_%d_%d_%d", p.Index, p.Cell.X, p.Cell.Z), sp.SpawnID)
		assert.Equal(t, "shard-1", sp.ShardID)
		assert.Equal(t, "settlement", sp.Type)
		assert.Equal(t, "outpost", sp.Archetype)
		assert.Equal(t, "outpost_basic", sp.ProtoID)
		assert.Equal(t, world.MakeRegionID("shard-1", p.Cell), sp.RegionID)
		assert.Equal(t, "Iron Pact!", sp.Meta["factionId"])
		assert.Equal(t, "outpost", sp.Meta["settlementKind"])
		assert.Equal(t, 12.0, sp.Position.Y)
	}
}

func TestPlanSettlements_PositionInsideCellMargin(t *testing.T) {
	for seed := range int64(20) {
		cfg := testSettlementConfig(seed)
		cfg.Bounds = world.NewBounds(-3, -3, 3, 3)

		plan := PlanSettlements([]SettlementRequest{{FactionID: "a", Count: 4}, {FactionID: "b", Count: 4}}, cfg)

		for _, p := range plan.Placements {
			rect := world.CellBounds(p.Cell, cfg.CellSize)
			assert.GreaterOrEqual(t, p.Position.X, rect.MinX+cfg.BorderMargin)
			assert.LessOrEqual(t, p.Position.X, rect.MaxX-cfg.BorderMargin)
			assert.GreaterOrEqual(t, p.Position.Z, rect.MinZ+cfg.BorderMargin)
			assert.LessOrEqual(t, p.Position.Z, rect.MaxZ-cfg.BorderMargin)
		}
	}
}

func TestPlanSettlements_JitterFromHashNotStream(t *testing.T) {
	cfg := testSettlementConfig(42)
	slot := settlementSlot{factionID: "red", index: 2}
	cell := world.Cell{X: 1, Z: 3}

	p := placeSettlement(cfg, slot, cell)

	key := "prime|red|2|1|3"
	assert.Equal(t, 150+hashJitter(key+"|x", 40), p.Position.X)
	assert.Equal(t, 350+hashJitter(key+"|z", 40), p.Position.Z)

	// Identical regardless of seed: jitter never reads the sequential stream.
	cfg.Seed = rng.StringSeed("another")
	assert.Equal(t, p, placeSettlement(cfg, slot, cell))
}

func TestHashJitter(t *testing.T) {
	assert.Zero(t, hashJitter("anything", 0))
	assert.Zero(t, hashJitter("anything", -5))

	for i := range 200 {
		v := hashJitter(fmt.Sprintf("key-%d", i), 7)
		assert.GreaterOrEqual(t, v, -7.0)
		assert.LessOrEqual(t, v, 7.0)
	}
}

func TestHashJitter_FractionalMargin(t *testing.T) {
	// cell 100, margin 10.5: maxJitter = floor(100/2) - 10.5 = 39.5, modulus 80.
	key := "prime|red|0|2|2|x"
	h := int64(rng.Hash32(key))
	want := float64(((h%80)+80)%80) - 39.5

	assert.Equal(t, want, hashJitter(key, 39.5))

	cfg := testSettlementConfig(1)
	cfg.CellSize = 100
	cfg.BorderMargin = 10.5
	p := placeSettlement(cfg, settlementSlot{factionID: "red", index: 0}, world.Cell{X: 2, Z: 2})
	assert.Equal(t, 250+want, p.Position.X)
}

func TestHashJitter_IntegerMarginMatchesIntegerModulo(t *testing.T) {
	for i := range 50 {
		key := fmt.Sprintf("k%d", i)
		h := int64(rng.Hash32(key))
		want := float64(((h%81)+81)%81 - 40)
		assert.Equal(t, want, hashJitter(key, 40), key)
	}
}

func TestPlanSettlements_NoJitterWhenMarginTooLarge(t *testing.T) {
	cfg := testSettlementConfig(5)
	cfg.BorderMargin = 80 // wider than half a cell

	plan := PlanSettlements([]SettlementRequest{{FactionID: "a", Count: 3}}, cfg)

	for _, p := range plan.Placements {
		x, z := world.CellCenter(p.Cell, cfg.CellSize)
		assert.Equal(t, x, p.Position.X)
		assert.Equal(t, z, p.Position.Z)
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"iron_pact", "iron_pact"},
		{"Iron Pact!", "Iron_Pact"},
		{"__edge__", "edge"},
		{"a-b.c", "a_b_c"},
		{"!!!", "unknown"},
		{"", "unknown"},
		{"ключ7", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeID(tt.in))
		})
	}
}
