package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/rng"
	"github.com/udisondev/worldplan/internal/world"
)

// SettlementKindOutpost is the only settlement kind placed by PlanSettlements.
const SettlementKindOutpost = "outpost"

// SettlementRequest asks for Count settlements of one faction.
type SettlementRequest struct {
	FactionID string `yaml:"faction_id" json:"factionId"`
	Count     int    `yaml:"count" json:"count"`
}

// SettlementConfig configures PlanSettlements.
type SettlementConfig struct {
	Seed    rng.Seed
	ShardID string
	Bounds  world.Bounds

	CellSize     float64
	BaseY        float64
	BorderMargin float64 // world units kept clear of cell edges

	// MinCellDistance is measured in cells, not world units.
	MinCellDistance float64

	SpawnType string
	ProtoID   string
	Archetype string
}

// SettlementPlacement is one chosen settlement location.
type SettlementPlacement struct {
	FactionID string         `json:"factionId"`
	Index     int            `json:"index"`
	Cell      world.Cell     `json:"cell"`
	Position  model.Position `json:"position"`
	SpawnID   string         `json:"spawnId"`
}

// SettlementPlan is the result of PlanSettlements. Fewer placements than
// Requested means the spacing rule could not be satisfied for the rest.
type SettlementPlan struct {
	Actions    []Action              `json:"actions"`
	Placements []SettlementPlacement `json:"placements"`
	Requested  int                   `json:"requested"`
}

// Placed returns the number of settlements actually placed.
func (p SettlementPlan) Placed() int {
	return len(p.Placements)
}

type settlementSlot struct {
	factionID string
	index     int
}

// PlanSettlements spreads the requested settlements over cfg.Bounds with a
// greedy farthest-point strategy over a seed-shuffled candidate list.
// Chosen cells keep at least MinCellDistance between each other; requests
// that cannot be satisfied are dropped silently.
func PlanSettlements(requests []SettlementRequest, cfg SettlementConfig) SettlementPlan {
	r := rng.New(cfg.Seed)
	bounds := cfg.Bounds.Normalize()

	candidates := rng.Shuffle(r, bounds.Cells())

	var slots []settlementSlot
	for _, req := range requests {
		for i := range max(0, req.Count) {
			slots = append(slots, settlementSlot{factionID: req.FactionID, index: i})
		}
	}
	queue := rng.Shuffle(r, slots)

	plan := SettlementPlan{Requested: len(slots)}

	// nearest[i] is the distance from candidates[i] to the closest chosen cell.
	nearest := make([]float64, len(candidates))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	taken := make([]bool, len(candidates))

	for _, slot := range queue {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if taken[i] {
				continue
			}
			score := nearest[i]
			if len(plan.Placements) > 0 && score < cfg.MinCellDistance {
				continue
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		cell := candidates[best]
		taken[best] = true
		for i, c := range candidates {
			nearest[i] = min(nearest[i], cellDistance(c, cell))
		}

		placement := placeSettlement(cfg, slot, cell)
		plan.Placements = append(plan.Placements, placement)
		plan.Actions = append(plan.Actions, PlaceSpawn(model.SpawnPoint{
			ShardID:   cfg.ShardID,
			SpawnID:   placement.SpawnID,
			Type:      cfg.SpawnType,
			Archetype: cfg.Archetype,
			ProtoID:   cfg.ProtoID,
			Position:  placement.Position,
			RegionID:  world.MakeRegionID(cfg.ShardID, cell),
			Meta: map[string]any{
				"factionId":      slot.factionID,
				"settlementKind": SettlementKindOutpost,
			},
		}))
	}

	return plan
}

func placeSettlement(cfg SettlementConfig, slot settlementSlot, cell world.Cell) SettlementPlacement {
	cx, cz := world.CellCenter(cell, cfg.CellSize)
	rect := world.CellBounds(cell, cfg.CellSize)

	maxJitter := max(0, math.Floor(cfg.CellSize/2)-cfg.BorderMargin)
	key := fmt.Sprintf("%s|%s|%d|%d|%d", cfg.ShardID, slot.factionID, slot.index, cell.X, cell.Z)

	x := clampToCell(cx+hashJitter(key+"|x", maxJitter), rect.MinX, rect.MaxX, cfg.BorderMargin, cx)
	z := clampToCell(cz+hashJitter(key+"|z", maxJitter), rect.MinZ, rect.MaxZ, cfg.BorderMargin, cz)

	return SettlementPlacement{
		FactionID: slot.factionID,
		Index:     slot.index,
		Cell:      cell,
		Position:  model.NewPosition(x, cfg.BaseY, z),
		SpawnID:   fmt.Sprintf("outpost_%s_%d_%d_%d", SanitizeID(slot.factionID), slot.index, cell.X, cell.Z),
	}
}

// hashJitter maps key to an offset in [-maxJitter, maxJitter], stepping by
// 1 from -maxJitter. maxJitter may be fractional when the border margin is.
// It does not touch the sequential stream, so positions do not depend on the
// order in which settlements are placed.
func hashJitter(key string, maxJitter float64) float64 {
	if maxJitter <= 0 {
		return 0
	}
	m := 2*maxJitter + 1
	h := float64(rng.Hash32(key))
	return math.Mod(math.Mod(h, m)+m, m) - maxJitter
}

func clampToCell(v, lo, hi, margin, center float64) float64 {
	lo += margin
	hi -= margin
	if lo > hi {
		return center
	}
	return min(max(v, lo), hi)
}

func cellDistance(a, b world.Cell) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Z-b.Z))
}

// SanitizeID keeps [a-zA-Z0-9_], replaces everything else with '_' and
// trims leading and trailing underscores.
func SanitizeID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}
