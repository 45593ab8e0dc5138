package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/rng"
	"github.com/udisondev/worldplan/internal/world"
)

// ResourceRule describes one kind of gatherable node and its density knobs.
// (Type, VariantID) must be unique across rules: it is the only identity
// used to count existing nodes.
type ResourceRule struct {
	Kind      string `yaml:"kind" json:"kind"`
	Type      string `yaml:"type" json:"type"`
	Archetype string `yaml:"archetype" json:"archetype,omitempty"`
	ProtoID   string `yaml:"proto_id" json:"protoId,omitempty"`
	VariantID string `yaml:"variant_id" json:"variantId,omitempty"`

	PerSafeRegion int `yaml:"per_safe_region" json:"perSafeRegion"`
	PerTown       int `yaml:"per_town" json:"perTown"`
	PerDangerTier int `yaml:"per_danger_tier" json:"perDangerTier"`
}

// VariantKey returns VariantID, falling back to ProtoID when unset.
func (r ResourceRule) VariantKey() string {
	if r.VariantID != "" {
		return r.VariantID
	}
	return r.ProtoID
}

// ResourceConfig configures the resource baseline planner.
type ResourceConfig struct {
	Seed     rng.Seed
	CellSize float64
	Rules    []ResourceRule
}

// KindSummary reports planning numbers for one resource kind in one region.
type KindSummary struct {
	Kind     string `json:"kind"`
	Target   int    `json:"target"`
	Existing int    `json:"existing"`
	Placed   int    `json:"placed"`
}

// RegionSummary aggregates the kind summaries of one region.
type RegionSummary struct {
	RegionID string        `json:"regionId"`
	Kinds    []KindSummary `json:"kinds"`
	Target   int           `json:"target"`
	Existing int           `json:"existing"`
	Placed   int           `json:"placed"`
}

// ResourcePlan is the result of PlanResourceBaseline.
type ResourcePlan struct {
	Actions []Action        `json:"actions"`
	Regions []RegionSummary `json:"regions"`
}

// Placed returns the number of nodes placed over all regions.
func (p ResourcePlan) Placed() int {
	n := 0
	for _, r := range p.Regions {
		n += r.Placed
	}
	return n
}

// ComputeTargetNodesForRegion returns how many nodes of rule's kind region
// should hold. Negative knobs count as zero.
func ComputeTargetNodesForRegion(region model.RegionSnapshot, rule ResourceRule) int {
	return max(0, rule.PerSafeRegion) +
		max(0, rule.PerTown)*len(region.Settlements) +
		max(0, rule.PerDangerTier)*region.TierBonus()
}

// CountExistingNodes counts spawns of region that match rule by type and
// variant (variant falls back to proto id on both sides). Archetype is not
// compared.
func CountExistingNodes(region model.RegionSnapshot, rule ResourceRule) int {
	key := rule.VariantKey()
	n := 0
	for _, s := range region.Spawns {
		if s.Type == rule.Type && s.VariantKey() == key {
			n++
		}
	}
	return n
}

// RegionCenter is the anchor resource rings are laid around: the first
// settlement if the region has one, else the cell center.
func RegionCenter(region model.RegionSnapshot, cellSize float64) (x, z float64) {
	if len(region.Settlements) > 0 {
		return region.Settlements[0].X, region.Settlements[0].Z
	}
	return world.CellCenter(world.Cell{X: region.CellX, Z: region.CellZ}, cellSize)
}

// KindPhase returns the angular offset of a resource kind so different
// kinds fan out into different sectors.
func KindPhase(kind string) float64 {
	switch strings.ToLower(kind) {
	case "herb":
		return 0
	case "ore":
		return math.Pi / 3
	case "stone":
		return 2 * math.Pi / 3
	case "wood":
		return math.Pi
	case "fish":
		return 4 * math.Pi / 3
	case "grain":
		return 5 * math.Pi / 3
	default:
		return math.Pi / 2
	}
}

// KindSlug lower-cases kind and replaces non-alphanumerics with '_'.
func KindSlug(kind string) string {
	var b strings.Builder
	b.Grow(len(kind))
	for _, c := range strings.ToLower(kind) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ResourceSpawnID returns the deterministic spawn id of a resource slot.
func ResourceSpawnID(kind string, cell world.Cell, slot int) string {
	return fmt.Sprintf("res_%s_%d_%d_%d", KindSlug(kind), cell.X, cell.Z, slot)
}

// PlanRegionResources fills the shortfall of every rule in one region. It
// only adds: existing nodes are never moved or removed. Each region uses its
// own stream derived from (cfg.Seed, region id), so regions can be planned
// concurrently.
func PlanRegionResources(region model.RegionSnapshot, cfg ResourceConfig) ([]Action, RegionSummary) {
	r := rng.New(rng.Derive(cfg.Seed, region.RegionID))
	centerX, centerZ := RegionCenter(region, cfg.CellSize)
	cell := world.Cell{X: region.CellX, Z: region.CellZ}

	summary := RegionSummary{
		RegionID: region.RegionID,
		Kinds:    make([]KindSummary, 0, len(cfg.Rules)),
	}
	var actions []Action

	for _, rule := range cfg.Rules {
		target := ComputeTargetNodesForRegion(region, rule)
		existing := CountExistingNodes(region, rule)
		toPlace := max(0, target-existing)

		summary.Kinds = append(summary.Kinds, KindSummary{
			Kind:     rule.Kind,
			Target:   target,
			Existing: existing,
			Placed:   toPlace,
		})
		summary.Target += target
		summary.Existing += existing
		summary.Placed += toPlace

		if toPlace == 0 {
			continue
		}

		totalSlots := existing + toPlace
		phase := KindPhase(rule.Kind)
		for i := range toPlace {
			slot := existing + i
			angle := phase + 2*math.Pi*float64(slot)/float64(totalSlots)
			radius := cfg.CellSize*0.25 + r.Next()*cfg.CellSize*0.15

			actions = append(actions, PlaceSpawn(model.SpawnPoint{
				ShardID:   region.ShardID,
				SpawnID:   ResourceSpawnID(rule.Kind, cell, slot),
				Type:      rule.Type,
				Archetype: rule.Archetype,
				ProtoID:   rule.ProtoID,
				VariantID: rule.VariantID,
				Position: model.NewPosition(
					centerX+math.Cos(angle)*radius,
					0,
					centerZ+math.Sin(angle)*radius,
				),
				RegionID: region.RegionID,
				Meta: map[string]any{
					"resourceKind": rule.Kind,
				},
			}))
		}
	}

	return actions, summary
}

// PlanResourceBaseline runs PlanRegionResources over every region in order
// and concatenates the results.
func PlanResourceBaseline(regions []model.RegionSnapshot, cfg ResourceConfig) ResourcePlan {
	plan := ResourcePlan{Regions: make([]RegionSummary, 0, len(regions))}
	for _, region := range regions {
		actions, summary := PlanRegionResources(region, cfg)
		plan.Actions = append(plan.Actions, actions...)
		plan.Regions = append(plan.Regions, summary)
	}
	return plan
}
