package planner

import (
	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/world"
)

// TierConfig configures distance-mode tier assignment. A nil Center means
// the world-space center of Bounds.
type TierConfig struct {
	Bounds   world.Bounds
	CellSize float64
	Center   *model.Position
	MinTier  int
	MaxTier  int
}

// RegionTier is the tier assignment of one region.
type RegionTier struct {
	RegionID   string `json:"regionId"`
	BaseTier   int    `json:"baseTier"`
	DangerTier int    `json:"dangerTier"`
}

// AssignBaseTiers computes the base tier of every region from the distance
// of its cell center to the configured center. Danger tiers are kept unless
// they would fall below the new base tier.
func AssignBaseTiers(regions []model.RegionSnapshot, cfg TierConfig) []RegionTier {
	bounds := cfg.Bounds.Normalize()

	var centerX, centerZ float64
	if cfg.Center != nil {
		centerX, centerZ = cfg.Center.X, cfg.Center.Z
	} else {
		rect := bounds.WorldRect(cfg.CellSize)
		centerX, centerZ = (rect.MinX+rect.MaxX)/2, (rect.MinZ+rect.MaxZ)/2
	}

	out := make([]RegionTier, 0, len(regions))
	for _, region := range regions {
		x, z := world.CellCenter(world.Cell{X: region.CellX, Z: region.CellZ}, cfg.CellSize)
		base := world.TierForPointDistanceMode(x, z, bounds, cfg.CellSize,
			centerX, centerZ, float64(cfg.MinTier), float64(cfg.MaxTier))

		out = append(out, RegionTier{
			RegionID:   region.RegionID,
			BaseTier:   base,
			DangerTier: max(region.DangerTier, base),
		})
	}
	return out
}
