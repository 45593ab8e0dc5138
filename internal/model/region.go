package model

// SpawnSnapshot is an existing spawn point as seen by the planners.
type SpawnSnapshot struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Archetype string  `json:"archetype,omitempty"`
	ProtoID   string  `json:"protoId,omitempty"`
	VariantID string  `json:"variantId,omitempty"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
}

// VariantKey returns VariantID, falling back to ProtoID when unset.
func (s SpawnSnapshot) VariantKey() string {
	if s.VariantID != "" {
		return s.VariantID
	}
	return s.ProtoID
}

// SettlementSnapshot is a settlement located inside a region.
type SettlementSnapshot struct {
	ID   string  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Z    float64 `json:"z"`
}

// RegionSnapshot is a read-only view of one grid region at a single point in
// time. Planners never modify it.
type RegionSnapshot struct {
	RegionID    string               `json:"regionId"`
	ShardID     string               `json:"shardId"`
	CellX       int                  `json:"cellX"`
	CellZ       int                  `json:"cellZ"`
	BaseTier    int                  `json:"baseTier"`
	DangerTier  int                  `json:"dangerTier"` // >= BaseTier
	DebugScore  *float64             `json:"debugScore,omitempty"`
	Spawns      []SpawnSnapshot      `json:"spawns"`
	Settlements []SettlementSnapshot `json:"settlements"`
}

// TierBonus returns how many tiers the region sits above its base tier,
// never negative.
func (r RegionSnapshot) TierBonus() int {
	return max(0, r.DangerTier-r.BaseTier)
}

// Settlement is a settlement row: a SettlementSnapshot bound to its region.
type Settlement struct {
	SettlementSnapshot
	ShardID   string `json:"shardId"`
	RegionID  string `json:"regionId"`
	FactionID string `json:"factionId,omitempty"`
}
