package model

// SpawnPoint is the full descriptor of a persisted world-content record
// (resource node, outpost, NPC). SpawnID is unique per shard.
type SpawnPoint struct {
	ShardID   string         `json:"shardId"`
	SpawnID   string         `json:"spawnId"`
	Type      string         `json:"type"`
	Archetype string         `json:"archetype,omitempty"`
	ProtoID   string         `json:"protoId,omitempty"`
	VariantID string         `json:"variantId,omitempty"`
	Position  Position       `json:"position"`
	RegionID  string         `json:"regionId,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// VariantKey returns VariantID, falling back to ProtoID when unset.
func (s SpawnPoint) VariantKey() string {
	if s.VariantID != "" {
		return s.VariantID
	}
	return s.ProtoID
}

// Snapshot converts the spawn point to the read-only form carried by
// RegionSnapshot.
func (s SpawnPoint) Snapshot() SpawnSnapshot {
	return SpawnSnapshot{
		ID:        s.SpawnID,
		Type:      s.Type,
		Archetype: s.Archetype,
		ProtoID:   s.ProtoID,
		VariantID: s.VariantID,
		X:         s.Position.X,
		Z:         s.Position.Z,
	}
}

// Clone returns a copy that does not share the Meta map.
func (s SpawnPoint) Clone() SpawnPoint {
	if s.Meta != nil {
		meta := make(map[string]any, len(s.Meta))
		for k, v := range s.Meta {
			meta[k] = v
		}
		s.Meta = meta
	}
	return s
}
