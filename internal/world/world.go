package world

import (
	"slices"
	"strings"
	"sync"

	"github.com/udisondev/worldplan/internal/model"
)

// World is an in-memory spawn store keyed by spawn id. It stands in for the
// durable store in tests and dry runs. Safe for concurrent use.
type World struct {
	mu     sync.RWMutex
	spawns map[string]model.SpawnPoint // spawnID → spawn
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{spawns: make(map[string]model.SpawnPoint)}
}

// UpsertSpawn stores sp under its spawn id, replacing any previous record.
// Returns true if the id was not present before.
func (w *World) UpsertSpawn(sp model.SpawnPoint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, existed := w.spawns[sp.SpawnID]
	w.spawns[sp.SpawnID] = sp.Clone()
	return !existed
}

// Spawn returns the spawn with the given id.
func (w *World) Spawn(spawnID string) (model.SpawnPoint, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sp, ok := w.spawns[spawnID]
	if !ok {
		return model.SpawnPoint{}, false
	}
	return sp.Clone(), true
}

// Len returns the number of stored spawns.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.spawns)
}

// Spawns returns all spawns ordered by spawn id.
func (w *World) Spawns() []model.SpawnPoint {
	w.mu.RLock()
	out := make([]model.SpawnPoint, 0, len(w.spawns))
	for _, sp := range w.spawns {
		out = append(out, sp.Clone())
	}
	w.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.SpawnPoint) int {
		return strings.Compare(a.SpawnID, b.SpawnID)
	})
	return out
}

// RegionSpawns returns the spawns tagged with regionID, ordered by id.
func (w *World) RegionSpawns(regionID string) []model.SpawnPoint {
	all := w.Spawns()
	out := all[:0]
	for _, sp := range all {
		if sp.RegionID == regionID {
			out = append(out, sp)
		}
	}
	return out
}

// Refresh returns a copy of r whose spawn list also contains every stored
// spawn of the region that r does not list yet. r itself is not modified.
func (w *World) Refresh(r model.RegionSnapshot) model.RegionSnapshot {
	known := make(map[string]struct{}, len(r.Spawns))
	spawns := make([]model.SpawnSnapshot, 0, len(r.Spawns))
	for _, s := range r.Spawns {
		known[s.ID] = struct{}{}
		spawns = append(spawns, s)
	}

	for _, sp := range w.RegionSpawns(r.RegionID) {
		if _, ok := known[sp.SpawnID]; ok {
			continue
		}
		spawns = append(spawns, sp.Snapshot())
	}

	r.Spawns = spawns
	r.Settlements = slices.Clone(r.Settlements)
	return r
}
