package world

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/worldplan/internal/model"
)

func TestWorld_UpsertSpawn(t *testing.T) {
	w := NewWorld()

	sp := model.SpawnPoint{SpawnID: "res_ore_0_0_0", Type: "resource", RegionID: "prime:0,0"}
	assert.True(t, w.UpsertSpawn(sp), "first insert")
	assert.False(t, w.UpsertSpawn(sp), "second upsert replaces")
	assert.Equal(t, 1, w.Len())

	sp.Position = model.NewPosition(1, 2, 3)
	w.UpsertSpawn(sp)

	got, ok := w.Spawn("res_ore_0_0_0")
	require.True(t, ok)
	assert.Equal(t, model.NewPosition(1, 2, 3), got.Position)

	_, ok = w.Spawn("missing")
	assert.False(t, ok)
}

func TestWorld_SpawnsSorted(t *testing.T) {
	w := NewWorld()
	for _, id := range []string{"c", "a", "b"} {
		w.UpsertSpawn(model.SpawnPoint{SpawnID: id, RegionID: "r"})
	}
	w.UpsertSpawn(model.SpawnPoint{SpawnID: "0", RegionID: "other"})

	var ids []string
	for _, sp := range w.RegionSpawns("r") {
		ids = append(ids, sp.SpawnID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Len(t, w.Spawns(), 4)
}

func TestWorld_StoredCopyIsIsolated(t *testing.T) {
	w := NewWorld()
	meta := map[string]any{"k": "v"}
	w.UpsertSpawn(model.SpawnPoint{SpawnID: "a", Meta: meta})

	meta["k"] = "changed"

	got, _ := w.Spawn("a")
	assert.Equal(t, "v", got.Meta["k"])
}

func TestWorld_Refresh(t *testing.T) {
	w := NewWorld()
	w.UpsertSpawn(model.SpawnPoint{SpawnID: "known", RegionID: "prime:0,0", Type: "resource"})
	w.UpsertSpawn(model.SpawnPoint{SpawnID: "new", RegionID: "prime:0,0", Type: "resource", VariantID: "iron"})
	w.UpsertSpawn(model.SpawnPoint{SpawnID: "elsewhere", RegionID: "prime:1,0"})

	r := model.RegionSnapshot{
		RegionID: "prime:0,0",
		Spawns:   []model.SpawnSnapshot{{ID: "known", Type: "resource"}},
	}

	got := w.Refresh(r)

	require.Len(t, got.Spawns, 2)
	assert.Equal(t, "known", got.Spawns[0].ID)
	assert.Equal(t, "new", got.Spawns[1].ID)
	assert.Equal(t, "iron", got.Spawns[1].VariantID)
	assert.Len(t, r.Spawns, 1, "input snapshot must stay unchanged")
}

func TestWorld_ConcurrentUpsert(t *testing.T) {
	w := NewWorld()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				w.UpsertSpawn(model.SpawnPoint{SpawnID: string(rune('a'+g)) + string(rune('0'+i%10))})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 80, w.Len())
}
