// Package planner decides which world content should exist. Planners are
// pure: they read region snapshots and configuration and return declarative
// actions plus a summary. Applying actions is the caller's job.
package planner

import (
	"errors"
	"fmt"

	"github.com/udisondev/worldplan/internal/model"
)

// ErrUnknownActionKind is returned when an action kind has no handler.
var ErrUnknownActionKind = errors.New("unknown action kind")

// ActionKind tags an Action variant.
type ActionKind string

// ActionPlaceSpawn creates or replaces a spawn point by spawn id.
const ActionPlaceSpawn ActionKind = "place_spawn"

// Action is a declarative, idempotent intention. Only the payload matching
// Kind is set.
type Action struct {
	Kind  ActionKind        `json:"kind"`
	Spawn *model.SpawnPoint `json:"spawn,omitempty"`
}

// PlaceSpawn builds an ActionPlaceSpawn action.
func PlaceSpawn(sp model.SpawnPoint) Action {
	return Action{Kind: ActionPlaceSpawn, Spawn: &sp}
}

// SpawnUpserter is the world model actions are applied to.
type SpawnUpserter interface {
	UpsertSpawn(sp model.SpawnPoint) bool
}

// ApplyActions applies actions in order. Re-applying the same list is a
// no-op in effect. Fails fast on the first action it cannot handle.
func ApplyActions(w SpawnUpserter, actions []Action) error {
	for i, a := range actions {
		switch a.Kind {
		case ActionPlaceSpawn:
			if a.Spawn == nil {
				return fmt.Errorf("action %d (%s): missing spawn payload", i, a.Kind)
			}
			w.UpsertSpawn(*a.Spawn)
		default:
			return fmt.Errorf("action %d: %w: %q", i, ErrUnknownActionKind, a.Kind)
		}
	}
	return nil
}

// SpawnPoints extracts the spawn descriptors of all place-spawn actions.
func SpawnPoints(actions []Action) []model.SpawnPoint {
	out := make([]model.SpawnPoint, 0, len(actions))
	for _, a := range actions {
		if a.Kind == ActionPlaceSpawn && a.Spawn != nil {
			out = append(out, *a.Spawn)
		}
	}
	return out
}
