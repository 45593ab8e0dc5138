package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanningRun is the audit record of one planning run.
type PlanningRun struct {
	RunID      uuid.UUID `json:"runId"`
	Mode       string    `json:"mode"`
	ShardID    string    `json:"shardId"`
	Seed       string    `json:"seed"`
	DryRun     bool      `json:"dryRun"`
	Planned    int       `json:"planned"` // actions produced by the planner
	Applied    int       `json:"applied"` // rows actually inserted
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// NewPlanningRun starts a run record with a fresh id.
func NewPlanningRun(mode, shardID, seed string, dryRun bool) PlanningRun {
	return PlanningRun{
		RunID:     uuid.New(),
		Mode:      mode,
		ShardID:   shardID,
		Seed:      seed,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

// Duration returns how long the run took, zero while it is unfinished.
func (r PlanningRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
