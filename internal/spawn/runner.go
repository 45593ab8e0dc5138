// Package spawn runs planning passes against a store: it loads region
// snapshots, runs the planners and persists what they produce.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/worldplan/internal/config"
	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/planner"
	"github.com/udisondev/worldplan/internal/world"
)

// Planning modes.
const (
	ModeResources   = "resources"
	ModeSettlements = "settlements"
	ModeTiers       = "tiers"
	ModeInit        = "init"
)

// ErrUnknownMode is returned by Run for an unsupported mode.
var ErrUnknownMode = errors.New("unknown planning mode")

// Store is the persistence surface used by Runner.
type Store interface {
	LoadRegions(ctx context.Context, shardID string) ([]model.RegionSnapshot, error)
	UpsertRegions(ctx context.Context, regions []model.RegionSnapshot) error
	UpdateRegionTiers(ctx context.Context, tiers []planner.RegionTier) error
	SavePlan(ctx context.Context, spawns []model.SpawnPoint, settlements []model.Settlement) (int, error)
	RecordRun(ctx context.Context, run model.PlanningRun) error
}

// Result is the outcome of one planning run.
type Result struct {
	Run        model.PlanningRun
	Actions    []planner.Action
	Regions    []planner.RegionSummary       // resources mode
	Placements []planner.SettlementPlacement // settlements mode
	Requested  int                           // settlements mode
	Tiers      []planner.RegionTier          // tiers mode
	Created    int                           // init mode
}

// Runner executes planning runs for one shard.
type Runner struct {
	cfg    config.Planner
	store  Store
	world  *world.World
	dryRun bool
}

// NewRunner creates a runner. Planned spawns are mirrored into w so repeated
// runs in one process see each other even when nothing is persisted.
func NewRunner(cfg config.Planner, store Store, w *world.World, dryRun bool) *Runner {
	if w == nil {
		w = world.NewWorld()
	}
	return &Runner{
		cfg:    cfg,
		store:  store,
		world:  w,
		dryRun: dryRun,
	}
}

// World returns the in-memory mirror of planned spawns.
func (r *Runner) World() *world.World {
	return r.world
}

// Run dispatches to the runner method for mode.
func (r *Runner) Run(ctx context.Context, mode string) (*Result, error) {
	switch mode {
	case ModeResources:
		return r.PlanResources(ctx)
	case ModeSettlements:
		return r.PlanSettlements(ctx)
	case ModeTiers:
		return r.AssignTiers(ctx)
	case ModeInit:
		return r.InitRegions(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// PlanResources fills the resource shortfall of every region of the shard.
// Regions are planned concurrently; the result is assembled in region order
// so it does not depend on scheduling.
func (r *Runner) PlanResources(ctx context.Context) (*Result, error) {
	run := r.startRun(ModeResources)

	regions, err := r.loadRegions(ctx)
	if err != nil {
		return nil, err
	}

	cfg := r.cfg.ResourceConfig()
	actions := make([][]planner.Action, len(regions))
	summaries := make([]planner.RegionSummary, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Workers))
	for i, region := range regions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			actions[i], summaries[i] = planner.PlanRegionResources(region, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("planning resources: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("planning resources: %w", err)
	}

	res := &Result{Regions: summaries}
	for _, a := range actions {
		res.Actions = append(res.Actions, a...)
	}

	applied, err := r.apply(ctx, res.Actions, nil)
	if err != nil {
		return nil, err
	}

	res.Run = r.finishRun(ctx, run, len(res.Actions), applied)
	return res, nil
}

// PlanSettlements places the configured faction settlements.
func (r *Runner) PlanSettlements(ctx context.Context) (*Result, error) {
	run := r.startRun(ModeSettlements)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := r.cfg.SettlementConfig()
	plan := planner.PlanSettlements(r.cfg.Settlements.Factions, cfg)
	if plan.Placed() < plan.Requested {
		slog.Warn("not every settlement could be placed",
			"runID", run.RunID,
			"requested", plan.Requested,
			"placed", plan.Placed(),
			"minCellDistance", cfg.MinCellDistance)
	}

	settlements := make([]model.Settlement, 0, len(plan.Placements))
	for _, p := range plan.Placements {
		settlements = append(settlements, model.Settlement{
			SettlementSnapshot: model.SettlementSnapshot{
				ID:   p.SpawnID,
				Kind: planner.SettlementKindOutpost,
				X:    p.Position.X,
				Z:    p.Position.Z,
			},
			ShardID:   cfg.ShardID,
			RegionID:  world.MakeRegionID(cfg.ShardID, p.Cell),
			FactionID: p.FactionID,
		})
	}

	applied, err := r.apply(ctx, plan.Actions, settlements)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Actions:    plan.Actions,
		Placements: plan.Placements,
		Requested:  plan.Requested,
	}
	res.Run = r.finishRun(ctx, run, len(plan.Actions), applied)
	return res, nil
}

// AssignTiers recomputes base tiers of every region from its distance to
// the configured center.
func (r *Runner) AssignTiers(ctx context.Context) (*Result, error) {
	run := r.startRun(ModeTiers)

	regions, err := r.store.LoadRegions(ctx, r.cfg.ShardID)
	if err != nil {
		return nil, fmt.Errorf("loading regions of shard %s: %w", r.cfg.ShardID, err)
	}

	tiers := planner.AssignBaseTiers(regions, r.cfg.TierConfig())

	applied := 0
	if !r.dryRun {
		if err := r.store.UpdateRegionTiers(ctx, tiers); err != nil {
			return nil, fmt.Errorf("updating region tiers: %w", err)
		}
		applied = len(tiers)
	}

	res := &Result{Tiers: tiers}
	res.Run = r.finishRun(ctx, run, len(tiers), applied)
	return res, nil
}

// InitRegions creates a region row for every cell of the configured bounds
// that has none. Existing regions are left untouched.
func (r *Runner) InitRegions(ctx context.Context) (*Result, error) {
	run := r.startRun(ModeInit)

	existing, err := r.store.LoadRegions(ctx, r.cfg.ShardID)
	if err != nil {
		return nil, fmt.Errorf("loading regions of shard %s: %w", r.cfg.ShardID, err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, reg := range existing {
		known[reg.RegionID] = struct{}{}
	}

	tier := max(1, r.cfg.Tiers.MinTier)
	var missing []model.RegionSnapshot
	for _, cell := range r.cfg.Bounds.Normalize().Cells() {
		id := world.MakeRegionID(r.cfg.ShardID, cell)
		if _, ok := known[id]; ok {
			continue
		}
		missing = append(missing, model.RegionSnapshot{
			RegionID:   id,
			ShardID:    r.cfg.ShardID,
			CellX:      cell.X,
			CellZ:      cell.Z,
			BaseTier:   tier,
			DangerTier: tier,
		})
	}

	applied := 0
	if !r.dryRun && len(missing) > 0 {
		if err := r.store.UpsertRegions(ctx, missing); err != nil {
			return nil, fmt.Errorf("creating regions: %w", err)
		}
		applied = len(missing)
	}

	res := &Result{Created: len(missing)}
	res.Run = r.finishRun(ctx, run, len(missing), applied)
	return res, nil
}

// loadRegions loads region snapshots and merges spawns planned earlier in
// this process that the store does not report.
func (r *Runner) loadRegions(ctx context.Context) ([]model.RegionSnapshot, error) {
	regions, err := r.store.LoadRegions(ctx, r.cfg.ShardID)
	if err != nil {
		return nil, fmt.Errorf("loading regions of shard %s: %w", r.cfg.ShardID, err)
	}
	for i := range regions {
		regions[i] = r.world.Refresh(regions[i])
	}
	return regions, nil
}

// apply persists actions unless dry-run and then mirrors them into the
// world. Nothing is mirrored when saving fails, so the next pass plans the
// same shortfall again. Returns the number of spawn rows inserted.
func (r *Runner) apply(ctx context.Context, actions []planner.Action, settlements []model.Settlement) (int, error) {
	applied := 0
	if !r.dryRun {
		n, err := r.store.SavePlan(ctx, planner.SpawnPoints(actions), settlements)
		if err != nil {
			return 0, fmt.Errorf("saving plan: %w", err)
		}
		applied = n
	}

	if err := planner.ApplyActions(r.world, actions); err != nil {
		return applied, fmt.Errorf("applying actions: %w", err)
	}
	return applied, nil
}

func (r *Runner) startRun(mode string) model.PlanningRun {
	run := model.NewPlanningRun(mode, r.cfg.ShardID, r.cfg.Seed.String(), r.dryRun)
	slog.Info("planning run started",
		"runID", run.RunID,
		"mode", mode,
		"shard", run.ShardID,
		"seed", run.Seed,
		"dryRun", r.dryRun)
	return run
}

// finishRun stamps and records run. A failed record is logged, not returned:
// the plan itself has already been applied.
func (r *Runner) finishRun(ctx context.Context, run model.PlanningRun, planned, applied int) model.PlanningRun {
	run.Planned = planned
	run.Applied = applied
	run.FinishedAt = time.Now().UTC()

	if err := r.store.RecordRun(ctx, run); err != nil {
		slog.Error("recording planning run failed", "runID", run.RunID, "error", err)
	}

	slog.Info("planning run finished",
		"runID", run.RunID,
		"mode", run.Mode,
		"planned", planned,
		"applied", applied,
		"duration", run.Duration())
	return run
}
