package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/worldplan/internal/model"
)

const insertRun = `
	INSERT INTO planning_runs (run_id, mode, shard_id, seed, dry_run, planned, applied, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// RunRepository stores planning run records.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Create stores a finished run.
func (r *RunRepository) Create(ctx context.Context, run model.PlanningRun) error {
	_, err := r.pool.Exec(ctx, insertRun,
		run.RunID, run.Mode, run.ShardID, run.Seed, run.DryRun,
		run.Planned, run.Applied, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("creating planning run %s: %w", run.RunID, err)
	}
	return nil
}

// ListByShard returns the runs of a shard, newest first.
func (r *RunRepository) ListByShard(ctx context.Context, shardID string, limit int) ([]model.PlanningRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT run_id, mode, shard_id, seed, dry_run, planned, applied, started_at, finished_at
		FROM planning_runs
		WHERE shard_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, shardID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs of shard %s: %w", shardID, err)
	}
	defer rows.Close()

	var runs []model.PlanningRun
	for rows.Next() {
		var run model.PlanningRun
		if err := rows.Scan(&run.RunID, &run.Mode, &run.ShardID, &run.Seed, &run.DryRun,
			&run.Planned, &run.Applied, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}
