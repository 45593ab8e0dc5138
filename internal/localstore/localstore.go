// Package localstore provides a SQLite-backed planning store for local runs
// and dry experiments without a PostgreSQL server.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/planner"
)

// Store wraps a SQLite connection.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Single writer.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS regions (
		region_id TEXT PRIMARY KEY,
		shard_id TEXT NOT NULL,
		cell_x INTEGER NOT NULL,
		cell_z INTEGER NOT NULL,
		base_tier INTEGER NOT NULL DEFAULT 1,
		danger_tier INTEGER NOT NULL DEFAULT 1,
		debug_score REAL,
		UNIQUE (shard_id, cell_x, cell_z)
	);

	CREATE TABLE IF NOT EXISTS spawn_points (
		shard_id TEXT NOT NULL,
		spawn_id TEXT NOT NULL,
		region_id TEXT,
		type TEXT NOT NULL,
		archetype TEXT NOT NULL DEFAULT '',
		proto_id TEXT NOT NULL DEFAULT '',
		variant_id TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		meta_json TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (shard_id, spawn_id)
	);

	CREATE TABLE IF NOT EXISTS settlements (
		shard_id TEXT NOT NULL,
		settlement_id TEXT NOT NULL,
		region_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		faction_id TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL,
		z REAL NOT NULL,
		PRIMARY KEY (shard_id, settlement_id)
	);

	CREATE TABLE IF NOT EXISTS planning_runs (
		run_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		shard_id TEXT NOT NULL,
		seed TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		planned INTEGER NOT NULL,
		applied INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_spawn_points_region ON spawn_points(region_id);
	CREATE INDEX IF NOT EXISTS idx_settlements_region ON settlements(region_id);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

type regionRow struct {
	RegionID   string   `db:"region_id"`
	ShardID    string   `db:"shard_id"`
	CellX      int      `db:"cell_x"`
	CellZ      int      `db:"cell_z"`
	BaseTier   int      `db:"base_tier"`
	DangerTier int      `db:"danger_tier"`
	DebugScore *float64 `db:"debug_score"`
}

type spawnRow struct {
	RegionID  string  `db:"region_id"`
	SpawnID   string  `db:"spawn_id"`
	Type      string  `db:"type"`
	Archetype string  `db:"archetype"`
	ProtoID   string  `db:"proto_id"`
	VariantID string  `db:"variant_id"`
	X         float64 `db:"x"`
	Z         float64 `db:"z"`
}

type settlementRow struct {
	RegionID     string  `db:"region_id"`
	SettlementID string  `db:"settlement_id"`
	Kind         string  `db:"kind"`
	X            float64 `db:"x"`
	Z            float64 `db:"z"`
}

type runRow struct {
	RunID      string `db:"run_id"`
	Mode       string `db:"mode"`
	ShardID    string `db:"shard_id"`
	Seed       string `db:"seed"`
	DryRun     bool   `db:"dry_run"`
	Planned    int    `db:"planned"`
	Applied    int    `db:"applied"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

// LoadRegions returns every region of a shard with its spawns and
// settlements, ordered by cell row then column.
func (s *Store) LoadRegions(ctx context.Context, shardID string) ([]model.RegionSnapshot, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var rows []regionRow
	if err := tx.SelectContext(ctx, &rows, `
		SELECT region_id, shard_id, cell_x, cell_z, base_tier, danger_tier, debug_score
		FROM regions WHERE shard_id = ? ORDER BY cell_z, cell_x`, shardID); err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	regions := make([]model.RegionSnapshot, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		regions[i] = model.RegionSnapshot{
			RegionID:   r.RegionID,
			ShardID:    r.ShardID,
			CellX:      r.CellX,
			CellZ:      r.CellZ,
			BaseTier:   r.BaseTier,
			DangerTier: r.DangerTier,
			DebugScore: r.DebugScore,
		}
		index[r.RegionID] = i
	}

	var spawns []spawnRow
	if err := tx.SelectContext(ctx, &spawns, `
		SELECT region_id, spawn_id, type, archetype, proto_id, variant_id, x, z
		FROM spawn_points WHERE shard_id = ? AND region_id IS NOT NULL
		ORDER BY spawn_id`, shardID); err != nil {
		return nil, fmt.Errorf("load spawns: %w", err)
	}
	for _, sp := range spawns {
		if i, ok := index[sp.RegionID]; ok {
			regions[i].Spawns = append(regions[i].Spawns, model.SpawnSnapshot{
				ID: sp.SpawnID, Type: sp.Type, Archetype: sp.Archetype,
				ProtoID: sp.ProtoID, VariantID: sp.VariantID, X: sp.X, Z: sp.Z,
			})
		}
	}

	var settlements []settlementRow
	if err := tx.SelectContext(ctx, &settlements, `
		SELECT region_id, settlement_id, kind, x, z
		FROM settlements WHERE shard_id = ? ORDER BY settlement_id`, shardID); err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	for _, st := range settlements {
		if i, ok := index[st.RegionID]; ok {
			regions[i].Settlements = append(regions[i].Settlements, model.SettlementSnapshot{
				ID: st.SettlementID, Kind: st.Kind, X: st.X, Z: st.Z,
			})
		}
	}

	return regions, nil
}

// UpsertRegions inserts regions or refreshes their tier columns.
func (s *Store) UpsertRegions(ctx context.Context, regions []model.RegionSnapshot) error {
	if len(regions) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert regions: %w", err)
	}
	defer tx.Rollback()

	for _, r := range regions {
		_, err := tx.ExecContext(ctx, `INSERT INTO regions
			(region_id, shard_id, cell_x, cell_z, base_tier, danger_tier, debug_score)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (region_id) DO UPDATE SET
				base_tier = excluded.base_tier,
				danger_tier = excluded.danger_tier,
				debug_score = excluded.debug_score`,
			r.RegionID, r.ShardID, r.CellX, r.CellZ, r.BaseTier, r.DangerTier, r.DebugScore,
		)
		if err != nil {
			return fmt.Errorf("upsert region %s: %w", r.RegionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert regions: %w", err)
	}
	return nil
}

// UpdateRegionTiers writes base and danger tiers.
func (s *Store) UpdateRegionTiers(ctx context.Context, tiers []planner.RegionTier) error {
	if len(tiers) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tiers: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tiers {
		if _, err := tx.ExecContext(ctx,
			"UPDATE regions SET base_tier = ?, danger_tier = ? WHERE region_id = ?",
			t.BaseTier, t.DangerTier, t.RegionID,
		); err != nil {
			return fmt.Errorf("update tiers of region %s: %w", t.RegionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update tiers: %w", err)
	}
	return nil
}

// SavePlan stores spawn points and settlements in one transaction, skipping
// rows that already exist. Returns the number of spawn points inserted.
func (s *Store) SavePlan(ctx context.Context, spawns []model.SpawnPoint, settlements []model.Settlement) (int, error) {
	if len(spawns) == 0 && len(settlements) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save plan: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO spawn_points
		(shard_id, spawn_id, region_id, type, archetype, proto_id, variant_id, x, y, z, meta_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (shard_id, spawn_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare spawn insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, sp := range spawns {
		metaJSON := []byte("{}")
		if len(sp.Meta) > 0 {
			if metaJSON, err = json.Marshal(sp.Meta); err != nil {
				return 0, fmt.Errorf("encode meta of spawn %s: %w", sp.SpawnID, err)
			}
		}

		var regionID any
		if sp.RegionID != "" {
			regionID = sp.RegionID
		}

		res, err := stmt.ExecContext(ctx,
			sp.ShardID, sp.SpawnID, regionID, sp.Type, sp.Archetype, sp.ProtoID, sp.VariantID,
			sp.Position.X, sp.Position.Y, sp.Position.Z, string(metaJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("insert spawn %s: %w", sp.SpawnID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected for spawn %s: %w", sp.SpawnID, err)
		}
		inserted += int(n)
	}

	for _, st := range settlements {
		_, err := tx.ExecContext(ctx, `INSERT INTO settlements
			(shard_id, settlement_id, region_id, kind, faction_id, x, z)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (shard_id, settlement_id) DO NOTHING`,
			st.ShardID, st.ID, st.RegionID, st.Kind, st.FactionID, st.X, st.Z,
		)
		if err != nil {
			return 0, fmt.Errorf("insert settlement %s/%s: %w", st.ShardID, st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save plan: %w", err)
	}

	slog.Info("plan saved", "spawns", len(spawns), "inserted", inserted, "settlements", len(settlements))
	return inserted, nil
}

// runTimeLayout is fixed width so started_at sorts as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun stores a run record.
func (s *Store) RecordRun(ctx context.Context, run model.PlanningRun) error {
	_, err := s.conn.NamedExecContext(ctx, `INSERT INTO planning_runs
		(run_id, mode, shard_id, seed, dry_run, planned, applied, started_at, finished_at)
		VALUES (:run_id, :mode, :shard_id, :seed, :dry_run, :planned, :applied, :started_at, :finished_at)`,
		runRow{
			RunID:      run.RunID.String(),
			Mode:       run.Mode,
			ShardID:    run.ShardID,
			Seed:       run.Seed,
			DryRun:     run.DryRun,
			Planned:    run.Planned,
			Applied:    run.Applied,
			StartedAt:  run.StartedAt.UTC().Format(runTimeLayout),
			FinishedAt: run.FinishedAt.UTC().Format(runTimeLayout),
		},
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	return nil
}

// Runs returns the most recent runs of a shard.
func (s *Store) Runs(ctx context.Context, shardID string, limit int) ([]model.PlanningRun, error) {
	var rows []runRow
	if err := s.conn.SelectContext(ctx, &rows,
		"SELECT * FROM planning_runs WHERE shard_id = ? ORDER BY started_at DESC LIMIT ?",
		shardID, limit,
	); err != nil {
		return nil, fmt.Errorf("load runs of shard %s: %w", shardID, err)
	}

	runs := make([]model.PlanningRun, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.RunID)
		if err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", r.RunID, err)
		}
		started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", r.RunID, err)
		}
		finished, err := time.Parse(time.RFC3339Nano, r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at of run %s: %w", r.RunID, err)
		}
		runs = append(runs, model.PlanningRun{
			RunID:      id,
			Mode:       r.Mode,
			ShardID:    r.ShardID,
			Seed:       r.Seed,
			DryRun:     r.DryRun,
			Planned:    r.Planned,
			Applied:    r.Applied,
			StartedAt:  started,
			FinishedAt: finished,
		})
	}
	return runs, nil
}
