package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/udisondev/worldplan/internal/config"
	"github.com/udisondev/worldplan/internal/db"
	"github.com/udisondev/worldplan/internal/localstore"
	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/spawn"
	"github.com/udisondev/worldplan/internal/world"
)

const DefaultConfigPath = "config/worldplan.yaml"

// modeRuns lists recorded runs instead of planning.
const modeRuns = "runs"

// planStore is a spawn.Store that can also list its run history.
type planStore interface {
	spawn.Store
	Runs(ctx context.Context, shardID string, limit int) ([]model.PlanningRun, error)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	mode       string
	dryRun     bool
	interval   time.Duration
	verbose    bool
	limit      int
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("worldplan", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to planner config (default $WORLDPLAN_CONFIG or "+DefaultConfigPath+")")
	fs.StringVar(&opts.mode, "mode", spawn.ModeResources, "planning mode: init, resources, settlements, tiers, runs")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "plan without writing spawns, settlements or tiers")
	fs.DurationVar(&opts.interval, "interval", 0, "repeat the run on this interval until interrupted")
	fs.BoolVar(&opts.verbose, "v", false, "print per-region summary")
	fs.IntVar(&opts.limit, "limit", 20, "number of runs listed by -mode runs")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.configPath == "" {
		opts.configPath = DefaultConfigPath
		if p := os.Getenv("WORLDPLAN_CONFIG"); p != "" {
			opts.configPath = p
		}
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Load config FIRST to determine log level
	cfg, err := config.LoadPlanner(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading planner config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("worldplan starting",
		"config", opts.configPath,
		"mode", opts.mode,
		"shard", cfg.ShardID,
		"seed", cfg.Seed.String(),
		"store", cfg.Store,
		"dryRun", opts.dryRun)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.mode == modeRuns {
		runs, err := store.Runs(ctx, cfg.ShardID, opts.limit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		printRuns(out, runs)
		return nil
	}

	runner := spawn.NewRunner(cfg, store, world.NewWorld(), opts.dryRun)

	if opts.interval > 0 {
		s := spawn.NewScheduler(runner, opts.mode, opts.interval, func(res *spawn.Result) {
			printSummary(out, res, opts.verbose)
		})
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	res, err := runner.Run(ctx, opts.mode)
	if err != nil {
		return err
	}
	printSummary(out, res, opts.verbose)
	return nil
}

// openStore connects the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg config.Planner) (planStore, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := localstore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store %s: %w", cfg.SQLitePath, err)
		}
		slog.Info("sqlite store opened", "path", cfg.SQLitePath)
		return s, func() { _ = s.Close() }, nil

	default:
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		return db.NewStore(database), database.Close, nil
	}
}

func printSummary(out io.Writer, res *spawn.Result, verbose bool) {
	run := res.Run
	mode := "applied"
	if run.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, "run %s  %s  shard=%s seed=%s  (%s, %s)\n",
		run.RunID, run.Mode, run.ShardID, run.Seed, mode, run.Duration().Round(time.Millisecond))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch run.Mode {
	case spawn.ModeResources:
		var target, existing, placed int
		for _, r := range res.Regions {
			target += r.Target
			existing += r.Existing
			placed += r.Placed
		}
		if verbose {
			fmt.Fprintln(tw, "REGION\tKIND\tTARGET\tEXISTING\tPLACED")
			for _, r := range res.Regions {
				for _, k := range r.Kinds {
					if k.Target == 0 && k.Existing == 0 {
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.RegionID, k.Kind, k.Target, k.Existing, k.Placed)
				}
			}
		}
		fmt.Fprintf(tw, "regions\t%s\n", humanize.Comma(int64(len(res.Regions))))
		fmt.Fprintf(tw, "target\t%s\n", humanize.Comma(int64(target)))
		fmt.Fprintf(tw, "existing\t%s\n", humanize.Comma(int64(existing)))
		fmt.Fprintf(tw, "placed\t%s\n", humanize.Comma(int64(placed)))

	case spawn.ModeSettlements:
		if verbose {
			fmt.Fprintln(tw, "SPAWN\tFACTION\tCELL\tX\tZ")
			for _, p := range res.Placements {
				fmt.Fprintf(tw, "%s\t%s\t%d,%d\t%.1f\t%.1f\n", p.SpawnID, p.FactionID, p.Cell.X, p.Cell.Z, p.Position.X, p.Position.Z)
			}
		}
		fmt.Fprintf(tw, "requested\t%s\n", humanize.Comma(int64(res.Requested)))
		fmt.Fprintf(tw, "placed\t%s\n", humanize.Comma(int64(len(res.Placements))))

	case spawn.ModeTiers:
		counts := make(map[int]int)
		maxTier := 0
		for _, t := range res.Tiers {
			counts[t.BaseTier]++
			maxTier = max(maxTier, t.BaseTier)
		}
		for tier := 0; tier <= maxTier; tier++ {
			if counts[tier] > 0 {
				fmt.Fprintf(tw, "tier %d\t%s regions\n", tier, humanize.Comma(int64(counts[tier])))
			}
		}

	case spawn.ModeInit:
		fmt.Fprintf(tw, "created\t%s regions\n", humanize.Comma(int64(res.Created)))
	}

	fmt.Fprintf(tw, "inserted\t%s\n", humanize.Comma(int64(run.Applied)))
}

func printRuns(out io.Writer, runs []model.PlanningRun) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "RUN\tMODE\tSEED\tDRY\tPLANNED\tAPPLIED\tSTARTED\tTOOK")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Mode, r.Seed, r.DryRun,
			humanize.Comma(int64(r.Planned)), humanize.Comma(int64(r.Applied)),
			humanize.Time(r.StartedAt), r.Duration().Round(time.Millisecond))
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
