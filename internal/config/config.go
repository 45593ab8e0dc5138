package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/worldplan/internal/model"
	"github.com/udisondev/worldplan/internal/planner"
	"github.com/udisondev/worldplan/internal/rng"
	"github.com/udisondev/worldplan/internal/world"
)

// ErrInvalidConfig is returned by Validate for structural problems that
// cannot be clamped into something sane.
var ErrInvalidConfig = errors.New("invalid config")

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Planner holds all configuration of the world planner.
type Planner struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// World
	ShardID  string       `yaml:"shard_id"`
	Seed     rng.Seed     `yaml:"seed"`
	Bounds   world.Bounds `yaml:"bounds"`
	CellSize float64      `yaml:"cell_size"`

	// Worker pool for per-region planning
	Workers int `yaml:"workers"`

	// Storage
	Store      string         `yaml:"store"` // postgres or sqlite
	SQLitePath string         `yaml:"sqlite_path"`
	Database   DatabaseConfig `yaml:"database"`

	Settlements SettlementConfig       `yaml:"settlements"`
	Resources   []planner.ResourceRule `yaml:"resources"`
	Tiers       TierConfig             `yaml:"tiers"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// SettlementConfig holds settlement placement parameters.
type SettlementConfig struct {
	BaseY           float64                     `yaml:"base_y"`
	BorderMargin    float64                     `yaml:"border_margin"`
	MinCellDistance float64                     `yaml:"min_cell_distance"`
	SpawnType       string                      `yaml:"spawn_type"`
	ProtoID         string                      `yaml:"proto_id"`
	Archetype       string                      `yaml:"archetype"`
	Factions        []planner.SettlementRequest `yaml:"factions"`
}

// TierConfig holds distance-mode tier assignment parameters. A missing
// center means the center of Bounds.
type TierConfig struct {
	MinTier int      `yaml:"min_tier"`
	MaxTier int      `yaml:"max_tier"`
	CenterX *float64 `yaml:"center_x"`
	CenterZ *float64 `yaml:"center_z"`
}

// DefaultPlanner returns Planner config with sensible defaults.
func DefaultPlanner() Planner {
	return Planner{
		LogLevel:   "info",
		ShardID:    "prime",
		Seed:       rng.IntSeed(1),
		Bounds:     world.NewBounds(0, 0, 15, 15),
		CellSize:   256,
		Workers:    4,
		Store:      StorePostgres,
		SQLitePath: "worldplan.db",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "worldplan",
			Password: "worldplan",
			DBName:   "worldplan",
			SSLMode:  "disable",
		},
		Settlements: SettlementConfig{
			BaseY:           0,
			BorderMargin:    16,
			MinCellDistance: 3,
			SpawnType:       "settlement",
			ProtoID:         "outpost",
			Archetype:       "outpost",
		},
		Tiers: TierConfig{
			MinTier: 1,
			MaxTier: 5,
		},
	}
}

// LoadPlanner loads planner config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadPlanner(path string) (Planner, error) {
	cfg := DefaultPlanner()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports structural problems. Numeric density and tier knobs are
// not checked here: the planners clamp them.
func (p Planner) Validate() error {
	if p.ShardID == "" {
		return fmt.Errorf("%w: shard_id is empty", ErrInvalidConfig)
	}
	if p.CellSize <= 0 {
		return fmt.Errorf("%w: cell_size must be positive, got %v", ErrInvalidConfig, p.CellSize)
	}
	switch p.Store {
	case StorePostgres:
	case StoreSQLite:
		if p.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, p.Store)
	}

	seen := make(map[[2]string]string, len(p.Resources))
	for _, r := range p.Resources {
		key := [2]string{r.Type, r.VariantKey()}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("%w: resources %q and %q share type %q and variant %q",
				ErrInvalidConfig, other, r.Kind, r.Type, r.VariantKey())
		}
		seen[key] = r.Kind
	}
	return nil
}

// ResourceConfig builds the resource planner configuration.
func (p Planner) ResourceConfig() planner.ResourceConfig {
	return planner.ResourceConfig{
		Seed:     p.Seed,
		CellSize: p.CellSize,
		Rules:    p.Resources,
	}
}

// SettlementConfig builds the settlement planner configuration.
func (p Planner) SettlementConfig() planner.SettlementConfig {
	return planner.SettlementConfig{
		Seed:            p.Seed,
		ShardID:         p.ShardID,
		Bounds:          p.Bounds.Normalize(),
		CellSize:        p.CellSize,
		BaseY:           p.Settlements.BaseY,
		BorderMargin:    p.Settlements.BorderMargin,
		MinCellDistance: p.Settlements.MinCellDistance,
		SpawnType:       p.Settlements.SpawnType,
		ProtoID:         p.Settlements.ProtoID,
		Archetype:       p.Settlements.Archetype,
	}
}

// TierConfig builds the tier assignment configuration.
func (p Planner) TierConfig() planner.TierConfig {
	cfg := planner.TierConfig{
		Bounds:   p.Bounds.Normalize(),
		CellSize: p.CellSize,
		MinTier:  p.Tiers.MinTier,
		MaxTier:  p.Tiers.MaxTier,
	}
	if p.Tiers.CenterX != nil && p.Tiers.CenterZ != nil {
		center := model.NewPosition(*p.Tiers.CenterX, 0, *p.Tiers.CenterZ)
		cfg.Center = &center
	}
	return cfg
}
