package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/worldplan/internal/model"
)

// PlanPersistenceService writes the output of a planning run.
type PlanPersistenceService struct {
	pool           *pgxpool.Pool
	spawnRepo      *SpawnRepository
	settlementRepo *SettlementRepository
}

// NewPlanPersistenceService создаёт новый сервис.
func NewPlanPersistenceService(
	pool *pgxpool.Pool,
	spawnRepo *SpawnRepository,
	settlementRepo *SettlementRepository,
) *PlanPersistenceService {
	return &PlanPersistenceService{
		pool:           pool,
		spawnRepo:      spawnRepo,
		settlementRepo: settlementRepo,
	}
}

// SavePlan stores spawn points and settlements in a single transaction.
// Rows that already exist are skipped. Returns the number of spawn points
// actually inserted.
func (s *PlanPersistenceService) SavePlan(ctx context.Context, spawns []model.SpawnPoint, settlements []model.Settlement) (int, error) {
	if len(spawns) == 0 && len(settlements) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin plan transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "error", err)
		}
	}()

	// 1. Spawn points
	inserted, err := s.spawnRepo.InsertIfAbsentTx(ctx, tx, spawns)
	if err != nil {
		return 0, fmt.Errorf("saving spawn points: %w", err)
	}

	// 2. Settlements
	if err := s.settlementRepo.InsertIfAbsentTx(ctx, tx, settlements); err != nil {
		return 0, fmt.Errorf("saving settlements: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit plan transaction: %w", err)
	}

	slog.Info("plan saved",
		"spawns", len(spawns),
		"inserted", inserted,
		"settlements", len(settlements))

	return inserted, nil
}
