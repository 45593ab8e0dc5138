package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/worldplan/internal/model"
)

const insertSettlementIfAbsent = `
	INSERT INTO settlements (shard_id, settlement_id, region_id, kind, faction_id, x, z)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (shard_id, settlement_id) DO NOTHING
`

// SettlementRepository handles settlement rows.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new settlement repository.
func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// InsertIfAbsentTx inserts settlements whose (shard, id) is not stored yet.
func (r *SettlementRepository) InsertIfAbsentTx(ctx context.Context, tx pgx.Tx, settlements []model.Settlement) error {
	if len(settlements) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range settlements {
		batch.Queue(insertSettlementIfAbsent,
			s.ShardID, s.ID, s.RegionID, s.Kind, s.FactionID, s.X, s.Z,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for _, s := range settlements {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting settlement %s/%s: %w", s.ShardID, s.ID, err)
		}
	}
	return nil
}
