package postgres

import (
	"context"
	"fmt"

	"completion-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// FieldStore keeps one row per (learner, block, field) in user_state.
type FieldStore struct {
	pool *pgxpool.Pool
}

func NewFieldStore(pool *pgxpool.Pool) *FieldStore {
	return &FieldStore{pool: pool}
}

func (s *FieldStore) LoadFields(ctx context.Context, key domain.BlockKey) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT field, value FROM user_state WHERE learner_id=$1 AND block_id=$2`,
		key.LearnerID, key.BlockID)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields[name] = value
	}
	return fields, rows.Err()
}

// SaveFields replaces the learner's field set in one transaction.
func (s *FieldStore) SaveFields(ctx context.Context, key domain.BlockKey, fields map[string]string) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_state WHERE learner_id=$1 AND block_id=$2`,
			key.LearnerID, key.BlockID); err != nil {
			return fmt.Errorf("clear fields: %w", err)
		}
		for name, value := range fields {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_state (learner_id, block_id, field, value, updated_at)
				VALUES ($1, $2, $3, $4, now())`,
				key.LearnerID, key.BlockID, name, value); err != nil {
				return fmt.Errorf("insert field %s: %w", name, err)
			}
		}
		return nil
	})
}
