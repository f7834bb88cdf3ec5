package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"completion-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_state (
	learner_id  TEXT NOT NULL,
	block_id    TEXT NOT NULL,
	field       TEXT NOT NULL,
	value       TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (learner_id, block_id, field)
);
`

// FieldStore keeps learner fields in a local SQLite file, for single-node hosts.
type FieldStore struct {
	db *sql.DB
}

// NewFieldStore opens the database at path, creating missing parent
// directories, and creates the schema.
func NewFieldStore(path string) (*FieldStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &FieldStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *FieldStore) Close() error {
	return s.db.Close()
}

func (s *FieldStore) LoadFields(ctx context.Context, key domain.BlockKey) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM user_state WHERE learner_id = ? AND block_id = ?`,
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

func (s *FieldStore) SaveFields(ctx context.Context, key domain.BlockKey, fields map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_state WHERE learner_id = ? AND block_id = ?`,
		key.LearnerID, key.BlockID); err != nil {
		return fmt.Errorf("clear fields: %w", err)
	}
	for name, value := range fields {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_state (learner_id, block_id, field, value) VALUES (?, ?, ?, ?)`,
			key.LearnerID, key.BlockID, name, value); err != nil {
			return fmt.Errorf("insert field %s: %w", name, err)
		}
	}
	return tx.Commit()
}
