package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"signal-simulation-service/internal/domain"
	"strings"
)

// Initialize the towers schema. The DDL is portable between Postgres and SQLite.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// seq preserves generation order; id uniqueness rejects duplicate layouts.
	createTowersQuery := `
	CREATE TABLE IF NOT EXISTS towers (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL
	);
	`

	createIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_towers_seq ON towers(seq);
	`

	statements := []string{
		createTowersQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Read a fixed tower layout from a JSON file ([{"id":..,"x":..,"y":..}]).
func LoadTowersJSON(jsonPath string) ([]domain.Tower, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("load towers: read %q: %w", jsonPath, err)
	}

	var data []domain.Tower
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("load towers: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(data))
	towers := make([]domain.Tower, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			id = domain.TowerID(i + 1)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("load towers: duplicate id %q at index %d", id, i+1)
		}
		seen[id] = struct{}{}
		towers = append(towers, domain.Tower{ID: id, X: item.X, Y: item.Y})
	}

	if len(towers) == 0 {
		return nil, fmt.Errorf("load towers: %q contains no towers", jsonPath)
	}

	return towers, nil
}
