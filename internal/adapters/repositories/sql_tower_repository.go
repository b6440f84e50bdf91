package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/obs"
	"strings"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Advisory lock key serializing tower initialization on Postgres.
const towersInitLockKey int64 = 0x746f77657273 // "towers"

// SQL-backed implementation of the TowerRepository port.
type SQLTowerRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLTowerRepository(db *sql.DB, dialect Dialect) *SQLTowerRepository {
	return &SQLTowerRepository{DB: db, Dialect: dialect}
}

func (s *SQLTowerRepository) Ping(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("sql tower repository: DB is nil")
	}
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping tower store: %w", err)
	}
	return nil
}

func (s *SQLTowerRepository) CountTowers(ctx context.Context) (_ int, err error) {
	defer obs.Time(ctx, "towers.Count")(&err)

	if s.DB == nil {
		return 0, errors.New("sql tower repository: DB is nil")
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM towers;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count towers: %w", err)
	}
	return n, nil
}

// Return all towers in generation order.
func (s *SQLTowerRepository) ListTowers(ctx context.Context) (_ []domain.Tower, err error) {
	defer obs.Time(ctx, "towers.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql tower repository: DB is nil")
	}

	query := `
	SELECT
		id,
		x,
		y
	FROM towers
	ORDER BY seq;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list towers: query towers table: %w", err)
	}
	defer rows.Close()

	towers := make([]domain.Tower, 0, 8)
	for rows.Next() {
		var t domain.Tower
		if err := rows.Scan(&t.ID, &t.X, &t.Y); err != nil {
			return nil, fmt.Errorf("list towers: scan row: %w", err)
		}
		towers = append(towers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list towers: row iteration: %w", err)
	}

	return towers, nil
}

// Insert the batch in one transaction when the table is empty.
// Postgres serializes writers with an advisory transaction lock; SQLite
// relies on IMMEDIATE transactions (see db.SQLiteDSN). The primary key on
// id is the last line of defence against a duplicated layout.
func (s *SQLTowerRepository) InsertTowersIfEmpty(ctx context.Context, towers []domain.Tower) (_ bool, err error) {
	defer obs.Time(ctx, "towers.InsertIfEmpty")(&err)

	if s.DB == nil {
		return false, errors.New("sql tower repository: DB is nil")
	}
	if len(towers) == 0 {
		return false, errors.New("insert towers: batch must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("insert towers: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.Dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1);`, towersInitLockKey); err != nil {
			return false, fmt.Errorf("insert towers: acquire advisory lock: %w", err)
		}
	}

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM towers;`).Scan(&existing); err != nil {
		return false, fmt.Errorf("insert towers: count existing: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	query := fmt.Sprintf(`INSERT INTO towers (id, seq, x, y) VALUES (%s);`, s.placeholders(4))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("insert towers: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range towers {
		if _, err := stmt.ExecContext(ctx, t.ID, i+1, t.X, t.Y); err != nil {
			return false, fmt.Errorf("insert towers: insert id=%s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("insert towers: commit tx: %w", err)
	}

	return true, nil
}

// Remove every tower so the next initialization generates a fresh layout.
func (s *SQLTowerRepository) DeleteAllTowers(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("sql tower repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM towers;`)
	if err != nil {
		return 0, fmt.Errorf("delete towers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete towers: rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLTowerRepository) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		if s.Dialect == DialectPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return strings.Join(ph, ", ")
}
