package sqlx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"minesweeper/core"
)

const (
	tableName       = "leaderboard"
	difficultyIndex = "idx_leaderboard_difficulty_time"
)

var createTable = map[Driver]string{
	DriverMySQL: `CREATE TABLE IF NOT EXISTS leaderboard (
	id INT AUTO_INCREMENT PRIMARY KEY,
	player_name VARCHAR(50) NOT NULL,
	time_seconds INT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	difficulty VARCHAR(10) NOT NULL DEFAULT 'easy'
)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS leaderboard (
	id BIGSERIAL PRIMARY KEY,
	player_name VARCHAR(50) NOT NULL,
	time_seconds INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	difficulty VARCHAR(10) NOT NULL DEFAULT 'easy'
)`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS leaderboard (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_name VARCHAR(50) NOT NULL,
	time_seconds INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	difficulty VARCHAR(10) NOT NULL DEFAULT 'easy'
)`,
}

const addDifficultyColumn = `ALTER TABLE leaderboard ADD COLUMN difficulty VARCHAR(10) NOT NULL DEFAULT 'easy'`

var columnExists = map[Driver]string{
	DriverMySQL: `SELECT COUNT(*) FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`,
	DriverPostgres: `SELECT COUNT(*) FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`,
	DriverSQLite: `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
}

const mysqlIndexExists = `SELECT COUNT(*) FROM information_schema.statistics
WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`

// dialect maps pgx onto the postgres statements.
func (s *Store) dialect() Driver {
	if s.driver == DriverPgx {
		return DriverPostgres
	}
	return s.driver
}

// EnsureSchema creates the leaderboard table when absent and migrates older
// tables that predate the difficulty column. Every failure wraps core.ErrSchema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl, ok := createTable[s.dialect()]
	if !ok {
		return fmt.Errorf("%w: unsupported driver %q", core.ErrSchema, s.driver)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create table: %w", core.ErrSchema, err)
	}
	if err := s.migrateDifficulty(ctx); err != nil {
		return err
	}
	return s.ensureIndex(ctx)
}

// migrateDifficulty adds the difficulty column only after checking that it is
// missing. A duplicate-column error can still come back when another instance
// migrates concurrently; that is the only error treated as success.
func (s *Store) migrateDifficulty(ctx context.Context) error {
	present, err := s.hasColumn(ctx, "difficulty")
	if err != nil {
		return fmt.Errorf("%w: inspect columns: %w", core.ErrSchema, err)
	}
	if present {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, addDifficultyColumn); err != nil {
		if isDuplicateColumn(err) {
			s.logger.InfoContext(ctx, "difficulty column added concurrently", "table", tableName)
			return nil
		}
		return fmt.Errorf("%w: add difficulty column: %w", core.ErrSchema, err)
	}
	s.logger.InfoContext(ctx, "migrated schema", "table", tableName, "column", "difficulty")
	return nil
}

func (s *Store) hasColumn(ctx context.Context, column string) (bool, error) {
	var n int
	q := s.db.Rebind(columnExists[s.dialect()])
	if err := s.db.GetContext(ctx, &n, q, tableName, column); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	if s.dialect() == DriverMySQL {
		var n int
		if err := s.db.GetContext(ctx, &n, mysqlIndexExists, tableName, difficultyIndex); err != nil {
			return fmt.Errorf("%w: inspect indexes: %w", core.ErrSchema, err)
		}
		if n > 0 {
			return nil
		}
		if _, err := s.db.ExecContext(ctx, "CREATE INDEX "+difficultyIndex+" ON leaderboard (difficulty, time_seconds)"); err != nil {
			return fmt.Errorf("%w: create index: %w", core.ErrSchema, err)
		}
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS "+difficultyIndex+" ON leaderboard (difficulty, time_seconds)"); err != nil {
		return fmt.Errorf("%w: create index: %w", core.ErrSchema, err)
	}
	return nil
}

// isDuplicateColumn recognizes "column already exists" across drivers.
func isDuplicateColumn(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1060
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42701"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42701"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
