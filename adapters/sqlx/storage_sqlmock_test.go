package sqlx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "minesweeper/adapters/sqlx"
	"minesweeper/core"
)

func newMockStore(t *testing.T, driver storage.Driver, opts ...storage.Option) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver, opts...)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestSQLMock_AddEntry_PostgresReturning(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres, storage.WithClock(func() time.Time { return fixedNow }))
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO leaderboard \(player_name, time_seconds, difficulty, created_at\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id`).
		WithArgs("Alice", 120, "easy", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	e, err := store.AddEntry(context.Background(), "Alice", 120, core.DifficultyEasy)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.ID)
	assert.Equal(t, fixedNow, e.CreatedAt)
	assert.Equal(t, core.DifficultyEasy, e.Difficulty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddEntry_MySQLLastInsertID(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO leaderboard \(player_name, time_seconds, difficulty, created_at\) VALUES \(\?, \?, \?, \?\)`).
		WithArgs("Bob", 300, "medium", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	e, err := store.AddEntry(context.Background(), "Bob", 300, core.DifficultyMedium)
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddEntry_BindsMetacharactersVerbatim(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	name := `x'); DELETE FROM leaderboard; --`
	mock.ExpectExec(`INSERT INTO leaderboard`).
		WithArgs(name, 10, `hard'; --`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := store.AddEntry(context.Background(), name, 10, core.Difficulty(`hard'; --`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddEntry_Error(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO leaderboard`).WillReturnError(errors.New("deadlock"))

	_, err := store.AddEntry(context.Background(), "Bob", 1, core.DifficultyEasy)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrQuery)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetLeaderboard(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, player_name, time_seconds, difficulty, created_at FROM leaderboard\s+WHERE difficulty = \$1 ORDER BY time_seconds ASC, id ASC LIMIT \$2`).
		WithArgs("medium", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "player_name", "time_seconds", "difficulty", "created_at"}).
			AddRow(2, "fast", 100, "medium", fixedNow).
			AddRow(1, "slow", 300, "medium", fixedNow))

	got, err := store.GetLeaderboard(context.Background(), 20, core.DifficultyMedium)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fast", got[0].PlayerName)
	assert.Equal(t, 100, got[0].TimeSeconds)
	assert.Equal(t, core.DifficultyMedium, got[1].Difficulty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetLeaderboard_ZeroLimitSkipsQuery(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	got, err := store.GetLeaderboard(context.Background(), 0, core.DifficultyEasy)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetLeaderboard_Error(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, player_name`).WillReturnError(errors.New("relation does not exist"))

	got, err := store.GetLeaderboard(context.Background(), 20, core.DifficultyEasy)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, core.ErrQuery)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_QueryTimeout(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres, storage.WithQueryTimeout(20*time.Millisecond))
	defer cleanup()

	mock.ExpectQuery(`SELECT id, player_name`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	start := time.Now()
	_, err := store.GetLeaderboard(context.Background(), 20, core.DifficultyEasy)
	assert.ErrorIs(t, err, core.ErrQuery)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func expectCreate(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leaderboard`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectColumnCount(mock sqlmock.Sqlmock, n int) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.columns`).
		WithArgs("leaderboard", "difficulty").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestSQLMock_EnsureSchema_AddsMissingColumn(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	expectCreate(mock)
	expectColumnCount(mock, 0)
	mock.ExpectExec(`ALTER TABLE leaderboard ADD COLUMN difficulty VARCHAR\(10\) NOT NULL DEFAULT 'easy'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_leaderboard_difficulty_time`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_EnsureSchema_ColumnPresentSkipsAlter(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	expectCreate(mock)
	expectColumnCount(mock, 1)
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_EnsureSchema_ConcurrentDuplicateColumn(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	expectCreate(mock)
	expectColumnCount(mock, 0)
	mock.ExpectExec(`ALTER TABLE leaderboard`).WillReturnError(&pq.Error{Code: "42701", Message: "column \"difficulty\" of relation \"leaderboard\" already exists"})
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_EnsureSchema_MySQL(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	expectCreate(mock)
	expectColumnCount(mock, 0)
	mock.ExpectExec(`ALTER TABLE leaderboard`).WillReturnError(&mysql.MySQLError{Number: 1060, Message: "Duplicate column name 'difficulty'"})
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.statistics`).
		WithArgs("leaderboard", "idx_leaderboard_difficulty_time").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`CREATE INDEX idx_leaderboard_difficulty_time ON leaderboard`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_EnsureSchema_MigrationFailureIsFatal(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	expectCreate(mock)
	expectColumnCount(mock, 0)
	mock.ExpectExec(`ALTER TABLE leaderboard`).WillReturnError(&mysql.MySQLError{Number: 1142, Message: "ALTER command denied"})

	err := store.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchema)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_EnsureSchema_CreateFailure(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leaderboard`).WillReturnError(errors.New("permission denied"))

	err := store.EnsureSchema(context.Background())
	assert.ErrorIs(t, err, core.ErrSchema)
	require.NoError(t, mock.ExpectationsWereMet())
}
