// Package sqlx persists leaderboard entries in a relational database through
// jmoiron/sqlx. All queries use bound parameters and run on the database/sql
// connection pool, so one handle is never shared by two requests at once.
package sqlx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"minesweeper/core"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverPgx      Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

func init() {
	// modernc registers "sqlite", which sqlx does not know as a ? driver.
	sqlx.BindDriver(string(DriverSQLite), sqlx.QUESTION)
}

// Config holds SQL connection configuration. When DSN is empty it is built
// from the discrete connection fields.
type Config struct {
	Driver          Driver        `json:"driver" yaml:"driver" env:"DRIVER"`
	DSN             string        `json:"dsn,omitempty" yaml:"dsn,omitempty" env:"DSN"`
	Host            string        `json:"host" yaml:"host" env:"HOST"`
	Port            int           `json:"port" yaml:"port" env:"PORT"`
	User            string        `json:"user" yaml:"user" env:"USER"`
	Password        string        `json:"password,omitempty" yaml:"password,omitempty" env:"PASSWORD"`
	Database        string        `json:"database" yaml:"database" env:"DATABASE"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	QueryTimeout    time.Duration `json:"query_timeout" yaml:"query_timeout" env:"QUERY_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		Host:            "localhost",
		User:            "minesweeper",
		Database:        "minesweeper",
		MaxOpenConns:    16,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
		QueryTimeout:    3 * time.Second,
	}
	switch driver {
	case DriverMySQL:
		cfg.Port = 3306
	case DriverPostgres, DriverPgx:
		cfg.Port = 5432
	case DriverSQLite:
		cfg.Host = ""
		cfg.User = ""
		cfg.Database = "minesweeper.db"
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	return cfg
}

// Validate checks the driver and connection settings.
func (c Config) Validate() error {
	var errs []string
	switch c.Driver {
	case DriverMySQL, DriverPostgres, DriverPgx, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("driver must be one of: %s, %s, %s, %s", DriverMySQL, DriverPostgres, DriverPgx, DriverSQLite))
	}
	if c.DSN == "" && c.Database == "" {
		errs = append(errs, "dsn or database is required")
	}
	if c.DSN == "" && c.Driver != DriverSQLite && c.Host == "" {
		errs = append(errs, "dsn or host is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		errs = append(errs, "pool sizes cannot be negative")
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, "query_timeout must be positive")
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, "connect_timeout must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// DataSourceName returns the driver-specific connection string. A zero Port
// falls back to the driver's default.
func (c Config) DataSourceName() (string, error) {
	if c.Port == 0 {
		c.Port = DefaultConfig(c.Driver).Port
	}
	switch c.Driver {
	case DriverMySQL:
		var mc *mysql.Config
		if c.DSN != "" {
			parsed, err := mysql.ParseDSN(c.DSN)
			if err != nil {
				return "", fmt.Errorf("parse mysql dsn: %w", err)
			}
			mc = parsed
		} else {
			mc = mysql.NewConfig()
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
			mc.User = c.User
			mc.Passwd = c.Password
			mc.DBName = c.Database
			mc.Timeout = c.ConnectTimeout
		}
		// created_at is scanned into time.Time
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case DriverPostgres, DriverPgx:
		if c.DSN != "" {
			return c.DSN, nil
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:   "/" + c.Database,
		}
		q := url.Values{}
		q.Set("sslmode", "disable")
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
		u.RawQuery = q.Encode()
		return u.String(), nil
	case DriverSQLite:
		if c.DSN != "" {
			return c.DSN, nil
		}
		return "file:" + c.Database + "?_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

// Store implements engine.Storage on a SQL database.
type Store struct {
	db           *sqlx.DB
	driver       Driver
	queryTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for schema and query diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueryTimeout bounds every statement issued by the store.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New opens the connection pool, verifies connectivity and ensures the schema.
// Connectivity failures wrap core.ErrConnection; schema failures wrap
// core.ErrSchema. Both are meant to abort startup.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sql config: %w", err)
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	db, err := sqlx.Open(string(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrConnection, cfg.Driver, err)
	}
	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == DriverSQLite {
		// single writer
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", core.ErrConnection, cfg.Driver, err)
	}

	opts = append([]Option{WithQueryTimeout(cfg.QueryTimeout)}, opts...)
	s := NewWithDB(db, cfg.Driver, opts...)
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), cfg.ConnectTimeout+cfg.QueryTimeout)
	defer cancelSchema()
	if err := s.EnsureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing pool. The schema is not touched; call
// EnsureSchema when needed.
func NewWithDB(db *sqlx.DB, driver Driver, opts ...Option) *Store {
	s := &Store{
		db:           db,
		driver:       driver,
		queryTimeout: 3 * time.Second,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that a pooled connection can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Store) returnsID() bool {
	return s.driver == DriverPostgres || s.driver == DriverPgx
}

type entryRow struct {
	ID          int64     `db:"id"`
	PlayerName  string    `db:"player_name"`
	TimeSeconds int       `db:"time_seconds"`
	Difficulty  string    `db:"difficulty"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r entryRow) entry() core.Entry {
	return core.Entry{
		ID:          r.ID,
		PlayerName:  r.PlayerName,
		TimeSeconds: r.TimeSeconds,
		Difficulty:  core.Difficulty(r.Difficulty),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const selectLeaderboard = `SELECT id, player_name, time_seconds, difficulty, created_at FROM leaderboard
WHERE difficulty = ? ORDER BY time_seconds ASC, id ASC LIMIT ?`

// GetLeaderboard returns at most limit entries of difficulty, fastest first.
func (s *Store) GetLeaderboard(ctx context.Context, limit int, difficulty core.Difficulty) ([]core.Entry, error) {
	if limit <= 0 {
		return []core.Entry{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(selectLeaderboard), string(difficulty), limit); err != nil {
		return nil, fmt.Errorf("%w: select leaderboard: %w", core.ErrQuery, err)
	}
	out := make([]core.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

const insertEntry = `INSERT INTO leaderboard (player_name, time_seconds, difficulty, created_at) VALUES (?, ?, ?, ?)`

// AddEntry inserts one row in a single statement and returns it with the
// assigned id.
func (s *Store) AddEntry(ctx context.Context, name string, timeSeconds int, difficulty core.Difficulty) (core.Entry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created := s.now().UTC().Truncate(time.Second)
	e := core.Entry{PlayerName: name, TimeSeconds: timeSeconds, Difficulty: difficulty, CreatedAt: created}

	if s.returnsID() {
		q := s.db.Rebind(insertEntry + " RETURNING id")
		if err := s.db.QueryRowxContext(ctx, q, name, timeSeconds, string(difficulty), created).Scan(&e.ID); err != nil {
			return core.Entry{}, fmt.Errorf("%w: insert entry: %w", core.ErrQuery, err)
		}
		return e, nil
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(insertEntry), name, timeSeconds, string(difficulty), created)
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: insert entry: %w", core.ErrQuery, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: last insert id: %w", core.ErrQuery, err)
	}
	e.ID = id
	return e, nil
}
