package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"minesweeper/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" yaml:"addr" env:"ADDR"`
	Password     string        `json:"password,omitempty" yaml:"password,omitempty" env:"PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"DB"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		KeyPrefix:    "leaderboard",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements engine.Storage using Redis as the backend.
// Data structure:
// - {prefix}:seq -> int64 id counter
// - {prefix}:entry:{id} -> JSON of core.Entry
// - {prefix}:board:{difficulty} -> sorted set, score = time_seconds, member = zero-padded id
type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: failed to connect to Redis: %w", core.ErrConnection, err)
	}

	return newStore(client, config.KeyPrefix), nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return newStore(client, DefaultConfig().KeyPrefix)
}

func newStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Store{client: client, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) seqKey() string { return s.prefix + ":seq" }

func (s *Store) entryKey(id int64) string { return fmt.Sprintf("%s:entry:%d", s.prefix, id) }

func (s *Store) boardKey(d core.Difficulty) string { return fmt.Sprintf("%s:board:%s", s.prefix, d) }

// rankMember zero-pads ids so equal times order by id under ZRANGE's
// lexicographic tie-break.
func rankMember(id int64) string { return fmt.Sprintf("%020d", id) }

// AddEntry allocates an id and writes the entry and its rank in one MULTI/EXEC.
func (s *Store) AddEntry(ctx context.Context, name string, timeSeconds int, difficulty core.Difficulty) (core.Entry, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: allocate id: %w", core.ErrQuery, err)
	}
	e := core.Entry{
		ID:          id,
		PlayerName:  name,
		TimeSeconds: timeSeconds,
		Difficulty:  difficulty,
		CreatedAt:   s.now().Truncate(time.Second),
	}
	data, err := json.Marshal(e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: encode entry: %w", core.ErrQuery, err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.entryKey(id), data, 0)
		p.ZAdd(ctx, s.boardKey(difficulty), redis.Z{Score: float64(timeSeconds), Member: rankMember(id)})
		return nil
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: add entry: %w", core.ErrQuery, err)
	}
	return e, nil
}

// GetLeaderboard reads the first limit members of the difficulty's sorted set.
func (s *Store) GetLeaderboard(ctx context.Context, limit int, difficulty core.Difficulty) ([]core.Entry, error) {
	if limit <= 0 {
		return []core.Entry{}, nil
	}
	members, err := s.client.ZRange(ctx, s.boardKey(difficulty), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read ranking: %w", core.ErrQuery, err)
	}
	if len(members) == 0 {
		return []core.Entry{}, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad ranking member %q", core.ErrQuery, m)
		}
		keys = append(keys, s.entryKey(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read entries: %w", core.ErrQuery, err)
	}

	out := make([]core.Entry, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // ranked but entry missing
		}
		var e core.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("%w: decode entry: %w", core.ErrQuery, err)
		}
		out = append(out, e)
	}
	return out, nil
}
