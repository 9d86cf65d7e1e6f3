package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-research/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_checkpoints (
	run_key           TEXT PRIMARY KEY,
	id                UUID NOT NULL,
	completed_domains INTEGER NOT NULL,
	total_domains     INTEGER NOT NULL,
	data              JSONB NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS research_checkpoint_domains (
	run_key  TEXT NOT NULL REFERENCES research_checkpoints(run_key) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	domain   TEXT NOT NULL,
	error    TEXT,
	PRIMARY KEY (run_key, position)
);

CREATE TABLE IF NOT EXISTS discovery_cache (
	domain     TEXT PRIMARY KEY,
	id         UUID NOT NULL,
	discovery  JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_discovery_cache_expires_at ON discovery_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveCheckpoint replaces the checkpoint and its per-domain index in one
// transaction.
func (s *PostgresStore) SaveCheckpoint(ctx context.Context, runKey string, cp *model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal checkpoint")
	}
	updated := cp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO research_checkpoints (run_key, id, completed_domains, total_domains, data, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_key) DO UPDATE SET
		   completed_domains = EXCLUDED.completed_domains,
		   total_domains = EXCLUDED.total_domains,
		   data = EXCLUDED.data,
		   updated_at = EXCLUDED.updated_at`,
		runKey, uuid.New().String(), cp.CompletedDomains, cp.TotalDomains, data, updated,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert checkpoint %s", runKey)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM research_checkpoint_domains WHERE run_key = $1`, runKey); err != nil {
		return eris.Wrapf(err, "postgres: clear checkpoint domains %s", runKey)
	}
	if len(cp.Results) > 0 {
		rows := make([][]any, 0, len(cp.Results))
		for i, r := range cp.Results {
			var errText *string
			if r.Error != "" {
				e := r.Error
				errText = &e
			}
			rows = append(rows, []any{runKey, i, r.Domain, errText})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"research_checkpoint_domains"},
			[]string{"run_key", "position", "domain", "error"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: copy checkpoint domains %s", runKey)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit checkpoint")
}

func (s *PostgresStore) LoadCheckpoint(ctx context.Context, runKey string) (*model.Checkpoint, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM research_checkpoints WHERE run_key = $1`, runKey,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: load checkpoint %s", runKey)
	}
	return decodeCheckpoint(runKey, data)
}

func (s *PostgresStore) ListCheckpoints(ctx context.Context) ([]CheckpointSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_key, completed_domains, total_domains, updated_at FROM research_checkpoints ORDER BY run_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list checkpoints")
	}
	defer rows.Close()

	var out []CheckpointSummary
	for rows.Next() {
		var cs CheckpointSummary
		if err := rows.Scan(&cs.RunKey, &cs.CompletedDomains, &cs.TotalDomains, &cs.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan checkpoint")
		}
		out = append(out, cs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate checkpoints")
}

func (s *PostgresStore) GetCachedDiscovery(ctx context.Context, domain string) (*model.Discovery, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT discovery FROM discovery_cache WHERE domain = $1 AND expires_at > now()`,
		domain,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached discovery")
	}
	var d model.Discovery
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached discovery")
	}
	return &d, nil
}

func (s *PostgresStore) SetCachedDiscovery(ctx context.Context, d model.Discovery, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal discovery")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_cache (domain, id, discovery, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (domain) DO UPDATE SET
		   discovery = EXCLUDED.discovery,
		   cached_at = EXCLUDED.cached_at,
		   expires_at = EXCLUDED.expires_at`,
		d.Domain, uuid.New().String(), data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached discovery")
}
