package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_key           TEXT PRIMARY KEY,
	id                TEXT NOT NULL,
	completed_domains INTEGER NOT NULL,
	total_domains     INTEGER NOT NULL,
	data              TEXT NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS discovery_cache (
	domain     TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	discovery  TEXT NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_discovery_cache_expires_at ON discovery_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, runKey string, cp *model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal checkpoint")
	}
	updated := cp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (run_key, id, completed_domains, total_domains, data, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_key) DO UPDATE SET
		   completed_domains = excluded.completed_domains,
		   total_domains = excluded.total_domains,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		runKey, uuid.New().String(), cp.CompletedDomains, cp.TotalDomains, string(data), updated,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save checkpoint %s", runKey)
	}
	return nil
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, runKey string) (*model.Checkpoint, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM checkpoints WHERE run_key = ?`, runKey,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: load checkpoint %s", runKey)
	}
	return decodeCheckpoint(runKey, []byte(data))
}

func (s *SQLiteStore) ListCheckpoints(ctx context.Context) ([]CheckpointSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_key, completed_domains, total_domains, updated_at FROM checkpoints ORDER BY run_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list checkpoints")
	}
	defer rows.Close() //nolint:errcheck

	var out []CheckpointSummary
	for rows.Next() {
		var cs CheckpointSummary
		if err := rows.Scan(&cs.RunKey, &cs.CompletedDomains, &cs.TotalDomains, &cs.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan checkpoint")
		}
		out = append(out, cs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate checkpoints")
}

func (s *SQLiteStore) GetCachedDiscovery(ctx context.Context, domain string) (*model.Discovery, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT discovery FROM discovery_cache WHERE domain = ? AND expires_at > ?`,
		domain, time.Now().Unix(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get cached discovery")
	}
	var d model.Discovery
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached discovery")
	}
	return &d, nil
}

func (s *SQLiteStore) SetCachedDiscovery(ctx context.Context, d model.Discovery, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal discovery")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_cache (domain, id, discovery, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
		   discovery = excluded.discovery,
		   cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		d.Domain, uuid.New().String(), string(data), now, now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set cached discovery")
}

func decodeCheckpoint(runKey string, data []byte) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, eris.Wrapf(err, "store: decode checkpoint %s", runKey)
	}
	if cp.RunKey == "" {
		cp.RunKey = runKey
	}
	return &cp, nil
}
