// Package store persists crawl checkpoints and cached URL discovery.
package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/model"
)

// CheckpointSummary is the progress of one stored checkpoint.
type CheckpointSummary struct {
	RunKey           string    `json:"run_key"`
	CompletedDomains int       `json:"completed_domains"`
	TotalDomains     int       `json:"total_domains"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func summarize(runKey string, cp *model.Checkpoint) CheckpointSummary {
	return CheckpointSummary{
		RunKey:           runKey,
		CompletedDomains: cp.CompletedDomains,
		TotalDomains:     cp.TotalDomains,
		UpdatedAt:        cp.UpdatedAt,
	}
}

// Store defines the persistence interface for research runs.
type Store interface {
	// Checkpoints. Saves replace the whole checkpoint atomically.
	SaveCheckpoint(ctx context.Context, runKey string, cp *model.Checkpoint) error
	LoadCheckpoint(ctx context.Context, runKey string) (*model.Checkpoint, error)
	ListCheckpoints(ctx context.Context) ([]CheckpointSummary, error)

	// Discovery cache. Get returns nil, nil when nothing fresh is cached.
	GetCachedDiscovery(ctx context.Context, domain string) (*model.Discovery, error)
	SetCachedDiscovery(ctx context.Context, d model.Discovery, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "file":
		s, err = NewFile(cfg.Dir)
	case "sqlite":
		s, err = NewSQLite(filepath.Join(cfg.Dir, "research.db"))
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
