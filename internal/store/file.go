package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-research/internal/model"
)

const checkpointSuffix = "_checkpoint.json"

// FileStore keeps checkpoints as JSON files named <runKey>_checkpoint.json
// and cached discoveries under <dir>/.cache.
type FileStore struct {
	dir string
}

// NewFile creates a FileStore rooted at dir.
func NewFile(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}, nil
}

// CheckpointPath returns the file a run's checkpoint is written to.
func (s *FileStore) CheckpointPath(runKey string) string {
	return filepath.Join(s.dir, runKey+checkpointSuffix)
}

func (s *FileStore) cacheDir() string {
	return filepath.Join(s.dir, ".cache")
}

func (s *FileStore) Migrate(_ context.Context) error {
	if err := os.MkdirAll(s.cacheDir(), 0o755); err != nil {
		return eris.Wrap(err, "file: create dirs")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// safeRunKey reports whether runKey maps to a file directly under dir.
func safeRunKey(runKey string) bool {
	return runKey != "" && model.SanitizeRunKey(runKey) == runKey
}

func (s *FileStore) SaveCheckpoint(_ context.Context, runKey string, cp *model.Checkpoint) error {
	if !safeRunKey(runKey) {
		return eris.Errorf("file: invalid run key %q", runKey)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return eris.Wrap(err, "file: marshal checkpoint")
	}
	return writeAtomic(s.CheckpointPath(runKey), data)
}

func (s *FileStore) LoadCheckpoint(_ context.Context, runKey string) (*model.Checkpoint, error) {
	if !safeRunKey(runKey) {
		return nil, nil
	}
	data, err := os.ReadFile(s.CheckpointPath(runKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "file: read checkpoint %s", runKey)
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, eris.Wrapf(err, "file: decode checkpoint %s", runKey)
	}
	if cp.RunKey == "" {
		cp.RunKey = runKey
	}
	return &cp, nil
}

func (s *FileStore) ListCheckpoints(ctx context.Context) ([]CheckpointSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "file: list checkpoints")
	}

	var out []CheckpointSummary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, checkpointSuffix) {
			continue
		}
		runKey := strings.TrimSuffix(name, checkpointSuffix)
		cp, err := s.LoadCheckpoint(ctx, runKey)
		if err != nil || cp == nil {
			continue
		}
		out = append(out, summarize(runKey, cp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunKey < out[j].RunKey })
	return out, nil
}

func (s *FileStore) cachePath(domain string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(domain)))
	return filepath.Join(s.cacheDir(), hex.EncodeToString(sum[:8])+".json")
}

func (s *FileStore) GetCachedDiscovery(_ context.Context, domain string) (*model.Discovery, error) {
	data, err := os.ReadFile(s.cachePath(domain))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "file: read cached discovery")
	}
	var entry model.DiscoveryCache
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, eris.Wrap(err, "file: decode cached discovery")
	}
	if !time.Now().UTC().Before(entry.ExpiresAt) {
		return nil, nil
	}
	return &entry.Discovery, nil
}

func (s *FileStore) SetCachedDiscovery(_ context.Context, d model.Discovery, ttl time.Duration) error {
	now := time.Now().UTC()
	entry := model.DiscoveryCache{
		ID:        uuid.New().String(),
		Domain:    d.Domain,
		Discovery: d,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "file: marshal cached discovery")
	}
	if err := os.MkdirAll(s.cacheDir(), 0o755); err != nil {
		return eris.Wrap(err, "file: create cache dir")
	}
	return writeAtomic(s.cachePath(d.Domain), data)
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "file: create dir")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "file: create temp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "file: write temp")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "file: sync temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "file: close temp")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrap(err, "file: rename")
	}
	return nil
}
