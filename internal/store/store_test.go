package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/model"
)

func sampleCheckpoint() *model.Checkpoint {
	cp := model.NewCheckpoint("Secure_File_Transfer", 3)
	cp.Record(model.DomainCrawlResult{
		Domain:           "https://acme.com",
		TotalURLs:        42,
		Source:           model.SourceSitemap,
		CaseStudiesFound: 2,
		PricingFound:     1,
		CaseStudies: []model.CaseStudyAnalysis{
			{URL: "https://acme.com/case-studies/city", HasGovernmentMention: true, Summary: "City moved files.", GovernmentURL: true},
		},
		Pricing: []model.PricingRecord{{URL: "https://acme.com/pricing", Model: "Tiered pricing", StartingPrice: "$10/mo"}},
	})
	cp.Record(model.DomainCrawlResult{Domain: "https://globex.io", Error: "panic: boom"})
	return cp
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	missing, err := s.LoadCheckpoint(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cp := sampleCheckpoint()
	require.NoError(t, s.SaveCheckpoint(ctx, "Secure_File_Transfer", cp))

	got, err := s.LoadCheckpoint(ctx, "Secure_File_Transfer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.CompletedDomains)
	assert.Equal(t, 3, got.TotalDomains)
	require.Len(t, got.Results, 2)
	assert.Equal(t, cp.Results[0].CaseStudies, got.Results[0].CaseStudies)
	assert.Equal(t, "panic: boom", got.Results[1].Error)
	assert.True(t, got.Has("https://globex.io"))

	// Overwrite with progress.
	got.Record(model.DomainCrawlResult{Domain: "https://initech.com"})
	require.NoError(t, s.SaveCheckpoint(ctx, "Secure_File_Transfer", got))
	again, err := s.LoadCheckpoint(ctx, "Secure_File_Transfer")
	require.NoError(t, err)
	assert.Equal(t, 3, again.CompletedDomains)
	assert.True(t, again.Done())

	require.NoError(t, s.SaveCheckpoint(ctx, "Other", model.NewCheckpoint("Other", 5)))
	list, err := s.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Other", list[0].RunKey)
	assert.Equal(t, 5, list[0].TotalDomains)
	assert.Equal(t, "Secure_File_Transfer", list[1].RunKey)
	assert.Equal(t, 3, list[1].CompletedDomains)

	// Discovery cache.
	none, err := s.GetCachedDiscovery(ctx, "https://acme.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	d := model.Discovery{Domain: "https://acme.com", URLs: []string{"https://acme.com/pricing"}, Source: model.SourceSitemap}
	require.NoError(t, s.SetCachedDiscovery(ctx, d, time.Hour))
	cached, err := s.GetCachedDiscovery(ctx, "https://acme.com")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, d, *cached)

	require.NoError(t, s.SetCachedDiscovery(ctx, model.Discovery{Domain: "https://old.com", Source: model.SourceNone}, -time.Minute))
	expired, err := s.GetCachedDiscovery(ctx, "https://old.com")
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, s.Close())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)
	storeContract(t, s)

	_, err = os.Stat(filepath.Join(dir, "Secure_File_Transfer_checkpoint.json"))
	assert.NoError(t, err)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStore_CorruptCheckpoint(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.CheckpointPath("bad"), []byte("{not json"), 0o644))

	_, err = s.LoadCheckpoint(context.Background(), "bad")
	assert.Error(t, err)

	// Corrupt files are skipped when listing.
	list, err := s.ListCheckpoints(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStore_UnsafeRunKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(filepath.Join(dir, "store"))
	require.NoError(t, err)
	ctx := context.Background()

	err = s.SaveCheckpoint(ctx, "../outside", sampleCheckpoint())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "outside_checkpoint.json"))

	assert.Error(t, s.SaveCheckpoint(ctx, "CI/CD_Tools", sampleCheckpoint()))

	cp, err := s.LoadCheckpoint(ctx, "../outside")
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	list, err := s.ListCheckpoints(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	storeContract(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.StoreConfig{Driver: "file", Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	_, err = os.Stat(filepath.Join(dir, ".cache"))
	assert.NoError(t, err)

	s, err = Open(ctx, config.StoreConfig{Driver: "sqlite", Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
