package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
landscape: Drone Autonomy
description: Autonomous flight stacks
features:
  - name: BVLOS
    definition: Beyond visual line of sight operations
    indicators: BVLOS waiver, Part 108
    exclusions: line of sight only
urls:
  - https://skyops.io
  - " https://skyops.io "
  - https://aerial.dev/product
`), 0o644))

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "Drone Autonomy", job.Landscape.Name)
	assert.Equal(t, "Drone_Autonomy", job.Landscape.RunKey())
	assert.Equal(t, "Autonomous flight stacks", job.Landscape.Description)
	require.Len(t, job.Features, 1)
	assert.Equal(t, "BVLOS", job.Features[0].Name)
	assert.Equal(t, "BVLOS waiver, Part 108", job.Features[0].YesIndicators)
	assert.Equal(t, "line of sight only", job.Features[0].NoIndicators)
	assert.Equal(t, []string{"https://skyops.io", "https://aerial.dev/product"}, job.URLs)
}

func TestLoadJob_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("urls: [https://acme.com]\n"), 0o644))

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "Secure File Transfer", job.Landscape.Name)
	assert.Equal(t, []string{"Compliance", "Mobile App"}, job.FeatureNames())
	assert.Equal(t, []string{"https://acme.com"}, job.URLs)
}

func TestLoadJob_Errors(t *testing.T) {
	_, err := LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseJob([]byte("features: [{definition: nameless}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature 1 has no name")

	_, err = ParseJob([]byte("landscape: [unclosed"))
	assert.Error(t, err)
}

func TestDefaultJob_Independent(t *testing.T) {
	a := DefaultJob()
	a.Features[0].Name = "changed"
	assert.Equal(t, "Compliance", DefaultJob().Features[0].Name)
}

func TestSplitURLs(t *testing.T) {
	got := SplitURLs("https://a.com, https://b.com  https://a.com,,https://c.com")
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, got)
	assert.Empty(t, SplitURLs("  "))
}
