package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-research/internal/model"
)

func TestBuildJob_DefaultWithFlags(t *testing.T) {
	job, err := buildJob(context.Background(), researchFlags{
		landscape: "Data Rooms",
		urls:      []string{"https://a.example.com, https://b.example.com", "https://a.example.com"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Data Rooms", job.Landscape.Name)
	assert.Equal(t, "Secure file sharing systems", job.Landscape.Description)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, job.URLs)
	assert.Equal(t, []string{"Compliance", "Mobile App"}, job.FeatureNames())
}

func TestBuildJob_JobFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	doc := `landscape: Virtual Data Rooms
description: Deal room software
features:
  - name: SSO
    definition: Single sign-on support
urls:
  - https://vdr.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	job, err := buildJob(context.Background(), researchFlags{
		jobPath:     path,
		description: "Override",
		urls:        []string{"https://other.example.com"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Virtual Data Rooms", job.Landscape.Name)
	assert.Equal(t, "Override", job.Landscape.Description)
	assert.Equal(t, []string{"SSO"}, job.FeatureNames())
	assert.Equal(t, []string{"https://vdr.example.com", "https://other.example.com"}, job.URLs)
}

func TestBuildJob_NoURLs(t *testing.T) {
	_, err := buildJob(context.Background(), researchFlags{}, nil)
	assert.Error(t, err)
}

func TestBuildJob_MissingJobFile(t *testing.T) {
	_, err := buildJob(context.Background(), researchFlags{jobPath: filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	assert.Error(t, err)
}

func TestBuildJob_FeatureSource(t *testing.T) {
	source := func(context.Context) ([]model.FeatureSpec, error) {
		return []model.FeatureSpec{{Name: "Audit Log"}}, nil
	}
	job, err := buildJob(context.Background(), researchFlags{urls: []string{"https://a.example.com"}}, source)
	require.NoError(t, err)
	assert.Equal(t, []string{"Audit Log"}, job.FeatureNames())

	failing := func(context.Context) ([]model.FeatureSpec, error) {
		return nil, eris.New("notion down")
	}
	_, err = buildJob(context.Background(), researchFlags{urls: []string{"https://a.example.com"}}, failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load features")
}
