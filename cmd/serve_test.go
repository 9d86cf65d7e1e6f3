package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-research/internal/model"
	"github.com/sells-group/market-research/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.FileStore) {
	t.Helper()
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	srv := httptest.NewServer(newRouter(st))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Checkpoints(t *testing.T) {
	srv, st := newTestServer(t)

	resp, err := http.Get(srv.URL + "/checkpoints")
	require.NoError(t, err)
	var empty []store.CheckpointSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, empty)

	cp := model.NewCheckpoint("Secure_File_Transfer", 2)
	cp.Record(model.DomainCrawlResult{Domain: "https://a.example.com", TotalURLs: 4})
	require.NoError(t, st.SaveCheckpoint(context.Background(), "Secure_File_Transfer", cp))

	resp, err = http.Get(srv.URL + "/checkpoints")
	require.NoError(t, err)
	var list []store.CheckpointSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "Secure_File_Transfer", list[0].RunKey)
	assert.Equal(t, 1, list[0].CompletedDomains)
	assert.Equal(t, 2, list[0].TotalDomains)

	resp, err = http.Get(srv.URL + "/checkpoints/Secure_File_Transfer")
	require.NoError(t, err)
	var got model.Checkpoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 4, got.Results[0].TotalURLs)
}

func TestRouter_CheckpointNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/checkpoints/nope")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_CORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dashboard.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
