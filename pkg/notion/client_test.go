package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

type stubQuerier struct {
	ids  []notionapi.DatabaseID
	resp *notionapi.DatabaseQueryResponse
	err  error
}

func (s *stubQuerier) Query(_ context.Context, id notionapi.DatabaseID, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	s.ids = append(s.ids, id)
	return s.resp, s.err
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestNewClientReturnsClient(t *testing.T) {
	c := NewClient("test-token")
	assert.NotNil(t, c)
}

func TestQueryDatabase(t *testing.T) {
	q := &stubQuerier{resp: &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "page-1"}}}}
	c := NewClient("tok", withQuerier(q), WithRateLimit(0))

	resp, err := c.QueryDatabase(context.Background(), "db-123", &notionapi.DatabaseQueryRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, []notionapi.DatabaseID{"db-123"}, q.ids)
}

func TestQueryDatabaseError(t *testing.T) {
	q := &stubQuerier{err: assert.AnError}
	c := NewClient("tok", withQuerier(q), WithRateLimit(0))

	resp, err := c.QueryDatabase(context.Background(), "db-err", &notionapi.DatabaseQueryRequest{})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "notion: query database db-err")
}

func TestQueryDatabase_RateLimitHonoursContext(t *testing.T) {
	q := &stubQuerier{resp: &notionapi.DatabaseQueryResponse{}}
	c := NewClient("tok", withQuerier(q), WithRateLimit(0.001))

	// The first call consumes the single burst token.
	_, err := c.QueryDatabase(context.Background(), "db", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.QueryDatabase(ctx, "db", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
	assert.Len(t, q.ids, 1)
}
