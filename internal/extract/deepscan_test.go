package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepScan(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{replies: map[string]string{
		"deep_scan": `{"has_government_mention": true, "analysis": "City of Springfield cut transfer times in half."}`,
	}}
	got := New(gen).DeepScan(context.Background(), "https://acme.com/case-studies/springfield", "Springfield case study")

	require.NotNil(t, got)
	assert.Equal(t, "https://acme.com/case-studies/springfield", got.URL)
	assert.True(t, got.HasGovernmentMention)
	assert.Equal(t, "City of Springfield cut transfer times in half.", got.Summary)
	assert.Equal(t, "YES", got.GovFlag())
}

func TestDeepScan_LimitsSummary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 40)
	gen := &fakeGen{replies: map[string]string{
		"deep_scan": `{"has_government_mention": false, "analysis": "` + long + `"}`,
	}}
	got := New(gen).DeepScan(context.Background(), "https://acme.com/cs", "text")

	require.NotNil(t, got)
	assert.False(t, got.HasGovernmentMention)
	assert.Len(t, strings.Fields(got.Summary), 25)
}

func TestDeepScan_NilOnFailure(t *testing.T) {
	t.Parallel()

	assert.Nil(t, New(&fakeGen{}).DeepScan(context.Background(), "https://acme.com/cs", ""))

	gen := &fakeGen{errs: map[string]error{"deep_scan": errors.New("down")}}
	assert.Nil(t, New(gen).DeepScan(context.Background(), "https://acme.com/cs", "text"))

	gen = &fakeGen{replies: map[string]string{"deep_scan": "not json"}}
	assert.Nil(t, New(gen).DeepScan(context.Background(), "https://acme.com/cs", "text"))
}
