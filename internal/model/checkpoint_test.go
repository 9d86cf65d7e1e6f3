package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckpoint_Record(t *testing.T) {
	t.Parallel()

	cp := NewCheckpoint("Secure_File_Transfer", 2)
	assert.Equal(t, 0, cp.CompletedDomains)
	assert.False(t, cp.Done())

	cp.Record(DomainCrawlResult{Domain: "https://a.com", TotalURLs: 3})
	assert.Equal(t, 1, cp.CompletedDomains)
	assert.True(t, cp.Has("https://a.com"))
	assert.False(t, cp.Has("https://b.com"))

	cp.Record(DomainCrawlResult{Domain: "https://b.com", Error: "boom"})
	assert.Equal(t, 2, cp.CompletedDomains)
	assert.Len(t, cp.Results, 2)
	assert.True(t, cp.Results[1].Failed())
	assert.True(t, cp.Done())
	assert.False(t, cp.UpdatedAt.IsZero())
}

func TestLandscape_RunKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Secure_File_Transfer", Landscape{Name: "Secure File Transfer"}.RunKey())
	assert.Equal(t, "research", Landscape{}.RunKey())
	assert.Equal(t, "research", Landscape{Name: "   "}.RunKey())
	assert.Equal(t, "CI_CD_Tools", Landscape{Name: "CI/CD Tools"}.RunKey())
	assert.Equal(t, "______etc", Landscape{Name: "../../etc"}.RunKey())
	assert.Equal(t, "A_B_-_Q1_2025", Landscape{Name: "A&B - Q1.2025"}.RunKey())
	assert.Equal(t, "Caf__Tools", Landscape{Name: "Café Tools"}.RunKey())
}

func TestParsePhases(t *testing.T) {
	t.Parallel()

	phases, unknown := ParsePhases("")
	assert.Equal(t, AllPhases(), phases)
	assert.Empty(t, unknown)

	phases, unknown = ParsePhases("crawl, features,bogus")
	assert.Equal(t, []Phase{PhaseFeatures, PhaseCrawl}, phases)
	assert.Equal(t, []string{"bogus"}, unknown)
}

func TestJob_FeatureNames(t *testing.T) {
	t.Parallel()

	j := &Job{Features: []FeatureSpec{{Name: "Compliance"}, {Name: "Mobile App"}}}
	assert.Equal(t, []string{"Compliance", "Mobile App"}, j.FeatureNames())
}
