package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuckets_IsGovernment(t *testing.T) {
	t.Parallel()

	b := Buckets{
		CaseStudies: []string{"https://a.com/case-studies/city-of-x", "https://a.com/case-studies/acme"},
		Government:  []string{"https://a.com/case-studies/city-of-x"},
	}

	assert.True(t, b.IsGovernment("https://a.com/case-studies/city-of-x"))
	assert.False(t, b.IsGovernment("https://a.com/case-studies/acme"))
	assert.False(t, Buckets{}.IsGovernment("https://a.com"))
}
