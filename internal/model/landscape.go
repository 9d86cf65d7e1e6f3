package model

import "strings"

// Landscape is the market segment a research run is scoped to.
type Landscape struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// RunKey returns the identifier used to name outputs and checkpoints.
// It is safe to use as a file name.
func (l Landscape) RunKey() string {
	key := strings.TrimSpace(l.Name)
	if key == "" {
		return "research"
	}
	return SanitizeRunKey(key)
}

// SanitizeRunKey maps every character outside [A-Za-z0-9_-] to '_'.
func SanitizeRunKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}

// FeatureSpec is one rubric entry the feature phase checks for.
type FeatureSpec struct {
	Name          string `json:"name" yaml:"name"`
	Definition    string `json:"definition" yaml:"definition"`
	YesIndicators string `json:"yes_indicators" yaml:"yes_indicators"`
	NoIndicators  string `json:"no_indicators" yaml:"no_indicators"`
}

// Job is a complete research request.
type Job struct {
	Landscape Landscape     `json:"landscape" yaml:"landscape"`
	Features  []FeatureSpec `json:"features" yaml:"features"`
	URLs      []string      `json:"urls" yaml:"urls"`
}

// FeatureNames returns the feature names in rubric order.
func (j *Job) FeatureNames() []string {
	names := make([]string, 0, len(j.Features))
	for _, f := range j.Features {
		names = append(names, f.Name)
	}
	return names
}

// Phase names a stage of a research run.
type Phase string

const (
	PhaseFeatures Phase = "features"
	PhaseProducts Phase = "products"
	PhaseCrawl    Phase = "crawl"
)

// AllPhases returns every phase in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseFeatures, PhaseProducts, PhaseCrawl}
}

// ParsePhases parses a comma-separated phase list. Unknown names are
// returned in the second value.
func ParsePhases(s string) ([]Phase, []string) {
	if strings.TrimSpace(s) == "" {
		return AllPhases(), nil
	}
	want := make(map[Phase]bool)
	var unknown []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		switch Phase(p) {
		case PhaseFeatures, PhaseProducts, PhaseCrawl:
			want[Phase(p)] = true
		default:
			unknown = append(unknown, p)
		}
	}
	var phases []Phase
	for _, p := range AllPhases() {
		if want[p] {
			phases = append(phases, p)
		}
	}
	return phases, unknown
}
