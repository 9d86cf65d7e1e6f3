// Package registry loads research jobs and feature rubrics.
package registry

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-research/internal/model"
)

// jobFile is the on-disk shape of a job.
//
//	landscape: Secure File Transfer
//	description: Secure file sharing systems
//	features:
//	  - name: Mobile App
//	    definition: Availability of iOS/Android apps
//	    indicators: App Store, Play Store
//	    exclusions: web-only
//	urls:
//	  - https://example.com
type jobFile struct {
	Landscape   string        `yaml:"landscape"`
	Description string        `yaml:"description"`
	Features    []featureFile `yaml:"features"`
	URLs        []string      `yaml:"urls"`
}

type featureFile struct {
	Name       string `yaml:"name"`
	Definition string `yaml:"definition"`
	Indicators string `yaml:"indicators"`
	Exclusions string `yaml:"exclusions"`
}

// DefaultJob returns the job used when nothing else is supplied.
func DefaultJob() *model.Job {
	return &model.Job{
		Landscape: model.Landscape{
			Name:        "Secure File Transfer",
			Description: "Secure file sharing systems",
		},
		Features: []model.FeatureSpec{
			{
				Name:          "Compliance",
				Definition:    "Security standards",
				YesIndicators: "SOC2, ISO, HIPAA",
			},
			{
				Name:          "Mobile App",
				Definition:    "Availability of iOS/Android apps",
				YesIndicators: "App Store, Play Store",
				NoIndicators:  "web-only",
			},
		},
	}
}

// LoadJob reads a YAML job file. Missing landscape, description or
// features are filled from DefaultJob.
func LoadJob(path string) (*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read job %s", path)
	}
	return ParseJob(data)
}

// ParseJob decodes a YAML job document.
func ParseJob(data []byte) (*model.Job, error) {
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "registry: decode job")
	}

	job := DefaultJob()
	if name := strings.TrimSpace(f.Landscape); name != "" {
		job.Landscape.Name = name
	}
	if desc := strings.TrimSpace(f.Description); desc != "" {
		job.Landscape.Description = desc
	}

	if len(f.Features) > 0 {
		job.Features = job.Features[:0]
		for i, ff := range f.Features {
			name := strings.TrimSpace(ff.Name)
			if name == "" {
				return nil, eris.Errorf("registry: feature %d has no name", i+1)
			}
			job.Features = append(job.Features, model.FeatureSpec{
				Name:          name,
				Definition:    strings.TrimSpace(ff.Definition),
				YesIndicators: strings.TrimSpace(ff.Indicators),
				NoIndicators:  strings.TrimSpace(ff.Exclusions),
			})
		}
	}

	job.URLs = CleanURLs(f.URLs)
	return job, nil
}

// SplitURLs splits a comma or whitespace separated list.
func SplitURLs(s string) []string {
	return CleanURLs(strings.Fields(strings.ReplaceAll(s, ",", " ")))
}

// CleanURLs trims entries, drops empties and removes duplicates while
// keeping first-seen order.
func CleanURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
