package assessment

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDataset is the built-in assessment used when no dataset file is
// configured.
func DefaultDataset() Dataset {
	return Dataset{
		DomainVision: {
			"object_recognition":    78,
			"visual_clarity":        72,
			"color_differentiation": 85,
			"scene_description":     68,
			"visual_tracking":       70,
		},
		DomainHearing: {
			"audio_recognition":     62,
			"sound_differentiation": 58,
			"speech_repetition":     68,
			"pronunciation_clarity": 65,
		},
		DomainCognitive: {
			"reaction_time":       78,
			"pattern_matching":    82,
			"memory_recall":       65,
			"comprehension_speed": 75,
		},
	}
}

// LoadDataset reads a dataset from a YAML (or JSON) file shaped as
// domain -> test -> score.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var data Dataset
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate checks that every required domain has at least one test and all
// scores are in range.
func (d Dataset) Validate() error {
	for _, domain := range Domains {
		if len(d[domain]) == 0 {
			return fmt.Errorf("dataset: %w: %s", ErrNoTests, domain)
		}
	}
	for domain, tests := range d {
		for test, score := range tests {
			if score < 0 || score > 100 {
				return fmt.Errorf("dataset: %s.%s score %v out of range", domain, test, score)
			}
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared data.
func (d Dataset) Clone() Dataset {
	clone := make(Dataset, len(d))
	for domain, tests := range d {
		clone[domain] = maps.Clone(tests)
	}
	return clone
}
