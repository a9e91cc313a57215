package loader

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bbernstein/ledscene-go/internal/engine"
)

type dissolveDoc struct {
	Patterns map[string][][4]int `json:"dissolve_patterns" yaml:"dissolve_patterns"`
}

// LoadDissolveBundle parses a JSON dissolve document (§6) into a
// pattern-id -> DissolvePattern map. Band-level edge cases (duration<=0,
// out-of-range start/end) are left for the dissolve engine to clip at
// render time (§4.5); only structural issues — a non-numeric or
// negative pattern id — are rejected here.
func LoadDissolveBundle(data []byte) (map[int]engine.DissolvePattern, error) {
	var doc dissolveDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("loader: decode dissolve json: %w", err)
	}
	return buildDissolveBundle(doc)
}

// LoadDissolveBundleYAML is LoadDissolveBundle's YAML counterpart.
func LoadDissolveBundleYAML(data []byte) (map[int]engine.DissolvePattern, error) {
	var doc dissolveDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("loader: decode dissolve yaml: %w", err)
	}
	return buildDissolveBundle(doc)
}

func buildDissolveBundle(doc dissolveDoc) (map[int]engine.DissolvePattern, error) {
	var issues []string
	out := make(map[int]engine.DissolvePattern, len(doc.Patterns))

	for key, bands := range doc.Patterns {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 {
			issues = append(issues, fmt.Sprintf("pattern id %q must be a non-negative integer", key))
			continue
		}

		pattern := engine.DissolvePattern{Bands: make([]engine.DissolveBand, 0, len(bands))}
		for _, b := range bands {
			start, end := b[2], b[3]
			if start > end {
				start, end = end, start
			}
			pattern.Bands = append(pattern.Bands, engine.DissolveBand{
				DelayMs:    b[0],
				DurationMs: b[1],
				StartLED:   start,
				EndLED:     end,
			})
		}
		out[id] = pattern
	}

	if len(issues) > 0 {
		return out, &ValidationError{Issues: issues}
	}
	return out, nil
}
