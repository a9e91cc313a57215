// Package loader parses scene and dissolve bundle documents (§6) into
// the engine's in-memory model, accumulating and reporting every
// rejected entity rather than failing on the first bad one — grounded
// on the teacher's ofl.Loader, which tracks per-fixture import failures
// in a structured ImportStatus instead of aborting the whole import.
package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bbernstein/ledscene-go/internal/engine"
)

const (
	defaultLEDCount = 225
	defaultFPS      = 60
)

// Defaults backstops a scene document that omits led_count/fps (§6). A
// zero field falls back to this package's own default (225 LEDs, 60fps)
// rather than zeroing out the scene.
type Defaults struct {
	LEDCount int
	FPS      int
}

func (d Defaults) ledCount() int {
	if d.LEDCount <= 0 {
		return defaultLEDCount
	}
	return d.LEDCount
}

func (d Defaults) fps() int {
	if d.FPS <= 0 {
		return defaultFPS
	}
	return d.FPS
}

// ValidationError reports every scene/segment rejected while loading a
// bundle. A bundle with at least one valid scene still loads; a bundle
// with none is a LoadFailure (§7) and the caller should keep the
// previous state intact.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d issue(s): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

type jsonSegment struct {
	SegmentID       int             `json:"segment_id" yaml:"segment_id"`
	Color           []int           `json:"color" yaml:"color"`
	Transparency    []float64       `json:"transparency" yaml:"transparency"`
	Length          []int           `json:"length" yaml:"length"`
	MoveSpeed       float64         `json:"move_speed" yaml:"move_speed"`
	MoveRange       [2]int          `json:"move_range" yaml:"move_range"`
	CurrentPosition int             `json:"current_position" yaml:"current_position"`
	IsEdgeReflect   bool            `json:"is_edge_reflect" yaml:"is_edge_reflect"`
	DimmerTime      json.RawMessage `json:"dimmer_time" yaml:"dimmer_time"`
}

type jsonEffect struct {
	EffectID int           `json:"effect_id" yaml:"effect_id"`
	Segments []jsonSegment `json:"segments" yaml:"segments"`
}

type jsonScene struct {
	SceneID          int          `json:"scene_id" yaml:"scene_id"`
	LEDCount         int          `json:"led_count" yaml:"led_count"`
	FPS              int          `json:"fps" yaml:"fps"`
	CurrentEffectID  int          `json:"current_effect_id" yaml:"current_effect_id"`
	CurrentPaletteID int          `json:"current_palette_id" yaml:"current_palette_id"`
	Palettes         [][6][3]int  `json:"palettes" yaml:"palettes"`
	Effects          []jsonEffect `json:"effects" yaml:"effects"`
}

type jsonBundle struct {
	Scenes []jsonScene `json:"scenes" yaml:"scenes"`
}

// LoadSceneBundle parses a JSON scene document (§6) into an engine
// bundle, validating §3's invariants per segment. defaults backstops any
// scene that omits led_count/fps.
func LoadSceneBundle(data []byte, defaults Defaults) (*engine.Bundle, error) {
	var doc jsonBundle
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("loader: decode scene json: %w", err)
	}
	return buildBundle(doc, defaults)
}

// LoadSceneBundleYAML parses a YAML scene document in the same shape as
// LoadSceneBundle's JSON, since this repo's own loader treats the two
// authoring formats as interchangeable (consistent with the teacher's
// OFL fixture ecosystem).
func LoadSceneBundleYAML(data []byte, defaults Defaults) (*engine.Bundle, error) {
	// Re-encode as JSON so dimmer_time reaches parseDimmerTime as raw
	// JSON in either of its accepted forms.
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("loader: decode scene yaml: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("loader: decode scene yaml: %w", err)
	}
	return LoadSceneBundle(asJSON, defaults)
}

func buildBundle(doc jsonBundle, defaults Defaults) (*engine.Bundle, error) {
	var issues []string
	var scenes []*engine.Scene

	for si, js := range doc.Scenes {
		sc, sceneIssues := buildScene(js, defaults)
		if len(sceneIssues) > 0 {
			for _, issue := range sceneIssues {
				issues = append(issues, fmt.Sprintf("scene[%d] id=%d: %s", si, js.SceneID, issue))
			}
			continue
		}
		scenes = append(scenes, sc)
	}

	if len(scenes) == 0 {
		issues = append(issues, "no valid scenes in bundle")
		return nil, &ValidationError{Issues: issues}
	}

	var err error
	if len(issues) > 0 {
		err = &ValidationError{Issues: issues}
	}
	return &engine.Bundle{Scenes: scenes}, err
}

func buildScene(js jsonScene, defaults Defaults) (*engine.Scene, []string) {
	var issues []string

	ledCount := js.LEDCount
	if ledCount == 0 {
		ledCount = defaults.ledCount()
	} else if ledCount < 0 {
		issues = append(issues, "negative led_count")
	}

	fps := js.FPS
	if fps == 0 {
		fps = defaults.fps()
	} else if fps < 0 {
		issues = append(issues, "negative fps")
	}

	if len(issues) > 0 {
		return nil, issues
	}

	palettes := make([]engine.Palette, 0, len(js.Palettes))
	for _, jp := range js.Palettes {
		var p engine.Palette
		for i, rgb := range jp {
			p.SetColor(i, rgb[0], rgb[1], rgb[2])
		}
		palettes = append(palettes, p)
	}
	if len(palettes) == 0 {
		palettes = []engine.Palette{engine.BlackPalette}
	}

	effects := make([]engine.Effect, 0, len(js.Effects))
	for ei, je := range js.Effects {
		segs := make([]*engine.Segment, 0, len(je.Segments))
		for gi, jg := range je.Segments {
			seg, segIssues := buildSegment(jg)
			if len(segIssues) > 0 {
				for _, issue := range segIssues {
					issues = append(issues, fmt.Sprintf("effect[%d]/segment[%d]: %s", ei, gi, issue))
				}
				continue
			}
			segs = append(segs, seg)
		}
		effects = append(effects, engine.Effect{ID: je.EffectID, Segments: segs})
	}

	if len(issues) > 0 {
		return nil, issues
	}

	return &engine.Scene{
		ID:               js.SceneID,
		LEDCount:         ledCount,
		FPS:              fps,
		CurrentEffectID:  js.CurrentEffectID,
		CurrentPaletteID: js.CurrentPaletteID,
		Palettes:         palettes,
		Effects:          effects,
	}, nil
}

func buildSegment(jg jsonSegment) (*engine.Segment, []string) {
	var issues []string

	for i, l := range jg.Length {
		if l < 0 {
			issues = append(issues, fmt.Sprintf("length[%d] negative", i))
		}
	}
	for i, t := range jg.Transparency {
		if t < 0 || t > 1 {
			issues = append(issues, fmt.Sprintf("transparency[%d] out of [0,1]", i))
		}
	}

	phases, dimmerIssues := parseDimmerTime(jg.DimmerTime)
	issues = append(issues, dimmerIssues...)
	if len(phases) == 0 {
		issues = append(issues, "dimmer_time must be non-empty")
	}

	if len(issues) > 0 {
		return nil, issues
	}

	return &engine.Segment{
		ID:              jg.SegmentID,
		Color:           jg.Color,
		Transparency:    jg.Transparency,
		Length:          jg.Length,
		MoveSpeed:       jg.MoveSpeed,
		MoveRangeLo:     jg.MoveRange[0],
		MoveRangeHi:     jg.MoveRange[1],
		CurrentPosition: jg.CurrentPosition,
		IsEdgeReflect:   jg.IsEdgeReflect,
		DimmerTime:      phases,
	}, nil
}

// parseDimmerTime accepts either the current triple form
// [[duration,start,end], ...] or the legacy flat brightness sequence
// [b0, b1, b2, ...], converting the latter to a sliding window of
// 1000ms phases per adjacent pair (b_i, b_{i+1}) — see DESIGN.md for why
// this is a sliding, not a non-overlapping, window.
func parseDimmerTime(raw json.RawMessage) ([]engine.DimmerPhase, []string) {
	if len(raw) == 0 {
		return nil, nil
	}

	var triples [][3]float64
	if err := json.Unmarshal(raw, &triples); err == nil {
		phases := make([]engine.DimmerPhase, 0, len(triples))
		for i, tr := range triples {
			if tr[0] < 1 {
				return nil, []string{fmt.Sprintf("dimmer_time[%d] duration must be >= 1ms", i)}
			}
			phases = append(phases, engine.DimmerPhase{
				DurationMs:   int(tr[0]),
				StartPercent: tr[1],
				EndPercent:   tr[2],
			})
		}
		return phases, nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) < 2 {
			return nil, []string{"legacy flat dimmer_time needs at least 2 values"}
		}
		phases := make([]engine.DimmerPhase, 0, len(flat)-1)
		for i := 0; i < len(flat)-1; i++ {
			phases = append(phases, engine.DimmerPhase{
				DurationMs:   1000,
				StartPercent: flat[i],
				EndPercent:   flat[i+1],
			})
		}
		return phases, nil
	}

	return nil, []string{"dimmer_time must be an array of [duration,start,end] triples or a flat brightness sequence"}
}
