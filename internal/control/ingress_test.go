package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bbernstein/ledscene-go/internal/color"
	"github.com/bbernstein/ledscene-go/internal/engine"
	"github.com/bbernstein/ledscene-go/internal/loader"
	"github.com/bbernstein/ledscene-go/internal/telemetry"
	"github.com/bbernstein/ledscene-go/pkg/lightproto"
)

func oneSceneBundle() *engine.Bundle {
	palette := engine.Palette{}
	palette.SetColor(0, 255, 0, 0)
	return &engine.Bundle{Scenes: []*engine.Scene{{
		ID:       0,
		LEDCount: 4,
		FPS:      60,
		Palettes: []engine.Palette{palette},
		Effects: []engine.Effect{{
			ID: 0,
			Segments: []*engine.Segment{{
				Color:        []int{0},
				Transparency: []float64{0},
				Length:       []int{4},
				DimmerTime:   []engine.DimmerPhase{{DurationMs: 1000, StartPercent: 100, EndPercent: 100}},
			}},
		}},
	}}}
}

func newTestIngress() (*Ingress, *engine.Manager, *telemetry.Counters) {
	counters := &telemetry.Counters{}
	manager := engine.NewManager(counters)
	manager.LoadScenes(oneSceneBundle(), time.Now())
	return New(manager, counters, loader.Defaults{}), manager, counters
}

func TestDispatch_ChangeSceneEffectPalette(t *testing.T) {
	in, manager, counters := newTestIngress()

	in.dispatch(lightproto.ControlEvent{Address: "/change_scene", IntArgs: []int32{0}})
	in.dispatch(lightproto.ControlEvent{Address: "/change_effect", IntArgs: []int32{0}})
	in.dispatch(lightproto.ControlEvent{Address: "/change_palette", IntArgs: []int32{0}})

	if counters.MissingResource.Load() != 0 {
		t.Fatalf("MissingResource = %d, want 0", counters.MissingResource.Load())
	}

	in.dispatch(lightproto.ControlEvent{Address: "/change_scene", IntArgs: []int32{99}})
	if counters.MissingResource.Load() != 1 {
		t.Fatalf("MissingResource after bad scene id = %d, want 1", counters.MissingResource.Load())
	}
	_ = manager
}

func TestDispatch_PauseResume(t *testing.T) {
	in, manager, _ := newTestIngress()

	in.dispatch(lightproto.ControlEvent{Address: "/pause"})
	if !manager.IsPaused() {
		t.Fatal("expected manager paused after /pause")
	}
	in.dispatch(lightproto.ControlEvent{Address: "/resume"})
	if manager.IsPaused() {
		t.Fatal("expected manager resumed after /resume")
	}
}

func TestDispatch_SpeedAndBrightness(t *testing.T) {
	in, manager, counters := newTestIngress()

	in.dispatch(lightproto.ControlEvent{Address: "/set_speed_percent", IntArgs: []int32{2000}})
	if manager.SpeedPercent() != 1023 {
		t.Fatalf("SpeedPercent = %d, want clamped to 1023", manager.SpeedPercent())
	}

	in.dispatch(lightproto.ControlEvent{Address: "/master_brightness", IntArgs: []int32{999}})
	// No direct getter for master brightness on Manager; rendered frame
	// after /master_brightness is the closest observable signal and is
	// covered by engine-level tests, so here we only confirm dispatch
	// didn't count the clamp as an error.
	if got := counters.Snapshot(); got != (telemetry.Snapshot{}) {
		t.Fatalf("counters after clamped dispatches = %+v, want all zero", got)
	}
}

func TestDispatch_PaletteColor(t *testing.T) {
	in, _, counters := newTestIngress()

	in.dispatch(lightproto.ControlEvent{
		Address: "/palette/0/0",
		IntArgs: []int32{10, 20, 30},
	})
	if counters.MalformedInput.Load() != 0 {
		t.Fatalf("MalformedInput = %d, want 0", counters.MalformedInput.Load())
	}

	in.dispatch(lightproto.ControlEvent{
		Address: "/palette/0/0",
		IntArgs: []int32{10, 20}, // missing blue channel
	})
	if counters.MalformedInput.Load() != 1 {
		t.Fatalf("MalformedInput after short args = %d, want 1", counters.MalformedInput.Load())
	}
}

func TestDispatch_UnknownAddressCounted(t *testing.T) {
	in, _, counters := newTestIngress()

	in.dispatch(lightproto.ControlEvent{Address: "/not_a_real_address"})
	if counters.MalformedInput.Load() != 1 {
		t.Fatalf("MalformedInput = %d, want 1", counters.MalformedInput.Load())
	}
}

func TestDispatch_ChangePatternCommitsStaged(t *testing.T) {
	in, manager, _ := newTestIngress()
	bundle := oneSceneBundle()
	green := engine.Palette{}
	green.SetColor(0, 0, 255, 0)
	bundle.Scenes[0].Palettes = append(bundle.Scenes[0].Palettes, green)
	manager.LoadScenes(bundle, time.Now())

	in.dispatch(lightproto.ControlEvent{Address: "/change_palette", IntArgs: []int32{1}})
	in.dispatch(lightproto.ControlEvent{Address: "/change_pattern"})

	frame := manager.Render(time.Now())
	if len(frame) != 4 {
		t.Fatalf("frame len = %d, want 4", len(frame))
	}
	// No dissolve patterns are loaded, so the commit takes effect at once.
	if frame[0] != (color.RGB{G: 255}) {
		t.Fatalf("led0 after commit = %+v, want green from staged palette 1", frame[0])
	}
}

func TestLoadScene_AppendsDefaultExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "show1")
	body := `{"scenes":[{"scene_id":0,"led_count":3,"fps":30,
		"palettes":[[[1,2,3],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0]]],
		"effects":[{"effect_id":0,"segments":[{"segment_id":0,
			"color":[0],"transparency":[0],"length":[3],
			"dimmer_time":[[1000,100,100]]}]}]}]}`
	if err := os.WriteFile(path+".json", []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	in, manager, counters := newTestIngress()
	in.loadScene(path) // no extension; loader should append .json

	if counters.LoadFailure.Load() != 0 {
		t.Fatalf("LoadFailure = %d, want 0", counters.LoadFailure.Load())
	}
	if manager.CurrentLEDCount() != 3 {
		t.Fatalf("CurrentLEDCount = %d, want 3 after reload", manager.CurrentLEDCount())
	}
}

func TestLoadScene_YAMLByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "show1.yaml")
	body := "scenes:\n" +
		"  - scene_id: 0\n" +
		"    led_count: 5\n" +
		"    fps: 30\n" +
		"    palettes:\n" +
		"      - [[1,2,3],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0]]\n" +
		"    effects:\n" +
		"      - effect_id: 0\n" +
		"        segments:\n" +
		"          - segment_id: 0\n" +
		"            color: [0]\n" +
		"            transparency: [0]\n" +
		"            length: [5]\n" +
		"            dimmer_time: [[1000, 100, 100]]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	in, manager, counters := newTestIngress()
	in.loadScene(path)

	if counters.LoadFailure.Load() != 0 {
		t.Fatalf("LoadFailure = %d, want 0", counters.LoadFailure.Load())
	}
	if manager.CurrentLEDCount() != 5 {
		t.Fatalf("CurrentLEDCount = %d, want 5 after YAML reload", manager.CurrentLEDCount())
	}
}
