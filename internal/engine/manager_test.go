package engine

import (
	"testing"
	"time"

	"github.com/bbernstein/ledscene-go/internal/color"
)

func twoSceneBundle() *Bundle {
	redPalette := Palette{}
	redPalette.SetColor(0, 255, 0, 0)
	bluePalette := Palette{}
	bluePalette.SetColor(0, 0, 0, 255)

	scene0 := &Scene{
		ID:       0,
		LEDCount: 2,
		FPS:      30,
		Palettes: []Palette{redPalette},
		Effects: []Effect{{
			ID: 0,
			Segments: []*Segment{{
				Color:        []int{0},
				Transparency: []float64{0},
				Length:       []int{2},
			}},
		}},
	}
	scene1 := &Scene{
		ID:       1,
		LEDCount: 2,
		FPS:      30,
		Palettes: []Palette{bluePalette},
		Effects: []Effect{{
			ID: 0,
			Segments: []*Segment{{
				Color:        []int{0},
				Transparency: []float64{0},
				Length:       []int{2},
			}},
		}},
	}
	return &Bundle{Scenes: []*Scene{scene0, scene1}}
}

func TestManagerLoadScenesDefaultsToFirstScene(t *testing.T) {
	m := NewManager(nil)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)

	frame := m.Render(now)
	for i, px := range frame {
		if px != (color.RGB{R: 255}) {
			t.Fatalf("led %d = %+v, want red (first scene active by default)", i, px)
		}
	}
}

func TestManagerStagedChangesDoNotRenderUntilCommit(t *testing.T) {
	m := NewManager(nil)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)

	m.CacheChangeScene(1)
	frame := m.Render(now)
	if frame[0] != (color.RGB{R: 255}) {
		t.Fatalf("staged-but-uncommitted scene rendered; led0 = %+v, want still red", frame[0])
	}

	m.CommitPattern(now)
	frame = m.Render(now)
	if frame[0] != (color.RGB{B: 255}) {
		t.Fatalf("after commit led0 = %+v, want blue", frame[0])
	}
}

func TestManagerCommitTriggersDissolve(t *testing.T) {
	m := NewManager(nil)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)
	m.LoadDissolvePatterns(map[int]DissolvePattern{
		0: {Bands: []DissolveBand{{DelayMs: 0, DurationMs: 1000, StartLED: 0, EndLED: 1}}},
	})
	m.SetDissolvePattern(0)

	m.CacheChangeScene(1)
	m.CommitPattern(now)

	mid := now.Add(500 * time.Millisecond)
	frame := m.Render(mid)
	if frame[0].R == 0 || frame[0].B == 0 {
		t.Fatalf("mid-dissolve led0 = %+v, want a blend of red and blue", frame[0])
	}

	done := now.Add(1000 * time.Millisecond)
	frame = m.Render(done)
	if frame[0] != (color.RGB{B: 255}) {
		t.Fatalf("after dissolve completes led0 = %+v, want pure blue", frame[0])
	}
}

func TestManagerCommitNoopWhenNothingStaged(t *testing.T) {
	m := NewManager(nil)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)
	m.CommitPattern(now)
	if m.state.active != nil {
		t.Fatal("commit with no staged change should not start a dissolve")
	}
}

func TestManagerPauseFreezesOutput(t *testing.T) {
	m := NewManager(nil)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)
	m.Pause()

	frame := m.Tick(1, now.Add(time.Second))
	for i, px := range frame {
		if px != color.Black {
			t.Fatalf("led %d = %+v, want black while paused", i, px)
		}
	}
}

func TestManagerSpeedAndBrightnessClamp(t *testing.T) {
	m := NewManager(nil)
	m.SetSpeed(5000)
	if got := m.SpeedPercent(); got != 1023 {
		t.Fatalf("speed = %d, want clamped to 1023", got)
	}
	m.SetSpeed(-10)
	if got := m.SpeedPercent(); got != 0 {
		t.Fatalf("speed = %d, want clamped to 0", got)
	}

	m.SetMasterBrightness(9000)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)
	frame := m.Render(now)
	if frame[0] != (color.RGB{R: 255}) {
		t.Fatalf("led0 = %+v, want unaffected full brightness at clamped 255", frame[0])
	}

	m.SetMasterBrightness(0)
	frame = m.Render(now)
	for i, px := range frame {
		if px != color.Black {
			t.Fatalf("led %d = %+v, want black at master brightness 0", i, px)
		}
	}
}

func TestManagerMissingResourceCountsAreTallied(t *testing.T) {
	m := NewManager(nil)
	now := time.Unix(0, 0)
	m.LoadScenes(twoSceneBundle(), now)

	m.CacheChangeScene(99)
	if got := m.Counters().Snapshot().MissingResource; got != 1 {
		t.Fatalf("missing_resource = %d, want 1", got)
	}

	m.CacheChangeEffect(99)
	if got := m.Counters().Snapshot().MissingResource; got != 2 {
		t.Fatalf("missing_resource = %d, want 2", got)
	}
}
