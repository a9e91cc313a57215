package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/bbernstein/ledscene-go/internal/engine"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []engine.Frame
}

func (r *recordingSink) Send(f engine.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func fastScene() *engine.Bundle {
	palette := engine.Palette{}
	palette.SetColor(0, 255, 0, 0)
	return &engine.Bundle{Scenes: []*engine.Scene{{
		ID:       0,
		LEDCount: 2,
		FPS:      200,
		Palettes: []engine.Palette{palette},
		Effects: []engine.Effect{{
			ID: 0,
			Segments: []*engine.Segment{{
				Color:        []int{0},
				Transparency: []float64{0},
				Length:       []int{2},
			}},
		}},
	}}}
}

func TestSchedulerEmitsFramesAtRoughlyFPS(t *testing.T) {
	m := engine.NewManager(nil)
	m.LoadScenes(fastScene(), time.Now())
	sink := &recordingSink{}

	sch := New(m, sink)
	sch.Start()
	time.Sleep(100 * time.Millisecond)
	sch.Stop()

	// At 200fps, 100ms should yield roughly 20 frames; allow generous
	// slack for scheduling jitter on a loaded CI box.
	n := sink.count()
	if n < 5 {
		t.Fatalf("frames emitted = %d, want at least 5 in 100ms at 200fps", n)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	m := engine.NewManager(nil)
	m.LoadScenes(fastScene(), time.Now())
	sch := New(m, &recordingSink{})
	sch.Start()
	sch.Stop()
	sch.Stop() // must not block or panic
}
