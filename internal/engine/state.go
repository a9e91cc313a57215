package engine

import (
	"github.com/bbernstein/ledscene-go/internal/color"
)

// Frame is a fixed-size sequence of LED colors, one per LED index.
type Frame []color.RGB

// NewFrame allocates a zeroed frame of the given size.
func NewFrame(ledCount int) Frame {
	return make(Frame, ledCount)
}

// state is the process-wide mutable engine state from spec.md §3,
// guarded by Manager's single mutex. It holds no behavior of its own;
// every mutation goes through Manager so the locking discipline lives in
// one place.
type state struct {
	scenes map[int]*Scene

	activeSceneID, activeEffectID, activePaletteID int
	stagedSceneID, stagedEffectID, stagedPaletteID int

	dissolvePatterns        map[int]DissolvePattern
	activeDissolvePatternID int
	active                  *dissolve

	speedPercent     int
	masterBrightness uint8
	paused           bool

	// lastFrame is the most recently rendered (post-dissolve, pre-master)
	// active-scene frame, kept so a subsequent commit can snapshot it as
	// the next dissolve's from_frame without re-rendering.
	lastFrame Frame
}

func newState() *state {
	return &state{
		scenes:           make(map[int]*Scene),
		dissolvePatterns: make(map[int]DissolvePattern),
		masterBrightness: 255,
	}
}
