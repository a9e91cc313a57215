// Package engine implements the core rendering kernel, scene model, and
// scene manager state machine (spec.md §3-§5, components C2-C5; the C1
// color math lives in internal/color).
package engine

import (
	"sync"
	"time"

	"github.com/bbernstein/ledscene-go/internal/color"
	"github.com/bbernstein/ledscene-go/internal/telemetry"
)

// Manager owns the entire engine state behind a single mutex and
// implements every Scene Manager operation from spec.md §4.4. It is the
// sole mutator of scenes, effects, segments, and palettes; render(now)
// is pure given the locked state, which is what makes the frame
// scheduler testable by injecting a clock (spec.md §9).
type Manager struct {
	mu       sync.Mutex
	state    *state
	counters *telemetry.Counters
}

// NewManager creates an empty Manager. Counters may be nil, in which
// case the manager tallies per-event failures into a private Counters
// value of its own, readable through Counters().
func NewManager(counters *telemetry.Counters) *Manager {
	if counters == nil {
		counters = &telemetry.Counters{}
	}
	return &Manager{state: newState(), counters: counters}
}

// Counters returns the shared counters this manager reports into.
func (m *Manager) Counters() *telemetry.Counters {
	return m.counters
}

// LoadScenes atomically replaces the scene graph, resets active and
// staged ids to (first scene, effect 0, palette 0), clears any active
// dissolve, and resets every segment's dimmer timing. now anchors the
// fresh timing.
func (m *Manager) LoadScenes(bundle *Bundle, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scenes := make(map[int]*Scene, len(bundle.Scenes))
	firstID := 0
	for i, sc := range bundle.Scenes {
		scenes[sc.ID] = sc
		if i == 0 {
			firstID = sc.ID
		}
	}

	m.state.scenes = scenes
	m.state.activeSceneID, m.state.stagedSceneID = firstID, firstID
	m.state.activeEffectID, m.state.stagedEffectID = 0, 0
	m.state.activePaletteID, m.state.stagedPaletteID = 0, 0
	m.state.active = nil
	m.state.lastFrame = nil

	for _, sc := range scenes {
		for i := range sc.Effects {
			for _, seg := range sc.Effects[i].Segments {
				seg.ResetTiming(now)
			}
		}
	}
}

// CacheChangeScene stages a scene id if it exists; otherwise it is a
// missing-resource no-op.
func (m *Manager) CacheChangeScene(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.scenes[id]; !ok {
		m.counters.MissingResource.Add(1)
		return
	}
	m.state.stagedSceneID = id
}

// CacheChangeEffect stages an effect id if present in the currently
// staged scene; otherwise it is a missing-resource no-op.
func (m *Manager) CacheChangeEffect(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scene := m.state.scenes[m.state.stagedSceneID]
	if scene == nil || scene.EffectByID(id) == nil {
		m.counters.MissingResource.Add(1)
		return
	}
	m.state.stagedEffectID = id
}

// CacheChangePalette stages a palette id if in range on the staged
// scene; otherwise it is a missing-resource no-op.
func (m *Manager) CacheChangePalette(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scene := m.state.scenes[m.state.stagedSceneID]
	if scene == nil {
		m.counters.MissingResource.Add(1)
		return
	}
	if _, ok := scene.PaletteByID(id); !ok {
		m.counters.MissingResource.Add(1)
		return
	}
	m.state.stagedPaletteID = id
}

// CommitPattern adopts every staged id as active if any differs from the
// current active id, snapshotting the currently displayed frame as the
// new dissolve's from_frame and resetting the newly active effect's
// segment timings. If nothing is staged differently, it is a no-op
// (spec.md §9's chosen resolution for this open question).
func (m *Manager) CommitPattern(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.stagedSceneID == m.state.activeSceneID &&
		m.state.stagedEffectID == m.state.activeEffectID &&
		m.state.stagedPaletteID == m.state.activePaletteID {
		return
	}

	// The most recently rendered composed frame becomes the new
	// from_frame. If a dissolve was already in progress, that frame is
	// the in-progress composition — a mid-dissolve commit cancels and
	// restarts the dissolve, per spec.md §5.
	fromFrame := m.state.lastFrame
	if fromFrame == nil {
		fromFrame = m.renderLocked(now)
	}

	m.state.activeSceneID = m.state.stagedSceneID
	m.state.activeEffectID = m.state.stagedEffectID
	m.state.activePaletteID = m.state.stagedPaletteID

	if scene := m.state.scenes[m.state.activeSceneID]; scene != nil {
		if effect := scene.EffectByID(m.state.activeEffectID); effect != nil {
			for _, seg := range effect.Segments {
				seg.ResetTiming(now)
			}
		}
	}

	pattern := m.state.dissolvePatterns[m.state.activeDissolvePatternID]
	m.state.active = newDissolve(fromFrame, now, pattern)
}

// SetPaletteColor mutates a palette entry on the active scene in place;
// it takes effect on the next rendered frame, with no dissolve.
func (m *Manager) SetPaletteColor(paletteID, colorID, r, g, b int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scene := m.state.scenes[m.state.activeSceneID]
	if scene == nil || paletteID < 0 || paletteID >= len(scene.Palettes) {
		m.counters.MissingResource.Add(1)
		return
	}
	if colorID < 0 || colorID >= PaletteSlots {
		m.counters.OutOfRange.Add(1)
		return
	}
	scene.Palettes[paletteID].SetColor(colorID, r, g, b)
}

// SetDissolvePattern selects the active dissolve pattern id if present.
func (m *Manager) SetDissolvePattern(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.dissolvePatterns[id]; !ok {
		m.counters.MissingResource.Add(1)
		return
	}
	m.state.activeDissolvePatternID = id
}

// LoadDissolvePatterns replaces the dissolve pattern map.
func (m *Manager) LoadDissolvePatterns(patterns map[int]DissolvePattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.dissolvePatterns = patterns
}

// Pause freezes playback: subsequent frames are all-black and position
// and dimmer timing stop advancing.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.paused = true
}

// Resume un-freezes playback.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.paused = false
}

// SetSpeed clamps p to [0,1023] and sets the playback speed percentage.
func (m *Manager) SetSpeed(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.speedPercent = clampInt(p, 0, 1023)
}

// SetMasterBrightness clamps b to [0,255] and sets master brightness.
func (m *Manager) SetMasterBrightness(b int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.masterBrightness = uint8(clampInt(b, 0, 255))
}

// SpeedPercent returns the current playback speed percentage.
func (m *Manager) SpeedPercent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.speedPercent
}

// IsPaused reports whether playback is currently paused.
func (m *Manager) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.paused
}

// CurrentFPS returns the active scene's fps, re-read every call so the
// scheduler picks up a scene change's new rate; 60 if nothing is loaded.
func (m *Manager) CurrentFPS() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scene := m.state.scenes[m.state.activeSceneID]; scene != nil && scene.FPS > 0 {
		return scene.FPS
	}
	return 60
}

// CurrentLEDCount returns the active scene's led_count, 0 if nothing is
// loaded.
func (m *Manager) CurrentLEDCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLEDCountLocked()
}

func (m *Manager) activeLEDCountLocked() int {
	if scene := m.state.scenes[m.state.activeSceneID]; scene != nil {
		return scene.LEDCount
	}
	return 0
}

// UpdateAnimation advances every active segment's position by dt
// (ignored while paused).
func (m *Manager) UpdateAnimation(dt float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateAnimationLocked(dt, now)
}

func (m *Manager) updateAnimationLocked(dt float64, now time.Time) {
	if m.state.paused {
		return
	}
	scene := m.state.scenes[m.state.activeSceneID]
	if scene == nil {
		return
	}
	effect := scene.EffectByID(m.state.activeEffectID)
	if effect == nil {
		return
	}
	for _, seg := range effect.Segments {
		seg.UpdatePosition(dt, now)
	}
}

// Render produces the next frame for instant now without advancing any
// segment's position or dimmer phase — it is pure given the locked
// state, so tests can drive it directly with a synthetic clock.
func (m *Manager) Render(now time.Time) Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderLocked(now)
}

// Tick advances positions by dt and renders in one critical section; the
// frame scheduler uses this on every tick.
func (m *Manager) Tick(dt float64, now time.Time) Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateAnimationLocked(dt, now)
	return m.renderLocked(now)
}

func (m *Manager) renderLocked(now time.Time) Frame {
	if m.state.paused {
		return NewFrame(m.activeLEDCountLocked())
	}

	scene := m.state.scenes[m.state.activeSceneID]
	ledCount := 0
	if scene != nil {
		ledCount = scene.LEDCount
	}
	frame := NewFrame(ledCount)

	if scene != nil {
		if effect := scene.EffectByID(m.state.activeEffectID); effect != nil {
			palette, ok := scene.PaletteByID(m.state.activePaletteID)
			if !ok {
				palette = BlackPalette
			}
			for _, seg := range effect.Segments {
				seg.Render(palette, now, frame)
			}
		}
	}

	if m.state.active != nil {
		frame = m.state.active.apply(frame, ledCount, now)
		if m.state.active.isComplete(now) {
			m.state.active = nil
		}
	}

	m.state.lastFrame = cloneFrame(frame)
	color.ApplyMaster(frame, m.state.masterBrightness)
	return frame
}

func cloneFrame(f Frame) Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
