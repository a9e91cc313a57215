package engine

import (
	"math"
	"time"

	"github.com/bbernstein/ledscene-go/internal/color"
)

// DimmerPhase is one linear brightness ramp in a segment's dimmer cycle.
type DimmerPhase struct {
	DurationMs     int
	StartPercent   float64
	EndPercent     float64
}

// Segment is the atomic renderable unit: a run of colored LEDs that can
// move, reflect or wrap at range boundaries, and pulse brightness on a
// repeating cycle of linear ramps.
type Segment struct {
	ID int

	Color        []int
	Transparency []float64
	Length       []int

	MoveSpeed        float64
	MoveRangeLo      int
	MoveRangeHi      int
	CurrentPosition  int
	IsEdgeReflect    bool

	DimmerTime       []DimmerPhase
	SegmentStartTime time.Time

	// posFrac is the hidden sub-LED fractional accumulator described in
	// spec.md §4.2/§9: CurrentPosition is the committed integer index,
	// posFrac is read live by Render for edge-fade intensity.
	posFrac float64
}

// ResetTiming restarts the segment's dimmer phase at now. It is the only
// source of dimmer restart besides a fresh load (spec.md §4.2).
func (s *Segment) ResetTiming(now time.Time) {
	s.SegmentStartTime = now
}

// moveRange returns (lo, hi) normalized so lo <= hi, auto-swapping an
// inverted range rather than treating it as an error (spec.md §7: "invalid
// move_range auto-swaps lo/hi").
func (s *Segment) moveRange() (int, int) {
	lo, hi := s.MoveRangeLo, s.MoveRangeHi
	if lo > hi {
		return hi, lo
	}
	return lo, hi
}

// UpdatePosition advances the segment's position by virtual delta dt
// (LEDs/second * seconds), applying reflect or wrap boundary behavior.
// now is the reference instant used if a reflect bounce resets dimmer
// timing.
func (s *Segment) UpdatePosition(dt float64, now time.Time) {
	if math.Abs(s.MoveSpeed) < 0.001 {
		return
	}

	s.posFrac += s.MoveSpeed * dt
	if math.Abs(s.posFrac) >= 1 {
		step := math.Trunc(s.posFrac)
		s.CurrentPosition += int(step)
		s.posFrac -= step
	}

	lo, hi := s.moveRange()

	if s.IsEdgeReflect {
		switch {
		case s.CurrentPosition <= lo:
			s.CurrentPosition = lo
			s.MoveSpeed = math.Abs(s.MoveSpeed)
			s.posFrac = 0
			s.ResetTiming(now)
		case s.CurrentPosition >= hi:
			s.CurrentPosition = hi
			s.MoveSpeed = -math.Abs(s.MoveSpeed)
			s.posFrac = 0
			s.ResetTiming(now)
		}
		return
	}

	// Wrap mode.
	if hi == lo {
		s.CurrentPosition = lo
		return
	}
	span := hi - lo
	if s.CurrentPosition < lo {
		s.CurrentPosition = hi - mod(lo-s.CurrentPosition, span)
	} else if s.CurrentPosition > hi {
		s.CurrentPosition = lo + mod(s.CurrentPosition-hi, span)
	}
}

// mod is a non-negative modulo for positive divisors.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// BrightnessAt computes the dimmer cycle's brightness factor at instant
// now, in [0,1]. See spec.md §4.2 for the phase-walk algorithm.
func (s *Segment) BrightnessAt(now time.Time) float64 {
	if len(s.DimmerTime) == 0 {
		return 1
	}

	elapsedMs := now.Sub(s.SegmentStartTime).Seconds() * 1000

	cycleMs := 0
	for _, phase := range s.DimmerTime {
		d := phase.DurationMs
		if d < 1 {
			d = 1
		}
		cycleMs += d
	}
	if cycleMs <= 0 {
		return 1
	}

	phaseMs := math.Mod(elapsedMs, float64(cycleMs))
	if phaseMs < 0 {
		phaseMs += float64(cycleMs)
	}
	if phaseMs == 0 && elapsedMs > 0 {
		phaseMs = float64(cycleMs)
	}

	currentMs := 0.0
	for _, phase := range s.DimmerTime {
		d := phase.DurationMs
		if d < 1 {
			d = 1
		}
		df := float64(d)
		if phaseMs <= currentMs+df {
			progress := color.Clamp01((phaseMs - currentMs) / df)
			brightness := (phase.StartPercent + (phase.EndPercent-phase.StartPercent)*progress) / 100.0
			return color.Clamp01(brightness)
		}
		currentMs += df
	}

	// Floating point drift past the last phase.
	last := s.DimmerTime[len(s.DimmerTime)-1]
	return color.Clamp01(last.EndPercent / 100.0)
}

// expandParts builds the ordered sequence of part colors per spec.md
// §4.2's part-expansion rule, with transparency and brightnessFactor
// already applied.
func (s *Segment) expandParts(palette Palette, brightnessFactor float64) []color.Value {
	nParts := len(s.Length)
	var out []color.Value

	for i := 0; i < nParts; i++ {
		length := s.Length[i]
		if length <= 0 {
			continue
		}
		base := palette.ColorAt(s.colorAt(i))
		transp := s.transparencyAt(i)
		c := color.ApplyBrightness(color.ApplyTransparency(color.FromRGB(base), transp), brightnessFactor)
		for k := 0; k < length; k++ {
			out = append(out, c)
		}
	}

	// Excess color entries beyond len(Length) each contribute one extra
	// tail LED (spec.md §4.2), indexed directly (no repetition padding).
	for i := nParts; i < len(s.Color); i++ {
		base := palette.ColorAt(s.Color[i])
		transp := 0.0
		if i < len(s.Transparency) {
			transp = s.Transparency[i]
		}
		c := color.ApplyBrightness(color.ApplyTransparency(color.FromRGB(base), transp), brightnessFactor)
		out = append(out, c)
	}

	return out
}

// colorAt returns the palette index for part i, padding by repeating the
// last element if Color is shorter than Length (spec.md §3's invariant
// note; see DESIGN.md for how this reconciles with §4.2's tail case).
func (s *Segment) colorAt(i int) int {
	if i < len(s.Color) {
		return s.Color[i]
	}
	if len(s.Color) == 0 {
		return -1 // out of range -> renders black
	}
	return s.Color[len(s.Color)-1]
}

// transparencyAt returns the transparency for part i, padding by
// repeating the last element if Transparency is shorter than Length.
func (s *Segment) transparencyAt(i int) float64 {
	if i < len(s.Transparency) {
		return s.Transparency[i]
	}
	if len(s.Transparency) == 0 {
		return 0
	}
	return s.Transparency[len(s.Transparency)-1]
}

// Render composites the segment's current frame contribution into frame,
// which must have exactly ledCount entries. It is a no-op if the dimmer
// brightness is currently zero.
func (s *Segment) Render(palette Palette, now time.Time, frame []color.RGB) {
	brightness := s.BrightnessAt(now)
	if brightness <= 0 {
		return
	}

	parts := s.expandParts(palette, brightness)
	n := len(parts)
	if n == 0 {
		return
	}

	base := s.CurrentPosition
	fracPart := s.posFrac

	if base < 0 {
		absBase := -base
		if absBase >= n {
			return // current_position <= -N: render nothing
		}
		parts = parts[absBase:]
		base = 0
		fracPart = 0 // negative-base trimming skips edge fade
		n = len(parts)
	}

	if n > 1 && fracPart > 0 {
		parts[0] = color.ApplyBrightness(parts[0], math.Max(0.1, fracPart))
		parts[n-1] = color.ApplyBrightness(parts[n-1], math.Max(0.1, 1-fracPart))
	}

	for i, c := range parts {
		ledIndex := base + i
		if ledIndex >= 0 && ledIndex < len(frame) {
			color.AddSaturating(&frame[ledIndex], c)
		}
	}
}
