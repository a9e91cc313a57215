package engine

import (
	"time"

	"github.com/bbernstein/ledscene-go/internal/color"
)

// DissolveBand is one entry in a dissolve pattern: a delayed, timed
// cross-fade over a contiguous LED range.
type DissolveBand struct {
	DelayMs    int
	DurationMs int
	StartLED   int
	EndLED     int
}

// DissolvePattern is an ordered list of bands governing one transition.
// Bands may overlap in range or time; there is no required coverage.
type DissolvePattern struct {
	Bands []DissolveBand
}

// IsInstantaneous reports whether the pattern has no bands, in which
// case a dissolve using it terminates immediately (spec.md §4.5).
func (p DissolvePattern) IsInstantaneous() bool {
	return len(p.Bands) == 0
}

// dissolve is the active cross-fade record: an immutable snapshot of the
// previously rendered frame, blended toward the newly rendered frame
// per LED band as time elapses.
type dissolve struct {
	fromFrame    []color.RGB
	startInstant time.Time
	pattern      DissolvePattern
}

func newDissolve(fromFrame []color.RGB, startInstant time.Time, pattern DissolvePattern) *dissolve {
	snapshot := make([]color.RGB, len(fromFrame))
	copy(snapshot, fromFrame)
	return &dissolve{fromFrame: snapshot, startInstant: startInstant, pattern: pattern}
}

// bandProgress computes a single band's contribution to LED i at now, and
// whether the band covers i at all.
func bandProgress(b DissolveBand, ledCount int, elapsedMs float64, i int) (progress float64, covered bool) {
	s, e := clip(b.StartLED, 0, ledCount-1), clip(b.EndLED, 0, ledCount-1)
	if s > e {
		s, e = e, s
	}
	if i < s || i > e {
		return 0, false
	}

	duration := b.DurationMs
	if duration < 0 {
		duration = 0
	}
	t := elapsedMs - float64(b.DelayMs)

	switch {
	case t <= 0:
		return 0, true
	case duration <= 0, t >= float64(duration):
		return 1, true
	default:
		return t / float64(duration), true
	}
}

func clip(v, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// apply renders the blended frame for instant now, given the freshly
// rendered active-scene frame toFrame.
func (d *dissolve) apply(toFrame []color.RGB, ledCount int, now time.Time) []color.RGB {
	if d.pattern.IsInstantaneous() {
		out := make([]color.RGB, ledCount)
		for i := range out {
			out[i] = safeAt(toFrame, i)
		}
		return out
	}

	elapsedMs := now.Sub(d.startInstant).Seconds() * 1000
	out := make([]color.RGB, ledCount)
	for i := 0; i < ledCount; i++ {
		p := 0.0
		for _, b := range d.pattern.Bands {
			bp, covered := bandProgress(b, ledCount, elapsedMs, i)
			if covered && bp > p {
				p = bp
			}
		}
		from := safeAt(d.fromFrame, i)
		to := safeAt(toFrame, i)
		out[i] = color.Blend(from, to, p)
	}
	return out
}

func safeAt(frame []color.RGB, i int) color.RGB {
	if i < 0 || i >= len(frame) {
		return color.Black
	}
	return frame[i]
}

// isComplete reports whether every band in the pattern has reached full
// progress at instant now. A pattern with no bands is always complete.
func (d *dissolve) isComplete(now time.Time) bool {
	if d.pattern.IsInstantaneous() {
		return true
	}
	elapsedMs := now.Sub(d.startInstant).Seconds() * 1000
	for _, b := range d.pattern.Bands {
		duration := b.DurationMs
		if duration < 0 {
			duration = 0
		}
		t := elapsedMs - float64(b.DelayMs)
		if t < float64(duration) {
			return false
		}
	}
	return true
}
