package engine

import "github.com/bbernstein/ledscene-go/internal/color"

// PaletteSlots is the fixed number of color slots in a palette.
const PaletteSlots = 6

// Palette is an ordered set of exactly PaletteSlots colors. Segments
// reference slots by index; an out-of-range index renders black.
type Palette struct {
	Colors [PaletteSlots]color.RGB
}

// BlackPalette is the fallback used when a scene's current_palette_id is
// out of range.
var BlackPalette = Palette{}

// ColorAt returns the color at slot i, or black if i is out of range.
func (p Palette) ColorAt(i int) color.RGB {
	if i < 0 || i >= PaletteSlots {
		return color.Black
	}
	return p.Colors[i]
}

// SetColor mutates slot colorID in place. Out-of-range slot ids are
// ignored as a no-op; SetColor counts nothing itself (Manager tallies
// such ids as OutOfRange before calling it).
func (p *Palette) SetColor(colorID int, r, g, b int) {
	if colorID < 0 || colorID >= PaletteSlots {
		return
	}
	p.Colors[colorID] = color.RGB{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
