// Package color provides the channel-level math the rendering kernel uses
// to composite LED colors: clamping, transparency, brightness scaling,
// cross-fade blending, and saturating addition.
package color

import "math"

// RGB is a single committed LED color, channels in [0,255].
type RGB struct {
	R, G, B uint8
}

// Black is the zero color.
var Black = RGB{}

// Value is an uncommitted, higher-precision color used while a segment
// is being composited. Channels are not required to be in range until
// Commit truncates and clamps them.
type Value struct {
	R, G, B float64
}

// FromRGB lifts a committed color into float space.
func FromRGB(c RGB) Value {
	return Value{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
}

// Commit clamps each channel to [0,255] and truncates (not rounds) to an
// integer, matching historical behavior so tests are deterministic.
func (v Value) Commit() RGB {
	return RGB{
		R: clampByte(v.R),
		G: clampByte(v.G),
		B: clampByte(v.B),
	}
}

func clampByte(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(math.Trunc(f))
}

// Clamp01 clamps f to [0,1].
func Clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ApplyTransparency scales c by (1 - clamp(t,0,1)); t=0 is opaque, t=1 is
// fully transparent.
func ApplyTransparency(c Value, t float64) Value {
	factor := 1 - Clamp01(t)
	return Value{R: c.R * factor, G: c.G * factor, B: c.B * factor}
}

// ApplyBrightness scales c by clamp(f,0,1).
func ApplyBrightness(c Value, f float64) Value {
	factor := Clamp01(f)
	return Value{R: c.R * factor, G: c.G * factor, B: c.B * factor}
}

// Blend linearly interpolates from a to b by clamp(p,0,1): p=0 is a, p=1
// is b. The result is committed (clamped, truncated) the same way a
// directly rendered pixel would be.
func Blend(a, b RGB, p float64) RGB {
	pp := Clamp01(p)
	av, bv := FromRGB(a), FromRGB(b)
	return Value{
		R: av.R*(1-pp) + bv.R*pp,
		G: av.G*(1-pp) + bv.G*pp,
		B: av.B*(1-pp) + bv.B*pp,
	}.Commit()
}

// AddSaturating additively composites c onto *dst, per channel, clamping
// at 255. Used to accumulate overlapping segments into one frame.
func AddSaturating(dst *RGB, c Value) {
	dst.R = saturate(dst.R, c.R)
	dst.G = saturate(dst.G, c.G)
	dst.B = saturate(dst.B, c.B)
}

func saturate(base uint8, add float64) uint8 {
	if add <= 0 {
		return base
	}
	sum := float64(base) + math.Trunc(add)
	if sum >= 255 {
		return 255
	}
	if sum < 0 {
		return 0
	}
	return uint8(sum)
}

// ApplyMaster scales every pixel in frame by the master brightness m
// (0-255). m=255 is the identity (no allocation, no-op); m=0 zeroes the
// frame; any other value scales by m/255, truncating per channel.
func ApplyMaster(frame []RGB, m uint8) {
	if m == 255 {
		return
	}
	if m == 0 {
		for i := range frame {
			frame[i] = Black
		}
		return
	}
	factor := float64(m) / 255.0
	for i, px := range frame {
		frame[i] = RGB{
			R: scaleByte(px.R, factor),
			G: scaleByte(px.G, factor),
			B: scaleByte(px.B, factor),
		}
	}
}

func scaleByte(v uint8, factor float64) uint8 {
	return clampByte(float64(v) * factor)
}
