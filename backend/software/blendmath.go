// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

// Blend math mirroring the composite shader. Modes operate on
// unpremultiplied channel values in 0..1; indices follow the frozen
// wire order of layer.BlendMode.

// blendChannel applies a separable mode to one channel pair.
func blendChannel(mode int, s, b float32) float32 {
	switch mode {
	case 1: // multiply
		return b * s
	case 2: // screen
		return 1 - (1-b)*(1-s)
	case 3: // overlay
		if b <= 0.5 {
			return 2 * b * s
		}
		return 1 - 2*(1-b)*(1-s)
	case 4: // soft light
		if s <= 0.5 {
			return b - (1-2*s)*b*(1-b)
		}
		var d float32
		if b <= 0.25 {
			d = ((16*b-12)*b + 4) * b
		} else {
			d = sqrt32(b)
		}
		return b + (2*s-1)*(d-b)
	case 5: // hard light
		if s <= 0.5 {
			return 2 * s * b
		}
		return 1 - 2*(1-s)*(1-b)
	case 6: // color dodge
		if b <= 0 {
			return 0
		}
		if s >= 1 {
			return 1
		}
		return min32(1, b/(1-s))
	case 7: // color burn
		if b >= 1 {
			return 1
		}
		if s <= 0 {
			return 0
		}
		return 1 - min32(1, (1-b)/s)
	case 8: // linear burn
		return max32(0, b+s-1)
	case 9: // linear dodge
		return min32(1, b+s)
	case 10: // darken
		return min32(b, s)
	case 11: // lighten
		return max32(b, s)
	case 14: // vivid light
		if s <= 0.5 {
			if s <= 0 {
				return 0
			}
			return 1 - min32(1, (1-b)/(2*s))
		}
		if s >= 1 {
			return 1
		}
		return min32(1, b/(2*(1-s)))
	case 15: // linear light
		return clamp01(b + 2*s - 1)
	case 16: // pin light
		if s <= 0.5 {
			return min32(b, 2*s)
		}
		return max32(b, 2*s-1)
	case 17: // hard mix
		if b+2*s-1 < 0.5 {
			return 0
		}
		return 1
	case 18: // difference
		return abs32(b - s)
	case 19: // exclusion
		return b + s - 2*b*s
	case 20: // subtract
		return max32(0, b-s)
	case 21: // divide
		if s <= 0 {
			return 1
		}
		return min32(1, b/s)
	default: // normal
		return s
	}
}

// blendRGB applies mode to an unpremultiplied source/backdrop pair,
// dispatching the non-separable modes and falling back to per-channel
// application for the rest.
func blendRGB(mode int, s, b [3]float32) [3]float32 {
	switch mode {
	case 12: // darker color
		if lumBlend(s) < lumBlend(b) {
			return s
		}
		return b
	case 13: // lighter color
		if lumBlend(s) > lumBlend(b) {
			return s
		}
		return b
	case 22: // hue
		return setLum(setSat(s, sat(b)), lumBlend(b))
	case 23: // saturation
		return setLum(setSat(b, sat(s)), lumBlend(b))
	case 24: // color
		return setLum(s, lumBlend(b))
	case 25: // luminosity
		return setLum(b, lumBlend(s))
	default:
		return [3]float32{
			blendChannel(mode, s[0], b[0]),
			blendChannel(mode, s[1], b[1]),
			blendChannel(mode, s[2], b[2]),
		}
	}
}

// lumBlend is the compositing luminance (ITU-R BT.601 weights), distinct
// from the Rec. 709 weights the adjustment kernel uses.
func lumBlend(c [3]float32) float32 {
	return 0.3*c[0] + 0.59*c[1] + 0.11*c[2]
}

func clipColor(c [3]float32) [3]float32 {
	l := lumBlend(c)
	n := min32(min32(c[0], c[1]), c[2])
	x := max32(max32(c[0], c[1]), c[2])
	r := c
	if n < 0 {
		for i := 0; i < 3; i++ {
			r[i] = l + (c[i]-l)*l/(l-n)
		}
	}
	if x > 1 {
		for i := 0; i < 3; i++ {
			r[i] = l + (r[i]-l)*(1-l)/(x-l)
		}
	}
	return r
}

func setLum(c [3]float32, l float32) [3]float32 {
	d := l - lumBlend(c)
	return clipColor([3]float32{c[0] + d, c[1] + d, c[2] + d})
}

func sat(c [3]float32) float32 {
	return max32(max32(c[0], c[1]), c[2]) - min32(min32(c[0], c[1]), c[2])
}

func setSat(c [3]float32, s float32) [3]float32 {
	mn := min32(min32(c[0], c[1]), c[2])
	mx := max32(max32(c[0], c[1]), c[2])
	if mx > mn {
		return [3]float32{
			(c[0] - mn) * s / (mx - mn),
			(c[1] - mn) * s / (mx - mn),
			(c[2] - mn) * s / (mx - mn),
		}
	}
	return [3]float32{}
}
