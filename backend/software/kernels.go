// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"

	"github.com/gogpu/imagecomp/device"
)

// kernel runs one full-target draw on the CPU.
type kernel func(c *ctx) error

// ctx carries the resolved state of one draw for kernel code.
type ctx struct {
	op   *device.DrawOp
	spec device.CompileSource
	dst  *texture
}

// uniform resolves a uniform by name, falling back to the compiled
// spec's default.
func (c *ctx) uniform(name string) device.Value {
	if v, ok := c.op.Uniforms[name]; ok {
		return v
	}
	for i := range c.spec.Uniforms {
		if c.spec.Uniforms[i].Name == name {
			return c.spec.Uniforms[i].Default
		}
	}
	return device.Value{}
}

func (c *ctx) f(name string) float32 { return c.uniform(name).Float1() }

func (c *ctx) vec4(name string) [4]float32 {
	var out [4]float32
	copy(out[:], c.uniform(name).Floats())
	return out
}

func (c *ctx) mat3(name string) [9]float32 { return c.uniform(name).Mat3Data() }

// channel returns the texture bound under name, or nil.
func (c *ctx) channel(name string) *texture {
	for _, b := range c.op.Channels {
		if b.Name == name && b.Texture != nil {
			return b.Texture.(*texture)
		}
	}
	return nil
}

// texel reads one texel, clamping coordinates to the edge. A nil
// texture samples transparent black.
func texel(t *texture, x, y int) [4]float32 {
	if t == nil {
		return [4]float32{}
	}
	if x < 0 {
		x = 0
	} else if x >= t.w {
		x = t.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= t.h {
		y = t.h - 1
	}
	i := (y*t.w + x) * 4
	return [4]float32{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

// sampleBilinear samples at pixel-space coordinates (sx, sy) measured
// in pixel centers, matching textureSample with a linear clamp-to-edge
// sampler. Sampling exactly at a texel center reads that texel.
func sampleBilinear(t *texture, sx, sy float32) [4]float32 {
	if t == nil {
		return [4]float32{}
	}
	fx := sx - 0.5
	fy := sy - 0.5
	x0 := int(floor32(fx))
	y0 := int(floor32(fy))
	wx := fx - float32(x0)
	wy := fy - float32(y0)

	var out [4]float32
	c00 := texel(t, x0, y0)
	c10 := texel(t, x0+1, y0)
	c01 := texel(t, x0, y0+1)
	c11 := texel(t, x0+1, y0+1)
	for i := 0; i < 4; i++ {
		top := c00[i] + (c10[i]-c00[i])*wx
		bot := c01[i] + (c11[i]-c01[i])*wx
		out[i] = top + (bot-top)*wy
	}
	return out
}

// sampleUV samples at normalized coordinates against the destination
// raster size, the common case for same-size full-screen passes.
func (c *ctx) sampleUV(t *texture, u, v float32) [4]float32 {
	if t == nil {
		return [4]float32{}
	}
	return sampleBilinear(t, u*float32(t.w), v*float32(t.h))
}

// eachPixel invokes fn for every destination pixel with its uv center
// and writes the returned premultiplied color.
func (c *ctx) eachPixel(fn func(x, y int, u, v float32) [4]float32) {
	w, h := c.op.Width, c.op.Height
	if w > c.dst.w {
		w = c.dst.w
	}
	if h > c.dst.h {
		h = c.dst.h
	}
	for y := 0; y < h; y++ {
		v := (float32(y) + 0.5) / float32(h)
		for x := 0; x < w; x++ {
			u := (float32(x) + 0.5) / float32(w)
			px := fn(x, y, u, v)
			i := (y*c.dst.w + x) * 4
			c.dst.pix[i] = px[0]
			c.dst.pix[i+1] = px[1]
			c.dst.pix[i+2] = px[2]
			c.dst.pix[i+3] = px[3]
		}
	}
}

func builtinKernels() map[string]kernel {
	return map[string]kernel{
		"layer.transform":  kernelTransform,
		"blend.composite":  kernelBlend,
		"adjust.basic":     kernelAdjust,
		"util.copy":        kernelCopy,
		"util.solid":       kernelSolid,
		"color.linearize":  kernelLinearize,
		"color.encode":     kernelEncode,
		"fx.bloom/extract": kernelBloomExtract,
		"fx.bloom/blur":    kernelBloomBlur,
		"fx.bloom/combine": kernelBloomCombine,
	}
}

func kernelTransform(c *ctx) error {
	src := c.channel("u_texture")
	m := c.mat3("u_transform")
	opacity := c.f("u_opacity")
	w := float32(c.op.Width)
	h := float32(c.op.Height)

	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		px := float32(x) + 0.5
		py := float32(y) + 0.5
		sx := m[0]*px + m[1]*py + m[2]
		sy := m[3]*px + m[4]*py + m[5]
		if sx < 0 || sy < 0 || sx >= w || sy >= h {
			return [4]float32{}
		}
		t := sampleBilinear(src, sx, sy)
		return [4]float32{t[0] * opacity, t[1] * opacity, t[2] * opacity, t[3] * opacity}
	})
	return nil
}

func kernelBlend(c *ctx) error {
	src := c.channel("u_texture")
	dst := c.channel("u_previousPass")
	mask := c.channel("u_mask")
	mode := int(c.f("u_blendMode") + 0.5)
	opacity := c.f("u_opacity")
	hasMask := c.f("u_hasMask") > 0.5
	maskInvert := c.f("u_maskInvert") > 0.5
	maskFeather := c.f("u_maskFeather")
	maskOpacity := c.f("u_maskOpacity")
	maskLum := c.f("u_maskMode") > 0.5
	seed := c.f("u_randomSeed")

	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		s := c.sampleUV(src, u, v)
		d := c.sampleUV(dst, u, v)

		alpha := opacity
		if hasMask {
			m := c.maskCoverage(mask, u, v, maskFeather, maskLum)
			if maskInvert {
				m = 1 - m
			}
			m = 1 + (m-1)*maskOpacity
			alpha *= m
		}

		if mode == 26 { // dissolve
			if hash12(float32(x), float32(y), seed) < s[3]*alpha {
				sc := unpremul(s)
				return [4]float32{sc[0], sc[1], sc[2], 1}
			}
			return d
		}

		sc := unpremul(s)
		dc := unpremul(d)
		bl := blendRGB(mode, sc, dc)
		var mixed [3]float32
		for i := 0; i < 3; i++ {
			mixed[i] = sc[i] + (bl[i]-sc[i])*d[3]
		}

		sa := s[3] * alpha
		outA := sa + d[3]*(1-sa)
		var out [4]float32
		for i := 0; i < 3; i++ {
			out[i] = mixed[i]*sa + dc[i]*d[3]*(1-sa)
		}
		out[3] = outA
		return out
	})
	return nil
}

func kernelAdjust(c *ctx) error {
	src := c.channel("u_texture")
	brightness := c.f("u_brightness") / 100
	contrast := c.f("u_contrast") / 100
	saturation := c.f("u_saturation") / 100
	hue := c.f("u_hue")
	exposure := c.f("u_exposure")
	gamma := c.f("u_gamma")
	invert := c.f("u_invert") > 0.5
	grayscale := c.f("u_grayscale") > 0.5
	sepia := c.f("u_sepia") > 0.5

	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		t := c.sampleUV(src, u, v)
		if t[3] <= 0 {
			return t
		}
		cc := unpremul(t)

		scale := exp2f(exposure) * brightness
		for i := 0; i < 3; i++ {
			cc[i] = (cc[i]*scale-0.5)*contrast + 0.5
		}

		g := lum709(cc)
		for i := 0; i < 3; i++ {
			cc[i] = g + (cc[i]-g)*saturation
		}

		if abs32(hue) > 0.0001 {
			cc = rotateHue(cc, hue)
		}
		if abs32(gamma-1) > 0.0001 {
			for i := 0; i < 3; i++ {
				cc[i] = pow32(max32(cc[i], 0), 1/gamma)
			}
		}
		if grayscale {
			yv := lum709(cc)
			cc = [3]float32{yv, yv, yv}
		}
		if sepia {
			yv := lum709(cc)
			cc = [3]float32{yv * 1.07, yv * 0.74, yv * 0.43}
		}
		if invert {
			for i := 0; i < 3; i++ {
				cc[i] = 1 - cc[i]
			}
		}

		for i := 0; i < 3; i++ {
			cc[i] = clamp01(cc[i])
		}
		return [4]float32{cc[0] * t[3], cc[1] * t[3], cc[2] * t[3], t[3]}
	})
	return nil
}

func kernelCopy(c *ctx) error {
	src := c.channel("u_texture")
	opacity := c.f("u_opacity")
	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		t := c.sampleUV(src, u, v)
		return [4]float32{t[0] * opacity, t[1] * opacity, t[2] * opacity, t[3] * opacity}
	})
	return nil
}

func kernelSolid(c *ctx) error {
	col := c.vec4("u_color")
	out := [4]float32{col[0] * col[3], col[1] * col[3], col[2] * col[3], col[3]}
	c.eachPixel(func(x, y int, u, v float32) [4]float32 { return out })
	return nil
}

func kernelLinearize(c *ctx) error {
	return transferKernel(c, srgbToLinear)
}

func kernelEncode(c *ctx) error {
	return transferKernel(c, linearToSRGB)
}

// transferKernel applies a per-channel transfer function on
// unpremultiplied color, skipping already-linear input.
func transferKernel(c *ctx, fn func(float32) float32) error {
	src := c.channel("u_texture")
	identity := c.f("u_colorSpace") == 1
	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		t := c.sampleUV(src, u, v)
		if identity || t[3] <= 0 {
			return t
		}
		cc := unpremul(t)
		return [4]float32{
			fn(cc[0]) * t[3],
			fn(cc[1]) * t[3],
			fn(cc[2]) * t[3],
			t[3],
		}
	})
	return nil
}

func kernelBloomExtract(c *ctx) error {
	src := c.channel("u_texture")
	threshold := c.f("u_threshold")
	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		t := c.sampleUV(src, u, v)
		yv := 0.2126*t[0] + 0.7152*t[1] + 0.0722*t[2]
		if yv < threshold*t[3] {
			return [4]float32{}
		}
		return t
	})
	return nil
}

func kernelBloomBlur(c *ctx) error {
	src := c.channel("u_previousPass")
	radius := c.f("u_radius")
	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		var acc [4]float32
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				t := c.sampleUV(src,
					u+float32(dx)*radius/float32(c.op.Width),
					v+float32(dy)*radius/float32(c.op.Height))
				for i := 0; i < 4; i++ {
					acc[i] += t[i]
				}
			}
		}
		for i := 0; i < 4; i++ {
			acc[i] /= 9
		}
		return acc
	})
	return nil
}

func kernelBloomCombine(c *ctx) error {
	base := c.channel("u_texture")
	glow := c.channel("u_previousPass")
	intensity := c.f("u_intensity")
	c.eachPixel(func(x, y int, u, v float32) [4]float32 {
		b := c.sampleUV(base, u, v)
		g := c.sampleUV(glow, u, v)
		var out [4]float32
		for i := 0; i < 4; i++ {
			out[i] = min32(b[i]+g[i]*intensity, 1)
		}
		return out
	})
	return nil
}

// maskCoverage feathers the mask with a 3x3 tap average spread feather
// pixels apart, reading the alpha channel by default and luminance of
// the color channels in luminance mode. Matches mask_coverage in the
// composite shader; a zero feather collapses every tap onto the center.
func (c *ctx) maskCoverage(mask *texture, u, v, feather float32, useLum bool) float32 {
	du := feather / float32(c.op.Width)
	dv := feather / float32(c.op.Height)
	var acc float32
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			t := c.sampleUV(mask, u+float32(dx)*du, v+float32(dy)*dv)
			if useLum {
				acc += 0.3*t[0] + 0.59*t[1] + 0.11*t[2]
			} else {
				acc += t[3]
			}
		}
	}
	return acc / 9
}

func unpremul(c [4]float32) [3]float32 {
	if c[3] <= 0 {
		return [3]float32{c[0], c[1], c[2]}
	}
	return [3]float32{c[0] / c[3], c[1] / c[3], c[2] / c[3]}
}

// hash12 matches the dissolve hash in the composite shader.
func hash12(x, y, seed float32) float32 {
	px := floor32(x)
	py := floor32(y)
	p3 := [3]float32{
		fract32(px*0.1031 + seed),
		fract32(py*0.1031 + seed),
		fract32(px*0.1031 + seed),
	}
	d := p3[0]*(p3[1]+33.33) + p3[1]*(p3[2]+33.33) + p3[2]*(p3[0]+33.33)
	for i := 0; i < 3; i++ {
		p3[i] += d
	}
	return fract32((p3[0] + p3[1]) * p3[2])
}

func rotateHue(c [3]float32, degrees float32) [3]float32 {
	a := float64(degrees) * math.Pi / 180
	cs := float32(math.Cos(a))
	sn := float32(math.Sin(a))
	yy := 0.299*c[0] + 0.587*c[1] + 0.114*c[2]
	ii := 0.596*c[0] - 0.274*c[1] - 0.322*c[2]
	qq := 0.211*c[0] - 0.523*c[1] + 0.312*c[2]
	i2 := ii*cs - qq*sn
	q2 := ii*sn + qq*cs
	return [3]float32{
		yy + 0.956*i2 + 0.621*q2,
		yy - 0.272*i2 - 0.647*q2,
		yy - 1.106*i2 + 1.703*q2,
	}
}

func lum709(c [3]float32) float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

func srgbToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return pow32((v+0.055)/1.055, 2.4)
}

func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*pow32(v, 1/2.4) - 0.055
}

func floor32(v float32) float32  { return float32(math.Floor(float64(v))) }
func sqrt32(v float32) float32   { return float32(math.Sqrt(float64(v))) }
func fract32(v float32) float32  { return v - floor32(v) }
func pow32(v, p float32) float32 { return float32(math.Pow(float64(v), float64(p))) }
func exp2f(v float32) float32    { return float32(math.Exp2(float64(v))) }
func abs32(v float32) float32    { return float32(math.Abs(float64(v))) }
func max32(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) }
func min32(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) }

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
