// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"
	"testing"
)

func closeTo(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestBlendChannel(t *testing.T) {
	tests := []struct {
		name string
		mode int
		s, b float32
		want float32
	}{
		{"normal", 0, 0.3, 0.9, 0.3},
		{"multiply", 1, 0.5, 0.8, 0.4},
		{"screen", 2, 0.5, 0.8, 0.9},
		{"overlayDark", 3, 0.5, 0.4, 0.4},
		{"overlayLight", 3, 0.5, 0.8, 0.8},
		{"hardLightDark", 5, 0.4, 0.5, 0.4},
		{"hardLightLight", 5, 0.8, 0.5, 0.8},
		{"colorDodge", 6, 0.5, 0.25, 0.5},
		{"colorDodgeSaturates", 6, 1, 0.5, 1},
		{"colorDodgeBlackBase", 6, 0.5, 0, 0},
		{"colorBurn", 7, 0.5, 0.75, 0.5},
		{"colorBurnBlackSource", 7, 0, 0.5, 0},
		{"colorBurnWhiteBase", 7, 0.5, 1, 1},
		{"linearBurn", 8, 0.4, 0.3, 0},
		{"linearBurnMid", 8, 0.7, 0.6, 0.3},
		{"linearDodge", 9, 0.4, 0.3, 0.7},
		{"linearDodgeClamps", 9, 0.8, 0.7, 1},
		{"darken", 10, 0.3, 0.6, 0.3},
		{"lighten", 11, 0.3, 0.6, 0.6},
		{"vividLightBurn", 14, 0.25, 0.5, 0},
		{"vividLightDodge", 14, 0.75, 0.5, 1},
		{"linearLight", 15, 0.5, 0.3, 0.3},
		{"linearLightClamps", 15, 0.9, 0.5, 1},
		{"pinLightDark", 16, 0.2, 0.6, 0.4},
		{"pinLightLight", 16, 0.9, 0.3, 0.8},
		{"hardMixLow", 17, 0.2, 0.3, 0},
		{"hardMixHigh", 17, 0.8, 0.3, 1},
		{"difference", 18, 0.7, 0.3, 0.4},
		{"exclusion", 19, 0.5, 0.5, 0.5},
		{"subtract", 20, 0.3, 0.7, 0.4},
		{"subtractClamps", 20, 0.8, 0.3, 0},
		{"divide", 21, 0.5, 0.25, 0.5},
		{"divideByZero", 21, 0, 0.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blendChannel(tt.mode, tt.s, tt.b); !closeTo(got, tt.want) {
				t.Errorf("blendChannel(%d, %v, %v) = %v, want %v",
					tt.mode, tt.s, tt.b, got, tt.want)
			}
		})
	}
}

func TestSoftLight(t *testing.T) {
	// s = 0.5 leaves the backdrop unchanged in both branches.
	for _, b := range []float32{0.1, 0.25, 0.6, 0.9} {
		if got := blendChannel(4, 0.5, b); !closeTo(got, b) {
			t.Errorf("softLight(0.5, %v) = %v, want %v", b, got, b)
		}
	}
	// Dark source darkens, light source lightens.
	if got := blendChannel(4, 0.2, 0.5); got >= 0.5 {
		t.Errorf("softLight(0.2, 0.5) = %v, want < 0.5", got)
	}
	if got := blendChannel(4, 0.8, 0.5); got <= 0.5 {
		t.Errorf("softLight(0.8, 0.5) = %v, want > 0.5", got)
	}
}

func TestBlendRGBColorChoice(t *testing.T) {
	dark := [3]float32{0.1, 0.1, 0.1}
	light := [3]float32{0.9, 0.9, 0.9}

	if got := blendRGB(12, light, dark); got != dark {
		t.Errorf("darkerColor = %v, want backdrop %v", got, dark)
	}
	if got := blendRGB(13, light, dark); got != light {
		t.Errorf("lighterColor = %v, want source %v", got, light)
	}
}

func TestBlendRGBNonSeparable(t *testing.T) {
	s := [3]float32{0.8, 0.2, 0.1}
	b := [3]float32{0.2, 0.5, 0.7}

	// Hue, saturation and color keep the backdrop's luminance.
	for _, mode := range []int{22, 23, 24} {
		got := blendRGB(mode, s, b)
		if !closeTo(lumBlend(got), lumBlend(b)) {
			t.Errorf("mode %d luminance = %v, want %v", mode, lumBlend(got), lumBlend(b))
		}
	}

	// Luminosity takes the source's luminance.
	got := blendRGB(25, s, b)
	if !closeTo(lumBlend(got), lumBlend(s)) {
		t.Errorf("luminosity luminance = %v, want %v", lumBlend(got), lumBlend(s))
	}

	// Hue carries the backdrop's saturation span.
	got = blendRGB(22, s, b)
	if !closeTo(sat(got), sat(b)) {
		t.Errorf("hue saturation = %v, want %v", sat(got), sat(b))
	}
}

func TestBlendRGBSeparableFallback(t *testing.T) {
	s := [3]float32{0.5, 0.5, 0.5}
	b := [3]float32{0.8, 0.4, 0.2}
	got := blendRGB(1, s, b)
	want := [3]float32{0.4, 0.2, 0.1}
	for i := range want {
		if !closeTo(got[i], want[i]) {
			t.Errorf("multiply channel %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSetLumClips(t *testing.T) {
	// Pushing saturated red to high luminance must stay in gamut.
	got := setLum([3]float32{1, 0, 0}, 0.9)
	for i, c := range got {
		if c < 0 || c > 1 {
			t.Errorf("channel %d = %v out of range", i, c)
		}
	}
	if !closeTo(lumBlend(got), 0.9) {
		t.Errorf("luminance = %v, want 0.9", lumBlend(got))
	}
}

func TestSetSat(t *testing.T) {
	c := [3]float32{0.2, 0.5, 0.8}
	got := setSat(c, 0.3)
	if !closeTo(sat(got), 0.3) {
		t.Errorf("sat = %v, want 0.3", sat(got))
	}

	// A gray input has no span to rescale.
	gray := setSat([3]float32{0.5, 0.5, 0.5}, 0.4)
	if gray != ([3]float32{}) {
		t.Errorf("setSat(gray) = %v, want zero", gray)
	}
}
