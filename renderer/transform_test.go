// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func matNear(a, b Matrix) bool {
	return near(a.A, b.A) && near(a.B, b.B) && near(a.C, b.C) &&
		near(a.D, b.D) && near(a.E, b.E) && near(a.F, b.F)
}

func TestMatrixApply(t *testing.T) {
	m := Translate(10, 20).Multiply(Scale(2, 3))
	x, y := m.Apply(4, 5)
	if !near(x, 18) || !near(y, 35) {
		t.Errorf("Apply = (%v, %v), want (18, 35)", x, y)
	}
}

func TestMatrixInvertRoundTrip(t *testing.T) {
	m := Translate(30, -12).Multiply(Rotate(0.7)).Multiply(Scale(2, 0.5))
	got := m.Multiply(m.Invert())
	if !matNear(got, Identity()) {
		t.Errorf("m * m^-1 = %+v, want identity", got)
	}

	x, y := m.Invert().Apply(m.Apply(7, 11))
	if !near(x, 7) || !near(y, 11) {
		t.Errorf("round trip = (%v, %v), want (7, 11)", x, y)
	}
}

func TestMatrixInvertSingular(t *testing.T) {
	m := Scale(0, 0)
	if got := m.Invert(); !got.IsIdentity() {
		t.Errorf("singular inverse = %+v, want identity", got)
	}
}

func TestMatrixUniform(t *testing.T) {
	m := Matrix{A: 1, B: 2, C: 3, D: 4, E: 5, F: 6}
	data := m.Uniform().Mat3Data()
	want := [9]float32{1, 2, 3, 4, 5, 6, 0, 0, 1}
	if data != want {
		t.Errorf("Uniform = %v, want %v", data, want)
	}
}

func TestLayerMatrixNilTool(t *testing.T) {
	m := layerMatrix(Placement{X: 10, Y: 10, Width: 50, Height: 50}, nil, 100, 100)
	if !m.IsIdentity() {
		t.Errorf("nil tool matrix = %+v, want identity", m)
	}
}

func TestLayerMatrixZeroZoom(t *testing.T) {
	m := layerMatrix(Placement{}, &ToolParams{}, 100, 100)
	if !matNear(m, Identity()) {
		t.Errorf("zero-value tool matrix = %+v, want identity", m)
	}
}

func TestLayerMatrixFlipH(t *testing.T) {
	// Flip around the canvas center: x -> w - x.
	m := layerMatrix(Placement{}, &ToolParams{FlipH: true}, 100, 80)
	x, y := m.Apply(0, 10)
	if !near(x, 100) || !near(y, 10) {
		t.Errorf("flipped (0,10) = (%v, %v), want (100, 10)", x, y)
	}
}

func TestLayerMatrixPivotsOnPlacement(t *testing.T) {
	// A placement's own center stays fixed under zoom.
	p := Placement{X: 20, Y: 30, Width: 40, Height: 20}
	m := layerMatrix(p, &ToolParams{Zoom: 3}, 200, 200)
	cx, cy := p.Center()
	x, y := m.Apply(cx, cy)
	if !near(x, cx) || !near(y, cy) {
		t.Errorf("center moved to (%v, %v), want (%v, %v)", x, y, cx, cy)
	}

	// A point off center scales away from it.
	x, _ = m.Apply(cx+5, cy)
	if !near(x, cx+15) {
		t.Errorf("scaled x = %v, want %v", x, cx+15)
	}
}

func TestLayerMatrixOffset(t *testing.T) {
	m := layerMatrix(Placement{}, &ToolParams{OffsetX: 7, OffsetY: -3}, 100, 100)
	x, y := m.Apply(10, 10)
	if !near(x, 17) || !near(y, 7) {
		t.Errorf("offset (10,10) = (%v, %v), want (17, 7)", x, y)
	}
}

func TestLayerMatrixRotation(t *testing.T) {
	// 90 degrees around the canvas center of a 100x100 canvas maps
	// (50, 0) to (100, 50).
	m := layerMatrix(Placement{}, &ToolParams{Rotation: 90}, 100, 100)
	x, y := m.Apply(50, 0)
	if !near(x, 100) || !near(y, 50) {
		t.Errorf("rotated (50,0) = (%v, %v), want (100, 50)", x, y)
	}
}
