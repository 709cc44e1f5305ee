// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"math"

	"github.com/gogpu/imagecomp/device"
)

// Matrix is a 2D affine transformation over canvas pixel coordinates.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translate creates a translation matrix.
func Translate(x, y float64) Matrix {
	return Matrix{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scale creates a scaling matrix. Negative factors flip.
func Scale(x, y float64) Matrix {
	return Matrix{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotate creates a rotation matrix (angle in radians).
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin, C: 0,
		D: sin, E: cos, F: 0,
	}
}

// Multiply multiplies two matrices (m * other).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// Apply transforms a point.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

// Invert returns the inverse matrix.
// Returns the identity matrix if the matrix is not invertible.
func (m Matrix) Invert() Matrix {
	det := m.A*m.E - m.B*m.D
	if math.Abs(det) < 1e-10 {
		return Identity()
	}

	invDet := 1.0 / det
	return Matrix{
		A: m.E * invDet,
		B: -m.B * invDet,
		C: (m.B*m.F - m.C*m.E) * invDet,
		D: -m.D * invDet,
		E: m.A * invDet,
		F: (m.C*m.D - m.A*m.F) * invDet,
	}
}

// IsIdentity returns true if the matrix is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m.A == 1 && m.B == 0 && m.C == 0 &&
		m.D == 0 && m.E == 1 && m.F == 0
}

// Uniform packs the matrix into a row-major mat3 uniform value
// (third row 0 0 1).
func (m Matrix) Uniform() device.Value {
	return device.Mat3([9]float32{
		float32(m.A), float32(m.B), float32(m.C),
		float32(m.D), float32(m.E), float32(m.F),
		0, 0, 1,
	})
}

// Placement is a layer's resolved position and size on the canvas, in
// pixels. The host resolves placement; the renderer only consumes it.
type Placement struct {
	X, Y          float64
	Width, Height float64
}

// Center returns the placement's canvas-space center.
func (p Placement) Center() (float64, float64) {
	return p.X + p.Width/2, p.Y + p.Height/2
}

// ToolParams are the live interactive parameters of the currently
// selected layer: flip, rotate and zoom previews plus any in-flight
// effect values. Non-selected layers render from their stored state.
type ToolParams struct {
	// Zoom is the preview scale factor. Zero means 1 (no zoom).
	Zoom float64

	// Rotation is the preview rotation in degrees, clockwise.
	Rotation float64

	// FlipH and FlipV mirror the layer around its center.
	FlipH bool
	FlipV bool

	// OffsetX and OffsetY shift the layer center in canvas pixels.
	OffsetX float64
	OffsetY float64

	// Filter holds in-flight effect parameter values merged over the
	// selected layer's stored filter parameters.
	Filter map[string]float64
}

// layerMatrix builds the forward transform of one layer: scale, rotation
// and flips around the layer's canvas-space center, then the interactive
// offset. Layer textures arrive canvas-sized and pre-placed, so a nil
// tool (no live parameters) yields the identity.
func layerMatrix(p Placement, tool *ToolParams, canvasW, canvasH int) Matrix {
	if tool == nil {
		return Identity()
	}

	cx, cy := p.Center()
	if p.Width == 0 || p.Height == 0 {
		cx, cy = float64(canvasW)/2, float64(canvasH)/2
	}

	sx, sy := tool.Zoom, tool.Zoom
	if sx == 0 {
		sx, sy = 1, 1
	}
	if tool.FlipH {
		sx = -sx
	}
	if tool.FlipV {
		sy = -sy
	}

	m := Translate(cx+tool.OffsetX, cy+tool.OffsetY)
	m = m.Multiply(Rotate(tool.Rotation * math.Pi / 180))
	m = m.Multiply(Scale(sx, sy))
	m = m.Multiply(Translate(-cx, -cy))
	return m
}
