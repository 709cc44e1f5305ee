// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layer models the document layer stack the renderer consumes:
// image, adjustment, solid and group layers with per-layer blend mode,
// opacity, mask and filter parameters.
package layer

// Kind discriminates the layer variants.
type Kind uint8

// Layer kinds.
const (
	// KindImage is a raster layer backed by an uploaded texture.
	KindImage Kind = iota

	// KindAdjustment applies a filter to everything beneath it instead
	// of contributing pixels of its own.
	KindAdjustment

	// KindGroup nests child layers, composited in isolation and then
	// blended as a single contribution.
	KindGroup

	// KindSolid is a uniform fill generated on the GPU, no source
	// texture required.
	KindSolid
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAdjustment:
		return "adjustment"
	case KindGroup:
		return "group"
	case KindSolid:
		return "solid"
	default:
		return "unknown"
	}
}

// Mask is an optional per-layer alpha mask.
type Mask struct {
	// TextureID names the uploaded mask texture in the renderer's
	// texture table. Empty means the layer has no mask this frame.
	TextureID string

	// Invert flips the mask sense.
	Invert bool

	// Feather is the softening radius in pixels.
	Feather float32

	// Opacity scales the mask effect, 0..1.
	Opacity float32

	// Mode selects how the mask combines ("alpha" is the default).
	Mode string
}

// Filter is one effect applied to a layer: a shader plugin name plus
// its parameters.
type Filter struct {
	// Shader names the registered plugin, e.g. "adjust.basic".
	Shader string

	// VariantKey selects a compile variant.
	VariantKey string

	// Params are the effect parameters by uniform name.
	Params map[string]float64
}

// Layer is one node of the document stack. The renderer never mutates
// layers; the host owns them and passes a snapshot per frame.
type Layer struct {
	// ID uniquely identifies the layer within the document.
	ID string

	// Kind discriminates the variant.
	Kind Kind

	// Visible layers contribute to the composite. An invisible group
	// hides its entire subtree.
	Visible bool

	// Opacity in percent, 0..100.
	Opacity float64

	// BlendMode selects the composite operator against the backdrop.
	BlendMode BlendMode

	// TextureID names the uploaded source texture for image layers.
	TextureID string

	// Color is the premultiplied fill for solid layers.
	Color [4]float32

	// Filters run in order before the layer is composited.
	Filters []Filter

	// Mask is the optional alpha mask.
	Mask *Mask

	// Children holds the subtree of a group layer.
	Children []*Layer

	// Collapsed is a UI hint only; it never affects rendering.
	Collapsed bool
}

// OpacityFraction clamps Opacity to 0..100 and returns it as 0..1.
func (l *Layer) OpacityFraction() float32 {
	o := l.Opacity
	if o < 0 {
		o = 0
	} else if o > 100 {
		o = 100
	}
	return float32(o / 100)
}

// Contributes reports whether the layer adds anything to the composite:
// it must be visible and, for groups, have at least one contributing
// child.
func (l *Layer) Contributes() bool {
	if !l.Visible {
		return false
	}
	if l.Kind != KindGroup {
		return true
	}
	for _, c := range l.Children {
		if c.Contributes() {
			return true
		}
	}
	return false
}
