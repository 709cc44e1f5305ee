// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	_ "embed"

	"github.com/gogpu/imagecomp/device"
)

// Builtin shader sources. Fragment sources omit the vertex stage; the
// device prepends FullscreenVertexSource when Pass.Vertex is empty.
var (
	//go:embed shaders/fullscreen.wgsl
	fullscreenWGSL string

	//go:embed shaders/transform.wgsl
	transformWGSL string

	//go:embed shaders/blend.wgsl
	blendWGSL string

	//go:embed shaders/adjust.wgsl
	adjustWGSL string

	//go:embed shaders/copy.wgsl
	copyWGSL string

	//go:embed shaders/solid.wgsl
	solidWGSL string

	//go:embed shaders/linearize.wgsl
	linearizeWGSL string

	//go:embed shaders/encode.wgsl
	encodeWGSL string

	//go:embed shaders/bloom_extract.wgsl
	bloomExtractWGSL string

	//go:embed shaders/bloom_blur.wgsl
	bloomBlurWGSL string

	//go:embed shaders/bloom_combine.wgsl
	bloomCombineWGSL string
)

// FullscreenVertexSource is the shared oversized-triangle vertex stage.
// Devices prepend it to any pass whose Vertex source is empty.
func FullscreenVertexSource() string { return fullscreenWGSL }

// Names of the builtin shader plugins.
const (
	NameTransform = "layer.transform"
	NameBlend     = "blend.composite"
	NameAdjust    = "adjust.basic"
	NameCopy      = "util.copy"
	NameSolid     = "util.solid"
	NameLinearize = "color.linearize"
	NameEncode    = "color.encode"
	NameBloom     = "fx.bloom"
)

// builtinUniforms returns the uniform prefix every builtin declares.
// The declaration order here fixes the uniform buffer layout and must
// match the Params struct at the top of each WGSL source.
func builtinUniforms(extra ...device.UniformSpec) []device.UniformSpec {
	base := []device.UniformSpec{
		{Name: "u_resolution", Type: device.UniformVec2},
		{Name: "u_texelSize", Type: device.UniformVec2},
		{Name: "u_time", Type: device.UniformFloat},
		{Name: "u_frame", Type: device.UniformFloat},
		{Name: "u_randomSeed", Type: device.UniformFloat},
		{Name: "u_colorSpace", Type: device.UniformFloat},
	}
	return append(base, extra...)
}

// RegisterBuiltins installs the stock shader plugins into r. Callers
// that need custom effects register their own descriptors alongside.
func RegisterBuiltins(r *Registry) {
	r.Register(Descriptor{
		Name:     NameTransform,
		Fragment: transformWGSL,
		Policy:   Policies{Hybrid: PolicyEager, Worker: PolicyEager},
		Channels: []Channel{
			{Name: "u_texture", Semantic: SemanticCurrentLayer},
		},
		Uniforms: builtinUniforms(
			device.UniformSpec{Name: "u_opacity", Type: device.UniformFloat, Default: device.Float(1)},
			device.UniformSpec{Name: "u_transform", Type: device.UniformMat3},
		),
	})

	r.Register(Descriptor{
		Name:     NameBlend,
		Fragment: blendWGSL,
		Policy:   Policies{Hybrid: PolicyEager, Worker: PolicyEager},
		Channels: []Channel{
			{Name: "u_texture", Semantic: SemanticCurrentLayer},
			{Name: "u_previousPass", Semantic: SemanticPreviousPass},
			{Name: "u_mask", Semantic: SemanticMask},
		},
		Uniforms: builtinUniforms(
			device.UniformSpec{Name: "u_blendMode", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_opacity", Type: device.UniformFloat, Default: device.Float(1)},
			device.UniformSpec{Name: "u_hasMask", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_maskInvert", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_maskFeather", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_maskOpacity", Type: device.UniformFloat, Default: device.Float(1)},
			device.UniformSpec{Name: "u_maskMode", Type: device.UniformFloat},
		),
		Defines: map[string]any{"USE_MASK": false},
		Variants: []Variant{
			{Key: "masked", Defines: map[string]any{"USE_MASK": true}},
		},
	})

	r.Register(Descriptor{
		Name:     NameAdjust,
		Fragment: adjustWGSL,
		Policy:   Policies{Hybrid: PolicyWarm, Worker: PolicyWarm},
		Channels: []Channel{
			{Name: "u_texture", Semantic: SemanticCurrentLayer},
		},
		Uniforms: builtinUniforms(
			device.UniformSpec{Name: "u_brightness", Type: device.UniformFloat, Default: device.Float(100)},
			device.UniformSpec{Name: "u_contrast", Type: device.UniformFloat, Default: device.Float(100)},
			device.UniformSpec{Name: "u_saturation", Type: device.UniformFloat, Default: device.Float(100)},
			device.UniformSpec{Name: "u_hue", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_exposure", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_gamma", Type: device.UniformFloat, Default: device.Float(1)},
			device.UniformSpec{Name: "u_invert", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_grayscale", Type: device.UniformFloat},
			device.UniformSpec{Name: "u_sepia", Type: device.UniformFloat},
		),
	})

	r.Register(Descriptor{
		Name:     NameCopy,
		Fragment: copyWGSL,
		Policy:   Policies{Hybrid: PolicyEager, Worker: PolicyEager},
		Channels: []Channel{
			{Name: "u_texture", Semantic: SemanticCurrentLayer},
		},
		Uniforms: builtinUniforms(
			device.UniformSpec{Name: "u_opacity", Type: device.UniformFloat, Default: device.Float(1)},
		),
	})

	r.Register(Descriptor{
		Name:     NameSolid,
		Fragment: solidWGSL,
		Policy:   Policies{Hybrid: PolicyLazy, Worker: PolicyLazy},
		Uniforms: builtinUniforms(
			device.UniformSpec{Name: "u_color", Type: device.UniformVec4},
		),
	})

	r.Register(Descriptor{
		Name:     NameLinearize,
		Fragment: linearizeWGSL,
		Policy:   Policies{Hybrid: PolicyWarm, Worker: PolicyWarm},
		Channels: []Channel{
			{Name: "u_texture", Semantic: SemanticCurrentLayer},
		},
		Uniforms: builtinUniforms(),
	})

	r.Register(Descriptor{
		Name:     NameEncode,
		Fragment: encodeWGSL,
		Policy:   Policies{Hybrid: PolicyWarm, Worker: PolicyWarm},
		Channels: []Channel{
			{Name: "u_texture", Semantic: SemanticCurrentLayer},
		},
		Uniforms: builtinUniforms(),
	})

	r.Register(Descriptor{
		Name:     NameBloom,
		Policy:   Policies{Hybrid: PolicyLazy, Worker: PolicyLazy},
		Uniforms: builtinUniforms(),
		Passes: []Pass{
			{
				ID:       "extract",
				Fragment: bloomExtractWGSL,
				Channels: []Channel{
					{Name: "u_texture", Semantic: SemanticCurrentLayer},
				},
				Uniforms: []device.UniformSpec{
					{Name: "u_threshold", Type: device.UniformFloat, Default: device.Float(0.8)},
				},
			},
			{
				ID:       "blur",
				Fragment: bloomBlurWGSL,
				Inputs:   []string{"extract"},
				Channels: []Channel{
					{Name: "u_previousPass", Semantic: SemanticPreviousPass},
				},
				Uniforms: []device.UniformSpec{
					{Name: "u_radius", Type: device.UniformFloat, Default: device.Float(2)},
				},
			},
			{
				ID:       "combine",
				Fragment: bloomCombineWGSL,
				Inputs:   []string{"blur"},
				Channels: []Channel{
					{Name: "u_texture", Semantic: SemanticCurrentLayer},
					{Name: "u_previousPass", Semantic: SemanticPreviousPass},
				},
				Uniforms: []device.UniformSpec{
					{Name: "u_intensity", Type: device.UniformFloat, Default: device.Float(1)},
				},
			},
		},
	})
}
