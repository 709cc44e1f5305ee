// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader holds the plugin registry of the render core: versioned,
// immutable shader descriptors covering sources, uniforms, channel
// semantics, variants and per-mode compile policies. The registry carries
// no GPU state; compilation belongs to the program runtimes.
package shader

import "github.com/gogpu/imagecomp/device"

// Mode identifies one of the two program-compilation runtimes.
type Mode uint8

// Execution modes.
const (
	// ModeHybrid is the main-thread runtime with synchronous draw calls.
	ModeHybrid Mode = iota

	// ModeWorker is the offscreen runtime driven over a message channel.
	ModeWorker
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeHybrid:
		return "hybrid"
	case ModeWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// CompilePolicy controls when a descriptor is compiled in a given mode.
type CompilePolicy uint8

// Compile policies.
const (
	// PolicyLazy compiles on first use.
	PolicyLazy CompilePolicy = iota

	// PolicyWarm compiles during the mode-switch handshake.
	PolicyWarm

	// PolicyEager compiles as soon as the runtime initializes.
	PolicyEager
)

// ChannelSemantic declares the role of an input channel so the pipeline
// can bind the right texture without the plugin knowing slot numbers.
type ChannelSemantic uint8

// Channel semantics.
const (
	// SemanticCurrentLayer receives the layer texture being processed.
	SemanticCurrentLayer ChannelSemantic = iota

	// SemanticPreviousPass receives the upstream pass output in a DAG.
	SemanticPreviousPass

	// SemanticMask receives the layer's mask texture, if any.
	SemanticMask

	// SemanticLUT3D receives a color lookup table texture.
	SemanticLUT3D

	// SemanticCustom0 through SemanticCustom3 are plugin-defined inputs.
	SemanticCustom0
	SemanticCustom1
	SemanticCustom2
	SemanticCustom3
)

// Channel declares one named sampler input of a shader.
type Channel struct {
	// Name is the sampler uniform name, e.g. "u_texture".
	Name string

	// Semantic tells the pipeline which texture to bind.
	Semantic ChannelSemantic
}

// Variant is a named define overlay. Variant defines are merged on top of
// the descriptor's global defines at compile time, producing a distinct
// cache entry per variant key.
type Variant struct {
	Key     string
	Defines map[string]any
}

// Pass describes one node of a multi-pass plugin. Each pass has its own
// fragment source and declares the upstream passes it consumes.
type Pass struct {
	// ID is unique within the descriptor.
	ID string

	// Fragment is the pass's fragment source.
	Fragment string

	// Inputs names the upstream pass IDs whose outputs this pass reads.
	// Passes with no inputs are graph roots.
	Inputs []string

	// Channels declares this pass's sampler inputs.
	Channels []Channel

	// Uniforms declares pass-specific uniforms appended to the
	// descriptor-level uniform block.
	Uniforms []device.UniformSpec
}

// Policies binds a compile policy to each execution mode.
type Policies struct {
	Hybrid CompilePolicy
	Worker CompilePolicy
}

// ForMode returns the policy for the given mode.
func (p Policies) ForMode(m Mode) CompilePolicy {
	if m == ModeWorker {
		return p.Worker
	}
	return p.Hybrid
}

// Descriptor is one registered shader plugin. Descriptors are immutable
// once registered; the registry hands out shared pointers and callers
// must not mutate them. A descriptor is either single-pass (Vertex and
// Fragment set, Passes empty) or multi-pass (Passes set).
type Descriptor struct {
	// Name uniquely identifies the plugin within a registry.
	Name string

	// Version is assigned by the registry on registration and bumps on
	// every re-registration, invalidating cached programs by key.
	Version uint64

	// Vertex is the single-pass vertex source. Empty selects the shared
	// full-screen-quad stage.
	Vertex string

	// Fragment is the single-pass fragment source.
	Fragment string

	// Passes holds the multi-pass graph, if any.
	Passes []Pass

	// Defines are global compile-time defines.
	Defines map[string]any

	// Uniforms declares the uniform block in declaration order.
	Uniforms []device.UniformSpec

	// Channels declares sampler inputs in declaration order. The first
	// four are additionally aliased as u_channel0..3.
	Channels []Channel

	// Variants are the compile variants this plugin supports.
	Variants []Variant

	// Policy controls compile timing per mode.
	Policy Policies
}

// MultiPass reports whether the descriptor declares a pass graph.
func (d *Descriptor) MultiPass() bool { return len(d.Passes) > 0 }

// FindPass returns the pass with the given ID, or nil.
func (d *Descriptor) FindPass(id string) *Pass {
	for i := range d.Passes {
		if d.Passes[i].ID == id {
			return &d.Passes[i]
		}
	}
	return nil
}

// FindVariant returns the variant with the given key, or nil. The empty
// key always resolves to a nil variant (base compile).
func (d *Descriptor) FindVariant(key string) *Variant {
	if key == "" {
		return nil
	}
	for i := range d.Variants {
		if d.Variants[i].Key == key {
			return &d.Variants[i]
		}
	}
	return nil
}
