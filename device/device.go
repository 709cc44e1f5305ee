// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the backend-neutral GPU abstraction used by the
// render core. Concrete implementations live under backend/ (a pure-Go
// software device and a wgpu-backed device).
//
// Key principle: the render core RECEIVES a device, it does not create one.
// The host application decides which backend runs on the main thread and
// which runs inside the worker; the two device instances never share
// resources.
package device

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Common device errors.
var (
	// ErrDeviceLost indicates the underlying GPU context has been lost.
	// All textures, framebuffers and programs created before the loss are
	// invalid and must be recreated.
	ErrDeviceLost = errors.New("device: context lost")

	// ErrCompileFailed indicates shader compilation or program linking
	// failed. The error message carries the compiler output.
	ErrCompileFailed = errors.New("device: program compilation failed")

	// ErrUnsupportedFormat indicates the device cannot create a render
	// target with the requested texture format.
	ErrUnsupportedFormat = errors.New("device: unsupported render target format")

	// ErrInvalidDimensions is returned for zero or negative texture sizes.
	ErrInvalidDimensions = errors.New("device: invalid texture dimensions")
)

// Texture is an opaque handle to a GPU texture owned by one device.
// Handles are comparable by identity: the FBO manager relies on pointer
// equality to detect read/write feedback hazards.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the pixel format of the texture.
	Format() gputypes.TextureFormat

	// Destroy releases the texture. The handle must not be used afterwards.
	Destroy()
}

// Framebuffer is a render target wrapping exactly one color texture.
type Framebuffer interface {
	// Texture returns the color attachment backing this framebuffer.
	Texture() Texture

	// Destroy releases the framebuffer but not its texture.
	Destroy()
}

// Program is a compiled shader program handle owned by one device.
type Program interface {
	// Name returns the debug label the program was compiled under.
	Name() string

	// Destroy releases the program.
	Destroy()
}

// CompileSource carries everything a device needs to build a program.
// Sources are WGSL; Defines have already been merged (descriptor defines
// first, variant defines on top) by the program runtime and are emitted
// as const declarations prepended to both stages.
type CompileSource struct {
	// Name is the shader plugin name, used for debug labels and for
	// kernel lookup on the software device.
	Name string

	// PassID distinguishes the passes of a multi-pass plugin.
	// Empty for single-pass plugins.
	PassID string

	// Vertex is the vertex stage source. Devices substitute a shared
	// full-screen-quad vertex stage when empty.
	Vertex string

	// Fragment is the fragment stage source.
	Fragment string

	// Defines is the merged define map. Bool false values are omitted
	// from emission entirely.
	Defines map[string]any

	// Uniforms declares the uniform block layout in declaration order.
	// The wgpu device packs values into a uniform buffer following this
	// order; the software device reads values by name.
	Uniforms []UniformSpec

	// Channels lists the sampler uniform names in declaration order.
	Channels []string
}

// UniformSpec declares one uniform of a shader program.
type UniformSpec struct {
	// Name is the uniform name, e.g. "u_opacity".
	Name string

	// Type is the uniform data type.
	Type UniformType

	// Default is used when an invocation does not supply a value.
	Default Value
}

// ChannelBinding pairs a declared sampler name with a concrete texture.
// A nil texture means "channel declared but unbound" and samples as
// transparent black.
type ChannelBinding struct {
	Name    string
	Texture Texture
}

// DrawOp is a single full-screen-quad draw: one program, one target,
// bound input channels and a resolved uniform set. Ops carry no device
// state; they are executed synchronously by Device.Draw.
type DrawOp struct {
	// Program must have been compiled by the same device.
	Program Program

	// Target receives the draw. It must be complete and its texture must
	// not appear in Channels (callers enforce this via the FBO manager).
	Target Framebuffer

	// Viewport width and height in pixels.
	Width, Height int

	// Channels are bound to texture units in slice order.
	Channels []ChannelBinding

	// Uniforms maps uniform names to values. Missing declared uniforms
	// fall back to their spec defaults.
	Uniforms map[string]Value

	// Clear, when non-nil, clears the target to the given premultiplied
	// RGBA before drawing.
	Clear *[4]float32
}

// Capabilities reports what a device instance can do. Resolved once at
// initialization, never re-probed per frame.
type Capabilities struct {
	// HalfFloatTarget is true when RGBA16Float render targets complete.
	HalfFloatTarget bool

	// MaxTextureSize is the maximum texture dimension (0 = unlimited).
	MaxTextureSize int

	// Name identifies the backend ("software", "wgpu").
	Name string
}

// Device is one GPU execution context. The render core constructs exactly
// one Device per execution mode (hybrid main-thread, worker offscreen);
// the two never share handles.
//
// All methods are synchronous. Devices are NOT safe for concurrent use;
// each lives on its own goroutine/context, matching the single-owner
// concurrency model of the render core.
type Device interface {
	// Capabilities reports backend capabilities.
	Capabilities() Capabilities

	// Compile builds a program from preprocessed sources. It returns
	// ErrCompileFailed (wrapped, with compiler output) on any stage or
	// link failure and never panics.
	Compile(src CompileSource) (Program, error)

	// NewTexture allocates an uninitialized texture.
	NewTexture(width, height int, format gputypes.TextureFormat) (Texture, error)

	// Upload writes tightly packed RGBA8 pixels (len = w*h*4) into tex.
	Upload(tex Texture, pixels []byte) error

	// NewFramebuffer wraps tex as a render target and validates
	// completeness. Fails with ErrUnsupportedFormat if the format cannot
	// be rendered to.
	NewFramebuffer(tex Texture) (Framebuffer, error)

	// Draw executes one full-screen-quad pass.
	Draw(op *DrawOp) error

	// ReadPixels copies the texture contents back to the CPU as tightly
	// packed RGBA8 (lossy for half-float targets). Intended for
	// presentation readback and tests.
	ReadPixels(tex Texture) ([]byte, error)

	// Destroy releases every resource the device still owns.
	Destroy()
}
