// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderer orchestrates a frame: it walks the resolved layer
// stack bottom to top, renders each contribution through the transform
// and filter stages, and accumulates the composite in ping-ponged
// targets before copying it to the stable result slot.
package renderer

import (
	"fmt"

	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/fbo"
	"github.com/gogpu/imagecomp/layer"
	"github.com/gogpu/imagecomp/pipeline"
	"github.com/gogpu/imagecomp/shader"
)

// AdjustFunc maps an effect's UI parameters to shader uniform values.
// The host injects its adjustments registry here; the default maps each
// parameter to a float uniform named u_<param>.
type AdjustFunc func(shaderName string, params map[string]float64) map[string]device.Value

// DefaultAdjust is the fallback parameter mapping.
func DefaultAdjust(shaderName string, params map[string]float64) map[string]device.Value {
	out := make(map[string]device.Value, len(params))
	for k, v := range params {
		name := k
		if len(name) < 2 || name[:2] != "u_" {
			name = "u_" + name
		}
		out[name] = device.Float(float32(v))
	}
	return out
}

// Options configures a Renderer. The zero value works.
type Options struct {
	// Adjust overrides the parameter mapping for filter and adjustment
	// passes. Nil selects DefaultAdjust.
	Adjust AdjustFunc
}

// Renderer drives the compositor for one execution mode. Like the
// executor beneath it, a Renderer lives on one goroutine.
type Renderer struct {
	exec   *pipeline.Executor
	adjust AdjustFunc
	groups map[string]struct{}
	trace  []TraceStep
}

// New creates a renderer over an executor.
func New(exec *pipeline.Executor, opts Options) *Renderer {
	adjust := opts.Adjust
	if adjust == nil {
		adjust = DefaultAdjust
	}
	return &Renderer{
		exec:   exec,
		adjust: adjust,
		groups: make(map[string]struct{}),
	}
}

// Frame is one render request: a resolved layer stack plus everything
// needed to draw it. The renderer reads the frame, never mutates it.
type Frame struct {
	// Layers is the ordered stack, bottom first.
	Layers []*layer.Layer

	// Textures maps texture IDs (layer sources, masks) to uploaded
	// textures. Entries are canvas-sized and premultiplied.
	Textures map[string]device.Texture

	// Placements gives each layer's resolved bounding box, keyed by
	// layer ID. Missing entries default to the full canvas.
	Placements map[string]Placement

	// Tool carries the live interactive parameters; they apply only to
	// the layer named by SelectedID.
	Tool       *ToolParams
	SelectedID string

	// Width and Height are the canvas size in pixels.
	Width, Height int

	// Time, Index and Seed feed the builtin uniforms u_time, u_frame
	// and u_randomSeed.
	Time  float32
	Index float32
	Seed  float32

	// ColorSpace is the frame's color space flag (0 sRGB, 1 linear,
	// 2 Display-P3).
	ColorSpace int
}

// RenderLayers composites the frame and returns the result texture. A
// frame with no contributing layers yields a transparent result. Every
// per-layer failure degrades to a skip; RenderLayers itself fails only
// when the result target cannot be allocated.
func (r *Renderer) RenderLayers(f *Frame) (device.Texture, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("render: %w: %dx%d", device.ErrInvalidDimensions, f.Width, f.Height)
	}

	r.trace = r.trace[:0]
	r.exec.SetFrame(pipeline.FrameState{
		Time:       f.Time,
		Frame:      f.Index,
		RandomSeed: f.Seed,
		ColorSpace: f.ColorSpace,
	})

	acc := r.compositeStack(f, f.Layers, rootSlots())
	if acc == nil {
		res, err := r.exec.Targets().Create(fbo.NameResult, f.Width, f.Height)
		if err != nil {
			return nil, err
		}
		if err := r.exec.Targets().Clear(fbo.NameResult, transparent); err != nil {
			return nil, err
		}
		r.step(TraceStep{Op: OpResult, Target: fbo.NameResult, Note: "empty frame"})
		return res.Texture(), nil
	}

	out := r.exec.RunSingle(&pipeline.Invocation{
		Shader:   shader.NameCopy,
		Target:   fbo.NameResult,
		Inputs:   channelMap(acc),
		Uniforms: map[string]device.Value{"u_opacity": device.Float(1)},
		Clear:    &transparent,
	}, f.Width, f.Height)
	if out == nil {
		return nil, fmt.Errorf("render: result copy failed")
	}
	r.step(TraceStep{Op: OpResult, Shader: shader.NameCopy, Target: fbo.NameResult})
	return out, nil
}

// RenderToCanvas blits the current result texture to an external
// framebuffer, typically the visible surface. The copy is unblended so
// the composite is not applied twice.
func (r *Renderer) RenderToCanvas(target device.Framebuffer, w, h int) error {
	res := r.exec.Targets().Get(fbo.NameResult)
	if res == nil {
		return fmt.Errorf("render: no result to present")
	}
	return r.exec.Present(res.Texture(), target, w, h)
}

// Resize drops the fixed pipeline slots and every group scratch target
// so the next frame reallocates them at the new canvas size.
func (r *Renderer) Resize() {
	t := r.exec.Targets()
	root := rootSlots()
	for _, name := range []string{root.ping, root.pong, root.temp, root.altTemp(), fbo.NameResult} {
		t.Release(name)
	}
	for id := range r.groups {
		gs := groupSlots(id)
		t.Release(gs.ping)
		t.Release(gs.pong)
		t.Release(gs.temp)
		t.Release(gs.altTemp())
		delete(r.groups, id)
	}
}

// Trace returns the step record of the last RenderLayers call. The
// slice is reused across frames; callers needing to keep it must copy.
func (r *Renderer) Trace() []TraceStep { return r.trace }
