// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package imagecomp

import (
	"fmt"

	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/fbo"
	"github.com/gogpu/imagecomp/pipeline"
	"github.com/gogpu/imagecomp/program"
	"github.com/gogpu/imagecomp/renderer"
	"github.com/gogpu/imagecomp/shader"
)

// Options configures an Engine. The zero value registers the builtin
// plugins and uses the default adjustment mapping.
type Options struct {
	// Adjust maps effect UI parameters to shader uniforms. Nil selects
	// renderer.DefaultAdjust.
	Adjust renderer.AdjustFunc

	// SkipBuiltins leaves the registry empty; the host registers every
	// plugin itself.
	SkipBuiltins bool
}

// Engine is one editor session's render core: the shader registry, one
// program runtime per execution mode, and the per-mode FBO managers and
// renderers. There are no package-level instances; everything hangs off
// an Engine the host constructs and owns.
//
// The registry is shared between modes and survives GPU context loss.
// Everything device-bound (programs, FBOs) is per mode and never crosses
// between them.
type Engine struct {
	registry *shader.Registry
	adjust   renderer.AdjustFunc

	runtimes  [2]*program.Runtime
	managers  [2]*fbo.Manager
	executors [2]*pipeline.Executor
	renderers [2]*renderer.Renderer

	active shader.Mode
}

// NewEngine creates an engine. Each mode the host wants to render in
// must be bound to a device with InitializeMode before use.
func NewEngine(opts Options) *Engine {
	reg := shader.NewRegistry()
	if !opts.SkipBuiltins {
		shader.RegisterBuiltins(reg)
	}
	adjust := opts.Adjust
	if adjust == nil {
		adjust = renderer.DefaultAdjust
	}

	e := &Engine{registry: reg, adjust: adjust}
	e.runtimes[shader.ModeHybrid] = program.NewRuntime(shader.ModeHybrid)
	e.runtimes[shader.ModeWorker] = program.NewRuntime(shader.ModeWorker)
	return e
}

// Registry returns the session's shader registry.
func (e *Engine) Registry() *shader.Registry { return e.registry }

// ActiveMode returns the currently active execution mode.
func (e *Engine) ActiveMode() shader.Mode { return e.active }

// Runtime returns the program runtime of the given mode.
func (e *Engine) Runtime(mode shader.Mode) *program.Runtime {
	return e.runtimes[mode]
}

// Renderer returns the active mode's renderer, or nil when the active
// mode has not been initialized.
func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderers[e.active]
}

// Targets returns the active mode's FBO manager, or nil when the active
// mode has not been initialized.
func (e *Engine) Targets() *fbo.Manager {
	return e.managers[e.active]
}

// InitializeMode binds one execution mode to a device and builds its
// runtime, FBO manager and renderer. Eager-policy programs compile here.
func (e *Engine) InitializeMode(mode shader.Mode, dev device.Device) {
	rt := e.runtimes[mode]
	rt.Initialize(dev, e.registry)

	mgr := fbo.NewManager(dev)
	mgr.Initialize()

	exec := pipeline.NewExecutor(rt, mgr)
	e.managers[mode] = mgr
	e.executors[mode] = exec
	e.renderers[mode] = renderer.New(exec, renderer.Options{Adjust: e.adjust})
}

// PrepareForMode pre-warms the target mode's runtime ahead of a mode
// switch: every eager- and warm-policy descriptor compiles on the
// target device before the active mode flips. The host freezes new
// frame submissions around PrepareForMode + SetActiveMode.
func (e *Engine) PrepareForMode(next shader.Mode) error {
	if e.renderers[next] == nil {
		return fmt.Errorf("engine: mode %s not initialized", next)
	}
	e.runtimes[next].WarmPrograms()
	return nil
}

// SetActiveMode flips the active mode. Call PrepareForMode first so the
// incoming mode starts with its working set compiled.
func (e *Engine) SetActiveMode(next shader.Mode) error {
	if e.renderers[next] == nil {
		return fmt.Errorf("engine: mode %s not initialized", next)
	}
	e.active = next
	return nil
}

// RenderLayers composites one frame on the active mode and returns the
// result texture.
func (e *Engine) RenderLayers(f *renderer.Frame) (device.Texture, error) {
	r := e.Renderer()
	if r == nil {
		return nil, fmt.Errorf("engine: active mode %s not initialized", e.active)
	}
	return r.RenderLayers(f)
}

// RenderToCanvas blits the last composited result to the visible
// surface.
func (e *Engine) RenderToCanvas(target device.Framebuffer, w, h int) error {
	r := e.Renderer()
	if r == nil {
		return fmt.Errorf("engine: active mode %s not initialized", e.active)
	}
	return r.RenderToCanvas(target, w, h)
}

// Resize invalidates the fixed pipeline targets of every initialized
// mode; the next frame reallocates them at the new canvas size.
func (e *Engine) Resize() {
	for _, r := range e.renderers {
		if r != nil {
			r.Resize()
		}
	}
}

// RecoverFromContextLoss rebuilds one mode after its GPU context was
// lost: cached programs and FBOs are dropped and the warm working set
// recompiles from the registry, which survives the loss. The in-flight
// frame is abandoned; the next RenderLayers call renders fresh.
func (e *Engine) RecoverFromContextLoss(mode shader.Mode) {
	rt := e.runtimes[mode]
	rt.Clear()
	if mgr := e.managers[mode]; mgr != nil {
		mgr.Cleanup()
	}
	if e.renderers[mode] != nil {
		rt.WarmPrograms()
	}
}

// Close releases every device-bound resource of every initialized mode.
// Devices themselves belong to the host and are not destroyed here.
func (e *Engine) Close() {
	for i := range e.runtimes {
		if e.runtimes[i] != nil {
			e.runtimes[i].Clear()
		}
		if e.managers[i] != nil {
			e.managers[i].Cleanup()
		}
	}
}
