// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline turns shader invocations into draw calls: it resolves
// descriptors, binds channel textures by semantic, injects the per-frame
// builtin uniforms and executes single passes or whole pass graphs.
package pipeline

import (
	"fmt"

	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/fbo"
	"github.com/gogpu/imagecomp/internal/logging"
	"github.com/gogpu/imagecomp/program"
	"github.com/gogpu/imagecomp/shader"
)

// Color space identifiers carried in u_colorSpace.
const (
	ColorSpaceSRGB   = 0
	ColorSpaceLinear = 1
	ColorSpaceP3     = 2
)

// FrameState is the per-frame builtin uniform set shared by every
// invocation of one frame.
type FrameState struct {
	Time       float32
	Frame      float32
	RandomSeed float32
	ColorSpace int
}

// Invocation asks for one shader to run against a named target.
type Invocation struct {
	// Shader names the registered descriptor.
	Shader string

	// VariantKey selects a compile variant; empty is the base compile.
	VariantKey string

	// Target is the FBO name to draw into. The target is created (or
	// resized) on demand.
	Target string

	// Inputs maps channel semantics to textures. Channels whose semantic
	// has no entry are bound unfilled and sample transparent black.
	Inputs map[shader.ChannelSemantic]device.Texture

	// Uniforms are effect parameters by name. Builtins are injected on
	// top and win on collision.
	Uniforms map[string]device.Value

	// Clear, when non-nil, clears the target before the draw.
	Clear *[4]float32
}

// Executor runs invocations for one execution mode. Not safe for
// concurrent use.
type Executor struct {
	runtime *program.Runtime
	targets *fbo.Manager
	frame   FrameState
}

// NewExecutor creates an executor over an initialized runtime and FBO
// manager belonging to the same device.
func NewExecutor(rt *program.Runtime, targets *fbo.Manager) *Executor {
	return &Executor{runtime: rt, targets: targets}
}

// SetFrame installs the builtin uniform state for the current frame.
func (e *Executor) SetFrame(fs FrameState) { e.frame = fs }

// Targets returns the executor's FBO manager.
func (e *Executor) Targets() *fbo.Manager { return e.targets }

// RunSingle executes one single-pass invocation at w x h and returns
// the texture the pass rendered into. It returns nil when the shader is
// unknown, fails to compile, or when binding an input would create a
// feedback loop with the target; every such case is logged, never fatal.
func (e *Executor) RunSingle(inv *Invocation, w, h int) device.Texture {
	desc := e.descriptor(inv.Shader)
	if desc == nil {
		return nil
	}
	if desc.MultiPass() {
		return e.RunDAG(inv, w, h)
	}
	return e.runPass(desc, nil, inv, inv.Target, w, h)
}

// RunDAG executes a multi-pass invocation: passes run in dependency
// order, each into its own intermediate target, and the output of the
// final resolvable pass is returned. A cycle or a missing input does
// not abort the frame; the resolvable subset still runs and the rest is
// logged and skipped.
func (e *Executor) RunDAG(inv *Invocation, w, h int) device.Texture {
	desc := e.descriptor(inv.Shader)
	if desc == nil {
		return nil
	}
	if !desc.MultiPass() {
		return e.runPass(desc, nil, inv, inv.Target, w, h)
	}

	order, unresolved := topoOrder(desc.Passes)
	if len(unresolved) > 0 {
		logging.L().Warn("pass graph not fully resolvable",
			"shader", desc.Name, "skipped", unresolved)
	}

	outputs := make(map[string]device.Texture, len(order))
	var last device.Texture
	for i, pass := range order {
		// The terminal pass lands in the caller's target; intermediates
		// get their own named scratch FBOs.
		target := inv.Target
		if i < len(order)-1 {
			target = "dag:" + desc.Name + ":" + pass.ID
		}

		out := e.runPass(desc, pass, &Invocation{
			Shader:     inv.Shader,
			VariantKey: inv.VariantKey,
			Inputs:     passInputs(inv.Inputs, pass, outputs),
			Uniforms:   inv.Uniforms,
			Clear:      inv.Clear,
		}, target, w, h)
		if out == nil {
			logging.L().Warn("pass failed, continuing graph",
				"shader", desc.Name, "pass", pass.ID)
			continue
		}
		outputs[pass.ID] = out
		last = out
	}

	// Intermediate targets go back to the pool once the graph is done.
	// When a downstream pass failed, last still points at an
	// intermediate; that one must stay live, or the pool would hand its
	// texture out again while the caller samples it.
	for i, pass := range order {
		if i >= len(order)-1 {
			continue
		}
		name := "dag:" + desc.Name + ":" + pass.ID
		if f := e.targets.Get(name); f != nil && f.Texture() == last {
			continue
		}
		e.targets.Release(name)
	}
	return last
}

// Present copies tex into an external framebuffer with one unblended
// full-screen draw. This is the final blit to the visible surface; it
// bypasses the FBO manager because the surface is not a named target.
func (e *Executor) Present(tex device.Texture, fb device.Framebuffer, w, h int) error {
	prog := e.runtime.GetOrCompile(program.Request{Shader: shader.NameCopy})
	if prog == nil {
		return fmt.Errorf("present: %w", device.ErrCompileFailed)
	}
	clear := [4]float32{}
	return e.runtime.Device().Draw(&device.DrawOp{
		Program: prog,
		Target:  fb,
		Width:   w,
		Height:  h,
		Channels: []device.ChannelBinding{
			{Name: "u_texture", Texture: tex},
			{Name: "u_channel0", Texture: tex},
		},
		Uniforms: e.resolveUniforms(map[string]device.Value{
			"u_opacity": device.Float(1),
		}, w, h),
		Clear: &clear,
	})
}

func (e *Executor) descriptor(name string) *shader.Descriptor {
	// The runtime resolves descriptors through the same registry; a nil
	// program below covers the unknown-shader case, but resolving here
	// keeps multi-pass dispatch out of the hot path.
	d := e.runtime.Registry().Get(name)
	if d == nil {
		logging.L().Warn("invocation of unregistered shader", "shader", name)
	}
	return d
}

// runPass executes one pass (or the single-pass body when pass is nil).
func (e *Executor) runPass(desc *shader.Descriptor, pass *shader.Pass, inv *Invocation, target string, w, h int) device.Texture {
	passID := ""
	channels := desc.Channels
	if pass != nil {
		passID = pass.ID
		if len(pass.Channels) > 0 {
			channels = pass.Channels
		}
	}

	prog := e.runtime.GetOrCompile(program.Request{
		Shader:     desc.Name,
		VariantKey: inv.VariantKey,
		PassID:     passID,
	})
	if prog == nil {
		return nil
	}

	f, err := e.targets.Create(target, w, h)
	if err != nil {
		logging.L().Error("target allocation failed",
			"shader", desc.Name, "target", target, "err", err)
		return nil
	}

	bindings := make([]device.ChannelBinding, 0, len(channels)+4)
	for i, ch := range channels {
		tex := inv.Inputs[ch.Semantic]
		if tex != nil && e.targets.WouldFeedback(target, tex) {
			logging.L().Warn("feedback loop: input backs the draw target, pass skipped",
				"shader", desc.Name, "pass", passID,
				"channel", ch.Name, "target", target)
			return nil
		}
		bindings = append(bindings, device.ChannelBinding{Name: ch.Name, Texture: tex})
		if i < 4 {
			bindings = append(bindings, device.ChannelBinding{
				Name:    channelAlias(i),
				Texture: tex,
			})
		}
	}

	uniforms := e.resolveUniforms(inv.Uniforms, w, h)
	if err := e.runtime.Device().Draw(&device.DrawOp{
		Program:  prog,
		Target:   f.Framebuffer(),
		Width:    w,
		Height:   h,
		Channels: bindings,
		Uniforms: uniforms,
		Clear:    inv.Clear,
	}); err != nil {
		logging.L().Error("draw failed",
			"shader", desc.Name, "pass", passID, "err", err)
		return nil
	}
	return f.Texture()
}

// resolveUniforms layers the frame builtins over the caller's uniforms.
func (e *Executor) resolveUniforms(user map[string]device.Value, w, h int) map[string]device.Value {
	out := make(map[string]device.Value, len(user)+6)
	for k, v := range user {
		out[k] = v
	}
	out["u_resolution"] = device.Vec2(float32(w), float32(h))
	out["u_texelSize"] = device.Vec2(1/float32(w), 1/float32(h))
	out["u_time"] = device.Float(e.frame.Time)
	out["u_frame"] = device.Float(e.frame.Frame)
	out["u_randomSeed"] = device.Float(e.frame.RandomSeed)
	out["u_colorSpace"] = device.Float(float32(e.frame.ColorSpace))
	return out
}

// passInputs builds the semantic map for one pass: upstream pass outputs
// feed SemanticPreviousPass, everything else comes from the caller.
func passInputs(base map[shader.ChannelSemantic]device.Texture, pass *shader.Pass, outputs map[string]device.Texture) map[shader.ChannelSemantic]device.Texture {
	in := make(map[shader.ChannelSemantic]device.Texture, len(base)+1)
	for k, v := range base {
		in[k] = v
	}
	for _, dep := range pass.Inputs {
		if tex, ok := outputs[dep]; ok {
			in[shader.SemanticPreviousPass] = tex
		}
	}
	return in
}

func channelAlias(i int) string {
	return "u_channel" + string(rune('0'+i))
}

// topoOrder returns the passes in dependency order (Kahn's algorithm)
// plus the IDs of passes left unresolved by a cycle or a missing input.
func topoOrder(passes []shader.Pass) (order []*shader.Pass, unresolved []string) {
	byID := make(map[string]*shader.Pass, len(passes))
	indegree := make(map[string]int, len(passes))
	dependents := make(map[string][]string, len(passes))

	for i := range passes {
		p := &passes[i]
		byID[p.ID] = p
		indegree[p.ID] = 0
	}
	for i := range passes {
		p := &passes[i]
		for _, dep := range p.Inputs {
			if _, ok := byID[dep]; !ok {
				// Missing input counts as permanently unsatisfied.
				indegree[p.ID]++
				continue
			}
			indegree[p.ID]++
			dependents[dep] = append(dependents[dep], p.ID)
		}
	}

	var queue []string
	for i := range passes {
		if indegree[passes[i].ID] == 0 {
			queue = append(queue, passes[i].ID)
		}
	}

	done := make(map[string]bool, len(passes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		done[id] = true
		order = append(order, byID[id])
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	for i := range passes {
		if !done[passes[i].ID] {
			unresolved = append(unresolved, passes[i].ID)
		}
	}
	return order, unresolved
}
