// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package program owns compiled-program lifetime for one execution mode.
// Each mode (hybrid main-thread, offscreen worker) runs its own Runtime
// over its own device; the two never share GPU objects, so their caches
// are fully independent.
package program

import (
	"fmt"
	"sync"

	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/internal/cache"
	"github.com/gogpu/imagecomp/internal/logging"
	"github.com/gogpu/imagecomp/shader"
)

// cacheCapacity bounds compiled programs per runtime. Evicted programs
// are destroyed; a re-request recompiles from the registry.
const cacheCapacity = 256

// excerptLines is how many leading source lines a compile-failure log
// carries.
const excerptLines = 12

// Request identifies one program to fetch or compile.
type Request struct {
	// Shader is the descriptor name in the registry.
	Shader string

	// VariantKey selects a registered variant; empty is the base compile.
	VariantKey string

	// PassID selects a pass of a multi-pass descriptor; empty selects
	// the single-pass sources.
	PassID string
}

// Runtime compiles and caches programs for one execution mode.
type Runtime struct {
	mode     shader.Mode
	dev      device.Device
	registry *shader.Registry
	programs *cache.Sharded[string, device.Program]

	mu     sync.Mutex
	failed map[string]bool
}

// NewRuntime creates a runtime for the given mode. Initialize must be
// called before GetOrCompile.
func NewRuntime(mode shader.Mode) *Runtime {
	return &Runtime{
		mode:   mode,
		failed: make(map[string]bool),
	}
}

// Mode returns the runtime's execution mode.
func (rt *Runtime) Mode() shader.Mode { return rt.mode }

// Device returns the device this runtime compiles against, or nil
// before Initialize.
func (rt *Runtime) Device() device.Device { return rt.dev }

// Registry returns the registry the runtime compiles from.
func (rt *Runtime) Registry() *shader.Registry { return rt.registry }

// Initialize binds the runtime to a device and registry and compiles
// every descriptor whose policy for this mode is eager. Compile
// failures are logged and skipped; initialization itself never fails
// on bad shader source.
func (rt *Runtime) Initialize(dev device.Device, registry *shader.Registry) {
	rt.dev = dev
	rt.registry = registry
	rt.programs = cache.New(cacheCapacity, cache.StringHasher,
		func(_ string, p device.Program) {
			if p != nil {
				p.Destroy()
			}
		})

	for _, d := range registry.All() {
		if d.Policy.ForMode(rt.mode) == shader.PolicyEager {
			rt.compileAll(d)
		}
	}
}

// GetOrCompile returns the compiled program for req, compiling on first
// use. It returns nil when the descriptor is unknown or its source does
// not compile; failures are logged once and remembered until Clear so a
// broken shader does not recompile every frame.
func (rt *Runtime) GetOrCompile(req Request) device.Program {
	d := rt.registry.Get(req.Shader)
	if d == nil {
		logging.L().Warn("unknown shader requested",
			"shader", req.Shader, "mode", rt.mode.String())
		return nil
	}

	key := cacheKey(d, req.PassID, req.VariantKey)
	if p, ok := rt.programs.Get(key); ok {
		return p
	}

	rt.mu.Lock()
	if rt.failed[key] {
		rt.mu.Unlock()
		return nil
	}
	rt.mu.Unlock()

	p, err := rt.compile(d, req.PassID, req.VariantKey)
	if err != nil {
		rt.mu.Lock()
		rt.failed[key] = true
		rt.mu.Unlock()
		return nil
	}
	rt.programs.Set(key, p)
	return p
}

// WarmPrograms compiles every eager and warm descriptor for this mode.
// Called during the mode-switch handshake so the incoming mode starts
// with its working set ready.
func (rt *Runtime) WarmPrograms() {
	for _, d := range rt.registry.All() {
		switch d.Policy.ForMode(rt.mode) {
		case shader.PolicyEager, shader.PolicyWarm:
			rt.compileAll(d)
		}
	}
}

// Clear destroys every cached program and forgets recorded failures.
// Used on GPU context loss before re-warming from the registry.
func (rt *Runtime) Clear() {
	if rt.programs != nil {
		rt.programs.Clear()
	}
	rt.mu.Lock()
	rt.failed = make(map[string]bool)
	rt.mu.Unlock()
}

// Len returns the number of cached programs.
func (rt *Runtime) Len() int {
	if rt.programs == nil {
		return 0
	}
	return rt.programs.Len()
}

// compileAll compiles the base variant of every pass of d, skipping
// entries already cached or recorded as failed.
func (rt *Runtime) compileAll(d *shader.Descriptor) {
	if d.MultiPass() {
		for i := range d.Passes {
			rt.GetOrCompile(Request{Shader: d.Name, PassID: d.Passes[i].ID})
		}
		return
	}
	rt.GetOrCompile(Request{Shader: d.Name})
}

// compile builds the final source and hands it to the device.
func (rt *Runtime) compile(d *shader.Descriptor, passID, variantKey string) (device.Program, error) {
	variant := d.FindVariant(variantKey)
	if variantKey != "" && variant == nil {
		logging.L().Warn("unknown shader variant",
			"shader", d.Name, "variant", variantKey, "mode", rt.mode.String())
		return nil, fmt.Errorf("%w: variant %q", device.ErrCompileFailed, variantKey)
	}

	fragment := d.Fragment
	channels := d.Channels
	uniforms := d.Uniforms
	if passID != "" {
		pass := d.FindPass(passID)
		if pass == nil {
			logging.L().Warn("unknown shader pass",
				"shader", d.Name, "pass", passID, "mode", rt.mode.String())
			return nil, fmt.Errorf("%w: pass %q", device.ErrCompileFailed, passID)
		}
		fragment = pass.Fragment
		if len(pass.Channels) > 0 {
			channels = pass.Channels
		}
		uniforms = append(append([]device.UniformSpec(nil), uniforms...), pass.Uniforms...)
	}

	src := device.CompileSource{
		Name:     d.Name,
		PassID:   passID,
		Vertex:   d.Vertex,
		Fragment: Preprocess(fragment, d.Defines, variant),
		Uniforms: uniforms,
		Channels: channelNames(channels),
	}

	p, err := rt.dev.Compile(src)
	if err != nil {
		logging.L().Error("shader compile failed",
			"shader", d.Name, "pass", passID, "variant", variantKey,
			"mode", rt.mode.String(), "err", err,
			"source", excerpt(src.Fragment))
		return nil, err
	}
	return p, nil
}

func channelNames(channels []shader.Channel) []string {
	if len(channels) == 0 {
		return nil
	}
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name
	}
	return names
}

// cacheKey folds the descriptor version in so re-registration
// invalidates stale entries without explicit flushes.
func cacheKey(d *shader.Descriptor, passID, variantKey string) string {
	return fmt.Sprintf("%s@%d/%s#%s", d.Name, d.Version, passID, variantKey)
}

// excerpt returns the first few lines of src for failure logs.
func excerpt(src string) string {
	lines := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lines++
			if lines == excerptLines {
				return src[:i] + "\n..."
			}
		}
	}
	return src
}
