// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package program

import (
	"testing"

	"github.com/gogpu/imagecomp/backend/software"
	"github.com/gogpu/imagecomp/shader"
)

func newTestRuntime(t *testing.T) (*Runtime, *shader.Registry) {
	t.Helper()
	reg := shader.NewRegistry()
	shader.RegisterBuiltins(reg)
	rt := NewRuntime(shader.ModeHybrid)
	rt.Initialize(software.New(), reg)
	return rt, reg
}

func TestInitializeCompilesEager(t *testing.T) {
	rt, _ := newTestRuntime(t)

	// Eager builtins: transform, blend, copy.
	if got := rt.Len(); got != 3 {
		t.Errorf("eager compile count = %d, want 3", got)
	}
}

func TestWarmPrograms(t *testing.T) {
	rt, _ := newTestRuntime(t)
	rt.WarmPrograms()

	// Eager (3) plus warm: adjust, linearize, encode.
	if got := rt.Len(); got != 6 {
		t.Errorf("warmed compile count = %d, want 6", got)
	}
}

func TestLazyCompileOnDemand(t *testing.T) {
	rt, _ := newTestRuntime(t)
	before := rt.Len()

	p := rt.GetOrCompile(Request{Shader: shader.NameSolid})
	if p == nil {
		t.Fatal("lazy compile returned nil")
	}
	if got := rt.Len(); got != before+1 {
		t.Errorf("Len() = %d, want %d", got, before+1)
	}

	// A second request is a cache hit, not a recompile.
	if p2 := rt.GetOrCompile(Request{Shader: shader.NameSolid}); p2 != p {
		t.Error("cache did not return the same program")
	}
}

func TestMultiPassCompilesPerPass(t *testing.T) {
	rt, _ := newTestRuntime(t)

	for _, pass := range []string{"extract", "blur", "combine"} {
		p := rt.GetOrCompile(Request{Shader: shader.NameBloom, PassID: pass})
		if p == nil {
			t.Errorf("bloom pass %q failed to compile", pass)
		}
	}
}

func TestVariantCompile(t *testing.T) {
	rt, _ := newTestRuntime(t)

	base := rt.GetOrCompile(Request{Shader: shader.NameBlend})
	masked := rt.GetOrCompile(Request{Shader: shader.NameBlend, VariantKey: "masked"})
	if base == nil || masked == nil {
		t.Fatal("blend compile failed")
	}
	if base == masked {
		t.Error("variant must be a distinct cache entry")
	}
	if rt.GetOrCompile(Request{Shader: shader.NameBlend, VariantKey: "nope"}) != nil {
		t.Error("unknown variant must return nil")
	}
}

func TestUnknownShader(t *testing.T) {
	rt, _ := newTestRuntime(t)
	if rt.GetOrCompile(Request{Shader: "no.such.plugin"}) != nil {
		t.Error("unknown shader must return nil")
	}
}

func TestCompileFailureIsRemembered(t *testing.T) {
	rt, reg := newTestRuntime(t)

	// Registered descriptor with no CPU kernel: compiles fail the same
	// way a bad WGSL source would.
	reg.Register(shader.Descriptor{Name: "custom.broken", Fragment: "nonsense"})

	before := rt.Len()
	if rt.GetOrCompile(Request{Shader: "custom.broken"}) != nil {
		t.Fatal("broken shader compiled")
	}
	if rt.GetOrCompile(Request{Shader: "custom.broken"}) != nil {
		t.Fatal("broken shader compiled on retry")
	}
	if got := rt.Len(); got != before {
		t.Errorf("failed compile cached a program: Len() = %d, want %d", got, before)
	}
}

func TestClearResetsCacheAndFailures(t *testing.T) {
	rt, reg := newTestRuntime(t)
	reg.Register(shader.Descriptor{Name: "custom.broken", Fragment: "nonsense"})
	rt.GetOrCompile(Request{Shader: "custom.broken"})

	rt.Clear()
	if got := rt.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}

	// Context-loss recovery path: re-warm from the intact registry.
	rt.WarmPrograms()
	if got := rt.Len(); got != 6 {
		t.Errorf("Len() after re-warm = %d, want 6", got)
	}
}

func TestVersionBumpInvalidatesKey(t *testing.T) {
	rt, reg := newTestRuntime(t)

	p1 := rt.GetOrCompile(Request{Shader: shader.NameCopy})
	d := reg.Get(shader.NameCopy)
	reg.Register(*d) // re-register bumps the version
	p2 := rt.GetOrCompile(Request{Shader: shader.NameCopy})

	if p1 == nil || p2 == nil {
		t.Fatal("copy compile failed")
	}
	if p1 == p2 {
		t.Error("version bump must produce a fresh cache entry")
	}
}
