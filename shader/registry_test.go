// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import "testing"

func TestRegisterBumpsVersion(t *testing.T) {
	r := NewRegistry()
	if got := r.Version(); got != 0 {
		t.Fatalf("fresh registry version = %d, want 0", got)
	}

	v1 := r.Register(Descriptor{Name: "a", Fragment: "x"})
	v2 := r.Register(Descriptor{Name: "b", Fragment: "y"})
	if v1 != 1 || v2 != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", v1, v2)
	}

	// Re-registering the same name overwrites and bumps again.
	v3 := r.Register(Descriptor{Name: "a", Fragment: "z"})
	if v3 != 3 {
		t.Errorf("overwrite version = %d, want 3", v3)
	}
	d := r.Get("a")
	if d == nil || d.Fragment != "z" {
		t.Fatalf("Get(a) = %+v, want overwritten descriptor", d)
	}
	if d.Version != 3 {
		t.Errorf("descriptor version = %d, want 3", d.Version)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestGetUnknown(t *testing.T) {
	r := NewRegistry()
	if d := r.Get("missing"); d != nil {
		t.Errorf("Get(missing) = %+v, want nil", d)
	}
}

func TestReplaceAll(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "old"})

	r.ReplaceAll([]Descriptor{
		{Name: "a", Version: 5},
		{Name: "b", Version: 7},
	}, 7)

	if r.Get("old") != nil {
		t.Error("ReplaceAll kept a stale descriptor")
	}
	if d := r.Get("b"); d == nil || d.Version != 7 {
		t.Errorf("Get(b) = %+v, want version 7", d)
	}
	if got := r.Version(); got != 7 {
		t.Errorf("Version() = %d, want 7", got)
	}

	// A lower sync version must not roll the counter back.
	r.ReplaceAll([]Descriptor{{Name: "c"}}, 2)
	if got := r.Version(); got != 7 {
		t.Errorf("Version() after stale sync = %d, want 7", got)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	for _, name := range []string{
		NameTransform, NameBlend, NameAdjust, NameCopy,
		NameSolid, NameLinearize, NameEncode, NameBloom,
	} {
		if r.Get(name) == nil {
			t.Errorf("builtin %q not registered", name)
		}
	}

	blend := r.Get(NameBlend)
	if v := blend.FindVariant("masked"); v == nil {
		t.Error("blend.composite missing masked variant")
	}
	if v := blend.FindVariant(""); v != nil {
		t.Error("empty variant key must resolve to nil")
	}

	bloom := r.Get(NameBloom)
	if !bloom.MultiPass() {
		t.Fatal("fx.bloom must be multi-pass")
	}
	if p := bloom.FindPass("blur"); p == nil || len(p.Inputs) != 1 || p.Inputs[0] != "extract" {
		t.Errorf("bloom blur pass inputs = %+v, want [extract]", p)
	}
}

func TestPoliciesForMode(t *testing.T) {
	p := Policies{Hybrid: PolicyEager, Worker: PolicyLazy}
	if got := p.ForMode(ModeHybrid); got != PolicyEager {
		t.Errorf("ForMode(hybrid) = %v, want eager", got)
	}
	if got := p.ForMode(ModeWorker); got != PolicyLazy {
		t.Errorf("ForMode(worker) = %v, want lazy", got)
	}
}
