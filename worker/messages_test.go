// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package worker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gogpu/imagecomp/layer"
	"github.com/gogpu/imagecomp/shader"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := RenderRequest{
		Seq:             7,
		RegistryVersion: 12,
		Layers: []*layer.Layer{{
			ID: "l1", Kind: layer.KindImage, Visible: true,
			Opacity: 75, BlendMode: layer.BlendScreen, TextureID: "tex1",
			Mask: &layer.Mask{TextureID: "m1", Invert: true, Feather: 2, Opacity: 1},
		}},
		SelectedID:  "l1",
		CanvasWidth: 800, CanvasHeight: 600,
		Time: 1.25, FrameIndex: 3,
	}

	data, err := Encode(TypeRender, req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	typ, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if typ != TypeRender {
		t.Fatalf("type = %q, want %q", typ, TypeRender)
	}

	var got RenderRequest
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if got.Seq != 7 || got.RegistryVersion != 12 {
		t.Errorf("seq/version = %d/%d, want 7/12", got.Seq, got.RegistryVersion)
	}
	if len(got.Layers) != 1 {
		t.Fatalf("layers = %d, want 1", len(got.Layers))
	}
	l := got.Layers[0]
	if l.ID != "l1" || l.BlendMode != layer.BlendScreen || l.Opacity != 75 {
		t.Errorf("layer round trip broke: %+v", l)
	}
	if l.Mask == nil || !l.Mask.Invert || l.Mask.TextureID != "m1" {
		t.Errorf("mask round trip broke: %+v", l.Mask)
	}
}

func TestDecodeProtocolMismatch(t *testing.T) {
	data, err := json.Marshal(Envelope{Protocol: ProtocolVersion + 1, Type: TypeRender})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := Decode(data); err == nil {
		t.Error("future protocol must be rejected")
	}

	if _, _, err := Decode([]byte("{not json")); err == nil {
		t.Error("malformed envelope must be rejected")
	}
}

func TestCheckVersion(t *testing.T) {
	req := RenderRequest{RegistryVersion: 5}
	if err := req.CheckVersion(5); err != nil {
		t.Errorf("matching versions: %v", err)
	}

	err := req.CheckVersion(4)
	if !errors.Is(err, ErrResyncRequired) {
		t.Errorf("mismatch error = %v, want ErrResyncRequired", err)
	}
}

// A sync snapshot taken on one registry and applied to another must
// leave the receiver with the same descriptors and version, with stale
// entries gone.
func TestRegistrySyncSnapshotApply(t *testing.T) {
	src := shader.NewRegistry()
	shader.RegisterBuiltins(src)

	dst := shader.NewRegistry()
	dst.Register(shader.Descriptor{Name: "stale.effect"})

	snap := SnapshotRegistry(src)
	if snap.Version != src.Version() {
		t.Fatalf("snapshot version = %d, want %d", snap.Version, src.Version())
	}

	data, err := Encode(TypeRegistrySync, snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	typ, payload, err := Decode(data)
	if err != nil || typ != TypeRegistrySync {
		t.Fatalf("Decode = %q, %v", typ, err)
	}
	var wire RegistrySync
	if err := json.Unmarshal(payload, &wire); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}

	wire.Apply(dst)
	if dst.Len() != src.Len() {
		t.Fatalf("receiver has %d descriptors, want %d", dst.Len(), src.Len())
	}
	if dst.Get("stale.effect") != nil {
		t.Error("stale descriptor survived the sync")
	}
	if dst.Get(shader.NameBlend) == nil {
		t.Error("synced descriptor missing on the receiver")
	}
	if dst.Version() < snap.Version {
		t.Errorf("receiver version %d below sync version %d", dst.Version(), snap.Version)
	}

	// A request stamped with the synced version now passes the check.
	req := RenderRequest{RegistryVersion: snap.Version}
	if dst.Version() == snap.Version {
		if err := req.CheckVersion(dst.Version()); err != nil {
			t.Errorf("post-sync version check: %v", err)
		}
	}
}

func TestRegistrySyncCarriesUniformDefaults(t *testing.T) {
	src := shader.NewRegistry()
	shader.RegisterBuiltins(src)

	snap := SnapshotRegistry(src)
	data, err := Encode(TypeRegistrySync, snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var wire RegistrySync
	if err := json.Unmarshal(payload, &wire); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}

	dst := shader.NewRegistry()
	wire.Apply(dst)
	d := dst.Get(shader.NameAdjust)
	if d == nil {
		t.Fatal("adjust descriptor missing after sync")
	}
	for _, u := range d.Uniforms {
		if u.Name == "u_gamma" {
			if got := u.Default.Float1(); got != 1 {
				t.Errorf("u_gamma default = %v, want 1", got)
			}
			return
		}
	}
	t.Error("u_gamma spec missing after sync")
}
