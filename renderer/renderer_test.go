// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/imagecomp/backend/software"
	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/fbo"
	"github.com/gogpu/imagecomp/layer"
	"github.com/gogpu/imagecomp/pipeline"
	"github.com/gogpu/imagecomp/program"
	"github.com/gogpu/imagecomp/shader"
)

func newTestRenderer(t *testing.T) (*Renderer, *software.Device) {
	t.Helper()
	dev := software.New()
	reg := shader.NewRegistry()
	shader.RegisterBuiltins(reg)

	rt := program.NewRuntime(shader.ModeHybrid)
	rt.Initialize(dev, reg)

	m := fbo.NewManager(dev)
	m.Initialize()
	return New(pipeline.NewExecutor(rt, m), Options{}), dev
}

func uploadRGBA(t *testing.T, dev *software.Device, w, h int, pix []byte) device.Texture {
	t.Helper()
	tex, err := dev.NewTexture(w, h, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	if err := dev.Upload(tex, pix); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return tex
}

func readResult(t *testing.T, dev *software.Device, tex device.Texture) []byte {
	t.Helper()
	pix, err := dev.ReadPixels(tex)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	return pix
}

func within(a, b byte, tol int) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// A single fully opaque image layer at 100% normal must come out of the
// pipeline byte for byte identical to what went in.
func TestRenderSingleLayerIdentity(t *testing.T) {
	r, dev := newTestRenderer(t)

	const w, h = 4, 4
	src := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		src[i*4+0] = byte(i * 13 % 200)
		src[i*4+1] = byte(i * 29 % 200)
		src[i*4+2] = byte(i * 7 % 200)
		src[i*4+3] = 255
	}

	out, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{{
			ID: "l1", Kind: layer.KindImage, Visible: true,
			Opacity: 100, TextureID: "tex1",
		}},
		Textures: map[string]device.Texture{"tex1": uploadRGBA(t, dev, w, h, src)},
		Width:    w, Height: h,
	})
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	got := readResult(t, dev, out)
	for i := range src {
		if got[i] != src[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], src[i])
		}
	}
}

func TestRenderEmptyFrame(t *testing.T) {
	r, dev := newTestRenderer(t)

	out, err := r.RenderLayers(&Frame{Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}
	got := readResult(t, dev, out)
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d, want transparent", i, b)
		}
	}

	steps := r.Trace()
	if len(steps) != 1 || steps[0].Op != OpResult {
		t.Errorf("trace = %+v, want single result step", steps)
	}
}

func TestRenderInvalidDimensions(t *testing.T) {
	r, _ := newTestRenderer(t)
	if _, err := r.RenderLayers(&Frame{Width: 0, Height: 4}); err == nil {
		t.Error("zero width must fail")
	}
	if _, err := r.RenderLayers(&Frame{Width: 4, Height: -1}); err == nil {
		t.Error("negative height must fail")
	}
}

// Two solid layers, the top at 50% multiply: every channel must equal
// mix(bottom, bottom*top, 0.5).
func TestRenderMultiplyHalfOpacity(t *testing.T) {
	r, dev := newTestRenderer(t)

	bottom := [4]float32{0.8, 0.4, 0.2, 1}
	top := [4]float32{0.5, 0.5, 0.5, 1}

	out, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{
			{ID: "b", Kind: layer.KindSolid, Visible: true, Opacity: 100, Color: bottom},
			{ID: "t", Kind: layer.KindSolid, Visible: true, Opacity: 50,
				BlendMode: layer.BlendMultiply, Color: top},
		},
		Width: 2, Height: 2,
	})
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	got := readResult(t, dev, out)
	for c := 0; c < 3; c++ {
		mixed := bottom[c] + (bottom[c]*top[c]-bottom[c])*0.5
		want := byte(mixed*255 + 0.5)
		if !within(got[c], want, 1) {
			t.Errorf("channel %d = %d, want %d", c, got[c], want)
		}
	}
	if got[3] != 255 {
		t.Errorf("alpha = %d, want 255", got[3])
	}
}

// A group at 50% over nothing must render the same as its lone child
// at 50%.
func TestGroupOpacityEquivalence(t *testing.T) {
	red := [4]float32{1, 0, 0, 1}
	child := &layer.Layer{ID: "c", Kind: layer.KindSolid, Visible: true, Opacity: 100, Color: red}

	rGroup, devGroup := newTestRenderer(t)
	outGroup, err := rGroup.RenderLayers(&Frame{
		Layers: []*layer.Layer{{
			ID: "g", Kind: layer.KindGroup, Visible: true, Opacity: 50,
			Children: []*layer.Layer{child},
		}},
		Width: 2, Height: 2,
	})
	if err != nil {
		t.Fatalf("group render: %v", err)
	}

	rFlat, devFlat := newTestRenderer(t)
	outFlat, err := rFlat.RenderLayers(&Frame{
		Layers: []*layer.Layer{{
			ID: "c", Kind: layer.KindSolid, Visible: true, Opacity: 50, Color: red,
		}},
		Width: 2, Height: 2,
	})
	if err != nil {
		t.Fatalf("flat render: %v", err)
	}

	g := readResult(t, devGroup, outGroup)
	f := readResult(t, devFlat, outFlat)
	for i := range g {
		if !within(g[i], f[i], 1) {
			t.Fatalf("byte %d: group %d, flat %d", i, g[i], f[i])
		}
	}
}

// Three contributions must bounce between the accumulator slots: seed
// into ping, composite into pong, composite back into ping.
func TestPingPongAlternation(t *testing.T) {
	r, _ := newTestRenderer(t)

	solid := func(id string) *layer.Layer {
		return &layer.Layer{ID: id, Kind: layer.KindSolid, Visible: true,
			Opacity: 100, Color: [4]float32{0.5, 0.5, 0.5, 1}}
	}
	if _, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{solid("a"), solid("b"), solid("c")},
		Width:  2, Height: 2,
	}); err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	var seedTarget string
	var compositeTargets []string
	for _, s := range r.Trace() {
		switch s.Op {
		case OpSeed:
			seedTarget = s.Target
		case OpComposite:
			compositeTargets = append(compositeTargets, s.Target)
		}
	}
	if seedTarget != fbo.NamePing {
		t.Errorf("seed target = %q, want %q", seedTarget, fbo.NamePing)
	}
	want := []string{fbo.NamePong, fbo.NamePing}
	if len(compositeTargets) != len(want) {
		t.Fatalf("composite targets = %v, want %v", compositeTargets, want)
	}
	for i := range want {
		if compositeTargets[i] != want[i] {
			t.Errorf("composite %d target = %q, want %q", i, compositeTargets[i], want[i])
		}
	}
}

// An adjustment layer filters the accumulator: a gray base inverted must
// come out as its complement.
func TestAdjustmentLayer(t *testing.T) {
	r, dev := newTestRenderer(t)

	out, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{
			{ID: "base", Kind: layer.KindSolid, Visible: true, Opacity: 100,
				Color: [4]float32{0.25, 0.25, 0.25, 1}},
			{ID: "adj", Kind: layer.KindAdjustment, Visible: true, Opacity: 100,
				Filters: []layer.Filter{{
					Shader: shader.NameAdjust,
					Params: map[string]float64{"invert": 1},
				}}},
		},
		Width: 2, Height: 2,
	})
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	got := readResult(t, dev, out)
	scaled := 0.75*255 + 0.5
	want := byte(scaled)
	for c := 0; c < 3; c++ {
		if !within(got[c], want, 1) {
			t.Errorf("channel %d = %d, want %d", c, got[c], want)
		}
	}
}

// An adjustment with nothing beneath it has nothing to filter; the frame
// stays empty and the skip is recorded.
func TestAdjustmentOnEmptyStack(t *testing.T) {
	r, dev := newTestRenderer(t)

	out, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{{
			ID: "adj", Kind: layer.KindAdjustment, Visible: true, Opacity: 100,
			Filters: []layer.Filter{{Shader: shader.NameAdjust}},
		}},
		Width: 2, Height: 2,
	})
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}
	got := readResult(t, dev, out)
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d, want transparent", i, b)
		}
	}

	skipped := false
	for _, s := range r.Trace() {
		if s.Op == OpSkip && s.Layer == "adj" {
			skipped = true
		}
	}
	if !skipped {
		t.Error("trace missing skip step for the adjustment layer")
	}
}

func TestHiddenLayerSkipped(t *testing.T) {
	r, _ := newTestRenderer(t)

	if _, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{
			{ID: "on", Kind: layer.KindSolid, Visible: true, Opacity: 100,
				Color: [4]float32{1, 0, 0, 1}},
			{ID: "off", Kind: layer.KindSolid, Visible: false, Opacity: 100,
				Color: [4]float32{0, 1, 0, 1}},
		},
		Width: 2, Height: 2,
	}); err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	for _, s := range r.Trace() {
		if s.Layer == "off" {
			t.Errorf("hidden layer produced trace step %+v", s)
		}
	}
}

func TestRenderToCanvas(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.RenderToCanvas(nil, 2, 2); err == nil {
		t.Error("present without a rendered result must fail")
	}

	if _, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{{ID: "s", Kind: layer.KindSolid, Visible: true,
			Opacity: 100, Color: [4]float32{0, 0, 1, 1}}},
		Width: 2, Height: 2,
	}); err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	surface, err := dev.NewTexture(2, 2, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	fb, err := dev.NewFramebuffer(surface)
	if err != nil {
		t.Fatalf("NewFramebuffer: %v", err)
	}
	if err := r.RenderToCanvas(fb, 2, 2); err != nil {
		t.Fatalf("RenderToCanvas: %v", err)
	}

	got := readResult(t, dev, surface)
	if got[2] != 255 || got[3] != 255 {
		t.Errorf("presented pixel = %v, want opaque blue", got[:4])
	}
}

func TestResizeReleasesSlots(t *testing.T) {
	r, _ := newTestRenderer(t)

	if _, err := r.RenderLayers(&Frame{
		Layers: []*layer.Layer{{
			ID: "g", Kind: layer.KindGroup, Visible: true, Opacity: 100,
			Children: []*layer.Layer{{ID: "c", Kind: layer.KindSolid, Visible: true,
				Opacity: 100, Color: [4]float32{1, 1, 1, 1}}},
		}},
		Width: 2, Height: 2,
	}); err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	targets := r.exec.Targets()
	if targets.Get(fbo.NamePing) == nil {
		t.Fatal("ping slot missing after render")
	}
	if targets.Get(fbo.GroupTarget("g", "ping")) == nil {
		t.Fatal("group ping slot missing after render")
	}

	r.Resize()
	for _, name := range []string{fbo.NamePing, fbo.NamePong, fbo.NameTemp,
		fbo.NameResult, fbo.GroupTarget("g", "ping")} {
		if targets.Get(name) != nil {
			t.Errorf("slot %q survived Resize", name)
		}
	}
}

// The selected layer's live tool filter values override its stored
// parameters for the duration of the gesture.
func TestLiveToolFilterOverride(t *testing.T) {
	r, dev := newTestRenderer(t)

	frame := &Frame{
		Layers: []*layer.Layer{{
			ID: "s", Kind: layer.KindSolid, Visible: true, Opacity: 100,
			Color: [4]float32{0.25, 0.25, 0.25, 1},
			Filters: []layer.Filter{{
				Shader: shader.NameAdjust,
				Params: map[string]float64{"invert": 0},
			}},
		}},
		SelectedID: "s",
		Tool:       &ToolParams{Filter: map[string]float64{"invert": 1}},
		Width:      2, Height: 2,
	}
	out, err := r.RenderLayers(frame)
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}

	got := readResult(t, dev, out)
	scaled := 0.75*255 + 0.5
	want := byte(scaled)
	if !within(got[0], want, 1) {
		t.Errorf("live invert ignored: channel 0 = %d, want %d", got[0], want)
	}
}
