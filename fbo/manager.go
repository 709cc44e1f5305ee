// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fbo manages named offscreen render targets and the pool that
// recycles them. The manager is also the authority for feedback-hazard
// checks: before binding any texture as a shader input, callers ask
// whether that texture currently backs the intended draw target.
package fbo

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/internal/logging"
)

// Reserved target names used by the compositor.
const (
	NameTemp   = "temp"
	NamePing   = "ping"
	NamePong   = "pong"
	NameResult = "result"
)

// FBO is one named render target: a framebuffer and the texture backing
// it. FBOs are owned by the Manager; callers must not destroy them.
type FBO struct {
	name string
	fb   device.Framebuffer
	tex  device.Texture
	w, h int
}

// Name returns the name the FBO is currently bound under, or the empty
// string while pooled.
func (f *FBO) Name() string { return f.name }

// Texture returns the color texture backing the FBO.
func (f *FBO) Texture() device.Texture { return f.tex }

// Framebuffer returns the render target.
func (f *FBO) Framebuffer() device.Framebuffer { return f.fb }

// Size returns the FBO dimensions in pixels.
func (f *FBO) Size() (w, h int) { return f.w, f.h }

// Manager owns every offscreen target of one execution mode. It is not
// safe for concurrent use; like its device, it lives on one goroutine.
type Manager struct {
	dev    device.Device
	format gputypes.TextureFormat

	named     map[string]*FBO
	pool      map[string][]*FBO
	byTexture map[device.Texture]string
}

// NewManager creates a manager over dev. Initialize must be called
// before any target is created.
func NewManager(dev device.Device) *Manager {
	return &Manager{
		dev:       dev,
		named:     make(map[string]*FBO),
		pool:      make(map[string][]*FBO),
		byTexture: make(map[device.Texture]string),
	}
}

// Initialize probes render-target support once and fixes the working
// format for the manager's lifetime: RGBA16Float when a half-float
// target completes, RGBA8Unorm otherwise. The probe result is never
// re-checked per frame.
func (m *Manager) Initialize() {
	m.format = gputypes.TextureFormatRGBA8Unorm
	if !m.dev.Capabilities().HalfFloatTarget {
		logging.L().Info("render targets: half-float unsupported, using rgba8")
		return
	}

	tex, err := m.dev.NewTexture(4, 4, gputypes.TextureFormatRGBA16Float)
	if err != nil {
		logging.L().Warn("half-float probe: texture allocation failed", "err", err)
		return
	}
	fb, err := m.dev.NewFramebuffer(tex)
	if err != nil {
		tex.Destroy()
		logging.L().Warn("half-float probe: framebuffer incomplete", "err", err)
		return
	}
	fb.Destroy()
	tex.Destroy()
	m.format = gputypes.TextureFormatRGBA16Float
}

// Format returns the render-target format fixed at Initialize.
func (m *Manager) Format() gputypes.TextureFormat { return m.format }

// Create returns the FBO registered under name, allocating it when
// absent. An existing FBO with mismatched dimensions is released back
// to the pool and replaced. Allocation prefers a pooled FBO of the same
// size over a fresh texture.
func (m *Manager) Create(name string, w, h int) (*FBO, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("fbo %q: %w: %dx%d", name, device.ErrInvalidDimensions, w, h)
	}

	if f, ok := m.named[name]; ok {
		if f.w == w && f.h == h {
			return f, nil
		}
		m.Release(name)
	}

	f := m.takePooled(w, h)
	if f == nil {
		tex, err := m.dev.NewTexture(w, h, m.format)
		if err != nil {
			return nil, fmt.Errorf("fbo %q: %w", name, err)
		}
		fb, err := m.dev.NewFramebuffer(tex)
		if err != nil {
			tex.Destroy()
			return nil, fmt.Errorf("fbo %q: %w", name, err)
		}
		f = &FBO{fb: fb, tex: tex, w: w, h: h}
	}

	f.name = name
	m.named[name] = f
	m.byTexture[f.tex] = name
	return f, nil
}

// Get returns the FBO registered under name, or nil.
func (m *Manager) Get(name string) *FBO { return m.named[name] }

// Clear fills the named FBO with the given premultiplied RGBA color.
func (m *Manager) Clear(name string, color [4]float32) error {
	f, ok := m.named[name]
	if !ok {
		return fmt.Errorf("fbo: clear of unknown target %q", name)
	}
	return m.dev.Draw(&device.DrawOp{
		Target: f.fb,
		Width:  f.w,
		Height: f.h,
		Clear:  &color,
	})
}

// OwnerOf returns the name of the FBO currently backed by tex, or false
// when tex backs no live target. This is the feedback-hazard lookup:
// a texture must never be sampled while it is the active draw target.
func (m *Manager) OwnerOf(tex device.Texture) (string, bool) {
	name, ok := m.byTexture[tex]
	return name, ok
}

// WouldFeedback reports whether binding tex as an input while drawing
// into the named target would create a read/write feedback loop.
func (m *Manager) WouldFeedback(target string, tex device.Texture) bool {
	if tex == nil {
		return false
	}
	owner, ok := m.byTexture[tex]
	return ok && owner == target
}

// Release detaches the named FBO and returns it to the size-keyed pool
// for reuse. Its texture contents become undefined.
func (m *Manager) Release(name string) {
	f, ok := m.named[name]
	if !ok {
		return
	}
	delete(m.named, name)
	delete(m.byTexture, f.tex)
	f.name = ""
	k := poolKey(f.w, f.h)
	m.pool[k] = append(m.pool[k], f)
}

// Cleanup destroys every named and pooled FBO. Called on context loss
// and at shutdown.
func (m *Manager) Cleanup() {
	for name, f := range m.named {
		f.fb.Destroy()
		f.tex.Destroy()
		delete(m.named, name)
		delete(m.byTexture, f.tex)
	}
	for k, list := range m.pool {
		for _, f := range list {
			f.fb.Destroy()
			f.tex.Destroy()
		}
		delete(m.pool, k)
	}
}

// GroupTarget returns the reserved FBO name for a group's intermediate
// target: "grp:<id>:ping", "grp:<id>:pong" or "grp:<id>:temp".
func GroupTarget(groupID, slot string) string {
	return "grp:" + groupID + ":" + slot
}

func (m *Manager) takePooled(w, h int) *FBO {
	k := poolKey(w, h)
	list := m.pool[k]
	if len(list) == 0 {
		return nil
	}
	f := list[len(list)-1]
	m.pool[k] = list[:len(list)-1]
	return f
}

func poolKey(w, h int) string { return fmt.Sprintf("%dx%d", w, h) }
