// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements the device abstraction on the CPU. Each
// builtin shader has a hand-written float32 kernel that mirrors its
// WGSL source, which makes the full render path testable without a GPU
// and serves as the fallback backend when GPU init fails.
package software

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/imagecomp/backend"
	"github.com/gogpu/imagecomp/device"
)

func init() {
	backend.Register(backend.NameSoftware, func() (device.Device, error) {
		return New(), nil
	})
}

// maxDim caps texture dimensions, matching a typical GPU limit.
const maxDim = 16384

// Device is the CPU implementation of device.Device. Textures hold
// premultiplied float32 RGBA. Not safe for concurrent use.
type Device struct {
	kernels   map[string]kernel
	destroyed bool
}

// New creates a software device with the builtin kernel set.
func New() *Device {
	return &Device{kernels: builtinKernels()}
}

// registerKernel installs a CPU kernel for the given shader name (and
// optional pass, as "name/passID").
func (d *Device) registerKernel(name string, k kernel) {
	d.kernels[name] = k
}

// Capabilities reports CPU backend capabilities. Float targets always
// complete in software.
func (d *Device) Capabilities() device.Capabilities {
	return device.Capabilities{
		HalfFloatTarget: true,
		MaxTextureSize:  maxDim,
		Name:            "software",
	}
}

// Compile resolves the CPU kernel for the named shader. Sources are not
// parsed; a missing kernel reports ErrCompileFailed just as a bad WGSL
// source would on the GPU backend.
func (d *Device) Compile(src device.CompileSource) (device.Program, error) {
	key := kernelKey(src.Name, src.PassID)
	k, ok := d.kernels[key]
	if !ok {
		return nil, fmt.Errorf("%w: no kernel for %q", device.ErrCompileFailed, key)
	}
	return &prog{name: key, src: src, run: k}, nil
}

// NewTexture allocates a zeroed texture.
func (d *Device) NewTexture(width, height int, format gputypes.TextureFormat) (device.Texture, error) {
	if width <= 0 || height <= 0 || width > maxDim || height > maxDim {
		return nil, fmt.Errorf("%w: %dx%d", device.ErrInvalidDimensions, width, height)
	}
	return &texture{
		w:      width,
		h:      height,
		format: format,
		pix:    make([]float32, width*height*4),
	}, nil
}

// Upload writes tightly packed premultiplied RGBA8 pixels into tex.
func (d *Device) Upload(t device.Texture, pixels []byte) error {
	tex := t.(*texture)
	if len(pixels) != tex.w*tex.h*4 {
		return fmt.Errorf("upload: got %d bytes, want %d", len(pixels), tex.w*tex.h*4)
	}
	for i, b := range pixels {
		tex.pix[i] = float32(b) / 255
	}
	return nil
}

// NewFramebuffer wraps tex as a render target. Every format the device
// can allocate is renderable in software.
func (d *Device) NewFramebuffer(t device.Texture) (device.Framebuffer, error) {
	return &framebuffer{tex: t.(*texture)}, nil
}

// Draw clears the target if requested and runs the program's kernel.
// A nil program is a pure clear.
func (d *Device) Draw(op *device.DrawOp) error {
	fb, ok := op.Target.(*framebuffer)
	if !ok || fb == nil {
		return fmt.Errorf("draw: missing target")
	}
	dst := fb.tex

	if op.Clear != nil {
		c := *op.Clear
		for i := 0; i < len(dst.pix); i += 4 {
			dst.pix[i] = c[0]
			dst.pix[i+1] = c[1]
			dst.pix[i+2] = c[2]
			dst.pix[i+3] = c[3]
		}
	}
	if op.Program == nil {
		return nil
	}

	p, ok := op.Program.(*prog)
	if !ok {
		return fmt.Errorf("draw: foreign program")
	}
	return p.run(&ctx{op: op, spec: p.src, dst: dst})
}

// ReadPixels converts the texture back to tightly packed RGBA8.
func (d *Device) ReadPixels(t device.Texture) ([]byte, error) {
	tex := t.(*texture)
	out := make([]byte, len(tex.pix))
	for i, v := range tex.pix {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = byte(v*255 + 0.5)
	}
	return out, nil
}

// Destroy marks the device dead. Individual resources are garbage
// collected; there is nothing else to release in software.
func (d *Device) Destroy() { d.destroyed = true }

type texture struct {
	w, h   int
	format gputypes.TextureFormat
	pix    []float32
}

func (t *texture) Width() int                     { return t.w }
func (t *texture) Height() int                    { return t.h }
func (t *texture) Format() gputypes.TextureFormat { return t.format }
func (t *texture) Destroy()                       { t.pix = nil }

type framebuffer struct {
	tex *texture
}

func (f *framebuffer) Texture() device.Texture { return f.tex }
func (f *framebuffer) Destroy()                {}

type prog struct {
	name string
	src  device.CompileSource
	run  kernel
}

func (p *prog) Name() string { return p.name }
func (p *prog) Destroy()     {}

func kernelKey(name, passID string) string {
	if passID == "" {
		return name
	}
	return name + "/" + passID
}
