// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the device abstraction over gogpu/wgpu's HAL.
// Shader sources are WGSL compiled to SPIR-V through gogpu/naga; draws
// are single full-screen-triangle render passes submitted synchronously.
package wgpu

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imagecomp/backend"
	"github.com/gogpu/imagecomp/device"
)

// maxDim is the guaranteed texture dimension limit of the WebGPU core
// profile.
const maxDim = 8192

// gpuTimeout bounds how long a submit may take before the device is
// treated as lost.
const gpuTimeout = 5 * time.Second

// ErrProviderMismatch is returned by FromProvider when the host's
// device provider does not carry HAL handles.
var ErrProviderMismatch = errors.New("wgpu: provider does not expose hal device/queue")

// Device implements device.Device over a HAL device and queue. Not
// safe for concurrent use; it lives on the goroutine of its execution
// mode like every other device.
type Device struct {
	dev     hal.Device
	queue   hal.Queue
	sampler hal.Sampler
	empty   *texture
	lost    bool
}

// New wraps a HAL device and queue. The caller keeps ownership of both;
// Destroy releases only resources this device created.
func New(dev hal.Device, queue hal.Queue) (*Device, error) {
	sampler, err := dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "imagecomp_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}
	return &Device{dev: dev, queue: queue, sampler: sampler}, nil
}

// FromProvider builds a Device from a host gpucontext.DeviceProvider,
// the handoff used when the host application owns GPU initialization.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	dev, ok := p.Device().(hal.Device)
	if !ok {
		return nil, ErrProviderMismatch
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok {
		return nil, ErrProviderMismatch
	}
	return New(dev, queue)
}

// RegisterProvider makes the wgpu backend selectable through the
// backend registry. Hosts call this once GPU initialization succeeded;
// backend.Default then prefers wgpu over the software fallback.
func RegisterProvider(p gpucontext.DeviceProvider) {
	backend.Register(backend.NameWGPU, func() (device.Device, error) {
		return FromProvider(p)
	})
}

// Capabilities reports the backend capability set. RGBA16Float is a
// renderable format in the WebGPU core profile, so half-float targets
// are always available here.
func (d *Device) Capabilities() device.Capabilities {
	return device.Capabilities{
		HalfFloatTarget: true,
		MaxTextureSize:  maxDim,
		Name:            "wgpu",
	}
}

// NewTexture allocates a texture usable as both sampler input and
// render target.
func (d *Device) NewTexture(width, height int, format gputypes.TextureFormat) (device.Texture, error) {
	if width <= 0 || height <= 0 || width > maxDim || height > maxDim {
		return nil, fmt.Errorf("%w: %dx%d", device.ErrInvalidDimensions, width, height)
	}
	w := uint32(width)
	h := uint32(height)

	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "imagecomp_texture",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}

	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "imagecomp_texture_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view: %w", err)
	}

	return &texture{dev: d, tex: tex, view: view, w: width, h: height, format: format}, nil
}

// Upload writes tightly packed RGBA8 pixels into an RGBA8 texture.
func (d *Device) Upload(t device.Texture, pixels []byte) error {
	tex := t.(*texture)
	if tex.format != gputypes.TextureFormatRGBA8Unorm {
		return fmt.Errorf("%w: upload needs rgba8, texture is %v",
			device.ErrUnsupportedFormat, tex.format)
	}
	if len(pixels) != tex.w*tex.h*4 {
		return fmt.Errorf("wgpu: upload: got %d bytes, want %d", len(pixels), tex.w*tex.h*4)
	}
	w := uint32(tex.w)
	h := uint32(tex.h)
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex.tex, MipLevel: 0},
		pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// NewFramebuffer wraps tex as a render target. HAL render passes attach
// texture views directly, so the framebuffer is bookkeeping only.
func (d *Device) NewFramebuffer(t device.Texture) (device.Framebuffer, error) {
	return &framebuffer{tex: t.(*texture)}, nil
}

// ReadPixels copies the texture to a staging buffer and converts its
// contents to tightly packed RGBA8. Half-float targets are converted
// lossily.
func (d *Device) ReadPixels(t device.Texture) ([]byte, error) {
	tex := t.(*texture)
	bpp := 4
	if tex.format == gputypes.TextureFormatRGBA16Float {
		bpp = 8
	}
	w := uint32(tex.w)
	h := uint32(tex.h)

	// DX12/WebGPU require the copy pitch aligned to 256 bytes.
	bytesPerRow := w * uint32(bpp)
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "imagecomp_readback",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "imagecomp_readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imagecomp_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(tex.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(cmdBuf); err != nil {
		return nil, err
	}

	// The fence wait above guarantees the GPU is done writing the
	// staging buffer, as the mapping contract requires.
	mapping, err := d.dev.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	readback := make([]byte, stagingSize)
	copy(readback, unsafe.Slice((*byte)(mapping.Ptr), stagingSize))
	if err := d.dev.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("wgpu: unmap staging buffer: %w", err)
	}

	// Strip row padding.
	tight := readback
	if alignedBytesPerRow != bytesPerRow {
		tight = make([]byte, uint64(bytesPerRow)*uint64(h))
		for row := uint32(0); row < h; row++ {
			srcOff := int(row) * int(alignedBytesPerRow)
			dstOff := int(row) * int(bytesPerRow)
			copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
		}
	}

	if bpp == 4 {
		return tight, nil
	}
	return halfToRGBA8(tight, tex.w*tex.h), nil
}

// Destroy releases device-owned resources. Textures, framebuffers and
// programs are destroyed through their own handles.
func (d *Device) Destroy() {
	if d.empty != nil {
		d.empty.Destroy()
		d.empty = nil
	}
	if d.sampler != nil {
		d.dev.DestroySampler(d.sampler)
		d.sampler = nil
	}
	d.lost = true
}

// submitAndWait submits one command buffer and blocks until the GPU
// has finished executing it. The HAL manages its own internal
// fences/synchronization, so completion is awaited via WaitIdle.
func (d *Device) submitAndWait(cmdBuf hal.CommandBuffer) error {
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	if err := d.dev.WaitIdle(); err != nil {
		d.lost = true
		return fmt.Errorf("%w: wait idle: %v", device.ErrDeviceLost, err)
	}
	return nil
}

type texture struct {
	dev    *Device
	tex    hal.Texture
	view   hal.TextureView
	w, h   int
	format gputypes.TextureFormat
}

func (t *texture) Width() int                     { return t.w }
func (t *texture) Height() int                    { return t.h }
func (t *texture) Format() gputypes.TextureFormat { return t.format }

func (t *texture) Destroy() {
	if t.view != nil {
		t.dev.dev.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.dev.dev.DestroyTexture(t.tex)
		t.tex = nil
	}
}

type framebuffer struct {
	tex *texture
}

func (f *framebuffer) Texture() device.Texture { return f.tex }
func (f *framebuffer) Destroy()                {}

// halfToRGBA8 converts packed 16-bit float RGBA to 8-bit, clamping to
// [0,1].
func halfToRGBA8(data []byte, pixels int) []byte {
	out := make([]byte, pixels*4)
	for i := 0; i < pixels*4; i++ {
		bits := uint16(data[i*2]) | uint16(data[i*2+1])<<8
		v := halfToFloat(bits)
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = byte(v*255 + 0.5)
	}
	return out
}

// halfToFloat decodes an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := float32(1)
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int((h >> 10) & 0x1F)
	mant := int(h & 0x3FF)
	switch exp {
	case 0:
		return sign * float32(mant) / 1024 / 16384
	case 31:
		if mant != 0 {
			return 0 // NaN clamps to zero for readback purposes
		}
		return sign * 65504
	default:
		return sign * (1 + float32(mant)/1024) * pow2(exp-15)
	}
}

func pow2(e int) float32 {
	v := float32(1)
	for ; e > 0; e-- {
		v *= 2
	}
	for ; e < 0; e++ {
		v /= 2
	}
	return v
}
