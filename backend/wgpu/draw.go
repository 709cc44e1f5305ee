// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imagecomp/device"
)

// Draw executes one full-screen-triangle pass: uniforms are packed into
// a per-draw buffer, channels bound as texture views, and the submit is
// waited on so the target is readable when Draw returns.
func (d *Device) Draw(op *device.DrawOp) error {
	if d.lost {
		return device.ErrDeviceLost
	}
	fb, ok := op.Target.(*framebuffer)
	if !ok || fb == nil {
		return fmt.Errorf("wgpu: draw: missing target")
	}

	loadOp := gputypes.LoadOpLoad
	clearValue := gputypes.Color{}
	if op.Clear != nil {
		loadOp = gputypes.LoadOpClear
		clearValue = gputypes.Color{
			R: float64(op.Clear[0]),
			G: float64(op.Clear[1]),
			B: float64(op.Clear[2]),
			A: float64(op.Clear[3]),
		}
	}

	// A clear without a program is a bare pass.
	if op.Program == nil {
		return d.clearOnly(fb, loadOp, clearValue)
	}

	p, ok := op.Program.(*program)
	if !ok {
		return fmt.Errorf("wgpu: draw: foreign program")
	}

	uniformData := p.layout.pack(op.Uniforms)
	uniformBuf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "imagecomp_uniforms",
		Size:  uint64(len(uniformData)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(uniformBuf)
	d.queue.WriteBuffer(uniformBuf, 0, uniformData)

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: uint64(len(uniformData)),
		}},
		{Binding: 1, Resource: gputypes.SamplerBinding{
			Sampler: d.sampler.NativeHandle(),
		}},
	}
	for i, name := range p.channels {
		view, err := d.channelView(op.Channels, name)
		if err != nil {
			return err
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: uint32(2 + i),
			Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			},
		})
	}

	bindGroup, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "imagecomp_bind",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer d.dev.DestroyBindGroup(bindGroup)

	pipeline, err := p.pipelineFor(fb.tex.format)
	if err != nil {
		return fmt.Errorf("wgpu: pipeline for %v: %w", fb.tex.format, err)
	}

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "imagecomp_draw_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imagecomp_draw"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "imagecomp_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       fb.tex.view,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearValue,
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	return d.submitAndWait(cmdBuf)
}

// channelView resolves a declared channel to a texture view. Unbound
// channels fall back to a shared 1x1 transparent texture.
func (d *Device) channelView(bindings []device.ChannelBinding, name string) (hal.TextureView, error) {
	for _, b := range bindings {
		if b.Name == name && b.Texture != nil {
			return b.Texture.(*texture).view, nil
		}
	}
	empty, err := d.emptyTexture()
	if err != nil {
		return nil, err
	}
	return empty.view, nil
}

// emptyTexture lazily creates the shared transparent-black fallback.
func (d *Device) emptyTexture() (*texture, error) {
	if d.empty != nil {
		return d.empty, nil
	}
	t, err := d.NewTexture(1, 1, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fallback texture: %w", err)
	}
	tex := t.(*texture)
	if err := d.Upload(tex, []byte{0, 0, 0, 0}); err != nil {
		tex.Destroy()
		return nil, err
	}
	d.empty = tex
	return tex, nil
}

// clearOnly runs an empty render pass that just clears the attachment.
func (d *Device) clearOnly(fb *framebuffer, loadOp gputypes.LoadOp, clearValue gputypes.Color) error {
	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "imagecomp_clear_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imagecomp_clear"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "imagecomp_clear_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       fb.tex.view,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearValue,
		}},
	})
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)
	return d.submitAndWait(cmdBuf)
}
