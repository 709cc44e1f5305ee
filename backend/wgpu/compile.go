// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/shader"
)

// targetFormat is the color format every pipeline renders to. The FBO
// layer allocates all render targets in this format; blending happens
// in the fragment stage, so pipelines carry no fixed-function blend.
const targetFormat = gputypes.TextureFormatRGBA16Float

// Compile builds one render pipeline from preprocessed WGSL. The source
// goes through naga so malformed shaders fail here, with the compiler
// message wrapped in ErrCompileFailed, rather than at first draw.
func (d *Device) Compile(src device.CompileSource) (device.Program, error) {
	vertex := src.Vertex
	if vertex == "" {
		vertex = shader.FullscreenVertexSource()
	}
	full := vertex + "\n" + src.Fragment

	spirv, err := compileToSPIRV(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", device.ErrCompileFailed, src.Name, err)
	}

	module, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "imagecomp_" + src.Name,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create module: %v", device.ErrCompileFailed, src.Name, err)
	}

	// Binding layout: uniform block at 0, shared sampler at 1, then one
	// texture per declared channel.
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	for i := range src.Channels {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(2 + i),
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}

	bindLayout, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "imagecomp_" + src.Name + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		d.dev.DestroyShaderModule(module)
		return nil, fmt.Errorf("%w: %s: bind layout: %v", device.ErrCompileFailed, src.Name, err)
	}

	pipeLayout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "imagecomp_" + src.Name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.dev.DestroyBindGroupLayout(bindLayout)
		d.dev.DestroyShaderModule(module)
		return nil, fmt.Errorf("%w: %s: pipeline layout: %v", device.ErrCompileFailed, src.Name, err)
	}

	p := &program{
		dev:        d,
		name:       src.Name,
		module:     module,
		bindLayout: bindLayout,
		pipeLayout: pipeLayout,
		pipelines:  make(map[gputypes.TextureFormat]hal.RenderPipeline, 2),
		layout:     packLayout(src.Uniforms),
		channels:   src.Channels,
	}

	// Build the offscreen-target variant eagerly so pipeline errors
	// surface at compile time, not at first draw.
	if _, err := p.pipelineFor(targetFormat); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%w: %s: pipeline: %v", device.ErrCompileFailed, src.Name, err)
	}
	return p, nil
}

// compileToSPIRV compiles WGSL to little-endian SPIR-V words.
func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

type program struct {
	dev        *Device
	name       string
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[gputypes.TextureFormat]hal.RenderPipeline
	layout     uniformLayout
	channels   []string
}

func (p *program) Name() string { return p.name }

// pipelineFor returns the pipeline variant rendering into format,
// building it on first use. WebGPU validation requires the pipeline's
// color target format to equal the attachment view format, so a
// present into an RGBA8/BGRA8 surface cannot reuse the half-float
// offscreen pipeline.
func (p *program) pipelineFor(format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if pl, ok := p.pipelines[format]; ok {
		return pl, nil
	}
	pl, err := p.dev.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "imagecomp_" + p.name,
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	p.pipelines[format] = pl
	return pl, nil
}

func (p *program) Destroy() {
	d := p.dev.dev
	for format, pl := range p.pipelines {
		d.DestroyRenderPipeline(pl)
		delete(p.pipelines, format)
	}
	if p.pipeLayout != nil {
		d.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		d.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.module != nil {
		d.DestroyShaderModule(p.module)
		p.module = nil
	}
}
