// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/fbo"
	"github.com/gogpu/imagecomp/internal/logging"
	"github.com/gogpu/imagecomp/layer"
	"github.com/gogpu/imagecomp/pipeline"
	"github.com/gogpu/imagecomp/shader"
)

// TraceStep records one compositor action of a frame. The trace exists
// for diagnostics and tests; rendering never reads it back.
type TraceStep struct {
	Layer   string
	Op      string
	Shader  string
	Target  string
	Blend   layer.BlendMode
	Opacity float32
	Note    string
}

// Trace ops.
const (
	OpTransform = "transform"
	OpSolid     = "solid"
	OpFilter    = "filter"
	OpAdjust    = "adjust"
	OpGroup     = "group"
	OpSeed      = "seed"
	OpComposite = "composite"
	OpResult    = "result"
	OpSkip      = "skip"
)

// slotNames are the three scratch targets one compositing scope works
// with: the ping/pong accumulator pair and a contribution scratch.
type slotNames struct {
	ping, pong, temp string
}

func rootSlots() slotNames {
	return slotNames{ping: fbo.NamePing, pong: fbo.NamePong, temp: fbo.NameTemp}
}

func groupSlots(id string) slotNames {
	return slotNames{
		ping: fbo.GroupTarget(id, "ping"),
		pong: fbo.GroupTarget(id, "pong"),
		temp: fbo.GroupTarget(id, "temp"),
	}
}

// altTemp is the secondary contribution scratch, used when a filter
// chain has to read the primary one.
func (s slotNames) altTemp() string { return s.temp + ":b" }

var transparent = [4]float32{}

// compositeStack runs the ping-pong accumulation loop over one layer
// list. The first contribution seeds the ping slot; every later one is
// blended over the accumulator into whichever of ping/pong is not the
// current input. Returns the final accumulator texture, or nil when
// nothing contributed.
func (r *Renderer) compositeStack(f *Frame, layers []*layer.Layer, s slotNames) device.Texture {
	var acc device.Texture
	accSlot := ""
	writePing := true

	for _, l := range layers {
		if !l.Contributes() || l.OpacityFraction() == 0 {
			continue
		}

		contrib := r.contribution(f, l, s, acc)
		if contrib == nil {
			continue
		}

		if acc == nil {
			// Over a transparent backdrop every blend mode degenerates to
			// an opacity-scaled copy, so the first unmasked contribution
			// seeds the accumulator with one pass. A masked first layer
			// still needs the full blend path; it gets a cleared backdrop.
			if r.maskTexture(f, l) == nil {
				out := r.exec.RunSingle(&pipeline.Invocation{
					Shader:   shader.NameCopy,
					Target:   s.ping,
					Inputs:   channelMap(contrib),
					Uniforms: map[string]device.Value{"u_opacity": device.Float(l.OpacityFraction())},
					Clear:    &transparent,
				}, f.Width, f.Height)
				if out == nil {
					r.skip(l, s.ping, "seed copy failed")
					continue
				}
				acc, accSlot = out, s.ping
				writePing = false
				r.step(TraceStep{Layer: l.ID, Op: OpSeed, Shader: shader.NameCopy, Target: s.ping, Opacity: l.OpacityFraction()})
				continue
			}
			fb, err := r.exec.Targets().Create(s.ping, f.Width, f.Height)
			if err != nil {
				r.skip(l, s.ping, "seed allocation failed")
				continue
			}
			if err := r.exec.Targets().Clear(s.ping, transparent); err != nil {
				r.skip(l, s.ping, "seed clear failed")
				continue
			}
			acc, accSlot = fb.Texture(), s.ping
			writePing = false
		}

		target := s.pong
		if writePing {
			target = s.ping
		}

		uniforms := map[string]device.Value{
			"u_blendMode": device.Float(float32(l.BlendMode)),
			"u_opacity":   device.Float(l.OpacityFraction()),
		}
		inputs := channelMap(contrib)
		inputs[shader.SemanticPreviousPass] = acc
		variant := ""
		if mt := r.maskTexture(f, l); mt != nil {
			inputs[shader.SemanticMask] = mt
			variant = "masked"
			uniforms["u_hasMask"] = device.Float(1)
			uniforms["u_maskInvert"] = device.Bool(l.Mask.Invert)
			uniforms["u_maskFeather"] = device.Float(l.Mask.Feather)
			uniforms["u_maskOpacity"] = device.Float(l.Mask.Opacity)
			uniforms["u_maskMode"] = device.Float(maskModeIndex(l.Mask.Mode))
		}

		out := r.exec.RunSingle(&pipeline.Invocation{
			Shader:     shader.NameBlend,
			VariantKey: variant,
			Target:     target,
			Inputs:     inputs,
			Uniforms:   uniforms,
		}, f.Width, f.Height)
		if out == nil {
			r.skip(l, target, "composite failed")
			continue
		}
		r.step(TraceStep{
			Layer:   l.ID,
			Op:      OpComposite,
			Shader:  shader.NameBlend,
			Target:  target,
			Blend:   l.BlendMode,
			Opacity: l.OpacityFraction(),
			Note:    "over " + accSlot,
		})
		acc, accSlot = out, target
		writePing = !writePing
	}
	return acc
}

// contribution renders one layer into a scratch target at full opacity
// and returns its texture. Layer opacity, blend mode and mask apply at
// composite time, never here.
func (r *Renderer) contribution(f *Frame, l *layer.Layer, s slotNames, acc device.Texture) device.Texture {
	switch l.Kind {
	case layer.KindImage:
		src := f.Textures[l.TextureID]
		if src == nil {
			r.skip(l, "", "no source texture")
			return nil
		}
		out := r.transformPass(f, l, src, s.temp)
		if out == nil {
			return nil
		}
		return r.applyFilters(f, l, out, s.altTemp(), s.temp)

	case layer.KindSolid:
		out := r.exec.RunSingle(&pipeline.Invocation{
			Shader: shader.NameSolid,
			Target: s.temp,
			Uniforms: map[string]device.Value{
				"u_color": device.Vec4(l.Color[0], l.Color[1], l.Color[2], l.Color[3]),
			},
		}, f.Width, f.Height)
		if out == nil {
			r.skip(l, s.temp, "solid fill failed")
			return nil
		}
		r.step(TraceStep{Layer: l.ID, Op: OpSolid, Shader: shader.NameSolid, Target: s.temp})
		return r.applyFilters(f, l, out, s.altTemp(), s.temp)

	case layer.KindAdjustment:
		if acc == nil {
			r.skip(l, "", "adjustment with empty accumulator")
			return nil
		}
		if len(l.Filters) == 0 {
			r.skip(l, "", "adjustment without filters")
			return nil
		}
		out := r.applyFilters(f, l, acc, s.temp, s.altTemp())
		if out == acc {
			// Every filter pass failed; nothing to composite.
			return nil
		}
		return out

	case layer.KindGroup:
		gs := groupSlots(l.ID)
		r.groups[l.ID] = struct{}{}
		out := r.compositeStack(f, l.Children, gs)
		if out == nil {
			r.skip(l, "", "empty group")
			return nil
		}
		r.step(TraceStep{Layer: l.ID, Op: OpGroup, Target: gs.ping})
		return out

	default:
		logging.L().Warn("unknown layer kind", "layer", l.ID, "kind", l.Kind)
		return nil
	}
}

// transformPass renders a layer source through the affine transform
// stage. Only the selected layer picks up live tool parameters.
func (r *Renderer) transformPass(f *Frame, l *layer.Layer, src device.Texture, target string) device.Texture {
	tool := f.Tool
	if l.ID != f.SelectedID {
		tool = nil
	}
	inv := layerMatrix(f.Placements[l.ID], tool, f.Width, f.Height).Invert()

	out := r.exec.RunSingle(&pipeline.Invocation{
		Shader: shader.NameTransform,
		Target: target,
		Inputs: channelMap(src),
		Uniforms: map[string]device.Value{
			"u_opacity":   device.Float(1),
			"u_transform": inv.Uniform(),
		},
		Clear: &transparent,
	}, f.Width, f.Height)
	if out == nil {
		r.skip(l, target, "transform pass failed")
		return nil
	}
	r.step(TraceStep{Layer: l.ID, Op: OpTransform, Shader: shader.NameTransform, Target: target})
	return out
}

// applyFilters chains the layer's filter passes, alternating between two
// scratch targets so no pass reads its own output. A failed pass is
// skipped and the chain continues from the last good texture.
func (r *Renderer) applyFilters(f *Frame, l *layer.Layer, tex device.Texture, a, b string) device.Texture {
	cur := tex
	targets := [2]string{a, b}
	for i, flt := range l.Filters {
		params := flt.Params
		if l.ID == f.SelectedID && f.Tool != nil && len(f.Tool.Filter) > 0 {
			params = mergeParams(params, f.Tool.Filter)
		}

		target := targets[i%2]
		out := r.exec.RunSingle(&pipeline.Invocation{
			Shader:     flt.Shader,
			VariantKey: flt.VariantKey,
			Target:     target,
			Inputs:     channelMap(cur),
			Uniforms:   r.adjust(flt.Shader, params),
		}, f.Width, f.Height)
		if out == nil {
			r.skip(l, target, "filter "+flt.Shader+" failed")
			continue
		}
		r.step(TraceStep{Layer: l.ID, Op: OpFilter, Shader: flt.Shader, Target: target})
		cur = out
	}
	return cur
}

// maskTexture resolves the layer's mask, if any. A mask whose texture
// has not been uploaded yet renders as "no mask" for this frame rather
// than blocking.
func (r *Renderer) maskTexture(f *Frame, l *layer.Layer) device.Texture {
	if l.Mask == nil || l.Mask.TextureID == "" {
		return nil
	}
	mt := f.Textures[l.Mask.TextureID]
	if mt == nil {
		logging.L().Debug("mask texture not ready, rendering unmasked",
			"layer", l.ID, "mask", l.Mask.TextureID)
	}
	return mt
}

func (r *Renderer) step(s TraceStep) { r.trace = append(r.trace, s) }

func (r *Renderer) skip(l *layer.Layer, target, note string) {
	logging.L().Warn("layer step skipped", "layer", l.ID, "target", target, "reason", note)
	r.step(TraceStep{Layer: l.ID, Op: OpSkip, Target: target, Note: note})
}

func channelMap(tex device.Texture) map[shader.ChannelSemantic]device.Texture {
	return map[shader.ChannelSemantic]device.Texture{shader.SemanticCurrentLayer: tex}
}

func mergeParams(stored, live map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(stored)+len(live))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range live {
		out[k] = v
	}
	return out
}

// maskModeIndex maps the mask combine mode to its shader flag.
func maskModeIndex(mode string) float32 {
	if mode == "luminance" {
		return 1
	}
	return 0
}
