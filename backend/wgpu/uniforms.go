// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/imagecomp/device"
)

// uniformLayout is the byte layout of a program's uniform block,
// computed from the declared uniform order with WGSL alignment rules:
// f32 aligns to 4, vec2 to 8, vec3 and vec4 to 16. A mat3 is declared
// as three vec3 rows, each row on a 16-byte boundary.
type uniformLayout struct {
	fields []packedField
	size   uint32
}

type packedField struct {
	spec   device.UniformSpec
	offset uint32
}

func packLayout(specs []device.UniformSpec) uniformLayout {
	var l uniformLayout
	var off uint32
	for _, s := range specs {
		switch s.Type {
		case device.UniformVec2:
			off = align(off, 8)
			l.fields = append(l.fields, packedField{spec: s, offset: off})
			off += 8
		case device.UniformVec3:
			off = align(off, 16)
			l.fields = append(l.fields, packedField{spec: s, offset: off})
			off += 12
		case device.UniformVec4:
			off = align(off, 16)
			l.fields = append(l.fields, packedField{spec: s, offset: off})
			off += 16
		case device.UniformMat3:
			off = align(off, 16)
			l.fields = append(l.fields, packedField{spec: s, offset: off})
			off += 3 * 16
		default: // float, int, bool occupy one 4-byte slot
			off = align(off, 4)
			l.fields = append(l.fields, packedField{spec: s, offset: off})
			off += 4
		}
	}
	// Uniform blocks are sized in 16-byte units.
	l.size = align(off, 16)
	return l
}

// pack serializes the resolved uniform values into a buffer matching
// the block layout. Missing values fall back to the spec defaults.
func (l uniformLayout) pack(values map[string]device.Value) []byte {
	buf := make([]byte, l.size)
	for _, f := range l.fields {
		v, ok := values[f.spec.Name]
		if !ok {
			v = f.spec.Default
		}
		if f.spec.Type == device.UniformMat3 {
			// Row-major 3x3, one padded vec3 per row.
			m := v.Mat3Data()
			for row := 0; row < 3; row++ {
				for col := 0; col < 3; col++ {
					putFloat(buf, f.offset+uint32(row*16+col*4), m[row*3+col])
				}
			}
			continue
		}
		comps := v.Floats()
		n := fieldComponents(f.spec.Type)
		if len(comps) < n {
			n = len(comps)
		}
		for i := 0; i < n; i++ {
			putFloat(buf, f.offset+uint32(i*4), comps[i])
		}
	}
	return buf
}

func fieldComponents(t device.UniformType) int {
	switch t {
	case device.UniformVec2:
		return 2
	case device.UniformVec3:
		return 3
	case device.UniformVec4:
		return 4
	default:
		return 1
	}
}

func putFloat(buf []byte, off uint32, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func align(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}
