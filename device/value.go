// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "encoding/json"

// UniformType enumerates the uniform data types the pipeline can carry.
type UniformType uint8

// Uniform type constants.
const (
	// UniformFloat is a single float32.
	UniformFloat UniformType = iota

	// UniformVec2 is two float32 components.
	UniformVec2

	// UniformVec3 is three float32 components.
	UniformVec3

	// UniformVec4 is four float32 components.
	UniformVec4

	// UniformMat3 is a 3x3 float32 matrix in row-major order.
	UniformMat3

	// UniformInt is a single int32 (blend mode index, color space flag).
	UniformInt

	// UniformBool is a flag, transported as 0/1.
	UniformBool
)

// componentCount returns the number of float32 slots each type occupies.
func (t UniformType) componentCount() int {
	switch t {
	case UniformVec2:
		return 2
	case UniformVec3:
		return 3
	case UniformVec4:
		return 4
	case UniformMat3:
		return 9
	default:
		return 1
	}
}

// Value is one uniform value. Values are small fixed-size records so
// uniform maps allocate nothing per frame beyond the map itself.
type Value struct {
	kind UniformType
	data [9]float32
}

// Float wraps a scalar uniform.
func Float(v float32) Value {
	return Value{kind: UniformFloat, data: [9]float32{v}}
}

// Vec2 wraps a two-component uniform.
func Vec2(x, y float32) Value {
	return Value{kind: UniformVec2, data: [9]float32{x, y}}
}

// Vec3 wraps a three-component uniform.
func Vec3(x, y, z float32) Value {
	return Value{kind: UniformVec3, data: [9]float32{x, y, z}}
}

// Vec4 wraps a four-component uniform.
func Vec4(x, y, z, w float32) Value {
	return Value{kind: UniformVec4, data: [9]float32{x, y, z, w}}
}

// Mat3 wraps a row-major 3x3 matrix uniform.
func Mat3(m [9]float32) Value {
	return Value{kind: UniformMat3, data: m}
}

// Int wraps an integer uniform. The value is transported as a float32;
// consumers round-trip through Int() to recover it exactly for the small
// ranges used here (blend indices, flags).
func Int(v int) Value {
	return Value{kind: UniformInt, data: [9]float32{float32(v)}}
}

// Bool wraps a boolean uniform.
func Bool(v bool) Value {
	var f float32
	if v {
		f = 1
	}
	return Value{kind: UniformBool, data: [9]float32{f}}
}

// Kind returns the value's uniform type.
func (v Value) Kind() UniformType { return v.kind }

// Float1 returns the first component.
func (v Value) Float1() float32 { return v.data[0] }

// Floats returns the components used by the value's type.
func (v Value) Floats() []float32 { return v.data[:v.kind.componentCount()] }

// Int returns the value rounded to the nearest integer.
func (v Value) Int() int {
	f := v.data[0]
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

// Bool reports whether the value is non-zero.
func (v Value) Bool() bool { return v.data[0] != 0 }

// Mat3Data returns the row-major matrix components.
func (v Value) Mat3Data() [9]float32 { return v.data }

// valueJSON is the wire form of a Value, used when descriptors travel
// between execution contexts.
type valueJSON struct {
	Kind UniformType `json:"kind"`
	Data []float32   `json:"data,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{Kind: v.kind, Data: v.Floats()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	var w valueJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v.kind = w.Kind
	v.data = [9]float32{}
	copy(v.data[:], w.Data)
	return nil
}
