// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

// BlendMode selects how a layer composites over the accumulated
// backdrop. The numeric values are a frozen wire contract: they are
// passed to the composite shader as u_blendMode and serialized in
// worker messages, so they must never be reordered.
type BlendMode int32

// Blend modes in wire order.
const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendSoftLight
	BlendHardLight
	BlendColorDodge
	BlendColorBurn
	BlendLinearBurn
	BlendLinearDodge
	BlendDarken
	BlendLighten
	BlendDarkerColor
	BlendLighterColor
	BlendVividLight
	BlendLinearLight
	BlendPinLight
	BlendHardMix
	BlendDifference
	BlendExclusion
	BlendSubtract
	BlendDivide
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity
	BlendDissolve

	blendModeCount
)

var blendModeNames = [...]string{
	BlendNormal:       "normal",
	BlendMultiply:     "multiply",
	BlendScreen:       "screen",
	BlendOverlay:      "overlay",
	BlendSoftLight:    "softLight",
	BlendHardLight:    "hardLight",
	BlendColorDodge:   "colorDodge",
	BlendColorBurn:    "colorBurn",
	BlendLinearBurn:   "linearBurn",
	BlendLinearDodge:  "linearDodge",
	BlendDarken:       "darken",
	BlendLighten:      "lighten",
	BlendDarkerColor:  "darkerColor",
	BlendLighterColor: "lighterColor",
	BlendVividLight:   "vividLight",
	BlendLinearLight:  "linearLight",
	BlendPinLight:     "pinLight",
	BlendHardMix:      "hardMix",
	BlendDifference:   "difference",
	BlendExclusion:    "exclusion",
	BlendSubtract:     "subtract",
	BlendDivide:       "divide",
	BlendHue:          "hue",
	BlendSaturation:   "saturation",
	BlendColor:        "color",
	BlendLuminosity:   "luminosity",
	BlendDissolve:     "dissolve",
}

var blendModeByName = func() map[string]BlendMode {
	m := make(map[string]BlendMode, len(blendModeNames))
	for i, name := range blendModeNames {
		m[name] = BlendMode(i)
	}
	return m
}()

// String returns the canonical mode name.
func (m BlendMode) String() string {
	if m.Valid() {
		return blendModeNames[m]
	}
	return "unknown"
}

// Valid reports whether m is a defined blend mode.
func (m BlendMode) Valid() bool {
	return m >= BlendNormal && m < blendModeCount
}

// ParseBlendMode resolves a canonical mode name. Unknown names fall
// back to normal, matching the compositor's treatment of bad input.
func ParseBlendMode(name string) BlendMode {
	if m, ok := blendModeByName[name]; ok {
		return m
	}
	return BlendNormal
}

// BlendModeCount is the number of defined blend modes.
func BlendModeCount() int { return int(blendModeCount) }
