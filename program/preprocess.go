// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package program

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/imagecomp/shader"
)

// mergeDefines overlays variant defines on top of the descriptor's
// global defines. Variant values win on key collision.
func mergeDefines(global map[string]any, variant *shader.Variant) map[string]any {
	merged := make(map[string]any, len(global))
	for k, v := range global {
		merged[k] = v
	}
	if variant != nil {
		for k, v := range variant.Defines {
			merged[k] = v
		}
	}
	return merged
}

// renderDefines emits one const declaration per define, in sorted key
// order so the produced source is deterministic and cache-friendly.
// Boolean defines always render, true or false, so shader bodies can
// branch on them in every variant and the compiler folds the dead arm.
func renderDefines(defines map[string]any) string {
	if len(defines) == 0 {
		return ""
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		switch v := defines[k].(type) {
		case bool:
			fmt.Fprintf(&b, "const %s: bool = %t;\n", k, v)
		case int:
			fmt.Fprintf(&b, "const %s: i32 = %d;\n", k, v)
		case int32:
			fmt.Fprintf(&b, "const %s: i32 = %d;\n", k, v)
		case int64:
			fmt.Fprintf(&b, "const %s: i32 = %d;\n", k, v)
		case float32:
			fmt.Fprintf(&b, "const %s: f32 = %g;\n", k, v)
		case float64:
			fmt.Fprintf(&b, "const %s: f32 = %g;\n", k, v)
		case string:
			// Raw injection for expression-valued defines.
			fmt.Fprintf(&b, "const %s = %s;\n", k, v)
		default:
			fmt.Fprintf(&b, "const %s = %v;\n", k, v)
		}
	}
	return b.String()
}

// Preprocess assembles the final fragment source for one compile: the
// merged define block followed by the pass fragment body. The vertex
// stage is left to the device, which prepends the shared full-screen
// stage when CompileSource.Vertex is empty.
func Preprocess(fragment string, global map[string]any, variant *shader.Variant) string {
	defs := renderDefines(mergeDefines(global, variant))
	if defs == "" {
		return fragment
	}
	return defs + "\n" + fragment
}
