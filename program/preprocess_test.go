// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package program

import (
	"strings"
	"testing"

	"github.com/gogpu/imagecomp/shader"
)

func TestPreprocessNoDefines(t *testing.T) {
	src := "fn fs_main() {}"
	if got := Preprocess(src, nil, nil); got != src {
		t.Errorf("Preprocess without defines changed the source:\n%s", got)
	}
}

func TestPreprocessDefineRendering(t *testing.T) {
	got := Preprocess("body", map[string]any{
		"USE_MASK":  true,
		"DISABLED":  false,
		"TAPS":      9,
		"RADIUS":    float64(2.5),
		"EXPR":      "1u << 3u",
		"A_ORDERED": 1,
	}, nil)

	wantLines := []string{
		"const A_ORDERED: i32 = 1;",
		"const DISABLED: bool = false;",
		"const EXPR = 1u << 3u;",
		"const RADIUS: f32 = 2.5;",
		"const TAPS: i32 = 9;",
		"const USE_MASK: bool = true;",
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line) {
			t.Errorf("missing define line %q in:\n%s", line, got)
		}
	}
	if !strings.HasSuffix(got, "\nbody") {
		t.Errorf("fragment body must follow the define block:\n%s", got)
	}

	// Keys render in sorted order so identical define sets produce
	// identical source.
	if strings.Index(got, "A_ORDERED") > strings.Index(got, "USE_MASK") {
		t.Error("defines not rendered in sorted key order")
	}
}

func TestPreprocessVariantOverride(t *testing.T) {
	variant := &shader.Variant{
		Key:     "hq",
		Defines: map[string]any{"TAPS": 25, "HQ": true},
	}
	got := Preprocess("body", map[string]any{"TAPS": 9}, variant)

	if !strings.Contains(got, "const TAPS: i32 = 25;") {
		t.Errorf("variant define must win on collision:\n%s", got)
	}
	if !strings.Contains(got, "const HQ: bool = true;") {
		t.Errorf("variant-only define missing:\n%s", got)
	}
}
