// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import "testing"

func TestOpacityFraction(t *testing.T) {
	tests := []struct {
		opacity float64
		want    float32
	}{
		{0, 0},
		{50, 0.5},
		{100, 1},
		{-10, 0},
		{250, 1},
	}
	for _, tt := range tests {
		l := &Layer{Opacity: tt.opacity}
		if got := l.OpacityFraction(); got != tt.want {
			t.Errorf("OpacityFraction(%v) = %v, want %v", tt.opacity, got, tt.want)
		}
	}
}

func TestContributes(t *testing.T) {
	tests := []struct {
		name string
		l    *Layer
		want bool
	}{
		{"visible image", &Layer{Kind: KindImage, Visible: true}, true},
		{"hidden image", &Layer{Kind: KindImage, Visible: false}, false},
		{"empty group", &Layer{Kind: KindGroup, Visible: true}, false},
		{"group with hidden child", &Layer{
			Kind: KindGroup, Visible: true,
			Children: []*Layer{{Kind: KindImage, Visible: false}},
		}, false},
		{"group with visible child", &Layer{
			Kind: KindGroup, Visible: true,
			Children: []*Layer{{Kind: KindImage, Visible: true}},
		}, true},
		{"hidden group with visible child", &Layer{
			Kind: KindGroup, Visible: false,
			Children: []*Layer{{Kind: KindImage, Visible: true}},
		}, false},
		{"nested contributing group", &Layer{
			Kind: KindGroup, Visible: true,
			Children: []*Layer{{
				Kind: KindGroup, Visible: true,
				Children: []*Layer{{Kind: KindSolid, Visible: true}},
			}},
		}, true},
		{"collapsed is ui-only", &Layer{Kind: KindImage, Visible: true, Collapsed: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.l.Contributes(); got != tt.want {
				t.Errorf("Contributes() = %v, want %v", got, tt.want)
			}
		})
	}
}
