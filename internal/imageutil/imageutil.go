// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package imageutil converts host images into the premultiplied RGBA
// byte layout the device upload path expects, resampling and placing
// them onto the canvas when needed.
package imageutil

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ToRGBA returns img as premultiplied RGBA bytes plus its dimensions.
// The fast path reuses the pixel slice of a well-formed *image.RGBA.
func ToRGBA(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 && b.Min == (image.Point{}) {
		return rgba.Pix, w, h
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix, w, h
}

// Resample scales img to w x h with bilinear filtering and returns the
// premultiplied RGBA bytes.
func Resample(img image.Image, w, h int) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst.Pix
}

// PlaceOnCanvas draws img with its top-left corner at (x, y) on a
// transparent w x h canvas and returns the premultiplied RGBA bytes.
// This produces the canvas-sized, pre-placed source textures the
// renderer's transform stage expects.
func PlaceOnCanvas(img image.Image, x, y, w, h int) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := img.Bounds()
	target := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(dst, target, img, b.Min, draw.Over)
	return dst.Pix
}
