// Command compdemo composites a small demo layer stack on the software
// backend and writes the result as a PNG.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/imagecomp"
	"github.com/gogpu/imagecomp/backend"
	_ "github.com/gogpu/imagecomp/backend/software"
	"github.com/gogpu/imagecomp/device"
	"github.com/gogpu/imagecomp/internal/imageutil"
	"github.com/gogpu/imagecomp/layer"
	"github.com/gogpu/imagecomp/renderer"
	"github.com/gogpu/imagecomp/shader"
)

func main() {
	var (
		width  = flag.Int("width", 640, "canvas width")
		height = flag.Int("height", 480, "canvas height")
		output = flag.String("output", "composite.png", "output file")
	)
	flag.Parse()

	dev, err := backend.Open(backend.NameSoftware)
	if err != nil {
		log.Fatalf("open backend: %v", err)
	}

	eng := imagecomp.NewEngine(imagecomp.Options{})
	eng.InitializeMode(shader.ModeHybrid, dev)
	defer eng.Close()

	// Bottom layer: a horizontal gradient. Top layer: a disc, blended
	// with multiply at half opacity.
	gradient := gradientImage(*width, *height)
	disc := discImage(*width, *height)

	textures := map[string]device.Texture{
		"gradient": upload(dev, gradient, *width, *height),
		"disc":     upload(dev, disc, *width, *height),
	}

	frame := &renderer.Frame{
		Layers: []*layer.Layer{
			{ID: "bg", Kind: layer.KindImage, Visible: true, Opacity: 100,
				BlendMode: layer.BlendNormal, TextureID: "gradient"},
			{ID: "fg", Kind: layer.KindImage, Visible: true, Opacity: 50,
				BlendMode: layer.BlendMultiply, TextureID: "disc"},
		},
		Textures: textures,
		Width:    *width,
		Height:   *height,
	}

	result, err := eng.RenderLayers(frame)
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	pixels, err := dev.ReadPixels(result)
	if err != nil {
		log.Fatalf("read pixels: %v", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, *width, *height))
	copy(out.Pix, pixels)

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, out); err != nil {
		log.Fatalf("encode: %v", err)
	}

	log.Printf("composite saved to %s (%dx%d)", *output, *width, *height)
}

func upload(dev device.Device, img image.Image, w, h int) device.Texture {
	tex, err := dev.NewTexture(w, h, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		log.Fatalf("texture: %v", err)
	}
	pix, _, _ := imageutil.ToRGBA(img)
	if err := dev.Upload(tex, pix); err != nil {
		log.Fatalf("upload: %v", err)
	}
	return tex
}

func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255 * x / (w - 1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: 64, B: 255 - v, A: 255})
		}
	}
	return img
}

func discImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cx, cy := w/2, h/2
	r := w / 3
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 220, B: 80, A: 255})
			}
		}
	}
	return img
}
