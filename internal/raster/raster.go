// Package raster defines the pixel buffer type passed between render stages.
//
// An Image is a plain RGBA8 buffer (row-major, 4 bytes per pixel, alpha
// non-premultiplied). Each pipeline stage owns the Image it holds; a stage
// that transforms an Image returns a new one and the input must not be
// reused afterwards. Nothing in this package locks; ownership transfer is
// the concurrency model.
package raster

import (
	"image"
	"image/draw"
)

// Image is a decoded RGBA8 raster with explicit dimensions.
//
// Pix holds 4*Width*Height bytes in R, G, B, A order. Alpha is
// non-premultiplied so fully transparent pixels keep their RGB bytes,
// which the color stage relies on when skipping alpha==0 pixels.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed raster of the given dimensions.
func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 4*width*height),
	}
}

// FromImage converts any image.Image into a raster, copying pixels.
//
// *image.NRGBA sources with zero-origin bounds are adopted without a copy,
// which covers the common decode and resize paths.
func FromImage(src image.Image) *Image {
	if n, ok := src.(*image.NRGBA); ok {
		b := n.Bounds()
		if b.Min.X == 0 && b.Min.Y == 0 && n.Stride == 4*b.Dx() {
			return &Image{Width: b.Dx(), Height: b.Dy(), Pix: n.Pix}
		}
	}

	b := src.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), src, b.Min, draw.Src)
	return &Image{Width: b.Dx(), Height: b.Dy(), Pix: n.Pix}
}

// NRGBA exposes the raster as an *image.NRGBA sharing the same pixel
// storage. Mutating the returned image mutates the raster.
func (m *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    m.Pix,
		Stride: 4 * m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// Clone returns a deep copy of the raster.
func (m *Image) Clone() *Image {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Pix: pix}
}
