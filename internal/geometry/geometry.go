// Package geometry rotates and crops raster buffers.
//
// The crop rectangle is expressed in normalized coordinates relative to the
// rotated bounding box of the source, which is how the editing UI stores it:
// the user sees the rotated frame and drags a crop inside it. A single
// affine compose handles every rotation magnitude with no per-angle special
// cases.
package geometry

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/filmgallery/filmrender/internal/raster"
)

// CropRect is a normalized crop rectangle: origin and extent in [0,1],
// measured against the rotated bounding box.
type CropRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FullFrame is the crop that keeps the whole rotated bounding box.
var FullFrame = CropRect{X: 0, Y: 0, W: 1, H: 1}

// IsFullFrame reports whether the crop covers the entire frame.
func (c CropRect) IsFullFrame() bool {
	return c.X == 0 && c.Y == 0 && c.W == 1 && c.H == 1
}

// Transform rotates src by rotationDegrees (positive = clockwise in screen
// coordinates) and extracts the normalized crop from the rotated bounding
// box. The returned raster is newly allocated and sized to the clamped crop;
// regions of the canvas not covered by the rotated source stay fully
// transparent.
//
// When rotation is zero and the crop is full-frame the input is returned
// unchanged, ownership included.
func Transform(src *raster.Image, rotationDegrees float64, crop CropRect) *raster.Image {
	if rotationDegrees == 0 && crop.IsFullFrame() {
		return src
	}

	sw := float64(src.Width)
	sh := float64(src.Height)

	theta := rotationDegrees * math.Pi / 180
	sin, cos := math.Sincos(theta)
	absSin, absCos := math.Abs(sin), math.Abs(cos)

	// Axis-aligned bounding box of the rotated source.
	rotW := sw*absCos + sh*absSin
	rotH := sw*absSin + sh*absCos
	rotWi := int(math.Round(rotW))
	rotHi := int(math.Round(rotH))

	// Map the normalized crop into bounding-box pixels, then clamp: the
	// origin stays inside the box, the extent never reaches past it, and
	// width/height are floored at one pixel.
	cx := clampInt(int(math.Round(crop.X*rotW)), 0, rotWi-1)
	cy := clampInt(int(math.Round(crop.Y*rotH)), 0, rotHi-1)
	cw := maxInt(1, int(math.Round(crop.W*rotW)))
	ch := maxInt(1, int(math.Round(crop.H*rotH)))
	if cx+cw > rotWi {
		cw = maxInt(1, rotWi-cx)
	}
	if cy+ch > rotHi {
		ch = maxInt(1, rotHi-cy)
	}

	// Forward source→canvas map: center the source, rotate, move to the
	// bounding-box center, then shift by the negative crop origin.
	tx := rotW/2 - float64(cx) + (-sw/2*cos + sh/2*sin)
	ty := rotH/2 - float64(cy) + (-sw/2*sin - sh/2*cos)
	m := f64.Aff3{
		cos, -sin, tx,
		sin, cos, ty,
	}

	dst := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	srcImg := src.NRGBA()
	draw.BiLinear.Transform(dst, m, srcImg, srcImg.Bounds(), draw.Src, nil)

	return raster.FromImage(dst)
}

// RotatedBounds returns the integer bounding-box dimensions of a w×h frame
// rotated by the given angle. Exposed for callers that need to convert
// normalized crops to pixels without performing the transform.
func RotatedBounds(w, h int, rotationDegrees float64) (int, int) {
	theta := rotationDegrees * math.Pi / 180
	sin, cos := math.Sincos(theta)
	rw := float64(w)*math.Abs(cos) + float64(h)*math.Abs(sin)
	rh := float64(w)*math.Abs(sin) + float64(h)*math.Abs(cos)
	return int(math.Round(rw)), int(math.Round(rh))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
