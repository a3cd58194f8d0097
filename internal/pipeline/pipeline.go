// Package pipeline implements the per-pixel color stage of the render
// engine.
//
// The stage is split in two phases. Prepare folds the user's adjustments
// into derived lookup structures once per render call; the resulting
// Prepared value then maps individual RGB triples. Apply is a pure function
// of (Prepared, r, g, b): no external state, no randomness. That purity is
// a hard contract: an independent hardware-accelerated renderer given the
// same Parameters must produce visually indistinguishable output, and it is
// what licenses running the pixel loop row-parallel.
//
// Alpha is never touched. Pixels with alpha==0 are skipped entirely and
// stay byte-identical, both to save work and to keep the transparent
// padding produced by the geometry stage free of color artifacts.
package pipeline

import (
	"github.com/filmgallery/filmrender/internal/geometry"
	"github.com/filmgallery/filmrender/internal/lut"
)

// Geometry carries the rotation and crop knobs for one render pass. The
// color stage ignores it; orchestrators read it when invoking the geometry
// transform.
type Geometry struct {
	// RotationDegrees is the user's rotate control.
	RotationDegrees float64 `json:"rotationDegrees"`

	// OrientationDegrees is the capture-orientation correction, applied on
	// top of the user rotation.
	OrientationDegrees float64 `json:"orientationDegrees"`

	// Crop is normalized to the rotated bounding box.
	Crop geometry.CropRect `json:"cropRect"`
}

// EffectiveRotation is the single angle handed to the geometry stage:
// user rotation plus orientation correction.
func (g Geometry) EffectiveRotation() float64 {
	return g.RotationDegrees + g.OrientationDegrees
}

// CurvePoint is one control point of a tone curve; both coordinates are
// normalized to [0,1].
type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curves holds optional per-channel tone curves. A nil or empty channel is
// the identity curve.
type Curves struct {
	Red   []CurvePoint `json:"red,omitempty"`
	Green []CurvePoint `json:"green,omitempty"`
	Blue  []CurvePoint `json:"blue,omitempty"`
}

// Band identifies one of the eight hue bands of the HSL mixer.
type Band int

// Hue bands in wheel order.
const (
	BandRed Band = iota
	BandOrange
	BandYellow
	BandGreen
	BandCyan
	BandBlue
	BandPurple
	BandMagenta

	bandCount
)

// bandCenters are the hue-wheel anchors for each band, in degrees.
var bandCenters = [bandCount]float64{0, 30, 60, 120, 180, 240, 280, 320}

// BandAdjustment is the per-band HSL mixer entry.
type BandAdjustment struct {
	// Hue shift in degrees, [-180,180].
	Hue float64 `json:"hue"`

	// Saturation adjustment in percent, [-100,100].
	Saturation float64 `json:"saturation"`

	// Luminance adjustment in percent, [-100,100].
	Luminance float64 `json:"luminance"`
}

// HSLTable indexes a BandAdjustment per hue band.
type HSLTable [bandCount]BandAdjustment

// IsNeutral reports whether every band adjustment is zero.
func (t HSLTable) IsNeutral() bool {
	return t == HSLTable{}
}

// Parameters is the immutable-per-call set of geometry and color knobs for
// one render pass. The zero value is neutral: no rotation, full-frame crop
// is expressed as the zero CropRect being replaced by callers, and every
// color adjustment disabled.
type Parameters struct {
	Geometry Geometry `json:"geometry"`

	// Exposure in stops; 0 is neutral, +1 doubles linear values.
	Exposure float64 `json:"exposure"`

	// Contrast in percent around mid-gray; 0 is neutral.
	Contrast float64 `json:"contrast"`

	Curves Curves   `json:"curves"`
	HSL    HSLTable `json:"hsl"`

	// LUT is an optional 3D table applied after all other adjustments.
	// Callers own loading and caching; the engine never caches tables.
	LUT *lut.Table `json:"-"`

	// LUTStrength blends between identity (0) and the full LUT result (1).
	// Zero is treated as 1 so that callers who set only LUT get the full
	// effect.
	LUTStrength float64 `json:"lutStrength,omitempty"`
}

// Core is the pluggable numeric color core. Prepare precomputes the derived
// structures for a parameter set; the returned Prepared must satisfy the
// purity contract described in the package comment.
type Core interface {
	Prepare(p Parameters) Prepared
}

// Prepared maps one RGB triple. Implementations must be pure and safe for
// concurrent use.
type Prepared interface {
	Apply(r, g, b uint8) (uint8, uint8, uint8)
}
