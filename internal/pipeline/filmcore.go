package pipeline

import (
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/filmgallery/filmrender/internal/lut"
)

// FilmCore is the default color core. Prepare folds exposure, contrast and
// the per-channel tone curve into one 256-entry table per channel; the hue
// mixer and 3D LUT stay as functions evaluated per pixel.
type FilmCore struct{}

// bandHalfWidth is the triangular falloff half-width of one hue band, in
// degrees. A pixel's hue contributes to every band within this distance,
// weighted linearly toward zero at the edge.
const bandHalfWidth = 45.0

type filmPrepared struct {
	curveR, curveG, curveB [256]float64

	hsl    HSLTable
	hasHSL bool

	sampler  *lut.Sampler
	strength float64
}

// Prepare builds the derived structures for p. An invalid LUT (sample count
// not matching its declared size) is treated as no LUT at all; the render
// proceeds without it.
func (FilmCore) Prepare(p Parameters) Prepared {
	fp := &filmPrepared{
		hsl:    p.HSL,
		hasHSL: !p.HSL.IsNeutral(),
	}

	gain := math.Exp2(p.Exposure)
	slope := 1 + p.Contrast/100

	curveR := newCurve(p.Curves.Red)
	curveG := newCurve(p.Curves.Green)
	curveB := newCurve(p.Curves.Blue)

	for i := 0; i < 256; i++ {
		v := float64(i) / 255
		v = clamp01((v*gain-0.5)*slope + 0.5)
		fp.curveR[i] = curveR.eval(v)
		fp.curveG[i] = curveG.eval(v)
		fp.curveB[i] = curveB.eval(v)
	}

	if p.LUT != nil {
		if s, ok := lut.NewSampler(*p.LUT); ok {
			fp.sampler = s
			fp.strength = p.LUTStrength
			if fp.strength <= 0 || fp.strength > 1 {
				fp.strength = 1
			}
		}
	}

	return fp
}

// Apply maps one pixel: tone tables, then the hue mixer, then the LUT.
func (fp *filmPrepared) Apply(r, g, b uint8) (uint8, uint8, uint8) {
	rf := fp.curveR[r]
	gf := fp.curveG[g]
	bf := fp.curveB[b]

	if fp.hasHSL {
		rf, gf, bf = adjustHSL(rf, gf, bf, &fp.hsl)
	}

	if fp.sampler != nil {
		lr, lg, lb := fp.sampler.Sample(rf, gf, bf)
		rf = rf + fp.strength*(lr-rf)
		gf = gf + fp.strength*(lg-gf)
		bf = bf + fp.strength*(lb-bf)
	}

	return quantize(rf), quantize(gf), quantize(bf)
}

// adjustHSL applies the 8-band hue mixer to one RGB triple in [0,1].
func adjustHSL(rf, gf, bf float64, t *HSLTable) (float64, float64, float64) {
	h, s, l := colorful.Color{R: rf, G: gf, B: bf}.Hsl()

	var dh, ds, dl float64
	for band := BandRed; band < bandCount; band++ {
		w := bandWeight(h, bandCenters[band])
		if w == 0 {
			continue
		}
		adj := t[band]
		dh += w * adj.Hue
		ds += w * adj.Saturation / 100
		dl += w * adj.Luminance / 100
	}

	h = math.Mod(h+dh+360, 360)
	s = clamp01(s * (1 + ds))
	l = clamp01(l * (1 + dl))

	out := colorful.Hsl(h, s, l)
	return clamp01(out.R), clamp01(out.G), clamp01(out.B)
}

// bandWeight is the triangular membership of hue h (degrees) in the band
// centered at c, with wraparound at 360.
func bandWeight(h, c float64) float64 {
	d := math.Abs(h - c)
	if d > 180 {
		d = 360 - d
	}
	if d >= bandHalfWidth {
		return 0
	}
	return 1 - d/bandHalfWidth
}

// curve is a piecewise-linear tone curve over sorted control points.
type curve struct {
	points []CurvePoint
}

func newCurve(points []CurvePoint) curve {
	if len(points) == 0 {
		return curve{}
	}
	sorted := make([]CurvePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })
	return curve{points: sorted}
}

func (c curve) eval(x float64) float64 {
	if len(c.points) == 0 {
		return x
	}
	pts := c.points
	if x <= pts[0].X {
		return clamp01(pts[0].Y)
	}
	for i := 1; i < len(pts); i++ {
		if x <= pts[i].X {
			span := pts[i].X - pts[i-1].X
			if span == 0 {
				return clamp01(pts[i].Y)
			}
			t := (x - pts[i-1].X) / span
			return clamp01(pts[i-1].Y + t*(pts[i].Y-pts[i-1].Y))
		}
	}
	return clamp01(pts[len(pts)-1].Y)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func quantize(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
