package pipeline

import (
	"math"

	"github.com/filmgallery/filmrender/internal/lut"
)

// ReferenceCore mirrors the hardware-accelerated renderer's fragment path:
// single-precision tone arithmetic, every operation evaluated per pixel, no
// precomputed tables, and its own HSL conversion and cube interpolation.
// Beyond the parameter types it shares nothing with FilmCore, so comparing
// the two cores compares two independent renditions of the color contract;
// production renders use FilmCore.
type ReferenceCore struct{}

type referencePrepared struct {
	gain, slope float32

	curveR, curveG, curveB curve

	hsl    HSLTable
	hasHSL bool

	table    *lut.Table
	strength float64
}

// Prepare retains the parameters in shader-friendly form; no tables are
// built.
func (ReferenceCore) Prepare(p Parameters) Prepared {
	rp := &referencePrepared{
		gain:   float32(math.Exp2(p.Exposure)),
		slope:  float32(1 + p.Contrast/100),
		curveR: newCurve(p.Curves.Red),
		curveG: newCurve(p.Curves.Green),
		curveB: newCurve(p.Curves.Blue),
		hsl:    p.HSL,
		hasHSL: !p.HSL.IsNeutral(),
	}

	if p.LUT != nil && p.LUT.Valid() {
		rp.table = p.LUT
		rp.strength = p.LUTStrength
		if rp.strength <= 0 || rp.strength > 1 {
			rp.strength = 1
		}
	}

	return rp
}

func (rp *referencePrepared) tone(v uint8, c curve) float64 {
	f := float32(v) / 255
	f = (f*rp.gain-0.5)*rp.slope + 0.5
	return c.eval(clamp01(float64(f)))
}

// Apply evaluates the same adjustment chain as FilmCore, in evaluation
// order: tone, hue mixer, LUT.
func (rp *referencePrepared) Apply(r, g, b uint8) (uint8, uint8, uint8) {
	rf := rp.tone(r, rp.curveR)
	gf := rp.tone(g, rp.curveG)
	bf := rp.tone(b, rp.curveB)

	if rp.hasHSL {
		rf, gf, bf = rp.mix(rf, gf, bf)
	}

	if rp.table != nil {
		lr, lg, lb := rp.sample(rf, gf, bf)
		rf = rf + rp.strength*(lr-rf)
		gf = gf + rp.strength*(lg-gf)
		bf = bf + rp.strength*(lb-bf)
	}

	return quantize(rf), quantize(gf), quantize(bf)
}

// mix applies the 8-band hue mixer using the reference's own HSL
// round trip.
func (rp *referencePrepared) mix(rf, gf, bf float64) (float64, float64, float64) {
	h, s, l := refRGBToHSL(rf, gf, bf)

	var dh, ds, dl float64
	for band := BandRed; band < bandCount; band++ {
		d := math.Abs(h - bandCenters[band])
		if d > 180 {
			d = 360 - d
		}
		if d >= bandHalfWidth {
			continue
		}
		w := 1 - d/bandHalfWidth
		adj := rp.hsl[band]
		dh += w * adj.Hue
		ds += w * adj.Saturation / 100
		dl += w * adj.Luminance / 100
	}

	h = math.Mod(h+dh+360, 360)
	s = clamp01(s * (1 + ds))
	l = clamp01(l * (1 + dl))

	r2, g2, b2 := refHSLToRGB(h, s, l)
	return clamp01(r2), clamp01(g2), clamp01(b2)
}

// sample interpolates the cube directly from its flat data, summing the
// eight corner contributions instead of nesting lerps.
func (rp *referencePrepared) sample(r, g, b float64) (float64, float64, float64) {
	n := rp.table.Size
	step := float64(n - 1)

	ri := clamp01(r) * step
	gi := clamp01(g) * step
	bi := clamp01(b) * step

	r0, g0, b0 := int(ri), int(gi), int(bi)
	fr, fg, fb := ri-float64(r0), gi-float64(g0), bi-float64(b0)

	var or, og, ob float64
	for corner := 0; corner < 8; corner++ {
		dr := corner & 1
		dg := corner >> 1 & 1
		db := corner >> 2 & 1

		w := cornerWeight(fr, dr) * cornerWeight(fg, dg) * cornerWeight(fb, db)
		if w == 0 {
			continue
		}

		idx := 3 * (min(r0+dr, n-1) + min(g0+dg, n-1)*n + min(b0+db, n-1)*n*n)
		or += w * rp.table.Data[idx]
		og += w * rp.table.Data[idx+1]
		ob += w * rp.table.Data[idx+2]
	}
	return or, og, ob
}

func cornerWeight(f float64, hi int) float64 {
	if hi == 1 {
		return f
	}
	return 1 - f
}

func refRGBToHSL(r, g, b float64) (h, s, l float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}

	d := max - min
	if l < 0.5 {
		s = d / (max + min)
	} else {
		s = d / (2 - max - min)
	}

	switch max {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, l
}

func refHSLToRGB(h, s, l float64) (float64, float64, float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	hn := h / 360
	return hueToChannel(p, q, hn+1.0/3), hueToChannel(p, q, hn), hueToChannel(p, q, hn-1.0/3)
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}
