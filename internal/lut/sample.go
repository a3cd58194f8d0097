package lut

// Sampler performs trilinear interpolation over a validated Table.
//
// Sampling is pure: the same input triple always yields the same output, so
// a Sampler may be shared across goroutines once built.
type Sampler struct {
	size int
	data []float64
}

// NewSampler builds a trilinear sampler for t. It returns ok=false when the
// table is malformed (wrong sample count for its declared size), in which
// case callers should render without the LUT rather than fail.
func NewSampler(t Table) (*Sampler, bool) {
	if !t.Valid() {
		return nil, false
	}
	return &Sampler{size: t.Size, data: t.Data}, true
}

// at returns the grid sample at integer indices, red varying fastest.
func (s *Sampler) at(r, g, b int) (float64, float64, float64) {
	i := 3 * (r + g*s.size + b*s.size*s.size)
	return s.data[i], s.data[i+1], s.data[i+2]
}

// Sample maps an RGB triple in [0,1] through the cube using trilinear
// interpolation. Inputs outside [0,1] are clamped to the grid.
func (s *Sampler) Sample(r, g, b float64) (float64, float64, float64) {
	n := float64(s.size - 1)

	ri := clampf(r, 0, 1) * n
	gi := clampf(g, 0, 1) * n
	bi := clampf(b, 0, 1) * n

	r0, g0, b0 := int(ri), int(gi), int(bi)
	r1, g1, b1 := minInt(r0+1, s.size-1), minInt(g0+1, s.size-1), minInt(b0+1, s.size-1)
	rf, gf, bf := ri-float64(r0), gi-float64(g0), bi-float64(b0)

	// Interpolate the 8 cube corners along red, then green, then blue.
	c000r, c000g, c000b := s.at(r0, g0, b0)
	c100r, c100g, c100b := s.at(r1, g0, b0)
	c010r, c010g, c010b := s.at(r0, g1, b0)
	c110r, c110g, c110b := s.at(r1, g1, b0)
	c001r, c001g, c001b := s.at(r0, g0, b1)
	c101r, c101g, c101b := s.at(r1, g0, b1)
	c011r, c011g, c011b := s.at(r0, g1, b1)
	c111r, c111g, c111b := s.at(r1, g1, b1)

	c00r, c00g, c00b := lerp3(c000r, c000g, c000b, c100r, c100g, c100b, rf)
	c10r, c10g, c10b := lerp3(c010r, c010g, c010b, c110r, c110g, c110b, rf)
	c01r, c01g, c01b := lerp3(c001r, c001g, c001b, c101r, c101g, c101b, rf)
	c11r, c11g, c11b := lerp3(c011r, c011g, c011b, c111r, c111g, c111b, rf)

	c0r, c0g, c0b := lerp3(c00r, c00g, c00b, c10r, c10g, c10b, gf)
	c1r, c1g, c1b := lerp3(c01r, c01g, c01b, c11r, c11g, c11b, gf)

	return lerp3(c0r, c0g, c0b, c1r, c1g, c1b, bf)
}

func lerp3(ar, ag, ab, br, bg, bb, t float64) (float64, float64, float64) {
	return ar + t*(br-ar), ag + t*(bg-ag), ab + t*(bb-ab)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
