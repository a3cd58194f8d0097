package pipeline

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/filmgallery/filmrender/internal/raster"
)

// ApplyImage runs a prepared pipeline over every pixel of img, in place,
// and returns img. Rows are processed in parallel; the purity of
// Prepared.Apply makes the split safe without coordination.
//
// Fully transparent pixels are skipped, leaving all four bytes untouched.
func ApplyImage(p Prepared, img *raster.Image) *raster.Image {
	stride := 4 * img.Width

	parallel.Line(img.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := img.Pix[y*stride : y*stride+stride]
			for x := 0; x < len(row); x += 4 {
				if row[x+3] == 0 {
					continue
				}
				r, g, b := p.Apply(row[x], row[x+1], row[x+2])
				row[x] = r
				row[x+1] = g
				row[x+2] = b
			}
		}
	})

	return img
}
