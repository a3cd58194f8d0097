// Package encoder serializes rasters into output containers.
//
// The requested format is a closed tagged variant rather than a string, so
// the unsupported-format branch lives in exactly one place (ParseFormat)
// and the encode switch is exhaustive over known formats. 16-bit TIFF is
// accepted as a request but not produced: it degrades to lossless PNG with
// a non-fatal warning attached, never a hard failure.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/filmgallery/filmrender/internal/raster"
)

// ErrUnsupportedFormat reports a requested output format the engine does
// not know at all. Unlike the tiff16 degradation this is a hard failure.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ErrEmptyOutput reports that encoding a supported format produced no
// bytes.
var ErrEmptyOutput = errors.New("encoder produced no output")

// Format is the closed set of output requests.
type Format interface {
	// ContentType is the MIME type the encoded bytes will carry. For
	// Tiff16 this is the fallback container's type.
	ContentType() string

	format()
}

// Jpeg encodes lossy JPEG at the given quality in (0,1].
type Jpeg struct {
	Quality float64
}

// Png encodes lossless PNG.
type Png struct{}

// Tiff16 is a request for 16-bit TIFF, which the engine degrades to PNG.
type Tiff16 struct{}

func (Jpeg) format()   {}
func (Png) format()    {}
func (Tiff16) format() {}

func (Jpeg) ContentType() string   { return "image/jpeg" }
func (Png) ContentType() string    { return "image/png" }
func (Tiff16) ContentType() string { return "image/png" }

// ParseFormat resolves a caller-supplied format name. quality applies to
// JPEG only and is clamped to (0,1]; zero selects maximum quality. Unknown
// names fail with ErrUnsupportedFormat.
func ParseFormat(name string, quality float64) (Format, error) {
	switch name {
	case "jpeg", "jpg":
		if quality <= 0 || quality > 1 {
			quality = 1
		}
		return Jpeg{Quality: quality}, nil
	case "png":
		return Png{}, nil
	case "tiff16":
		return Tiff16{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnsupportedFormat)
	}
}

// Encoded is the serialized output of one raster.
type Encoded struct {
	Bytes       []byte
	ContentType string

	// Warning is set when the requested format was degraded (tiff16→png).
	// The encode still succeeded.
	Warning string
}

// Encode serializes img under the requested format policy.
func Encode(img *raster.Image, format Format) (*Encoded, error) {
	var buf bytes.Buffer
	out := &Encoded{ContentType: format.ContentType()}

	switch f := format.(type) {
	case Jpeg:
		q := int(f.Quality * 100)
		if q < 1 {
			q = 1
		}
		if q > 100 {
			q = 100
		}
		if err := jpeg.Encode(&buf, img.NRGBA(), &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("jpeg encode: %w", err)
		}
	case Png:
		if err := png.Encode(&buf, img.NRGBA()); err != nil {
			return nil, fmt.Errorf("png encode: %w", err)
		}
	case Tiff16:
		if err := png.Encode(&buf, img.NRGBA()); err != nil {
			return nil, fmt.Errorf("png encode: %w", err)
		}
		out.Warning = "16-bit TIFF output is not supported; encoded lossless PNG instead"
	default:
		// Unreachable for values built through ParseFormat; guards
		// against foreign Format implementations.
		return nil, ErrUnsupportedFormat
	}

	if buf.Len() == 0 {
		return nil, ErrEmptyOutput
	}

	out.Bytes = buf.Bytes()
	return out, nil
}
