// Package loader decodes source images into raster buffers, optionally
// downscaling them, under a bounded wait.
//
// Sources are addressed by file path or http(s) URL. Decoders for JPEG,
// PNG, GIF, TIFF, BMP and WebP are registered; RAW negatives are decoded
// upstream of this engine and arrive here as rendered positives.
package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/filmgallery/filmrender/internal/raster"
)

// ErrDecode reports that the source bytes could not be decoded as an
// image, or could not be read at all.
var ErrDecode = errors.New("image load failed")

// ErrTimeout reports that loading exceeded the bounded wait.
var ErrTimeout = errors.New("image load timed out")

// DefaultTimeout bounds a single load, fetch and decode included.
const DefaultTimeout = 30 * time.Second

// Loader loads and scales source images. The zero value is usable.
type Loader struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration

	// Client is used for http(s) sources; nil means http.DefaultClient.
	Client *http.Client
}

// Result is a decoded raster plus the source's pre-scale dimensions.
type Result struct {
	Image *raster.Image

	OriginalWidth  int
	OriginalHeight int
}

// Load decodes the image at addr. When maxWidth is positive and the source
// is wider, the image is downscaled to maxWidth preserving aspect ratio
// with integer rounding on both axes.
//
// A deadline overrun resolves to ErrTimeout; cancellation of ctx is
// returned as ctx.Err() so callers can keep it distinct from failure.
func (l Loader) Load(ctx context.Context, addr string, maxWidth int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		res, err := l.decode(tctx, addr, maxWidth)
		ch <- outcome{res, err}
	}()

	// Classify the bound: the loader's own deadline is a timeout failure,
	// the caller's cancellation is passed through untouched so the two
	// outcomes stay distinct.
	select {
	case o := <-ch:
		if o.err == nil {
			return o.res, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("loading %q: %w", addr, ErrTimeout)
		}
		return nil, o.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("loading %q: %w", addr, ErrTimeout)
	}
}

func (l Loader) decode(ctx context.Context, addr string, maxWidth int) (*Result, error) {
	rc, err := l.open(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %v: %w", addr, err, ErrDecode)
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %v: %w", addr, err, ErrDecode)
	}

	bounds := img.Bounds()
	res := &Result{
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}

	if maxWidth > 0 && bounds.Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	res.Image = raster.FromImage(img)
	return res, nil
}

func (l Loader) open(ctx context.Context, addr string) (io.ReadCloser, error) {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	return os.Open(addr)
}
