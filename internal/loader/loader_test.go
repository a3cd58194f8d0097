package loader

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestPNG creates a w×h PNG file and returns its path.
func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 100, 255})
		}
	}

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeTestPNG(t, 120, 80)

	res, err := Loader{}.Load(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if res.Image.Width != 120 || res.Image.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", res.Image.Width, res.Image.Height)
	}
	if res.OriginalWidth != 120 || res.OriginalHeight != 80 {
		t.Errorf("original dimensions: got %dx%d, want 120x80", res.OriginalWidth, res.OriginalHeight)
	}
}

func TestLoad_Downscale(t *testing.T) {
	path := writeTestPNG(t, 120, 80)

	res, err := Loader{}.Load(context.Background(), path, 60)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if res.Image.Width != 60 || res.Image.Height != 40 {
		t.Errorf("scaled dimensions: got %dx%d, want 60x40", res.Image.Width, res.Image.Height)
	}
	if res.OriginalWidth != 120 || res.OriginalHeight != 80 {
		t.Errorf("original dimensions must be pre-scale: got %dx%d", res.OriginalWidth, res.OriginalHeight)
	}
}

func TestLoad_NoUpscale(t *testing.T) {
	path := writeTestPNG(t, 50, 30)

	res, err := Loader{}.Load(context.Background(), path, 1400)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if res.Image.Width != 50 || res.Image.Height != 30 {
		t.Errorf("narrow source must not be upscaled: got %dx%d", res.Image.Width, res.Image.Height)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Loader{}.Load(context.Background(), filepath.Join(t.TempDir(), "nope.png"), 0)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got %v, want ErrDecode", err)
	}
}

func TestLoad_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("definitely not a PNG"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Loader{}.Load(context.Background(), path, 0)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got %v, want ErrDecode", err)
	}
}

func TestLoad_HTTP(t *testing.T) {
	path := writeTestPNG(t, 64, 48)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	res, err := Loader{}.Load(context.Background(), srv.URL+"/photo.png", 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Image.Width != 64 || res.Image.Height != 48 {
		t.Errorf("dimensions: got %dx%d, want 64x48", res.Image.Width, res.Image.Height)
	}
}

func TestLoad_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Loader{}.Load(context.Background(), srv.URL+"/missing.png", 0)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got %v, want ErrDecode", err)
	}
}

func TestLoad_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	l := Loader{Timeout: 10 * time.Millisecond}
	_, err := l.Load(context.Background(), srv.URL+"/slow.png", 0)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	path := writeTestPNG(t, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Loader{}.Load(ctx, path, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrDecode) {
		t.Error("cancellation must stay distinct from load failure")
	}
}
