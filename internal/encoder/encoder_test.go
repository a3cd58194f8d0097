package encoder

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/filmgallery/filmrender/internal/raster"
)

func testRaster(w, h int) *raster.Image {
	img := raster.New(w, h)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(i)
		img.Pix[i+1] = 128
		img.Pix[i+2] = uint8(255 - i)
		img.Pix[i+3] = 255
	}
	return img
}

func TestEncode_Jpeg(t *testing.T) {
	out, err := Encode(testRaster(32, 24), Jpeg{Quality: 0.9})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if out.ContentType != "image/jpeg" {
		t.Errorf("content type: got %s, want image/jpeg", out.ContentType)
	}
	if out.Warning != "" {
		t.Errorf("unexpected warning: %q", out.Warning)
	}

	img, err := jpeg.Decode(bytes.NewReader(out.Bytes))
	if err != nil {
		t.Fatalf("output is not decodable JPEG: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("decoded dimensions: got %v", img.Bounds())
	}
}

func TestEncode_Png(t *testing.T) {
	out, err := Encode(testRaster(16, 16), Png{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if out.ContentType != "image/png" {
		t.Errorf("content type: got %s, want image/png", out.ContentType)
	}
	if _, err := png.Decode(bytes.NewReader(out.Bytes)); err != nil {
		t.Fatalf("output is not decodable PNG: %v", err)
	}
}

func TestEncode_Tiff16FallsBackToPng(t *testing.T) {
	out, err := Encode(testRaster(16, 16), Tiff16{})
	if err != nil {
		t.Fatalf("tiff16 must never hard-fail: %v", err)
	}

	if out.ContentType != "image/png" {
		t.Errorf("content type: got %s, want image/png", out.ContentType)
	}
	if out.Warning == "" {
		t.Error("tiff16 fallback must carry a warning")
	}
	if _, err := png.Decode(bytes.NewReader(out.Bytes)); err != nil {
		t.Fatalf("fallback output is not decodable PNG: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		quality float64
		want    Format
	}{
		{"jpeg", 0.8, Jpeg{Quality: 0.8}},
		{"jpg", 0.5, Jpeg{Quality: 0.5}},
		{"jpeg", 0, Jpeg{Quality: 1}},  // zero selects max quality
		{"jpeg", 7, Jpeg{Quality: 1}},  // out of range clamps
		{"png", 0, Png{}},
		{"tiff16", 0, Tiff16{}},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.name, tt.quality)
		if err != nil {
			t.Errorf("ParseFormat(%q): unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q, %v): got %#v, want %#v", tt.name, tt.quality, got, tt.want)
		}
	}
}

func TestParseFormat_Unsupported(t *testing.T) {
	for _, name := range []string{"bmp", "gif", "webp", "", "JPEG"} {
		_, err := ParseFormat(name, 0)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q): got %v, want ErrUnsupportedFormat", name, err)
		}
	}
}

func TestEncode_SinglePixel(t *testing.T) {
	out, err := Encode(testRaster(1, 1), Png{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(out.Bytes) == 0 {
		t.Error("encoded output is empty")
	}
}
