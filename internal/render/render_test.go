package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmgallery/filmrender/internal/encoder"
	"github.com/filmgallery/filmrender/internal/geometry"
	"github.com/filmgallery/filmrender/internal/pipeline"
)

// writeSource creates a w×h PNG and returns its path.
func writeSource(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// fakeUploader records calls and fails until the failure budget runs out.
type fakeUploader struct {
	failures int
	calls    int
	lastMeta UploadMetadata
}

func (u *fakeUploader) Upload(_ context.Context, data []byte, meta UploadMetadata) (string, error) {
	u.calls++
	u.lastMeta = meta
	if u.failures > 0 {
		u.failures--
		return "", fmt.Errorf("storage unreachable")
	}
	return "/stored/" + meta.FileName, nil
}

// countingCore wraps FilmCore and counts Prepare invocations.
type countingCore struct {
	prepares int
}

func (c *countingCore) Prepare(p pipeline.Parameters) pipeline.Prepared {
	c.prepares++
	return pipeline.FilmCore{}.Prepare(p)
}

func TestPreview_AlwaysJpegAndBounded(t *testing.T) {
	source := writeSource(t, 2100, 1400)
	engine := &Engine{}

	// Caller asks for png; preview ignores it.
	res := engine.Preview(context.Background(), Request{Source: source, Format: "png"})

	require.True(t, res.OK, "preview failed: %v", res.Err)
	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.LessOrEqual(t, res.Width, PreviewMaxWidth)
	assert.LessOrEqual(t, res.Height, PreviewMaxWidth)
	assert.NotEmpty(t, res.Bytes)
}

func TestExport_Png(t *testing.T) {
	source := writeSource(t, 320, 200)
	engine := &Engine{}

	res := engine.Export(context.Background(), Request{Source: source, Format: "png"})

	require.True(t, res.OK, "export failed: %v", res.Err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, 320, res.Width)
	assert.Equal(t, 200, res.Height)
}

func TestExport_Tiff16DegradesWithWarning(t *testing.T) {
	source := writeSource(t, 64, 48)
	engine := &Engine{}

	res := engine.Export(context.Background(), Request{Source: source, Format: "tiff16"})

	require.True(t, res.OK)
	assert.Equal(t, "image/png", res.ContentType)
	assert.NotEmpty(t, res.Warning)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	engine := &Engine{}

	res := engine.Export(context.Background(), Request{Source: "irrelevant.png", Format: "bmp"})

	assert.False(t, res.OK)
	assert.Equal(t, StageEncoding, res.FailedStage)
	assert.ErrorIs(t, res.Err, encoder.ErrUnsupportedFormat)
	assert.Empty(t, res.Bytes)
}

func TestExport_MissingSource(t *testing.T) {
	engine := &Engine{}

	res := engine.Export(context.Background(), Request{
		Source: filepath.Join(t.TempDir(), "gone.png"),
		Format: "jpeg",
	})

	assert.False(t, res.OK)
	assert.Equal(t, StageLoading, res.FailedStage)
	require.Error(t, res.Err)
}

func TestExport_RotationAndCrop(t *testing.T) {
	source := writeSource(t, 120, 80)
	engine := &Engine{}

	req := Request{Source: source, Format: "png"}
	req.Params.Geometry.RotationDegrees = 90

	res := engine.Export(context.Background(), req)

	require.True(t, res.OK, "export failed: %v", res.Err)
	assert.Equal(t, 80, res.Width)
	assert.Equal(t, 120, res.Height)
}

func TestExport_OrientationSummedIntoRotation(t *testing.T) {
	source := writeSource(t, 120, 80)
	engine := &Engine{}

	req := Request{Source: source, Format: "png"}
	req.Params.Geometry.RotationDegrees = 45
	req.Params.Geometry.OrientationDegrees = 45
	req.Params.Geometry.Crop = geometry.FullFrame

	res := engine.Export(context.Background(), req)

	require.True(t, res.OK)
	// 45+45 = 90° total: bounding box swaps the axes exactly.
	assert.Equal(t, 80, res.Width)
	assert.Equal(t, 120, res.Height)
}

func TestRender_Cancelled(t *testing.T) {
	source := writeSource(t, 64, 48)
	engine := &Engine{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := engine.Export(ctx, Request{Source: source, Format: "jpeg"})

	assert.False(t, res.OK)
	assert.True(t, res.Cancelled)
	assert.NoError(t, res.Err, "cancellation must not be reported as an error")
	assert.Empty(t, res.FailedStage)
}

func TestApply_UploadFailureKeepsRender(t *testing.T) {
	source := writeSource(t, 64, 48)
	core := &countingCore{}
	engine := &Engine{Core: core}
	up := &fakeUploader{failures: 1}

	res := engine.Apply(context.Background(), Request{Source: source, Format: "jpeg"},
		up, UploadMetadata{PhotoID: "42", FileName: "render.jpg"})

	assert.False(t, res.OK)
	assert.False(t, res.Uploaded)
	assert.Equal(t, StageUploading, res.FailedStage)
	assert.ErrorIs(t, res.UploadErr, ErrUploadFailed)
	// The render itself survived the failed handoff.
	assert.NotEmpty(t, res.Bytes)
	assert.Equal(t, "image/jpeg", res.ContentType)

	// Retrying the upload must not re-run the pipeline.
	retry := engine.RetryUpload(context.Background(), res.Result, up,
		UploadMetadata{PhotoID: "42", FileName: "render.jpg"})

	assert.True(t, retry.OK)
	assert.True(t, retry.Uploaded)
	assert.Equal(t, "/stored/render.jpg", retry.StoredPath)
	assert.Equal(t, 1, core.prepares, "retry must not re-invoke the color pipeline")
	assert.Equal(t, 2, up.calls)
}

func TestApply_Success(t *testing.T) {
	source := writeSource(t, 64, 48)
	engine := &Engine{}
	up := &fakeUploader{}

	res := engine.Apply(context.Background(), Request{Source: source, Format: "png"},
		up, UploadMetadata{FileName: "final.png"})

	require.True(t, res.OK)
	assert.True(t, res.Uploaded)
	assert.Equal(t, "/stored/final.png", res.StoredPath)
	// Metadata content type defaults to the encoded type.
	assert.Equal(t, "image/png", up.lastMeta.ContentType)
}

func TestApply_RenderFailureSkipsUpload(t *testing.T) {
	engine := &Engine{}
	up := &fakeUploader{}

	res := engine.Apply(context.Background(), Request{
		Source: filepath.Join(t.TempDir(), "gone.png"),
		Format: "jpeg",
	}, up, UploadMetadata{})

	assert.False(t, res.OK)
	assert.Equal(t, StageLoading, res.FailedStage)
	assert.Zero(t, up.calls, "failed renders must not reach the uploader")
}

func TestRender_NoErrorEscapesAsPanic(t *testing.T) {
	engine := &Engine{}

	assert.NotPanics(t, func() {
		engine.Export(context.Background(), Request{Source: "", Format: "jpeg"})
		engine.Preview(context.Background(), Request{Source: string([]byte{0})})
	})
}

func TestResultErrorsAreClassifiable(t *testing.T) {
	engine := &Engine{}

	res := engine.Export(context.Background(), Request{Source: "x", Format: "avif"})
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, encoder.ErrUnsupportedFormat))
}
