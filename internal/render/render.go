// Package render sequences the engine's pipeline stages into the three
// named workflows: Preview, Export and Apply.
//
// Every invocation is one sequential pipeline that owns its raster; no
// state is shared across invocations and the engine holds no caches.
// Color processing runs before the geometry transform so cropping never
// alters color sampling. Cancellation is cooperative and checked between
// stages only, never mid-pixel-loop, so a cancelled render never emits a
// torn image.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/filmgallery/filmrender/internal/encoder"
	"github.com/filmgallery/filmrender/internal/geometry"
	"github.com/filmgallery/filmrender/internal/loader"
	"github.com/filmgallery/filmrender/internal/pipeline"
	"github.com/filmgallery/filmrender/internal/raster"
)

// Resolution and quality budgets per workflow.
const (
	// PreviewMaxWidth bounds preview sources; previews trade resolution
	// for latency.
	PreviewMaxWidth = 1400

	// PreviewQuality is the fixed JPEG quality for previews.
	PreviewQuality = 0.95

	// ExportMaxWidth is the default export bound when the caller does not
	// override it.
	ExportMaxWidth = 4000
)

// Request describes one render: the source image, the full parameter set,
// and the caller's output preferences. Preview ignores Format and Quality.
type Request struct {
	// Source is a file path or http(s) URL.
	Source string `json:"source"`

	Params pipeline.Parameters `json:"params"`

	// Format is the requested output format name: "jpeg", "png" or
	// "tiff16". Anything else fails with UnsupportedFormat at the
	// encoding stage.
	Format string `json:"format,omitempty"`

	// Quality applies to JPEG only, in (0,1]; zero selects 1.0.
	Quality float64 `json:"quality,omitempty"`

	// MaxWidth overrides the export resolution budget when positive.
	MaxWidth int `json:"maxWidth,omitempty"`
}

// Engine runs render workflows. The zero value works; fields customize the
// collaborators.
type Engine struct {
	// Loader loads source images. Zero value uses the 30s default bound.
	Loader loader.Loader

	// Core is the color core; nil selects pipeline.FilmCore.
	Core pipeline.Core

	// Log receives per-stage logs; nil discards them.
	Log logrus.FieldLogger
}

func (e *Engine) core() pipeline.Core {
	if e.Core != nil {
		return e.Core
	}
	return pipeline.FilmCore{}
}

func (e *Engine) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Preview renders a latency-optimized JPEG preview. The output is always
// JPEG at PreviewQuality regardless of the requested format, and the
// source is bounded to PreviewMaxWidth.
func (e *Engine) Preview(ctx context.Context, req Request) Result {
	return e.render(ctx, req, PreviewMaxWidth, encoder.Jpeg{Quality: PreviewQuality})
}

// Export renders at full quality in the caller's requested format.
func (e *Engine) Export(ctx context.Context, req Request) Result {
	format, err := encoder.ParseFormat(req.Format, req.Quality)
	if err != nil {
		// Unknown formats are an encoding-stage failure; validating
		// up front just avoids rendering output nobody can use.
		return failed(StageEncoding, err)
	}

	maxWidth := req.MaxWidth
	if maxWidth <= 0 {
		maxWidth = ExportMaxWidth
	}
	return e.render(ctx, req, maxWidth, format)
}

// Apply runs Export and hands the encoded bytes to the upload
// collaborator. Upload failure does not invalidate the render: the result
// keeps the encoded bytes alongside the distinct upload error so the
// caller can retry the upload without recomputing the pipeline.
func (e *Engine) Apply(ctx context.Context, req Request, up Uploader, meta UploadMetadata) ApplyResult {
	res := e.Export(ctx, req)
	if !res.OK {
		return ApplyResult{Result: res}
	}
	return e.RetryUpload(ctx, res, up, meta)
}

// RetryUpload re-runs only the upload step for an already rendered result.
// The color pipeline is not re-invoked.
func (e *Engine) RetryUpload(ctx context.Context, res Result, up Uploader, meta UploadMetadata) ApplyResult {
	out := ApplyResult{Result: res}
	if cancelled(ctx) {
		out.Result = cancelledResult()
		out.Result.Bytes = res.Bytes
		out.Result.ContentType = res.ContentType
		return out
	}

	if meta.ContentType == "" {
		meta.ContentType = res.ContentType
	}

	start := time.Now()
	path, err := up.Upload(ctx, res.Bytes, meta)
	if err != nil {
		e.stageLog(StageUploading, start).WithError(err).Warn("upload failed; render retained")
		out.OK = false
		out.FailedStage = StageUploading
		out.UploadErr = fmt.Errorf("%v: %w", err, ErrUploadFailed)
		return out
	}

	e.stageLog(StageUploading, start).Debug("upload complete")
	out.OK = true
	out.FailedStage = ""
	out.Uploaded = true
	out.StoredPath = path
	return out
}

// render is the shared Loader → Color → Geometry → Encoder sequence.
func (e *Engine) render(ctx context.Context, req Request, maxWidth int, format encoder.Format) Result {
	if cancelled(ctx) {
		return cancelledResult()
	}

	start := time.Now()
	loaded, err := e.Loader.Load(ctx, req.Source, maxWidth)
	if err != nil {
		// The loader surfaces caller cancellation as context.Canceled;
		// its own deadline overrun arrives as loader.ErrTimeout and is
		// a genuine stage failure.
		if errors.Is(err, context.Canceled) {
			return cancelledResult()
		}
		return failed(StageLoading, err)
	}
	e.stageLog(StageLoading, start).WithFields(logrus.Fields{
		"source":   req.Source,
		"original": fmt.Sprintf("%dx%d", loaded.OriginalWidth, loaded.OriginalHeight),
	}).Debug("source loaded")

	img := loaded.Image
	if cancelled(ctx) {
		return cancelledResult()
	}

	start = time.Now()
	prepared := e.core().Prepare(req.Params)
	img = pipeline.ApplyImage(prepared, img)
	e.stageLog(StageProcessing, start).Debug("color pipeline applied")

	if cancelled(ctx) {
		return cancelledResult()
	}

	start = time.Now()
	img = e.transform(img, req.Params)
	e.stageLog(StageTransforming, start).Debug("geometry applied")

	if cancelled(ctx) {
		return cancelledResult()
	}

	start = time.Now()
	enc, err := encoder.Encode(img, format)
	if err != nil {
		return failed(StageEncoding, err)
	}
	e.stageLog(StageEncoding, start).WithField("bytes", len(enc.Bytes)).Debug("output encoded")

	return Result{
		OK:          true,
		Bytes:       enc.Bytes,
		ContentType: enc.ContentType,
		Width:       img.Width,
		Height:      img.Height,
		Warning:     enc.Warning,
	}
}

func (e *Engine) transform(img *raster.Image, p pipeline.Parameters) *raster.Image {
	crop := p.Geometry.Crop
	if crop.W <= 0 || crop.H <= 0 {
		crop = geometry.FullFrame
	}
	return geometry.Transform(img, p.Geometry.EffectiveRotation(), crop)
}

func (e *Engine) stageLog(stage Stage, start time.Time) logrus.FieldLogger {
	return e.log().WithFields(logrus.Fields{
		"stage": string(stage),
		"ms":    time.Since(start).Milliseconds(),
	})
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
