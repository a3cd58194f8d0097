package render

// Stage names one step of the render state machine:
//
//	loading → processing → transforming → encoding → (uploading) → done|failed|cancelled
//
// A failed Result carries the stage that originated the failure; there are
// no automatic retries within one orchestration call.
type Stage string

// Pipeline stages and terminal states.
const (
	StageLoading      Stage = "loading"
	StageProcessing   Stage = "processing"
	StageTransforming Stage = "transforming"
	StageEncoding     Stage = "encoding"
	StageUploading    Stage = "uploading"

	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
	StageCancelled Stage = "cancelled"
)

// Result is the outcome of one render orchestration.
//
// Cancellation is its own outcome, never conflated with failure: a
// cancelled Result has OK=false, Cancelled=true and a nil Err.
type Result struct {
	OK        bool `json:"ok"`
	Cancelled bool `json:"cancelled,omitempty"`

	// Bytes is the encoded output; present on success and retained on
	// upload failure so the upload can be retried without re-rendering.
	Bytes []byte `json:"-"`

	ContentType string `json:"contentType,omitempty"`

	// Width and Height are the dimensions of the encoded raster.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Warning is non-fatal, e.g. the tiff16→png degradation.
	Warning string `json:"warning,omitempty"`

	// FailedStage is set when OK is false and the run was not cancelled.
	FailedStage Stage `json:"failedStage,omitempty"`

	Err error `json:"-"`
}

func failed(stage Stage, err error) Result {
	return Result{FailedStage: stage, Err: err}
}

func cancelledResult() Result {
	return Result{Cancelled: true}
}

// ApplyResult extends Result with the outcome of the post-render upload.
//
// A failed upload does not invalidate the render: Bytes and ContentType
// stay populated and UploadErr reports the distinct failure, so callers
// can retry the upload alone.
type ApplyResult struct {
	Result

	Uploaded   bool   `json:"uploaded"`
	StoredPath string `json:"storedPath,omitempty"`
	UploadErr  error  `json:"-"`
}
