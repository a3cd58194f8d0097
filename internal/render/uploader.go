package render

import (
	"context"
	"errors"
)

// ErrUploadFailed tags upload errors surfaced through ApplyResult. The
// render itself is unaffected; only the handoff failed.
var ErrUploadFailed = errors.New("upload failed")

// UploadMetadata describes the encoded artifact being handed off.
type UploadMetadata struct {
	PhotoID     string `json:"photoId,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Uploader is the external storage collaborator used by the Apply flow.
// The engine does not implement storage; hosts supply one.
type Uploader interface {
	// Upload stores data and returns the stored path.
	Upload(ctx context.Context, data []byte, meta UploadMetadata) (string, error)
}
