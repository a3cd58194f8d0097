// Package worker exposes the render engine as a line-delimited JSON-RPC
// service over an io.Reader/io.Writer pair, normally stdin/stdout.
//
// The catalogue application hosts batch jobs in a separate process; that
// host owns queue persistence, pause/resume/cancel and progress tracking,
// and drives this worker one request per line. The worker itself is
// stateless: each request carries the full render parameters and yields
// exactly one response.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/filmgallery/filmrender/internal/lut"
	"github.com/filmgallery/filmrender/internal/render"
)

// Request is an incoming JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// JSON-RPC error codes used by the worker.
const (
	codeParse         = -32700
	codeInvalidParams = -32602
	codeMethod        = -32601
	codeRender        = -32000
)

// Worker serves render requests. Engine must be set; Uploader is required
// only for render.apply, LUTs only for requests that name a LUT asset.
//
// The engine itself never caches LUTs; the worker, as the engine's caller,
// keeps parsed tables keyed by asset name for the lifetime of the process.
type Worker struct {
	Engine   *render.Engine
	Uploader render.Uploader
	LUTs     lut.Store

	mu       sync.Mutex
	lutCache map[string]lut.Table
}

// renderParams is the wire form of a render request: the engine request
// plus an optional LUT asset name resolved through the store.
type renderParams struct {
	render.Request
	LUTName string `json:"lut,omitempty"`
}

// applyParams adds upload metadata for render.apply.
type applyParams struct {
	renderParams
	Upload render.UploadMetadata `json:"upload"`
}

// resolveLUT fetches and parses the named asset, serving repeats from the
// worker-side cache.
func (w *Worker) resolveLUT(ctx context.Context, name string) (*lut.Table, error) {
	w.mu.Lock()
	if t, ok := w.lutCache[name]; ok {
		w.mu.Unlock()
		return &t, nil
	}
	w.mu.Unlock()

	if w.LUTs == nil {
		return nil, fmt.Errorf("no LUT store configured")
	}
	text, err := w.LUTs.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	t := lut.Parse(text)

	w.mu.Lock()
	if w.lutCache == nil {
		w.lutCache = make(map[string]lut.Table)
	}
	w.lutCache[name] = t
	w.mu.Unlock()
	return &t, nil
}

// renderPayload is the wire form of a render outcome. Encoded bytes travel
// base64 inside the JSON body, the way the host expects artifacts.
type renderPayload struct {
	OK          bool   `json:"ok"`
	Cancelled   bool   `json:"cancelled,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Warning     string `json:"warning,omitempty"`
	FailedStage string `json:"failedStage,omitempty"`
	Error       string `json:"error,omitempty"`
	ImageBase64 []byte `json:"imageBase64,omitempty"`

	Uploaded   bool   `json:"uploaded,omitempty"`
	StoredPath string `json:"storedPath,omitempty"`
	UploadErr  string `json:"uploadError,omitempty"`
}

func payload(res render.Result) renderPayload {
	p := renderPayload{
		OK:          res.OK,
		Cancelled:   res.Cancelled,
		ContentType: res.ContentType,
		Width:       res.Width,
		Height:      res.Height,
		Warning:     res.Warning,
		FailedStage: string(res.FailedStage),
		ImageBase64: res.Bytes, // encoding/json base64-encodes []byte
	}
	if res.Err != nil {
		p.Error = res.Err.Error()
	}
	return p
}

// Run reads requests from in until EOF, writing one response per request
// to out. The host cancels outstanding work by cancelling ctx or closing
// the input.
func (w *Worker) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Large requests carry full parameter sets plus curves; raise the
	// line limit well beyond the default.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = encoder.Encode(Response{
				JSONRPC: "2.0",
				Error:   &Error{Code: codeParse, Message: "parse error", Data: err.Error()},
			})
			continue
		}

		if err := encoder.Encode(w.handle(ctx, &req)); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, req *Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "ping":
		resp.Result = map[string]interface{}{}

	case "render.preview":
		var params renderParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &Error{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
			return resp
		}
		if err := w.attachLUT(ctx, &params); err != nil {
			resp.Error = &Error{Code: codeRender, Message: "lut load failed", Data: err.Error()}
			return resp
		}
		resp.Result = payload(w.Engine.Preview(ctx, params.Request))

	case "render.export":
		var params renderParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &Error{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
			return resp
		}
		if err := w.attachLUT(ctx, &params); err != nil {
			resp.Error = &Error{Code: codeRender, Message: "lut load failed", Data: err.Error()}
			return resp
		}
		resp.Result = payload(w.Engine.Export(ctx, params.Request))

	case "render.apply":
		if w.Uploader == nil {
			resp.Error = &Error{Code: codeRender, Message: "no uploader configured"}
			return resp
		}
		var params applyParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &Error{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
			return resp
		}
		if err := w.attachLUT(ctx, &params.renderParams); err != nil {
			resp.Error = &Error{Code: codeRender, Message: "lut load failed", Data: err.Error()}
			return resp
		}
		res := w.Engine.Apply(ctx, params.Request, w.Uploader, params.Upload)
		p := payload(res.Result)
		p.Uploaded = res.Uploaded
		p.StoredPath = res.StoredPath
		if res.UploadErr != nil {
			p.UploadErr = res.UploadErr.Error()
		}
		resp.Result = p

	default:
		resp.Error = &Error{Code: codeMethod, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}

	return resp
}

func (w *Worker) attachLUT(ctx context.Context, params *renderParams) error {
	if params.LUTName == "" {
		return nil
	}
	table, err := w.resolveLUT(ctx, params.LUTName)
	if err != nil {
		return err
	}
	params.Params.LUT = table
	return nil
}
