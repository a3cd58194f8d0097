package lut

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotLUT reports that an asset source returned something other than LUT
// text, typically an HTML error page from a server that answers every path
// with 200. This is distinct from a parse problem: Parse never fails, so a
// body that reaches Parse always yields a table.
var ErrNotLUT = errors.New("asset is not LUT text")

// Store fetches raw .cube text for a named LUT asset.
//
// Implementations must distinguish a missing or bogus asset (ErrNotLUT or a
// wrapped I/O error) from a genuine LUT body. They return text, not parsed
// tables; parsing and any cross-render caching belong to the caller.
type Store interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// looksLikeHTML reports whether body starts with an HTML document marker.
// Servers that serve an SPA shell for unknown paths return these instead of
// a 404, and the result would otherwise parse as an empty table.
func looksLikeHTML(body string) bool {
	trimmed := strings.TrimLeft(body, " \t\r\n")
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// DirStore serves LUT assets from .cube files in a local directory.
type DirStore struct {
	Dir string
}

// Fetch reads "<name>.cube" (or name verbatim when it already has the
// extension) from the store directory.
func (s DirStore) Fetch(_ context.Context, name string) (string, error) {
	file := name
	if filepath.Ext(file) == "" {
		file += ".cube"
	}

	raw, err := os.ReadFile(filepath.Join(s.Dir, file))
	if err != nil {
		return "", fmt.Errorf("lut asset %q: %w", name, err)
	}
	body := string(raw)
	if looksLikeHTML(body) {
		return "", fmt.Errorf("lut asset %q: %w", name, ErrNotLUT)
	}
	return body, nil
}

// HTTPStore fetches LUT assets from a base URL, e.g. the catalogue API's
// /luts/ collection.
type HTTPStore struct {
	// BaseURL is joined with the escaped asset name plus ".cube".
	BaseURL string

	// Client defaults to http.DefaultClient when nil.
	Client *http.Client
}

// Fetch downloads the named asset. Non-2xx statuses and HTML bodies both
// resolve to ErrNotLUT so callers treat "missing" and "error page" alike.
func (s HTTPStore) Fetch(ctx context.Context, name string) (string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	u := strings.TrimRight(s.BaseURL, "/") + "/" + url.PathEscape(name) + ".cube"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("lut asset %q: %w", name, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lut asset %q: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("lut asset %q: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("lut asset %q: status %d: %w", name, resp.StatusCode, ErrNotLUT)
	}
	body := string(raw)
	if looksLikeHTML(body) {
		return "", fmt.Errorf("lut asset %q: %w", name, ErrNotLUT)
	}
	return body, nil
}
