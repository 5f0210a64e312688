// Package overlay validates overlay payloads and tracks per-window overlay state.
package overlay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const imagePrefix = "image:"

var (
	ErrUnsupportedPayload = errors.New("unsupported overlay payload")
	ErrRelativePath       = errors.New("overlay path must be absolute")
	ErrNotRegularFile     = errors.New("overlay path is not a regular file")
)

// Kind names what an overlay displays.
type Kind string

const KindImage Kind = "image"

// Request is a validated overlay payload.
type Request struct {
	Kind Kind
	Path string
}

// ParseRequest validates payload against `image:<absolute path>`. The path
// must name an existing regular file when ParseRequest runs.
func ParseRequest(payload string) (Request, error) {
	path, ok := strings.CutPrefix(payload, imagePrefix)
	if !ok {
		return Request{}, fmt.Errorf("%w: %q", ErrUnsupportedPayload, payload)
	}
	if !filepath.IsAbs(path) {
		return Request{}, fmt.Errorf("%w: %q", ErrRelativePath, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrNotRegularFile, err)
	}
	if !info.Mode().IsRegular() {
		return Request{}, fmt.Errorf("%w: %q", ErrNotRegularFile, path)
	}

	return Request{Kind: KindImage, Path: path}, nil
}

// String renders the request back into payload form.
func (r Request) String() string {
	return string(r.Kind) + ":" + r.Path
}
