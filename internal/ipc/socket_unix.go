//go:build !darwin

package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

// Dir returns $XDG_RUNTIME_DIR/termlink, or the temp dir when it is unusable.
func (n Namer) Dir() string {
	runtimeDir := n.getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return n.tempDir()
	}

	dir := filepath.Join(runtimeDir, runtimeName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return n.tempDir()
	}
	return dir
}

// Prefix embeds the display server so sessions never share sockets.
func (n Namer) Prefix() string {
	display := n.getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = n.getenv("DISPLAY")
	}
	return socketBase + "-" + strings.ReplaceAll(display, "/", "-")
}
