//go:build darwin

package ipc

// Dir returns the temp dir; macOS has no per-session runtime directory.
func (n Namer) Dir() string {
	return n.tempDir()
}

// Prefix is constant on macOS.
func (n Namer) Prefix() string {
	return socketBase
}
