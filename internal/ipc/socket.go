// Package ipc implements the single-instance socket coordinator: endpoint
// naming, the request codec, the listener loop, and sender-side discovery.
package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SocketEnv names the variable that advertises the active socket to children.
const SocketEnv = "TERMLINK_SOCKET"

const (
	socketSuffix = ".sock"
	socketBase   = "Termlink"
	runtimeName  = "termlink"
)

// Namer resolves the socket directory and the per-session file prefix.
type Namer struct {
	Getenv  func(string) string
	TempDir func() string
}

// DefaultNamer reads the process environment.
func DefaultNamer() Namer {
	return Namer{Getenv: os.Getenv, TempDir: os.TempDir}
}

func (n Namer) getenv(key string) string {
	getenv := n.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return strings.TrimSpace(getenv(key))
}

func (n Namer) tempDir() string {
	if n.TempDir == nil {
		return os.TempDir()
	}
	return n.TempDir()
}

// SocketPath returns the endpoint path owned by process pid.
func (n Namer) SocketPath(pid int) string {
	return filepath.Join(n.Dir(), fmt.Sprintf("%s-%d%s", n.Prefix(), pid, socketSuffix))
}

// Matches reports whether name is a socket file of the current session.
//
// The segment between the prefix and the suffix must be a decimal pid, which
// keeps sessions whose discriminators share a prefix apart.
func (n Namer) Matches(name string) bool {
	rest, ok := strings.CutPrefix(name, n.Prefix()+"-")
	if !ok {
		return false
	}
	pid, ok := strings.CutSuffix(rest, socketSuffix)
	if !ok || pid == "" {
		return false
	}
	for _, r := range pid {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
