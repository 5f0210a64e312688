// Package doctor runs readiness diagnostics for config, session, and the IPC socket.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rbright/termlink/internal/config"
	"github.com/rbright/termlink/internal/ipc"
)

const probeTimeout = 500 * time.Millisecond

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
// socketFlag is the --socket value, if any.
func Run(ctx context.Context, cfg config.Loaded, socketFlag string, namer ipc.Namer) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("loaded defaults, %q does not exist", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkSession(namer))
	checks = append(checks, checkSocketDir(namer.Dir()))

	if argv := cfg.Config.Window.Shell.Argv; len(argv) > 0 {
		checks = append(checks, checkCommand(argv, "window.shell"))
	}

	active, source := cfg.Socket(socketFlag)
	if active == "" {
		active, source = strings.TrimSpace(os.Getenv(ipc.SocketEnv)), config.SourceEnv
	}
	checks = append(checks, checkActiveSocket(ctx, active, source))

	return Report{Checks: checks}
}

// checkSession reports the discriminator that scopes socket discovery.
func checkSession(namer ipc.Namer) Check {
	prefix := namer.Prefix()
	if strings.HasSuffix(prefix, "-") {
		return Check{Name: "session", Pass: false, Message: "neither WAYLAND_DISPLAY nor DISPLAY is set; sockets are shared across sessions"}
	}
	return Check{Name: "session", Pass: true, Message: fmt.Sprintf("socket prefix %q", prefix)}
}

// checkSocketDir verifies the socket directory accepts new files.
func checkSocketDir(dir string) Check {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Check{Name: "socket.dir", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	return Check{Name: "socket.dir", Pass: true, Message: fmt.Sprintf("writable at %s", filepath.Clean(dir))}
}

// checkActiveSocket dials the advertised socket when one is known.
func checkActiveSocket(ctx context.Context, path string, source config.Source) Check {
	if path == "" {
		return Check{Name: "socket.active", Pass: true, Message: fmt.Sprintf("%s is unset; msg will scan for an instance", ipc.SocketEnv)}
	}

	client := ipc.NewClient(ipc.Namer{}, "")
	client.DialTimeout = probeTimeout
	conn, err := client.Connect(ctx, path)
	if err != nil {
		return Check{Name: "socket.active", Pass: false, Message: fmt.Sprintf("%s (from %s)", err, source)}
	}
	_ = conn.Close()
	return Check{Name: "socket.active", Pass: true, Message: fmt.Sprintf("instance listening at %s (from %s)", path, source)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
