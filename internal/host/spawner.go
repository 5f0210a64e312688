package host

import (
	"context"
	"log/slog"

	"github.com/rbright/termlink/internal/ipc"
)

// WindowSpec is the window-creation request handed to the window system.
type WindowSpec struct {
	WorkingDirectory string
	Hold             bool
	Command          []string
	Title            string
	Class            string
}

// Spawner creates native windows. It runs on the listener's consumer
// goroutine and must return quickly. Spawners that report window events
// back to the host also implement Binder.
type Spawner interface {
	Spawn(context.Context, ipc.WindowID, WindowSpec) error
}

// Controls is how the window system reports user actions back to the host:
// a closed window, or a dismissed overlay.
type Controls interface {
	CloseWindow(ipc.WindowID)
	DismissOverlay(ipc.WindowID) error
}

// Binder is implemented by spawners that report window events. New binds
// the host to such a spawner before any window is opened.
type Binder interface {
	Bind(Controls)
}

// SpawnFunc adapts a function to the Spawner interface.
type SpawnFunc func(context.Context, ipc.WindowID, WindowSpec) error

func (f SpawnFunc) Spawn(ctx context.Context, id ipc.WindowID, spec WindowSpec) error {
	return f(ctx, id, spec)
}

// LogSpawner records window creation without a display server.
type LogSpawner struct {
	Logger *slog.Logger
}

func (s LogSpawner) Spawn(_ context.Context, id ipc.WindowID, spec WindowSpec) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("window spawned",
		"window_id", uint64(id),
		"working_directory", spec.WorkingDirectory,
		"command", spec.Command,
		"hold", spec.Hold,
		"title", spec.Title,
		"class", spec.Class,
	)
	return nil
}
