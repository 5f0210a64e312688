// Package host applies IPC events to the windows owned by the long-lived instance.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/termlink/internal/config"
	"github.com/rbright/termlink/internal/ipc"
	"github.com/rbright/termlink/internal/overlay"
)

// Window is one window tracked by the host.
type Window struct {
	ID      ipc.WindowID
	Spec    WindowSpec
	Config  config.Delta
	Overlay *overlay.Overlay
}

// WindowState is a read-only snapshot of a Window.
type WindowState struct {
	ID           ipc.WindowID
	Spec         WindowSpec
	Config       config.Delta
	OverlayState overlay.State
	OverlayPath  string
}

// Host owns the window registry and serializes every event against it.
type Host struct {
	logger  *slog.Logger
	spawner Spawner
	shell   []string

	mu      sync.RWMutex
	windows map[ipc.WindowID]*Window
	nextID  ipc.WindowID
}

// New constructs a host with safe default fallbacks.
func New(logger *slog.Logger, spawner Spawner, cfg config.WindowConfig) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if spawner == nil {
		spawner = LogSpawner{Logger: logger}
	}
	h := &Host{
		logger:  logger.With("component", "host"),
		spawner: spawner,
		shell:   append([]string(nil), cfg.Shell.Argv...),
		windows: make(map[ipc.WindowID]*Window),
	}
	if binder, ok := spawner.(Binder); ok {
		binder.Bind(h)
	}
	return h
}

// Run consumes events until ctx is cancelled or events is closed.
// A nil channel blocks until cancellation.
func (h *Host) Run(ctx context.Context, events <-chan ipc.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.Dispatch(ctx, ev)
		}
	}
}

// Dispatch applies one event. It satisfies ipc.Dispatcher.
func (h *Host) Dispatch(ctx context.Context, ev ipc.Event) {
	switch m := ev.Message.(type) {
	case ipc.CreateWindow:
		if _, err := h.OpenWindow(ctx, specFromOptions(m.Options)); err != nil {
			h.logger.Error("create window failed", "error", err.Error())
		}
	case ipc.ConfigUpdate:
		h.applyConfig(ev.WindowID, m)
	case ipc.OverlayRequest:
		h.showOverlay(ev.WindowID, m)
	default:
		h.logger.Warn("unsupported IPC message", "type", fmt.Sprintf("%T", ev.Message))
	}
}

// OpenWindow registers a window and asks the spawner to create it.
func (h *Host) OpenWindow(ctx context.Context, spec WindowSpec) (ipc.WindowID, error) {
	if len(spec.Command) == 0 {
		spec.Command = h.defaultCommand()
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.windows[id] = &Window{ID: id, Spec: spec, Config: config.Delta{}, Overlay: overlay.New()}
	h.mu.Unlock()

	if err := h.spawner.Spawn(ctx, id, spec); err != nil {
		h.mu.Lock()
		delete(h.windows, id)
		h.mu.Unlock()
		return 0, fmt.Errorf("spawn window %d: %w", id, err)
	}
	return id, nil
}

// CloseWindow forgets a window the window system has closed. Unknown ids are ignored.
func (h *Host) CloseWindow(id ipc.WindowID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.windows, id)
}

// DismissOverlay ends the overlay shown by window id so later takeovers
// can be shown.
func (h *Host) DismissOverlay(id ipc.WindowID) error {
	w, ok := h.window(id)
	if !ok {
		return fmt.Errorf("unknown window %d", id)
	}
	return w.Overlay.Dismiss()
}

// Snapshot returns every window ordered by id.
func (h *Host) Snapshot() []WindowState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]WindowState, 0, len(h.windows))
	for _, w := range h.windows {
		state := WindowState{
			ID:           w.ID,
			Spec:         w.Spec,
			Config:       w.Config.Clone(),
			OverlayState: w.Overlay.State(),
		}
		if req, ok := w.Overlay.Current(); ok {
			state.OverlayPath = req.Path
		}
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Host) applyConfig(target *ipc.WindowID, m ipc.ConfigUpdate) {
	delta, warnings := config.ParseDelta(m.Options)
	for _, w := range warnings {
		h.logger.Warn("config option ignored", "message", w.Message)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Window
	if target == nil {
		for _, w := range h.windows {
			targets = append(targets, w)
		}
	} else if w, ok := h.windows[*target]; ok {
		targets = append(targets, w)
	} else {
		h.logger.Warn("config update for unknown window", "window_id", uint64(*target))
		return
	}

	for _, w := range targets {
		if m.Reset {
			w.Config = config.Delta{}
		}
		w.Config.Merge(delta)
	}
	h.logger.Debug("config applied", "windows", len(targets), "reset", m.Reset, "options", len(m.Options))
}

func (h *Host) showOverlay(target *ipc.WindowID, m ipc.OverlayRequest) {
	if target == nil {
		h.logger.Warn("overlay request without window")
		return
	}

	req, err := overlay.ParseRequest(m.Payload)
	if err != nil {
		h.logger.Warn("overlay request rejected", "window_id", uint64(*target), "error", err.Error())
		return
	}

	w, ok := h.window(*target)
	if !ok {
		h.logger.Warn("overlay request for unknown window", "window_id", uint64(*target))
		return
	}

	if err := w.Overlay.Show(req); err != nil {
		if errors.Is(err, overlay.ErrOverlayActive) {
			h.logger.Debug("overlay already active", "window_id", uint64(*target))
			return
		}
		h.logger.Error("overlay failed", "window_id", uint64(*target), "error", err.Error())
		return
	}
	h.logger.Info("overlay shown", "window_id", uint64(*target), "path", req.Path)
}

func (h *Host) window(id ipc.WindowID) (*Window, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.windows[id]
	return w, ok
}

func (h *Host) defaultCommand() []string {
	if len(h.shell) > 0 {
		return append([]string(nil), h.shell...)
	}
	if shell := strings.TrimSpace(os.Getenv("SHELL")); shell != "" {
		return []string{shell}
	}
	return []string{"/bin/sh"}
}

// specFromOptions reads the well-known window options; other keys are ignored.
func specFromOptions(opts *structpb.Struct) WindowSpec {
	fields := opts.GetFields()
	spec := WindowSpec{
		WorkingDirectory: stringField(fields, "working_directory"),
		Hold:             fields["hold"].GetBoolValue(),
		Title:            stringField(fields, "title"),
		Class:            stringField(fields, "class"),
	}
	if spec.WorkingDirectory == "" {
		spec.WorkingDirectory = stringField(fields, "cwd")
	}

	switch cmd := fields["command"].GetKind().(type) {
	case *structpb.Value_StringValue:
		if s := strings.TrimSpace(cmd.StringValue); s != "" {
			spec.Command = []string{s}
		}
	case *structpb.Value_ListValue:
		for _, v := range cmd.ListValue.GetValues() {
			if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
				spec.Command = append(spec.Command, s.StringValue)
			}
		}
	}
	return spec
}

func stringField(fields map[string]*structpb.Value, key string) string {
	return strings.TrimSpace(fields[key].GetStringValue())
}
