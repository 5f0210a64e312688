package ipc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes       = 1 << 20
	defaultEventBuffer = 16
	acceptBackoff      = 50 * time.Millisecond
)

// Event is a decoded message together with its resolved target window.
// WindowID is nil for CreateWindow and for broadcast ConfigUpdate messages.
type Event struct {
	Message  Message
	WindowID *WindowID
}

// Dispatcher receives decoded events on the listener goroutine.
type Dispatcher interface {
	Dispatch(context.Context, Event)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(context.Context, Event)

func (f DispatcherFunc) Dispatch(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// ServeOptions tunes the accept loop.
type ServeOptions struct {
	// ReadTimeout bounds how long one peer may hold the loop; zero disables it.
	ReadTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *Metrics
}

func (o ServeOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Serve accepts one connection at a time, decodes one line from each, and
// dispatches it. It returns when ctx is cancelled or the listener is closed.
// A bad connection never stops the loop.
func Serve(ctx context.Context, listener net.Listener, dispatcher Dispatcher, opts ServeOptions) error {
	if listener == nil {
		return errors.New("serve IPC: nil listener")
	}
	if dispatcher == nil {
		return errors.New("serve IPC: nil dispatcher")
	}
	logger := opts.logger()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Warn("accept IPC connection failed", "error", err.Error())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptBackoff):
			}
			continue
		}

		ev, ok := receive(conn, opts, logger)
		if !ok {
			continue
		}
		opts.Metrics.dispatch(ev.Message.Kind())
		dispatcher.Dispatch(ctx, ev)
	}
}

// receive reads and resolves one event, closing conn before returning.
func receive(conn net.Conn, opts ServeOptions, logger *slog.Logger) (Event, bool) {
	defer conn.Close()

	if opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
	}

	// One byte past the limit tells an oversized line from one that fits.
	reader := bufio.NewReader(io.LimitReader(conn, maxLineBytes+1))
	line, err := reader.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		opts.Metrics.connection("abandoned")
		if !errors.Is(err, io.EOF) {
			logger.Debug("read IPC request failed", "error", err.Error())
		}
		return Event{}, false
	}
	opts.Metrics.connection("read")

	if len(bytes.TrimSuffix(line, []byte{'\n'})) > maxLineBytes {
		opts.Metrics.malformedLine()
		logger.Warn("failed to decode IPC message", "error", fmt.Sprintf("%s: line exceeds %d bytes", ErrMalformed, maxLineBytes))
		return Event{}, false
	}

	msg, err := Decode(line)
	if err != nil {
		opts.Metrics.malformedLine()
		logger.Warn("failed to decode IPC message", "error", err.Error())
		return Event{}, false
	}

	ev, err := resolveEvent(msg)
	if err != nil {
		opts.Metrics.drop("id_out_of_range")
		logger.Debug("dropping IPC message", "kind", msg.Kind(), "error", err.Error())
		return Event{}, false
	}
	return ev, true
}

// resolveEvent converts wire window ids into WindowID values.
func resolveEvent(msg Message) (Event, error) {
	switch m := msg.(type) {
	case CreateWindow:
		return Event{Message: m}, nil
	case ConfigUpdate:
		if m.WindowID == nil {
			return Event{Message: m}, nil
		}
		id, err := toWindowID(*m.WindowID)
		if err != nil {
			return Event{}, err
		}
		return Event{Message: m, WindowID: &id}, nil
	case OverlayRequest:
		id, err := toWindowID(m.WindowID)
		if err != nil {
			return Event{}, err
		}
		return Event{Message: m, WindowID: &id}, nil
	default:
		return Event{}, fmt.Errorf("unsupported message type %T", msg)
	}
}

// ServerConfig configures Start.
type ServerConfig struct {
	// Path overrides the computed socket path.
	Path        string
	Namer       Namer
	Setenv      func(key, value string) error
	ReadTimeout time.Duration
	EventBuffer int
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Server owns a bound socket and the goroutine serving it.
type Server struct {
	path   string
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// Start binds the socket, exports its path through SocketEnv, and serves it in
// the background. Bind failures wrap ErrBindFailed.
func Start(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = cfg.Namer.SocketPath(os.Getpid())
	}

	setenv := cfg.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}
	if err := setenv(SocketEnv, path); err != nil {
		logger.Warn("export socket path failed", "path", path, "error", err.Error())
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrBindFailed, path, err)
	}
	_ = os.Chmod(path, 0o600)

	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	serveCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		path:   path,
		events: make(chan Event, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		err := Serve(serveCtx, listener, DispatcherFunc(s.forward), ServeOptions{
			ReadTimeout: cfg.ReadTimeout,
			Logger:      logger,
			Metrics:     cfg.Metrics,
		})
		if err != nil {
			logger.Error("IPC listener stopped", "path", path, "error", err.Error())
		}
	}()

	logger.Info("IPC socket listening", "path", path)
	return s, nil
}

// forward blocks the accept loop until the consumer takes the event.
func (s *Server) forward(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// Path returns the bound socket path.
func (s *Server) Path() string {
	return s.path
}

// Events delivers decoded messages in acceptance order. It is closed once the
// server stops.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Close stops the accept loop and removes the socket file.
func (s *Server) Close() error {
	s.cancel()
	<-s.done
	return nil
}
