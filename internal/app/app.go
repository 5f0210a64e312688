// Package app wires parsed commands to the daemon, sender, and diagnostics.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rbright/termlink/internal/cli"
	"github.com/rbright/termlink/internal/config"
	"github.com/rbright/termlink/internal/doctor"
	"github.com/rbright/termlink/internal/host"
	"github.com/rbright/termlink/internal/ipc"
	"github.com/rbright/termlink/internal/logging"
	"github.com/rbright/termlink/internal/version"
)

const sendTimeout = 5 * time.Second

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Spawner creates windows for the daemon. Nil logs them instead.
	Spawner host.Spawner
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("termlink"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("termlink"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	socket, socketSource := cfgLoaded.Socket(parsed.SocketPath)
	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"config_exists", cfgLoaded.Exists,
		"socket", socket,
		"socket_source", socketSource,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, parsed.SocketPath, ipc.DefaultNamer())
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDaemon:
		return r.commandDaemon(ctx, socket, cfgLoaded.Config, logger)
	case cli.CommandMsg:
		return r.commandMsg(ctx, socket, parsed.Message, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandDaemon runs the long-lived instance until ctx is cancelled. A socket
// that cannot be bound disables IPC but keeps the instance running.
func (r Runner) commandDaemon(ctx context.Context, socket string, cfg config.Config, logger *slog.Logger) int {
	registry := prometheus.NewRegistry()
	h := host.New(logger, r.Spawner, cfg.Window)

	var events <-chan ipc.Event
	srv, err := ipc.Start(ctx, ipc.ServerConfig{
		Path:        socket,
		Namer:       ipc.DefaultNamer(),
		ReadTimeout: cfg.IPC.ReadTimeout,
		EventBuffer: cfg.IPC.EventBuffer,
		Logger:      logger.With("component", "ipc"),
		Metrics:     ipc.NewMetrics(registry),
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v; IPC disabled\n", err)
		logger.Warn("IPC disabled", "error", err.Error())
	} else {
		defer func() { _ = srv.Close() }()
		events = srv.Events()
	}

	if _, err := h.OpenWindow(ctx, host.WindowSpec{}); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if err := h.Run(ctx, events); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logIPCStats(logger, registry)
	return 0
}

func (r Runner) commandMsg(ctx context.Context, socket string, msg ipc.Message, cfg config.Config, logger *slog.Logger) int {
	client := ipc.NewClient(ipc.DefaultNamer(), os.Getenv(ipc.SocketEnv))
	client.DialTimeout = cfg.IPC.DialTimeout
	client.Logger = logger.With("component", "ipc")

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := client.Send(sendCtx, socket, msg); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("send message failed", "kind", msg.Kind(), "error", err.Error())
		return 1
	}
	logger.Info("message sent", "kind", msg.Kind())
	return 0
}

// logIPCStats writes the listener counters gathered over the daemon's lifetime.
func logIPCStats(logger *slog.Logger, gatherer prometheus.Gatherer) {
	families, err := gatherer.Gather()
	if err != nil {
		logger.Warn("gather IPC metrics failed", "error", err.Error())
		return
	}

	fields := make([]any, 0, len(families)*2)
	for _, family := range families {
		var total float64
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		fields = append(fields, family.GetName(), total)
	}
	logger.Info("IPC stats", fields...)
}
