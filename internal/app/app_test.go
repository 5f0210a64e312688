package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/rbright/termlink/internal/host"
	"github.com/rbright/termlink/internal/ipc"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "termlink")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerMsgFailsWithoutInstance(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "msg", "create-window"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no socket")
}

func TestRunnerMsgFailsForInvalidExplicitSocket(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	missing := filepath.Join(paths.runtimeDir, "missing.sock")
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "--socket", missing, "msg", "config", "font.size=12"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), missing)
}

func TestRunnerDaemonServesMessages(t *testing.T) {
	paths := setupRunnerEnv(t)
	socket := filepath.Join(paths.runtimeDir, "d.sock")
	spawner := &recordingSpawner{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Spawner: spawner}
		done <- runner.Execute(ctx, []string{"--config", paths.configPath, "--socket", socket, "daemon"})
	}()

	require.Eventually(t, func() bool { return spawner.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	var stderr bytes.Buffer
	sender := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	exitCode := sender.Execute(context.Background(), []string{
		"--config", paths.configPath, "--socket", socket,
		"msg", "create-window", "--title", "second", "-e", "htop",
	})
	require.Equal(t, 0, exitCode, stderr.String())

	require.Eventually(t, func() bool { return spawner.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	last := spawner.last()
	require.Equal(t, "second", last.Title)
	require.Equal(t, []string{"htop"}, last.Command)

	cancel()
	select {
	case code := <-done:
		require.Equal(t, 0, code)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}

	_, err := os.Stat(socket)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunnerDaemonContinuesWhenBindFails(t *testing.T) {
	paths := setupRunnerEnv(t)
	spawner := &recordingSpawner{}

	socket := filepath.Join(paths.runtimeDir, "missing-dir", "d.sock")
	ctx, cancel := context.WithCancel(context.Background())

	var stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Spawner: spawner}
		done <- runner.Execute(ctx, []string{"--config", paths.configPath, "--socket", socket, "daemon"})
	}()

	require.Eventually(t, func() bool { return spawner.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case code := <-done:
		require.Equal(t, 0, code)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
	require.Contains(t, stderr.String(), "IPC disabled")
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 0, exitCode, stdout.String())
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "socket.dir")
}

func TestRunnerReportsConfigWarnings(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte("[ipc]\nbacklog = 3\n"), 0o600))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	_ = runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Contains(t, stderr.String(), `warning: unknown config key "ipc.backlog" ignored`)
}

func TestRunnerConfigErrorExitsOne(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte("[ipc]\nevent_buffer = 0\n"), 0o600))

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "event_buffer")
}

func TestLogIPCStats(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	registry := prometheus.NewRegistry()
	_ = ipc.NewMetrics(registry)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Add(3)

	logIPCStats(logger, registry)
	require.Contains(t, logBuf.String(), "IPC stats")
	require.Contains(t, logBuf.String(), `"test_total":3`)
}

type recordingSpawner struct {
	mu    sync.Mutex
	specs []host.WindowSpec
}

func (s *recordingSpawner) Spawn(_ context.Context, _ ipc.WindowID, spec host.WindowSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
	return nil
}

func (s *recordingSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.specs)
}

func (s *recordingSpawner) last() host.WindowSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs[len(s.specs)-1]
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir, err := os.MkdirTemp("", "tl")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(runtimeDir) })

	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv(ipc.SocketEnv, "")

	configPath := filepath.Join(t.TempDir(), "termlink.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}
