package ipc

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// socketDir returns a short temp dir; unix socket paths are length-limited.
func socketDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "tl")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func testNamer(dir string, env map[string]string) Namer {
	return Namer{
		Getenv:  func(key string) string { return env[key] },
		TempDir: func() string { return dir },
	}
}

func noopSetenv(string, string) error { return nil }

func startTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()

	if cfg.Setenv == nil {
		cfg.Setenv = noopSetenv
	}
	srv, err := Start(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// writeRaw delivers raw bytes over one connection.
func writeRaw(t *testing.T, path, raw string) {
	t.Helper()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func requireNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %#v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
