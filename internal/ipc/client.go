package ipc

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultDialTimeout = 500 * time.Millisecond

// Client discovers a live socket and sends one message over it.
type Client struct {
	Namer Namer
	// ActiveSocket is the inherited SocketEnv value, tried before scanning.
	ActiveSocket string
	DialTimeout  time.Duration
	Logger       *slog.Logger
	Metrics      *Metrics

	dial func(ctx context.Context, path string) (net.Conn, error)
}

// NewClient returns a client for the given namer and advertised socket path.
func NewClient(namer Namer, activeSocket string) *Client {
	return &Client{Namer: namer, ActiveSocket: activeSocket, DialTimeout: defaultDialTimeout}
}

// Send encodes msg and writes it as one line to the resolved socket.
func (c *Client) Send(ctx context.Context, explicit string, msg Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}

	conn, err := c.Connect(ctx, explicit)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	w := bufio.NewWriter(conn)
	if _, err := w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush message: %w", err)
	}
	return nil
}

// Connect resolves a socket in order: explicit path, advertised path, then a
// scan of the socket directory. Orphaned sockets found by the scan are removed.
func (c *Client) Connect(ctx context.Context, explicit string) (net.Conn, error) {
	logger := c.logger()

	if explicit = strings.TrimSpace(explicit); explicit != "" {
		conn, err := c.dialPath(ctx, explicit)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidSocketPath, explicit, err)
		}
		return conn, nil
	}

	if active := strings.TrimSpace(c.ActiveSocket); active != "" {
		conn, err := c.dialPath(ctx, active)
		if err == nil {
			return conn, nil
		}
		logger.Debug("advertised socket unreachable", "path", active, "error", err.Error())
	}

	return c.scan(ctx)
}

// scan tries every socket of the current session in directory order.
func (c *Client) scan(ctx context.Context) (net.Conn, error) {
	logger := c.logger()
	dir := c.Namer.Dir()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrNoSocket, dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.Namer.Matches(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		conn, err := c.dialPath(ctx, path)
		if err == nil {
			return conn, nil
		}

		if isConnectionRefused(err) {
			// Removal races with other senders; a missing file is fine.
			if rmErr := os.Remove(path); rmErr == nil {
				c.Metrics.orphanRemoved()
				logger.Info("removed orphaned socket", "path", path)
			}
			continue
		}
		logger.Debug("skipping socket", "path", path, "error", err.Error())
	}

	return nil, fmt.Errorf("%w in %s", ErrNoSocket, dir)
}

func (c *Client) dialPath(ctx context.Context, path string) (net.Conn, error) {
	if c.dial != nil {
		return c.dial(ctx, path)
	}
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, "unix", path)
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
