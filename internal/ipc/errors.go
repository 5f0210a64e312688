package ipc

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	// ErrBindFailed disables the coordinator for the current run.
	ErrBindFailed = errors.New("bind socket")
	// ErrInvalidSocketPath reports an explicit path that could not be dialed.
	ErrInvalidSocketPath = errors.New("invalid socket path")
	// ErrNoSocket reports that discovery found no live socket.
	ErrNoSocket = errors.New("no socket found")
	// ErrMalformed reports an undecodable message line.
	ErrMalformed = errors.New("malformed message")
	// ErrIDOutOfRange reports a window id outside the WindowID domain.
	ErrIDOutOfRange = errors.New("window id out of range")
)

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.ECONNREFUSED)
}
