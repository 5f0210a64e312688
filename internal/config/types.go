// Package config resolves, parses, validates, and defaults termlink configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the fully materialized runtime configuration used by termlink.
type Config struct {
	IPC    IPCConfig
	Log    LogConfig
	Window WindowConfig
}

// IPCConfig controls the socket listener and sender.
type IPCConfig struct {
	// Socket overrides the discovered socket path when non-empty.
	Socket      string
	ReadTimeout time.Duration
	DialTimeout time.Duration
	EventBuffer int
}

// LogConfig controls the JSONL logger.
type LogConfig struct {
	Level string
}

// WindowConfig holds defaults for windows created over IPC.
type WindowConfig struct {
	Shell CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}
