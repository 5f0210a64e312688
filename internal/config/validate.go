package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.IPC.ReadTimeout < 0 {
		return nil, fmt.Errorf("ipc.read_timeout_ms must be >= 0")
	}
	if cfg.IPC.DialTimeout <= 0 {
		return nil, fmt.Errorf("ipc.dial_timeout_ms must be > 0")
	}
	if cfg.IPC.EventBuffer <= 0 {
		return nil, fmt.Errorf("ipc.event_buffer must be > 0")
	}
	if _, ok := validLogLevels[cfg.Log.Level]; !ok {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if strings.TrimSpace(cfg.Window.Shell.Raw) != "" && len(cfg.Window.Shell.Argv) == 0 {
		return nil, fmt.Errorf("window.shell is configured but empty")
	}

	if cfg.IPC.ReadTimeout == 0 {
		warnings = append(warnings, Warning{Message: "ipc.read_timeout_ms=0 lets a stalled sender block the listener"})
	}

	return warnings, nil
}
