package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileName = "termlink.toml"

// Source records where a setting was taken from.
type Source string

const (
	SourceFlag    Source = "--socket"
	SourceFile    Source = "ipc.socket"
	SourceEnv     Source = "env"
	SourceDefault Source = "discovery"
)

// Loaded is the configuration termlink runs with and the file it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when Path was missing and defaults are in effect.
	Exists bool
}

// Socket picks the listener or sender endpoint. The --socket flag wins over
// ipc.socket; an empty path leaves the choice to discovery.
func (l Loaded) Socket(flag string) (string, Source) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag, SourceFlag
	}
	if l.Config.IPC.Socket != "" {
		return l.Config.IPC.Socket, SourceFile
	}
	return "", SourceDefault
}

// Load reads termlink.toml from path, or from the XDG config directory when
// path is empty. A missing file yields defaults and a warning.
func Load(path string) (Loaded, error) {
	path, err := configPath(path)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: path, Config: Default()}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{Message: fmt.Sprintf("%s not found; IPC and windows use defaults", path)})
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("config %s: %w", path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}

func configPath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "termlink", fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", fileName, err)
	}
	return filepath.Join(home, ".config", "termlink", fileName), nil
}
