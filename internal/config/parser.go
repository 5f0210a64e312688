package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	IPC    *fileIPC    `toml:"ipc"`
	Log    *fileLog    `toml:"log"`
	Window *fileWindow `toml:"window"`
}

type fileIPC struct {
	Socket        *string `toml:"socket"`
	ReadTimeoutMS *int    `toml:"read_timeout_ms"`
	DialTimeoutMS *int    `toml:"dial_timeout_ms"`
	EventBuffer   *int    `toml:"event_buffer"`
}

type fileLog struct {
	Level *string `toml:"level"`
}

type fileWindow struct {
	Shell *string `toml:"shell"`
}

// Parse decodes TOML content over base. Unknown keys become warnings.
func Parse(content string, base Config) (Config, []Warning, error) {
	var payload fileConfig
	meta, err := toml.Decode(content, &payload)
	if err != nil {
		return Config{}, nil, wrapTOMLError(err)
	}

	warnings := make([]Warning, 0)
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown config key %q ignored", key.String())})
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) error {
	if payload.IPC != nil {
		if payload.IPC.Socket != nil {
			cfg.IPC.Socket = strings.TrimSpace(*payload.IPC.Socket)
		}
		if payload.IPC.ReadTimeoutMS != nil {
			cfg.IPC.ReadTimeout = time.Duration(*payload.IPC.ReadTimeoutMS) * time.Millisecond
		}
		if payload.IPC.DialTimeoutMS != nil {
			cfg.IPC.DialTimeout = time.Duration(*payload.IPC.DialTimeoutMS) * time.Millisecond
		}
		if payload.IPC.EventBuffer != nil {
			cfg.IPC.EventBuffer = *payload.IPC.EventBuffer
		}
	}

	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
	}

	if payload.Window != nil && payload.Window.Shell != nil {
		raw := *payload.Window.Shell
		argv, err := parseArgv(raw)
		if err != nil {
			return fmt.Errorf("invalid window.shell: %w", err)
		}
		cfg.Window.Shell = CommandConfig{Raw: raw, Argv: argv}
	}

	return nil
}

func wrapTOMLError(err error) error {
	var parseErr toml.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("line %d: %s", parseErr.Position.Line, parseErr.Message)
	}
	return err
}
