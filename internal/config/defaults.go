package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		IPC: IPCConfig{
			ReadTimeout: 2 * time.Second,
			DialTimeout: 500 * time.Millisecond,
			EventBuffer: 16,
		},
		Log: LogConfig{Level: "info"},
	}
}
