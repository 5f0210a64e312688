package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigPathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.toml"
	resolved, err := configPath(" " + explicit + " ")
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = configPath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "termlink", "termlink.toml"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = configPath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "termlink", "termlink.toml"), resolved)
}

func TestLoadedSocketPrefersFlag(t *testing.T) {
	loaded := Loaded{Config: Default()}
	path, source := loaded.Socket("")
	require.Empty(t, path)
	require.Equal(t, SourceDefault, source)

	loaded.Config.IPC.Socket = "/run/user/1000/file.sock"
	path, source = loaded.Socket("  ")
	require.Equal(t, "/run/user/1000/file.sock", path)
	require.Equal(t, SourceFile, source)

	path, source = loaded.Socket(" /tmp/flag.sock ")
	require.Equal(t, "/tmp/flag.sock", path)
	require.Equal(t, SourceFlag, source)
}

func TestWarningString(t *testing.T) {
	require.Equal(t, "line 3: bad value", Warning{Line: 3, Message: "bad value"}.String())
	require.Equal(t, "bad value", Warning{Message: "bad value"}.String())
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingTOMLParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termlink.toml")
	contents := `
# termlink
[ipc]
socket = " /run/user/1000/custom.sock "
read_timeout_ms = 750
dial_timeout_ms = 250
event_buffer = 4

[log]
level = "DEBUG"

[window]
shell = "zsh --login -c 'exec tmux'"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Empty(t, loaded.Warnings)

	cfg := loaded.Config
	require.Equal(t, "/run/user/1000/custom.sock", cfg.IPC.Socket)
	require.Equal(t, 750*time.Millisecond, cfg.IPC.ReadTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.IPC.DialTimeout)
	require.Equal(t, 4, cfg.IPC.EventBuffer)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, []string{"zsh", "--login", "-c", "exec tmux"}, cfg.Window.Shell.Argv)
}

func TestParseEmptyContentKeepsDefaults(t *testing.T) {
	cfg, warnings, err := Parse("\n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseUnknownKeysWarn(t *testing.T) {
	cfg, warnings, err := Parse("[ipc]\nbacklog = 5\n[font]\nsize = 12\n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	messages := make([]string, 0, len(warnings))
	for _, w := range warnings {
		messages = append(messages, w.Message)
	}
	joined := strings.Join(messages, "\n")
	require.Contains(t, joined, `"ipc.backlog"`)
	require.Contains(t, joined, `"font.size"`)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "syntax", input: "[ipc\nsocket = 1", wantErr: "line "},
		{name: "bad shell", input: "[window]\nshell = \"zsh 'oops\"", wantErr: "invalid window.shell"},
		{name: "negative read timeout", input: "[ipc]\nread_timeout_ms = -1", wantErr: "read_timeout_ms"},
		{name: "zero dial timeout", input: "[ipc]\ndial_timeout_ms = 0", wantErr: "dial_timeout_ms"},
		{name: "zero buffer", input: "[ipc]\nevent_buffer = 0", wantErr: "event_buffer"},
		{name: "bad level", input: "[log]\nlevel = \"loud\"", wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.input, Default())
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsWhenReadTimeoutDisabled(t *testing.T) {
	cfg := Default()
	cfg.IPC.ReadTimeout = 0

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "read_timeout_ms=0")
}

func TestParseDeltaMergesOptions(t *testing.T) {
	delta, warnings := ParseDelta([]string{
		"font.size=12",
		`font.normal.family="Iosevka"`,
		"window.opacity=0.9",
		"not valid toml ==",
		"",
		"font.size=14",
	})

	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "not valid toml")

	size, ok := delta.Lookup("font.size")
	require.True(t, ok)
	require.Equal(t, int64(14), size)

	family, ok := delta.Lookup("font.normal.family")
	require.True(t, ok)
	require.Equal(t, "Iosevka", family)

	opacity, ok := delta.Lookup("window.opacity")
	require.True(t, ok)
	require.Equal(t, 0.9, opacity)

	_, ok = delta.Lookup("font.size.points")
	require.False(t, ok)
	_, ok = delta.Lookup("colors")
	require.False(t, ok)
}

func TestDeltaCloneIsDeep(t *testing.T) {
	delta, _ := ParseDelta([]string{"font.size=12"})
	clone := delta.Clone()

	other, _ := ParseDelta([]string{"font.size=20"})
	clone.Merge(other)

	size, _ := delta.Lookup("font.size")
	require.Equal(t, int64(12), size)
	size, _ = clone.Lookup("font.size")
	require.Equal(t, int64(20), size)
}
