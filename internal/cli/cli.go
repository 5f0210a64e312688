// Package cli parses termlink's command line into a Parsed command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/termlink/internal/ipc"
)

type Command string

const (
	CommandDaemon  Command = "daemon"
	CommandMsg     Command = "msg"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var simpleCommands = map[Command]struct{}{
	CommandDaemon:  {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Parsed is the result of a successful Parse.
type Parsed struct {
	Command    Command
	ConfigPath string
	SocketPath string
	ShowHelp   bool
	// Message is set for CommandMsg.
	Message ipc.Message
}

func Parse(args []string) (Parsed, error) {
	global := newFlagSet("termlink")
	global.SetInterspersed(false)
	configPath := global.String("config", "", "config file path")
	socketPath := global.String("socket", "", "IPC socket path")
	help := global.BoolP("help", "h", false, "show help")
	showVersion := global.Bool("version", false, "show version")

	if err := global.Parse(args); err != nil {
		return Parsed{}, err
	}

	parsed := Parsed{
		Command:    CommandHelp,
		ShowHelp:   true,
		ConfigPath: *configPath,
		SocketPath: strings.TrimSpace(*socketPath),
	}
	if *help {
		return parsed, nil
	}
	if *showVersion {
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
		return parsed, nil
	}

	rest := global.Args()
	if len(rest) == 0 {
		return parsed, nil
	}

	cmd := Command(rest[0])
	switch {
	case cmd == CommandMsg:
		msg, err := parseMessage(rest[1:])
		if err != nil {
			return Parsed{}, err
		}
		parsed.Message = msg
	case isSimple(cmd):
		if len(rest) > 1 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", rest[0])
		}
	default:
		return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
	}

	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp
	return parsed, nil
}

func isSimple(cmd Command) bool {
	_, ok := simpleCommands[cmd]
	return ok
}

func parseMessage(args []string) (ipc.Message, error) {
	if len(args) == 0 {
		return nil, errors.New("msg requires a message type: create-window, config, or takeover")
	}

	switch args[0] {
	case "create-window":
		return parseCreateWindow(args[1:])
	case "config":
		return parseConfig(args[1:])
	case "takeover":
		return parseTakeover(args[1:])
	default:
		return nil, fmt.Errorf("unknown message type: %s", args[0])
	}
}

func parseCreateWindow(args []string) (ipc.Message, error) {
	flagArgs, command := splitCommand(args)

	fs := newFlagSet("create-window")
	workingDir := fs.String("working-directory", "", "starting directory")
	hold := fs.Bool("hold", false, "keep the window open after the command exits")
	title := fs.String("title", "", "window title")
	class := fs.String("class", "", "window class")
	if err := fs.Parse(flagArgs); err != nil {
		return nil, fmt.Errorf("create-window: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("create-window: unexpected argument %q", fs.Arg(0))
	}
	if command != nil && len(command) == 0 {
		return nil, errors.New("create-window: -e requires a command")
	}

	fields := map[string]any{}
	if v := strings.TrimSpace(*workingDir); v != "" {
		fields["working_directory"] = v
	}
	if fs.Changed("hold") {
		fields["hold"] = *hold
	}
	if v := strings.TrimSpace(*title); v != "" {
		fields["title"] = v
	}
	if v := strings.TrimSpace(*class); v != "" {
		fields["class"] = v
	}
	if len(command) > 0 {
		argv := make([]any, len(command))
		for i, arg := range command {
			argv[i] = arg
		}
		fields["command"] = argv
	}

	options, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("create-window: %w", err)
	}
	return ipc.CreateWindow{Options: options}, nil
}

func parseConfig(args []string) (ipc.Message, error) {
	fs := newFlagSet("config")
	windowID := fs.StringP("window-id", "w", "", "target window (default: all windows)")
	reset := fs.BoolP("reset", "r", false, "clear previous overrides first")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	options := fs.Args()
	if len(options) == 0 && !*reset {
		return nil, errors.New("config: at least one OPTION or --reset is required")
	}

	msg := ipc.ConfigUpdate{Options: options, Reset: *reset}
	if fs.Changed("window-id") {
		id, err := ipc.ParseWireID(*windowID)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		msg.WindowID = &id
	}
	return msg, nil
}

func parseTakeover(args []string) (ipc.Message, error) {
	fs := newFlagSet("takeover")
	windowID := fs.StringP("window-id", "w", "", "target window")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("takeover: %w", err)
	}
	if !fs.Changed("window-id") {
		return nil, errors.New("takeover: --window-id is required")
	}
	id, err := ipc.ParseWireID(*windowID)
	if err != nil {
		return nil, fmt.Errorf("takeover: %w", err)
	}
	if fs.NArg() != 1 {
		return nil, errors.New("takeover: exactly one PAYLOAD is required")
	}
	return ipc.OverlayRequest{WindowID: id, Payload: fs.Arg(0)}, nil
}

// splitCommand separates flags from a trailing `-e CMD...`. A nil command
// means no -e was given.
func splitCommand(args []string) ([]string, []string) {
	for i, arg := range args {
		if arg == "-e" || arg == "--command" {
			return args[:i], append([]string{}, args[i+1:]...)
		}
	}
	return args, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--socket PATH] <command>

Commands:
  daemon                 Run the long-lived instance and listen for messages
  msg create-window      Ask the running instance to open a window
      [--working-directory DIR] [--hold] [--title T] [--class C] [-e CMD...]
  msg config             Apply runtime config overrides
      [-w ID] [-r] OPTION...   (OPTION is key=value, e.g. font.size=12)
  msg takeover           Show an overlay in a window
      -w ID image:/abs/path
  doctor                 Run configuration and environment checks
  version                Print version information
  help                   Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/termlink/termlink.toml)
  --socket PATH   IPC socket path (default: discovered)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
