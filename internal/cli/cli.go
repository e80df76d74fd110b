// Package cli parses animalese command lines.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandListen    Command = "listen"
	CommandPlay      Command = "play"
	CommandSpeak     Command = "speak"
	CommandSay       Command = "say"
	CommandRender    Command = "render"
	CommandSubtitles Command = "subtitles"
	CommandEvents    Command = "events"
	CommandStatus    Command = "status"
	CommandVolume    Command = "volume"
	CommandMode      Command = "mode"
	CommandMute      Command = "mute"
	CommandUnmute    Command = "unmute"
	CommandStop      Command = "stop"
	CommandHistory   Command = "history"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// arity is the accepted positional argument range; max < 0 is unbounded.
type arity struct{ min, max int }

var validCommands = map[Command]arity{
	CommandListen:    {0, 0},
	CommandPlay:      {1, -1},
	CommandSpeak:     {1, -1},
	CommandSay:       {1, -1},
	CommandRender:    {1, -1},
	CommandSubtitles: {1, 1},
	CommandEvents:    {1, -1},
	CommandStatus:    {0, 0},
	CommandVolume:    {0, 1},
	CommandMode:      {0, 1},
	CommandMute:      {0, 0},
	CommandUnmute:    {0, 0},
	CommandStop:      {0, 0},
	CommandHistory:   {0, 0},
	CommandDevices:   {0, 0},
	CommandDoctor:    {0, 0},
	CommandVersion:   {0, 0},
	CommandHelp:      {0, 0},
}

// outputCommands write a WAV file and require --out.
var outputCommands = map[Command]bool{
	CommandRender:    true,
	CommandSubtitles: true,
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool

	Output  string
	Quality string
	Voice   string
	Limit   int
}

// Text joins the positional arguments the way speak, say, render and events
// consume them.
func (p Parsed) Text() string {
	return strings.Join(p.Args, " ")
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	commandSet := false
	flagsDone := false

	value := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if flagsDone || !strings.HasPrefix(arg, "-") || arg == "-" {
			if !commandSet {
				cmd := Command(strings.ToLower(arg))
				if _, ok := validCommands[cmd]; !ok {
					return Parsed{}, fmt.Errorf("unknown command: %s", arg)
				}
				parsed.Command = cmd
				parsed.ShowHelp = cmd == CommandHelp
				commandSet = true
				continue
			}
			parsed.Args = append(parsed.Args, arg)
			continue
		}

		var err error
		switch arg {
		case "--":
			flagsDone = true
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			return parsed, nil
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			commandSet = true
		case "--config":
			if parsed.ConfigPath, err = value(&i, arg); err != nil {
				return Parsed{}, errors.New("--config requires a path")
			}
		case "-o", "--out":
			parsed.Output, err = value(&i, arg)
		case "--quality":
			parsed.Quality, err = value(&i, arg)
		case "--voice":
			parsed.Voice, err = value(&i, arg)
		case "--limit":
			var raw string
			if raw, err = value(&i, arg); err == nil {
				parsed.Limit, err = strconv.Atoi(raw)
				if err != nil || parsed.Limit <= 0 {
					err = fmt.Errorf("--limit must be a positive integer, got %q", raw)
				}
			}
		default:
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return Parsed{}, err
		}
	}

	if parsed.ShowHelp {
		return parsed, nil
	}
	if err := validate(parsed); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func validate(p Parsed) error {
	want := validCommands[p.Command]
	n := len(p.Args)
	switch {
	case n < want.min:
		return fmt.Errorf("command %q requires an argument", p.Command)
	case want.max >= 0 && n > want.max:
		return fmt.Errorf("unexpected arguments after command %q", p.Command)
	}
	if outputCommands[p.Command] && strings.TrimSpace(p.Output) == "" {
		return fmt.Errorf("command %q requires --out PATH", p.Command)
	}
	if !outputCommands[p.Command] && p.Command != CommandSpeak && p.Command != CommandEvents {
		if p.Output != "" || p.Quality != "" || p.Voice != "" {
			return fmt.Errorf("--out, --quality and --voice do not apply to %q", p.Command)
		}
	}
	if p.Limit > 0 && p.Command != CommandHistory {
		return fmt.Errorf("--limit only applies to %q", CommandHistory)
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags] [args]

Commands:
  listen              Run the keystroke daemon until stopped
  play SOUND...       Play sound paths locally (e.g. &.a sfx.bell %%.60)
  speak TEXT...       Speak text on the local output device
  say TEXT...         Ask the running daemon to speak text
  render TEXT...      Render text to a WAV file (requires --out)
  subtitles FILE      Render an SRT file to a timed WAV file (requires --out)
  events TEXT...      Print the sound events text segments into, as JSON lines
  status              Print the daemon state
  volume [LEVEL]      Print or set the daemon volume in [0,1]
  mode [MODE]         Print or set the playback mode (normal, voice_only, sfx_only, random)
  mute, unmute        Toggle keystroke sounds on the daemon
  stop                Stop the daemon
  history             List recent renders
  devices             List available output devices
  doctor              Run configuration and environment checks
  version             Print version information
  help                Show this help

Flags:
  --config PATH       Config file path (default: $XDG_CONFIG_HOME/animalese/config.jsonc)
  -o, --out PATH      Output WAV path for render and subtitles
  --quality NAME      Render quality preset (low, standard, high)
  --voice TYPE        Voice type override (f1-f4, m1-m4)
  --limit N           Number of history entries to show
  -h, --help          Show help
  --version           Show version
`, binaryName)
}
