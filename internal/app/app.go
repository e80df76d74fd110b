// Package app dispatches parsed command lines to the daemon, local playback,
// and offline rendering.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rbright/animalese/internal/audio"
	"github.com/rbright/animalese/internal/cli"
	"github.com/rbright/animalese/internal/config"
	"github.com/rbright/animalese/internal/doctor"
	"github.com/rbright/animalese/internal/ipc"
	"github.com/rbright/animalese/internal/logging"
	"github.com/rbright/animalese/internal/version"
)

const binaryName = "animalese"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Stdin feeds the key source when the listener command is "-".
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if cfgLoaded.Exists {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandVolume, cli.CommandMode, cli.CommandMute, cli.CommandUnmute, cli.CommandStop, cli.CommandSay:
		return r.forwardOrFail(ctx, string(parsed.Command), parsed.Args)
	case cli.CommandListen:
		return r.fail(logger, r.commandListen(ctx, cfg, logger))
	case cli.CommandPlay:
		return r.fail(logger, r.commandPlay(ctx, cfg, logger, parsed.Args))
	case cli.CommandSpeak:
		return r.fail(logger, r.commandSpeak(ctx, cfg, logger, parsed))
	case cli.CommandRender:
		return r.fail(logger, r.commandRender(ctx, cfg, logger, parsed))
	case cli.CommandSubtitles:
		return r.fail(logger, r.commandSubtitles(ctx, cfg, logger, parsed))
	case cli.CommandEvents:
		return r.fail(logger, r.commandEvents(cfg, parsed))
	case cli.CommandHistory:
		return r.fail(logger, r.commandHistory(ctx, cfg, logger, parsed.Limit))
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// fail prints and logs err and maps it to an exit code.
func (r Runner) fail(logger *slog.Logger, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	logger.Error("command failed", "error", err.Error())
	return 1
}

func (r Runner) commandDevices(ctx context.Context) int {
	sinks, err := audio.ListSinks(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(sinks) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output devices found")
		return 1
	}

	for _, sink := range sinks {
		defaultMark := " "
		if sink.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			sink.ID,
			sink.Description,
			sink.State,
			yesNo(sink.Available),
			yesNo(sink.Muted),
		)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// commandStatus prints "idle" when no daemon owns the socket.
func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus, nil)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, describe(resp))
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string, args []string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command, args)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no running animalese daemon")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	switch command {
	case ipc.CommandVolume:
		if resp.Volume != nil {
			fmt.Fprintf(r.Stdout, "%.2f\n", *resp.Volume)
		}
	case ipc.CommandMode:
		fmt.Fprintln(r.Stdout, resp.Mode)
	default:
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
	}
	return 0
}

// describe renders a status reply on one line.
func describe(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	parts := []string{state}
	if resp.Volume != nil {
		parts = append(parts, fmt.Sprintf("volume=%.2f", *resp.Volume))
	}
	if resp.Mode != "" {
		parts = append(parts, "mode="+resp.Mode)
	}
	if resp.Muted != nil {
		parts = append(parts, fmt.Sprintf("muted=%t", *resp.Muted))
	}
	if resp.Keys > 0 {
		parts = append(parts, fmt.Sprintf("keys=%d", resp.Keys))
	}
	return strings.Join(parts, " ")
}

// tryForward reports handled=false when no daemon is listening.
func tryForward(ctx context.Context, socketPath string, command string, args []string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command, Args: args}, ipc.DefaultTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}
	if errors.Is(err, ipc.ErrNotRunning) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
