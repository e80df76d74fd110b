package keystroke

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

const (
	TypeKeyDown = "keydown"
	TypeKeyUp   = "keyup"

	// StdinCommand makes the source read events from its Stdin.
	StdinCommand = "-"
)

var ErrNoListener = errors.New("key listener command is empty")

// Event is one line of key listener output.
type Event struct {
	Type    string `json:"type"`
	Keycode int    `json:"keycode"`
	Shift   bool   `json:"shift"`
	Ctrl    bool   `json:"ctrl"`
	Alt     bool   `json:"alt"`
	Caps    *bool  `json:"caps,omitempty"`
}

// Decode parses a listener line. ok is false for lines that are not key
// events.
func Decode(line string) (ev Event, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false, nil
	}
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return Event{}, false, fmt.Errorf("invalid listener output %q: %w", line, err)
	}
	if ev.Type != TypeKeyDown && ev.Type != TypeKeyUp {
		return Event{}, false, nil
	}
	return ev, true, nil
}

func isPermissionNotice(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "accessibility") || strings.Contains(lower, "permission")
}

// Source reads key events from a listener process or from Stdin.
type Source struct {
	Command []string
	Stdin   io.Reader
	Logger  *slog.Logger
}

// Run delivers events to handle until the listener exits or ctx ends.
func (s Source) Run(ctx context.Context, handle func(Event)) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(s.Command) == 0 {
		return ErrNoListener
	}

	if len(s.Command) == 1 && s.Command[0] == StdinCommand {
		if s.Stdin == nil {
			return errors.New("stdin key source has no reader")
		}
		return s.scan(ctx, s.Stdin, logger, handle)
	}

	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("listener stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("listener stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start key listener %q: %w", s.Command[0], err)
	}
	logger.Info("key listener started", "command", s.Command[0], "pid", cmd.Process.Pid)

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug("key listener stderr", "line", scanner.Text())
		}
	}()

	scanErr := s.scan(ctx, stdout, logger, handle)
	if scanErr != nil {
		_ = cmd.Process.Kill()
	}
	<-stderrDone
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if scanErr != nil {
		return scanErr
	}
	if waitErr != nil {
		return fmt.Errorf("key listener exited: %w", waitErr)
	}
	return nil
}

func (s Source) scan(ctx context.Context, r io.Reader, logger *slog.Logger, handle func(Event)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if isPermissionNotice(line) {
			logger.Warn("key listener needs permission", "message", strings.TrimSpace(line))
			continue
		}
		ev, ok, err := Decode(line)
		if err != nil {
			logger.Warn("skipping listener line", "error", err)
			continue
		}
		if ok {
			handle(ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read key listener: %w", err)
	}
	return ctx.Err()
}
