// Package ffmpeg locates and runs the external media engine.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var ErrEngineMissing = errors.New("ffmpeg not found")

const stderrTailBytes = 64 << 10

// LocateOptions lists where to look, in order: an explicit binary path, a
// bundled directory, then PATH.
type LocateOptions struct {
	Binary     string
	BundledDir string

	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Locate resolves the ffmpeg binary.
func Locate(opts LocateOptions) (string, error) {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if binary := expandUserPath(opts.Binary); binary != "" {
		if strings.ContainsRune(binary, filepath.Separator) {
			if isExecutable(binary) {
				return binary, nil
			}
			return "", missing(binary)
		}
		if resolved, err := lookPath(binary); err == nil {
			return resolved, nil
		}
		return "", missing(binary)
	}

	if dir := expandUserPath(opts.BundledDir); dir != "" {
		bundled := filepath.Join(dir, executableName())
		if isExecutable(bundled) {
			return bundled, nil
		}
	}

	resolved, err := lookPath(executableName())
	if err != nil {
		return "", missing(executableName())
	}
	return resolved, nil
}

func missing(where string) error {
	return fmt.Errorf("%w at: %s\n\nPlease install FFmpeg and add it to your system PATH", ErrEngineMissing, where)
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}

// ExitError is a non-zero exit of the engine with its captured diagnostics.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, strings.TrimSpace(e.Stderr))
}

// Runner executes ffmpeg invocations.
type Runner struct {
	Binary string
	Logger *slog.Logger
}

// Run executes one invocation. stdout may be nil. Diagnostics are streamed to
// the logger line by line and the tail is kept for the returned error.
// Cancelling ctx kills the process.
func (r Runner) Run(ctx context.Context, args []string, stdout io.Writer) error {
	if strings.TrimSpace(r.Binary) == "" {
		return missing("<unset>")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	if stdout != nil {
		cmd.Stdout = stdout
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return missing(r.Binary)
		}
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	// stderr must be drained before Wait closes the pipe.
	tail := &tailBuffer{limit: stderrTailBytes}
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		tail.WriteLine(line)
		logger.Debug("ffmpeg", "line", line)
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("ffmpeg stderr unreadable", "error", err.Error())
		tail.WriteLine("[stderr: " + err.Error() + "]")
		_, _ = io.Copy(io.Discard, stderr)
	}

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ffmpeg cancelled: %w", ctxErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Stderr: tail.String()}
		}
		return fmt.Errorf("wait ffmpeg: %w", waitErr)
	}
	return nil
}

// Output runs an invocation and returns its stdout.
func (r Runner) Output(ctx context.Context, args []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Run(ctx, args, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Version returns the first line of `ffmpeg -version`.
func (r Runner) Version(ctx context.Context) (string, error) {
	out, err := r.Output(ctx, []string{"-hide_banner", "-version"})
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) WriteLine(line string) {
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
