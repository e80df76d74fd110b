// Package render turns resolved sound events into a WAV file by compiling a
// single ffmpeg filter graph and running it in a scratch directory.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rbright/animalese/internal/ffmpeg"
	"github.com/rbright/animalese/internal/sound"
)

var (
	ErrEmptySequence = errors.New("no renderable sound events")
	ErrEngineFailure = errors.New("ffmpeg conversion failed")
	ErrIO            = errors.New("render io error")
)

const (
	scratchPattern = "tts-"
	outputName     = "output.wav"

	// DefaultMaxParallel bounds concurrent engine processes.
	DefaultMaxParallel = 4
)

// EngineFailureError is a render the engine rejected.
type EngineFailureError struct {
	Code   int
	Stderr string
}

func (e *EngineFailureError) Error() string {
	return fmt.Sprintf("ffmpeg conversion failed (code %d): %s", e.Code, strings.TrimSpace(e.Stderr))
}

func (e *EngineFailureError) Unwrap() error { return ErrEngineFailure }

// Executor runs one engine invocation.
type Executor interface {
	Run(ctx context.Context, args []string, stdout io.Writer) error
}

// Observer receives the outcome of every render.
type Observer interface {
	RenderCompleted(status string, elapsed time.Duration)
}

// Options configures a Renderer.
type Options struct {
	Executor    Executor
	AssetRoot   string
	TempDir     string
	MaxParallel int64
	Timeout     time.Duration
	ExtraArgs   []string
	Logger      *slog.Logger
	Observer    Observer
}

// Renderer produces WAV output for event sequences. It is safe for
// concurrent use; at most MaxParallel engine processes run at once.
type Renderer struct {
	exec      Executor
	assetRoot string
	tempDir   string
	timeout   time.Duration
	extraArgs []string
	logger    *slog.Logger
	observer  Observer
	sem       *semaphore.Weighted
}

// New builds a Renderer.
func New(opts Options) (*Renderer, error) {
	if opts.Executor == nil {
		return nil, errors.New("render executor is required")
	}
	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{
		exec:      opts.Executor,
		assetRoot: opts.AssetRoot,
		tempDir:   opts.TempDir,
		timeout:   opts.Timeout,
		extraArgs: append([]string(nil), opts.ExtraArgs...),
		logger:    logger,
		observer:  opts.Observer,
		sem:       semaphore.NewWeighted(maxParallel),
	}, nil
}

// Render compiles items and runs the engine, returning the encoded WAV bytes.
// The scratch directory is removed on every path.
func (r *Renderer) Render(ctx context.Context, items []Item, profile sound.VoiceProfile, preset Preset) (data []byte, err error) {
	started := time.Now()
	defer func() {
		r.report(err, time.Since(started))
	}()

	graph, err := BuildGraph(items, profile, r.assetRoot)
	if err != nil {
		return nil, err
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp(r.tempDir, scratchPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: create scratch dir: %v", ErrIO, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.logger.Warn("remove scratch dir failed", "dir", dir, "error", rmErr)
		}
	}()

	output := filepath.Join(dir, outputName)
	args := graph.Args(preset, output, r.extraArgs)
	r.logger.Debug("render start",
		"segments", len(graph.Segments),
		"inputs", len(graph.Inputs),
		"preset", preset.Name,
	)

	if err := r.exec.Run(ctx, args, nil); err != nil {
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) {
			return nil, &EngineFailureError{Code: exitErr.Code, Stderr: exitErr.Stderr}
		}
		return nil, err
	}

	data, err = os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrIO, err)
	}
	r.logger.Debug("render done", "bytes", len(data), "elapsed", time.Since(started))
	return data, nil
}

func (r *Renderer) report(err error, elapsed time.Duration) {
	if r.observer == nil {
		return
	}
	r.observer.RenderCompleted(Status(err), elapsed)
}

// Status classifies a render result for metrics and history.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptySequence):
		return "empty"
	case errors.Is(err, ffmpeg.ErrEngineMissing):
		return "engine_missing"
	case errors.Is(err, ErrEngineFailure):
		return "engine_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "error"
	}
}
