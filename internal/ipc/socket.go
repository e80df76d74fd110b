package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var ErrAlreadyRunning = errors.New("animalese daemon already running")

// SocketName is the daemon socket file inside XDG_RUNTIME_DIR.
const SocketName = "animalese.sock"

// RuntimeSocketPath returns the daemon socket path.
func RuntimeSocketPath() (string, error) {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, SocketName), nil
}

// ClaimOptions tunes how Claim treats an existing socket file.
type ClaimOptions struct {
	// ProbeTimeout bounds the status request sent to a possible owner.
	ProbeTimeout time.Duration
	// Attempts is the number of listen tries before giving up.
	Attempts int
	// Backoff is the wait after the first failed try; it grows linearly.
	Backoff time.Duration
}

func (o ClaimOptions) normalized() ClaimOptions {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 200 * time.Millisecond
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Backoff <= 0 {
		o.Backoff = 25 * time.Millisecond
	}
	return o
}

// Socket is a claimed control socket. Closing it removes the socket file.
type Socket struct {
	net.Listener
	path string
}

func (s *Socket) Path() string { return s.path }

func (s *Socket) Close() error {
	err := s.Listener.Close()
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Claim listens on path. A socket file whose owner answers status yields
// ErrAlreadyRunning; one nobody answers on is unlinked and retried.
func Claim(ctx context.Context, path string, opts ClaimOptions) (*Socket, error) {
	opts = opts.normalized()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 1; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Socket{Listener: listener, path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		if err := evictStale(ctx, path, opts.ProbeTimeout); err != nil {
			return nil, err
		}
		if attempt >= opts.Attempts {
			return nil, fmt.Errorf("claim socket %s: gave up after %d attempts", path, attempt)
		}

		wait := time.NewTimer(time.Duration(attempt) * opts.Backoff)
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil, ctx.Err()
		case <-wait.C:
		}
	}
}

// evictStale removes path unless a live daemon answers on it. An owner that
// accepts but never answers is left alone.
func evictStale(ctx context.Context, path string, timeout time.Duration) error {
	alive, err := Probe(ctx, path, timeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
