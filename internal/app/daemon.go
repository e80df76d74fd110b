package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/animalese/internal/config"
	"github.com/rbright/animalese/internal/health"
	"github.com/rbright/animalese/internal/ipc"
	"github.com/rbright/animalese/internal/keystroke"
	"github.com/rbright/animalese/internal/observe"
	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/session"
	"github.com/rbright/animalese/internal/version"
)

const (
	claimProbeTimeout = 180 * time.Millisecond
	claimAttempts     = 8
	shutdownTimeout   = 2 * time.Second
)

// commandListen owns the control socket and runs the keystroke session until
// stopped.
func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	sock, err := ipc.Claim(ctx, socketPath, ipc.ClaimOptions{
		ProbeTimeout: claimProbeTimeout,
		Attempts:     claimAttempts,
	})
	if err != nil {
		return err
	}
	defer sock.Close()

	provider, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: version.Version})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// The engine dispatches `#` commands to the frontend, which is built
	// after the engine because it plays through it.
	var frontend *keystroke.Frontend
	commands := playback.CommandFunc(func(cmd string) {
		if frontend != nil {
			frontend.Dispatch(cmd)
		}
	})

	s, err := openStack(ctx, cfg, logger, stackOptions{commands: commands, observer: metrics})
	if err != nil {
		return err
	}
	defer s.Close()

	keymap, ignored := keystroke.DefaultKeymap().Merge(cfg.Listener.Keymap)
	if len(ignored) > 0 {
		logger.Warn("keymap overrides for unknown keycodes ignored", "keycodes", ignored)
	}
	frontend = keystroke.NewFrontend(s.bridge, keystroke.Options{
		Keymap:     keymap,
		HoldRepeat: cfg.Playback.HoldRepeat,
		Logger:     logger,
		Observer:   metrics,
	})
	source := keystroke.Source{Command: cfg.Listener.Command.Argv, Stdin: r.Stdin, Logger: logger}
	controller := session.NewController(logger, s.bridge, frontend, source)

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	group, groupCtx := errgroup.WithContext(serveCtx)

	group.Go(func() error {
		return ipc.Serve(groupCtx, sock, controller)
	})
	if addr := cfg.Metrics.Listen; addr != "" {
		group.Go(func() error {
			return provider.Serve(groupCtx, addr, logger)
		})
	}
	var healthServer *health.Server
	if addr := cfg.Health.Listen; addr != "" {
		healthServer = health.NewServer(logger)
		group.Go(func() error {
			return healthServer.Listen(groupCtx, addr)
		})
	}

	go s.preload(groupCtx, s.catalog.Containers(), cfg.Playback.PreloadParallel, logger)
	if healthServer != nil {
		healthServer.SetServing(true)
	}

	// An endpoint failure ends the session as if stop had been requested.
	sessionCtx, endSession := context.WithCancel(ctx)
	defer endSession()
	go func() {
		<-groupCtx.Done()
		endSession()
	}()

	result := controller.Run(sessionCtx)
	if healthServer != nil {
		healthServer.SetServing(false)
	}
	stopServing()
	serveErr := group.Wait()
	logSessionResult(logger, result)

	if result.Err != nil {
		return result.Err
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("daemon endpoint failed: %w", serveErr)
	}
	fmt.Fprintf(r.Stdout, "stopped after %d keys\n", result.Keys)
	return nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"keys", result.Keys,
		"spoken_events", result.Spoken,
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
