package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/animalese/internal/audio"
	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/cli"
	"github.com/rbright/animalese/internal/config"
	"github.com/rbright/animalese/internal/ffmpeg"
	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/session"
	"github.com/rbright/animalese/internal/sound"
)

const (
	runnerBuffer = 256
	idlePoll     = 10 * time.Millisecond
	// drainLimit bounds how long local playback waits for the tail of the
	// last sound.
	drainLimit = 5 * time.Second
)

// stack is a live playback engine on the local output device.
type stack struct {
	catalog *catalog.Catalog
	library *audio.Library
	mixer   *audio.Mixer
	output  *audio.Output
	runner  *playback.Runner
	engine  *playback.Engine
	bridge  *session.Bridge

	cancel  context.CancelFunc
	stopped chan struct{}
}

type stackOptions struct {
	commands playback.CommandDispatcher
	observer playback.Observer
	voice    string
	// decodeOnDemand lets the mixer wait for a container decode instead of
	// dropping the sound. Only one-shot commands set it.
	decodeOnDemand bool
}

// onDemandClips decodes a container the first time the mixer asks for it.
type onDemandClips struct {
	ctx     context.Context
	library *audio.Library
}

func (c onDemandClips) Ready(container string) (*audio.Clip, error) {
	return c.library.Clip(c.ctx, container)
}

func newCatalog(cfg config.Config) *catalog.Catalog {
	return catalog.New(catalog.Options{Extension: cfg.Assets.Extension})
}

// voiceProfile builds the configured profile, optionally overriding the type.
func voiceProfile(cat *catalog.Catalog, cfg config.Config, override string) (sound.VoiceProfile, error) {
	profile := sound.VoiceProfile{
		Type:       cfg.Voice.Type,
		Pitch:      cfg.Voice.Pitch,
		Variation:  cfg.Voice.Variation,
		Intonation: cfg.Voice.Intonation,
	}
	if v := strings.ToLower(strings.TrimSpace(override)); v != "" {
		if !cat.HasVoiceType(v) {
			return sound.VoiceProfile{}, fmt.Errorf("unknown voice type %q", override)
		}
		profile.Type = v
	}
	return profile, nil
}

// decoder uses ffmpeg when it can be found; without it only .wav containers
// decode.
func decoder(cfg config.Config, logger *slog.Logger) audio.Decoder {
	binary, err := ffmpeg.Locate(ffmpeg.LocateOptions{Binary: cfg.Render.FFmpeg, BundledDir: cfg.Render.BundledDir})
	if err != nil {
		logger.Warn("ffmpeg unavailable; only wav containers will decode", "error", err.Error())
		return audio.FFmpegDecoder{SampleRate: audio.DefaultSampleRate}
	}
	return audio.FFmpegDecoder{
		Runner:     ffmpeg.Runner{Binary: binary, Logger: logger},
		SampleRate: audio.DefaultSampleRate,
	}
}

// openStack connects the output device and starts the engine goroutine.
func openStack(ctx context.Context, cfg config.Config, logger *slog.Logger, opts stackOptions) (*stack, error) {
	cat := newCatalog(cfg)
	profile, err := voiceProfile(cat, cfg, opts.voice)
	if err != nil {
		return nil, err
	}
	mode, err := playback.ParseMode(cfg.Playback.Mode)
	if err != nil {
		return nil, err
	}
	root, err := cfg.Assets.AssetRoot()
	if err != nil {
		return nil, err
	}

	selection, err := audio.SelectSink(ctx, cfg.Playback.Device, cfg.Playback.Fallback)
	if err != nil {
		return nil, fmt.Errorf("select output: %w", err)
	}
	if selection.Warning != "" {
		logger.Warn("audio output fallback", "warning", selection.Warning)
	}

	library := audio.NewLibrary(root, decoder(cfg, logger), logger)
	var clips audio.ClipSource = library
	if opts.decodeOnDemand {
		clips = onDemandClips{ctx: ctx, library: library}
	}
	mixer := audio.NewMixer(clips, audio.DefaultSampleRate)
	output, err := audio.OpenOutput(mixer, audio.OutputOptions{
		Sink:    selection.Sink.ID,
		Latency: float64(cfg.Playback.LatencyMS) / 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	runner := playback.NewRunner(runnerBuffer)
	engine, err := playback.New(playback.Config{
		Catalog:   cat,
		Backend:   mixer,
		Scheduler: runner,
		Commands:  opts.commands,
		Observer:  opts.observer,
		Logger:    logger,
		Volume:    cfg.Playback.Volume,
		Mode:      mode,
		SFX:       cfg.Playback.SFX,
		Voice:     profile,
		Note:      sound.NoteProfile{Instrument: cfg.Note.Instrument, Transpose: cfg.Note.Transpose},
		RampShape: cfg.Playback.RampShape,
	})
	if err != nil {
		output.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &stack{
		catalog: cat,
		library: library,
		mixer:   mixer,
		output:  output,
		runner:  runner,
		engine:  engine,
		bridge:  session.NewBridge(runner, engine, nil, logger),
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(s.stopped)
		_ = runner.Run(runCtx)
	}()
	logger.Info("output opened", "sink", selection.Sink.ID, "voice", profile.Type, "mode", mode.String())
	return s, nil
}

// preload decodes containers ahead of the first sound. Failures are logged;
// the affected sounds fail again when played.
func (s *stack) preload(ctx context.Context, containers []string, parallel int, logger *slog.Logger) {
	started := time.Now()
	if err := s.library.Preload(ctx, containers, parallel); err != nil {
		logger.Warn("preload incomplete", "error", err.Error())
		return
	}
	logger.Debug("preload complete", "containers", len(containers), "elapsed", time.Since(started))
}

// drain waits until every voice has finished or the limit passes.
func (s *stack) drain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, drainLimit)
	defer cancel()
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for s.mixer.Active() > 0 {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *stack) Close() {
	s.cancel()
	<-s.stopped
	s.output.Close()
}

func (r Runner) commandPlay(ctx context.Context, cfg config.Config, logger *slog.Logger, paths []string) error {
	s, err := openStack(ctx, cfg, logger, stackOptions{decodeOnDemand: true})
	if err != nil {
		return err
	}
	defer s.Close()

	for _, raw := range paths {
		var submitErr error
		if err := s.runner.Do(ctx, func() {
			_, submitErr = s.engine.Submit(raw, playback.Options{})
		}); err != nil {
			return err
		}
		if submitErr != nil {
			return fmt.Errorf("play %s: %w", raw, submitErr)
		}
		if err := s.drain(ctx); err != nil {
			return err
		}
	}
	if err := s.output.Err(); err != nil {
		return fmt.Errorf("output stream: %w", err)
	}
	return nil
}

func (r Runner) commandSpeak(ctx context.Context, cfg config.Config, logger *slog.Logger, parsed cli.Parsed) error {
	s, err := openStack(ctx, cfg, logger, stackOptions{voice: parsed.Voice, decodeOnDemand: true})
	if err != nil {
		return err
	}
	defer s.Close()

	profile := s.engine.VoiceProfile()
	s.preload(ctx, []string{
		"voice/" + profile.VoiceType() + cfg.Assets.Extension,
		"sfx" + cfg.Assets.Extension,
	}, cfg.Playback.PreloadParallel, logger)

	n, err := s.bridge.Speak(ctx, parsed.Text())
	logger.Info("spoke text", "events", n)
	if err != nil {
		return err
	}
	if err := s.drain(ctx); err != nil {
		return err
	}
	if err := s.output.Err(); err != nil {
		return fmt.Errorf("output stream: %w", err)
	}
	return nil
}
