package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/segment"
	"github.com/rbright/animalese/internal/sound"
)

// Bridge moves engine calls from arbitrary goroutines onto the playback
// runner. Fire-and-forget calls are posted; queries wait for the runner.
type Bridge struct {
	runner    *playback.Runner
	engine    *playback.Engine
	segmenter *segment.Segmenter
	logger    *slog.Logger
}

func NewBridge(runner *playback.Runner, engine *playback.Engine, segmenter *segment.Segmenter, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if segmenter == nil {
		segmenter = segment.New(engine.SFXEnabled)
	}
	return &Bridge{runner: runner, engine: engine, segmenter: segmenter, logger: logger}
}

func (b *Bridge) Play(raw string, opts playback.Options) {
	if !b.runner.Post(func() { b.engine.Play(raw, opts) }) {
		b.logger.Debug("play after runner stop", "path", raw)
	}
}

func (b *Bridge) Release(hold string, cut bool) {
	b.runner.Post(func() { b.engine.Release(hold, cut) })
}

func (b *Bridge) StopAll(ctx context.Context) error {
	return b.runner.Do(ctx, b.engine.StopAll)
}

func (b *Bridge) SetVolume(ctx context.Context, v float64) error {
	return b.runner.Do(ctx, func() { b.engine.SetVolume(v) })
}

func (b *Bridge) Volume(ctx context.Context) (float64, error) {
	var v float64
	err := b.runner.Do(ctx, func() { v = b.engine.Volume() })
	return v, err
}

func (b *Bridge) SetMode(ctx context.Context, m playback.Mode) error {
	return b.runner.Do(ctx, func() { b.engine.SetMode(m) })
}

func (b *Bridge) Mode(ctx context.Context) (playback.Mode, error) {
	var m playback.Mode
	err := b.runner.Do(ctx, func() { m = b.engine.Mode() })
	return m, err
}

// Events segments text with the engine's current voice profile.
func (b *Bridge) Events(ctx context.Context, text string) ([]sound.Event, error) {
	var profile sound.VoiceProfile
	if err := b.runner.Do(ctx, func() { profile = b.engine.VoiceProfile() }); err != nil {
		return nil, err
	}
	return b.segmenter.TextToSoundEvents(text, profile), nil
}

// Speak plays text one event at a time, waiting each event's nominal
// duration. It returns how many events were started.
func (b *Bridge) Speak(ctx context.Context, text string) (int, error) {
	events, err := b.Events(ctx, text)
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if !b.runner.Post(func() { b.engine.PlayEvent(ev) }) {
			return i, playback.ErrRunnerClosed
		}
		timer.Reset(time.Duration(ev.DurationMs * float64(time.Millisecond)))
		select {
		case <-ctx.Done():
			return i + 1, ctx.Err()
		case <-timer.C:
		}
	}
	return len(events), nil
}
