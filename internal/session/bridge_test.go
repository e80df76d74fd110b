package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/animalese/internal/playback"
)

func TestBridgePlayAndRelease(t *testing.T) {
	f := newFixture(t)

	f.bridge.Play("%.60", playback.Options{Hold: "67"})
	f.sync(t)
	require.Len(t, f.backend.Started(), 1)

	var held bool
	require.NoError(t, f.runner.Do(context.Background(), func() { held = f.engine.Held("67") }))
	require.True(t, held)

	f.bridge.Release("67", true)
	require.NoError(t, f.runner.Do(context.Background(), func() { held = f.engine.Held("67") }))
	require.False(t, held)
}

func TestBridgeSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bridge.SetVolume(ctx, 0.25))
	v, err := f.bridge.Volume(ctx)
	require.NoError(t, err)
	require.Equal(t, 0.25, v)

	require.NoError(t, f.bridge.SetMode(ctx, playback.ModeSfxOnly))
	m, err := f.bridge.Mode(ctx)
	require.NoError(t, err)
	require.Equal(t, playback.ModeSfxOnly, m)
}

func TestBridgeSpeakPlaysEveryEvent(t *testing.T) {
	f := newFixture(t)

	events, err := f.bridge.Events(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, events, 2)

	n, err := f.bridge.Speak(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	f.sync(t)
	require.Len(t, f.backend.Started(), 2)
}

func TestBridgeSpeakStopsOnCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	n, err := f.bridge.Speak(ctx, "abcdefghij")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, n, 10)
}

func TestBridgeStopAllAfterRunnerStops(t *testing.T) {
	runner := playback.NewRunner(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, runner.Run(ctx), context.Canceled)

	f := newFixture(t)
	b := NewBridge(runner, f.engine, nil, nil)
	require.ErrorIs(t, b.StopAll(context.Background()), playback.ErrRunnerClosed)
}
