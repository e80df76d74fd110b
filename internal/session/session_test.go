package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/fsm"
	"github.com/rbright/animalese/internal/keystroke"
	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/playback/playbacktest"
	"github.com/rbright/animalese/internal/sound"
)

type fixture struct {
	runner  *playback.Runner
	engine  *playback.Engine
	backend *playbacktest.Backend
	bridge  *Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	runner := playback.NewRunner(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	backend := playbacktest.NewBackend()
	engine, err := playback.New(playback.Config{
		Catalog:   catalog.New(catalog.Options{}),
		Backend:   backend,
		Scheduler: runner,
		Volume:    0.5,
		SFX:       true,
		Voice:     sound.DefaultVoiceProfile(),
		Note:      sound.DefaultNoteProfile(),
	})
	require.NoError(t, err)

	return &fixture{
		runner:  runner,
		engine:  engine,
		backend: backend,
		bridge:  NewBridge(runner, engine, nil, nil),
	}
}

// sync waits until everything posted so far has run.
func (f *fixture) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, f.runner.Do(context.Background(), func() {}))
}

// scriptedSource replays events, then blocks until cancelled unless exit is
// set.
type scriptedSource struct {
	events []keystroke.Event
	exit   bool
	err    error

	mu      sync.Mutex
	started bool
}

func (s *scriptedSource) Run(ctx context.Context, handle func(keystroke.Event)) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	for _, ev := range s.events {
		handle(ev)
	}
	if s.exit {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func waitForState(t *testing.T, ctrl *Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool { return ctrl.State() == want }, 2*time.Second, 5*time.Millisecond)
}
