// Package session runs the keystroke daemon: one listening session fed by a
// key source and steered over IPC.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/animalese/internal/fsm"
	"github.com/rbright/animalese/internal/ipc"
	"github.com/rbright/animalese/internal/keystroke"
	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/sound"
)

// KeySource delivers key events until it ends or ctx is cancelled.
type KeySource interface {
	Run(ctx context.Context, handle func(keystroke.Event)) error
}

// Result is the outcome of one Run.
type Result struct {
	State      fsm.State
	Keys       int64
	Spoken     int64
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller owns the listening session state and answers control requests.
type Controller struct {
	logger   *slog.Logger
	bridge   *Bridge
	frontend *keystroke.Frontend
	source   KeySource
	mux      *ipc.Mux

	mu     sync.RWMutex
	state  fsm.State
	runCtx context.Context

	keys    atomic.Int64
	spoken  atomic.Int64
	stop    chan struct{}
	speakWG sync.WaitGroup
}

func NewController(logger *slog.Logger, bridge *Bridge, frontend *keystroke.Frontend, source KeySource) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		logger:   logger,
		bridge:   bridge,
		frontend: frontend,
		source:   source,
		state:    fsm.SessionIdle,
		stop:     make(chan struct{}, 1),
	}
	c.mux = c.routes()
	return c
}

func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fsm.SessionTransition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run listens for keys until ctx ends, a stop request arrives, or the key
// source exits. Cancellation of ctx is a clean shutdown.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	finish := func(err error) Result {
		c.speakWG.Wait()
		result.State = c.State()
		result.Keys = c.keys.Load()
		result.Spoken = c.spoken.Load()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	if err := c.transition(fsm.SessionEventListen); err != nil {
		return finish(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.runCtx = runCtx
	c.mu.Unlock()

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- c.source.Run(runCtx, c.handleKey)
	}()
	c.logger.Info("listening for keys")

	select {
	case <-ctx.Done():
		cancel()
		<-sourceDone
		c.shutdown()
		return finish(nil)
	case <-c.stop:
		cancel()
		<-sourceDone
		c.shutdown()
		return finish(nil)
	case err := <-sourceDone:
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("key source failed", "error", err.Error())
			c.toErrorAndReset()
			return finish(err)
		}
		c.shutdown()
		return finish(nil)
	}
}

func (c *Controller) handleKey(ev keystroke.Event) {
	if ev.Type == keystroke.TypeKeyDown {
		c.keys.Add(1)
	}
	c.frontend.Handle(ev)
}

// shutdown silences every voice and walks the session back to idle.
func (c *Controller) shutdown() {
	if c.State() == fsm.SessionListening {
		_ = c.transition(fsm.SessionEventStop)
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.bridge.StopAll(stopCtx); err != nil && !errors.Is(err, playback.ErrRunnerClosed) {
		c.logger.Warn("stop sounds on shutdown", "error", err.Error())
	}
	_ = c.transition(fsm.SessionEventDone)
}

func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.SessionEventFail)
	_ = c.transition(fsm.SessionEventReset)
}

// Handle serves one IPC request.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	return c.mux.Serve(ctx, req)
}

func (c *Controller) routes() *ipc.Mux {
	mux := ipc.NewMux()
	mux.HandleFunc(ipc.CommandStatus, c.handleStatus)
	mux.HandleFunc(ipc.CommandVolume, c.handleVolume)
	mux.HandleFunc(ipc.CommandMode, c.handleMode)
	mux.HandleFunc(ipc.CommandMute, func(ctx context.Context, _ ipc.Request) ipc.Response {
		c.frontend.SetMuted(true)
		return c.snapshot(ctx, ipc.Response{OK: true, Message: "muted"})
	})
	mux.HandleFunc(ipc.CommandUnmute, func(ctx context.Context, _ ipc.Request) ipc.Response {
		c.frontend.SetMuted(false)
		return c.snapshot(ctx, ipc.Response{OK: true, Message: "unmuted"})
	})
	mux.HandleFunc(ipc.CommandSay, c.handleSay)
	mux.HandleFunc(ipc.CommandPlay, c.handlePlay)
	mux.HandleFunc(ipc.CommandStop, c.handleStop)
	return mux
}

func (c *Controller) handleStatus(ctx context.Context, _ ipc.Request) ipc.Response {
	return c.snapshot(ctx, ipc.Response{OK: true, Message: "status"})
}

func (c *Controller) handleVolume(ctx context.Context, req ipc.Request) ipc.Response {
	raw := strings.TrimSpace(req.Arg(0))
	if raw == "" {
		return c.snapshot(ctx, ipc.Response{OK: true, Message: "volume"})
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return c.failure(fmt.Sprintf("volume must be a number in [0,1], got %q", raw))
	}
	if err := c.bridge.SetVolume(ctx, v); err != nil {
		return c.failure(err.Error())
	}
	c.logger.Info("volume changed", "volume", v)
	return c.snapshot(ctx, ipc.Response{OK: true, Message: "volume set"})
}

func (c *Controller) handleMode(ctx context.Context, req ipc.Request) ipc.Response {
	raw := strings.TrimSpace(req.Arg(0))
	if raw == "" {
		return c.snapshot(ctx, ipc.Response{OK: true, Message: "mode"})
	}
	mode, err := playback.ParseMode(raw)
	if err != nil {
		return c.failure(err.Error())
	}
	if err := c.bridge.SetMode(ctx, mode); err != nil {
		return c.failure(err.Error())
	}
	c.logger.Info("mode changed", "mode", mode.String())
	return c.snapshot(ctx, ipc.Response{OK: true, Message: "mode set"})
}

func (c *Controller) handlePlay(ctx context.Context, req ipc.Request) ipc.Response {
	raw := strings.TrimSpace(req.Arg(0))
	if _, err := sound.Parse(raw); err != nil {
		return c.failure(err.Error())
	}
	c.bridge.Play(raw, playback.Options{})
	return c.snapshot(ctx, ipc.Response{OK: true, Message: "playing " + raw})
}

// handleSay speaks in the background so the reply does not wait for the
// whole sentence.
func (c *Controller) handleSay(ctx context.Context, req ipc.Request) ipc.Response {
	text := strings.TrimSpace(strings.Join(req.Args, " "))
	if text == "" {
		return c.failure("say requires text")
	}

	c.mu.RLock()
	state, runCtx := c.state, c.runCtx
	c.mu.RUnlock()
	if state != fsm.SessionListening || runCtx == nil {
		return c.failure(fmt.Sprintf("cannot say from state %s", state))
	}

	c.speakWG.Add(1)
	go func() {
		defer c.speakWG.Done()
		n, err := c.bridge.Speak(runCtx, text)
		c.spoken.Add(int64(n))
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("say interrupted", "error", err.Error(), "events", n)
		}
	}()
	return c.snapshot(ctx, ipc.Response{OK: true, Message: "speaking"})
}

func (c *Controller) handleStop(_ context.Context, _ ipc.Request) ipc.Response {
	state := c.State()
	if state == fsm.SessionStopping {
		return ipc.Response{OK: false, State: string(state), Error: "already stopping"}
	}
	if state != fsm.SessionListening {
		return c.failure(fmt.Sprintf("cannot stop from state %s", state))
	}

	select {
	case c.stop <- struct{}{}:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

func (c *Controller) failure(msg string) ipc.Response {
	return ipc.Response{OK: false, State: string(c.State()), Error: msg}
}

// snapshot fills the shared state fields of a successful response.
func (c *Controller) snapshot(ctx context.Context, resp ipc.Response) ipc.Response {
	resp.State = string(c.State())
	resp.Keys = c.keys.Load()
	muted := c.frontend.Muted()
	resp.Muted = &muted

	if v, err := c.bridge.Volume(ctx); err == nil {
		resp.Volume = &v
	}
	if m, err := c.bridge.Mode(ctx); err == nil {
		resp.Mode = m.String()
	}
	return resp
}
