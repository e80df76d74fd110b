package playback

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrRunnerClosed = errors.New("playback runner closed")

// Timer is a pending deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler defers callbacks onto the engine's logical clock.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
}

// Runner serializes every engine operation and timer callback onto one
// goroutine. It implements Scheduler; callbacks fired by timers are queued
// behind already-posted work.
type Runner struct {
	queue    chan func()
	done     chan struct{}
	doneOnce sync.Once
}

func NewRunner(buffer int) *Runner {
	if buffer <= 0 {
		buffer = 64
	}
	return &Runner{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes queued work until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer r.doneOnce.Do(func() { close(r.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-r.queue:
			fn()
		}
	}
}

// Post queues fn. It reports false once the runner has stopped.
func (r *Runner) Post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.queue <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Do queues fn and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !r.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrRunnerClosed
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrRunnerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { r.Post(fn) })
}
