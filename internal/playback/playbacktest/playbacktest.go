// Package playbacktest provides a recording backend and a manual clock for
// driving the playback engine in tests.
package playbacktest

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rbright/animalese/internal/playback"
)

var ErrLoad = errors.New("playbacktest: load failed")

// Voice is the recorded state of one started sound.
type Voice struct {
	Source  playback.Source
	Volume  float64
	Rate    float64
	Rates   []float64
	Fades   []Fade
	Stopped bool
}

type Fade struct {
	From, To float64
	Duration time.Duration
}

// Backend records every call. Containers listed in Fail refuse to start.
type Backend struct {
	mu     sync.Mutex
	next   playback.Handle
	voices map[playback.Handle]*Voice
	order  []playback.Handle
	Fail   map[string]bool
}

func NewBackend() *Backend {
	return &Backend{voices: make(map[playback.Handle]*Voice), Fail: make(map[string]bool)}
}

func (b *Backend) Start(src playback.Source, volume, rate float64) (playback.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Fail[src.Container] {
		return 0, ErrLoad
	}
	b.next++
	b.voices[b.next] = &Voice{Source: src, Volume: volume, Rate: rate}
	b.order = append(b.order, b.next)
	return b.next, nil
}

func (b *Backend) SetRate(h playback.Handle, rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.voices[h]; ok && !v.Stopped {
		v.Rate = rate
		v.Rates = append(v.Rates, rate)
	}
}

func (b *Backend) Volume(h playback.Handle) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.voices[h]; ok {
		return v.Volume
	}
	return 0
}

func (b *Backend) Fade(h playback.Handle, from, to float64, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.voices[h]; ok && !v.Stopped {
		v.Fades = append(v.Fades, Fade{From: from, To: to, Duration: d})
		v.Volume = to
	}
}

func (b *Backend) Stop(h playback.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.voices[h]; ok {
		v.Stopped = true
	}
}

func (b *Backend) Playing(h playback.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.voices[h]
	return ok && !v.Stopped
}

// Finish marks a voice as having reached its end.
func (b *Backend) Finish(h playback.Handle) { b.Stop(h) }

// Voice returns a copy of the recorded voice.
func (b *Backend) Voice(h playback.Handle) (Voice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.voices[h]
	if !ok {
		return Voice{}, false
	}
	return *v, true
}

// Started returns every started voice in start order.
func (b *Backend) Started() []Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Voice, 0, len(b.order))
	for _, h := range b.order {
		out = append(out, *b.voices[h])
	}
	return out
}

// Audible counts voices not yet stopped.
func (b *Backend) Audible() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.voices {
		if !v.Stopped {
			n++
		}
	}
	return n
}

// Clock is a manual playback.Scheduler. Callbacks run on Advance, in due
// order, on the calling goroutine.
type Clock struct {
	now     time.Duration
	seq     int
	pending []*timer
}

type timer struct {
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func NewClock() *Clock { return &Clock{} }

func (c *Clock) After(d time.Duration, fn func()) playback.Timer {
	c.seq++
	t := &timer{due: c.now + d, seq: c.seq, fn: fn}
	c.pending = append(c.pending, t)
	return t
}

// Now returns the elapsed manual time.
func (c *Clock) Now() time.Duration { return c.now }

// Pending counts live timers.
func (c *Clock) Pending() int {
	n := 0
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing due callbacks, including ones
// scheduled by callbacks within the window.
func (c *Clock) Advance(d time.Duration) {
	target := c.now + d
	for {
		t := c.nextDue(target)
		if t == nil {
			break
		}
		c.now = t.due
		t.fired = true
		t.fn()
	}
	c.now = target
	c.compact()
}

func (c *Clock) nextDue(target time.Duration) *timer {
	live := make([]*timer, 0, len(c.pending))
	for _, t := range c.pending {
		if !t.stopped && !t.fired && t.due <= target {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].due == live[j].due {
			return live[i].seq < live[j].seq
		}
		return live[i].due < live[j].due
	})
	return live[0]
}

func (c *Clock) compact() {
	kept := c.pending[:0]
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			kept = append(kept, t)
		}
	}
	c.pending = kept
}
