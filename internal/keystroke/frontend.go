// Package keystroke turns global key events into playback requests.
package keystroke

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/rbright/animalese/internal/playback"
)

const (
	CommandNoSound       = "#no_sound"
	CommandDisableToggle = "#disable_toggle"
	CommandShowWindow    = "#show_window"

	instrumentCapsShift = -12
)

// Player receives playback requests. Implementations must be safe to call
// from the key source goroutine.
type Player interface {
	Play(raw string, opts playback.Options)
	Release(hold string, cut bool)
}

// Observer counts handled key events.
type Observer interface {
	KeyPressed(eventType string)
}

// Options configures a Frontend.
type Options struct {
	Keymap     Keymap
	HoldRepeat bool
	Logger     *slog.Logger
	Observer   Observer

	// OnMuteChange is called after #disable_toggle flips the mute flag.
	OnMuteChange func(muted bool)
}

// Frontend applies the key-to-sound policy.
type Frontend struct {
	player       Player
	keymap       Keymap
	holdRepeat   bool
	logger       *slog.Logger
	observer     Observer
	onMuteChange func(bool)

	mu    sync.Mutex
	caps  bool
	muted bool
}

func NewFrontend(player Player, opts Options) *Frontend {
	keymap := opts.Keymap
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Frontend{
		player:       player,
		keymap:       keymap,
		holdRepeat:   opts.HoldRepeat,
		logger:       logger,
		observer:     opts.Observer,
		onMuteChange: opts.OnMuteChange,
	}
}

// Handle routes one listener event.
func (f *Frontend) Handle(ev Event) {
	switch ev.Type {
	case TypeKeyDown:
		f.KeyDown(ev)
	case TypeKeyUp:
		f.KeyUp(ev)
	}
}

func (f *Frontend) KeyDown(ev Event) {
	binding, ok := f.keymap[ev.Keycode]
	if !ok {
		return
	}
	f.observe(TypeKeyDown)

	f.mu.Lock()
	switch {
	case ev.Caps != nil:
		f.caps = *ev.Caps
	case ev.Keycode == CapsLockKeycode:
		f.caps = !f.caps
	}
	caps, muted := f.caps, f.muted
	f.mu.Unlock()

	snd := binding.SoundFor(ev.Shift, ev.Ctrl, ev.Alt)
	if snd == "" {
		return
	}
	if strings.HasPrefix(snd, "#") {
		f.Dispatch(snd)
		return
	}
	if muted {
		return
	}

	hold := strconv.Itoa(ev.Keycode)
	opts := playback.Options{}
	if !f.holdRepeat {
		opts.Hold = hold
	}
	switch {
	case strings.HasPrefix(snd, "&"):
		opts.Yelling = caps != ev.Shift
	case strings.HasPrefix(snd, "%"):
		opts.Hold = hold
		if caps {
			opts.PitchShift = instrumentCapsShift
		}
	}
	f.player.Play(snd, opts)
}

// KeyUp frees the key's hold. Instrument notes are cut; everything else
// plays out.
func (f *Frontend) KeyUp(ev Event) {
	binding, ok := f.keymap[ev.Keycode]
	if !ok {
		return
	}
	f.observe(TypeKeyUp)
	snd := binding.SoundFor(ev.Shift, ev.Ctrl, ev.Alt)
	f.player.Release(strconv.Itoa(ev.Keycode), strings.HasPrefix(snd, "%"))
}

// Dispatch runs a `#` key command. It satisfies playback.CommandDispatcher so
// commands played through the engine reach the frontend too.
func (f *Frontend) Dispatch(cmd string) {
	switch cmd {
	case CommandNoSound:
	case CommandDisableToggle:
		f.mu.Lock()
		f.muted = !f.muted
		muted := f.muted
		f.mu.Unlock()
		f.logger.Info("keystroke sounds toggled", "muted", muted)
		if f.onMuteChange != nil {
			f.onMuteChange(muted)
		}
	case CommandShowWindow:
		f.logger.Info("show window requested; running headless")
	default:
		f.logger.Debug("unknown key command", "command", cmd)
	}
}

func (f *Frontend) observe(eventType string) {
	if f.observer != nil {
		f.observer.KeyPressed(eventType)
	}
}

func (f *Frontend) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

func (f *Frontend) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
}

func (f *Frontend) CapsLock() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caps
}
