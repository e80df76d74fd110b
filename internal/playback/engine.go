// Package playback is the real-time sprite player: it resolves sound paths,
// applies the playback mode, owns channel and hold exclusivity, and drives
// intonation ramps.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/fsm"
	"github.com/rbright/animalese/internal/sound"
)

var ErrAssetLoad = errors.New("asset load failed")

const (
	CutoffFade  = 25 * time.Millisecond
	ReleaseFade = 150 * time.Millisecond

	voiceVolume     = 0.65
	yellingVolume   = 0.75
	yellingPitch    = 1.5
	yellingVariance = 1.0
)

// Drop reasons reported to the Observer.
const (
	DropHeld      = "held"
	DropMalformed = "malformed"
	DropUnknown   = "unknown_sprite"
	DropAssetLoad = "asset_load"
)

// Options carries the per-request overrides of Play.
type Options struct {
	// Volume <= 0 plays at full event volume.
	Volume     float64
	PitchShift float64
	Variation  float64
	Intonation float64
	// Note == 0 means the neutral note 60.
	Note     int
	Type     string
	Channel  *int
	Hold     string
	NoRandom bool
	Yelling  bool
	// Profiled voice requests bring their own pitch, variation and
	// intonation; the engine's voice profile is not added again.
	Profiled bool
}

// OptionsFromEvent converts a segmented event into play options.
func OptionsFromEvent(e sound.Event) Options {
	return Options{
		Volume:     e.Volume,
		PitchShift: e.PitchShift,
		Variation:  e.Variation,
		Intonation: e.Intonation,
		Note:       e.Note,
		Type:       e.Type,
		Channel:    e.Channel,
		Hold:       e.Hold,
		NoRandom:   e.NoRandom,
		Yelling:    e.Yelling,
		Profiled:   e.Profiled,
	}
}

// Config wires an Engine.
type Config struct {
	Catalog   *catalog.Catalog
	Backend   Backend
	Scheduler Scheduler
	Commands  CommandDispatcher
	Observer  Observer
	Logger    *slog.Logger
	Rand      *rand.Rand

	Volume    float64
	Mode      Mode
	SFX       bool
	Voice     sound.VoiceProfile
	Note      sound.NoteProfile
	RampShape float64
}

type instance struct {
	handle Handle
	path   string
	state  fsm.State
	ramp   *rampTask
}

// Engine is the playback context. All methods except SFXEnabled must run on
// the scheduler's goroutine.
type Engine struct {
	catalog  *catalog.Catalog
	backend  Backend
	sched    Scheduler
	commands CommandDispatcher
	observer Observer
	logger   *slog.Logger
	rand     *rand.Rand

	volume    float64
	mode      Mode
	voice     sound.VoiceProfile
	note      sound.NoteProfile
	rampShape float64
	sfx       atomic.Bool

	channels map[int]*instance
	holds    map[string]*instance
}

func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("playback: catalog is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("playback: backend is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("playback: scheduler is required")
	}

	e := &Engine{
		catalog:   cfg.Catalog,
		backend:   cfg.Backend,
		sched:     cfg.Scheduler,
		commands:  cfg.Commands,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		rand:      cfg.Rand,
		volume:    cfg.Volume,
		mode:      cfg.Mode,
		voice:     cfg.Voice,
		note:      cfg.Note,
		rampShape: cfg.RampShape,
		channels:  make(map[int]*instance),
		holds:     make(map[string]*instance),
	}
	if e.commands == nil {
		e.commands = CommandFunc(func(string) {})
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.voice.Type == "" {
		e.voice.Type = sound.DefaultVoiceType
	}
	if e.note.Instrument == "" {
		e.note.Instrument = sound.DefaultInstrument
	}
	e.sfx.Store(cfg.SFX)
	return e, nil
}

func (e *Engine) SetVolume(v float64)                  { e.volume = v }
func (e *Engine) SetMode(m Mode)                       { e.mode = m }
func (e *Engine) SetVoiceProfile(p sound.VoiceProfile) { e.voice = p }
func (e *Engine) SetNoteProfile(p sound.NoteProfile)   { e.note = p }
func (e *Engine) SetRampShape(shape float64)           { e.rampShape = shape }
func (e *Engine) SetSFX(enabled bool)                  { e.sfx.Store(enabled) }

func (e *Engine) Volume() float64                  { return e.volume }
func (e *Engine) Mode() Mode                       { return e.mode }
func (e *Engine) VoiceProfile() sound.VoiceProfile { return e.voice }
func (e *Engine) NoteProfile() sound.NoteProfile   { return e.note }

// SFXEnabled may be called from any goroutine.
func (e *Engine) SFXEnabled() bool { return e.sfx.Load() }

// Play is the best-effort entry point of the keystroke path: failures are
// logged and never returned.
func (e *Engine) Play(raw string, opts Options) {
	if _, err := e.Submit(raw, opts); err != nil {
		e.logger.Warn("sound dropped", "path", raw, "error", err.Error())
	}
}

// PlayEvent plays a segmented event.
func (e *Engine) PlayEvent(ev sound.Event) {
	e.Play(ev.Path, OptionsFromEvent(ev))
}

type request struct {
	volume     float64
	pitch      float64
	variation  float64
	intonation float64
	note       int
	channel    *int
}

// Submit runs the resolution pipeline for one request. Suppressed requests
// (empty path, occupied hold, commands) return a zero handle and no error.
func (e *Engine) Submit(raw string, opts Options) (Handle, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if opts.Hold != "" {
		if _, held := e.holds[opts.Hold]; held {
			e.observer.SoundDropped(DropHeld)
			return 0, nil
		}
	}

	if e.mode != ModeRandom {
		switch raw {
		case "&.gwah":
			e.Play(sound.Sfx("exclamation").String(), Options{})
		case "&.deska":
			e.Play(sound.Sfx("question").String(), Options{})
		}
	}

	path, err := sound.Parse(raw)
	if err != nil {
		e.observer.SoundDropped(DropMalformed)
		return 0, err
	}
	if path.Kind == sound.KindCommand {
		e.commands.Dispatch(path.Name)
		return 0, nil
	}

	trigger := path.Kind
	path = policyFor(e.mode, opts.NoRandom).substitute(path, e.rand)

	req := request{
		volume:     opts.Volume,
		pitch:      opts.PitchShift,
		variation:  opts.Variation,
		intonation: opts.Intonation,
		note:       opts.Note,
		channel:    opts.Channel,
	}
	if req.volume <= 0 {
		req.volume = 1
	}
	if req.note == 0 {
		req.note = sound.DefaultNote
	}

	voiceType := e.voice.VoiceType()
	if opts.Type != "" {
		voiceType = opts.Type
	}

	switch trigger {
	case sound.KindInstrument:
		if path.HasNote {
			req.note = path.Note
		}
		req.pitch += float64(e.note.Transpose)
	case sound.KindVoice:
		req.volume = voiceVolume
		if !opts.Profiled {
			req.pitch += e.voice.Pitch
			req.variation += e.voice.Variation
			req.intonation = e.voice.Intonation
		}
		if opts.Yelling {
			req.volume = yellingVolume
			req.pitch += yellingPitch
			req.variation += yellingVariance
		}
		if req.channel == nil {
			req.channel = sound.Channel(sound.VoiceChannel)
		}
	}

	ref, err := e.ref(path, voiceType)
	if err != nil {
		e.observer.SoundDropped(DropUnknown)
		return 0, err
	}
	entry, err := e.catalog.Lookup(ref)
	if err != nil {
		e.observer.SoundDropped(DropUnknown)
		return 0, err
	}

	inst := &instance{path: path.String(), state: fsm.StateIdle}
	inst.advance(e.logger, fsm.EventResolve)

	if req.channel != nil {
		e.cutoff(e.channels[*req.channel], CutoffFade)
	}

	semitones := float64(req.note-sound.DefaultNote) + req.pitch + (e.rand.Float64()*2-1)*req.variation
	rate := Rate(semitones)
	src := Source{Container: entry.Container, OffsetMs: entry.OffsetMs, DurationMs: entry.DurationMs}

	handle, err := e.backend.Start(src, e.volume*req.volume, rate)
	if err != nil {
		inst.advance(e.logger, fsm.EventDrop)
		e.observer.SoundDropped(DropAssetLoad)
		return 0, fmt.Errorf("%w: %s: %w", ErrAssetLoad, entry.Container, err)
	}
	inst.handle = handle
	inst.advance(e.logger, fsm.EventStart)

	if req.intonation != 0 {
		inst.ramp = startRamp(e.sched, rate, req.intonation, e.rampShape, func(r float64) bool {
			if !e.backend.Playing(handle) {
				return false
			}
			e.backend.SetRate(handle, r)
			return true
		})
	}

	if req.channel != nil {
		e.channels[*req.channel] = inst
	}
	if opts.Hold != "" {
		inst.advance(e.logger, fsm.EventHold)
		e.holds[opts.Hold] = inst
	}

	e.observer.SoundPlayed(ref.Bank.String())
	e.logger.Debug("sound started", "path", inst.path, "container", entry.Container, "rate", rate)
	return handle, nil
}

func (e *Engine) ref(path sound.Path, voiceType string) (catalog.Ref, error) {
	switch path.Kind {
	case sound.KindVoice:
		return catalog.Ref{Bank: catalog.BankVoice, Sub: voiceType, Key: path.Name}, nil
	case sound.KindSfx:
		return catalog.Ref{Bank: catalog.BankSfx, Key: path.Name}, nil
	case sound.KindInstrument:
		keys, err := e.catalog.InstrumentKeys(e.note.Instrument)
		if err != nil {
			return catalog.Ref{}, err
		}
		return catalog.Ref{Bank: catalog.BankInstrument, Sub: e.note.Instrument, Key: keys[e.rand.IntN(len(keys))]}, nil
	case sound.KindGeneric:
		return e.catalog.ResolveGeneric(path.Parts)
	default:
		return catalog.Ref{}, fmt.Errorf("%w: %q", sound.ErrMalformedPath, path.String())
	}
}

// Release frees a hold. With cut the held sound fades out quickly; without
// it the sound plays on. The hold id is free again either way.
func (e *Engine) Release(hold string, cut bool) {
	inst, ok := e.holds[hold]
	if !ok {
		return
	}
	delete(e.holds, hold)
	if cut {
		e.cutoff(inst, ReleaseFade)
		return
	}
	if inst.state == fsm.StateHeld {
		inst.advance(e.logger, fsm.EventRelease)
	}
}

// StopAll cuts every channel and hold occupant.
func (e *Engine) StopAll() {
	for id, inst := range e.channels {
		e.cutoff(inst, CutoffFade)
		delete(e.channels, id)
	}
	for id, inst := range e.holds {
		e.cutoff(inst, CutoffFade)
		delete(e.holds, id)
	}
}

// Occupant returns the handle currently owning channel, if it is audible.
func (e *Engine) Occupant(channel int) (Handle, bool) {
	inst, ok := e.channels[channel]
	if !ok || !fsm.Audible(inst.state) || !e.backend.Playing(inst.handle) {
		return 0, false
	}
	return inst.handle, true
}

// Held reports whether hold is occupied.
func (e *Engine) Held(hold string) bool {
	_, ok := e.holds[hold]
	return ok
}

func (e *Engine) cutoff(inst *instance, fade time.Duration) {
	if inst == nil || !fsm.Audible(inst.state) || inst.state == fsm.StateFading {
		return
	}
	inst.ramp.cancel()
	if !e.backend.Playing(inst.handle) {
		inst.advance(e.logger, fsm.EventFinish)
		return
	}

	e.backend.Fade(inst.handle, e.backend.Volume(inst.handle), 0, fade)
	inst.advance(e.logger, fsm.EventFade)
	e.sched.After(fade, func() {
		e.backend.Stop(inst.handle)
		inst.advance(e.logger, fsm.EventFinish)
	})
}

func (in *instance) advance(logger *slog.Logger, event fsm.Event) {
	next, err := fsm.Transition(in.state, event)
	if err != nil {
		logger.Debug("instance transition ignored", "path", in.path, "error", err.Error())
		return
	}
	in.state = next
}
