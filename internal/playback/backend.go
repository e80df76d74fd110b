package playback

import "time"

// Handle identifies one playing voice inside a Backend.
type Handle uint64

// Source is the sprite window a backend plays. DurationMs == 0 plays to the
// end of the container.
type Source struct {
	Container  string
	OffsetMs   float64
	DurationMs float64
}

// Backend mixes sprite voices. Operations on unknown or finished handles are
// no-ops.
type Backend interface {
	Start(src Source, volume, rate float64) (Handle, error)
	SetRate(h Handle, rate float64)
	Volume(h Handle) float64
	Fade(h Handle, from, to float64, d time.Duration)
	Stop(h Handle)
	Playing(h Handle) bool
}

// CommandDispatcher receives `#command` paths.
type CommandDispatcher interface {
	Dispatch(command string)
}

// CommandFunc adapts a function to CommandDispatcher.
type CommandFunc func(command string)

func (f CommandFunc) Dispatch(command string) { f(command) }

// Observer is told about every played and dropped sound.
type Observer interface {
	SoundPlayed(bank string)
	SoundDropped(reason string)
}

type nopObserver struct{}

func (nopObserver) SoundPlayed(string)  {}
func (nopObserver) SoundDropped(string) {}
