package segment

import (
	"strings"

	"github.com/rbright/animalese/internal/sound"
)

const defaultCharDurationMs = 90

var charDurationMs = map[rune]float64{
	'a': 120, 'e': 110, 'i': 100, 'o': 115, 'u': 105,
	'b': 80, 'c': 85, 'd': 85, 'f': 80, 'g': 80,
	'h': 90, 'j': 75, 'k': 80, 'l': 85, 'm': 85,
	'n': 85, 'p': 80, 'q': 80, 'r': 90, 's': 85,
	't': 85, 'v': 80, 'w': 100, 'x': 85, 'y': 100, 'z': 85,
}

// vowels sit slightly higher than consonants
var charPitchBias = map[rune]float64{
	'a': 0.5, 'e': 0.3, 'i': 0.8, 'o': 0.4, 'u': 0.6,
	'b': -0.2, 'f': -0.1, 'g': -0.1, 'h': 0.1, 'j': 0.2,
	'l': 0.1, 'm': -0.1, 'p': -0.2, 'r': 0.2, 'w': 0.3, 'y': 0.4,
}

type symbolSound struct {
	name       string
	durationMs float64
}

var symbolSounds = map[rune]symbolSound{
	' ':  {name: "space", durationMs: 150},
	'!':  {name: "exclamation", durationMs: 200},
	'?':  {name: "question", durationMs: 200},
	'.':  {name: "period", durationMs: 200},
	',':  {name: "comma", durationMs: 150},
	'\n': {name: "enter", durationMs: 250},
}

// CharDurationMs returns the nominal duration of a letter or digit.
func CharDurationMs(r rune) float64 {
	if d, ok := charDurationMs[r]; ok {
		return d
	}
	return defaultCharDurationMs
}

// CharPitchBias returns the fixed semitone bias of a letter.
func CharPitchBias(r rune) float64 {
	return charPitchBias[r]
}

// Segmenter converts text into sound events. It holds no state across calls
// besides the SFX flag it reads.
type Segmenter struct {
	sfxEnabled func() bool
}

// New returns a segmenter reading the SFX flag from sfxEnabled. A nil func
// means SFX are always enabled.
func New(sfxEnabled func() bool) *Segmenter {
	if sfxEnabled == nil {
		sfxEnabled = func() bool { return true }
	}
	return &Segmenter{sfxEnabled: sfxEnabled}
}

// TextToSoundEvents segments text and resolves every unit to an event.
func (s *Segmenter) TextToSoundEvents(text string, profile sound.VoiceProfile) []sound.Event {
	var events []sound.Event
	for _, run := range Segment(text) {
		// Other runs have no sound; space classifies as Symbol.
		switch run.Category {
		case Scripted:
			events = append(events, s.letters(Romanize(run.Text), profile)...)
		case Latin:
			events = append(events, s.letters(strings.ToLower(run.Text), profile)...)
		case Digit:
			events = append(events, s.digits(run.Text, profile)...)
		case Symbol:
			events = append(events, s.symbols(run.Text, profile)...)
		}
	}
	return events
}

func (s *Segmenter) letters(text string, profile sound.VoiceProfile) []sound.Event {
	out := make([]sound.Event, 0, len(text))
	for _, r := range text {
		if r < 'a' || r > 'z' {
			continue
		}
		e := baseEvent(profile, sound.Voice(string(r)).String(), CharDurationMs(r))
		e.PitchShift += CharPitchBias(r)
		out = append(out, e)
	}
	return out
}

func (s *Segmenter) digits(text string, profile sound.VoiceProfile) []sound.Event {
	out := make([]sound.Event, 0, len(text))
	for _, r := range text {
		out = append(out, baseEvent(profile, sound.Voice(string(r)).String(), CharDurationMs(r)))
	}
	return out
}

func (s *Segmenter) symbols(text string, profile sound.VoiceProfile) []sound.Event {
	if !s.sfxEnabled() {
		return nil
	}
	var out []sound.Event
	for _, r := range text {
		sym, ok := symbolSounds[r]
		if !ok {
			continue
		}
		out = append(out, baseEvent(profile, sound.Sfx(sym.name).String(), sym.durationMs))
	}
	return out
}

func baseEvent(profile sound.VoiceProfile, path string, durationMs float64) sound.Event {
	volume := profile.Volume
	if volume <= 0 {
		volume = sound.DefaultVolume
	}
	return sound.Event{
		Path:       path,
		DurationMs: durationMs,
		Volume:     volume,
		PitchShift: profile.Pitch,
		Variation:  profile.Variation,
		Intonation: profile.Intonation,
		Note:       sound.DefaultNote,
		Type:       profile.VoiceType(),
		Channel:    sound.Channel(sound.VoiceChannel),
		Profiled:   true,
	}
}

// AdjustToDuration scales every nominal duration so the sequence spans
// targetMs. A sequence without duration is returned unchanged.
func AdjustToDuration(events []sound.Event, targetMs float64) []sound.Event {
	current := sound.TotalDurationMs(events)
	if current <= 0 || targetMs <= 0 {
		return events
	}
	ratio := targetMs / current
	out := make([]sound.Event, len(events))
	for i, e := range events {
		e.DurationMs *= ratio
		out[i] = e
	}
	return out
}
