package sound

const (
	// DefaultNote is the neutral instrument note; rates are relative to it.
	DefaultNote = 60

	// VoiceChannel is the channel voice sounds use unless overridden.
	VoiceChannel = 1

	DefaultVoiceType  = "f1"
	DefaultInstrument = "girl"
	DefaultVolume     = 0.65
)

// Event is one request to play a sprite.
type Event struct {
	Path       string
	DurationMs float64
	Volume     float64
	PitchShift float64
	Variation  float64
	Intonation float64
	Note       int
	Type       string
	Channel    *int
	Hold       string
	NoRandom   bool
	Yelling    bool

	// Profiled is set when PitchShift, Variation and Intonation already
	// include the voice profile.
	Profiled bool
}

// VoiceProfile holds the voice defaults merged into voice events.
type VoiceProfile struct {
	Type       string  `json:"type" yaml:"type"`
	Pitch      float64 `json:"pitch" yaml:"pitch"`
	Variation  float64 `json:"variation" yaml:"variation"`
	Intonation float64 `json:"intonation" yaml:"intonation"`

	// Volume overrides the segmenter's default event volume when > 0.
	Volume float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// NoteProfile selects the instrument and transpose for instrument sounds.
type NoteProfile struct {
	Instrument string `json:"instrument" yaml:"instrument"`
	Transpose  int    `json:"transpose" yaml:"transpose"`
}

// DefaultVoiceProfile returns the neutral f1 voice.
func DefaultVoiceProfile() VoiceProfile {
	return VoiceProfile{Type: DefaultVoiceType}
}

// DefaultNoteProfile returns the untransposed default instrument.
func DefaultNoteProfile() NoteProfile {
	return NoteProfile{Instrument: DefaultInstrument}
}

// VoiceType returns the profile type, falling back to f1.
func (p VoiceProfile) VoiceType() string {
	if p.Type == "" {
		return DefaultVoiceType
	}
	return p.Type
}

// Channel returns a pointer to a channel id for Event.Channel.
func Channel(id int) *int { return &id }

// TotalDurationMs sums the nominal durations of events.
func TotalDurationMs(events []Event) float64 {
	total := 0.0
	for _, e := range events {
		total += e.DurationMs
	}
	return total
}
