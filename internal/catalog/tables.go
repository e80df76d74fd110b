package catalog

var (
	VoiceTypes         = []string{"f1", "f2", "f3", "f4", "m1", "m2", "m3", "m4"}
	SingingInstruments = []string{"girl", "boy", "cranky", "kk_slider"}
	PlainInstruments   = []string{"organ", "guitar", "e_piano", "synth", "whistle"}
)

const (
	// letters and digits sit on a 200ms grid (eighth notes at 150bpm)
	voiceGridMs = 200
	// phrases and sfx sit on a 600ms grid (100bpm)
	phraseGridMs = 600
	singGridMs   = 2000

	defaultInstrumentSpriteMs = 1000
)

const (
	letters = "abcdefghijklmnopqrstuvwxyz"
	digits  = "1234567890"
)

var (
	phrases  = []string{"ok", "gwah", "deska"}
	singKeys = []string{"nah", "me", "now", "way", "oh", "oh2", "me2"}
	sfxNames = []string{
		"backspace", "enter", "tab", "question", "exclamation", "space", "period", "comma",
		"at", "pound", "dollar", "caret", "ampersand", "asterisk",
		"parenthesis_open", "parenthesis_closed", "bracket_open", "bracket_closed",
		"brace_open", "brace_closed", "tilde", "default",
		"arrow_left", "arrow_up", "arrow_right", "arrow_down",
		"slash_forward", "slash_back", "percent",
	}
)

func voiceSprites() []sprite {
	out := make([]sprite, 0, len(letters)+len(digits)+len(phrases))
	i := 0
	for _, r := range letters + digits {
		out = append(out, sprite{key: string(r), offsetMs: float64(voiceGridMs * i), durationMs: voiceGridMs})
		i++
	}
	base := voiceGridMs * i
	for k, key := range phrases {
		out = append(out, sprite{key: key, offsetMs: float64(phraseGridMs*k + base), durationMs: phraseGridMs})
	}
	return out
}

func singSprites() []sprite {
	out := make([]sprite, 0, len(singKeys))
	for i, key := range singKeys {
		out = append(out, sprite{key: key, offsetMs: float64(singGridMs * i), durationMs: singGridMs})
	}
	return out
}

func sfxSprites() []sprite {
	out := make([]sprite, 0, len(sfxNames))
	for i, key := range sfxNames {
		out = append(out, sprite{key: key, offsetMs: float64(phraseGridMs * i), durationMs: phraseGridMs})
	}
	return out
}

// VoiceLetters returns the letter sprites eligible for random substitution.
func VoiceLetters() []string {
	out := make([]string, 0, len(letters))
	for _, r := range letters {
		out = append(out, string(r))
	}
	return out
}

// SfxNames returns every SFX sprite name in table order.
func SfxNames() []string {
	return append([]string(nil), sfxNames...)
}
