package keystroke

import (
	"sort"
	"strconv"
)

// CapsLockKeycode is the X11 keycode of Caps Lock.
const CapsLockKeycode = 66

// Binding is the sound set of one physical key.
type Binding struct {
	Key        string
	Sound      string
	ShiftSound string
	CtrlSound  string
	AltSound   string
}

// SoundFor picks the sound for the held modifiers. Ctrl wins over alt, alt
// over shift.
func (b Binding) SoundFor(shift, ctrl, alt bool) string {
	switch {
	case ctrl:
		return b.CtrlSound
	case alt:
		return b.AltSound
	case shift:
		return b.ShiftSound
	default:
		return b.Sound
	}
}

// Override replaces parts of a default binding. A nil field keeps the
// default; a pointer to "" silences that combination.
type Override struct {
	Sound      *string `json:"sound,omitempty" yaml:"sound,omitempty"`
	ShiftSound *string `json:"shift_sound,omitempty" yaml:"shift_sound,omitempty"`
	CtrlSound  *string `json:"ctrl_sound,omitempty" yaml:"ctrl_sound,omitempty"`
	AltSound   *string `json:"alt_sound,omitempty" yaml:"alt_sound,omitempty"`
}

// Keymap maps keycodes to bindings.
type Keymap map[int]Binding

// Merge overlays overrides onto k and returns the result as a new map.
// Keycodes absent from k are returned as ignored, sorted.
func (k Keymap) Merge(overrides map[int]Override) (Keymap, []int) {
	out := make(Keymap, len(k))
	for code, b := range k {
		out[code] = b
	}

	var ignored []int
	for code, o := range overrides {
		b, ok := out[code]
		if !ok {
			ignored = append(ignored, code)
			continue
		}
		if o.Sound != nil {
			b.Sound = *o.Sound
		}
		if o.ShiftSound != nil {
			b.ShiftSound = *o.ShiftSound
		}
		if o.CtrlSound != nil {
			b.CtrlSound = *o.CtrlSound
		}
		if o.AltSound != nil {
			b.AltSound = *o.AltSound
		}
		out[code] = b
	}
	sort.Ints(ignored)
	return out, ignored
}

// ParseOverrides converts string-keyed config overrides into keycodes.
func ParseOverrides(raw map[string]Override) (map[int]Override, error) {
	out := make(map[int]Override, len(raw))
	for key, o := range raw {
		code, err := strconv.Atoi(key)
		if err != nil || code < 0 {
			return nil, &KeycodeError{Key: key}
		}
		out[code] = o
	}
	return out, nil
}

// KeycodeError is a keymap entry whose key is not a keycode.
type KeycodeError struct {
	Key string
}

func (e *KeycodeError) Error() string {
	return "keymap key " + strconv.Quote(e.Key) + " is not a keycode"
}

func same(key, sound string) Binding {
	return Binding{Key: key, Sound: sound, ShiftSound: sound, CtrlSound: sound, AltSound: sound}
}

func shifted(key, sound, shiftSound string) Binding {
	b := same(key, sound)
	b.ShiftSound = shiftSound
	return b
}

// DefaultKeymap is the X11 layout: letters and digits speak, punctuation
// and navigation keys play effects.
func DefaultKeymap() Keymap {
	k := make(Keymap, 64)

	rows := []struct {
		first int
		keys  string
	}{
		{24, "qwertyuiop"},
		{38, "asdfghjkl"},
		{52, "zxcvbnm"},
	}
	for _, row := range rows {
		for i, r := range row.keys {
			key := string(r)
			k[row.first+i] = same(key, "&."+key)
		}
	}

	digitShift := []string{
		"exclamation", "at", "pound", "dollar", "percent",
		"caret", "ampersand", "asterisk", "parenthesis_open", "parenthesis_closed",
	}
	for i, r := range "1234567890" {
		key := string(r)
		k[10+i] = shifted(key, "&."+key, "sfx."+digitShift[i])
	}

	k[65] = same("space", "sfx.space")
	k[36] = same("Return", "sfx.enter")
	k[22] = same("BackSpace", "sfx.backspace")
	k[23] = same("Tab", "sfx.tab")
	k[59] = same("comma", "sfx.comma")
	k[60] = same("period", "sfx.period")
	k[61] = shifted("slash", "sfx.slash_forward", "sfx.question")
	k[34] = shifted("bracketleft", "sfx.bracket_open", "sfx.brace_open")
	k[35] = shifted("bracketright", "sfx.bracket_closed", "sfx.brace_closed")
	k[49] = shifted("grave", "sfx.default", "sfx.tilde")
	k[51] = same("backslash", "sfx.slash_back")
	k[113] = same("Left", "sfx.arrow_left")
	k[111] = same("Up", "sfx.arrow_up")
	k[114] = same("Right", "sfx.arrow_right")
	k[116] = same("Down", "sfx.arrow_down")
	k[9] = same("Escape", "#no_sound")
	k[CapsLockKeycode] = same("Caps_Lock", "#no_sound")
	return k
}
