// Package sound defines the sound-path mini-language and the event and
// profile types shared by segmentation, playback, and rendering.
package sound

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyPath     = errors.New("empty sound path")
	ErrMalformedPath = errors.New("malformed sound path")
)

// Kind tags the variant held by a Path.
type Kind int

const (
	KindCommand Kind = iota + 1
	KindVoice
	KindInstrument
	KindSfx
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindVoice:
		return "voice"
	case KindInstrument:
		return "instrument"
	case KindSfx:
		return "sfx"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

const (
	commandPrefix    = "#"
	voicePrefix      = "&"
	instrumentPrefix = "%"
	sfxBank          = "sfx"
	delimiter        = "."
	maxComponents    = 3
)

// Path is a parsed sound path. Only the fields relevant to Kind are set.
type Path struct {
	Kind Kind

	// Name is the command (including its leading '#'), voice sprite key, or
	// SFX sprite name.
	Name string

	// Note is the instrument note; HasNote is false when the path carried no
	// numeric suffix and the caller's note should be used.
	Note    int
	HasNote bool

	// Parts holds the 1..3 components of a generic path.
	Parts []string
}

// Command returns a command path.
func Command(name string) Path {
	if !strings.HasPrefix(name, commandPrefix) {
		name = commandPrefix + name
	}
	return Path{Kind: KindCommand, Name: name}
}

// Voice returns a voice path for the given sprite key.
func Voice(key string) Path { return Path{Kind: KindVoice, Name: key} }

// Instrument returns an instrument path for an explicit note.
func Instrument(note int) Path { return Path{Kind: KindInstrument, Note: note, HasNote: true} }

// Sfx returns an SFX path for the given sprite name.
func Sfx(name string) Path { return Path{Kind: KindSfx, Name: name} }

// Generic returns a generic bank path.
func Generic(parts ...string) Path {
	return Path{Kind: KindGeneric, Parts: append([]string(nil), parts...)}
}

// Parse converts a raw path string into its tagged form.
//
// Accepted shapes are `#cmd`, `&.<key>`, `%.<note>`, `sfx.<name>`, and
// `<bank>[.<sub>].<sprite>`.
func Parse(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}, ErrEmptyPath
	}
	if strings.HasPrefix(raw, commandPrefix) {
		return Path{Kind: KindCommand, Name: raw}, nil
	}

	parts := strings.Split(raw, delimiter)
	if len(parts) > maxComponents {
		return Path{}, fmt.Errorf("%w: %q has %d components", ErrMalformedPath, raw, len(parts))
	}

	switch {
	case parts[0] == voicePrefix:
		if len(parts) < 2 {
			return Path{}, fmt.Errorf("%w: %q has no voice sprite", ErrMalformedPath, raw)
		}
		return Voice(strings.Join(parts[1:], delimiter)), nil
	case parts[0] == instrumentPrefix:
		p := Path{Kind: KindInstrument}
		if len(parts) >= 2 {
			if note, err := strconv.Atoi(parts[1]); err == nil {
				p.Note = note
				p.HasNote = true
			}
		}
		return p, nil
	case parts[0] == sfxBank && len(parts) == 2:
		return Sfx(parts[1]), nil
	default:
		return Generic(parts...), nil
	}
}

// String renders the path back into its textual form.
func (p Path) String() string {
	switch p.Kind {
	case KindCommand:
		return p.Name
	case KindVoice:
		return voicePrefix + delimiter + p.Name
	case KindInstrument:
		if !p.HasNote {
			return instrumentPrefix
		}
		return instrumentPrefix + delimiter + strconv.Itoa(p.Note)
	case KindSfx:
		return sfxBank + delimiter + p.Name
	case KindGeneric:
		return strings.Join(p.Parts, delimiter)
	default:
		return ""
	}
}
