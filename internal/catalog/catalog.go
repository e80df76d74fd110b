// Package catalog holds the sprite tables that map symbolic sprite keys to
// windows inside the packed audio containers.
package catalog

import (
	"errors"
	"fmt"
	"path"
	"sort"
)

var ErrUnknownSprite = errors.New("unknown sprite")

// Bank identifies which family of containers a sprite lives in.
type Bank int

const (
	BankVoice Bank = iota + 1
	BankInstrument
	BankSfx
	BankGeneric
)

func (b Bank) String() string {
	switch b {
	case BankVoice:
		return "voice"
	case BankInstrument:
		return "instrument"
	case BankSfx:
		return "sfx"
	case BankGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Ref addresses one sprite: Sub is the voice type or instrument name.
type Ref struct {
	Bank Bank
	Sub  string
	Key  string
}

func (r Ref) String() string {
	if r.Sub == "" {
		return fmt.Sprintf("%s/%s", r.Bank, r.Key)
	}
	return fmt.Sprintf("%s/%s/%s", r.Bank, r.Sub, r.Key)
}

// Entry is a sprite window inside a container. Container is relative to the
// asset root. A zero DurationMs plays the container to its end.
type Entry struct {
	Container  string
	OffsetMs   float64
	DurationMs float64
}

// EndMs returns the end of the sprite window.
func (e Entry) EndMs() float64 { return e.OffsetMs + e.DurationMs }

type sprite struct {
	key        string
	offsetMs   float64
	durationMs float64
}

type table struct {
	container string
	keys      []string
	sprites   map[string]sprite
}

func newTable(container string, sprites []sprite) *table {
	t := &table{container: container, sprites: make(map[string]sprite, len(sprites))}
	for _, s := range sprites {
		t.keys = append(t.keys, s.key)
		t.sprites[s.key] = s
	}
	return t
}

func (t *table) lookup(key string) (Entry, bool) {
	s, ok := t.sprites[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{Container: t.container, OffsetMs: s.offsetMs, DurationMs: s.durationMs}, true
}

// Options configures container naming.
type Options struct {
	// Extension is appended to every container name, e.g. ".ogg".
	Extension string
}

// Catalog is immutable after New and safe for concurrent use.
type Catalog struct {
	ext         string
	voices      map[string]*table
	instruments map[string]*table
	sfx         *table
}

// New builds every bank eagerly, including the default sprite of instruments
// that declare no sprite map.
func New(opts Options) *Catalog {
	ext := opts.Extension
	if ext == "" {
		ext = ".ogg"
	}

	c := &Catalog{
		ext:         ext,
		voices:      make(map[string]*table, len(VoiceTypes)),
		instruments: make(map[string]*table, len(SingingInstruments)+len(PlainInstruments)),
	}

	voice := voiceSprites()
	for _, voiceType := range VoiceTypes {
		c.voices[voiceType] = newTable(path.Join("voice", voiceType+ext), voice)
	}

	sing := singSprites()
	for _, name := range SingingInstruments {
		c.instruments[name] = newTable(path.Join("instrument", name+ext), sing)
	}
	for _, name := range PlainInstruments {
		c.instruments[name] = newTable(path.Join("instrument", name+ext), []sprite{
			{key: name, offsetMs: 0, durationMs: defaultInstrumentSpriteMs},
		})
	}

	c.sfx = newTable("sfx"+ext, sfxSprites())
	return c
}

// Lookup resolves a sprite reference.
func (c *Catalog) Lookup(ref Ref) (Entry, error) {
	var t *table
	switch ref.Bank {
	case BankVoice:
		t = c.voices[ref.Sub]
	case BankInstrument:
		t = c.instruments[ref.Sub]
	case BankSfx:
		t = c.sfx
	case BankGeneric:
		if ref.Key == "" {
			return Entry{}, fmt.Errorf("%w: %s", ErrUnknownSprite, ref)
		}
		return Entry{Container: ref.Key + c.ext}, nil
	}
	if t == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownSprite, ref)
	}
	entry, ok := t.lookup(ref.Key)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownSprite, ref)
	}
	return entry, nil
}

// ResolveGeneric maps the components of a generic path onto a bank:
// one component names a whole container, two address `<voice type>.<key>`
// or `sfx.<key>`, three address `inst.<instrument>.<key>`.
func (c *Catalog) ResolveGeneric(parts []string) (Ref, error) {
	switch len(parts) {
	case 1:
		return Ref{Bank: BankGeneric, Key: parts[0]}, nil
	case 2:
		if parts[0] == "sfx" {
			return Ref{Bank: BankSfx, Key: parts[1]}, nil
		}
		if _, ok := c.voices[parts[0]]; ok {
			return Ref{Bank: BankVoice, Sub: parts[0], Key: parts[1]}, nil
		}
	case 3:
		if parts[0] == "inst" {
			return Ref{Bank: BankInstrument, Sub: parts[1], Key: parts[2]}, nil
		}
	}
	return Ref{}, fmt.Errorf("%w: bank %q", ErrUnknownSprite, parts[0])
}

// InstrumentKeys returns the sorted sprite keys of an instrument bank.
func (c *Catalog) InstrumentKeys(name string) ([]string, error) {
	t, ok := c.instruments[name]
	if !ok {
		return nil, fmt.Errorf("%w: instrument %q", ErrUnknownSprite, name)
	}
	keys := append([]string(nil), t.keys...)
	sort.Strings(keys)
	return keys, nil
}

// HasVoiceType reports whether a voice container exists for voiceType.
func (c *Catalog) HasVoiceType(voiceType string) bool {
	_, ok := c.voices[voiceType]
	return ok
}

// HasInstrument reports whether name is a known instrument bank.
func (c *Catalog) HasInstrument(name string) bool {
	_, ok := c.instruments[name]
	return ok
}

// Containers lists every container path, sorted.
func (c *Catalog) Containers() []string {
	out := make([]string, 0, len(c.voices)+len(c.instruments)+1)
	for _, t := range c.voices {
		out = append(out, t.container)
	}
	for _, t := range c.instruments {
		out = append(out, t.container)
	}
	out = append(out, c.sfx.container)
	sort.Strings(out)
	return out
}
