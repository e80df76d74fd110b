package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownQuality = errors.New("unknown quality preset")

// Preset fixes the output format of one render.
type Preset struct {
	Name       string
	SampleRate int
	BitDepth   int
	Channels   int
}

var presets = map[string]Preset{
	"low":      {Name: "low", SampleRate: 22050, BitDepth: 8, Channels: 1},
	"standard": {Name: "standard", SampleRate: 44100, BitDepth: 16, Channels: 1},
	"high":     {Name: "high", SampleRate: 48000, BitDepth: 24, Channels: 1},
}

// DefaultPreset is used when no quality is configured.
const DefaultPreset = "standard"

// ParsePreset resolves a preset name; empty means DefaultPreset.
func ParsePreset(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w %q (want one of %s)", ErrUnknownQuality, name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames lists the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Codec returns the PCM codec matching the preset bit depth.
func (p Preset) Codec() string {
	switch p.BitDepth {
	case 8:
		return "pcm_u8"
	case 24:
		return "pcm_s24le"
	case 32:
		return "pcm_s32le"
	default:
		return "pcm_s16le"
	}
}
