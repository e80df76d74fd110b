// Package config resolves, parses, validates, and defaults animalese
// configuration.
package config

import "github.com/rbright/animalese/internal/keystroke"

// Config is the fully materialized runtime configuration.
type Config struct {
	Assets   AssetsConfig
	Playback PlaybackConfig
	Voice    VoiceConfig
	Note     NoteConfig
	Render   RenderConfig
	Listener ListenerConfig
	History  HistoryConfig
	Metrics  EndpointConfig
	Health   EndpointConfig
	Log      LogConfig
}

// AssetsConfig locates the sprite containers. An empty Root means the XDG
// data directory.
type AssetsConfig struct {
	Root      string
	Extension string
}

type PlaybackConfig struct {
	Volume     float64
	Mode       string
	SFX        bool
	HoldRepeat bool

	// Device and Fallback name PulseAudio sinks; "default" follows the
	// server default.
	Device    string
	Fallback  string
	LatencyMS int

	RampShape       float64
	PreloadParallel int
}

type VoiceConfig struct {
	Type       string
	Pitch      float64
	Variation  float64
	Intonation float64
}

type NoteConfig struct {
	Instrument string
	Transpose  int
}

// RenderConfig controls the offline ffmpeg renderer.
type RenderConfig struct {
	FFmpeg      string
	BundledDir  string
	Quality     string
	MaxParallel int
	TimeoutMS   int
	ExtraArgs   CommandConfig
}

// ListenerConfig names the key listener process and keymap overrides.
type ListenerConfig struct {
	Command CommandConfig
	Keymap  map[int]keystroke.Override
}

// HistoryConfig controls the render history database. An empty Path means
// the XDG state directory.
type HistoryConfig struct {
	Enable bool
	Path   string
	Keep   int
}

// EndpointConfig is an optional TCP listen address; empty disables it.
type EndpointConfig struct {
	Listen string
}

type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
