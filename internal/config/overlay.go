package config

import (
	"fmt"
	"strings"

	"github.com/rbright/animalese/internal/keystroke"
)

// fileConfig is the on-disk shape shared by the JSONC and YAML readers.
// Pointer fields distinguish "absent" from zero values.
type fileConfig struct {
	Assets   *fileAssets   `json:"assets" yaml:"assets"`
	Playback *filePlayback `json:"playback" yaml:"playback"`
	Voice    *fileVoice    `json:"voice" yaml:"voice"`
	Note     *fileNote     `json:"note" yaml:"note"`
	Render   *fileRender   `json:"render" yaml:"render"`
	Listener *fileListener `json:"listener" yaml:"listener"`
	History  *fileHistory  `json:"history" yaml:"history"`
	Metrics  *fileEndpoint `json:"metrics" yaml:"metrics"`
	Health   *fileEndpoint `json:"health" yaml:"health"`
	Log      *fileLog      `json:"log" yaml:"log"`
}

type fileAssets struct {
	Root      *string `json:"root" yaml:"root"`
	Extension *string `json:"extension" yaml:"extension"`
}

type filePlayback struct {
	Volume          *float64 `json:"volume" yaml:"volume"`
	Mode            *string  `json:"mode" yaml:"mode"`
	SFX             *bool    `json:"sfx" yaml:"sfx"`
	HoldRepeat      *bool    `json:"hold_repeat" yaml:"hold_repeat"`
	Device          *string  `json:"device" yaml:"device"`
	Fallback        *string  `json:"fallback" yaml:"fallback"`
	LatencyMS       *int     `json:"latency_ms" yaml:"latency_ms"`
	RampShape       *float64 `json:"ramp_shape" yaml:"ramp_shape"`
	PreloadParallel *int     `json:"preload_parallel" yaml:"preload_parallel"`
}

type fileVoice struct {
	Type       *string  `json:"type" yaml:"type"`
	Pitch      *float64 `json:"pitch" yaml:"pitch"`
	Variation  *float64 `json:"variation" yaml:"variation"`
	Intonation *float64 `json:"intonation" yaml:"intonation"`
}

type fileNote struct {
	Instrument *string `json:"instrument" yaml:"instrument"`
	Transpose  *int    `json:"transpose" yaml:"transpose"`
}

type fileRender struct {
	FFmpeg      *string `json:"ffmpeg" yaml:"ffmpeg"`
	BundledDir  *string `json:"bundled_dir" yaml:"bundled_dir"`
	Quality     *string `json:"quality" yaml:"quality"`
	MaxParallel *int    `json:"max_parallel" yaml:"max_parallel"`
	TimeoutMS   *int    `json:"timeout_ms" yaml:"timeout_ms"`
	ExtraArgs   *string `json:"extra_args" yaml:"extra_args"`
}

type fileListener struct {
	Command *string                       `json:"command" yaml:"command"`
	Keymap  map[string]keystroke.Override `json:"keymap" yaml:"keymap"`
}

type fileHistory struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Path   *string `json:"path" yaml:"path"`
	Keep   *int    `json:"keep" yaml:"keep"`
}

type fileEndpoint struct {
	Listen *string `json:"listen" yaml:"listen"`
}

type fileLog struct {
	Level *string `json:"level" yaml:"level"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if a := payload.Assets; a != nil {
		setString(&cfg.Assets.Root, a.Root)
		setString(&cfg.Assets.Extension, a.Extension)
	}

	if p := payload.Playback; p != nil {
		set(&cfg.Playback.Volume, p.Volume)
		setString(&cfg.Playback.Mode, p.Mode)
		set(&cfg.Playback.SFX, p.SFX)
		set(&cfg.Playback.HoldRepeat, p.HoldRepeat)
		setString(&cfg.Playback.Device, p.Device)
		setString(&cfg.Playback.Fallback, p.Fallback)
		set(&cfg.Playback.LatencyMS, p.LatencyMS)
		set(&cfg.Playback.RampShape, p.RampShape)
		set(&cfg.Playback.PreloadParallel, p.PreloadParallel)
	}

	if v := payload.Voice; v != nil {
		setString(&cfg.Voice.Type, v.Type)
		set(&cfg.Voice.Pitch, v.Pitch)
		set(&cfg.Voice.Variation, v.Variation)
		set(&cfg.Voice.Intonation, v.Intonation)
	}

	if n := payload.Note; n != nil {
		setString(&cfg.Note.Instrument, n.Instrument)
		set(&cfg.Note.Transpose, n.Transpose)
	}

	if r := payload.Render; r != nil {
		setString(&cfg.Render.FFmpeg, r.FFmpeg)
		setString(&cfg.Render.BundledDir, r.BundledDir)
		setString(&cfg.Render.Quality, r.Quality)
		set(&cfg.Render.MaxParallel, r.MaxParallel)
		set(&cfg.Render.TimeoutMS, r.TimeoutMS)
		if r.ExtraArgs != nil {
			cmd, err := parseCommand("render.extra_args", *r.ExtraArgs)
			if err != nil {
				return nil, err
			}
			cfg.Render.ExtraArgs = cmd
		}
	}

	if l := payload.Listener; l != nil {
		if l.Command != nil {
			cmd, err := parseCommand("listener.command", *l.Command)
			if err != nil {
				return nil, err
			}
			cfg.Listener.Command = cmd
		}
		if l.Keymap != nil {
			overrides, err := keystroke.ParseOverrides(l.Keymap)
			if err != nil {
				return nil, fmt.Errorf("listener.keymap: %w", err)
			}
			merged := make(map[int]keystroke.Override, len(cfg.Listener.Keymap)+len(overrides))
			for code, o := range cfg.Listener.Keymap {
				merged[code] = o
			}
			for code, o := range overrides {
				merged[code] = o
			}
			cfg.Listener.Keymap = merged
		}
	}

	if h := payload.History; h != nil {
		set(&cfg.History.Enable, h.Enable)
		setString(&cfg.History.Path, h.Path)
		set(&cfg.History.Keep, h.Keep)
	}

	if m := payload.Metrics; m != nil {
		setString(&cfg.Metrics.Listen, m.Listen)
	}
	if h := payload.Health; h != nil {
		setString(&cfg.Health.Listen, h.Listen)
	}
	if l := payload.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
	}

	return warnings, nil
}

// materialize overlays payload on base and validates the result.
func (payload fileConfig) materialize(base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validatedWarnings...), nil
}
