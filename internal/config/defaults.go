package config

import (
	"github.com/rbright/animalese/internal/keystroke"
	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/render"
	"github.com/rbright/animalese/internal/sound"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Assets: AssetsConfig{Extension: ".ogg"},
		Playback: PlaybackConfig{
			Volume:          0.5,
			Mode:            playback.ModeNormal.String(),
			SFX:             true,
			Device:          "default",
			Fallback:        "default",
			LatencyMS:       30,
			RampShape:       playback.DefaultRampShape,
			PreloadParallel: 4,
		},
		Voice: VoiceConfig{Type: sound.DefaultVoiceType},
		Note:  NoteConfig{Instrument: sound.DefaultInstrument},
		Render: RenderConfig{
			Quality:     render.DefaultPreset,
			MaxParallel: int(render.DefaultMaxParallel),
			TimeoutMS:   60000,
		},
		Listener: ListenerConfig{
			Command: CommandConfig{Raw: keystroke.StdinCommand, Argv: []string{keystroke.StdinCommand}},
			Keymap:  map[int]keystroke.Override{},
		},
		History: HistoryConfig{Enable: true, Keep: 500},
		Log:     LogConfig{Level: "info"},
	}
}
