package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseYAMLConfig(t *testing.T) {
	input := `
# animalese
playback:
  volume: 0.3
  mode: voice_only
  sfx: false
voice:
  type: f3
  variation: 0.4
render:
  quality: low
  max_parallel: 2
listener:
  command: "-"
  keymap:
    "66":
      sound: "#disable_toggle"
history:
  enable: false
health:
  listen: 127.0.0.1:7070
`
	cfg, warnings, err := Parse(input, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 0.3, cfg.Playback.Volume)
	require.Equal(t, "voice_only", cfg.Playback.Mode)
	require.False(t, cfg.Playback.SFX)
	require.Equal(t, "f3", cfg.Voice.Type)
	require.Equal(t, 0.4, cfg.Voice.Variation)
	require.Equal(t, "low", cfg.Render.Quality)
	require.Equal(t, 2, cfg.Render.MaxParallel)
	require.Equal(t, []string{"-"}, cfg.Listener.Command.Argv)
	require.Equal(t, "#disable_toggle", *cfg.Listener.Keymap[66].Sound)
	require.False(t, cfg.History.Enable)
	require.Equal(t, "127.0.0.1:7070", cfg.Health.Listen)
}

func TestParseYAMLUnknownKeyFails(t *testing.T) {
	_, _, err := Parse("playback:\n  loudness: 3\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "loudness")
}

func TestParseYAMLCommentsOnlyUsesBase(t *testing.T) {
	cfg, _, err := Parse("# nothing here\n", Default())
	require.NoError(t, err)
	require.Equal(t, Default().Playback, cfg.Playback)
}

func TestParseYAMLRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("log:\n  level: info\n---\nlog:\n  level: debug\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple YAML documents")
}

func TestParseEmptyContentValidatesBase(t *testing.T) {
	cfg, warnings, err := Parse("   \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default().Voice, cfg.Voice)
}
