package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripJSONCBlanksCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two", // trailing comment after the last element
  ],
  "nested": {
    "enabled": true,
  },
}
`

	plain, err := stripJSONC(input)
	require.NoError(t, err)
	require.Len(t, plain, len(input))
	require.Equal(t, strings.Count(input, "\n"), strings.Count(plain, "\n"))
	require.NotContains(t, plain, "//")
	require.NotContains(t, plain, "/*")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(plain), &decoded))
	require.Equal(t, []any{"one", "two"}, decoded["items"])
}

func TestStripJSONCKeepsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text, \"quoted,\"",}`
	plain, err := stripJSONC(input)
	require.NoError(t, err)
	require.Contains(t, plain, "// and /* comment-like */")

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(plain), &decoded))
	require.Equal(t, `contains // and /* comment-like */ text, "quoted,"`, decoded["value"])
}

func TestStripJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := stripJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestExpectEOFRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := expectEOF(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	for _, tc := range []struct {
		offset    int64
		line, col int
	}{
		{offset: 0, line: 1, col: 1},
		{offset: 1, line: 1, col: 1},
		{offset: 8, line: 2, col: 2},
		{offset: 999, line: 3, col: 6},
	} {
		line, col := lineCol(content, tc.offset)
		require.Equal(t, tc.line, line, tc.offset)
		require.Equal(t, tc.col, col, tc.offset)
	}
}

func TestParseJSONCOverlaysSections(t *testing.T) {
	cfg, warnings, err := parseJSONC(`{
  // sprite containers
  "assets": {"root": " /opt/animalese/audio ", "extension": ".wav"},
  "playback": {"volume": 0.8, "mode": "random", "hold_repeat": true, "device": "USB DAC",},
  "voice": {"type": "m2", "pitch": 3, "intonation": 0.5},
  "note": {"instrument": "organ", "transpose": -12},
  "render": {"quality": "high", "extra_args": "-hide_banner -loglevel 'error'"},
  "listener": {"command": "animalese-keys --device /dev/input/event3", "keymap": {"38": {"sound": "%.60", "alt_sound": ""}}},
  "metrics": {"listen": "127.0.0.1:9464"},
  "log": {"level": "debug"},
}`, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "/opt/animalese/audio", cfg.Assets.Root)
	require.Equal(t, ".wav", cfg.Assets.Extension)
	require.Equal(t, 0.8, cfg.Playback.Volume)
	require.Equal(t, "random", cfg.Playback.Mode)
	require.True(t, cfg.Playback.HoldRepeat)
	require.True(t, cfg.Playback.SFX)
	require.Equal(t, "USB DAC", cfg.Playback.Device)
	require.Equal(t, "m2", cfg.Voice.Type)
	require.Equal(t, 3.0, cfg.Voice.Pitch)
	require.Equal(t, "organ", cfg.Note.Instrument)
	require.Equal(t, -12, cfg.Note.Transpose)
	require.Equal(t, "high", cfg.Render.Quality)
	require.Equal(t, []string{"-hide_banner", "-loglevel", "error"}, cfg.Render.ExtraArgs.Argv)
	require.Equal(t, []string{"animalese-keys", "--device", "/dev/input/event3"}, cfg.Listener.Command.Argv)
	require.Equal(t, "%.60", *cfg.Listener.Keymap[38].Sound)
	require.Empty(t, *cfg.Listener.Keymap[38].AltSound)
	require.Nil(t, cfg.Listener.Keymap[38].ShiftSound)
	require.Equal(t, "127.0.0.1:9464", cfg.Metrics.Listen)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseJSONCDoesNotMutateBaseKeymap(t *testing.T) {
	base := Default()
	_, _, err := parseJSONC(`{"listener": {"keymap": {"10": {"sound": "sfx.tab"}}}}`, base)
	require.NoError(t, err)
	require.Empty(t, base.Listener.Keymap)
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"listener":{"command":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid listener.command")

	_, _, err = parseJSONC(`{"render":{"extra_args":"-y; rm -rf /"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "shell operators")
}

func TestParseJSONCRejectsBadKeymapKey(t *testing.T) {
	_, _, err := parseJSONC(`{"listener":{"keymap":{"a":{"sound":"&.a"}}}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "listener.keymap")
}

func TestParseJSONCRejectsUnknownFields(t *testing.T) {
	_, _, err := parseJSONC(`{"playback":{"volumes":1}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")

	_, _, err = parseJSONC(`{"listener":{"keymap":{"38":{"meta_sound":"x"}}}}`, Default())
	require.Error(t, err)
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"log":{"level":"info"}}{"log":{"level":"debug"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "playback": {"volume": "loud"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}
