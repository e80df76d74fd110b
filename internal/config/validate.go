package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/playback"
	"github.com/rbright/animalese/internal/render"
)

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate enforces config rules and returns non-fatal warnings. Every
// broken rule is reported in the joined error.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	warn := func(format string, args ...any) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(format, args...)})
	}

	if ext := cfg.Assets.Extension; ext == "" || !strings.HasPrefix(ext, ".") {
		fail("assets.extension must start with '.', got %q", ext)
	}

	if v := cfg.Playback.Volume; math.IsNaN(v) || v < 0 || v > 1 {
		fail("playback.volume must be in [0,1]")
	}
	if _, err := playback.ParseMode(cfg.Playback.Mode); err != nil {
		fail("playback.mode: %v", err)
	}
	if cfg.Playback.LatencyMS < 0 {
		fail("playback.latency_ms must be >= 0")
	}
	if cfg.Playback.PreloadParallel <= 0 {
		fail("playback.preload_parallel must be > 0")
	}
	if strings.TrimSpace(cfg.Playback.Device) == "" {
		fail("playback.device must not be empty")
	}

	if !slices.Contains(catalog.VoiceTypes, cfg.Voice.Type) {
		fail("voice.type must be one of: %s", strings.Join(catalog.VoiceTypes, ", "))
	}
	if math.Abs(cfg.Voice.Pitch) > 24 {
		warn("voice.pitch %.1f is more than two octaves from neutral", cfg.Voice.Pitch)
	}
	if cfg.Voice.Variation < 0 {
		fail("voice.variation must be >= 0")
	}
	if math.Abs(cfg.Voice.Intonation) > 1 {
		warn("voice.intonation %.2f is outside [-1,1]; ramps will be extreme", cfg.Voice.Intonation)
	}

	instruments := append(slices.Clone(catalog.SingingInstruments), catalog.PlainInstruments...)
	if !slices.Contains(instruments, cfg.Note.Instrument) {
		fail("note.instrument must be one of: %s", strings.Join(instruments, ", "))
	}

	if _, err := render.ParsePreset(cfg.Render.Quality); err != nil {
		fail("render.quality: %v", err)
	}
	if cfg.Render.MaxParallel <= 0 {
		fail("render.max_parallel must be > 0")
	}
	if cfg.Render.TimeoutMS < 0 {
		fail("render.timeout_ms must be >= 0")
	}

	if len(cfg.Listener.Command.Argv) == 0 {
		fail("listener.command must not be empty")
	}

	if cfg.History.Keep < 0 {
		fail("history.keep must be >= 0")
	}

	if !slices.Contains(logLevels, strings.ToLower(cfg.Log.Level)) {
		fail("log.level must be one of: %s", strings.Join(logLevels, ", "))
	}

	if cfg.Metrics.Listen != "" && cfg.Metrics.Listen == cfg.Health.Listen {
		fail("metrics.listen and health.listen must differ")
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return warnings, nil
}
