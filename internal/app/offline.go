package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/cli"
	"github.com/rbright/animalese/internal/config"
	"github.com/rbright/animalese/internal/ffmpeg"
	"github.com/rbright/animalese/internal/history"
	"github.com/rbright/animalese/internal/render"
	"github.com/rbright/animalese/internal/segment"
	"github.com/rbright/animalese/internal/sound"
	"github.com/rbright/animalese/internal/srt"
)

// offline bundles what render and subtitles share.
type offline struct {
	catalog   *catalog.Catalog
	segmenter *segment.Segmenter
	renderer  *render.Renderer
	profile   sound.VoiceProfile
	preset    render.Preset
	history   *history.Store
	logger    *slog.Logger
}

func newOffline(ctx context.Context, cfg config.Config, logger *slog.Logger, parsed cli.Parsed) (*offline, error) {
	cat := newCatalog(cfg)
	profile, err := voiceProfile(cat, cfg, parsed.Voice)
	if err != nil {
		return nil, err
	}
	quality := parsed.Quality
	if quality == "" {
		quality = cfg.Render.Quality
	}
	preset, err := render.ParsePreset(quality)
	if err != nil {
		return nil, err
	}
	root, err := cfg.Assets.AssetRoot()
	if err != nil {
		return nil, err
	}
	binary, err := ffmpeg.Locate(ffmpeg.LocateOptions{Binary: cfg.Render.FFmpeg, BundledDir: cfg.Render.BundledDir})
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(render.Options{
		Executor:    ffmpeg.Runner{Binary: binary, Logger: logger},
		AssetRoot:   root,
		MaxParallel: int64(cfg.Render.MaxParallel),
		Timeout:     time.Duration(cfg.Render.TimeoutMS) * time.Millisecond,
		ExtraArgs:   cfg.Render.ExtraArgs.Argv,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	sfx := cfg.Playback.SFX
	return &offline{
		catalog:   cat,
		segmenter: segment.New(func() bool { return sfx }),
		renderer:  renderer,
		profile:   profile,
		preset:    preset,
		history:   openHistory(ctx, cfg, logger),
		logger:    logger,
	}, nil
}

// openHistory never fails the caller; a broken database disables recording.
func openHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) *history.Store {
	disabled, _ := history.Open(ctx, history.Options{Logger: logger})
	if !cfg.History.Enable {
		return disabled
	}
	path, err := cfg.History.DBPath()
	if err != nil {
		logger.Warn("history disabled", "error", err.Error())
		return disabled
	}
	store, err := history.Open(ctx, history.Options{Enable: true, Path: path, Keep: cfg.History.Keep, Logger: logger})
	if err != nil {
		logger.Warn("history disabled", "path", path, "error", err.Error())
		return disabled
	}
	return store
}

// items segments text and resolves it, logging events that cannot render.
func (o *offline) items(text string, targetMs float64) []render.Item {
	events := o.segmenter.TextToSoundEvents(text, o.profile)
	if targetMs > 0 {
		events = segment.AdjustToDuration(events, targetMs)
	}
	items, errs := render.Resolve(o.catalog, events, o.profile)
	for _, err := range errs {
		o.logger.Warn("skipping unrenderable event", "error", err.Error())
	}
	return items
}

func (o *offline) record(ctx context.Context, e history.Entry, started time.Time, err error) {
	e.Quality = o.preset.Name
	e.Voice = o.profile.VoiceType()
	e.Status = render.Status(err)
	e.Elapsed = time.Since(started)
	if _, recErr := o.history.Record(ctx, e); recErr != nil {
		o.logger.Warn("record history failed", "error", recErr.Error())
	}
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func (r Runner) commandRender(ctx context.Context, cfg config.Config, logger *slog.Logger, parsed cli.Parsed) (err error) {
	o, err := newOffline(ctx, cfg, logger, parsed)
	if err != nil {
		return err
	}
	defer o.history.Close()

	text := parsed.Text()
	started := time.Now()
	entry := history.Entry{Kind: history.KindRender, Input: text, Output: parsed.Output}
	defer func() { o.record(ctx, entry, started, err) }()

	data, err := o.renderer.Render(ctx, o.items(text, 0), o.profile, o.preset)
	if err != nil {
		return err
	}
	if err = ensureParent(parsed.Output); err != nil {
		return err
	}
	if err = os.WriteFile(parsed.Output, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", render.ErrIO, parsed.Output, err)
	}
	entry.Bytes = int64(len(data))
	fmt.Fprintf(r.Stdout, "wrote %s (%d bytes, %s)\n", parsed.Output, len(data), o.preset.Name)
	return nil
}

func (r Runner) commandSubtitles(ctx context.Context, cfg config.Config, logger *slog.Logger, parsed cli.Parsed) (err error) {
	input := parsed.Args[0]
	content, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read subtitles: %w", err)
	}
	subs := srt.Parse(string(content))
	if len(subs) == 0 {
		return fmt.Errorf("no subtitle cues in %s", input)
	}

	o, err := newOffline(ctx, cfg, logger, parsed)
	if err != nil {
		return err
	}
	defer o.history.Close()

	started := time.Now()
	entry := history.Entry{Kind: history.KindSubtitles, Input: input, Output: parsed.Output}
	defer func() { o.record(ctx, entry, started, err) }()

	cues := make([]render.Cue, 0, len(subs))
	for _, sub := range subs {
		cues = append(cues, render.Cue{
			StartMs: sub.StartMs,
			EndMs:   sub.EndMs,
			Items:   o.items(sub.Text, sub.DurationMs()),
		})
	}
	timeline, err := o.renderer.RenderTimeline(ctx, cues, o.profile, o.preset)
	if err != nil {
		return err
	}
	if err = ensureParent(parsed.Output); err != nil {
		return err
	}
	if err = timeline.WriteFile(parsed.Output); err != nil {
		return err
	}
	if info, statErr := os.Stat(parsed.Output); statErr == nil {
		entry.Bytes = info.Size()
	}
	fmt.Fprintf(r.Stdout, "wrote %s (%d cues, %s, %s)\n",
		parsed.Output, len(cues), srt.FormatTimestamp(srt.EndMs(subs)), o.preset.Name)
	return nil
}

type eventLine struct {
	Path       string  `json:"path"`
	DurationMs float64 `json:"duration_ms"`
	Volume     float64 `json:"volume,omitempty"`
	PitchShift float64 `json:"pitch_shift,omitempty"`
	Variation  float64 `json:"variation,omitempty"`
	Intonation float64 `json:"intonation,omitempty"`
	Type       string  `json:"type,omitempty"`
	Channel    *int    `json:"channel,omitempty"`
}

// commandEvents prints the segmented events without touching audio.
func (r Runner) commandEvents(cfg config.Config, parsed cli.Parsed) error {
	cat := newCatalog(cfg)
	profile, err := voiceProfile(cat, cfg, parsed.Voice)
	if err != nil {
		return err
	}
	sfx := cfg.Playback.SFX
	events := segment.New(func() bool { return sfx }).TextToSoundEvents(parsed.Text(), profile)

	enc := json.NewEncoder(r.Stdout)
	for _, ev := range events {
		if err := enc.Encode(eventLine{
			Path:       ev.Path,
			DurationMs: ev.DurationMs,
			Volume:     ev.Volume,
			PitchShift: ev.PitchShift,
			Variation:  ev.Variation,
			Intonation: ev.Intonation,
			Type:       ev.Type,
			Channel:    ev.Channel,
		}); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	return nil
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, logger *slog.Logger, limit int) error {
	if !cfg.History.Enable {
		return errors.New("history is disabled in config")
	}
	store := openHistory(ctx, cfg, logger)
	defer store.Close()
	if !store.Enabled() {
		return errors.New("history database is unavailable")
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no renders recorded")
		return nil
	}

	w := tabwriter.NewWriter(r.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tKIND\tSTATUS\tQUALITY\tVOICE\tBYTES\tELAPSED\tINPUT\tOUTPUT")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.ID,
			e.CreatedAt.Format(time.DateTime),
			e.Kind,
			e.Status,
			e.Quality,
			e.Voice,
			e.Bytes,
			e.Elapsed.Round(time.Millisecond),
			truncate(e.Input, 32),
			e.Output,
		)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
