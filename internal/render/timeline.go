package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"

	"github.com/rbright/animalese/internal/sound"
)

// Cue is one timed block of a subtitle render.
type Cue struct {
	StartMs float64
	EndMs   float64
	Items   []Item
}

// Timeline is a mono sample buffer that rendered cues are placed onto.
type Timeline struct {
	preset  Preset
	samples []float64
}

// NewTimeline allocates a silent timeline of totalMs.
func NewTimeline(totalMs float64, preset Preset) *Timeline {
	n := int(math.Ceil(math.Max(0, totalMs) / 1000 * float64(preset.SampleRate)))
	return &Timeline{preset: preset, samples: make([]float64, n)}
}

// Samples exposes the mixed buffer in [-1, 1].
func (t *Timeline) Samples() []float64 { return t.samples }

// Place decodes a rendered WAV and copies it in at startMs. Later
// placements overwrite overlapping samples; anything past the end is cut.
func (t *Timeline) Place(startMs float64, data []byte) error {
	if !wav.NewDecoder(bytes.NewReader(data)).IsValidFile() {
		return fmt.Errorf("%w: cue audio is not a valid wav", ErrIO)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("%w: decode cue audio: %v", ErrIO, err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	start := int(math.Floor(startMs / 1000 * float64(t.preset.SampleRate)))
	if start < 0 {
		start = 0
	}
	for frame := 0; frame*channels < len(buf.Data); frame++ {
		pos := start + frame
		if pos >= len(t.samples) {
			break
		}
		t.samples[pos] = intToSample(buf.Data[frame*channels], bitDepth)
	}
	return nil
}

// WriteFile encodes the timeline as WAV at the preset format.
func (t *Timeline) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrIO, path, err)
	}
	defer file.Close()

	data := make([]int, len(t.samples))
	for i, s := range t.samples {
		data[i] = sampleToInt(s, t.preset.BitDepth)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: t.preset.SampleRate, NumChannels: 1},
		SourceBitDepth: t.preset.BitDepth,
	}

	enc := wav.NewEncoder(file, t.preset.SampleRate, t.preset.BitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("%w: write wav: %v", ErrIO, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: close wav encoder: %v", ErrIO, err)
	}
	return nil
}

func fullScale(bitDepth int) float64 {
	if bitDepth <= 8 {
		return 127
	}
	return math.Exp2(float64(bitDepth-1)) - 1
}

func intToSample(v, bitDepth int) float64 {
	if bitDepth <= 8 {
		return float64(v-128) / 128
	}
	return float64(v) / (fullScale(bitDepth) + 1)
}

func sampleToInt(s float64, bitDepth int) int {
	s = math.Max(-1, math.Min(1, s))
	v := int(math.Round(s * fullScale(bitDepth)))
	if bitDepth <= 8 {
		return v + 128
	}
	return v
}

// RenderTimeline renders every cue concurrently and places the results on a
// timeline as long as the latest cue end. Cues with nothing renderable are
// skipped.
func (r *Renderer) RenderTimeline(ctx context.Context, cues []Cue, profile sound.VoiceProfile, preset Preset) (*Timeline, error) {
	var totalMs float64
	for _, cue := range cues {
		totalMs = math.Max(totalMs, cue.EndMs)
	}

	rendered := make([][]byte, len(cues))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, cue := range cues {
		group.Go(func() error {
			data, err := r.Render(groupCtx, cue.Items, profile, preset)
			if errors.Is(err, ErrEmptySequence) {
				r.logger.Info("skipping silent cue", "cue", i+1)
				return nil
			}
			if err != nil {
				return fmt.Errorf("cue %d: %w", i+1, err)
			}
			rendered[i] = data
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	timeline := NewTimeline(totalMs, preset)
	for i, data := range rendered {
		if data == nil {
			continue
		}
		if err := timeline.Place(cues[i].StartMs, data); err != nil {
			return nil, fmt.Errorf("cue %d: %w", i+1, err)
		}
	}
	return timeline, nil
}
