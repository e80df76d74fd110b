package render

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rbright/animalese/internal/sound"
)

const (
	// graphSampleRate is the rate pitch shifting is expressed against.
	graphSampleRate = 44100

	clickOffsetSec  = 0.01
	fadeInMinSec    = 0.005
	fadeInMaxSec    = 0.010
	fadeInShare     = 0.03
	crossfadeMinSec = 0.018
	crossfadeMaxSec = 0.025
	crossfadeShare  = 0.25
	variationStep   = 0.02
	contourRange    = 2.0

	outputLabel = "out"

	// One atempo filter accepts factors in [minTempo, maxTempo].
	minTempo = 0.5
	maxTempo = 2.0
)

// Segment is one trimmed, pitch-shifted piece of the output.
type Segment struct {
	Source     string
	Input      int
	Start      float64
	End        float64
	Played     float64
	PitchShift float64
	Variation  float64
	Factor     float64
}

// Graph is a compiled filter graph with its ordered inputs.
type Graph struct {
	Inputs   []string
	Segments []Segment
	Filter   string
}

// PitchFactor combines semitone shift, variation and the intonation contour
// at segment index of count.
func PitchFactor(pitchShift, variation, intonation float64, index, count int) float64 {
	base := math.Pow(2, pitchShift/12)
	variationFactor := 1 + variation*variationStep
	progress := float64(index) / math.Max(1, float64(count-1))
	contour := math.Sin(progress*math.Pi) * math.Abs(intonation) * contourRange * sign(intonation)
	return base * variationFactor * math.Pow(2, contour/12)
}

// FadeIn is the click-avoidance fade for a segment played for d seconds.
func FadeIn(d float64) float64 {
	return math.Min(fadeInMaxSec, math.Max(fadeInMinSec, d*fadeInShare))
}

// Crossfade is the transition length after a segment played for d seconds.
func Crossfade(d float64) float64 {
	return math.Max(crossfadeMinSec, math.Min(crossfadeMaxSec, d*crossfadeShare))
}

// TempoStages splits tempo into factors atempo accepts. Their product is
// tempo.
func TempoStages(tempo float64) []float64 {
	var stages []float64
	for tempo < minTempo {
		stages = append(stages, minTempo)
		tempo /= minTempo
	}
	for tempo > maxTempo {
		stages = append(stages, maxTempo)
		tempo /= maxTempo
	}
	return append(stages, tempo)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// BuildGraph compiles items into a single filter graph. Each distinct
// container gets one input index in first-use order.
func BuildGraph(items []Item, profile sound.VoiceProfile, assetRoot string) (Graph, error) {
	if len(items) == 0 {
		return Graph{}, ErrEmptySequence
	}

	g := Graph{Segments: make([]Segment, 0, len(items))}
	inputIndex := make(map[string]int)
	filters := make([]string, 0, 2*len(items))

	for i, item := range items {
		source := item.Entry.Container
		if !filepath.IsAbs(source) {
			source = filepath.Join(assetRoot, filepath.FromSlash(source))
		}
		input, ok := inputIndex[source]
		if !ok {
			input = len(g.Inputs)
			inputIndex[source] = input
			g.Inputs = append(g.Inputs, source)
		}

		seg := Segment{
			Source:     source,
			Input:      input,
			Start:      item.Entry.OffsetMs/1000 + clickOffsetSec,
			Played:     item.Event.DurationMs / 1000,
			PitchShift: item.Event.PitchShift,
			Variation:  item.Event.Variation,
		}
		if item.Entry.DurationMs > 0 {
			seg.End = item.Entry.EndMs() / 1000
		}
		seg.Factor = PitchFactor(seg.PitchShift, seg.Variation, profile.Intonation, i, len(items))

		g.Segments = append(g.Segments, seg)
		filters = append(filters, segmentFilter(seg, i))
	}

	if len(items) == 1 {
		filters = append(filters, fmt.Sprintf("[seg0]atempo=1[%s]", outputLabel))
	} else {
		previous := "seg0"
		for i := 1; i < len(g.Segments); i++ {
			label := "xf" + strconv.Itoa(i)
			filters = append(filters, fmt.Sprintf("[%s][seg%d]acrossfade=d=%.3f:curve1=tri:curve2=tri[%s]",
				previous, i, Crossfade(g.Segments[i-1].Played), label))
			previous = label
		}
		filters = append(filters, fmt.Sprintf("[%s]atempo=1[%s]", previous, outputLabel))
	}

	g.Filter = strings.Join(filters, ";")
	return g, nil
}

func segmentFilter(seg Segment, index int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d:a]atrim=start=%.3f", seg.Input, seg.Start)
	if seg.End > 0 {
		fmt.Fprintf(&b, ":end=%.3f", seg.End)
	}
	b.WriteString(",asetpts=PTS-STARTPTS")
	fmt.Fprintf(&b, ",asetrate=%.0f,aresample=%d", graphSampleRate*seg.Factor, graphSampleRate)
	for _, stage := range TempoStages(1 / seg.Factor) {
		fmt.Fprintf(&b, ",atempo=%.3f", stage)
	}
	fmt.Fprintf(&b, ",afade=t=in:st=0:d=%s", strconv.FormatFloat(FadeIn(seg.Played), 'f', -1, 64))
	fmt.Fprintf(&b, "[seg%d]", index)
	return b.String()
}

// Args assembles the engine invocation writing to output.
func (g Graph) Args(preset Preset, output string, extra []string) []string {
	args := make([]string, 0, 16+2*len(g.Inputs)+len(extra))
	args = append(args, "-y")
	args = append(args, extra...)
	for _, input := range g.Inputs {
		args = append(args, "-i", input)
	}
	args = append(args,
		"-filter_complex", g.Filter,
		"-map", "["+outputLabel+"]",
		"-c:a", preset.Codec(),
		"-ar", strconv.Itoa(preset.SampleRate),
		"-ac", strconv.Itoa(preset.Channels),
		"-f", "wav",
		output,
	)
	return args
}
