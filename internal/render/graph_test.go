package render

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/segment"
	"github.com/rbright/animalese/internal/sound"
)

func voiceItems(t *testing.T, keys ...string) []Item {
	t.Helper()
	cat := catalog.New(catalog.Options{})
	events := make([]sound.Event, 0, len(keys))
	for _, key := range keys {
		events = append(events, sound.Event{Path: sound.Voice(key).String(), DurationMs: 120, Type: "f1"})
	}
	items, errs := Resolve(cat, events, sound.DefaultVoiceProfile())
	require.Empty(t, errs)
	return items
}

func TestBuildGraphThreeSegments(t *testing.T) {
	items := voiceItems(t, "a", "b", "c")

	g, err := BuildGraph(items, sound.DefaultVoiceProfile(), "/assets")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("/assets", "voice", "f1.ogg")}, g.Inputs)
	require.Len(t, g.Segments, 3)

	chain := ",asetpts=PTS-STARTPTS,asetrate=44100,aresample=44100,atempo=1.000,afade=t=in:st=0:d=0.005"
	want := strings.Join([]string{
		"[0:a]atrim=start=0.010:end=0.200" + chain + "[seg0]",
		"[0:a]atrim=start=0.210:end=0.400" + chain + "[seg1]",
		"[0:a]atrim=start=0.410:end=0.600" + chain + "[seg2]",
		"[seg0][seg1]acrossfade=d=0.025:curve1=tri:curve2=tri[xf1]",
		"[xf1][seg2]acrossfade=d=0.025:curve1=tri:curve2=tri[xf2]",
		"[xf2]atempo=1[out]",
	}, ";")
	require.Equal(t, want, g.Filter)
}

func TestBuildGraphSingleSegment(t *testing.T) {
	cat := catalog.New(catalog.Options{})
	items, errs := Resolve(cat, []sound.Event{
		{Path: sound.Sfx("default").String(), DurationMs: 200, PitchShift: 12},
	}, sound.DefaultVoiceProfile())
	require.Empty(t, errs)

	g, err := BuildGraph(items, sound.DefaultVoiceProfile(), "/assets")
	require.NoError(t, err)
	require.Equal(t,
		"[0:a]atrim=start=12.610:end=13.200,asetpts=PTS-STARTPTS,asetrate=88200,aresample=44100,atempo=0.500,afade=t=in:st=0:d=0.006[seg0];[seg0]atempo=1[out]",
		g.Filter,
	)
	require.Equal(t, []string{filepath.Join("/assets", "sfx.ogg")}, g.Inputs)
}

func TestBuildGraphSharesInputsPerContainer(t *testing.T) {
	cat := catalog.New(catalog.Options{})
	items, errs := Resolve(cat, []sound.Event{
		{Path: "&.a", DurationMs: 100},
		{Path: "sfx.period", DurationMs: 100},
		{Path: "&.b", DurationMs: 100},
	}, sound.DefaultVoiceProfile())
	require.Empty(t, errs)

	g, err := BuildGraph(items, sound.DefaultVoiceProfile(), "")
	require.NoError(t, err)
	require.Len(t, g.Inputs, 2)
	require.Equal(t, []int{0, 1, 0}, []int{g.Segments[0].Input, g.Segments[1].Input, g.Segments[2].Input})
	require.Contains(t, g.Filter, "[1:a]atrim=")
}

func TestBuildGraphWholeContainer(t *testing.T) {
	cat := catalog.New(catalog.Options{})
	items, errs := Resolve(cat, []sound.Event{{Path: "chime", DurationMs: 400}}, sound.DefaultVoiceProfile())
	require.Empty(t, errs)

	g, err := BuildGraph(items, sound.DefaultVoiceProfile(), "/assets")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(g.Filter, "[0:a]atrim=start=0.010,asetpts"))
}

func TestBuildGraphEmpty(t *testing.T) {
	_, err := BuildGraph(nil, sound.DefaultVoiceProfile(), "")
	require.ErrorIs(t, err, ErrEmptySequence)
}

func TestFadeAndCrossfadeClamp(t *testing.T) {
	require.InDelta(t, 0.005, FadeIn(0.1), 1e-12)
	require.InDelta(t, 0.009, FadeIn(0.3), 1e-12)
	require.InDelta(t, 0.010, FadeIn(1), 1e-12)

	require.InDelta(t, 0.018, Crossfade(0.04), 1e-12)
	require.InDelta(t, 0.020, Crossfade(0.08), 1e-12)
	require.InDelta(t, 0.025, Crossfade(0.5), 1e-12)
}

func TestPitchFactorContour(t *testing.T) {
	require.InDelta(t, 1.0, PitchFactor(0, 0, 1, 0, 3), 1e-9)
	require.InDelta(t, math.Pow(2, 2.0/12), PitchFactor(0, 0, 1, 1, 3), 1e-9)
	require.InDelta(t, 1.0, PitchFactor(0, 0, 1, 2, 3), 1e-9)
	require.InDelta(t, math.Pow(2, -1.0/12), PitchFactor(0, 0, -0.5, 1, 3), 1e-9)

	require.InDelta(t, 2*1.1, PitchFactor(12, 5, 0, 0, 1), 1e-9)
}

func TestResolveReportsUnrenderable(t *testing.T) {
	cat := catalog.New(catalog.Options{})
	items, errs := Resolve(cat, []sound.Event{
		{Path: "#show_window"},
		{Path: "&.zz"},
		{Path: "%.60"},
		{Path: "&.q", Type: "m2"},
	}, sound.DefaultVoiceProfile())
	require.Len(t, errs, 2)
	require.ErrorIs(t, errs[0], catalog.ErrUnknownSprite)
	require.Len(t, items, 1)
	require.Equal(t, "voice/m2.ogg", items[0].Entry.Container)
}

func TestTempoStages(t *testing.T) {
	tests := []struct {
		tempo float64
		want  []float64
	}{
		{tempo: 1, want: []float64{1}},
		{tempo: 0.5, want: []float64{0.5}},
		{tempo: 0.4, want: []float64{0.5, 0.8}},
		{tempo: 0.2, want: []float64{0.5, 0.5, 0.8}},
		{tempo: 2, want: []float64{2}},
		{tempo: 5, want: []float64{2, 2, 1.25}},
	}
	for _, tc := range tests {
		got := TempoStages(tc.tempo)
		require.Len(t, got, len(tc.want), tc.tempo)
		for i := range tc.want {
			require.InDelta(t, tc.want[i], got[i], 1e-12, tc.tempo)
		}
	}
}

var atempoValue = regexp.MustCompile(`atempo=([0-9.]+)`)

func TestBuildGraphHighPitchStaysInTempoRange(t *testing.T) {
	profile := sound.VoiceProfile{Type: "f1", Pitch: 12, Intonation: 1}
	events := segment.New(nil).TextToSoundEvents("hi there", profile)
	items, errs := Resolve(catalog.New(catalog.Options{}), events, profile)
	require.Empty(t, errs)

	g, err := BuildGraph(items, profile, "/assets")
	require.NoError(t, err)

	chains := strings.Split(g.Filter, ";")[:len(g.Segments)]
	highest := 0.0
	for i, chain := range chains {
		product := 1.0
		for _, m := range atempoValue.FindAllStringSubmatch(chain, -1) {
			tempo, err := strconv.ParseFloat(m[1], 64)
			require.NoError(t, err)
			require.GreaterOrEqual(t, tempo, 0.5, chain)
			require.LessOrEqual(t, tempo, 2.0, chain)
			product *= tempo
		}
		require.InDelta(t, 1/g.Segments[i].Factor, product, 0.005, chain)
		highest = math.Max(highest, g.Segments[i].Factor)
	}
	require.Greater(t, highest, 2.0)
}
