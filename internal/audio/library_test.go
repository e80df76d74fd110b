package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/rbright/animalese/internal/playback"
)

func writeTestWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	enc := wav.NewEncoder(file, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestDecodeWAVFileTakesFirstChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, 8000, 2, []int{16384, -1, -16384, -1, 0, -1})

	clip, err := DecodeWAVFile(path)
	require.NoError(t, err)
	require.Equal(t, 8000, clip.SampleRate)
	require.Equal(t, []float32{0.5, -0.5, 0}, clip.Samples)
}

func TestDecodeWAVFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not riff"), 0o644))

	_, err := DecodeWAVFile(path)
	require.ErrorIs(t, err, ErrDecode)

	_, err = DecodeWAVFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, ErrDecode)
}

func TestFFmpegDecoderReadsWAVDirectly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sfx.wav")
	writeTestWAV(t, path, 1000, 1, []int{16384, 16384})

	clip, err := FFmpegDecoder{}.Decode(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, clip.Samples, 2)
	require.InDelta(t, 2.0, clip.DurationMs(), 1e-9)
}

type convertRunner struct {
	t    *testing.T
	args []string
}

func (r *convertRunner) Run(_ context.Context, args []string, _ io.Writer) error {
	r.args = args
	writeTestWAV(r.t, args[len(args)-1], 2000, 1, []int{16384, 0, -16384})
	return nil
}

func TestFFmpegDecoderConvertsContainers(t *testing.T) {
	src := filepath.Join(t.TempDir(), "f1.ogg")
	require.NoError(t, os.WriteFile(src, []byte("OggS"), 0o644))

	runner := &convertRunner{t: t}
	scratch := t.TempDir()
	clip, err := FFmpegDecoder{Runner: runner, SampleRate: 2000, TempDir: scratch}.Decode(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0, -0.5}, clip.Samples)
	require.Contains(t, runner.args, src)
	require.Contains(t, runner.args, "2000")

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFFmpegDecoderMissingSource(t *testing.T) {
	_, err := FFmpegDecoder{Runner: &convertRunner{t: t}}.Decode(context.Background(), filepath.Join(t.TempDir(), "nope.ogg"))
	require.ErrorIs(t, err, ErrDecode)
}

type countingDecoder struct {
	calls   atomic.Int32
	release chan struct{}
	fail    map[string]bool
}

func (d *countingDecoder) Decode(_ context.Context, path string) (*Clip, error) {
	d.calls.Add(1)
	if d.release != nil {
		<-d.release
	}
	if d.fail[filepath.Base(path)] {
		return nil, errors.New("boom")
	}
	return &Clip{Samples: []float32{0.1}, SampleRate: 1000}, nil
}

func TestLibrarySharesConcurrentDecodes(t *testing.T) {
	dec := &countingDecoder{release: make(chan struct{})}
	lib := NewLibrary("/assets", dec, nil)

	var wg sync.WaitGroup
	clips := make([]*Clip, 8)
	for i := range clips {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clip, err := lib.Clip(context.Background(), "voice/f1.ogg")
			if err == nil {
				clips[i] = clip
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(dec.release)
	wg.Wait()

	for _, clip := range clips {
		require.Same(t, clips[0], clip)
	}
	require.Equal(t, int32(1), dec.calls.Load())
	require.True(t, lib.Loaded("voice/f1.ogg"))

	_, err := lib.Clip(context.Background(), "voice/f1.ogg")
	require.NoError(t, err)
	calls := dec.calls.Load()
	_, _ = lib.Clip(context.Background(), "voice/f1.ogg")
	require.Equal(t, calls, dec.calls.Load())
}

func TestLibraryPreloadJoinsFailures(t *testing.T) {
	dec := &countingDecoder{fail: map[string]bool{"bad.ogg": true}}
	lib := NewLibrary("/assets", dec, nil)

	err := lib.Preload(context.Background(), []string{"voice/f1.ogg", "bad.ogg", "sfx.ogg"}, 2)
	require.ErrorContains(t, err, "boom")
	require.True(t, lib.Loaded("voice/f1.ogg"))
	require.True(t, lib.Loaded("sfx.ogg"))
	require.False(t, lib.Loaded("bad.ogg"))
	require.Equal(t, filepath.Join("/assets", "voice", "f1.ogg"), lib.Path("voice/f1.ogg"))
}

func TestLibraryRemembersFailedDecode(t *testing.T) {
	dec := &countingDecoder{fail: map[string]bool{"f1.ogg": true}}
	lib := NewLibrary("/assets", dec, nil)

	_, err := lib.Clip(context.Background(), "voice/f1.ogg")
	require.ErrorContains(t, err, "boom")
	for range 5 {
		_, err = lib.Clip(context.Background(), "voice/f1.ogg")
		require.ErrorContains(t, err, "boom")
		_, err = lib.Ready("voice/f1.ogg")
		require.ErrorContains(t, err, "boom")
	}
	require.Equal(t, int32(1), dec.calls.Load())
	require.False(t, lib.Loaded("voice/f1.ogg"))
}

func TestLibraryDoesNotRememberCancelledDecode(t *testing.T) {
	dec := &countingDecoder{}
	lib := NewLibrary("/assets", dec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dec.fail = map[string]bool{"sfx.ogg": true}
	_, err := lib.Clip(ctx, "sfx.ogg")
	require.Error(t, err)

	dec.fail = nil
	_, err = lib.Clip(context.Background(), "sfx.ogg")
	require.NoError(t, err)
	require.Equal(t, int32(2), dec.calls.Load())
}

func TestLibraryReadyDecodesInBackground(t *testing.T) {
	dec := &countingDecoder{release: make(chan struct{})}
	lib := NewLibrary("/assets", dec, nil)

	for range 3 {
		_, err := lib.Ready("voice/f1.ogg")
		require.ErrorIs(t, err, ErrNotLoaded)
	}
	close(dec.release)

	require.Eventually(t, func() bool { return lib.Loaded("voice/f1.ogg") }, time.Second, 5*time.Millisecond)
	clip, err := lib.Ready("voice/f1.ogg")
	require.NoError(t, err)
	require.NotNil(t, clip)
	require.Equal(t, int32(1), dec.calls.Load())
}

func TestMixerStartNeverWaitsForDecode(t *testing.T) {
	dec := &countingDecoder{release: make(chan struct{}), fail: map[string]bool{"f1.ogg": true}}
	lib := NewLibrary("/assets", dec, nil)
	m := NewMixer(lib, 10)

	src := playback.Source{Container: "voice/f1.ogg", DurationMs: 100}
	started := time.Now()
	for range 10 {
		_, err := m.Start(src, 1, 1)
		require.ErrorIs(t, err, ErrNotLoaded)
	}
	require.Less(t, time.Since(started), 100*time.Millisecond)

	close(dec.release)
	require.Eventually(t, func() bool {
		_, err := m.Start(src, 1, 1)
		return err != nil && !errors.Is(err, ErrNotLoaded)
	}, time.Second, 5*time.Millisecond)

	for range 10 {
		_, err := m.Start(src, 1, 1)
		require.ErrorContains(t, err, "boom")
	}
	require.Equal(t, int32(1), dec.calls.Load())
	require.Zero(t, m.Active())
}
