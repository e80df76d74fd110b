package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrDecode = errors.New("decode audio container")

// Clip is one decoded container as mono float PCM in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

// DurationMs is the clip length.
func (c *Clip) DurationMs() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate) * 1000
}

// Decoder turns a container file into a Clip.
type Decoder interface {
	Decode(ctx context.Context, path string) (*Clip, error)
}

// Runner is the part of the ffmpeg runner the decoder needs.
type Runner interface {
	Run(ctx context.Context, args []string, stdout io.Writer) error
}

// FFmpegDecoder converts containers to mono PCM WAV with ffmpeg in a scratch
// directory. Plain .wav files are read directly.
type FFmpegDecoder struct {
	Runner     Runner
	SampleRate int
	TempDir    string
}

func (d FFmpegDecoder) Decode(ctx context.Context, path string) (*Clip, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return DecodeWAVFile(path)
	}
	if d.Runner == nil {
		return nil, fmt.Errorf("%w %s: no ffmpeg runner configured", ErrDecode, path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}

	dir, err := os.MkdirTemp(d.TempDir, "decode-")
	if err != nil {
		return nil, fmt.Errorf("%w %s: scratch dir: %v", ErrDecode, path, err)
	}
	defer os.RemoveAll(dir)

	rate := d.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	output := filepath.Join(dir, "decoded.wav")
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		output,
	}
	if err := d.Runner.Run(ctx, args, nil); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}
	return DecodeWAVFile(output)
}

// DecodeWAVFile reads a PCM WAV file and downmixes it to its first channel.
func DecodeWAVFile(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}
	defer file.Close()

	clip, err := DecodeWAV(file)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}
	return clip, nil
}

// DecodeWAV decodes PCM WAV data from r.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	if !wav.NewDecoder(r).IsValidFile() {
		return nil, errors.New("not a valid wav stream")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	scale := math.Exp2(float64(bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := range samples {
		v := buf.Data[i*channels]
		if bitDepth <= 8 {
			samples[i] = float32(float64(v-128) / 128)
			continue
		}
		samples[i] = float32(float64(v) / scale)
	}
	return &Clip{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// ErrNotLoaded is returned by Ready for a container whose decode has not
// finished yet.
var ErrNotLoaded = errors.New("container not decoded yet")

// Library caches decoded containers by name. Concurrent requests for the
// same container share one decode, and a failed decode is remembered so the
// container is never decoded twice.
type Library struct {
	root    string
	decoder Decoder
	logger  *slog.Logger

	mu      sync.RWMutex
	clips   map[string]*Clip
	failed  map[string]error
	pending map[string]bool
	group   singleflight.Group
}

// NewLibrary resolves container names relative to root.
func NewLibrary(root string, decoder Decoder, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Library{
		root:    root,
		decoder: decoder,
		logger:  logger,
		clips:   make(map[string]*Clip),
		failed:  make(map[string]error),
		pending: make(map[string]bool),
	}
}

// Path returns the file a container name resolves to.
func (l *Library) Path(container string) string {
	if filepath.IsAbs(container) {
		return container
	}
	return filepath.Join(l.root, filepath.FromSlash(container))
}

// settled reports a finished decode of container, successful or not.
func (l *Library) settled(container string) (*Clip, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if clip, ok := l.clips[container]; ok {
		return clip, true, nil
	}
	if err, ok := l.failed[container]; ok {
		return nil, true, err
	}
	return nil, false, nil
}

// Ready returns a decoded container without blocking. A container that is
// neither decoded nor known to be broken yields ErrNotLoaded and gets
// decoded in the background.
func (l *Library) Ready(container string) (*Clip, error) {
	if clip, done, err := l.settled(container); done {
		return clip, err
	}

	l.mu.Lock()
	start := !l.pending[container]
	l.pending[container] = true
	l.mu.Unlock()
	if start {
		go func() {
			_, _ = l.Clip(context.Background(), container)
			l.mu.Lock()
			delete(l.pending, container)
			l.mu.Unlock()
		}()
	}
	return nil, fmt.Errorf("%w: %s", ErrNotLoaded, container)
}

// Clip returns the decoded container, decoding it on first use. Failures
// other than cancellation are cached and returned without decoding again.
func (l *Library) Clip(ctx context.Context, container string) (*Clip, error) {
	if clip, done, err := l.settled(container); done {
		return clip, err
	}

	v, err, _ := l.group.Do(container, func() (any, error) {
		if cached, done, err := l.settled(container); done {
			return cached, err
		}

		decoded, err := l.decoder.Decode(ctx, l.Path(container))
		if err != nil {
			if ctx.Err() == nil {
				l.mu.Lock()
				l.failed[container] = err
				l.mu.Unlock()
				l.logger.Warn("container decode failed", "container", container, "error", err.Error())
			}
			return nil, err
		}
		l.mu.Lock()
		l.clips[container] = decoded
		l.mu.Unlock()
		l.logger.Debug("container decoded",
			"container", container,
			"samples", len(decoded.Samples),
			"sample_rate", decoded.SampleRate,
		)
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Clip), nil
}

// Loaded reports whether a container is already decoded.
func (l *Library) Loaded(container string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.clips[container]
	return ok
}

// Preload decodes containers with at most parallel decodes in flight.
// Every container is attempted; failures are joined into the returned error.
func (l *Library) Preload(ctx context.Context, containers []string, parallel int) error {
	if parallel <= 0 {
		parallel = 1
	}
	var (
		mu   sync.Mutex
		errs []error
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)
	for _, container := range containers {
		group.Go(func() error {
			if _, err := l.Clip(groupCtx, container); err != nil {
				l.logger.Warn("preload failed", "container", container, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return groupCtx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
