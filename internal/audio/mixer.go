package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rbright/animalese/internal/playback"
)

const DefaultSampleRate = 44100

var ErrOutOfRange = errors.New("sprite window outside container")

// ClipSource provides decoded containers to the mixer. Ready must not block.
type ClipSource interface {
	Ready(container string) (*Clip, error)
}

type fade struct {
	from, to float64
	total    int
	done     int
}

type voice struct {
	clip *Clip
	pos  float64
	end  float64
	step float64
	gain float64
	fade *fade
}

// Mixer sums sprite voices into a mono float stream. It implements
// playback.Backend; Read is driven by the output stream.
type Mixer struct {
	clips ClipSource
	rate  int

	mu     sync.Mutex
	next   playback.Handle
	voices map[playback.Handle]*voice
}

// NewMixer builds a mixer producing samples at sampleRate.
func NewMixer(clips ClipSource, sampleRate int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Mixer{clips: clips, rate: sampleRate, voices: make(map[playback.Handle]*voice)}
}

// SampleRate is the output rate of Read.
func (m *Mixer) SampleRate() int { return m.rate }

func (m *Mixer) Start(src playback.Source, volume, rate float64) (playback.Handle, error) {
	clip, err := m.clips.Ready(src.Container)
	if err != nil {
		return 0, err
	}

	clipRate := float64(clip.SampleRate)
	start := math.Floor(src.OffsetMs / 1000 * clipRate)
	end := float64(len(clip.Samples))
	if src.DurationMs > 0 {
		end = math.Min(end, math.Floor((src.OffsetMs+src.DurationMs)/1000*clipRate))
	}
	if start < 0 || start >= end {
		return 0, fmt.Errorf("%w: %s [%gms +%gms] of %.0fms", ErrOutOfRange, src.Container, src.OffsetMs, src.DurationMs, clip.DurationMs())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.voices[m.next] = &voice{
		clip: clip,
		pos:  start,
		end:  end,
		step: m.step(clip, rate),
		gain: volume,
	}
	return m.next, nil
}

func (m *Mixer) step(clip *Clip, rate float64) float64 {
	if rate <= 0 {
		rate = 1
	}
	return rate * float64(clip.SampleRate) / float64(m.rate)
}

func (m *Mixer) SetRate(h playback.Handle, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.voices[h]; ok {
		v.step = m.step(v.clip, rate)
	}
}

func (m *Mixer) Volume(h playback.Handle) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.voices[h]; ok {
		return v.gain
	}
	return 0
}

func (m *Mixer) Fade(h playback.Handle, from, to float64, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.voices[h]
	if !ok {
		return
	}
	total := int(math.Round(d.Seconds() * float64(m.rate)))
	if total <= 0 {
		v.gain = to
		v.fade = nil
		return
	}
	v.gain = from
	v.fade = &fade{from: from, to: to, total: total}
}

func (m *Mixer) Stop(h playback.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.voices, h)
}

func (m *Mixer) Playing(h playback.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.voices[h]
	return ok
}

// Active returns the number of sounding voices.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Read fills out with the next block of mixed samples. Voices that reach the
// end of their window are dropped. It never reports end of data.
func (m *Mixer) Read(out []float32) (int, error) {
	clear(out)

	m.mu.Lock()
	defer m.mu.Unlock()
	for h, v := range m.voices {
		samples := v.clip.Samples
		for i := range out {
			if v.pos >= v.end {
				break
			}
			idx := int(v.pos)
			frac := v.pos - float64(idx)
			s := float64(samples[idx])
			if idx+1 < len(samples) && float64(idx+1) < v.end {
				s += (float64(samples[idx+1]) - s) * frac
			}
			out[i] += float32(s * v.gain)
			v.pos += v.step
			v.advanceFade()
		}
		if v.pos >= v.end {
			delete(m.voices, h)
		}
	}

	for i, s := range out {
		out[i] = float32(math.Max(-1, math.Min(1, float64(s))))
	}
	return len(out), nil
}

func (v *voice) advanceFade() {
	if v.fade == nil {
		return
	}
	v.fade.done++
	if v.fade.done >= v.fade.total {
		v.gain = v.fade.to
		v.fade = nil
		return
	}
	progress := float64(v.fade.done) / float64(v.fade.total)
	v.gain = v.fade.from + (v.fade.to-v.fade.from)*progress
}
