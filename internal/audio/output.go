package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

const defaultLatencySeconds = 0.02

// OutputOptions configures the playback stream.
type OutputOptions struct {
	// Sink is a Pulse sink name; empty plays on the default sink.
	Sink      string
	Latency   float64
	MediaName string
}

// Output streams a Mixer to Pulse until closed.
type Output struct {
	client *pulse.Client
	stream *pulse.PlaybackStream
	once   sync.Once
}

// OpenOutput connects to Pulse and starts pulling samples from mixer.
func OpenOutput(mixer *Mixer, opts OutputOptions) (*Output, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	latency := opts.Latency
	if latency <= 0 {
		latency = defaultLatencySeconds
	}
	mediaName := opts.MediaName
	if mediaName == "" {
		mediaName = "animalese voice"
	}

	streamOpts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(mixer.SampleRate()),
		pulse.PlaybackLatency(latency),
		pulse.PlaybackMediaName(mediaName),
	}
	if opts.Sink != "" {
		sink, err := client.SinkByID(opts.Sink)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("resolve sink %q: %w", opts.Sink, err)
		}
		streamOpts = append(streamOpts, pulse.PlaybackSink(sink))
	}

	stream, err := client.NewPlayback(pulse.Float32Reader(mixer.Read), streamOpts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse playback stream: %w", err)
	}
	stream.Start()

	return &Output{client: client, stream: stream}, nil
}

// Err reports a stream failure, if any.
func (o *Output) Err() error {
	return o.stream.Error()
}

// Close stops the stream and disconnects. Safe to call more than once.
func (o *Output) Close() {
	o.once.Do(func() {
		o.stream.Stop()
		o.stream.Close()
		o.client.Close()
	})
}
