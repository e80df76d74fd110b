// Package observe records OpenTelemetry metrics for playback, rendering and
// the key listener, and exposes them for Prometheus scraping.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope of every animalese instrument.
const meterName = "github.com/rbright/animalese"

// Metrics holds the instruments. It implements playback.Observer,
// render.Observer and keystroke.Observer.
type Metrics struct {
	// SoundsPlayed counts started sounds by catalog bank.
	SoundsPlayed metric.Int64Counter

	// SoundsDropped counts suppressed or failed requests by reason.
	SoundsDropped metric.Int64Counter

	RenderDuration metric.Float64Histogram

	// Renders counts offline renders by status.
	Renders metric.Int64Counter

	Keys metric.Int64Counter
}

// renderBuckets are in seconds; ffmpeg renders of a sentence take tens to
// hundreds of milliseconds.
var renderBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SoundsPlayed, err = m.Int64Counter("animalese.sounds.played",
		metric.WithDescription("Sounds started by bank."),
	); err != nil {
		return nil, err
	}
	if met.SoundsDropped, err = m.Int64Counter("animalese.sounds.dropped",
		metric.WithDescription("Sound requests dropped by reason."),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram("animalese.render.duration",
		metric.WithDescription("Wall time of offline renders."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(renderBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Renders, err = m.Int64Counter("animalese.renders",
		metric.WithDescription("Offline renders by status."),
	); err != nil {
		return nil, err
	}
	if met.Keys, err = m.Int64Counter("animalese.keys",
		metric.WithDescription("Key events handled by type."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) SoundPlayed(bank string) {
	m.SoundsPlayed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("bank", bank)))
}

func (m *Metrics) SoundDropped(reason string) {
	m.SoundsDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RenderCompleted(status string, elapsed time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.RenderDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.Renders.Add(ctx, 1, attrs)
}

func (m *Metrics) KeyPressed(eventType string) {
	m.Keys.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", eventType)))
}
