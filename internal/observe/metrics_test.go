package observe

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counts maps one attribute's values to their counter totals.
func counts(t *testing.T, rm metricdata.ResourceMetrics, name, key string) map[string]int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", name, m.Data)

	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestObserverCounters(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.SoundPlayed("voice")
	m.SoundPlayed("voice")
	m.SoundPlayed("sfx")
	m.SoundDropped("held")
	m.KeyPressed("keydown")
	m.KeyPressed("keyup")
	m.KeyPressed("keydown")

	rm := collect(t, reader)
	require.Equal(t, map[string]int64{"voice": 2, "sfx": 1}, counts(t, rm, "animalese.sounds.played", "bank"))
	require.Equal(t, map[string]int64{"held": 1}, counts(t, rm, "animalese.sounds.dropped", "reason"))
	require.Equal(t, map[string]int64{"keydown": 2, "keyup": 1}, counts(t, rm, "animalese.keys", "type"))
}

func TestRenderCompleted(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RenderCompleted("ok", 120*time.Millisecond)
	m.RenderCompleted("engine_failure", 2*time.Second)

	rm := collect(t, reader)
	require.Equal(t, map[string]int64{"ok": 1, "engine_failure": 1}, counts(t, rm, "animalese.renders", "status"))

	hist := findMetric(rm, "animalese.render.duration")
	require.NotNil(t, hist)
	require.Equal(t, "s", hist.Unit)
	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	require.Equal(t, uint64(2), total)
}

func TestInitProviderExposesPrometheus(t *testing.T) {
	p, err := InitProvider(ProviderConfig{ServiceVersion: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider)
	require.NoError(t, err)
	m.SoundPlayed("voice")

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "animalese_sounds_played")
}

func TestServeStopsOnCancel(t *testing.T) {
	p, err := InitProvider(ProviderConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.serve(ctx, listener, nil) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + listener.Addr().String() + "/metrics")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
