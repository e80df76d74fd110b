// Package audio decodes sprite containers, mixes playing voices, and feeds
// the mix to a Pulse playback stream.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	clientName     = "animalese"
	clientIconName = "audio-speakers"
)

// Sink describes one Pulse output device.
type Sink struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved output sink plus fallback context.
type Selection struct {
	Sink     Sink
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(clientName),
		pulse.ClientApplicationIconName(clientIconName),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListSinks returns the Pulse output sinks with default/availability metadata.
func ListSinks(_ context.Context) ([]Sink, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	defaultID := defaultSink.ID()

	var infos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	sinks := make([]Sink, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		sinks = append(sinks, Sink{
			ID:          info.SinkName,
			Description: info.Device,
			State:       sinkStateString(info.State),
			Available:   sinkAvailable(info),
			Muted:       info.Mute,
			Default:     info.SinkName == defaultID,
		})
	}
	return sinks, nil
}

// SelectSink resolves the configured output and fallback against live sinks.
func SelectSink(ctx context.Context, output string, fallback string) (Selection, error) {
	sinks, err := ListSinks(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectSinkFromList(sinks, output, fallback)
}

func selectSinkFromList(sinks []Sink, output string, fallback string) (Selection, error) {
	if len(sinks) == 0 {
		return Selection{}, errors.New("no audio output sinks found")
	}

	output = strings.TrimSpace(strings.ToLower(output))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	var defaultSink, byOutput, byFallback *Sink
	for i := range sinks {
		s := &sinks[i]
		if s.Default {
			defaultSink = s
		}
		if byOutput == nil && !isDefaultTerm(output) && sinkMatches(*s, output) {
			byOutput = s
		}
		if byFallback == nil && !isDefaultTerm(fallback) && sinkMatches(*s, fallback) {
			byFallback = s
		}
	}

	var primary *Sink
	switch {
	case isDefaultTerm(output):
		if defaultSink == nil {
			return Selection{}, errors.New("default audio sink is unavailable")
		}
		primary = defaultSink
	case byOutput != nil:
		primary = byOutput
	default:
		return Selection{}, fmt.Errorf("audio.output %q did not match any sink", output)
	}
	if primary.Available {
		return Selection{Sink: *primary}, nil
	}

	alternate := defaultSink
	if !isDefaultTerm(fallback) {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("output %q is unavailable and fallback %q not found", primary.ID, fallback)
		}
		alternate = byFallback
	}
	if alternate == nil {
		return Selection{}, fmt.Errorf("output %q is unavailable and no default sink exists", primary.ID)
	}
	if !alternate.Available {
		return Selection{}, fmt.Errorf("audio fallback sink %q is not available", alternate.ID)
	}

	return Selection{
		Sink:     *alternate,
		Warning:  fmt.Sprintf("audio.output %q is unavailable; falling back to %q", primary.ID, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

func isDefaultTerm(term string) bool {
	return term == "" || term == "default"
}

// sinkMatches reports whether a search term matches a sink id or description.
func sinkMatches(sink Sink, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(sink.ID), term) ||
		strings.Contains(strings.ToLower(sink.Description), term)
}

func sinkStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sinkAvailable maps the active port availability to a boolean.
func sinkAvailable(info *pulseproto.GetSinkInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name != info.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
