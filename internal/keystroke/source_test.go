package keystroke

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	ev, ok, err := Decode(`{"type":"keydown","keycode":38,"shift":true,"ctrl":false,"alt":false}`)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Event{Type: TypeKeyDown, Keycode: 38, Shift: true}, ev)

	ev, ok, err = Decode(`{"type":"keyup","keycode":66,"caps":true}`)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, *ev.Caps)

	_, ok, err = Decode(`{"type":"mousemove"}`)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = Decode("  ")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = Decode("{broken")
	require.Error(t, err)
}

func TestSourceReadsStdin(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"keydown","keycode":38}`,
		`Grant accessibility permission to continue`,
		`not json`,
		`{"type":"keyup","keycode":38}`,
	}, "\n")

	var got []Event
	err := Source{Command: []string{StdinCommand}, Stdin: strings.NewReader(input)}.Run(context.Background(), func(ev Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.Equal(t, []Event{
		{Type: TypeKeyDown, Keycode: 38},
		{Type: TypeKeyUp, Keycode: 38},
	}, got)
}

func TestSourceRunsListenerCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	script := filepath.Join(t.TempDir(), "listener")
	body := "#!/bin/sh\necho '{\"type\":\"keydown\",\"keycode\":10}'\necho 'listener ready' >&2\necho '{\"type\":\"keyup\",\"keycode\":10}'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	var got []Event
	err := Source{Command: []string{script}}.Run(context.Background(), func(ev Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, TypeKeyUp, got[1].Type)
}

func TestSourceListenerFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	script := filepath.Join(t.TempDir(), "listener")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 4\n"), 0o755))

	err := Source{Command: []string{script}}.Run(context.Background(), func(Event) {})
	require.ErrorContains(t, err, "key listener exited")

	err = Source{Command: []string{filepath.Join(t.TempDir(), "absent")}}.Run(context.Background(), func(Event) {})
	require.ErrorContains(t, err, "start key listener")

	err = Source{}.Run(context.Background(), func(Event) {})
	require.ErrorIs(t, err, ErrNoListener)
}

func TestSourceStopsOnCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	script := filepath.Join(t.TempDir(), "listener")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := Source{Command: []string{script}}.Run(ctx, func(Event) {})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
