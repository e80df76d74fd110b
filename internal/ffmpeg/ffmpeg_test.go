package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func noPath(string) (string, error) { return "", errors.New("not found") }

func TestLocateOrder(t *testing.T) {
	dir := t.TempDir()
	configured := writeScript(t, dir, "my-ffmpeg", "exit 0")

	got, err := Locate(LocateOptions{Binary: configured, LookPath: noPath})
	require.NoError(t, err)
	require.Equal(t, configured, got)

	bundledDir := t.TempDir()
	bundled := writeScript(t, bundledDir, "ffmpeg", "exit 0")
	got, err = Locate(LocateOptions{BundledDir: bundledDir, LookPath: noPath})
	require.NoError(t, err)
	require.Equal(t, bundled, got)

	got, err = Locate(LocateOptions{
		BundledDir: t.TempDir(),
		LookPath: func(file string) (string, error) {
			require.Equal(t, "ffmpeg", file)
			return "/usr/bin/ffmpeg", nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/ffmpeg", got)
}

func TestLocateMissing(t *testing.T) {
	_, err := Locate(LocateOptions{LookPath: noPath})
	require.ErrorIs(t, err, ErrEngineMissing)
	require.Contains(t, err.Error(), "Please install FFmpeg and add it to your system PATH")

	_, err = Locate(LocateOptions{Binary: filepath.Join(t.TempDir(), "nope"), LookPath: noPath})
	require.ErrorIs(t, err, ErrEngineMissing)
	require.Contains(t, err.Error(), "nope")
}

func TestRunCapturesStdout(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "ffmpeg", `echo "ffmpeg version 7.1" ; echo "diag" >&2`)

	out, err := Runner{Binary: bin}.Output(context.Background(), []string{"-version"})
	require.NoError(t, err)
	require.Equal(t, "ffmpeg version 7.1\n", string(out))

	version, err := Runner{Binary: bin}.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ffmpeg version 7.1", version)
}

func TestRunNonZeroExitCarriesDiagnostics(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "ffmpeg", `echo "Invalid filtergraph" >&2; exit 3`)

	err := Runner{Binary: bin}.Run(context.Background(), []string{"-y"}, nil)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)
	require.Contains(t, exitErr.Stderr, "Invalid filtergraph")
}

func TestRunMissingBinary(t *testing.T) {
	err := Runner{Binary: filepath.Join(t.TempDir(), "absent")}.Run(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrEngineMissing)

	err = Runner{}.Run(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrEngineMissing)
}

func TestRunCancelKillsProcess(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "ffmpeg", `exec sleep 30`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Runner{Binary: bin}.Run(ctx, nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestTailBufferKeepsEnd(t *testing.T) {
	tail := &tailBuffer{limit: 8}
	tail.WriteLine("abcdef")
	tail.WriteLine("xyz")
	require.Equal(t, "def\nxyz\n", tail.String())
}

func TestRunDrainsOverlongStderrLine(t *testing.T) {
	body := `head -c 2100000 /dev/zero | tr '\000' x >&2; echo >&2; echo "after" >&2; echo done; exit 5`
	bin := writeScript(t, t.TempDir(), "ffmpeg", body)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := Runner{Binary: bin}.Run(ctx, nil, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 5, exitErr.Code)
	require.Contains(t, exitErr.Stderr, "token too long")
	require.Equal(t, "done\n", out.String())
}
