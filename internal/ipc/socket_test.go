package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveStatus(t *testing.T, listener net.Listener) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "listening"}
		}))
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestClaimReplacesStaleSocketFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), SocketName)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	sock, err := Claim(context.Background(), path, ClaimOptions{ProbeTimeout: 50 * time.Millisecond, Attempts: 3})
	require.NoError(t, err)
	require.Equal(t, path, sock.Path())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, info.Mode().Type())
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, sock.Close())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, sock.Close(), "second close is a no-op")
}

func TestClaimRefusesLiveOwner(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), SocketName)
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	serveStatus(t, listener)

	_, err = Claim(context.Background(), path, ClaimOptions{ProbeTimeout: 80 * time.Millisecond, Attempts: 2})
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestClaimKeepsSocketWhenOwnerDoesNotAnswer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), SocketName)
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				time.Sleep(250 * time.Millisecond)
			}(conn)
		}
	}()

	_, err = Claim(context.Background(), path, ClaimOptions{ProbeTimeout: 30 * time.Millisecond})
	require.ErrorContains(t, err, "probe existing socket")
	require.NotErrorIs(t, err, ErrAlreadyRunning)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
	<-acceptDone
}

func TestClaimCreatesRuntimeDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "run", SocketName)
	sock, err := Claim(context.Background(), path, ClaimOptions{})
	require.NoError(t, err)
	require.NoError(t, sock.Close())
}

func TestRuntimeSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	_, err := RuntimeSocketPath()
	require.ErrorContains(t, err, "XDG_RUNTIME_DIR")

	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "animalese.sock"), path)
}
