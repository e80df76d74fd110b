package main

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const childArgsEnv = "ANIMALESE_TEST_MAIN_ARGS"

// TestMain re-enters main when the test binary is started by runMain.
func TestMain(m *testing.M) {
	if raw, ok := os.LookupEnv(childArgsEnv); ok {
		os.Args = append([]string{"animalese"}, strings.Fields(raw)...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runMain(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(),
		childArgsEnv+"="+strings.Join(args, " "),
		"XDG_CONFIG_HOME="+t.TempDir(),
		"XDG_STATE_HOME="+t.TempDir(),
	)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode()
	}
	require.NoError(t, err)
	return string(out), 0
}

func TestMainExitCodes(t *testing.T) {
	tests := []struct {
		args []string
		code int
		want string
	}{
		{args: []string{"--help"}, code: 0, want: "Usage:"},
		{args: []string{"--version"}, code: 0, want: "animalese"},
		{args: []string{"not-a-command"}, code: 2, want: "unknown command"},
		{args: []string{"render", "hi"}, code: 2, want: "--out"},
	}

	for _, tc := range tests {
		t.Run(strings.Join(tc.args, "_"), func(t *testing.T) {
			out, code := runMain(t, tc.args...)
			require.Equal(t, tc.code, code, out)
			require.Contains(t, out, tc.want)
		})
	}
}
