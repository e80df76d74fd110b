// Package doctor runs runtime readiness diagnostics for config, ffmpeg,
// sprite assets, the output device, and a running daemon.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/animalese/internal/audio"
	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/config"
	"github.com/rbright/animalese/internal/ffmpeg"
	"github.com/rbright/animalese/internal/health"
	"github.com/rbright/animalese/internal/ipc"
	"github.com/rbright/animalese/internal/keystroke"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkFFmpeg(ctx, cfg.Render))
	checks = append(checks, checkAssets(cfg))
	checks = append(checks, checkListener(cfg.Listener.Command.Argv))
	checks = append(checks, checkOutput(ctx, cfg.Playback))
	checks = append(checks, checkDaemon(ctx))
	if strings.TrimSpace(cfg.Health.Listen) != "" {
		checks = append(checks, checkHealth(ctx, cfg.Health.Listen))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func checkFFmpeg(ctx context.Context, cfg config.RenderConfig) Check {
	binary, err := ffmpeg.Locate(ffmpeg.LocateOptions{Binary: cfg.FFmpeg, BundledDir: cfg.BundledDir})
	if err != nil {
		return Check{Name: "ffmpeg", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	version, err := ffmpeg.Runner{Binary: binary}.Version(ctx)
	if err != nil {
		return Check{Name: "ffmpeg", Pass: false, Message: fmt.Sprintf("%s does not run: %v", binary, err)}
	}
	return Check{Name: "ffmpeg", Pass: true, Message: fmt.Sprintf("%s (%s)", binary, version)}
}

// checkAssets requires the containers the configured voice and instrument
// use, and reports how many of the rest are absent.
func checkAssets(cfg config.Config) Check {
	root, err := cfg.Assets.AssetRoot()
	if err != nil {
		return Check{Name: "assets", Pass: false, Message: err.Error()}
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Check{Name: "assets", Pass: false, Message: fmt.Sprintf("asset directory %q not found", root)}
	}

	ext := cfg.Assets.Extension
	required := []string{
		filepath.Join("voice", cfg.Voice.Type+ext),
		filepath.Join("instrument", cfg.Note.Instrument+ext),
		"sfx" + ext,
	}
	for _, rel := range required {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			return Check{Name: "assets", Pass: false, Message: fmt.Sprintf("missing %s under %s", rel, root)}
		}
	}

	containers := catalog.New(catalog.Options{Extension: ext}).Containers()
	missing := 0
	for _, container := range containers {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(container))); err != nil {
			missing++
		}
	}
	message := fmt.Sprintf("%d containers under %s", len(containers)-missing, root)
	if missing > 0 {
		message += fmt.Sprintf(" (%d optional containers missing)", missing)
	}
	return Check{Name: "assets", Pass: true, Message: message}
}

func checkListener(argv []string) Check {
	if len(argv) == 1 && argv[0] == keystroke.StdinCommand {
		return Check{Name: "listener.command", Pass: true, Message: "reads key events from stdin"}
	}
	return checkCommand(argv, "listener.command")
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkOutput runs live sink selection to surface selection/fallback issues.
func checkOutput(ctx context.Context, cfg config.PlaybackConfig) Check {
	selection, err := audio.SelectSink(ctx, cfg.Device, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Sink.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.output", Pass: true, Message: message}
}

// checkDaemon is informational: a stopped daemon is not a failure.
func checkDaemon(ctx context.Context) Check {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "daemon", Pass: false, Message: err.Error()}
	}
	running, err := ipc.Probe(ctx, socketPath, probeTimeout)
	if err != nil {
		return Check{Name: "daemon", Pass: false, Message: err.Error()}
	}
	if !running {
		return Check{Name: "daemon", Pass: true, Message: "not running"}
	}
	return Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("running at %s", socketPath)}
}

func checkHealth(ctx context.Context, addr string) Check {
	status, err := health.Probe(ctx, addr, probeTimeout)
	if err != nil {
		return Check{Name: "health", Pass: false, Message: fmt.Sprintf("probe %s: %v", addr, err)}
	}
	return Check{Name: "health", Pass: true, Message: fmt.Sprintf("%s at %s", status, addr)}
}
