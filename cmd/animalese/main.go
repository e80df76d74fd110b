// Command animalese speaks keystrokes and text in animal-crossing style
// voices and renders the same sounds to WAV files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/animalese/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run cancels the command context on SIGINT or SIGTERM so a listening daemon
// shuts down cleanly.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Execute(ctx, args, os.Stdout, os.Stderr)
}
