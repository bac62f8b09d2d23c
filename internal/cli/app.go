// Package cli wires configuration, engines and the download service into the
// ytgrab command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"

	"github.com/ytget/ytgrab/internal/engine"
	"github.com/ytget/ytgrab/internal/progress"
)

// App holds the process dependencies of the commands
type App struct {
	Version  string
	In       io.Reader
	Out      io.Writer // user-facing result lines and progress
	Err      io.Writer // logs
	Terminal bool      // Out is an interactive terminal

	// NewEngine constructs the download engine selected by name
	NewEngine func(name string, cfg engine.Config) (engine.Engine, error)
	// ReadClipboard returns a URL copied to the system clipboard
	ReadClipboard func() (string, error)
	// Getwd returns the directory relative paths are resolved against
	Getwd func() (string, error)
}

// NewApp returns an App bound to the process stdio
func NewApp(version string) *App {
	return &App{
		Version:       version,
		In:            os.Stdin,
		Out:           colorable.NewColorableStdout(),
		Err:           colorable.NewColorableStderr(),
		Terminal:      progress.IsTerminal(os.Stdout),
		NewEngine:     engine.New,
		ReadClipboard: ReadClipboardURL,
		Getwd:         os.Getwd,
	}
}

// Execute runs the command line. Ctrl-C cancels a running download.
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(version)
	if err := NewRootCmd(app).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newLogger returns a text logger on the error stream
func (a *App) newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: level}))
}
