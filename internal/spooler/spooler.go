// Package spooler hands documents to the operating system print spooler.
package spooler

import (
	"context"
	"errors"
	"os/exec"

	"go.uber.org/zap"
)

// ErrSpooler marks failures to enumerate printers or submit a job.
var ErrSpooler = errors.New("spooler error")

// Spooler enumerates OS printers and submits PDF files to them.
type Spooler interface {
	// Printers returns printer names sorted alphabetically.
	Printers(ctx context.Context) ([]string, error)
	// Submit prints the PDF at path. An empty printer selects the OS default.
	Submit(ctx context.Context, path, printer string) error
}

// Options configures the platform spooler.
type Options struct {
	// SumatraPath is the SumatraPDF executable used for silent printing on windows.
	SumatraPath string
}

// runFunc runs an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// New returns the spooler for the current platform.
func New(opts Options, log *zap.Logger) Spooler {
	if log == nil {
		log = zap.NewNop()
	}
	return newPlatform(opts, log)
}
