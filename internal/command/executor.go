// Package command implements the printer-tool commands. The CLI passes its
// arguments here and the HTTP server passes command strings typed by users.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
	"github.com/thereceipt/printer-tool/internal/printer"
	"github.com/thereceipt/printer-tool/internal/spooler"
)

// Runner runs a validated print request.
type Runner interface {
	Run(ctx context.Context, req job.Request) (*job.Result, error)
}

// Executor executes commands
type Executor struct {
	Runner  Runner
	Spooler spooler.Spooler
	Config  config.Config

	// Queue, when set, makes print enqueue instead of printing inline.
	Queue *job.Queue

	// AllowLocalFiles permits --output and --preview and any --file path.
	// When false, --file must resolve under FileRoot.
	AllowLocalFiles bool
	FileRoot        string

	ListUSB    func() ([]printer.USBDevice, error)
	ListSerial func() ([]string, error)
}

// NewExecutor creates an executor using the real device enumerators.
func NewExecutor(runner Runner, sp spooler.Spooler, cfg config.Config) *Executor {
	return &Executor{
		Runner:  runner,
		Spooler: sp,
		Config:  cfg,

		AllowLocalFiles: true,

		ListUSB:    printer.ListUSBDevices,
		ListSerial: printer.ListSerialPorts,
	}
}

// Result represents the result of executing a command
type Result struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Lines     []string       `json:"lines,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

func failure(err error) *Result {
	return &Result{
		Success:   false,
		Error:     err.Error(),
		ErrorKind: job.Kind(err),
	}
}

// Execute parses a command string and runs it.
func (e *Executor) Execute(ctx context.Context, cmdStr string) *Result {
	return e.Run(ctx, parseCommand(cmdStr))
}

// Run executes one command given as argv.
func (e *Executor) Run(ctx context.Context, parts []string) *Result {
	if len(parts) == 0 {
		return &Result{
			Success: false,
			Error:   "empty command",
		}
	}

	command := parts[0]
	args := parts[1:]

	// Route to appropriate handler
	switch command {
	case "print":
		return e.handlePrint(ctx, args)
	case "list-printers":
		return e.handleListPrinters(ctx)
	case "list-usb":
		return e.handleListUSB()
	case "list-serial":
		return e.handleListSerial()
	case "help", "-h", "--help":
		return e.handleHelp()
	default:
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("unknown command: %s. Type 'help' for available commands", command),
		}
	}
}

// parseCommand parses a command string into parts, handling quoted strings
func parseCommand(cmdStr string) []string {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return []string{}
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	quoted := false
	quoteChar := byte(0)

	for i := 0; i < len(cmdStr); i++ {
		char := cmdStr[i]

		switch {
		case (char == '"' || char == '\'') && !inQuotes:
			inQuotes, quoted, quoteChar = true, true, char
		case inQuotes && char == quoteChar:
			inQuotes, quoteChar = false, 0
		case (char == ' ' || char == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				parts = append(parts, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 || quoted {
		parts = append(parts, current.String())
	}

	return parts
}
