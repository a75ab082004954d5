package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thereceipt/printer-tool/internal/command"
	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
	"github.com/thereceipt/printer-tool/internal/logger"
	"github.com/thereceipt/printer-tool/internal/spooler"
	"github.com/thereceipt/printer-tool/internal/tui"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var verbose, version bool
	flag.StringVar(&configPath, "config", "", "config file (default: "+config.DefaultFile+")")
	flag.BoolVar(&verbose, "verbose", false, "log debug output to stderr")
	flag.BoolVar(&verbose, "v", false, "log debug output to stderr (short)")
	flag.BoolVar(&version, "version", false, "print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if version {
		fmt.Println(Version)
		return 0
	}
	if flag.NArg() == 0 {
		printUsage()
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.Init(level, os.Stderr)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sp := spooler.New(spooler.Options{SumatraPath: cfg.Spooler.Sumatra}, log.Named("spooler"))
	orch := job.NewOrchestrator(sp, log.Named("job"))

	args := flag.Args()
	if args[0] == "tui" {
		if err := tui.Run(ctx, orch, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	exec := command.NewExecutor(orch, sp, cfg)
	result := exec.Run(ctx, args)

	if !result.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Error)
		return 1
	}
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	for _, line := range result.Lines {
		fmt.Println(line)
	}
	return 0
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Printer Tool

Print images on thermal receipt and label printers.

Usage:
  printer-tool [flags] <command> [options]

Flags:
  -config <path>     Config file (default: %s)
  -v, -verbose       Log debug output to stderr
  -version           Print version and exit

Commands:
  list-printers
    List printers known to the OS spooler

  list-usb
    List attached USB devices as VID:PID

  list-serial
    List serial ports

  print --file <path> --mode <escpos|label> --paper <58|80> --connection <usb|windows|serial|network>
    Print an image. Run "printer-tool help" for every print option.

  tui
    Fill in a print job interactively
`, config.DefaultFile)
}
