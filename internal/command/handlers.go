package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
)

const (
	msgNoPrinters = "No printers detected."
	msgNoUSB      = "No USB devices detected."
	msgNoSerial   = "No serial ports detected."
	msgPrinted    = "Print job sent successfully."
)

// DefaultOptions returns print options prefilled from the configuration.
func DefaultOptions(cfg config.Config) job.Options {
	return job.Options{
		Mode:         cfg.Print.Mode,
		Paper:        cfg.Print.Paper,
		PrinterName:  cfg.Spooler.Printer,
		USBVID:       cfg.USB.VID,
		USBPID:       cfg.USB.PID,
		USBInterface: strconv.Itoa(cfg.USB.Interface),
		DPI:          formatFloat(cfg.Print.DPI),
		Threshold:    formatFloat(cfg.Print.Threshold),
		Darkness:     strconv.Itoa(cfg.Print.Darkness),
		SerialPort:   cfg.Serial.Port,
		Baud:         strconv.Itoa(cfg.Serial.Baud),
		Host:         cfg.Network.Host,
		Port:         strconv.Itoa(cfg.Network.Port),
	}
}

// printFlags binds the print options to a flag set whose defaults come from
// the configuration.
func (e *Executor) printFlags(opts *job.Options) *flag.FlagSet {
	def := DefaultOptions(e.Config)
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.File, "file", "", "image file to print")
	fs.StringVar(&opts.Mode, "mode", def.Mode, "printer language: escpos or label")
	fs.StringVar(&opts.Paper, "paper", def.Paper, "paper width: 58 or 80")
	fs.StringVar(&opts.Connection, "connection", "", "usb, windows, serial or network")
	fs.StringVar(&opts.PrinterName, "printer-name", def.PrinterName, "OS printer name (windows connection)")
	fs.StringVar(&opts.USBVID, "usb-vid", def.USBVID, "USB vendor id")
	fs.StringVar(&opts.USBPID, "usb-pid", def.USBPID, "USB product id")
	fs.StringVar(&opts.USBInterface, "usb-interface", def.USBInterface, "USB interface number")
	fs.StringVar(&opts.DPI, "dpi", def.DPI, "printer resolution")
	fs.StringVar(&opts.Threshold, "threshold", def.Threshold, "black threshold 0-255")
	fs.StringVar(&opts.Darkness, "darkness", def.Darkness, "darkness 50-180")
	fs.StringVar(&opts.SerialPort, "serial-port", def.SerialPort, "serial device")
	fs.StringVar(&opts.Baud, "baud", def.Baud, "serial baud rate")
	fs.StringVar(&opts.Host, "host", def.Host, "raw TCP printer host")
	fs.StringVar(&opts.Port, "port", def.Port, "raw TCP printer port")
	fs.StringVar(&opts.Output, "output", "", "write the job to this file instead of printing")
	fs.StringVar(&opts.Preview, "preview", "", "write a PNG preview of the bitmap")
	return fs
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// localFile checks the options that reach the local filesystem when the
// executor serves remote callers and returns the input path to open.
// Remote input files are resolved under FileRoot and may not leave it.
func (e *Executor) localFile(opts job.Options) (string, error) {
	if e.AllowLocalFiles {
		return opts.File, nil
	}
	if opts.Output != "" {
		return "", fmt.Errorf("%w: --output is not available here", job.ErrValidation)
	}
	if opts.Preview != "" {
		return "", fmt.Errorf("%w: --preview is not available here", job.ErrValidation)
	}
	if e.FileRoot == "" {
		return "", fmt.Errorf("%w: local files are not available here, upload the image instead", job.ErrValidation)
	}
	root, err := filepath.Abs(e.FileRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %v", job.ErrValidation, err)
	}
	file := opts.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}
	file = filepath.Clean(file)
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", job.ErrValidation, opts.File, e.FileRoot)
	}
	return file, nil
}

// handlePrint handles print commands
// Usage: print --file <path> --mode <escpos|label> --paper <58|80> --connection <usb|windows|serial|network> [options]
func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	var opts job.Options
	fs := e.printFlags(&opts)
	if err := fs.Parse(args); err != nil {
		return failure(fmt.Errorf("%w: %v", job.ErrValidation, err))
	}
	if fs.NArg() > 0 {
		return failure(fmt.Errorf("%w: unexpected argument %q", job.ErrValidation, fs.Arg(0)))
	}

	req, err := job.Parse(opts)
	if err != nil {
		return failure(err)
	}
	if req.File, err = e.localFile(opts); err != nil {
		return failure(err)
	}

	if e.Queue != nil {
		id := e.Queue.Enqueue(req, nil)
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Print job %s queued.", id),
			Data:    map[string]any{"job_id": id},
		}
	}

	if e.Runner == nil {
		return failure(errors.New("no print runner configured"))
	}
	res, err := e.Runner.Run(ctx, req)
	if err != nil {
		return failure(err)
	}

	msg := msgPrinted
	if req.Output != "" {
		msg = fmt.Sprintf("Print job written to %s.", req.Output)
	}
	return &Result{
		Success: true,
		Message: msg,
		Data: map[string]any{
			"job_id": res.ID,
			"width":  res.Width,
			"height": res.Height,
			"bytes":  res.Bytes,
		},
	}
}

// handleListPrinters lists OS spooler printers
func (e *Executor) handleListPrinters(ctx context.Context) *Result {
	if e.Spooler == nil {
		return failure(fmt.Errorf("%w: no spooler available", job.ErrSpooler))
	}
	names, err := e.Spooler.Printers(ctx)
	if err != nil {
		return failure(err)
	}
	if len(names) == 0 {
		return &Result{Success: true, Message: msgNoPrinters}
	}
	return &Result{Success: true, Lines: names}
}

// handleListUSB lists attached USB devices as "VID:PID vvvv:pppp"
func (e *Executor) handleListUSB() *Result {
	if e.ListUSB == nil {
		return &Result{Success: true, Message: msgNoUSB}
	}
	devices, err := e.ListUSB()
	if err != nil {
		return failure(err)
	}
	if len(devices) == 0 {
		return &Result{Success: true, Message: msgNoUSB}
	}
	lines := make([]string, len(devices))
	for i, d := range devices {
		lines[i] = d.String()
	}
	return &Result{Success: true, Lines: lines}
}

// handleListSerial lists serial ports
func (e *Executor) handleListSerial() *Result {
	if e.ListSerial == nil {
		return &Result{Success: true, Message: msgNoSerial}
	}
	ports, err := e.ListSerial()
	if err != nil {
		return failure(err)
	}
	if len(ports) == 0 {
		return &Result{Success: true, Message: msgNoSerial}
	}
	return &Result{Success: true, Lines: ports}
}

// handleHelp shows help
func (e *Executor) handleHelp() *Result {
	return &Result{
		Success: true,
		Lines: []string{
			"Available commands:",
			"  list-printers                 List OS spooler printers",
			"  list-usb                      List USB devices as VID:PID",
			"  list-serial                   List serial ports",
			"  print --file <path> --mode <escpos|label> --paper <58|80> --connection <usb|windows|serial|network>",
			"        [--printer-name <name>] [--usb-vid <id>] [--usb-pid <id>] [--usb-interface <n>]",
			"        [--dpi <n>] [--threshold <0-255>] [--darkness <50-180>]",
			"        [--serial-port <dev>] [--baud <n>] [--host <host>] [--port <n>]",
			"        [--output <file>] [--preview <png>]",
		},
	}
}
