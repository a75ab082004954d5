//go:build windows

package spooler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	printerEnumLocal       = 0x2
	printerEnumConnections = 0x4
)

var (
	modwinspool            = windows.NewLazySystemDLL("winspool.drv")
	procEnumPrinters       = modwinspool.NewProc("EnumPrintersW")
	procGetDefaultPrinterW = modwinspool.NewProc("GetDefaultPrinterW")
)

// printerInfo4 mirrors PRINTER_INFO_4W.
type printerInfo4 struct {
	pPrinterName *uint16
	pServerName  *uint16
	attributes   uint32
}

// winspool enumerates printers through winspool.drv and prints PDFs with
// SumatraPDF.
type winspool struct {
	sumatra string
	run     runFunc
	log     *zap.Logger
}

func newPlatform(opts Options, log *zap.Logger) Spooler {
	exe := opts.SumatraPath
	if exe == "" {
		exe = "SumatraPDF.exe"
	}
	return &winspool{sumatra: exe, run: runCommand, log: log}
}

func (w *winspool) Printers(ctx context.Context) ([]string, error) {
	flags := uintptr(printerEnumLocal | printerEnumConnections)

	var needed, returned uint32
	// first call sizes the buffer
	procEnumPrinters.Call(flags, 0, 4, 0, 0,
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if needed == 0 {
		return nil, nil
	}

	buf := make([]byte, needed)
	r1, _, err := procEnumPrinters.Call(flags, 0, 4,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed),
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if r1 == 0 {
		return nil, fmt.Errorf("%w: EnumPrinters failed: %v", ErrSpooler, err)
	}

	infos := unsafe.Slice((*printerInfo4)(unsafe.Pointer(&buf[0])), returned)
	names := make([]string, 0, returned)
	for _, info := range infos {
		names = append(names, windows.UTF16PtrToString(info.pPrinterName))
	}
	sort.Strings(names)
	w.log.Debug("system printers retrieved", zap.Int("count", len(names)))
	return names, nil
}

func (w *winspool) Submit(ctx context.Context, path, printer string) error {
	if printer == "" {
		printer = defaultPrinter()
	}

	args := []string{"-silent", "-exit-when-done"}
	if printer != "" {
		args = append(args, "-print-to", printer)
	} else {
		args = append(args, "-print-to-default")
	}
	args = append(args, path)

	out, err := w.run(ctx, w.sumatra, args...)
	if err != nil {
		return fmt.Errorf("%w: %s failed: %v (output: %s)", ErrSpooler, w.sumatra, err, strings.TrimSpace(string(out)))
	}
	w.log.Debug("print job submitted", zap.String("printer", printer), zap.String("file", path))
	return nil
}

// defaultPrinter returns the user's default printer, or "" when none is set.
func defaultPrinter() string {
	var size uint32
	procGetDefaultPrinterW.Call(0, uintptr(unsafe.Pointer(&size)))
	if size == 0 {
		return ""
	}
	buf := make([]uint16, size)
	r1, _, _ := procGetDefaultPrinterW.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r1 == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}
