// Package job validates print requests and drives them through the
// rasterize, encode and dispatch pipeline.
package job

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thereceipt/printer-tool/internal/paper"
	"github.com/thereceipt/printer-tool/internal/pdf"
	"github.com/thereceipt/printer-tool/internal/printer"
	"github.com/thereceipt/printer-tool/internal/raster"
	"github.com/thereceipt/printer-tool/internal/renderer"
	"github.com/thereceipt/printer-tool/internal/spooler"
)

// State is a pipeline stage. Stages only move forward; Failed is terminal.
type State int

const (
	StateValidated State = iota
	StateGeometryComputed
	StateImageRasterized
	StatePayloadEncoded
	StateDispatched
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateValidated:        "validated",
	StateGeometryComputed: "geometry_computed",
	StateImageRasterized:  "image_rasterized",
	StatePayloadEncoded:   "payload_encoded",
	StateDispatched:       "dispatched",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ImageLoader decodes an image file and fits it to a pixel width.
type ImageLoader interface {
	LoadGray(path string, width, darkness int) (*image.Gray, error)
	LoadPNG(path string, width, darkness int) ([]byte, image.Point, error)
}

// USBSender writes a payload to a USB printer.
type USBSender interface {
	Send(ctx context.Context, target printer.USBTarget, payload []byte) error
}

// SerialSender writes a payload to a serial printer.
type SerialSender interface {
	Send(ctx context.Context, device string, baud int, payload []byte) error
}

// NetworkSender writes a payload to a raw TCP printer.
type NetworkSender interface {
	Send(ctx context.Context, host string, port int, payload []byte) error
}

// Result describes a finished job.
type Result struct {
	ID       string
	Geometry paper.Geometry
	Width    int // image width in pixels
	Height   int // image height in pixels
	Bytes    int // payload or PDF size
	Output   string
}

// Orchestrator runs one print request at a time. Collaborators left nil
// make the matching connection fail.
type Orchestrator struct {
	Images  ImageLoader
	USB     USBSender
	Serial  SerialSender
	Network NetworkSender
	Spooler spooler.Spooler
	Log     *zap.Logger

	// OnState, when set, observes every transition.
	OnState func(id string, s State)
	// TempDir holds transient PDFs; empty means os.TempDir().
	TempDir string
}

// NewOrchestrator wires the production collaborators.
func NewOrchestrator(sp spooler.Spooler, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		Images:  renderer.Loader{},
		USB:     printer.NewUSBTransport(log.Named("usb")),
		Serial:  printer.NewSerialTransport(log.Named("serial")),
		Network: printer.NewNetworkTransport(log.Named("network")),
		Spooler: sp,
		Log:     log,
	}
}

type run struct {
	o   *Orchestrator
	id  string
	req Request
	log *zap.Logger
	res *Result
}

// Run executes req and returns once the job is done or has failed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	return o.RunWithID(ctx, uuid.NewString(), req)
}

// RunWithID is Run with a caller-chosen job id.
func (o *Orchestrator) RunWithID(ctx context.Context, id string, req Request) (*Result, error) {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &run{
		o:   o,
		id:  id,
		req: req,
		log: log.With(zap.String("job_id", id)),
		res: &Result{ID: id, Output: req.Output},
	}

	if err := r.execute(ctx); err != nil {
		r.transition(StateFailed, zap.Error(err))
		return r.res, err
	}
	r.transition(StateDone)
	return r.res, nil
}

func (r *run) transition(s State, fields ...zap.Field) {
	r.log.Debug("job state", append(fields, zap.Stringer("state", s))...)
	if r.o.OnState != nil {
		r.o.OnState(r.id, s)
	}
}

func (r *run) execute(ctx context.Context) error {
	if err := checkReadable(r.req.File); err != nil {
		return err
	}
	r.transition(StateValidated,
		zap.String("file", r.req.File),
		zap.String("mode", string(r.req.Mode)),
		zap.String("connection", string(r.req.Connection)))

	g := r.req.Geometry()
	r.res.Geometry = g
	r.transition(StateGeometryComputed,
		zap.Int("total_width", g.TotalWidth),
		zap.Int("printable_width", g.PrintableWidth))

	if r.req.Connection == ConnWindows {
		return r.printPDF(ctx, g)
	}
	return r.printRaw(ctx, g)
}

func (r *run) printRaw(ctx context.Context, g paper.Geometry) error {
	if r.o.Images == nil {
		return fmt.Errorf("%w: no image loader configured", ErrInputFile)
	}
	gray, err := r.o.Images.LoadGray(r.req.File, g.PrintableWidth, r.req.Darkness)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputFile, err)
	}
	img, err := raster.PackGray(gray, r.req.Threshold)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputFile, err)
	}
	r.res.Width, r.res.Height = img.Width(), img.Height()
	r.transition(StateImageRasterized, zap.Int("width", img.Width()), zap.Int("height", img.Height()))

	if r.req.Preview != "" {
		if err := renderer.WritePreview(r.req.Preview, img, g); err != nil {
			r.log.Warn("preview not written", zap.String("path", r.req.Preview), zap.Error(err))
		}
	}

	payload, err := r.req.Mode.Encode(img)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	r.res.Bytes = len(payload)
	r.transition(StatePayloadEncoded, zap.Int("bytes", len(payload)))

	if err := r.dispatchRaw(ctx, payload); err != nil {
		return err
	}
	r.transition(StateDispatched)
	return nil
}

func (r *run) dispatchRaw(ctx context.Context, payload []byte) error {
	if r.req.Output != "" {
		if err := os.WriteFile(r.req.Output, payload, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	switch r.req.Connection {
	case ConnUSB:
		if r.o.USB == nil {
			return fmt.Errorf("%w: usb transport unavailable", ErrDeviceNotFound)
		}
		return r.o.USB.Send(ctx, r.req.USB, payload)
	case ConnSerial:
		if r.o.Serial == nil {
			return fmt.Errorf("%w: serial transport unavailable", ErrDeviceNotFound)
		}
		return r.o.Serial.Send(ctx, r.req.SerialPort, r.req.Baud, payload)
	case ConnNetwork:
		if r.o.Network == nil {
			return fmt.Errorf("%w: network transport unavailable", ErrDeviceNotFound)
		}
		return r.o.Network.Send(ctx, r.req.Host, r.req.Port, payload)
	}
	return fmt.Errorf("%w: connection %q carries no raw payload", ErrValidation, r.req.Connection)
}

// printPDF places the resized grayscale image on a page as wide as the
// paper and as tall as the image at the requested dpi, then hands it to the
// spooler. The temporary PDF is always removed.
func (r *run) printPDF(ctx context.Context, g paper.Geometry) error {
	if r.o.Images == nil {
		return fmt.Errorf("%w: no image loader configured", ErrInputFile)
	}
	png, size, err := r.o.Images.LoadPNG(r.req.File, g.PrintableWidth, r.req.Darkness)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputFile, err)
	}
	r.res.Width, r.res.Height = size.X, size.Y
	r.transition(StateImageRasterized, zap.Int("width", size.X), zap.Int("height", size.Y))

	widthMM := r.req.Paper.WidthMM()
	heightMM := paper.MMFromPixels(size.Y, r.req.DPI)
	if math.IsNaN(heightMM) || math.IsInf(heightMM, 0) || heightMM <= 0 {
		heightMM = paper.MMFromPixels(g.TotalWidth, r.req.DPI)
	}

	if r.req.Output != "" {
		n, err := writePDFFile(r.req.Output, png, widthMM, heightMM)
		if err != nil {
			return err
		}
		r.res.Bytes = n
		r.transition(StatePayloadEncoded, zap.Int("bytes", n))
		r.transition(StateDispatched)
		return nil
	}

	if r.o.Spooler == nil {
		return fmt.Errorf("%w: no spooler available", ErrSpooler)
	}

	f, err := os.CreateTemp(r.o.TempDir, "print-bmp-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpooler, err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.Debug("temporary pdf not removed", zap.String("path", path), zap.Error(err))
		}
	}()

	err = pdf.Write(f, png, paper.PointsFromMM(widthMM), paper.PointsFromMM(heightMM))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpooler, err)
	}
	if st, err := os.Stat(path); err == nil {
		r.res.Bytes = int(st.Size())
	}
	r.transition(StatePayloadEncoded, zap.Int("bytes", r.res.Bytes), zap.Float64("height_mm", heightMM))

	if err := r.o.Spooler.Submit(ctx, path, r.req.PrinterName); err != nil {
		if !errors.Is(err, ErrSpooler) {
			err = fmt.Errorf("%w: %v", ErrSpooler, err)
		}
		return err
	}
	r.transition(StateDispatched, zap.String("printer", r.req.PrinterName))
	return nil
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

func writePDFFile(path string, png []byte, widthMM, heightMM float64) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to write output: %w", err)
	}
	cw := &countingWriter{w: f}
	err = pdf.Write(cw, png, paper.PointsFromMM(widthMM), paper.PointsFromMM(heightMM))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSpooler, err)
	}
	return cw.n, nil
}

func checkReadable(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputFile, err)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInputFile, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputFile, err)
	}
	return f.Close()
}
