// Package api serves print jobs, device listings and job events over HTTP
// and WebSocket.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thereceipt/printer-tool/internal/command"
	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
	"github.com/thereceipt/printer-tool/internal/printer"
	"github.com/thereceipt/printer-tool/internal/registry"
	"github.com/thereceipt/printer-tool/internal/spooler"
)

// Server is the API server
type Server struct {
	router   *gin.Engine
	cfg      config.Config
	manager  *printer.Manager
	queue    *job.Queue
	spooler  spooler.Spooler
	executor *command.Executor
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new API server. Commands posted to /command enqueue
// print jobs on queue rather than printing inline, and may only read images
// under cfg.Server.FileRoot.
func NewServer(cfg config.Config, manager *printer.Manager, queue *job.Queue, sp spooler.Spooler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(log), corsMiddleware())

	executor := command.NewExecutor(nil, sp, cfg)
	executor.Queue = queue
	executor.AllowLocalFiles = false
	executor.FileRoot = cfg.Server.FileRoot

	server := &Server{
		router:   router,
		cfg:      cfg,
		manager:  manager,
		queue:    queue,
		spooler:  sp,
		executor: executor,
		hub:      NewHub(log),
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/usb", s.handleGetUSB)
	s.router.POST("/usb/:id/name", s.handleSetDeviceName)
	s.router.GET("/serial", s.handleGetSerial)
	s.router.GET("/printers", s.handleGetPrinters)
	s.router.POST("/print", s.handlePrint)
	s.router.GET("/jobs", s.handleGetJobs)
	s.router.POST("/jobs/clear", s.handleClearJobs)
	s.router.GET("/job/:id", s.handleGetJob)

	// Command endpoint
	s.router.POST("/command", s.handleCommand)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub used for job and device events.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) devicesOfKind(kind string) []printer.Device {
	devices := []printer.Device{}
	for _, d := range s.manager.Devices() {
		if d.Kind == kind {
			devices = append(devices, d)
		}
	}
	return devices
}

// handleGetUSB returns attached USB devices with their registry ids
func (s *Server) handleGetUSB(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": s.devicesOfKind(registry.KindUSB)})
}

// handleGetSerial returns serial ports
func (s *Server) handleGetSerial(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": s.devicesOfKind(registry.KindSerial)})
}

// handleSetDeviceName sets a custom name for a device
func (s *Server) handleSetDeviceName(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := s.manager.SetName(c.Param("id"), req.Name); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleGetPrinters returns the OS spooler printers
func (s *Server) handleGetPrinters(c *gin.Context) {
	names, err := s.spooler.Printers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "error_kind": job.Kind(err)})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"printers": names})
}

// formFields maps multipart field names onto print options.
func formFields(o *job.Options) map[string]*string {
	return map[string]*string{
		"mode":          &o.Mode,
		"paper":         &o.Paper,
		"connection":    &o.Connection,
		"printer-name":  &o.PrinterName,
		"usb-vid":       &o.USBVID,
		"usb-pid":       &o.USBPID,
		"usb-interface": &o.USBInterface,
		"dpi":           &o.DPI,
		"threshold":     &o.Threshold,
		"darkness":      &o.Darkness,
		"serial-port":   &o.SerialPort,
		"baud":          &o.Baud,
		"host":          &o.Host,
		"port":          &o.Port,
	}
}

// applyDevice fills the target of o from an attached device given by id or
// name.
func (s *Server) applyDevice(o *job.Options, idOrName string) bool {
	for _, d := range s.manager.Devices() {
		if d.ID != idOrName && (d.Name == "" || !strings.EqualFold(d.Name, idOrName)) {
			continue
		}
		switch d.Kind {
		case registry.KindUSB:
			o.Connection = string(job.ConnUSB)
			o.USBVID = fmt.Sprintf("0x%04x", d.VID)
			o.USBPID = fmt.Sprintf("0x%04x", d.PID)
		case registry.KindSerial:
			o.Connection = string(job.ConnSerial)
			o.SerialPort = d.Port
		}
		return true
	}
	return false
}

// handlePrint accepts a multipart upload and enqueues a print job
func (s *Server) handlePrint(c *gin.Context) {
	opts := command.DefaultOptions(s.cfg)
	for name, dst := range formFields(&opts) {
		if v, ok := c.GetPostForm(name); ok {
			*dst = v
		}
	}
	if device := c.PostForm("device"); device != "" {
		if !s.applyDevice(&opts, device) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found", "error_kind": "device_not_found"})
			return
		}
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "error_kind": "validation"})
		return
	}

	dir, err := os.MkdirTemp("", "printer-tool-upload-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cleanup := func() { os.RemoveAll(dir) }

	opts.File = filepath.Join(dir, filepath.Base(header.Filename))
	req, err := job.Parse(opts)
	if err != nil {
		cleanup()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_kind": job.Kind(err)})
		return
	}
	if err := c.SaveUploadedFile(header, opts.File); err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	jobID := s.queue.Enqueue(req, cleanup)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job_id":  jobID,
	})
}

// handleGetJobs returns all print jobs
func (s *Server) handleGetJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.queue.GetAllJobs()})
}

// handleClearJobs drops finished jobs from the queue
func (s *Server) handleClearJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": s.queue.ClearFinished()})
}

// handleGetJob returns a specific print job
func (s *Server) handleGetJob(c *gin.Context) {
	j := s.queue.GetJob(c.Param("id"))
	if j == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, j)
}

// handleCommand handles command execution requests
func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	result := s.executor.Execute(c.Request.Context(), req.Command)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Run starts the API server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
