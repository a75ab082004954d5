package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereceipt/printer-tool/internal/api"
	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
	"github.com/thereceipt/printer-tool/internal/logger"
	"github.com/thereceipt/printer-tool/internal/printer"
	"github.com/thereceipt/printer-tool/internal/registry"
	"github.com/thereceipt/printer-tool/internal/spooler"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	var configPath, addr string
	flag.StringVar(&configPath, "config", "", "config file")
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Init("info", os.Stderr).Fatal("failed to load config", zap.Error(err))
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	// the server logs at info unless configured otherwise
	if cfg.LogLevel == "warn" {
		cfg.LogLevel = "info"
	}

	log := logger.Init(cfg.LogLevel, os.Stderr)
	defer logger.Sync()
	gin.SetMode(gin.ReleaseMode)

	reg, err := registry.New(getRegistryPath(cfg.Registry))
	if err != nil {
		log.Fatal("failed to open printer registry", zap.Error(err))
	}

	manager := printer.NewManager(reg, log.Named("devices"))
	devices, err := manager.Detect()
	if err != nil {
		log.Warn("device detection failed", zap.Error(err))
	}
	log.Info("devices detected", zap.Int("count", len(devices)))

	sp := spooler.New(spooler.Options{SumatraPath: cfg.Spooler.Sumatra}, log.Named("spooler"))
	orch := job.NewOrchestrator(sp, log.Named("job"))

	queue := job.NewQueue(orch, log.Named("queue"))
	defer queue.Stop()
	orch.OnState = queue.SetState

	server := api.NewServer(cfg, manager, queue, sp, log.Named("api"))
	hub := server.Hub()
	queue.OnUpdate(func(j job.Job) {
		hub.Broadcast(api.EventJobState, j)
	})
	manager.OnDeviceAdded(func(d printer.Device) {
		hub.Broadcast(api.EventDeviceAdded, d)
	})
	manager.OnDeviceRemoved(func(d printer.Device) {
		hub.Broadcast(api.EventDeviceRemoved, d)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.Server.MonitorInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go printer.NewMonitor(manager, interval).Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting API server", zap.String("addr", cfg.Server.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown failed", zap.Error(err))
	}
}

// getRegistryPath resolves a relative registry file next to the executable
// when that directory is writable, else in the working directory, else in
// the user config directory.
func getRegistryPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		testFile := filepath.Join(exeDir, ".printer-tool-write-test")
		if f, err := os.Create(testFile); err == nil {
			f.Close()
			os.Remove(testFile)
			return filepath.Join(exeDir, name)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}

	var configDir string
	if runtime.GOOS == "windows" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "printer-tool")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "printer-tool")
	}
	if configDir != "" {
		os.MkdirAll(configDir, 0755)
		return filepath.Join(configDir, name)
	}

	return name
}
