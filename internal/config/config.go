// Package config loads tool defaults from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "printer-tool.yaml"

// Config holds defaults for print jobs and the server.
type Config struct {
	Print    PrintConfig  `yaml:"print"`
	USB      USBConfig    `yaml:"usb"`
	Serial   SerialConfig `yaml:"serial"`
	Network  NetConfig    `yaml:"network"`
	Spooler  SpoolConfig  `yaml:"spooler"`
	Server   ServerConfig `yaml:"server"`
	Registry string       `yaml:"registry"`
	LogLevel string       `yaml:"log_level"`
}

// PrintConfig holds rendering defaults.
type PrintConfig struct {
	DPI       float64 `yaml:"dpi"`
	Threshold float64 `yaml:"threshold"`
	Darkness  int     `yaml:"darkness"`
	Mode      string  `yaml:"mode"`
	Paper     string  `yaml:"paper"`
}

// USBConfig holds the default USB target.
type USBConfig struct {
	VID       string `yaml:"vid"`
	PID       string `yaml:"pid"`
	Interface int    `yaml:"interface"`
}

// SerialConfig holds the default serial target.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// NetConfig holds the default raw TCP target.
type NetConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SpoolConfig holds OS spooler settings.
type SpoolConfig struct {
	Printer string `yaml:"printer"`
	Sumatra string `yaml:"sumatra"` // SumatraPDF executable used on windows
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MonitorInterval int    `yaml:"monitor_interval_secs"`
	// FileRoot is the only directory /command print may read images from.
	// Empty means remote callers must upload through /print.
	FileRoot string `yaml:"file_root"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Print: PrintConfig{
			DPI:       203,
			Threshold: 128,
			Darkness:  100,
		},
		Serial:   SerialConfig{Baud: 9600},
		Network:  NetConfig{Port: 9100},
		Spooler:  SpoolConfig{Sumatra: "SumatraPDF.exe"},
		Server:   ServerConfig{Addr: "0.0.0.0:12212", MonitorInterval: 2},
		Registry: "printer_registry.json",
		LogLevel: "warn",
	}
}

// Load reads path (a missing file is not an error), then .env, then the
// environment. An empty path means DefaultFile or $PRINTER_TOOL_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("PRINTER_TOOL_CONFIG")
	}
	if path == "" {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		return cfg, err
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"PRINTER_TOOL_PRINTER":   &c.Spooler.Printer,
		"PRINTER_TOOL_USB_VID":   &c.USB.VID,
		"PRINTER_TOOL_USB_PID":   &c.USB.PID,
		"PRINTER_TOOL_SUMATRA":   &c.Spooler.Sumatra,
		"PRINTER_TOOL_REGISTRY":  &c.Registry,
		"PRINTER_TOOL_LOG_LEVEL": &c.LogLevel,
		"PRINTER_TOOL_FILE_ROOT": &c.Server.FileRoot,
		"SERVER_ADDR":            &c.Server.Addr,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PRINTER_TOOL_DARKNESS":      &c.Print.Darkness,
		"PRINTER_TOOL_USB_INTERFACE": &c.USB.Interface,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"PRINTER_TOOL_DPI":       &c.Print.DPI,
		"PRINTER_TOOL_THRESHOLD": &c.Print.Threshold,
	}
	for key, dst := range floats {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = f
		}
	}
	return nil
}
