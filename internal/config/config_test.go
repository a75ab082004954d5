package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Print.DPI != 203 || cfg.Print.Threshold != 128 || cfg.USB.Interface != 0 {
		t.Errorf("unexpected defaults: %+v", cfg.Print)
	}
	if cfg.Server.Addr != "0.0.0.0:12212" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "tool.yaml")
	data := []byte("print:\n  dpi: 300\n  darkness: 120\nusb:\n  vid: \"0x0483\"\n  interface: 1\nspooler:\n  printer: POS-80\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PRINTER_TOOL_THRESHOLD", "100")
	t.Setenv("PRINTER_TOOL_PRINTER", "Label")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Print.DPI != 300 {
		t.Errorf("DPI = %v, want 300", cfg.Print.DPI)
	}
	if cfg.Print.Darkness != 120 {
		t.Errorf("Darkness = %d, want 120", cfg.Print.Darkness)
	}
	if cfg.USB.VID != "0x0483" || cfg.USB.Interface != 1 {
		t.Errorf("USB = %+v", cfg.USB)
	}
	if cfg.Print.Threshold != 100 {
		t.Errorf("Threshold = %v, want 100 from env", cfg.Print.Threshold)
	}
	if cfg.Spooler.Printer != "Label" {
		t.Errorf("Printer = %q, want env override", cfg.Spooler.Printer)
	}
	// untouched keys keep their defaults
	if cfg.Serial.Baud != 9600 {
		t.Errorf("Baud = %d, want 9600", cfg.Serial.Baud)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PRINTER_TOOL_USB_PID=5740\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PRINTER_TOOL_USB_PID") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.USB.PID != "5740" {
		t.Errorf("PID = %q, want value from .env", cfg.USB.PID)
	}
}

func TestLoadBadEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PRINTER_TOOL_DPI", "fast")
	if _, err := Load(""); err == nil {
		t.Errorf("expected error for non-numeric PRINTER_TOOL_DPI")
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("print: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected decode error")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir: %v", err)
		}
	})
}
