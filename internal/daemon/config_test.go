package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.Addr() != "127.0.0.1:8310" {
		t.Errorf("addr = %q, want 127.0.0.1:8310", cfg.API.Addr())
	}
	if !cfg.Wallet.DailyReset {
		t.Error("daily reset should default to on")
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should default to on")
	}
	if cfg.Storage.Dir == "" {
		t.Error("storage dir empty")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 8310 {
		t.Errorf("port = %d, want default 8310", cfg.API.Port)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
host = "0.0.0.0"
port = 9000

[wallet]
daily_reset = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Addr() != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.API.Addr())
	}
	if cfg.Wallet.DailyReset {
		t.Error("daily_reset = true, want false from file")
	}
	// Sections absent from the file keep their defaults.
	if !cfg.Metrics.Enabled {
		t.Error("metrics default lost")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nport = 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDYTIME_PORT", "9100")
	t.Setenv("STUDYTIME_DATA_DIR", "/var/lib/studytime")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.API.Port)
	}
	if cfg.Storage.Dir != "/var/lib/studytime" {
		t.Errorf("dir = %q, want env override", cfg.Storage.Dir)
	}
}
