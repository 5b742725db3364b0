package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.TickInterval.Std() != 30*time.Second {
		t.Errorf("tick_interval = %v", cfg.TickInterval.Std())
	}
	if cfg.Location() != time.UTC {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
db_path: /var/lib/homesync/homesync.db
timezone: Asia/Singapore
tick_interval: 1m
store_timeout: 2s
notify_url: https://push.example.com/send
relay_board:
  port: /dev/ttyUSB0
  baud: 115200
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.TickInterval.Std() != time.Minute {
		t.Errorf("tick_interval = %v", cfg.TickInterval.Std())
	}
	if cfg.StoreTimeout.Std() != 2*time.Second {
		t.Errorf("store_timeout = %v", cfg.StoreTimeout.Std())
	}
	if cfg.Location().String() != "Asia/Singapore" {
		t.Errorf("location = %v", cfg.Location())
	}
	if cfg.RelayBoard.Port != "/dev/ttyUSB0" || cfg.RelayBoard.Baud != 115200 {
		t.Errorf("relay_board = %+v", cfg.RelayBoard)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "timezone: Europe/Berlin\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen default lost: %q", cfg.Listen)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad timezone": "timezone: Mars/Olympus\n",
		"bad duration": "tick_interval: soon\n",
		"not yaml":     "{{{\n",
	}
	for name, content := range tests {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
