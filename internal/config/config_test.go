package config_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aleksaelezovic/rofi-tracker/internal/config"
	"github.com/aleksaelezovic/rofi-tracker/internal/tracker"
)

func writeConfig(t *testing.T, data map[string]any) string {
	t.Helper()
	path := config.GetConfigPath(t.TempDir())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create config directory: %v", err)
	}

	raw, err := yaml.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal config data: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache-home")

	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		t.Fatalf("expected load without a config file to succeed: %v", err)
	}

	if cfg.Protocol != tracker.ProtocolAuto {
		t.Errorf("expected protocol auto, got %q", cfg.Protocol)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %s", cfg.Timeout)
	}
	if cfg.Limit != 15 {
		t.Errorf("expected limit 15, got %d", cfg.Limit)
	}
	if cfg.Order() != binary.NativeEndian {
		t.Errorf("expected native byte order, got %s", cfg.Order())
	}
	if len(cfg.Opener) != 1 || cfg.Opener[0] != "xdg-open" {
		t.Errorf("expected xdg-open, got %v", cfg.Opener)
	}
	if cfg.History.Backend != "badger" || cfg.HotKeys {
		t.Errorf("unexpected backend/hot keys: %q %v", cfg.History.Backend, cfg.HotKeys)
	}
	if cfg.History.Path != "/tmp/cache-home/rofi-tracker/history" {
		t.Errorf("unexpected history path %q", cfg.History.Path)
	}
	if cfg.Services.Cursor != tracker.Tracker3 || cfg.Services.Inline != tracker.Tracker2 {
		t.Errorf("unexpected services: %+v", cfg.Services)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"protocol":   "tracker2",
		"timeout":    "500ms",
		"limit":      30,
		"byte_order": "big",
		"prompt":     "Find",
		"opener":     []string{"gio", "open"},
		"history": map[string]any{
			"enabled":       false,
			"path":          "/var/tmp/history",
			"show_on_start": true,
			"size":          5,
		},
	})

	cfg, err := config.Load(viper.New(), path)
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}

	if cfg.Timeout != 500*time.Millisecond {
		t.Errorf("expected 500ms timeout, got %s", cfg.Timeout)
	}
	if cfg.Limit != 30 || cfg.Prompt != "Find" {
		t.Errorf("unexpected limit/prompt: %d %q", cfg.Limit, cfg.Prompt)
	}
	if cfg.Order() != binary.BigEndian {
		t.Errorf("expected big endian, got %s", cfg.Order())
	}
	if strings.Join(cfg.Opener, " ") != "gio open" {
		t.Errorf("unexpected opener %v", cfg.Opener)
	}
	if cfg.History.Enabled || !cfg.History.ShowOnStart || cfg.History.Size != 5 || cfg.History.Path != "/var/tmp/history" {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}

	settings := cfg.Tracker()
	if settings.Protocol != "tracker2" || settings.Timeout != 500*time.Millisecond {
		t.Errorf("unexpected tracker settings: %+v", settings)
	}
}

func TestLoadEnvironment(t *testing.T) {
	path := writeConfig(t, map[string]any{"limit": 30})
	t.Setenv("ROFI_TRACKER_LIMIT", "7")
	t.Setenv("ROFI_TRACKER_HISTORY_SIZE", "3")

	cfg, err := config.Load(viper.New(), path)
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}
	if cfg.Limit != 7 {
		t.Errorf("expected env to override limit, got %d", cfg.Limit)
	}
	if cfg.History.Size != 3 {
		t.Errorf("expected env to override history size, got %d", cfg.History.Size)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]any{
		"protocol":   {"protocol": "tracker4"},
		"byte order": {"byte_order": "middle"},
		"limit":      {"limit": 0},
		"timeout":    {"timeout": "-1s"},
		"opener":     {"opener": []string{}},
		"backend":    {"history": map[string]any{"backend": "sqlite"}},
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := config.Load(viper.New(), writeConfig(t, data)); err == nil {
				t.Fatalf("expected load to fail for %v", data)
			}
		})
	}
}

func TestLoadBoltHistoryPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache-home")
	path := writeConfig(t, map[string]any{
		"hot_keys": true,
		"history":  map[string]any{"backend": "bolt"},
	})

	cfg, err := config.Load(viper.New(), path)
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}
	if !cfg.HotKeys {
		t.Error("expected hot keys enabled")
	}
	if cfg.History.Path != "/tmp/cache-home/rofi-tracker/history.db" {
		t.Errorf("unexpected history path %q", cfg.History.Path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := config.Load(viper.New(), missing); err == nil {
		t.Fatal("expected load to fail for a missing explicit file")
	}
}

func TestDump(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}

	out, err := cfg.Dump()
	if err != nil {
		t.Fatalf("failed to dump config: %v", err)
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("dumped config is not valid YAML: %v", err)
	}
	if parsed["timeout"] != "2s" {
		t.Errorf("expected timeout 2s, got %v", parsed["timeout"])
	}
	if parsed["protocol"] != "auto" {
		t.Errorf("expected protocol auto, got %v", parsed["protocol"])
	}
	if _, ok := parsed["services"]; !ok {
		t.Error("expected services section in dump")
	}
}
