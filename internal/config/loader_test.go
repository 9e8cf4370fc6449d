package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeRaw(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Node.RouterURL != def.Node.RouterURL {
		t.Errorf("expected default router url %q, got %q", def.Node.RouterURL, cfg.Node.RouterURL)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"node": map[string]any{
			"id":        "0xabc",
			"routerUrl": "ws://router.example:9000/bus",
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Node.ID != "0xabc" {
		t.Errorf("expected id %q, got %q", "0xabc", cfg.Node.ID)
	}
	if cfg.Node.RouterURL != "ws://router.example:9000/bus" {
		t.Errorf("unexpected router url %q", cfg.Node.RouterURL)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Node.ReconnectDelayMs != 5000 {
		t.Errorf("expected default reconnectDelayMs 5000, got %d", cfg.Node.ReconnectDelayMs)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeRaw(t, dir, "config.yaml", "node:\n  id: peer-y\nlog:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Node.ID != "peer-y" {
		t.Errorf("expected id peer-y, got %q", cfg.Node.ID)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
	if cfg.Router.Listen != ":7464" {
		t.Errorf("expected default listen, got %q", cfg.Router.Listen)
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeRaw(t, dir, "config.toml", "[node]\nid = \"peer-t\"\nsendTimeoutMs = 1500\n\n[router]\nlisten = \":9999\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Node.ID != "peer-t" {
		t.Errorf("expected id peer-t, got %q", cfg.Node.ID)
	}
	if cfg.Node.SendTimeoutMs != 1500 {
		t.Errorf("expected sendTimeoutMs 1500, got %d", cfg.Node.SendTimeoutMs)
	}
	if cfg.Router.Listen != ":9999" {
		t.Errorf("expected listen :9999, got %q", cfg.Router.Listen)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeRaw(t, dir, "config.json", "{not valid json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for invalid JSON (falls back to default), got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Node.RouterURL != def.Node.RouterURL {
		t.Errorf("expected default router url %q, got %q", def.Node.RouterURL, cfg.Node.RouterURL)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.Node.ID = "node-42"
			cfg.Console.Color = false

			if err := Save(&cfg, path); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if *got != cfg {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"http scheme", func(c *Config) { c.Node.RouterURL = "http://localhost/bus" }, true},
		{"zero reconnect", func(c *Config) { c.Node.ReconnectDelayMs = 0 }, true},
		{"negative send timeout", func(c *Config) { c.Node.SendTimeoutMs = -1 }, true},
		{"relative path", func(c *Config) { c.Router.Path = "bus" }, true},
		{"bad schedule", func(c *Config) { c.Router.StatsSchedule = "every five minutes" }, true},
		{"no schedule", func(c *Config) { c.Router.StatsSchedule = "" }, false},
		{"cron schedule", func(c *Config) { c.Router.StatsSchedule = "*/10 * * * *" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
