package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "5000" {
		t.Errorf("App.Port = %q, want 5000", cfg.App.Port)
	}
	if cfg.AI.CacheTTL() != 5*time.Minute {
		t.Errorf("AI.CacheTTL = %v", cfg.AI.CacheTTL())
	}
	if cfg.Worker.ReminderWindow() != 24*time.Hour {
		t.Errorf("Worker.ReminderWindow = %v", cfg.Worker.ReminderWindow())
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
app:
  port: "9000"
  name: from-file
mongo:
  database: filedb
cors:
  allowed_origins:
    - https://ops.example.com
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("MONGO_DATABASE", "envdb")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9000" {
		t.Errorf("App.Port = %q, want value from file", cfg.App.Port)
	}
	if cfg.App.Name != "from-file" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Mongo.Database != "envdb" {
		t.Errorf("Mongo.Database = %q, env should win", cfg.Mongo.Database)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://ops.example.com" {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRequestTimeout(t *testing.T) {
	if got := (AppConfig{RequestTimeoutSeconds: 0}).RequestTimeout(); got != 0 {
		t.Errorf("zero seconds = %v", got)
	}
	if got := (AppConfig{RequestTimeoutSeconds: 5}).RequestTimeout(); got != 5*time.Second {
		t.Errorf("5 seconds = %v", got)
	}
}

func TestAppLocation(t *testing.T) {
	tests := []struct {
		zone string
		want string
	}{
		{"", time.Local.String()},
		{"Africa/Kigali", "Africa/Kigali"},
		{"Not/AZone", time.Local.String()},
	}
	for _, tc := range tests {
		t.Run(tc.zone, func(t *testing.T) {
			got := AppConfig{TimeZone: tc.zone}.Location()
			if got.String() != tc.want {
				t.Errorf("Location() = %s, want %s", got, tc.want)
			}
		})
	}
}
