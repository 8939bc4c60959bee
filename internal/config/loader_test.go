package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")

	cfg, gotPath, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotPath != path {
		t.Fatalf("path = %q, want %q", gotPath, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.ServerWSURL != Default().ServerWSURL {
		t.Fatalf("unexpected default url %q", cfg.ServerWSURL)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	file := []byte("server_ws_url: ws://file-host/ws\nmax_reconnect_tries: 7\ntyping_expiry: 3s\n")
	if err := os.WriteFile(path, file, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Env beats file, file beats defaults.
	t.Setenv("WIRECHAT_SERVER_WS_URL", "ws://env-host/ws")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerWSURL != "ws://env-host/ws" {
		t.Fatalf("env did not override file: %q", cfg.ServerWSURL)
	}
	if cfg.MaxReconnectTries != 7 {
		t.Fatalf("file did not override default: %d", cfg.MaxReconnectTries)
	}
	if cfg.TypingExpiry != 3*time.Second {
		t.Fatalf("duration not parsed from file: %v", cfg.TypingExpiry)
	}
	// Untouched keys keep their defaults.
	if cfg.LogLevel != Default().LogLevel {
		t.Fatalf("default log level lost: %q", cfg.LogLevel)
	}
}
