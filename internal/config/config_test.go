package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"diagsync/internal/reconcile"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"PreferBuildAlways", cfg.PreferBuildAlways, false},
		{"PreferBuildOverLive", cfg.PreferBuildOverLive, true},
		{"PreferLiveOnOpenFiles", cfg.PreferLiveOnOpenFiles, true},
		{"Manifest", cfg.Manifest, "diagsync.toml"},
		{"Jobs", cfg.Jobs, 1},
		{"Store.Backend", cfg.Store.Backend, BackendDisk},
		{"Trace.Level", cfg.Trace.Level, "off"},
		{"Trace.RingSize", cfg.Trace.RingSize, 4096},
		{"Trace.Heartbeat", cfg.Trace.Heartbeat, time.Duration(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DIAGSYNC_PREFER_BUILD_OVER_LIVE", "false")
	t.Setenv("DIAGSYNC_STORE_BACKEND", "sqlite")
	t.Setenv("DIAGSYNC_JOBS", "4")
	t.Setenv("DIAGSYNC_TRACE_HEARTBEAT", "2s")

	v := New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PreferBuildOverLive || cfg.Store.Backend != BackendSQLite || cfg.Jobs != 4 || cfg.Trace.Heartbeat != 2*time.Second {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if NewOptions(v).Bool(reconcile.OptPreferBuildOverLive) {
		t.Errorf("Options ignores env override")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	body := "prefer_build_always: true\nstore:\n  backend: memory\ntrace:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.PreferBuildAlways || cfg.Store.Backend != BackendMemory || cfg.Trace.Level != "debug" {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if !cfg.PreferLiveOnOpenFiles {
		t.Errorf("defaults lost after reading file")
	}

	if err := ReadFile(New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("explicit missing file accepted")
	}
}

func TestReadFileWithoutDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	if err := ReadFile(New(), ""); err != nil {
		t.Fatalf("missing .diagsync.yaml must be ignored: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"jobs", func(c *Config) { c.Jobs = 0 }},
		{"ring size", func(c *Config) { c.Trace.RingSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(New())
			if err != nil {
				t.Fatal(err)
			}
			tt.edit(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestOptionsPanicsOnUnregisteredKey(t *testing.T) {
	o := NewOptions(New())
	if !o.Bool(reconcile.OptPreferLiveOnOpenFiles) {
		t.Fatalf("default for %s should be true", reconcile.OptPreferLiveOnOpenFiles)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unregistered key")
		}
	}()
	o.Bool("prefer_nothing")
}
