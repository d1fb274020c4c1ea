package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UHIDPath != "/dev/uhid" {
		t.Errorf("UHIDPath = %q", cfg.UHIDPath)
	}
	if cfg.NodeTimeout != 2*time.Second {
		t.Errorf("NodeTimeout = %v", cfg.NodeTimeout)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("logging defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("node_timeout: 5s\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeTimeout != 5*time.Second {
		t.Errorf("NodeTimeout = %v, want 5s", cfg.NodeTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Untouched keys keep their defaults.
	if cfg.EventTimeout != time.Second {
		t.Errorf("EventTimeout = %v, want default 1s", cfg.EventTimeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HIDTOOLS_LOG_LEVEL", "warn")
	t.Setenv("HIDTOOLS_RELEASE_SLACK", "40ms")
	t.Setenv("HIDTOOLS_DESCRIPTOR_DIR", "/tmp/fixtures")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env override warn", cfg.LogLevel)
	}
	if cfg.ReleaseSlack != 40*time.Millisecond {
		t.Errorf("ReleaseSlack = %v, want 40ms", cfg.ReleaseSlack)
	}
	if cfg.DescriptorDir != "/tmp/fixtures" {
		t.Errorf("DescriptorDir = %q, want env override", cfg.DescriptorDir)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing explicit config file accepted")
	}
}
