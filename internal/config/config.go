// Package config loads harness configuration: defaults, overlaid by an
// optional YAML file, overlaid by environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HIDTOOLS_"

// Config is the harness runtime configuration.
type Config struct {
	// UHIDPath is the uhid character device node.
	UHIDPath string `koanf:"uhid_path"`
	// NodeTimeout bounds the wait for the kernel to expose the event
	// node of a freshly created device.
	NodeTimeout time.Duration `koanf:"node_timeout"`
	// EventTimeout bounds the wait for one event frame.
	EventTimeout time.Duration `koanf:"event_timeout"`
	// ReleaseSlack is how far past the idle-release deadline scenarios
	// sleep before checking for the released state.
	ReleaseSlack time.Duration `koanf:"release_slack"`
	// DescriptorDir holds the per-profile report-descriptor bytes as
	// <profile>.bin files. Required for runs against a real kernel; no
	// driver binds a device registered without descriptor bytes.
	DescriptorDir string `koanf:"descriptor_dir"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UHIDPath:     "/dev/uhid",
		NodeTimeout:  2 * time.Second,
		EventTimeout: time.Second,
		ReleaseSlack: 20 * time.Millisecond,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load builds the effective configuration. The file path may be empty, in
// which case only defaults and environment apply. A missing explicit file
// is an error; environment keys use the HIDTOOLS_ prefix with underscores,
// HIDTOOLS_NODE_TIMEOUT=5s for example.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
