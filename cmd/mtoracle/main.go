// mtoracle runs the multitouch differential scenarios against the
// running kernel: for every device profile it creates a virtual device,
// replays the scenario's touch frames, and compares the kernel's evdev
// output against the predicted outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/whot/hid-tools/internal/config"
	"github.com/whot/hid-tools/pkg/oracle"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("HIDTOOLS_CONFIG"), "path to YAML config file")
	profileFilter := flag.String("profile", "", "run only profiles whose name contains this string")
	scenarioFilter := flag.String("scenario", "", "run only scenarios whose name contains this string")
	descDir := flag.String("descriptors", "", "directory of per-profile report-descriptor files (<profile>.bin)")
	list := flag.Bool("list", false, "list profiles and scenarios, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	if *descDir != "" {
		cfg.DescriptorDir = *descDir
	}
	log := newLogger(cfg)

	var descs oracle.DescriptorSource
	if cfg.DescriptorDir != "" {
		descs = oracle.FileDescriptors(cfg.DescriptorDir)
	} else {
		log.Warn("no descriptor directory configured, devices will not bind",
			"flag", "-descriptors")
	}

	scenarios := filterScenarios(oracle.Scenarios(), *scenarioFilter)
	profiles := filterProfiles(oracle.Profiles(descs,
		oracle.WithLogger(log),
		oracle.WithTimeouts(cfg.NodeTimeout, cfg.EventTimeout),
		oracle.WithReleaseSlack(cfg.ReleaseSlack),
	), *profileFilter)

	if *list {
		for _, p := range profiles {
			fmt.Println("profile:", p.Name)
		}
		for _, s := range scenarios {
			fmt.Println("scenario:", s.Name)
		}
		return 0
	}
	if len(profiles) == 0 || len(scenarios) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to run")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := oracle.Run(ctx, log, profiles, scenarios)

	var passed, failed, skipped int
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
		case res.Err != nil:
			failed++
		default:
			passed++
		}
	}
	log.Info("done", "passed", passed, "failed", failed, "skipped", skipped)
	if failed > 0 || ctx.Err() != nil {
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

func filterScenarios(in []oracle.Scenario, substr string) []oracle.Scenario {
	if substr == "" {
		return in
	}
	var out []oracle.Scenario
	for _, s := range in {
		if strings.Contains(s.Name, substr) {
			out = append(out, s)
		}
	}
	return out
}

func filterProfiles(in []oracle.Profile, substr string) []oracle.Profile {
	if substr == "" {
		return in
	}
	var out []oracle.Profile
	for _, p := range in {
		if strings.Contains(p.Name, substr) {
			out = append(out, p)
		}
	}
	return out
}
