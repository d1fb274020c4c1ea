package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/whot/hid-tools/pkg/mt"
	"github.com/whot/hid-tools/pkg/report"
)

// Scenario is one differential check run against a started rig.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, r *Rig) error
}

// Profile is a buildable device configuration scenarios run against.
type Profile struct {
	Name  string
	Build func() (*Rig, error)
}

// win8Quirks is the baseline quirk set of a certified multitouch device.
const win8Quirks = mt.QuirkAlwaysValid | mt.QuirkIgnoreDuplicates |
	mt.QuirkContactCntAccurate | mt.QuirkStickyFingers

// DescriptorSource supplies the raw report-descriptor bytes registered
// with the kernel for a named profile. A nil source builds profiles
// without descriptor bytes; only injected-transport runs can use those,
// since no driver binds a device with an empty descriptor.
type DescriptorSource func(profile string) ([]byte, error)

// FileDescriptors serves descriptor bytes from <dir>/<profile>.bin.
func FileDescriptors(dir string) DescriptorSource {
	return func(profile string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, profile+".bin"))
	}
}

func profileOptions(name string, descs DescriptorSource, rigOpts []Option) ([]Option, error) {
	if descs == nil {
		return rigOpts, nil
	}
	raw, err := descs(name)
	if err != nil {
		return nil, fmt.Errorf("descriptor for %s: %w", name, err)
	}
	opts := make([]Option, len(rigOpts), len(rigOpts)+1)
	copy(opts, rigOpts)
	return append(opts, WithRawDescriptor(raw)), nil
}

func touchscreen(name string, slots int, quirks mt.Quirks, descs DescriptorSource, rigOpts []Option, opts ...mt.LayoutOption) Profile {
	return Profile{
		Name: name,
		Build: func() (*Rig, error) {
			ropts, err := profileOptions(name, descs, rigOpts)
			if err != nil {
				return nil, err
			}
			dev, err := mt.NewDevice(name, mt.Win8TouchScreen(slots, opts...),
				report.TouchScreen, slots, quirks)
			if err != nil {
				return nil, err
			}
			return New(dev, ropts...), nil
		},
	}
}

func touchpad(name string, slots, capacity int, buttonType int32, descs DescriptorSource, rigOpts []Option) Profile {
	return Profile{
		Name: name,
		Build: func() (*Rig, error) {
			ropts, err := profileOptions(name, descs, rigOpts)
			if err != nil {
				return nil, err
			}
			p, err := mt.NewHybridPTP(name, slots, capacity, buttonType)
			if err != nil {
				return nil, err
			}
			return NewPTP(p, ropts...), nil
		},
	}
}

// Profiles returns the built-in device matrix. The descriptor source maps
// each profile to the bytes registered with the kernel; rig options apply
// to every profile, letting the runner inject timeouts and loggers.
func Profiles(descs DescriptorSource, rigOpts ...Option) []Profile {
	return []Profile{
		touchscreen("win8-touchscreen", 2, win8Quirks, descs, rigOpts),
		touchscreen("win8-touchscreen-area", 5, win8Quirks, descs, rigOpts,
			mt.WithPressure(), mt.WithArea()),
		touchscreen("win8-touchscreen-hover", 2, win8Quirks|mt.QuirkHovering, descs, rigOpts,
			mt.WithInRange()),
		touchscreen("win8-touchscreen-txcx", 2, win8Quirks, descs, rigOpts,
			mt.WithToolCenter()),
		{
			Name: "win8-hybrid",
			Build: func() (*Rig, error) {
				ropts, err := profileOptions("win8-hybrid", descs, rigOpts)
				if err != nil {
					return nil, err
				}
				// Contact limit left at 0 on purpose: it must come from
				// the Contact Max feature field.
				dev, err := mt.NewDevice("win8-hybrid", mt.Win8Hybrid(10),
					report.TouchScreen, 0, win8Quirks)
				if err != nil {
					return nil, err
				}
				return New(dev, ropts...), nil
			},
		},
		touchpad("win8-clickpad", 5, 5, mt.ClickPad, descs, rigOpts),
		touchpad("win8-pressurepad", 5, 5, mt.PressurePad, descs, rigOpts),
		touchpad("win8-hybridpad", 5, 2, mt.ClickPad, descs, rigOpts),
	}
}

// Result is the outcome of one scenario on one profile.
type Result struct {
	Profile  string
	Scenario string
	Skipped  bool
	Err      error
}

// Run executes every scenario against every profile, creating and tearing
// down a fresh device each time so no state leaks across scenarios.
func Run(ctx context.Context, log *slog.Logger, profiles []Profile, scenarios []Scenario) []Result {
	var results []Result
	for _, p := range profiles {
		for _, s := range scenarios {
			res := Result{Profile: p.Name, Scenario: s.Name}
			res.Err = runOne(ctx, p, s)
			if errors.Is(res.Err, ErrNotSupported) {
				res.Skipped, res.Err = true, nil
				log.Info("skip", "profile", p.Name, "scenario", s.Name)
			} else if res.Err != nil {
				log.Error("fail", "profile", p.Name, "scenario", s.Name, "err", res.Err)
			} else {
				log.Info("pass", "profile", p.Name, "scenario", s.Name)
			}
			results = append(results, res)
			if ctx.Err() != nil {
				return results
			}
		}
	}
	return results
}

func runOne(ctx context.Context, p Profile, s Scenario) error {
	rig, err := p.Build()
	if err != nil {
		return err
	}
	if err := rig.Start(ctx); err != nil {
		rig.Close()
		return err
	}
	defer rig.Close()
	return s.Run(ctx, rig)
}
