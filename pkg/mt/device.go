// Package mt emulates the contact-reporting side of a HID multitouch
// digitizer: it turns semantic touch contacts into capacity-sized physical
// input reports and services the feature-report negotiation a driver
// performs against the device.
package mt

import (
	"context"
	"errors"
	"fmt"

	"github.com/whot/hid-tools/pkg/report"
)

var (
	// ErrZeroCapacity marks a layout whose input report carries no
	// contacts. Encoding against it would loop forever, so it is a
	// fail-fast configuration fault.
	ErrZeroCapacity = errors.New("report layout has zero contact capacity")
	// ErrNoInputReport means the active application has no input report.
	ErrNoInputReport = errors.New("no input report for application")
	// ErrUnsupportedReport is the NAK-equivalent reply to a GET/SET
	// request the device does not service.
	ErrUnsupportedReport = errors.New("unsupported report request")
)

// ReportType mirrors the transport's report classification.
type ReportType uint8

const (
	FeatureReport ReportType = iota
	OutputReport
	InputReport
)

// Transport delivers wire-format reports to the device under test.
type Transport interface {
	SubmitReport(ctx context.Context, data []byte) error
}

// Identity is the bus/vendor/product/version tuple of a device.
type Identity struct {
	Bus     uint32
	Vendor  uint32
	Product uint32
	Version uint32
}

// Device is one emulated digitizer: its report layouts, contact limits,
// quirk set and current application mode. A Device pairs 1:1 with a virtual
// device for the lifetime of a scenario.
type Device struct {
	Name        string
	ID          Identity
	Desc        *report.Descriptor
	Application report.Application
	MaxContacts int
	Quirks      Quirks
	// ButtonType is reported through the Button Type feature field where
	// the layout declares one: 0 click pad, 1 pressure pad.
	ButtonType int32

	mode     report.Application
	scanTime uint32
}

// NewDevice builds a device profile around a declared report layout.
//
// maxContacts 0 derives the limit from the Contact Max feature field's
// logical maximum, defaulting to 1. A profile declaring no quirks gets the
// baseline interpretation applied to certified devices: accurate contact
// counts, duplicate suppression, and hovering when the layout has an
// In Range field. A layout whose Inputmode feature is declared boots in
// Mouse mode until negotiated.
func NewDevice(name string, desc *report.Descriptor, app report.Application, maxContacts int, quirks Quirks) (*Device, error) {
	in := desc.InputFor(app)
	if in == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoInputReport, app)
	}
	if in.Capacity() == 0 {
		return nil, ErrZeroCapacity
	}

	if maxContacts == 0 {
		maxContacts = 1
		if f := desc.FeatureWith(report.ContactMax); f != nil {
			for _, fields := range f.Collections {
				for _, fld := range fields {
					if fld.Usage == report.ContactMax {
						maxContacts = int(fld.LogicalMax)
					}
				}
			}
			for _, fld := range f.Globals {
				if fld.Usage == report.ContactMax {
					maxContacts = int(fld.LogicalMax)
				}
			}
		}
	}

	if quirks == 0 {
		quirks = QuirkContactCntAccurate | QuirkIgnoreDuplicates
		if in.Has(report.InRange) {
			quirks |= QuirkHovering
		}
	}

	mode := app
	if desc.FeatureWith(report.InputMode) != nil {
		mode = report.Mouse
	}

	return &Device{
		Name:        name,
		ID:          Identity{Bus: 0x03, Vendor: 0x0001, Product: 0x0002, Version: 1},
		Desc:        desc,
		Application: app,
		MaxContacts: maxContacts,
		Quirks:      quirks,
		mode:        mode,
	}, nil
}

// Mode returns the currently negotiated application.
func (d *Device) Mode() report.Application { return d.mode }

// ScanTime returns the current value of the frame scan-time counter.
func (d *Device) ScanTime() uint32 { return d.scanTime }

// InputReport returns the layout of the application under test.
func (d *Device) InputReport() *report.Report {
	return d.Desc.InputFor(d.Application)
}

type frameOpts struct {
	declared     *int
	holdScanTime bool
	click        *bool
	left         *bool
	right        *bool
}

// FrameOption adjusts how one logical frame is encoded.
type FrameOption func(*frameOpts)

// WithDeclaredCount overrides the Contact Count value attached to the
// frame. Declaring fewer contacts than are present exercises the driver's
// accurate-count handling.
func WithDeclaredCount(n int) FrameOption {
	return func(o *frameOpts) { o.declared = &n }
}

// WithoutScanTimeIncrement suppresses the per-frame scan-time increment,
// modeling continuation reports of a frame already timestamped.
func WithoutScanTimeIncrement() FrameOption {
	return func(o *frameOpts) { o.holdScanTime = true }
}

// WithClick sets the clickpad button state for this and following frames.
func WithClick(v bool) FrameOption {
	return func(o *frameOpts) { o.click = &v }
}

// WithLeft sets the left button state for this and following frames.
func WithLeft(v bool) FrameOption {
	return func(o *frameOpts) { o.left = &v }
}

// WithRight sets the right button state for this and following frames.
func WithRight(v bool) FrameOption {
	return func(o *frameOpts) { o.right = &v }
}

// EncodeFrame turns one logical frame into its physical report sequence.
//
// The scan time increments once per call, not per physical report, unless
// suppressed. Contacts beyond the device maximum are dropped. The declared
// contact count (override, else the real count) rides on the first physical
// report only; continuation reports of the same frame carry 0, modeling
// hardware that reports the frame total exactly once. Zero contacts still
// produce one degenerate report so pointer-type devices can deliver
// frame-level button state.
func (d *Device) EncodeFrame(contacts []Contact, meta FrameMetadata, opts ...FrameOption) ([][]byte, error) {
	var o frameOpts
	for _, opt := range opts {
		opt(&o)
	}

	rep := d.Desc.InputFor(d.mode)
	if rep == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoInputReport, d.mode)
	}
	capacity := rep.Capacity()
	if capacity == 0 {
		return nil, ErrZeroCapacity
	}

	if !o.holdScanTime {
		d.scanTime++
	}
	meta.ScanTime = d.scanTime

	if len(contacts) > d.MaxContacts {
		contacts = contacts[:d.MaxContacts]
	}
	declared := len(contacts)
	if o.declared != nil {
		declared = *o.declared
	}

	var out [][]byte
	rest := contacts
	for first := true; first || len(rest) > 0; first = false {
		chunk := rest
		if len(chunk) > capacity {
			chunk = chunk[:capacity]
		}
		rest = rest[len(chunk):]

		m := meta
		if first {
			m.ContactCount = declared
		} else {
			m.ContactCount = 0
		}

		srcs := make([]report.Source, len(chunk))
		for i := range chunk {
			srcs[i] = &chunk[i]
		}
		out = append(out, rep.Pack(srcs, &m))
	}
	return out, nil
}

// SendFrame encodes a frame and hands each physical report to the
// transport in order, blocking until all are submitted.
func (d *Device) SendFrame(ctx context.Context, t Transport, contacts []Contact, meta FrameMetadata, opts ...FrameOption) ([][]byte, error) {
	reports, err := d.EncodeFrame(contacts, meta, opts...)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		if err := t.SubmitReport(ctx, r); err != nil {
			return reports, fmt.Errorf("submit report: %w", err)
		}
	}
	return reports, nil
}

// deviceFeatures exposes the negotiable feature values of a device.
type deviceFeatures struct{ d *Device }

func (s deviceFeatures) Field(u report.Usage, _ int) (int32, bool) {
	switch u {
	case report.ContactMax:
		return int32(s.d.MaxContacts), true
	case report.ButtonType:
		return s.d.ButtonType, true
	}
	return 0, false
}

// GetReport services a GET_REPORT request. Only feature reports carrying
// Contact Max are answered; anything else is refused with
// ErrUnsupportedReport, mirroring standard unrecognized-request handling.
func (d *Device) GetReport(rtype ReportType, rnum byte) ([]byte, error) {
	if rtype != FeatureReport {
		return nil, ErrUnsupportedReport
	}
	rep := d.Desc.FeatureByID(rnum)
	if rep == nil || !rep.Has(report.ContactMax) {
		return nil, ErrUnsupportedReport
	}
	return rep.Pack(nil, deviceFeatures{d}), nil
}

// inputModeTable is the Inputmode transition table. Values outside it
// leave the mode unchanged without raising an error.
var inputModeTable = map[int32]report.Application{
	0: report.Mouse,
	2: report.TouchScreen,
	3: report.TouchPad,
}

// SetReport services a SET_REPORT request. The payload must not include
// the report ID prefix. A feature report without an Inputmode field is
// acknowledged without effect; an unknown report is refused.
func (d *Device) SetReport(rtype ReportType, rnum byte, data []byte) error {
	if rtype != FeatureReport {
		return ErrUnsupportedReport
	}
	rep := d.Desc.FeatureByID(rnum)
	if rep == nil {
		return ErrUnsupportedReport
	}
	if !rep.Has(report.InputMode) {
		return nil
	}
	v, err := rep.Extract(data, report.InputMode)
	if err != nil {
		return fmt.Errorf("inputmode payload: %w", err)
	}
	if next, ok := inputModeTable[v]; ok {
		d.mode = next
	}
	return nil
}
