package mt

import "github.com/whot/hid-tools/pkg/report"

// Canned reference layouts. These stand in for the report-descriptor
// provider: each returns the declared field layout of a representative
// device class, parameterized only where scenarios need variation.

// Button Type feature values.
const (
	ClickPad    int32 = 0
	PressurePad int32 = 1
)

type contactLayout struct {
	confidence bool
	inRange    bool
	center     bool
	pressure   bool
	area       bool
}

// LayoutOption adds optional per-contact fields to a canned layout.
type LayoutOption func(*contactLayout)

// WithConfidence adds the per-contact Confidence bit.
func WithConfidence() LayoutOption {
	return func(l *contactLayout) { l.confidence = true }
}

// WithInRange adds the per-contact In Range bit. Its presence is what
// enables hover reporting on the device.
func WithInRange() LayoutOption {
	return func(l *contactLayout) { l.inRange = true }
}

// WithToolCenter adds a second X/Y pair carrying the contact-area center.
func WithToolCenter() LayoutOption {
	return func(l *contactLayout) { l.center = true }
}

// WithPressure adds the per-contact Tip Pressure field.
func WithPressure() LayoutOption {
	return func(l *contactLayout) { l.pressure = true }
}

// WithArea adds the per-contact Width and Height fields.
func WithArea() LayoutOption {
	return func(l *contactLayout) { l.area = true }
}

// contactFields lays out one contact collection: switches packed into one
// byte, then the byte-aligned value fields.
func contactFields(l contactLayout, azimuth bool) []report.Field {
	var fs []report.Field
	bits := uint(1)
	fs = append(fs, report.Field{Usage: report.TipSwitch, Bits: 1, LogicalMax: 1})
	if l.confidence {
		fs = append(fs, report.Field{Usage: report.Confidence, Bits: 1, LogicalMax: 1})
		bits++
	}
	if l.inRange {
		fs = append(fs, report.Field{Usage: report.InRange, Bits: 1, LogicalMax: 1})
		bits++
	}
	fs = append(fs, report.Pad(8-bits))
	fs = append(fs,
		report.Field{Usage: report.ContactID, Bits: 8, LogicalMax: 255},
		report.Field{Usage: report.X, Bits: 16, LogicalMax: 4095},
		report.Field{Usage: report.Y, Bits: 16, LogicalMax: 4095},
	)
	if l.center {
		fs = append(fs,
			report.Field{Usage: report.X, Bits: 16, LogicalMax: 4095},
			report.Field{Usage: report.Y, Bits: 16, LogicalMax: 4095},
		)
	}
	if l.pressure {
		fs = append(fs, report.Field{Usage: report.Pressure, Bits: 8, LogicalMax: 255})
	}
	if azimuth {
		fs = append(fs, report.Field{Usage: report.Azimuth, Bits: 16, LogicalMax: 360})
	}
	if l.area {
		fs = append(fs,
			report.Field{Usage: report.Width, Bits: 16, LogicalMax: 4095},
			report.Field{Usage: report.Height, Bits: 16, LogicalMax: 4095},
		)
	}
	return fs
}

func frameGlobals() []report.Field {
	return []report.Field{
		{Usage: report.ScanTime, Bits: 16, LogicalMax: 65535},
		{Usage: report.ContactCount, Bits: 8, LogicalMax: 255},
	}
}

func contactMaxFeature(app report.Application, slots int) report.Report {
	return report.Report{
		ID:          2,
		Application: app,
		Globals: []report.Field{
			{Usage: report.ContactMax, Bits: 8, LogicalMax: int32(slots)},
		},
	}
}

// Win8TouchScreen is a parallel touchscreen layout: one collection per
// reportable contact, so a full frame fits in a single physical report.
func Win8TouchScreen(slots int, opts ...LayoutOption) *report.Descriptor {
	var l contactLayout
	for _, o := range opts {
		o(&l)
	}
	colls := make([][]report.Field, slots)
	for i := range colls {
		colls[i] = contactFields(l, true)
	}
	return &report.Descriptor{
		Input: []report.Report{{
			ID:          1,
			Application: report.TouchScreen,
			Collections: colls,
			Globals:     frameGlobals(),
		}},
		Feature: []report.Report{contactMaxFeature(report.TouchScreen, slots)},
	}
}

// Win8Hybrid is a hybrid touchscreen layout: two contacts per physical
// report, with the declared maximum carried by the Contact Max feature.
// Frames beyond two contacts span multiple reports.
func Win8Hybrid(slots int, opts ...LayoutOption) *report.Descriptor {
	var l contactLayout
	for _, o := range opts {
		o(&l)
	}
	colls := [][]report.Field{contactFields(l, true), contactFields(l, true)}
	return &report.Descriptor{
		Input: []report.Report{{
			ID:          1,
			Application: report.TouchScreen,
			Collections: colls,
			Globals:     frameGlobals(),
		}},
		Feature: []report.Report{contactMaxFeature(report.TouchScreen, slots)},
	}
}

// PTPTouchPad is a precision touchpad layout: confidence-bearing parallel
// contacts, frame-global buttons, and the Inputmode/Button Type feature
// reports a driver negotiates against. The device boots in Mouse mode and
// reports through the minimal mouse layout until switched to Touch Pad.
func PTPTouchPad(slots int, opts ...LayoutOption) *report.Descriptor {
	return ptpDescriptor(slots, slots, opts)
}

// PTPHybrid is a precision touchpad layout with fewer contact collections
// than declared contacts, so full frames span several physical reports.
func PTPHybrid(slots, capacity int, opts ...LayoutOption) *report.Descriptor {
	return ptpDescriptor(slots, capacity, opts)
}

func ptpDescriptor(slots, capacity int, opts []LayoutOption) *report.Descriptor {
	l := contactLayout{confidence: true}
	for _, o := range opts {
		o(&l)
	}
	colls := make([][]report.Field, capacity)
	for i := range colls {
		colls[i] = contactFields(l, false)
	}
	globals := append(frameGlobals(),
		report.Field{Usage: report.Button1, Bits: 1, LogicalMax: 1},
		report.Field{Usage: report.Button2, Bits: 1, LogicalMax: 1},
		report.Field{Usage: report.Button3, Bits: 1, LogicalMax: 1},
		report.Pad(5),
	)
	return &report.Descriptor{
		Input: []report.Report{
			{
				ID:          1,
				Application: report.TouchPad,
				Collections: colls,
				Globals:     globals,
			},
			{
				ID:          4,
				Application: report.Mouse,
				Globals: []report.Field{
					{Usage: report.Button1, Bits: 1, LogicalMax: 1},
					{Usage: report.Button2, Bits: 1, LogicalMax: 1},
					report.Pad(6),
					{Usage: report.X, Bits: 8, LogicalMin: -127, LogicalMax: 127},
					{Usage: report.Y, Bits: 8, LogicalMin: -127, LogicalMax: 127},
				},
			},
		},
		Feature: []report.Report{
			{
				ID:          2,
				Application: report.TouchPad,
				Globals: []report.Field{
					{Usage: report.ContactMax, Bits: 8, LogicalMax: int32(slots)},
					{Usage: report.ButtonType, Bits: 8, LogicalMax: 1},
				},
			},
			{
				ID:          3,
				Application: report.DeviceConfiguration,
				Globals: []report.Field{
					{Usage: report.InputMode, Bits: 8, LogicalMax: 10},
				},
			},
		},
	}
}
