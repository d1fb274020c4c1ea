// Package report models HID input and feature report layouts and packs
// semantic field values into wire-format report bytes.
//
// Layouts are declared programmatically by the report-descriptor provider;
// parsing or generating raw descriptor bytes is out of scope here. A Report
// is an ordered sequence of per-contact collections followed by frame-global
// fields, mirroring how multitouch digitizers lay out their input reports.
package report

import "errors"

// Usage names a semantic HID field, matching the usage table spelling.
type Usage string

const (
	TipSwitch    Usage = "Tip Switch"
	InRange      Usage = "In Range"
	Confidence   Usage = "Confidence"
	ContactID    Usage = "Contact Id"
	X            Usage = "X"
	Y            Usage = "Y"
	Azimuth      Usage = "Azimuth"
	Pressure     Usage = "Tip Pressure"
	Width        Usage = "Width"
	Height       Usage = "Height"
	ScanTime     Usage = "Scan Time"
	ContactCount Usage = "Contact Count"
	ContactMax   Usage = "Contact Max"
	InputMode    Usage = "Inputmode"
	ButtonType   Usage = "Button Type"
	Button1      Usage = "Button 1"
	Button2      Usage = "Button 2"
	Button3      Usage = "Button 3"

	BarrelSwitch Usage = "Barrel Switch"
	Invert       Usage = "Invert"
	Eraser       Usage = "Eraser"
	XTilt        Usage = "X Tilt"
	YTilt        Usage = "Y Tilt"
	Twist        Usage = "Twist"
)

// Application identifies the top-level collection a report belongs to.
type Application string

const (
	TouchScreen         Application = "Touch Screen"
	TouchPad            Application = "Touch Pad"
	Mouse               Application = "Mouse"
	DeviceConfiguration Application = "Device Configuration"
)

// Field is one variable (or constant padding) entry in a report. A zero
// Usage marks constant padding: it occupies bits on the wire but never
// carries data.
type Field struct {
	Usage      Usage
	Bits       uint
	LogicalMin int32
	LogicalMax int32
}

// Pad returns a constant-padding field of the given width.
func Pad(bits uint) Field {
	return Field{Bits: bits}
}

// Report is one numbered report of an application. Collections hold the
// per-contact field groups in wire order; Globals follow them.
type Report struct {
	ID          byte
	Application Application
	Collections [][]Field
	Globals     []Field
}

// Descriptor is the per-device set of report layouts exposed by the
// report-descriptor provider.
type Descriptor struct {
	Input   []Report
	Feature []Report
}

// InputFor returns the input report serving the given application, or nil.
func (d *Descriptor) InputFor(app Application) *Report {
	for i := range d.Input {
		if d.Input[i].Application == app {
			return &d.Input[i]
		}
	}
	return nil
}

// FeatureByID returns the feature report with the given report ID, or nil.
func (d *Descriptor) FeatureByID(id byte) *Report {
	for i := range d.Feature {
		if d.Feature[i].ID == id {
			return &d.Feature[i]
		}
	}
	return nil
}

// FeatureWith returns the first feature report carrying the usage, or nil.
func (d *Descriptor) FeatureWith(u Usage) *Report {
	for i := range d.Feature {
		if d.Feature[i].Has(u) {
			return &d.Feature[i]
		}
	}
	return nil
}

// Capacity is the number of contacts one physical report can carry,
// counted as the number of Contact Id fields in the layout.
func (r *Report) Capacity() int {
	n := 0
	for _, coll := range r.Collections {
		for _, f := range coll {
			if f.Usage == ContactID {
				n++
			}
		}
	}
	return n
}

// Fields returns every usage present in the report, in wire order,
// duplicates included.
func (r *Report) Fields() []Usage {
	var out []Usage
	walk := func(fs []Field) {
		for _, f := range fs {
			if f.Usage != "" {
				out = append(out, f.Usage)
			}
		}
	}
	for _, coll := range r.Collections {
		walk(coll)
	}
	walk(r.Globals)
	return out
}

// Has reports whether the usage appears anywhere in the report. Callers
// treat a missing usage as "capability absent" and skip dependent behavior.
func (r *Report) Has(u Usage) bool {
	for _, coll := range r.Collections {
		for _, f := range coll {
			if f.Usage == u {
				return true
			}
		}
	}
	for _, f := range r.Globals {
		if f.Usage == u {
			return true
		}
	}
	return false
}

// CountOf returns how many times the usage appears in the report.
func (r *Report) CountOf(u Usage) int {
	n := 0
	for _, coll := range r.Collections {
		for _, f := range coll {
			if f.Usage == u {
				n++
			}
		}
	}
	for _, f := range r.Globals {
		if f.Usage == u {
			n++
		}
	}
	return n
}

// Source supplies field values during packing. The nth argument
// disambiguates repeated usages within one collection (a digitizer
// reporting both T and C coordinates carries X twice, for example).
type Source interface {
	Field(u Usage, nth int) (int32, bool)
}

var (
	// ErrShortReport means packed data ran out before the layout did.
	ErrShortReport = errors.New("report data shorter than layout")
	// ErrUsageAbsent means the requested usage is not part of the layout.
	ErrUsageAbsent = errors.New("usage not present in report")
)
