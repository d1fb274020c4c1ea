package mt

import "github.com/whot/hid-tools/pkg/report"

// ContactKind tags the variant of a Contact. Finger and stylus contacts
// share the base field set; the stylus adds its switches and angles. No
// call site dispatches on the kind at runtime, it only selects which
// fields are meaningful.
type ContactKind uint8

const (
	Finger ContactKind = iota
	Stylus
)

// Contact describes one physical touch point for one frame. The ID is
// device-local and carries no identity beyond the frame it appears in.
type Contact struct {
	Kind ContactKind

	ID   int
	X, Y int32
	// CX, CY are the contact-area center. Devices exposing both T and C
	// coordinates report X/Y as the tracked point and CX/CY as the center;
	// they default to X/Y.
	CX, CY     int32
	TipSwitch  bool
	Confidence bool
	InRange    bool
	Pressure   int32
	Azimuth    int32 // counter-clockwise degrees, 0-359
	Width      int32
	Height     int32

	// Stylus variant fields.
	Barrel bool
	Invert bool
	Eraser bool
	XTilt  bool
	YTilt  bool
	Twist  int32
}

// NewContact returns a finger contact with the conventional defaults:
// tip down, confident, in range, pressure 100, a 10x10 area.
func NewContact(id int, x, y int32) Contact {
	return Contact{
		Kind:       Finger,
		ID:         id,
		X:          x,
		Y:          y,
		CX:         x,
		CY:         y,
		TipSwitch:  true,
		Confidence: true,
		InRange:    true,
		Pressure:   100,
		Width:      10,
		Height:     10,
	}
}

// NewStylus returns a stylus contact. Stylus devices report a single tool,
// so the contact ID is fixed at 0.
func NewStylus(x, y int32) Contact {
	c := NewContact(0, x, y)
	c.Kind = Stylus
	return c
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Field implements report.Source for per-contact report fields. The nth
// occurrence of X/Y selects the tracked point first, the area center second.
func (c *Contact) Field(u report.Usage, nth int) (int32, bool) {
	switch u {
	case report.TipSwitch:
		return b2i(c.TipSwitch), true
	case report.Confidence:
		return b2i(c.Confidence), true
	case report.InRange:
		return b2i(c.InRange), true
	case report.ContactID:
		return int32(c.ID), true
	case report.X:
		if nth == 0 {
			return c.X, true
		}
		return c.CX, true
	case report.Y:
		if nth == 0 {
			return c.Y, true
		}
		return c.CY, true
	case report.Azimuth:
		return c.Azimuth, true
	case report.Pressure:
		return c.Pressure, true
	case report.Width:
		return c.Width, true
	case report.Height:
		return c.Height, true
	}
	if c.Kind == Stylus {
		switch u {
		case report.BarrelSwitch:
			return b2i(c.Barrel), true
		case report.Invert:
			return b2i(c.Invert), true
		case report.Eraser:
			return b2i(c.Eraser), true
		case report.XTilt:
			return b2i(c.XTilt), true
		case report.YTilt:
			return b2i(c.YTilt), true
		case report.Twist:
			return c.Twist, true
		}
	}
	return 0, false
}

// FrameMetadata carries the frame-global values attached to every physical
// report of one logical frame.
type FrameMetadata struct {
	ScanTime     uint32
	ContactCount int
	// Pointer-type button states: click/primary, secondary, tertiary.
	Button1 bool
	Button2 bool
	Button3 bool
}

// Field implements report.Source for frame-global report fields.
func (m *FrameMetadata) Field(u report.Usage, _ int) (int32, bool) {
	switch u {
	case report.ScanTime:
		return int32(m.ScanTime), true
	case report.ContactCount:
		return int32(m.ContactCount), true
	case report.Button1:
		return b2i(m.Button1), true
	case report.Button2:
		return b2i(m.Button2), true
	case report.Button3:
		return b2i(m.Button3), true
	}
	return 0, false
}
