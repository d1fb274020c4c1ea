// Package predict computes the evdev-visible outcome a multitouch frame
// should produce under a declared quirk set. It mirrors the slot, tracking
// and validity bookkeeping of the kernel's multitouch translation so the
// harness can diff observed device state against an independent model.
package predict

import (
	"time"

	"github.com/whot/hid-tools/pkg/mt"
	"github.com/whot/hid-tools/pkg/report"
)

// ReleaseTimeout is how long a contact may go unrefreshed before the
// translation layer releases it on its own.
const ReleaseTimeout = 100 * time.Millisecond

// Config describes the device properties the prediction depends on:
// contact limit, quirk set, and which per-contact capabilities the report
// layout declares.
type Config struct {
	MaxContacts int
	Quirks      mt.Quirks

	HasInRange    bool
	HasConfidence bool
	HasPressure   bool
	HasAzimuth    bool
	HasArea       bool
	HasToolCenter bool
}

// ConfigFor derives a prediction config from a device profile by probing
// its active input report layout.
func ConfigFor(d *mt.Device) Config {
	in := d.InputReport()
	return Config{
		MaxContacts:   d.MaxContacts,
		Quirks:        d.Quirks,
		HasInRange:    in.Has(report.InRange),
		HasConfidence: in.Has(report.Confidence),
		HasPressure:   in.Has(report.Pressure),
		HasAzimuth:    in.Has(report.Azimuth),
		HasArea:       in.Has(report.Width) && in.Has(report.Height),
		HasToolCenter: in.CountOf(report.X) > in.Capacity(),
	}
}

// Slot is the predicted state of one multitouch slot. TrackingID -1 means
// the slot is free; the remaining fields then hold whatever was last
// reported there, matching how evdev retains stale slot values.
type Slot struct {
	TrackingID  int32
	X, Y        int32
	ToolX       int32
	ToolY       int32
	Distance    int32
	Pressure    int32
	Orientation int32
	TouchMajor  int32
	TouchMinor  int32
}

// State is a full predicted device snapshot after one frame.
type State struct {
	Slots    []Slot
	BtnTouch bool
	BtnLeft  bool
	BtnRight bool
}

// Frame is the predictor's view of one logical frame: the contacts as
// handed to the encoder plus the declared count and button states that
// rode on the wire.
type Frame struct {
	Contacts []mt.Contact
	// Declared is the Contact Count value sent on the wire; negative
	// means len(Contacts).
	Declared int
	Button1  bool
	Button2  bool
	Button3  bool
}

type slotState struct {
	contactID int
	touching  bool
	hovering  bool
	slot      Slot
}

// Predictor tracks predicted device state frame over frame. One predictor
// pairs with one device for the lifetime of a scenario.
type Predictor struct {
	cfg  Config
	now  func() time.Time
	next int32

	slots     []slotState
	lastFrame time.Time
	btnLeft   bool
	btnRight  bool
}

// Option adjusts predictor construction.
type Option func(*Predictor)

// WithClock replaces the wall clock, letting tests drive the release
// timeout deterministically.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// New returns a predictor for a device with the given properties. All
// slots start free and tracking IDs ascend from 0.
func New(cfg Config, opts ...Option) *Predictor {
	p := &Predictor{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	p.slots = make([]slotState, cfg.MaxContacts)
	for i := range p.slots {
		p.slots[i].slot.TrackingID = -1
	}
	p.lastFrame = p.now()
	return p
}

// IdleFor reports how long the model has gone without a frame, on the
// predictor's clock.
func (p *Predictor) IdleFor() time.Duration { return p.now().Sub(p.lastFrame) }

// engaged reports whether the slot currently holds a contact.
func (s *slotState) engaged() bool { return s.slot.TrackingID >= 0 }

func (s *slotState) release() {
	s.slot.TrackingID = -1
	s.touching = false
	s.hovering = false
}

// Expire applies the idle-release rule: when no report has arrived for the
// release timeout, every held contact is let go at once. The next frame
// then assigns fresh, strictly greater tracking IDs. Without the
// sticky-fingers quirk the device has no such watchdog and the state is
// returned unchanged.
func (p *Predictor) Expire() State {
	if p.cfg.Quirks.Has(mt.QuirkStickyFingers) &&
		p.IdleFor() >= ReleaseTimeout {
		for i := range p.slots {
			if p.slots[i].engaged() {
				p.slots[i].release()
			}
		}
	}
	return p.snapshot()
}

// Advance feeds one logical frame through the model and returns the
// predicted post-frame state.
func (p *Predictor) Advance(f Frame) State {
	p.Expire()
	p.lastFrame = p.now()

	declared := f.Declared
	if declared < 0 {
		declared = len(f.Contacts)
	}

	seen := map[int]bool{}
	processed := 0
	touched := make([]bool, len(p.slots))
	for i := range f.Contacts {
		c := &f.Contacts[i]
		if p.cfg.Quirks.Has(mt.QuirkContactCntAccurate) && processed >= declared {
			break
		}
		if !p.valid(c) {
			continue
		}
		if p.cfg.Quirks.Has(mt.QuirkIgnoreDuplicates) && seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		slot := p.slotFor(c, i)
		if slot < 0 || slot >= len(p.slots) {
			processed++
			continue
		}
		touched[slot] = true
		p.apply(slot, c)
		processed++
	}

	if p.cfg.Quirks.Has(mt.QuirkNotSeenMeansUp) {
		for i := range p.slots {
			if p.slots[i].engaged() && !touched[i] {
				p.slots[i].release()
			}
		}
	}

	if p.cfg.Quirks.Has(mt.QuirkWin8PTPButtons) {
		p.btnLeft = f.Button1
		p.btnRight = f.Button2
	}
	return p.snapshot()
}

// valid applies the per-quirk contact validity rule. An invalid contact is
// dropped without touching slot state.
func (p *Predictor) valid(c *mt.Contact) bool {
	switch {
	case p.cfg.Quirks.Has(mt.QuirkValidIsInRange):
		return c.InRange
	case p.cfg.Quirks.Has(mt.QuirkValidIsConfidence):
		return c.Confidence
	}
	return true
}

// slotFor picks the slot a contact lands in. The default rule keeps a
// contact ID on its slot for as long as the contact persists and assigns
// new contacts the lowest free slot.
func (p *Predictor) slotFor(c *mt.Contact, frameIndex int) int {
	switch {
	case p.cfg.Quirks.Has(mt.QuirkSlotIsContactID):
		return c.ID
	case p.cfg.Quirks.Has(mt.QuirkSlotIsContactIDMinusOne):
		return c.ID - 1
	case p.cfg.Quirks.Has(mt.QuirkSlotIsContactNumber):
		return frameIndex
	}
	for i := range p.slots {
		if p.slots[i].engaged() && p.slots[i].contactID == c.ID {
			return i
		}
	}
	for i := range p.slots {
		if !p.slots[i].engaged() {
			return i
		}
	}
	return -1
}

// apply folds one contact into its slot: assign or refresh the tracking
// ID, or release when the contact reports itself gone.
func (p *Predictor) apply(slot int, c *mt.Contact) {
	s := &p.slots[slot]

	touching := c.TipSwitch
	hovering := !touching && p.cfg.Quirks.Has(mt.QuirkHovering) &&
		p.cfg.HasInRange && c.InRange
	palm := p.cfg.HasConfidence && !c.Confidence

	if (!touching && !hovering) || palm {
		if s.engaged() {
			s.release()
		}
		return
	}

	if !s.engaged() {
		s.slot.TrackingID = p.next
		p.next++
	}
	s.contactID = c.ID
	s.touching = touching
	s.hovering = hovering

	s.slot.X = c.X
	s.slot.Y = c.Y
	if p.cfg.HasToolCenter {
		s.slot.ToolX = c.CX
		s.slot.ToolY = c.CY
	}
	if hovering {
		s.slot.Distance = 1
	} else {
		s.slot.Distance = 0
	}
	if p.cfg.HasPressure {
		s.slot.Pressure = c.Pressure
	}
	if p.cfg.HasAzimuth {
		s.slot.Orientation = orientationFromAzimuth(c.Azimuth)
	}
	if p.cfg.HasArea && !p.cfg.Quirks.Has(mt.QuirkNoArea) {
		p.applyArea(s, c)
	}
}

// applyArea maps width/height onto the touch ellipse. The larger side
// becomes the major axis; without an azimuth field the orientation just
// flags which side that was.
func (p *Predictor) applyArea(s *slotState, c *mt.Contact) {
	w, h := c.Width, c.Height
	major, minor := h, w
	orient := int32(0)
	if w > h {
		major, minor = w, h
		orient = 1
	}
	if p.cfg.Quirks.Has(mt.QuirkTouchSizeScaling) {
		major *= 2
		minor *= 2
	}
	s.slot.TouchMajor = major
	s.slot.TouchMinor = minor
	if !p.cfg.HasAzimuth {
		s.slot.Orientation = orient
	}
}

func (p *Predictor) snapshot() State {
	st := State{Slots: make([]Slot, len(p.slots))}
	for i := range p.slots {
		st.Slots[i] = p.slots[i].slot
		if p.slots[i].touching || p.slots[i].hovering {
			st.BtnTouch = true
		}
	}
	st.BtnLeft = p.btnLeft
	st.BtnRight = p.btnRight
	return st
}

// orientationFromAzimuth converts the counter-clockwise wire azimuth into
// the clockwise evdev orientation: fold into (-180, 180], then flip the
// sign. 270 degrees of azimuth comes out as orientation 90.
func orientationFromAzimuth(az int32) int32 {
	for az > 180 {
		az -= 360
	}
	for az <= -180 {
		az += 360
	}
	return -az
}
