package mt

import (
	"context"

	"github.com/whot/hid-tools/pkg/report"
)

// PTP is a precision touchpad device. It layers persistent button state
// over the base device: button states set through frame options latch and
// keep riding on every following frame until changed, the way pad firmware
// reports its switches.
type PTP struct {
	*Device

	click bool
	left  bool
	right bool
}

// NewPTP builds a precision touchpad of the given size and button type.
// The device boots in Mouse mode; callers negotiate it into Touch Pad mode
// through SetReport before touch frames are interpreted.
func NewPTP(name string, slots int, buttonType int32, opts ...LayoutOption) (*PTP, error) {
	return NewHybridPTP(name, slots, slots, buttonType, opts...)
}

// NewHybridPTP builds a precision touchpad that fits at most capacity
// contacts in one physical report, splitting fuller frames across several.
func NewHybridPTP(name string, slots, capacity int, buttonType int32, opts ...LayoutOption) (*PTP, error) {
	d, err := NewDevice(name, PTPHybrid(slots, capacity, opts...), report.TouchPad, slots, 0)
	if err != nil {
		return nil, err
	}
	d.Quirks |= QuirkWin8PTPButtons
	d.ButtonType = buttonType
	return &PTP{Device: d}, nil
}

// Buttons folds latched state into wire order. A click pad has one physical
// switch under the pad surface; a pressure pad reports discrete left and
// right zones as the first two buttons.
func (p *PTP) Buttons() (b1, b2, b3 bool) {
	if p.ButtonType == ClickPad {
		return p.click, false, false
	}
	return p.left, p.right, false
}

// SendFrame encodes and submits one touch frame, latching any button
// state carried in the options first.
func (p *PTP) SendFrame(ctx context.Context, t Transport, contacts []Contact, opts ...FrameOption) ([][]byte, error) {
	var o frameOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.click != nil {
		p.click = *o.click
	}
	if o.left != nil {
		p.left = *o.left
	}
	if o.right != nil {
		p.right = *o.right
	}

	var meta FrameMetadata
	meta.Button1, meta.Button2, meta.Button3 = p.Buttons()
	return p.Device.SendFrame(ctx, t, contacts, meta, opts...)
}
