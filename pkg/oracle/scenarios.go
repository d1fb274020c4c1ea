package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/whot/hid-tools/internal/evdev"
	"github.com/whot/hid-tools/pkg/mt"
	"github.com/whot/hid-tools/pkg/predict"
)

// lift returns the contact as the device reports it on the way out: tip
// up and out of range.
func lift(c mt.Contact) mt.Contact {
	c.TipSwitch = false
	c.InRange = false
	return c
}

// check submits one frame and verifies the resulting state.
func check(ctx context.Context, r *Rig, spec FrameSpec) error {
	st, _, err := r.Submit(ctx, spec)
	if err != nil {
		return err
	}
	return r.Verify(st)
}

func ptr(b bool) *bool { return &b }

// Scenarios returns the built-in scenario set. Each scenario starts from
// an untouched device and leaves nothing behind for the next one.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "creation-teardown", Run: runCreationTeardown},
		{Name: "single-touch", Run: runSingleTouch},
		{Name: "dual-touch", Run: runDualTouch},
		{Name: "triple-tap", Run: runTripleTap},
		{Name: "max-contacts", Run: runMaxContacts},
		{Name: "contact-count-accurate", Run: runContactCountAccurate},
		{Name: "duplicate-ids", Run: runDuplicateIDs},
		{Name: "hovering", Run: runHovering},
		{Name: "release-miss", Run: runReleaseMiss},
		{Name: "orientation", Run: runOrientation},
		{Name: "tool-center", Run: runToolCenter},
		{Name: "ptp-buttons", Run: runPTPButtons},
		{Name: "ptp-confidence", Run: runPTPConfidence},
		{Name: "ptp-button-latch", Run: runPTPButtonLatch},
		{Name: "ptp-sparse-buttons", Run: runPTPSparseButtons},
	}
}

// runCreationTeardown checks the device lifecycle itself: a started
// device produces frames, and once the device is destroyed the still-open
// event node must refuse reads.
func runCreationTeardown(ctx context.Context, r *Rig) error {
	t0 := mt.NewContact(1, 50, 100)
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	if err := check(ctx, r, Touch(lift(t0))); err != nil {
		return err
	}
	if err := r.Destroy(); err != nil {
		return err
	}
	// Device removal reaches the input node asynchronously.
	deadline := time.Now().Add(r.eventTimeout)
	for {
		if _, err := r.events.TryEvents(); err != nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("event node still readable after device destroy")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func runSingleTouch(ctx context.Context, r *Rig) error {
	t0 := mt.NewContact(1, 50, 100)
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	return check(ctx, r, Touch(lift(t0)))
}

func runDualTouch(ctx context.Context, r *Rig) error {
	if r.dev.MaxContacts < 2 {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 50, 100)
	t1 := mt.NewContact(2, 150, 200)
	for _, spec := range []FrameSpec{
		Touch(t0),
		Touch(t0, t1),
		Touch(lift(t0), t1),
		Touch(lift(t1)),
	} {
		if err := check(ctx, r, spec); err != nil {
			return err
		}
	}
	return nil
}

func runTripleTap(ctx context.Context, r *Rig) error {
	if r.dev.MaxContacts <= 2 {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 50, 100)
	t1 := mt.NewContact(2, 150, 200)
	t2 := mt.NewContact(3, 250, 300)
	if err := check(ctx, r, Touch(t0, t1, t2)); err != nil {
		return err
	}
	return check(ctx, r, Touch(lift(t0), lift(t1), lift(t2)))
}

// runMaxContacts fills every slot the device declares and releases them
// all, making sure no contact goes missing at the limit.
func runMaxContacts(ctx context.Context, r *Rig) error {
	down := make([]mt.Contact, r.dev.MaxContacts)
	up := make([]mt.Contact, r.dev.MaxContacts)
	for i := range down {
		down[i] = mt.NewContact(i, int32((i+3)*20), int32((i+3)*20+5))
		up[i] = lift(down[i])
	}
	if err := check(ctx, r, Touch(down...)); err != nil {
		return err
	}
	return check(ctx, r, Touch(up...))
}

// runContactCountAccurate under-declares the contact count and expects
// everything past the declared total to be ignored.
func runContactCountAccurate(ctx context.Context, r *Rig) error {
	if !r.dev.Quirks.Has(mt.QuirkContactCntAccurate) {
		return ErrNotSupported
	}
	if r.dev.InputReport().Capacity() < 2 {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 5, 10)
	t1 := mt.NewContact(2, 15, 20)
	spec := Touch(t0, t1)
	spec.Declared = 1
	if err := check(ctx, r, spec); err != nil {
		return err
	}
	return check(ctx, r, Touch(lift(t0)))
}

// runDuplicateIDs reports the same contact ID twice in one frame; only
// the first occurrence may land.
func runDuplicateIDs(ctx context.Context, r *Rig) error {
	if !r.dev.Quirks.Has(mt.QuirkIgnoreDuplicates) || r.dev.MaxContacts < 2 {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 5, 10)
	t1 := mt.NewContact(1, 15, 20)
	t2 := mt.NewContact(2, 50, 100)
	spec := Touch(t0, t1, t2)
	spec.Declared = 2
	if err := check(ctx, r, spec); err != nil {
		return err
	}
	return check(ctx, r, Touch(lift(t0), lift(t2)))
}

// runHovering walks a contact through hover, touch, hover again, and out
// of range, checking the distance axis at each step.
func runHovering(ctx context.Context, r *Rig) error {
	if !r.predCfg.HasInRange || !r.dev.Quirks.Has(mt.QuirkHovering) {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 150, 200)
	t0.TipSwitch = false
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	t0.TipSwitch = true
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	t0.TipSwitch = false
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	t0.InRange = false
	return check(ctx, r, Touch(t0))
}

// runReleaseMiss drops a contact without ever reporting its release and
// expects the kernel to let go on its own, then hands the same contact a
// fresh tracking identity.
func runReleaseMiss(ctx context.Context, r *Rig) error {
	if !r.dev.Quirks.Has(mt.QuirkStickyFingers) {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 5, 10)
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	st, _, err := r.ExpireCheck(ctx)
	if err != nil {
		return err
	}
	if err := r.Verify(st); err != nil {
		return err
	}
	return check(ctx, r, Touch(t0))
}

// runOrientation sweeps the azimuth across the quadrant boundaries and
// checks the clockwise folding on the orientation axis.
func runOrientation(ctx context.Context, r *Rig) error {
	if !r.predCfg.HasAzimuth {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 50, 100)
	for _, az := range []int32{0, 90, 180, 270} {
		t0.Azimuth = az
		if err := check(ctx, r, Touch(t0)); err != nil {
			return fmt.Errorf("azimuth %d: %w", az, err)
		}
	}
	return check(ctx, r, Touch(lift(t0)))
}

// runToolCenter reports distinct tracked and center coordinates and
// expects them on separate axes.
func runToolCenter(ctx context.Context, r *Rig) error {
	if !r.predCfg.HasToolCenter {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 5, 10)
	t0.CX, t0.CY = 50, 100
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	return check(ctx, r, Touch(lift(t0)))
}

// runPTPButtons clicks and releases the pad's buttons with a finger down.
func runPTPButtons(ctx context.Context, r *Rig) error {
	if r.ptp == nil {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 50, 100)
	spec := Touch(t0)
	if r.ptp.ButtonType == mt.ClickPad {
		spec.Click = ptr(true)
	} else {
		spec.Left = ptr(true)
	}
	if err := check(ctx, r, spec); err != nil {
		return err
	}

	if r.ptp.ButtonType == mt.PressurePad {
		spec = Touch(t0)
		spec.Left = ptr(false)
		spec.Right = ptr(true)
		if err := check(ctx, r, spec); err != nil {
			return err
		}
	}

	spec = Touch(lift(t0))
	spec.Click = ptr(false)
	spec.Left = ptr(false)
	spec.Right = ptr(false)
	return check(ctx, r, spec)
}

// runPTPConfidence reports an active contact as no longer confident; the
// kernel must treat it as a palm and release the slot.
func runPTPConfidence(ctx context.Context, r *Rig) error {
	if r.ptp == nil || !r.predCfg.HasConfidence {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 150, 200)
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	t0.Confidence = false
	return check(ctx, r, Touch(t0))
}

// runPTPButtonLatch presses a button, then sends further frames without
// restating it; the button must stay down until released explicitly.
func runPTPButtonLatch(ctx context.Context, r *Rig) error {
	if r.ptp == nil {
		return ErrNotSupported
	}
	t0 := mt.NewContact(1, 50, 100)
	spec := Touch(t0)
	if r.ptp.ButtonType == mt.ClickPad {
		spec.Click = ptr(true)
	} else {
		spec.Left = ptr(true)
	}
	if err := check(ctx, r, spec); err != nil {
		return err
	}

	t0.X, t0.Y = 60, 110
	if err := check(ctx, r, Touch(t0)); err != nil {
		return err
	}
	st := r.Tracker().Key(evdev.BtnLeft)
	if st != 1 {
		return fmt.Errorf("button released by motion frame, BTN_LEFT=%d", st)
	}

	spec = Touch(lift(t0))
	spec.Click = ptr(false)
	spec.Left = ptr(false)
	return check(ctx, r, spec)
}

// runPTPSparseButtons fills every slot of a hybrid pad in one logical
// frame, carrying the button press only in the first physical report.
// Continuation reports say nothing about the button, so the kernel must
// not release it mid-frame.
func runPTPSparseButtons(ctx context.Context, r *Rig) error {
	if r.ptp == nil {
		return ErrNotSupported
	}
	capacity := r.dev.InputReport().Capacity()
	if capacity >= r.dev.MaxContacts {
		return ErrNotSupported
	}

	all := make([]mt.Contact, r.dev.MaxContacts)
	for i := range all {
		all[i] = mt.NewContact(i, int32(i*10), int32(i*10+5))
	}

	rest := all
	first := true
	for len(rest) > 0 {
		chunk := rest
		if len(chunk) > capacity {
			chunk = chunk[:capacity]
		}
		rest = rest[len(chunk):]

		spec := Touch(chunk...)
		if first {
			spec.Declared = len(all)
			spec.Click, spec.Left = ptr(true), ptr(true)
		} else {
			spec.Declared = 0
			spec.HoldScanTime = true
			spec.Click, spec.Left = ptr(false), ptr(false)
		}
		if err := r.SubmitPart(ctx, spec); err != nil {
			return err
		}
		if len(rest) > 0 {
			evs, err := r.events.TryEvents()
			if err != nil {
				return err
			}
			if len(evs) > 0 {
				return fmt.Errorf("events emitted before the frame completed: %v", evs)
			}
		}
		first = false
	}

	st := r.pred.Advance(predict.Frame{
		Contacts: all,
		Declared: len(all),
		Button1:  true,
	})
	events, err := r.events.SyncEvents(r.eventTimeout)
	if err != nil {
		return fmt.Errorf("frame events: %w", err)
	}
	for _, ev := range events {
		if ev.Type == evdev.EvKey && ev.Code == evdev.BtnLeft && ev.Value == 0 {
			return fmt.Errorf("button released mid-frame")
		}
	}
	r.tracker.FeedAll(events)
	if err := r.Verify(st); err != nil {
		return err
	}

	up := make([]mt.Contact, len(all))
	for i := range all {
		up[i] = lift(all[i])
	}
	spec := Touch(up...)
	spec.Click, spec.Left = ptr(false), ptr(false)
	return check(ctx, r, spec)
}
