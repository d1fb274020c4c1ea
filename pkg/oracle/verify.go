package oracle

import (
	"fmt"
	"strings"

	"github.com/whot/hid-tools/internal/evdev"
	"github.com/whot/hid-tools/pkg/mt"
	"github.com/whot/hid-tools/pkg/predict"
)

// Mismatch is one predicted-vs-observed divergence. Slot is -1 for
// frame-global state.
type Mismatch struct {
	Field     string
	Slot      int
	Predicted int32
	Observed  int32
}

func (m Mismatch) String() string {
	if m.Slot < 0 {
		return fmt.Sprintf("%s: predicted %d, observed %d", m.Field, m.Predicted, m.Observed)
	}
	return fmt.Sprintf("slot %d %s: predicted %d, observed %d", m.Slot, m.Field, m.Predicted, m.Observed)
}

// VerifyError collects every divergence of one verification pass. It is
// the sole failure category scenarios report for semantic differences.
type VerifyError struct {
	Mismatches []Mismatch
}

func (e *VerifyError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return "state mismatch: " + strings.Join(parts, "; ")
}

// Verify diffs a predicted state against the tracked kernel state. Freed
// slots are compared on tracking ID alone, since evdev retains stale axis
// values there. Axes the layout does not declare are not compared.
func (r *Rig) Verify(st predict.State) error {
	var ms []Mismatch
	slot := func(i int, field string, code uint16, want int32) {
		got := r.tracker.SlotValue(i, code)
		if got != want {
			ms = append(ms, Mismatch{Field: field, Slot: i, Predicted: want, Observed: got})
		}
	}
	global := func(field string, got, want int32) {
		if got != want {
			ms = append(ms, Mismatch{Field: field, Slot: -1, Predicted: want, Observed: got})
		}
	}

	for i, s := range st.Slots {
		slot(i, "tracking id", evdev.AbsMtTrackingID, s.TrackingID)
		if s.TrackingID < 0 {
			continue
		}
		slot(i, "position x", evdev.AbsMtPositionX, s.X)
		slot(i, "position y", evdev.AbsMtPositionY, s.Y)
		if r.predCfg.HasToolCenter {
			slot(i, "tool x", evdev.AbsMtToolX, s.ToolX)
			slot(i, "tool y", evdev.AbsMtToolY, s.ToolY)
		}
		if r.predCfg.HasInRange && r.dev.Quirks.Has(mt.QuirkHovering) {
			slot(i, "distance", evdev.AbsMtDistance, s.Distance)
		}
		if r.predCfg.HasPressure {
			slot(i, "pressure", evdev.AbsMtPressure, s.Pressure)
		}
		if r.predCfg.HasAzimuth {
			slot(i, "orientation", evdev.AbsMtOrientation, s.Orientation)
		}
		if r.predCfg.HasArea && !r.dev.Quirks.Has(mt.QuirkNoArea) {
			slot(i, "touch major", evdev.AbsMtTouchMajor, s.TouchMajor)
			slot(i, "touch minor", evdev.AbsMtTouchMinor, s.TouchMinor)
		}
	}

	global("btn touch", r.tracker.Key(evdev.BtnTouch), b2i(st.BtnTouch))
	if r.dev.Quirks.Has(mt.QuirkWin8PTPButtons) {
		global("btn left", r.tracker.Key(evdev.BtnLeft), b2i(st.BtnLeft))
		global("btn right", r.tracker.Key(evdev.BtnRight), b2i(st.BtnRight))
	}

	if len(ms) > 0 {
		return &VerifyError{Mismatches: ms}
	}
	return nil
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
