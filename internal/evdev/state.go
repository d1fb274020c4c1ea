package evdev

// Tracker mirrors the kernel's evdev state for a multitouch node: the
// per-slot ABS_MT values addressed through ABS_MT_SLOT, plus plain key
// and absolute-axis state. Feeding it every event of every frame keeps it
// equivalent to what a fresh EVIOCG* query of the node would return.
type Tracker struct {
	slots   [][]int32
	current int
	keys    map[uint16]int32
	abs     map[uint16]int32
}

// NewTracker builds a tracker for a node with the given slot count. All
// tracking IDs start at -1, matching an untouched device.
func NewTracker(numSlots int) *Tracker {
	t := &Tracker{
		slots: make([][]int32, numSlots),
		keys:  map[uint16]int32{},
		abs:   map[uint16]int32{},
	}
	for i := range t.slots {
		t.slots[i] = make([]int32, absMax+1)
		t.slots[i][AbsMtTrackingID] = -1
	}
	return t
}

// NumSlots returns the tracked slot count.
func (t *Tracker) NumSlots() int { return len(t.slots) }

// Feed folds one event into the state.
func (t *Tracker) Feed(ev Event) {
	switch ev.Type {
	case EvKey:
		t.keys[ev.Code] = ev.Value
	case EvAbs:
		if ev.Code == AbsMtSlot {
			if int(ev.Value) < len(t.slots) {
				t.current = int(ev.Value)
			}
			t.abs[ev.Code] = ev.Value
			return
		}
		if ev.Code >= AbsMtTouchMajor && ev.Code <= absMax {
			t.slots[t.current][ev.Code] = ev.Value
			return
		}
		t.abs[ev.Code] = ev.Value
	}
}

// FeedAll folds a frame of events into the state.
func (t *Tracker) FeedAll(evs []Event) {
	for _, ev := range evs {
		t.Feed(ev)
	}
}

// SlotValue returns the current value of an ABS_MT axis in a slot.
func (t *Tracker) SlotValue(slot int, code uint16) int32 {
	if slot < 0 || slot >= len(t.slots) {
		return 0
	}
	return t.slots[slot][code]
}

// Key returns the current state of a key or button, 0 when never seen.
func (t *Tracker) Key(code uint16) int32 { return t.keys[code] }

// Abs returns the current value of a non-slotted absolute axis.
func (t *Tracker) Abs(code uint16) int32 { return t.abs[code] }
