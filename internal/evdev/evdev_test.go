package evdev

import (
	"encoding/binary"
	"testing"
)

func rawEvent(typ, code uint16, value int32) []byte {
	buf := make([]byte, eventSize)
	binary.LittleEndian.PutUint16(buf[16:], typ)
	binary.LittleEndian.PutUint16(buf[18:], code)
	binary.LittleEndian.PutUint32(buf[20:], uint32(value))
	return buf
}

func TestDecodeEvents(t *testing.T) {
	var buf []byte
	buf = append(buf, rawEvent(EvAbs, AbsMtTrackingID, -1)...)
	buf = append(buf, rawEvent(EvKey, BtnTouch, 1)...)
	buf = append(buf, rawEvent(EvSyn, SynReport, 0)...)
	// Trailing garbage shorter than one event is dropped.
	buf = append(buf, 0xde, 0xad)

	evs := decodeEvents(buf)
	if len(evs) != 3 {
		t.Fatalf("decoded %d events, want 3", len(evs))
	}
	if evs[0].Type != EvAbs || evs[0].Code != AbsMtTrackingID || evs[0].Value != -1 {
		t.Errorf("event 0 = %v", evs[0])
	}
	if evs[1].Type != EvKey || evs[1].Code != BtnTouch || evs[1].Value != 1 {
		t.Errorf("event 1 = %v", evs[1])
	}
	if !evs[2].IsSync() {
		t.Errorf("event 2 not recognized as sync: %v", evs[2])
	}
}

func TestTrackerSlotAddressing(t *testing.T) {
	tr := NewTracker(2)

	// Fresh trackers look like an untouched device.
	if got := tr.SlotValue(0, AbsMtTrackingID); got != -1 {
		t.Fatalf("initial tracking ID = %d, want -1", got)
	}

	tr.FeedAll([]Event{
		{Type: EvAbs, Code: AbsMtSlot, Value: 0},
		{Type: EvAbs, Code: AbsMtTrackingID, Value: 0},
		{Type: EvAbs, Code: AbsMtPositionX, Value: 50},
		{Type: EvAbs, Code: AbsMtPositionY, Value: 100},
		{Type: EvAbs, Code: AbsMtSlot, Value: 1},
		{Type: EvAbs, Code: AbsMtTrackingID, Value: 1},
		{Type: EvAbs, Code: AbsMtPositionX, Value: 150},
		{Type: EvKey, Code: BtnTouch, Value: 1},
		{Type: EvSyn, Code: SynReport, Value: 0},
	})

	if got := tr.SlotValue(0, AbsMtPositionX); got != 50 {
		t.Errorf("slot 0 x = %d, want 50", got)
	}
	if got := tr.SlotValue(1, AbsMtPositionX); got != 150 {
		t.Errorf("slot 1 x = %d, want 150", got)
	}
	if got := tr.Key(BtnTouch); got != 1 {
		t.Errorf("BTN_TOUCH = %d, want 1", got)
	}

	// Omitting ABS_MT_SLOT keeps addressing the last slot.
	tr.Feed(Event{Type: EvAbs, Code: AbsMtPositionX, Value: 160})
	if got := tr.SlotValue(1, AbsMtPositionX); got != 160 {
		t.Errorf("slot 1 x = %d after implicit addressing, want 160", got)
	}
	if got := tr.SlotValue(0, AbsMtPositionX); got != 50 {
		t.Errorf("slot 0 x = %d, want untouched 50", got)
	}
}

func TestTrackerRelease(t *testing.T) {
	tr := NewTracker(1)
	tr.FeedAll([]Event{
		{Type: EvAbs, Code: AbsMtSlot, Value: 0},
		{Type: EvAbs, Code: AbsMtTrackingID, Value: 0},
		{Type: EvAbs, Code: AbsMtPositionX, Value: 50},
		{Type: EvKey, Code: BtnTouch, Value: 1},
	})
	tr.FeedAll([]Event{
		{Type: EvAbs, Code: AbsMtTrackingID, Value: -1},
		{Type: EvKey, Code: BtnTouch, Value: 0},
	})

	if got := tr.SlotValue(0, AbsMtTrackingID); got != -1 {
		t.Errorf("tracking ID = %d after release, want -1", got)
	}
	// evdev keeps stale axis values on freed slots.
	if got := tr.SlotValue(0, AbsMtPositionX); got != 50 {
		t.Errorf("x = %d after release, want retained 50", got)
	}
}

func TestEviocgbit(t *testing.T) {
	// EVIOCGBIT(EV_ABS, 8) is _IOC(read, 'E', 0x23, 8).
	want := uint(2)<<30 | uint(8)<<16 | uint('E')<<8 | 0x23
	if got := eviocgbit(EvAbs, 8); got != want {
		t.Errorf("eviocgbit = %#x, want %#x", got, want)
	}
}
