// Package evdev consumes the kernel's input event stream for a device
// under test: raw event decoding, sync-frame grouping, slot-state
// tracking, and discovery of the event node backing a freshly created
// virtual device.
package evdev

// Event types.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvAbs uint16 = 0x03
)

// EV_SYN codes.
const (
	SynReport uint16 = 0x00
)

// EV_KEY codes.
const (
	BtnLeft   uint16 = 0x110
	BtnRight  uint16 = 0x111
	BtnMiddle uint16 = 0x112

	BtnToolFinger    uint16 = 0x145
	BtnTouch         uint16 = 0x14a
	BtnToolDoubleTap uint16 = 0x14d
	BtnToolTripleTap uint16 = 0x14e
	BtnToolQuadTap   uint16 = 0x14f
)

// EV_ABS codes.
const (
	AbsMtSlot        uint16 = 0x2f
	AbsMtTouchMajor  uint16 = 0x30
	AbsMtTouchMinor  uint16 = 0x31
	AbsMtOrientation uint16 = 0x34
	AbsMtPositionX   uint16 = 0x35
	AbsMtPositionY   uint16 = 0x36
	AbsMtToolType    uint16 = 0x37
	AbsMtTrackingID  uint16 = 0x39
	AbsMtPressure    uint16 = 0x3a
	AbsMtDistance    uint16 = 0x3b
	AbsMtToolX       uint16 = 0x3c
	AbsMtToolY       uint16 = 0x3d

	absMax = 0x3f
)
