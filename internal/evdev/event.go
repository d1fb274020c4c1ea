package evdev

import (
	"encoding/binary"
	"fmt"
)

// eventSize is sizeof(struct input_event) on 64-bit: two 64-bit time
// words, type, code, value.
const eventSize = 24

// Event is one decoded input event. The timestamp is dropped; frame
// grouping runs on SYN_REPORT boundaries, not time.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// IsSync reports whether the event terminates a frame.
func (e Event) IsSync() bool {
	return e.Type == EvSyn && e.Code == SynReport
}

func (e Event) String() string {
	return fmt.Sprintf("type %#04x code %#04x value %d", e.Type, e.Code, e.Value)
}

// decodeEvents splits a read buffer into events. Partial trailing bytes
// are a protocol violation from the kernel side and are discarded.
func decodeEvents(buf []byte) []Event {
	n := len(buf) / eventSize
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		b := buf[i*eventSize:]
		out = append(out, Event{
			Type:  binary.LittleEndian.Uint16(b[16:18]),
			Code:  binary.LittleEndian.Uint16(b[18:20]),
			Value: int32(binary.LittleEndian.Uint32(b[20:24])),
		})
	}
	return out
}
