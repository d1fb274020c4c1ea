// Package uhid speaks the kernel's uhid wire protocol: it creates a
// virtual hid device, injects input reports, and services the GET/SET
// report requests the bound driver issues against it.
package uhid

import (
	"encoding/binary"
	"fmt"
)

// Event types, from the kernel uhid ABI.
const (
	eventDestroy        uint32 = 1
	eventStart          uint32 = 2
	eventStop           uint32 = 3
	eventOpen           uint32 = 4
	eventClose          uint32 = 5
	eventOutput         uint32 = 6
	eventGetReport      uint32 = 9
	eventGetReportReply uint32 = 10
	eventCreate2        uint32 = 11
	eventInput2         uint32 = 12
	eventSetReport      uint32 = 13
	eventSetReportReply uint32 = 14
)

// Report types shared with the hid core.
const (
	FeatureReport uint8 = 0
	OutputReport  uint8 = 1
	InputReport   uint8 = 2
)

const (
	nameMax = 128
	physMax = 64
	uniqMax = 64
	dataMax = 4096

	// eventSize is sizeof(struct uhid_event): the 4-byte type word plus
	// the largest union member (create2).
	eventSize = 4 + createPayload

	createPayload = nameMax + physMax + uniqMax + 2 + 2 + 4 + 4 + 4 + 4 + dataMax
)

// DeviceInfo is everything create2 carries about the new device. The
// descriptor bytes are passed through opaque; building them is the report
// layout provider's business, not this package's.
type DeviceInfo struct {
	Name       string
	Phys       string
	Uniq       string
	Bus        uint16
	Vendor     uint32
	Product    uint32
	Version    uint32
	Country    uint32
	Descriptor []byte
}

func putPadded(buf []byte, s string, n int) {
	copy(buf[:n-1], s)
}

// encodeCreate2 serializes a create2 request.
func encodeCreate2(info DeviceInfo) ([]byte, error) {
	if len(info.Descriptor) > dataMax {
		return nil, fmt.Errorf("descriptor too large: %d bytes", len(info.Descriptor))
	}
	buf := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(buf[0:], eventCreate2)
	p := buf[4:]
	putPadded(p[0:], info.Name, nameMax)
	putPadded(p[nameMax:], info.Phys, physMax)
	putPadded(p[nameMax+physMax:], info.Uniq, uniqMax)
	off := nameMax + physMax + uniqMax
	binary.LittleEndian.PutUint16(p[off:], uint16(len(info.Descriptor)))
	binary.LittleEndian.PutUint16(p[off+2:], info.Bus)
	binary.LittleEndian.PutUint32(p[off+4:], info.Vendor)
	binary.LittleEndian.PutUint32(p[off+8:], info.Product)
	binary.LittleEndian.PutUint32(p[off+12:], info.Version)
	binary.LittleEndian.PutUint32(p[off+16:], info.Country)
	copy(p[off+20:], info.Descriptor)
	return buf, nil
}

// encodeInput2 serializes one input report injection.
func encodeInput2(data []byte) ([]byte, error) {
	if len(data) > dataMax {
		return nil, fmt.Errorf("report too large: %d bytes", len(data))
	}
	buf := make([]byte, 4+2+len(data))
	binary.LittleEndian.PutUint32(buf[0:], eventInput2)
	binary.LittleEndian.PutUint16(buf[4:], uint16(len(data)))
	copy(buf[6:], data)
	return buf, nil
}

func encodeDestroy() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, eventDestroy)
	return buf
}

// encodeGetReportReply answers a get_report request. A nonzero errno
// refuses the request; data is then ignored by the kernel.
func encodeGetReportReply(id uint32, errno uint16, data []byte) []byte {
	buf := make([]byte, 4+4+2+2+len(data))
	binary.LittleEndian.PutUint32(buf[0:], eventGetReportReply)
	binary.LittleEndian.PutUint32(buf[4:], id)
	binary.LittleEndian.PutUint16(buf[8:], errno)
	binary.LittleEndian.PutUint16(buf[10:], uint16(len(data)))
	copy(buf[12:], data)
	return buf
}

func encodeSetReportReply(id uint32, errno uint16) []byte {
	buf := make([]byte, 4+4+2)
	binary.LittleEndian.PutUint32(buf[0:], eventSetReportReply)
	binary.LittleEndian.PutUint32(buf[4:], id)
	binary.LittleEndian.PutUint16(buf[8:], errno)
	return buf
}

// kernelEvent is one decoded kernel-to-device event. Only the fields of
// the event's own union member are meaningful.
type kernelEvent struct {
	typ uint32

	// get_report / set_report
	id    uint32
	rnum  uint8
	rtype uint8
	data  []byte
}

func decodeEvent(buf []byte) (kernelEvent, error) {
	if len(buf) < 4 {
		return kernelEvent{}, fmt.Errorf("short uhid event: %d bytes", len(buf))
	}
	ev := kernelEvent{typ: binary.LittleEndian.Uint32(buf)}
	p := buf[4:]
	switch ev.typ {
	case eventGetReport:
		if len(p) < 6 {
			return ev, fmt.Errorf("short get_report payload")
		}
		ev.id = binary.LittleEndian.Uint32(p[0:])
		ev.rnum = p[4]
		ev.rtype = p[5]
	case eventSetReport:
		if len(p) < 8 {
			return ev, fmt.Errorf("short set_report payload")
		}
		ev.id = binary.LittleEndian.Uint32(p[0:])
		ev.rnum = p[4]
		ev.rtype = p[5]
		size := int(binary.LittleEndian.Uint16(p[6:]))
		if size > len(p)-8 {
			size = len(p) - 8
		}
		ev.data = append([]byte(nil), p[8:8+size]...)
	case eventOutput:
		if len(p) < dataMax+3 {
			return ev, fmt.Errorf("short output payload")
		}
		size := int(binary.LittleEndian.Uint16(p[dataMax:]))
		if size > dataMax {
			size = dataMax
		}
		ev.rtype = p[dataMax+2]
		ev.data = append([]byte(nil), p[:size]...)
	}
	return ev, nil
}
