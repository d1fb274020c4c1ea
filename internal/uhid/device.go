package uhid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultPath is where the uhid character device lives.
const DefaultPath = "/dev/uhid"

var (
	// ErrDispatchTimeout means no kernel event arrived within the deadline.
	ErrDispatchTimeout = errors.New("timed out waiting for uhid event")
	// ErrStopped means the kernel tore the device down.
	ErrStopped = errors.New("uhid device stopped")
)

// ReportHandler services the driver-initiated report requests of a
// device. An error return refuses the request.
type ReportHandler interface {
	GetReport(rtype uint8, rnum uint8) ([]byte, error)
	SetReport(rtype uint8, rnum uint8, data []byte) error
}

// Device is one open uhid channel, carrying at most one virtual device.
type Device struct {
	fd      int
	log     *slog.Logger
	created bool
	started bool
	opened  bool
	closed  bool
}

// Open opens the uhid node. The device does not exist kernel-side until
// Create is called.
func Open(path string, log *slog.Logger) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{fd: fd, log: log}, nil
}

func (d *Device) write(buf []byte) error {
	n, err := unix.Write(d.fd, buf)
	if err != nil {
		return fmt.Errorf("uhid write: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("uhid short write: %d of %d", n, len(buf))
	}
	return nil
}

// Create registers the virtual device with the kernel. The matching
// driver binds asynchronously; callers wait for the event node separately.
func (d *Device) Create(info DeviceInfo) error {
	buf, err := encodeCreate2(info)
	if err != nil {
		return err
	}
	if err := d.write(buf); err != nil {
		return fmt.Errorf("create2: %w", err)
	}
	d.created = true
	d.log.Debug("uhid device created", "name", info.Name, "uniq", info.Uniq)
	return nil
}

// Input injects one input report.
func (d *Device) Input(data []byte) error {
	buf, err := encodeInput2(data)
	if err != nil {
		return err
	}
	return d.write(buf)
}

// Destroy unregisters the device. The uhid channel stays open and could
// carry a new Create.
func (d *Device) Destroy() error {
	if !d.created {
		return nil
	}
	d.created = false
	if err := d.write(encodeDestroy()); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	return nil
}

// Close tears down the device and releases the channel. Closing twice
// is a no-op.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	derr := d.Destroy()
	cerr := unix.Close(d.fd)
	if derr != nil {
		return derr
	}
	return cerr
}

// readEvent blocks for one kernel event, at most until the deadline.
func (d *Device) readEvent(deadline time.Time) (kernelEvent, error) {
	buf := make([]byte, eventSize)
	for {
		n, err := unix.Read(d.fd, buf)
		if err == nil {
			return decodeEvent(buf[:n])
		}
		if err != unix.EAGAIN {
			return kernelEvent{}, fmt.Errorf("uhid read: %w", err)
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return kernelEvent{}, ErrDispatchTimeout
		}
		ts := unix.NsecToTimespec(remain.Nanoseconds())
		fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
		if _, perr := unix.Ppoll(fds, &ts, nil); perr != nil && perr != unix.EINTR {
			return kernelEvent{}, fmt.Errorf("uhid ppoll: %w", perr)
		}
	}
}

// Dispatch reads and handles exactly one kernel event. GET/SET report
// requests are answered through the handler; a handler error turns into a
// refused request, never a dispatch failure.
func (d *Device) Dispatch(ctx context.Context, timeout time.Duration, h ReportHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev, err := d.readEvent(time.Now().Add(timeout))
	if err != nil {
		return err
	}
	switch ev.typ {
	case eventStart:
		d.started = true
		d.log.Debug("uhid start")
	case eventStop:
		d.started = false
		d.log.Debug("uhid stop")
		return ErrStopped
	case eventOpen:
		d.opened = true
		d.log.Debug("uhid open")
	case eventClose:
		d.opened = false
		d.log.Debug("uhid close")
	case eventOutput:
		d.log.Debug("uhid output report", "len", len(ev.data))
	case eventGetReport:
		data, herr := h.GetReport(ev.rtype, ev.rnum)
		var errno uint16
		if herr != nil {
			// EIO, the conventional refusal.
			errno, data = 5, nil
			d.log.Debug("get_report refused", "rnum", ev.rnum, "err", herr)
		}
		if werr := d.write(encodeGetReportReply(ev.id, errno, data)); werr != nil {
			return fmt.Errorf("get_report reply: %w", werr)
		}
	case eventSetReport:
		var errno uint16
		if herr := h.SetReport(ev.rtype, ev.rnum, ev.data); herr != nil {
			errno = 5
			d.log.Debug("set_report refused", "rnum", ev.rnum, "err", herr)
		}
		if werr := d.write(encodeSetReportReply(ev.id, errno)); werr != nil {
			return fmt.Errorf("set_report reply: %w", werr)
		}
	default:
		d.log.Debug("uhid event ignored", "type", ev.typ)
	}
	return nil
}

// Pump dispatches queued kernel events until the channel runs dry. Used
// after frame submission so pending report requests cannot back up.
func (d *Device) Pump(ctx context.Context, h ReportHandler) error {
	for {
		err := d.Dispatch(ctx, 0, h)
		if errors.Is(err, ErrDispatchTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Started reports whether the kernel driver has bound the device.
func (d *Device) Started() bool { return d.started }
