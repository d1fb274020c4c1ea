package evdev

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrFrameTimeout means no SYN_REPORT arrived within the deadline.
	ErrFrameTimeout = errors.New("timed out waiting for event frame")
	// ErrClosed is returned for reads on a closed or torn-down node.
	ErrClosed = errors.New("event node closed")
)

// Reader reads input events from one event node. Reads are nonblocking
// with ppoll-bounded waits so a dead device cannot hang the harness.
type Reader struct {
	fd      int
	path    string
	pending []Event
	closed  bool
}

// OpenReader opens the event node read-only.
func OpenReader(path string) (*Reader, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Reader{fd: fd, path: path}, nil
}

// Path returns the node path the reader was opened on.
func (r *Reader) Path() string { return r.path }

// Close releases the node. Further reads return ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return unix.Close(r.fd)
}

// poll waits until the node is readable or the deadline passes.
func (r *Reader) poll(deadline time.Time) error {
	remain := time.Until(deadline)
	if remain <= 0 {
		return ErrFrameTimeout
	}
	ts := unix.NsecToTimespec(remain.Nanoseconds())
	fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}}
	n, err := unix.Ppoll(fds, &ts, nil)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("ppoll %s: %w", r.path, err)
	}
	if n == 0 {
		return ErrFrameTimeout
	}
	if fds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
		return ErrClosed
	}
	return nil
}

// fill reads whatever the node has buffered into the pending queue.
func (r *Reader) fill() error {
	buf := make([]byte, 64*eventSize)
	for {
		n, err := unix.Read(r.fd, buf)
		if err != nil {
			if err == unix.EAGAIN {
				return nil
			}
			if err == unix.ENODEV {
				return ErrClosed
			}
			return fmt.Errorf("read %s: %w", r.path, err)
		}
		if n == 0 {
			return ErrClosed
		}
		r.pending = append(r.pending, decodeEvents(buf[:n])...)
		if n < len(buf) {
			return nil
		}
	}
}

// SyncEvents returns the next frame: every event up to and including one
// SYN_REPORT. It blocks at most the given timeout; expiry without a
// complete frame is ErrFrameTimeout.
func (r *Reader) SyncEvents(timeout time.Duration) ([]Event, error) {
	if r.closed {
		return nil, ErrClosed
	}
	deadline := time.Now().Add(timeout)
	for {
		for i, ev := range r.pending {
			if ev.IsSync() {
				frame := make([]Event, i+1)
				copy(frame, r.pending[:i+1])
				r.pending = r.pending[i+1:]
				return frame, nil
			}
		}
		if err := r.poll(deadline); err != nil {
			return nil, err
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// TryEvents drains buffered events without waiting, sync or not. Used to
// assert that no frame was produced.
func (r *Reader) TryEvents() ([]Event, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if err := r.fill(); err != nil {
		return nil, err
	}
	out := r.pending
	r.pending = nil
	return out, nil
}
