package evdev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"
)

// ErrNodeTimeout means the kernel never exposed an event node for the
// device within the deadline.
var ErrNodeTimeout = errors.New("timed out waiting for event node")

const (
	sysHidDevices = "/sys/bus/hid/devices"
	devInput      = "/dev/input"
)

// findHidDevice locates the sysfs entry of the hid device carrying the
// given uniq string.
func findHidDevice(uniq string) (string, error) {
	entries, err := os.ReadDir(sysHidDevices)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", sysHidDevices, err)
	}
	needle := "HID_UNIQ=" + uniq
	for _, e := range entries {
		dir := filepath.Join(sysHidDevices, e.Name())
		uevent, err := os.ReadFile(filepath.Join(dir, "uevent"))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(uevent), "\n") {
			if line == needle {
				return dir, nil
			}
		}
	}
	return "", os.ErrNotExist
}

// eventNodes lists the /dev/input paths of the input children of a sysfs
// hid device.
func eventNodes(hidDir string) []string {
	matches, _ := filepath.Glob(filepath.Join(hidDir, "input", "input*", "event*"))
	var out []string
	for _, m := range matches {
		out = append(out, filepath.Join(devInput, filepath.Base(m)))
	}
	return out
}

// eviocgbit builds the EVIOCGBIT(ev, len) ioctl request number.
func eviocgbit(ev uint16, size int) uint {
	return uint(2<<30) | uint(size)<<16 | uint('E')<<8 | uint(0x20+ev)
}

// hasAbsCode reports whether the event node advertises the absolute axis.
// The multitouch node of a device is the one advertising ABS_MT_SLOT.
func hasAbsCode(path string, code uint16) bool {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer unix.Close(fd)

	var bits [absMax/8 + 1]byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		uintptr(eviocgbit(EvAbs, len(bits))),
		uintptr(unsafe.Pointer(&bits[0])))
	if errno != 0 {
		return false
	}
	return bits[code/8]&(1<<(code%8)) != 0
}

// findTouchNode returns the multitouch event node of the device with the
// given uniq, or os.ErrNotExist while the kernel has not bound it yet.
func findTouchNode(uniq string) (string, error) {
	hidDir, err := findHidDevice(uniq)
	if err != nil {
		return "", err
	}
	for _, node := range eventNodes(hidDir) {
		if hasAbsCode(node, AbsMtSlot) {
			return node, nil
		}
	}
	return "", os.ErrNotExist
}

// WaitForTouchNode blocks until the kernel exposes the multitouch event
// node of the device carrying uniq, or the timeout expires. Node creation
// is watched through inotify on /dev/input with a polling fallback, since
// the hid bus binds asynchronously and the watch can race the scan.
func WaitForTouchNode(ctx context.Context, log *slog.Logger, uniq string, timeout time.Duration) (string, error) {
	if node, err := findTouchNode(uniq); err == nil {
		return node, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if werr := watcher.Add(devInput); werr != nil {
			log.Debug("inotify watch failed, polling only", "err", werr)
		}
	} else {
		log.Debug("inotify unavailable, polling only", "err", err)
		watcher = nil
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var events chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("%w: uniq %q", ErrNodeTimeout, uniq)
		case ev := <-events:
			if !ev.Has(fsnotify.Create) {
				continue
			}
		case <-ticker.C:
		}
		if node, err := findTouchNode(uniq); err == nil {
			log.Debug("event node bound", "uniq", uniq, "node", node)
			return node, nil
		}
	}
}
