// Package oracle runs differential scenarios against the kernel's
// multitouch translation: it drives an emulated device, predicts the
// evdev-visible outcome of every frame, and diffs the prediction against
// what the kernel actually produced.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/whot/hid-tools/internal/evdev"
	"github.com/whot/hid-tools/internal/uhid"
	"github.com/whot/hid-tools/pkg/mt"
	"github.com/whot/hid-tools/pkg/predict"
)

// ErrNotSupported marks a scenario precondition the device profile does
// not meet. Runners report it as a skip, not a failure.
var ErrNotSupported = errors.New("device profile does not support this scenario")

// DeviceTransport is the uhid surface the rig drives. The real
// implementation is uhid.Device; tests substitute a loopback fake.
type DeviceTransport interface {
	Create(info uhid.DeviceInfo) error
	Input(data []byte) error
	Dispatch(ctx context.Context, timeout time.Duration, h uhid.ReportHandler) error
	Pump(ctx context.Context, h uhid.ReportHandler) error
	Destroy() error
	Close() error
}

// EventSource is the evdev surface the rig reads. The real implementation
// is evdev.Reader on the device's event node.
type EventSource interface {
	SyncEvents(timeout time.Duration) ([]evdev.Event, error)
	TryEvents() ([]evdev.Event, error)
	Close() error
}

// Rig binds one emulated device to its kernel-side observation channel
// and keeps the predictor in lockstep with the frames sent. One logical
// frame is in flight at a time.
type Rig struct {
	dev *mt.Device
	ptp *mt.PTP

	log       *slog.Logger
	transport DeviceTransport
	events    EventSource
	pred      *predict.Predictor
	predCfg   predict.Config
	tracker   *evdev.Tracker
	uniq      string

	closed       bool
	rawDesc      []byte
	nodeTimeout  time.Duration
	eventTimeout time.Duration
	releaseSlack time.Duration
	clock        func() time.Time
}

// Option adjusts rig construction.
type Option func(*Rig)

// WithLogger sets the rig logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Rig) { r.log = log }
}

// WithTransport substitutes the uhid transport, for tests.
func WithTransport(t DeviceTransport) Option {
	return func(r *Rig) { r.transport = t }
}

// WithEventSource substitutes the evdev source and skips node discovery.
func WithEventSource(s EventSource) Option {
	return func(r *Rig) { r.events = s }
}

// WithRawDescriptor supplies the descriptor bytes registered with the
// kernel. The rig treats them as opaque.
func WithRawDescriptor(desc []byte) Option {
	return func(r *Rig) { r.rawDesc = desc }
}

// WithTimeouts bounds node discovery and per-frame event waits.
func WithTimeouts(node, event time.Duration) Option {
	return func(r *Rig) { r.nodeTimeout, r.eventTimeout = node, event }
}

// WithReleaseSlack sets how far past the idle-release deadline
// ExpireCheck sleeps.
func WithReleaseSlack(d time.Duration) Option {
	return func(r *Rig) { r.releaseSlack = d }
}

// WithClock replaces the wall clock for the predictor and expiry sleeps.
func WithClock(now func() time.Time) Option {
	return func(r *Rig) { r.clock = now }
}

// New builds a rig for the device. Call Start before submitting frames.
func New(dev *mt.Device, opts ...Option) *Rig {
	r := &Rig{
		dev:          dev,
		log:          slog.Default(),
		uniq:         uuid.NewString(),
		nodeTimeout:  2 * time.Second,
		eventTimeout: time.Second,
		releaseSlack: 20 * time.Millisecond,
		clock:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.predCfg = predict.ConfigFor(dev)
	r.pred = predict.New(r.predCfg, predict.WithClock(r.clock))
	r.tracker = evdev.NewTracker(dev.MaxContacts)
	return r
}

// NewPTP builds a rig around a precision touchpad, keeping its latched
// button state visible to the predictor.
func NewPTP(p *mt.PTP, opts ...Option) *Rig {
	r := New(p.Device, opts...)
	r.ptp = p
	return r
}

// Device returns the device under emulation.
func (r *Rig) Device() *mt.Device { return r.dev }

// Predictor exposes the rig's outcome model.
func (r *Rig) Predictor() *predict.Predictor { return r.pred }

// Tracker exposes the observed kernel-side state.
func (r *Rig) Tracker() *evdev.Tracker { return r.tracker }

// handler adapts the device negotiator to the uhid report callbacks.
type handler struct{ d *mt.Device }

func (h handler) GetReport(rtype uint8, rnum uint8) ([]byte, error) {
	return h.d.GetReport(mt.ReportType(rtype), rnum)
}

func (h handler) SetReport(rtype uint8, rnum uint8, data []byte) error {
	// Numbered reports always arrive with their ID prefixed.
	if rnum != 0 && len(data) > 0 {
		data = data[1:]
	}
	return h.d.SetReport(mt.ReportType(rtype), rnum, data)
}

// inputTransport adapts the uhid channel to the encoder's transport.
type inputTransport struct{ t DeviceTransport }

func (it inputTransport) SubmitReport(_ context.Context, data []byte) error {
	return it.t.Input(data)
}

// Start registers the device with the kernel and waits for its multitouch
// event node, servicing driver report requests the whole time: the driver
// negotiates modes and reads features during probe, before the node
// exists.
func (r *Rig) Start(ctx context.Context) error {
	if r.transport == nil {
		dev, err := uhid.Open(uhid.DefaultPath, r.log)
		if err != nil {
			return err
		}
		r.transport = dev
	}
	err := r.transport.Create(uhid.DeviceInfo{
		Name:       r.dev.Name,
		Phys:       "hid-tools/" + r.dev.Name,
		Uniq:       r.uniq,
		Bus:        uint16(r.dev.ID.Bus),
		Vendor:     r.dev.ID.Vendor,
		Product:    r.dev.ID.Product,
		Version:    r.dev.ID.Version,
		Descriptor: r.rawDesc,
	})
	if err != nil {
		return err
	}

	if r.events != nil {
		// Injected source, nothing kernel-side to discover.
		return r.transport.Pump(ctx, handler{r.dev})
	}

	type found struct {
		node string
		err  error
	}
	ch := make(chan found, 1)
	go func() {
		node, werr := evdev.WaitForTouchNode(ctx, r.log, r.uniq, r.nodeTimeout)
		ch <- found{node, werr}
	}()
	for {
		select {
		case f := <-ch:
			if f.err != nil {
				return fmt.Errorf("device %s: %w", r.dev.Name, f.err)
			}
			reader, oerr := evdev.OpenReader(f.node)
			if oerr != nil {
				return oerr
			}
			r.events = reader
			r.log.Info("device ready", "name", r.dev.Name, "node", f.node, "quirks", r.dev.Quirks)
			return nil
		default:
			derr := r.transport.Dispatch(ctx, 10*time.Millisecond, handler{r.dev})
			if derr != nil && !errors.Is(derr, uhid.ErrDispatchTimeout) {
				return derr
			}
		}
	}
}

// FrameSpec is one logical frame to put on the wire. A negative Declared
// means the real contact count. Button pointers latch PTP button state
// when set. HoldScanTime marks a continuation report of a frame already
// timestamped.
type FrameSpec struct {
	Contacts     []mt.Contact
	Declared     int
	HoldScanTime bool
	Click        *bool
	Left         *bool
	Right        *bool
}

// Touch wraps a plain contact list into a spec.
func Touch(contacts ...mt.Contact) FrameSpec {
	return FrameSpec{Contacts: contacts, Declared: -1}
}

func (s FrameSpec) options() []mt.FrameOption {
	var opts []mt.FrameOption
	if s.Declared >= 0 {
		opts = append(opts, mt.WithDeclaredCount(s.Declared))
	}
	if s.HoldScanTime {
		opts = append(opts, mt.WithoutScanTimeIncrement())
	}
	if s.Click != nil {
		opts = append(opts, mt.WithClick(*s.Click))
	}
	if s.Left != nil {
		opts = append(opts, mt.WithLeft(*s.Left))
	}
	if s.Right != nil {
		opts = append(opts, mt.WithRight(*s.Right))
	}
	return opts
}

// send puts one spec on the wire and services any driver requests it
// provoked.
func (r *Rig) send(ctx context.Context, spec FrameSpec) error {
	var err error
	tr := inputTransport{r.transport}
	if r.ptp != nil {
		_, err = r.ptp.SendFrame(ctx, tr, spec.Contacts, spec.options()...)
	} else {
		_, err = r.dev.SendFrame(ctx, tr, spec.Contacts, mt.FrameMetadata{}, spec.options()...)
	}
	if err != nil {
		return err
	}
	return r.transport.Pump(ctx, handler{r.dev})
}

// SubmitPart sends one physical report of a frame spanning several
// reports, without advancing the predictor or waiting for events. The
// caller finishes the frame itself and reconciles prediction afterwards.
func (r *Rig) SubmitPart(ctx context.Context, spec FrameSpec) error {
	return r.send(ctx, spec)
}

// Submit sends one logical frame, services driver requests, reads the
// resulting event frame, and returns the predicted state alongside the
// observed events. The tracker is already updated on return.
func (r *Rig) Submit(ctx context.Context, spec FrameSpec) (predict.State, []evdev.Event, error) {
	if err := r.send(ctx, spec); err != nil {
		return predict.State{}, nil, err
	}

	pf := predict.Frame{Contacts: spec.Contacts, Declared: spec.Declared}
	if r.ptp != nil {
		pf.Button1, pf.Button2, pf.Button3 = r.ptp.Buttons()
	}
	predicted := r.pred.Advance(pf)

	events, err := r.events.SyncEvents(r.eventTimeout)
	if err != nil {
		return predicted, nil, fmt.Errorf("frame events: %w", err)
	}
	r.tracker.FeedAll(events)
	return predicted, events, nil
}

// ExpireCheck exercises the idle-release path: it waits just past the
// release deadline, then expects the kernel's own release frame and
// returns the predicted post-expiry state. The wait covers only what
// remains of the deadline on the predictor's clock.
func (r *Rig) ExpireCheck(ctx context.Context) (predict.State, []evdev.Event, error) {
	if wait := predict.ReleaseTimeout - r.pred.IdleFor() + r.releaseSlack; wait > 0 {
		select {
		case <-ctx.Done():
			return predict.State{}, nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	predicted := r.pred.Expire()
	events, err := r.events.SyncEvents(r.eventTimeout)
	if err != nil {
		return predicted, nil, fmt.Errorf("expiry events: %w", err)
	}
	r.tracker.FeedAll(events)
	return predicted, events, nil
}

// Destroy removes the kernel-side device while keeping the event channel
// open, so callers can observe reads failing once the device is gone.
func (r *Rig) Destroy() error {
	return r.transport.Destroy()
}

// Close destroys the device and releases both channels. Closing twice is
// a no-op.
func (r *Rig) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var first error
	if r.events != nil {
		if err := r.events.Close(); err != nil && first == nil {
			first = err
		}
	}
	if r.transport != nil {
		if err := r.transport.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
