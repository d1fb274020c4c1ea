package predict

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/whot/hid-tools/pkg/mt"
)

func baseConfig() Config {
	return Config{
		MaxContacts: 5,
		Quirks:      mt.QuirkContactCntAccurate | mt.QuirkIgnoreDuplicates,
	}
}

func frame(contacts ...mt.Contact) Frame {
	return Frame{Contacts: contacts, Declared: -1}
}

func lifted(c mt.Contact) mt.Contact {
	c.TipSwitch = false
	c.InRange = false
	return c
}

func TestSingleTouchLifecycle(t *testing.T) {
	Convey("Given a fresh predictor", t, func() {
		p := New(baseConfig())
		t0 := mt.NewContact(1, 50, 100)

		Convey("When one contact touches down", func() {
			st := p.Advance(frame(t0))

			Convey("Slot 0 tracks it from tracking ID 0", func() {
				So(st.Slots[0].TrackingID, ShouldEqual, 0)
				So(st.Slots[0].X, ShouldEqual, 50)
				So(st.Slots[0].Y, ShouldEqual, 100)
				So(st.BtnTouch, ShouldBeTrue)
			})

			Convey("And lifting it frees the slot", func() {
				st = p.Advance(frame(lifted(t0)))
				So(st.Slots[0].TrackingID, ShouldEqual, -1)
				So(st.BtnTouch, ShouldBeFalse)
			})
		})
	})
}

func TestSlotAssignment(t *testing.T) {
	Convey("Given two contacts arriving one frame apart", t, func() {
		p := New(baseConfig())
		t0 := mt.NewContact(1, 50, 100)
		t1 := mt.NewContact(2, 150, 200)

		p.Advance(frame(t0))
		st := p.Advance(frame(t0, t1))

		Convey("They land in arrival order with ascending tracking IDs", func() {
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
			So(st.Slots[1].TrackingID, ShouldEqual, 1)
		})

		Convey("Releasing the first keeps the second on its slot", func() {
			st = p.Advance(frame(lifted(t0), t1))
			So(st.Slots[0].TrackingID, ShouldEqual, -1)
			So(st.Slots[1].TrackingID, ShouldEqual, 1)

			Convey("And a new contact reuses the freed slot with a fresh ID", func() {
				t2 := mt.NewContact(9, 70, 80)
				st = p.Advance(frame(t1, t2))
				So(st.Slots[0].TrackingID, ShouldEqual, 2)
				So(st.Slots[1].TrackingID, ShouldEqual, 1)
			})
		})
	})
}

func TestSlotQuirks(t *testing.T) {
	Convey("Given a contact with ID 3", t, func() {
		c := mt.NewContact(3, 50, 100)

		Convey("SLOT_IS_CONTACTID places it in slot 3", func() {
			cfg := baseConfig()
			cfg.Quirks |= mt.QuirkSlotIsContactID
			st := New(cfg).Advance(frame(c))
			So(st.Slots[3].TrackingID, ShouldEqual, 0)
			So(st.Slots[0].TrackingID, ShouldEqual, -1)
		})

		Convey("SLOT_IS_CONTACTID_MINUS_ONE places it in slot 2", func() {
			cfg := baseConfig()
			cfg.Quirks |= mt.QuirkSlotIsContactIDMinusOne
			st := New(cfg).Advance(frame(c))
			So(st.Slots[2].TrackingID, ShouldEqual, 0)
		})

		Convey("SLOT_IS_CONTACTNUMBER uses the position in the frame", func() {
			cfg := baseConfig()
			cfg.Quirks |= mt.QuirkSlotIsContactNumber
			other := mt.NewContact(7, 10, 20)
			st := New(cfg).Advance(frame(other, c))
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
			So(st.Slots[1].TrackingID, ShouldEqual, 1)
		})
	})
}

func TestDuplicateSuppression(t *testing.T) {
	Convey("Given a frame repeating contact ID 1", t, func() {
		p := New(baseConfig())
		t0 := mt.NewContact(1, 5, 10)
		dup := mt.NewContact(1, 15, 20)
		t2 := mt.NewContact(2, 50, 100)

		st := p.Advance(Frame{Contacts: []mt.Contact{t0, dup, t2}, Declared: 2})

		Convey("Only the first occurrence lands, and the duplicate does not count", func() {
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
			So(st.Slots[0].X, ShouldEqual, 5)
			So(st.Slots[1].TrackingID, ShouldEqual, 1)
			So(st.Slots[1].X, ShouldEqual, 50)
		})
	})
}

func TestContactCountAccurate(t *testing.T) {
	Convey("Given a frame declaring fewer contacts than it carries", t, func() {
		p := New(baseConfig())
		t0 := mt.NewContact(1, 5, 10)
		t1 := mt.NewContact(2, 15, 20)

		st := p.Advance(Frame{Contacts: []mt.Contact{t0, t1}, Declared: 1})

		Convey("Contacts past the declared total are ignored", func() {
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
			So(st.Slots[1].TrackingID, ShouldEqual, -1)
		})
	})
}

func TestHovering(t *testing.T) {
	Convey("Given a hovering-capable device", t, func() {
		cfg := baseConfig()
		cfg.Quirks |= mt.QuirkHovering
		cfg.HasInRange = true
		p := New(cfg)

		t0 := mt.NewContact(1, 150, 200)
		t0.TipSwitch = false

		Convey("In range without tip means hovering", func() {
			st := p.Advance(frame(t0))
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
			So(st.Slots[0].Distance, ShouldBeGreaterThan, 0)
			So(st.BtnTouch, ShouldBeTrue)

			Convey("Touching down zeroes the distance", func() {
				t0.TipSwitch = true
				st = p.Advance(frame(t0))
				So(st.Slots[0].Distance, ShouldEqual, 0)
				So(st.Slots[0].TrackingID, ShouldEqual, 0)
			})

			Convey("Leaving range releases", func() {
				t0.InRange = false
				st = p.Advance(frame(t0))
				So(st.Slots[0].TrackingID, ShouldEqual, -1)
				So(st.BtnTouch, ShouldBeFalse)
			})
		})
	})
}

func TestConfidencePalm(t *testing.T) {
	Convey("Given a confidence-capable device with an active contact", t, func() {
		cfg := baseConfig()
		cfg.HasConfidence = true
		p := New(cfg)
		t0 := mt.NewContact(1, 150, 200)
		p.Advance(frame(t0))

		Convey("Losing confidence releases the contact", func() {
			t0.Confidence = false
			st := p.Advance(frame(t0))
			So(st.Slots[0].TrackingID, ShouldEqual, -1)
		})
	})
}

func TestIdleRelease(t *testing.T) {
	Convey("Given a sticky-fingers device and a controllable clock", t, func() {
		now := time.Unix(1000, 0)
		cfg := baseConfig()
		cfg.Quirks |= mt.QuirkStickyFingers
		p := New(cfg, WithClock(func() time.Time { return now }))

		t0 := mt.NewContact(1, 5, 10)
		st := p.Advance(frame(t0))
		So(st.Slots[0].TrackingID, ShouldEqual, 0)

		Convey("Within the deadline nothing expires", func() {
			now = now.Add(50 * time.Millisecond)
			st = p.Expire()
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
		})

		Convey("Past the deadline the contact is let go", func() {
			now = now.Add(120 * time.Millisecond)
			st = p.Expire()
			So(st.Slots[0].TrackingID, ShouldEqual, -1)
			So(st.BtnTouch, ShouldBeFalse)

			Convey("And the same contact comes back with a fresh tracking ID", func() {
				st = p.Advance(frame(t0))
				So(st.Slots[0].TrackingID, ShouldEqual, 1)
			})
		})
	})
}

func TestIdleReleaseRequiresQuirk(t *testing.T) {
	Convey("Given a device without sticky fingers", t, func() {
		now := time.Unix(1000, 0)
		p := New(baseConfig(), WithClock(func() time.Time { return now }))
		p.Advance(frame(mt.NewContact(1, 5, 10)))

		Convey("No amount of idle time releases the contact", func() {
			now = now.Add(time.Second)
			st := p.Expire()
			So(st.Slots[0].TrackingID, ShouldEqual, 0)
		})
	})
}

func TestNotSeenMeansUp(t *testing.T) {
	Convey("Given a device releasing unseen contacts", t, func() {
		cfg := baseConfig()
		cfg.Quirks |= mt.QuirkNotSeenMeansUp
		p := New(cfg)

		t0 := mt.NewContact(1, 5, 10)
		t1 := mt.NewContact(2, 15, 20)
		p.Advance(frame(t0, t1))

		Convey("A frame omitting one contact releases it", func() {
			st := p.Advance(frame(t1))
			So(st.Slots[0].TrackingID, ShouldEqual, -1)
			So(st.Slots[1].TrackingID, ShouldEqual, 1)
		})
	})
}

func TestOrientationFromAzimuth(t *testing.T) {
	Convey("The azimuth folds into clockwise orientation", t, func() {
		tests := []struct {
			azimuth int32
			want    int32
		}{
			{0, 0},
			{90, -90},
			{180, -180},
			{270, 90},
			{359, 1},
		}
		for _, tt := range tests {
			So(orientationFromAzimuth(tt.azimuth), ShouldEqual, tt.want)
		}
	})
}

func TestTouchArea(t *testing.T) {
	Convey("Given an area-capable device", t, func() {
		cfg := baseConfig()
		cfg.HasArea = true
		p := New(cfg)

		c := mt.NewContact(1, 5, 10)
		c.Width, c.Height = 30, 10

		Convey("The larger side becomes the major axis", func() {
			st := p.Advance(frame(c))
			So(st.Slots[0].TouchMajor, ShouldEqual, 30)
			So(st.Slots[0].TouchMinor, ShouldEqual, 10)
			So(st.Slots[0].Orientation, ShouldEqual, 1)
		})

		Convey("Size scaling doubles both axes", func() {
			cfg.Quirks |= mt.QuirkTouchSizeScaling
			st := New(cfg).Advance(frame(c))
			So(st.Slots[0].TouchMajor, ShouldEqual, 60)
			So(st.Slots[0].TouchMinor, ShouldEqual, 20)
		})
	})
}

func TestPTPButtonState(t *testing.T) {
	Convey("Given a PTP-buttons device", t, func() {
		cfg := baseConfig()
		cfg.Quirks |= mt.QuirkWin8PTPButtons
		p := New(cfg)

		Convey("Buttons follow the frame metadata", func() {
			st := p.Advance(Frame{Declared: -1, Button1: true})
			So(st.BtnLeft, ShouldBeTrue)
			So(st.BtnRight, ShouldBeFalse)

			st = p.Advance(Frame{Declared: -1, Button2: true})
			So(st.BtnLeft, ShouldBeFalse)
			So(st.BtnRight, ShouldBeTrue)
		})
	})
}
