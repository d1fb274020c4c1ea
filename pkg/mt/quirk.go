package mt

import "strings"

// Quirks is a set of per-device deviations from baseline multitouch
// interpretation. The flags and their bit positions match the kernel's
// MT_QUIRK_* table.
type Quirks uint32

const (
	QuirkNotSeenMeansUp Quirks = 1 << iota
	QuirkSlotIsContactID
	QuirkCypress
	QuirkSlotIsContactNumber
	QuirkAlwaysValid
	QuirkValidIsInRange
	QuirkValidIsConfidence
	QuirkConfidence
	QuirkSlotIsContactIDMinusOne
	QuirkNoArea
	QuirkIgnoreDuplicates
	QuirkHovering
	QuirkContactCntAccurate
	QuirkForceGetFeature
	QuirkFixConstContactID
	QuirkTouchSizeScaling
	QuirkStickyFingers
	QuirkAsusCustomUp
	QuirkWin8PTPButtons

	quirkEnd
)

var quirkNames = map[Quirks]string{
	QuirkNotSeenMeansUp:          "NOT_SEEN_MEANS_UP",
	QuirkSlotIsContactID:         "SLOT_IS_CONTACTID",
	QuirkCypress:                 "CYPRESS",
	QuirkSlotIsContactNumber:     "SLOT_IS_CONTACTNUMBER",
	QuirkAlwaysValid:             "ALWAYS_VALID",
	QuirkValidIsInRange:          "VALID_IS_INRANGE",
	QuirkValidIsConfidence:       "VALID_IS_CONFIDENCE",
	QuirkConfidence:              "CONFIDENCE",
	QuirkSlotIsContactIDMinusOne: "SLOT_IS_CONTACTID_MINUS_ONE",
	QuirkNoArea:                  "NO_AREA",
	QuirkIgnoreDuplicates:        "IGNORE_DUPLICATES",
	QuirkHovering:                "HOVERING",
	QuirkContactCntAccurate:      "CONTACT_CNT_ACCURATE",
	QuirkForceGetFeature:         "FORCE_GET_FEATURE",
	QuirkFixConstContactID:       "FIX_CONST_CONTACT_ID",
	QuirkTouchSizeScaling:        "TOUCH_SIZE_SCALING",
	QuirkStickyFingers:           "STICKY_FINGERS",
	QuirkAsusCustomUp:            "ASUS_CUSTOM_UP",
	QuirkWin8PTPButtons:          "WIN8_PTP_BUTTONS",
}

// Has reports whether every flag in f is set.
func (q Quirks) Has(f Quirks) bool {
	return q&f == f
}

func (q Quirks) String() string {
	if q == 0 {
		return "none"
	}
	var parts []string
	for bit := Quirks(1); bit < quirkEnd; bit <<= 1 {
		if q&bit != 0 {
			parts = append(parts, quirkNames[bit])
		}
	}
	return strings.Join(parts, "|")
}
