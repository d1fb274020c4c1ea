package report

import "testing"

func testReport() *Report {
	contact := []Field{
		{Usage: TipSwitch, Bits: 1, LogicalMax: 1},
		Pad(7),
		{Usage: ContactID, Bits: 8, LogicalMax: 255},
		{Usage: X, Bits: 16, LogicalMax: 4095},
		{Usage: Y, Bits: 16, LogicalMax: 4095},
	}
	return &Report{
		ID:          1,
		Application: TouchScreen,
		Collections: [][]Field{contact, contact},
		Globals: []Field{
			{Usage: ScanTime, Bits: 16, LogicalMax: 65535},
			{Usage: ContactCount, Bits: 8, LogicalMax: 255},
		},
	}
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		name string
		rep  *Report
		want int
	}{
		{"two collections", testReport(), 2},
		{"no contact id", &Report{Globals: []Field{{Usage: ContactCount, Bits: 8}}}, 0},
		{"empty", &Report{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rep.Capacity(); got != tt.want {
				t.Errorf("Capacity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHasAndCountOf(t *testing.T) {
	r := testReport()
	if !r.Has(TipSwitch) {
		t.Error("Has(TipSwitch) = false")
	}
	if r.Has(InRange) {
		t.Error("Has(InRange) = true for layout without it")
	}
	if got := r.CountOf(X); got != 2 {
		t.Errorf("CountOf(X) = %d, want 2", got)
	}
	if got := r.CountOf(ScanTime); got != 1 {
		t.Errorf("CountOf(ScanTime) = %d, want 1", got)
	}
}

func TestFieldsOrder(t *testing.T) {
	r := testReport()
	want := []Usage{
		TipSwitch, ContactID, X, Y,
		TipSwitch, ContactID, X, Y,
		ScanTime, ContactCount,
	}
	got := r.Fields()
	if len(got) != len(want) {
		t.Fatalf("Fields() returned %d usages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDescriptorLookups(t *testing.T) {
	d := &Descriptor{
		Input: []Report{*testReport()},
		Feature: []Report{{
			ID:          2,
			Application: TouchScreen,
			Globals:     []Field{{Usage: ContactMax, Bits: 8, LogicalMax: 5}},
		}},
	}
	if d.InputFor(TouchScreen) == nil {
		t.Error("InputFor(TouchScreen) = nil")
	}
	if d.InputFor(TouchPad) != nil {
		t.Error("InputFor(TouchPad) != nil")
	}
	if d.FeatureByID(2) == nil {
		t.Error("FeatureByID(2) = nil")
	}
	if d.FeatureByID(3) != nil {
		t.Error("FeatureByID(3) != nil")
	}
	if f := d.FeatureWith(ContactMax); f == nil || f.ID != 2 {
		t.Errorf("FeatureWith(ContactMax) = %v", f)
	}
	if d.FeatureWith(InputMode) != nil {
		t.Error("FeatureWith(InputMode) != nil")
	}
}
