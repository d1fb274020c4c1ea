package report

import (
	"bytes"
	"errors"
	"testing"
)

// mapSource serves field values from a map keyed by usage and occurrence.
type mapSource map[Usage][]int32

func (m mapSource) Field(u Usage, nth int) (int32, bool) {
	vs, ok := m[u]
	if !ok || nth >= len(vs) {
		return 0, false
	}
	return vs[nth], true
}

func TestPackSingleContact(t *testing.T) {
	r := testReport()
	c := mapSource{
		TipSwitch: {1},
		ContactID: {1},
		X:         {50},
		Y:         {100},
	}
	g := mapSource{
		ScanTime:     {1},
		ContactCount: {1},
	}
	got := r.Pack([]Source{c}, g)
	want := []byte{
		0x01,                               // report ID
		0x01, 0x01, 0x32, 0x00, 0x64, 0x00, // contact 0
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // contact 1, zero filled
		0x01, 0x00, 0x01, // scan time, contact count
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Pack() = % x, want % x", got, want)
	}
}

func TestPackSubByteFields(t *testing.T) {
	// Three switch bits share the first byte.
	r := &Report{
		Collections: [][]Field{{
			{Usage: TipSwitch, Bits: 1, LogicalMax: 1},
			{Usage: Confidence, Bits: 1, LogicalMax: 1},
			{Usage: InRange, Bits: 1, LogicalMax: 1},
			Pad(5),
			{Usage: ContactID, Bits: 8, LogicalMax: 255},
		}},
	}
	src := mapSource{
		TipSwitch:  {1},
		Confidence: {0},
		InRange:    {1},
		ContactID:  {3},
	}
	got := r.Pack([]Source{src}, nil)
	want := []byte{0x05, 0x03}
	if !bytes.Equal(got, want) {
		t.Errorf("Pack() = % x, want % x", got, want)
	}
}

func TestPackRepeatedUsage(t *testing.T) {
	// T and C coordinates: X appears twice in one collection.
	r := &Report{
		Collections: [][]Field{{
			{Usage: X, Bits: 8, LogicalMax: 255},
			{Usage: X, Bits: 8, LogicalMax: 255},
		}},
	}
	src := mapSource{X: {5, 50}}
	got := r.Pack([]Source{src}, nil)
	want := []byte{0x05, 0x32}
	if !bytes.Equal(got, want) {
		t.Errorf("Pack() = % x, want % x", got, want)
	}
}

func TestPackNoReportID(t *testing.T) {
	r := &Report{
		Globals: []Field{{Usage: ContactMax, Bits: 8, LogicalMax: 10}},
	}
	got := r.Pack(nil, mapSource{ContactMax: {10}})
	want := []byte{0x0a}
	if !bytes.Equal(got, want) {
		t.Errorf("Pack() = % x, want % x", got, want)
	}
}

func TestExtract(t *testing.T) {
	r := &Report{
		Globals: []Field{
			{Usage: ContactMax, Bits: 8, LogicalMax: 10},
			{Usage: ButtonType, Bits: 8, LogicalMax: 1},
		},
	}
	data := []byte{0x0a, 0x01}
	tests := []struct {
		usage Usage
		want  int32
	}{
		{ContactMax, 10},
		{ButtonType, 1},
	}
	for _, tt := range tests {
		got, err := r.Extract(data, tt.usage)
		if err != nil {
			t.Fatalf("Extract(%q): %v", tt.usage, err)
		}
		if got != tt.want {
			t.Errorf("Extract(%q) = %d, want %d", tt.usage, got, tt.want)
		}
	}

	if _, err := r.Extract(data, InputMode); !errors.Is(err, ErrUsageAbsent) {
		t.Errorf("Extract(absent usage) err = %v, want ErrUsageAbsent", err)
	}
	if _, err := r.Extract([]byte{0x0a}, ButtonType); !errors.Is(err, ErrShortReport) {
		t.Errorf("Extract(short data) err = %v, want ErrShortReport", err)
	}
}

func TestExtractSigned(t *testing.T) {
	r := &Report{
		Globals: []Field{{Usage: X, Bits: 8, LogicalMin: -127, LogicalMax: 127}},
	}
	got, err := r.Extract([]byte{0xfb}, X)
	if err != nil {
		t.Fatal(err)
	}
	if got != -5 {
		t.Errorf("Extract(signed) = %d, want -5", got)
	}
}

func TestPackExtractRoundTrip(t *testing.T) {
	r := testReport()
	c := mapSource{TipSwitch: {1}, ContactID: {7}, X: {1234}, Y: {567}}
	data := r.Pack([]Source{c}, mapSource{ScanTime: {99}, ContactCount: {1}})

	for _, tt := range []struct {
		usage Usage
		want  int32
	}{
		{ContactID, 7},
		{X, 1234},
		{Y, 567},
	} {
		// Strip the report ID prefix first.
		got, err := r.Extract(data[1:], tt.usage)
		if err != nil {
			t.Fatalf("Extract(%q): %v", tt.usage, err)
		}
		if got != tt.want {
			t.Errorf("Extract(%q) = %d, want %d", tt.usage, got, tt.want)
		}
	}
}
