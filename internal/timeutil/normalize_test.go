package timeutil

import (
	"testing"
	"time"
)

var reference = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.Local)

func TestToInstantISO(t *testing.T) {
	got := ToInstantAt("2024-06-01T18:45:00Z", reference)
	want := time.Date(2024, time.June, 1, 18, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestToInstantDateOnly(t *testing.T) {
	got := ToInstantAt("2024-06-01", reference)
	want := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("expected midnight of the given day, got %v", got)
	}
}

func TestToInstantDisplayFormat(t *testing.T) {
	got := ToInstantAt("01/01/2099, 10:00", reference)
	if got.Day() != 1 || got.Month() != time.January || got.Year() != 2099 {
		t.Fatalf("wrong date fields: %v", got)
	}
	if got.Hour() != 10 || got.Minute() != 0 {
		t.Fatalf("wrong clock fields: %v", got)
	}
}

func TestToInstantBareClock(t *testing.T) {
	cases := []struct {
		raw    string
		hour   int
		minute int
	}{
		{"08:15", 8, 15},
		{"10:30 AM", 10, 30},
		{"10:30 a. m.", 10, 30},
		{"10:30 PM", 22, 30},
		{"12:05 AM", 0, 5},
		{"12:40 p. m.", 12, 40},
	}

	for _, tc := range cases {
		got := ToInstantAt(tc.raw, reference)
		if got.Hour() != tc.hour || got.Minute() != tc.minute {
			t.Errorf("%q: expected %02d:%02d, got %02d:%02d", tc.raw, tc.hour, tc.minute, got.Hour(), got.Minute())
		}
		if got.Day() != reference.Day() || got.Month() != reference.Month() {
			t.Errorf("%q: clock-only input should anchor to the reference day, got %v", tc.raw, got)
		}
	}
}

func TestToInstantUnparseable(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "99/99", "12-something", "25:00"} {
		if got := ToInstantAt(raw, reference); !got.Equal(Sentinel) {
			t.Errorf("%q: expected sentinel, got %v", raw, got)
		}
	}
}

func TestFormatDisplayRoundTrip(t *testing.T) {
	due := time.Date(2025, time.December, 24, 21, 5, 0, 0, time.Local)
	got := ToInstantAt(FormatDisplay(due), reference)
	if !got.Equal(due) {
		t.Fatalf("expected %v after round trip, got %v", due, got)
	}
}
