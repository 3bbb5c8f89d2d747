// Package timeutil normalizes the timestamp strings found in channel content.
//
// The backend records a message's time as whatever string the writing code
// path produced: interactive sends store an RFC3339 instant, scheduled sends
// store "DD/MM/YYYY, HH:mm", and migrated data sometimes carries only a bare
// clock reading with an optional AM/PM marker. Everything funnels through
// ToInstant before any ordering or visibility decision is made.
package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel is returned for input no parser recognizes. Callers sort and
// classify it like any other instant; an unreadable timestamp degrades the
// single entry, never the whole list.
var Sentinel = time.Unix(0, 0)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*([AaPp])\.?\s*[Mm]\.?)?$`)

// ToInstant parses raw into a comparable instant. It never fails.
func ToInstant(raw string) time.Time {
	return ToInstantAt(raw, time.Now())
}

// ToInstantAt is ToInstant with an explicit reference time, which anchors the
// bare clock-only shape to "today".
func ToInstantAt(raw string, now time.Time) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Sentinel
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", trimmed); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02", trimmed, time.Local); err == nil {
		return t
	}

	if strings.Contains(trimmed, ",") {
		if t, ok := parseDisplay(trimmed); ok {
			return t
		}
	}

	if t, ok := parseClock(trimmed, now); ok {
		return t
	}

	return Sentinel
}

// parseDisplay handles "DD/MM/YYYY, HH:mm".
func parseDisplay(raw string) (time.Time, bool) {
	parts := strings.SplitN(raw, ",", 2)
	datePart := strings.TrimSpace(parts[0])
	timePart := strings.TrimSpace(parts[1])

	dateFields := strings.Split(datePart, "/")
	if len(dateFields) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(dateFields[0])
	month, err2 := strconv.Atoi(dateFields[1])
	year, err3 := strconv.Atoi(dateFields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	timeFields := strings.Split(timePart, ":")
	if len(timeFields) < 2 {
		return time.Time{}, false
	}
	hour, err4 := strconv.Atoi(strings.TrimSpace(timeFields[0]))
	minute, err5 := strconv.Atoi(strings.TrimSpace(timeFields[1]))
	if err4 != nil || err5 != nil {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local), true
}

// parseClock handles "HH:mm" with an optional AM/PM-style marker, anchored to
// the reference day.
func parseClock(raw string, now time.Time) (time.Time, bool) {
	m := clockPattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}

	hour, err1 := strconv.Atoi(m[1])
	minute, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	if m[3] != "" {
		marker := strings.ToLower(m[3])
		if hour == 12 {
			hour = 0
		}
		if marker == "p" {
			hour += 12
		}
		if hour > 23 {
			return time.Time{}, false
		}
	}

	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), true
}

// FormatDisplay renders t in the "DD/MM/YYYY, HH:mm" shape the backend shows
// to users. Scheduled deliveries stamp this into senderInfo so the visible
// timestamp matches what was scheduled, not the delivery wall clock.
func FormatDisplay(t time.Time) string {
	return t.Format("02/01/2006, 15:04")
}
