// Package timeist converts between UTC instants and civil time in the
// app's fixed target timezone (IST, UTC+5:30, no DST). Scheduling
// comparisons stay in UTC; only display formatting and legacy reminder
// strings are zone-aware.
package timeist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Zone is the fixed target timezone. IST has no daylight saving.
var Zone = time.FixedZone("IST", 5*3600+30*60)

// CivilDateLayout is the wire format for civil dates (start/end dates).
const CivilDateLayout = "2006-01-02"

var clockTimeRe = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*(AM|PM)\s*$`)

// ToIST converts an instant to IST civil time.
func ToIST(t time.Time) time.Time {
	return t.In(Zone)
}

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(Zone)
}

// CivilDate returns the IST civil date of an instant as "YYYY-MM-DD".
func CivilDate(t time.Time) string {
	return t.In(Zone).Format(CivilDateLayout)
}

// FormatTime formats an instant as a 12-hour IST clock time, e.g. "2:30 PM".
func FormatTime(t time.Time) string {
	return t.In(Zone).Format("3:04 PM")
}

// FormatRelativeDate formats an instant relative to a reference time:
// "Today, 2:30 PM", "Tomorrow, 9:00 AM", or "Jan 20, 9:00 AM". Both
// times are compared by IST civil date.
func FormatRelativeDate(t, ref time.Time) string {
	ist := t.In(Zone)
	refIST := ref.In(Zone)

	clock := ist.Format("3:04 PM")
	date := civilMidnight(ist)
	refDate := civilMidnight(refIST)

	switch date.Sub(refDate) {
	case 0:
		return "Today, " + clock
	case 24 * time.Hour:
		return "Tomorrow, " + clock
	default:
		return ist.Format("Jan 2") + ", " + clock
	}
}

// ParseClockTime resolves a legacy reminder string like "9:00 AM" or
// "2 PM" to an absolute instant. anchorDate is a civil date ("YYYY-MM-DD")
// the clock time belongs to; when empty the time is placed on today's IST
// date, rolling forward one civil day if the result is already in the
// past relative to now.
func ParseClockTime(text string, anchorDate string, now time.Time) (time.Time, error) {
	m := clockTimeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, fmt.Errorf("unparseable clock time: %q", text)
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return time.Time{}, fmt.Errorf("invalid hour in clock time: %q", text)
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return time.Time{}, fmt.Errorf("invalid minute in clock time: %q", text)
		}
	}

	isPM := strings.EqualFold(m[3], "PM")
	if isPM && hour != 12 {
		hour += 12
	}
	if !isPM && hour == 12 {
		hour = 0
	}

	if anchorDate != "" {
		anchor, err := time.ParseInLocation(CivilDateLayout, anchorDate, Zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid anchor date %q: %w", anchorDate, err)
		}
		return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), hour, minute, 0, 0, Zone), nil
	}

	nowIST := now.In(Zone)
	resolved := time.Date(nowIST.Year(), nowIST.Month(), nowIST.Day(), hour, minute, 0, 0, Zone)
	if resolved.Before(now) {
		resolved = resolved.AddDate(0, 0, 1)
	}
	return resolved, nil
}

func civilMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Zone)
}
