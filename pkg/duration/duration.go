// Package duration parses and formats durations with calendar units (days,
// weeks, months, years) on top of the standard Go forms.
//
// Parse accepts a sequence of value/unit pairs, case-insensitive, with
// optional whitespace: "90s", "1h30m", "30d", "2 weeks", "1w2d12h". Format
// renders the day-and-up portion with the largest fitting calendar units and
// leaves any sub-day remainder in standard Go notation, so Parse(Format(d))
// always round-trips.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Calendar units as fixed durations. Months and years use the civil
// approximations of 30 and 365 days.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

var units = map[string]time.Duration{
	"ns": time.Nanosecond, "nanosecond": time.Nanosecond, "nanoseconds": time.Nanosecond,
	"us": time.Microsecond, "µs": time.Microsecond, "microsecond": time.Microsecond, "microseconds": time.Microsecond,
	"ms": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": Day, "day": Day, "days": Day,
	"w": Week, "wk": Week, "wks": Week, "week": Week, "weeks": Week,
	"mo": Month, "mos": Month, "month": Month, "months": Month,
	"y": Year, "yr": Year, "yrs": Year, "year": Year, "years": Year,
}

var tokenPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-zA-Zµ]+)`)

// Parse converts a human-readable duration string into a time.Duration.
func Parse(s string) (time.Duration, error) {
	input := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return 0, fmt.Errorf("duration: cannot parse %q", input)
	}

	var total time.Duration
	for s != "" {
		m := tokenPattern.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("duration: cannot parse %q", input)
		}
		unit, ok := units[strings.ToLower(m[2])]
		if !ok {
			return 0, fmt.Errorf("duration: unknown unit %q in %q", m[2], input)
		}
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			total += time.Duration(n) * unit
		} else {
			f, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, fmt.Errorf("duration: bad value %q in %q", m[1], input)
			}
			total += time.Duration(f * float64(unit))
		}
		s = strings.TrimSpace(s[len(m[0]):])
	}

	if negative {
		total = -total
	}
	return total, nil
}

// Format renders a duration with calendar units for the day-and-up portion
// and standard Go notation for the remainder: 36h becomes "1d12h0m0s", nine
// days become "1w2d", 30 minutes stay "30m0s".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}

	for _, u := range []struct {
		size   time.Duration
		suffix string
	}{
		{Year, "y"},
		{Month, "mo"},
		{Week, "w"},
		{Day, "d"},
	} {
		if n := d / u.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, u.suffix)
			d -= n * u.size
		}
	}

	if d > 0 {
		b.WriteString(d.String())
	}
	return b.String()
}
