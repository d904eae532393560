package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-01-2006",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
}

// parseDate accepts ISO and US-style dates and Excel serial day numbers.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, fmt.Errorf("invalid date serial %q", s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", s, err)
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseClock returns the time of day in s as a duration since midnight. It
// accepts hh:mm[:ss], 12-hour clock, and Excel day fractions.
func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}
	if frac, err := strconv.ParseFloat(s, 64); err == nil {
		if frac < 0 || frac >= 1 {
			return 0, fmt.Errorf("invalid time fraction %q", s)
		}
		secs := int64(math.Round(frac*86400)) % 86400
		return time.Duration(secs) * time.Second, nil
	}
	if i := strings.IndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

// parseNumber parses a numeric cell, tolerating a leading currency sign
// and thousands separators.
func parseNumber(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")
	if v == "" {
		return 0, fmt.Errorf("empty number")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// parseHour parses an hour-of-day cell; "7" and "7.0" are both accepted.
func parseHour(s string) (int, error) {
	f, err := parseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q", s)
	}
	h := int(f)
	if float64(h) != f || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour %q", s)
	}
	return h, nil
}

// parseIdentifier trims an id cell and drops a ".0" suffix that
// spreadsheet tools add to integer ids.
func parseIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(s, ".0")); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
