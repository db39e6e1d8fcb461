package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName is the de-duplication key for players: trimmed, NFC-composed
// and case-folded so "  Trần Bình" and "trần bình" collide.
func NormalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(trimmed))
}

// Day is a calendar date (YYYY-MM-DD) in the service's reference time zone.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(dayLayout))
}

// AddDays returns the day n days after d.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

func (d Day) String() string {
	return string(d)
}
