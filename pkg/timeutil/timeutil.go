// Package timeutil provides civil-date utilities for the federation calendar.
// Birth dates, competition dates and deadlines are calendar days in the
// federation's timezone; instants are converted before any comparison.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

var (
	locMu       sync.RWMutex
	federationTZ = time.UTC
)

// SetLocation sets the federation timezone used for civil dates.
func SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	locMu.Lock()
	federationTZ = loc
	locMu.Unlock()
}

// LoadLocation sets the federation timezone by IANA name.
func LoadLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	SetLocation(loc)
	return nil
}

// Location returns the federation timezone.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return federationTZ
}

// Now returns the current time in the federation timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// Date creates midnight of the given calendar day in the federation timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// StartOfDay returns the start of the day (00:00:00) in the federation timezone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the federation timezone.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayBefore returns the start of the calendar day preceding t.
func DayBefore(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}

// IsSameDay checks if two times fall on the same civil day.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := t1.In(Location()), t2.In(Location())
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysBetween counts whole calendar days between two times, ignoring order.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	days := int(a2.Sub(a1).Round(time.Hour).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// CivilDate rebases the calendar day of t, as stored, to midnight in the
// federation timezone. Database DATE values arrive as UTC midnight.
func CivilDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location())
}

// civil returns the calendar day of t. A value at midnight of its own
// location is already a calendar day; any other instant is read in the
// federation timezone.
func civil(t time.Time) (int, time.Month, int) {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Date()
	}
	return t.In(Location()).Date()
}

// AgeOn returns completed years between birth and asOf.
// A birthday not yet reached in asOf's year does not count; Feb 29
// birthdays roll over on Mar 1 in common years.
func AgeOn(birth, asOf time.Time) int {
	by, bm, bd := civil(birth)
	ay, am, ad := civil(asOf)

	age := ay - by
	if am < bm || (am == bm && ad < bd) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Common date formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatSheetDate is the day-first format found in record sheets.
	FormatSheetDate = "02/01/2006"
)

// FormatDateStr formats a time as YYYY-MM-DD in the federation timezone.
func FormatDateStr(t time.Time) string {
	return t.In(Location()).Format(FormatDate)
}

// ParseDate parses YYYY-MM-DD as a civil date in the federation timezone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, Location())
}

// ParseSheetDate accepts either YYYY-MM-DD or DD/MM/YYYY.
func ParseSheetDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(FormatDate, value, Location()); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(FormatSheetDate, value, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: unrecognized date %q", value)
	}
	return t, nil
}
