// File: utils/clock.go
package utils

import (
	"fmt"
	"time"
)

// All civil-time arithmetic in the system uses a single fixed zone.
// "Today" always means "today in Madrid".
var madridTZ = mustLoadMadrid()

func mustLoadMadrid() *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(fmt.Sprintf("failed to load Europe/Madrid timezone: %v", err))
	}
	return loc
}

// MadridTZ returns the fixed civil zone used for all scheduling.
func MadridTZ() *time.Location {
	return madridTZ
}

// NowMadrid returns the current time in the Madrid zone.
func NowMadrid() time.Time {
	return time.Now().In(madridTZ)
}

// DateOf truncates a time to its civil date in Madrid.
func DateOf(t time.Time) time.Time {
	t = t.In(madridTZ)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, madridTZ)
}

// CombineMadrid builds a Madrid-zone datetime from a civil date and a clock time.
func CombineMadrid(day time.Time, hour, minute, second int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, madridTZ)
}

// UTCMidnightEpoch returns the epoch seconds of the UTC midnight of the
// given civil date. The portal keys its daily schedule by this value.
func UTCMidnightEpoch(day time.Time) int64 {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// Weekday maps a time to the 0=Monday..6=Sunday convention.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// NextDateForWeekday returns the first date on or after base whose weekday
// (0=Monday..6=Sunday) equals dow.
func NextDateForWeekday(base time.Time, dow int) time.Time {
	daysAhead := dow - Weekday(base)
	if daysAhead < 0 {
		daysAhead += 7
	}
	return base.AddDate(0, 0, daysAhead)
}

// ParseClock parses a "HH:MM" or "HH:MM:SS" clock string.
func ParseClock(s string) (hour, minute, second int, err error) {
	if _, err = fmt.Sscanf(s, "%d:%d:%d", &hour, &minute, &second); err == nil {
		return hour, minute, second, nil
	}
	second = 0
	if _, err = fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	return hour, minute, second, nil
}
