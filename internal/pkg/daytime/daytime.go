// Package daytime converts between the wall-clock strings stored on fields and
// reservations ("2006-01-02", "15:04") and time.Time instants.
package daytime

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	clockLayoutSeconds = "15:04:05"
	minutesPerDay      = 24 * 60
)

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidClock = errors.New("invalid time, expected HH:MM")
)

// ParseClock returns minutes since midnight for "HH:MM" or "HH:MM:SS".
// Seconds are accepted for values read back from a TIME column and must be zero.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		t, err = time.Parse(clockLayoutSeconds, s)
		if err != nil || t.Second() != 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock re-renders s as "HH:MM".
func NormalizeClock(s string) (string, error) {
	m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(m), nil
}

// ParseDate parses a calendar day as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// At returns the instant minutes after midnight of day, in day's location.
// Built from calendar fields so DST transitions do not shift wall-clock times.
func At(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

// Combine parses date and clock together as an instant in loc.
func Combine(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return At(day, m), nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ValidMinutes reports whether m is a time of day.
func ValidMinutes(m int) bool {
	return m >= 0 && m < minutesPerDay
}
