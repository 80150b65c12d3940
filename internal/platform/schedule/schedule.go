// Package schedule decides when a subscriber's daily digest is due.
// Each subscriber stores a single HH:MM send time and an IANA timezone;
// the digest worker polls once a minute and asks Due for each of them.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"
)

const (
	minutesPerHour = 60
	maxHour        = 23
)

var (
	ErrTimeFormat     = errors.New("time must be HH:MM")
	ErrInvalidHour    = errors.New("invalid hour")
	ErrInvalidMinute  = errors.New("invalid minute")
	ErrHourOutOfRange = errors.New("hour out of range")
)

// Location resolves an IANA timezone name, defaulting to UTC when empty.
func Location(timezone string) (*time.Location, error) {
	if strings.TrimSpace(timezone) == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return loc, nil
}

// Due reports whether a digest scheduled for sendTime (HH:MM, local to
// timezone) is due at now. It matches on the exact local minute, so the
// caller must poll at least once per minute and track what it already
// sent for the day.
func Due(now time.Time, sendTime, timezone string) (bool, error) {
	target, err := ParseTimeHM(sendTime)
	if err != nil {
		return false, err
	}

	loc, err := Location(timezone)
	if err != nil {
		return false, err
	}

	local := now.In(loc)

	return local.Hour()*minutesPerHour+local.Minute() == target, nil
}

// NextOccurrence returns the next moment at or after now when the
// subscriber's send time comes around in their timezone.
func NextOccurrence(now time.Time, sendTime, timezone string) (time.Time, error) {
	target, err := ParseTimeHM(sendTime)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := Location(timezone)
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), target/minutesPerHour, target%minutesPerHour, 0, 0, loc)

	if next.Before(local) {
		next = next.AddDate(0, 0, 1)
	}

	return next, nil
}

// ParseTimeHM parses HH:MM into minutes since midnight.
func ParseTimeHM(value string) (int, error) {
	normalized, err := NormalizeTimeHM(value)
	if err != nil {
		return 0, err
	}

	hour, _ := strconv.Atoi(normalized[:2])
	minute, _ := strconv.Atoi(normalized[3:])

	return hour*minutesPerHour + minute, nil
}

// NormalizeTimeHM accepts H:MM or HH:MM and returns HH:MM.
func NormalizeTimeHM(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrTimeFormat
	}

	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return "", ErrTimeFormat
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", ErrInvalidHour
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", ErrInvalidMinute
	}

	if hour < 0 || hour > maxHour {
		return "", ErrHourOutOfRange
	}

	if minute < 0 || minute >= minutesPerHour {
		return "", ErrInvalidMinute
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
