package medication

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DueWindowMinutes is how long after the scheduled minute a reminder is
// still considered timely. Reminders later than that are never fired.
const DueWindowMinutes = 15

var ErrInvalidSchedule = errors.New("invalid medication schedule")

// Weekdays lists the accepted day names in Sunday-first order.
var Weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Schedule is the part of a medication schedule the due check reads.
type Schedule struct {
	ScheduledTime string   `json:"scheduledTime"`
	DaysOfWeek    []string `json:"daysOfWeek"`
	IsActive      bool     `json:"isActive"`
}

type Decision struct {
	IsDue                bool `json:"isDue"`
	MinutesPastScheduled int  `json:"minutesPastScheduled"`
}

// Evaluate decides whether a reminder for s is due at now. The wall clock and
// weekday are read in now's location. A due decision assumes the dose was
// neither taken nor notified today; checking that is the caller's job.
func Evaluate(s Schedule, now time.Time) (Decision, error) {
	scheduled, err := ParseClock(s.ScheduledTime)
	if err != nil {
		return Decision{}, err
	}
	if err := ValidateDays(s.DaysOfWeek); err != nil {
		return Decision{}, err
	}

	if !s.IsActive || !containsDay(s.DaysOfWeek, WeekdayName(now)) {
		return Decision{}, nil
	}

	delta := now.Hour()*60 + now.Minute() - scheduled
	return Decision{
		IsDue:                delta >= 0 && delta <= DueWindowMinutes,
		MinutesPastScheduled: delta,
	}, nil
}

// ParseClock converts "HH:MM" (24h) into minutes since midnight. A trailing
// ":SS" is accepted and ignored since Postgres TIME columns render that way.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSchedule, value)
	}

	hour, err := parseDigits(parts[0])
	if err != nil || hour > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidSchedule, value)
	}
	minute, err := parseDigits(parts[1])
	if err != nil || minute > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidSchedule, value)
	}
	if len(parts) == 3 {
		if sec, err := parseDigits(parts[2]); err != nil || sec > 59 {
			return 0, fmt.Errorf("%w: bad second in %q", ErrInvalidSchedule, value)
		}
	}

	return hour*60 + minute, nil
}

// ValidateDays rejects an empty list or names outside Weekdays.
func ValidateDays(days []string) error {
	if len(days) == 0 {
		return fmt.Errorf("%w: no days selected", ErrInvalidSchedule)
	}
	for _, d := range days {
		if !containsDay(Weekdays, d) {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, d)
		}
	}
	return nil
}

// WeekdayName returns the lowercase English weekday of t.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func parseDigits(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, fmt.Errorf("bad length")
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
