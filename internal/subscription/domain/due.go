package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedFrequency marks a subscription whose recurrence rule cannot be
// evaluated. Such subscriptions are never due; callers surface the error as a
// data-quality warning rather than failing the run.
var ErrMalformedFrequency = errors.New("malformed_frequency")

// IsDue reports whether the subscription should generate an order for the
// target date. Pure: no I/O, deterministic for equal inputs. Both dates are
// compared at day granularity; time-of-day and timezone offsets on the
// inputs are ignored.
func IsDue(sub Subscription, target time.Time) (bool, error) {
	if !sub.IsActive {
		return false, nil
	}

	start := civilDate(sub.StartDate)
	day := civilDate(target)
	if day.Before(start) {
		return false, nil
	}

	switch sub.Frequency {
	case FrequencyDaily:
		return true, nil
	case FrequencyAlternateDay:
		return daysBetween(start, day)%2 == 0, nil
	case FrequencyWeekendOnly:
		wd := day.Weekday()
		return wd == time.Saturday || wd == time.Sunday, nil
	case FrequencyCustomWeekdays:
		set, err := parseWeekdays(sub.CustomWeekdays)
		if err != nil {
			return false, err
		}
		return set[day.Weekday()], nil
	default:
		return false, fmt.Errorf("%w: %q", ErrMalformedFrequency, sub.Frequency)
	}
}

// civilDate truncates an instant to its calendar date in UTC, discarding the
// clock and zone so day arithmetic is stable.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

func parseWeekdays(raw string) (map[time.Weekday]bool, error) {
	set := make(map[time.Weekday]bool, 7)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrMalformedFrequency, part)
		}
		set[wd] = true
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: empty weekday set", ErrMalformedFrequency)
	}
	return set, nil
}
