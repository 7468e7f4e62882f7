package domain

import (
	"fmt"
	"time"
)

// Day counts the named periods resolve to unless overridden in configuration.
const (
	DefaultWeeklyDays  = 7
	DefaultMonthlyDays = 30
	DefaultYearlyDays  = 365
)

const dateLayout = "2006-01-02"

// DateRange is an immutable (start, end) pair at calendar-date granularity.
// Both ends are inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange normalizes both bounds to UTC midnight.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: dateOnly(start), End: dateOnly(end)}
}

// PeriodRange resolves a named period to the window of the last `days` days
// ending today.
func PeriodRange(days int, now time.Time) DateRange {
	end := dateOnly(now)
	return DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// ParseRange builds a range from explicit YYYY-MM-DD bounds.
func ParseRange(start, end string) (DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return NewDateRange(s, e), nil
}

// Contains reports whether the timestamp's calendar date falls inside the
// range, comparing in UTC.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the length of the range in days.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Label returns the human-readable form used in rendered output.
func (r DateRange) Label() string {
	return fmt.Sprintf("%s to %s", r.Start.Format(dateLayout), r.End.Format(dateLayout))
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
