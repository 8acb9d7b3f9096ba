package recurrence

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Calendar dates travel through the API as zero-padded YYYY-MM-DD strings.
const DateLayout = "2006-01-02"

var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Returned by IsOccurrence for "custom" or unknown rule types, which have no
// defined semantics.
var ErrUnsupportedRule = errors.New("unsupported recurrence rule type")

type Frequency string

const (
	FreqDaily   = Frequency("daily")
	FreqWeekly  = Frequency("weekly")
	FreqMonthly = Frequency("monthly")
	FreqCustom  = Frequency("custom")
)

// Rule decides which calendar dates belong to a series. The rule body lives
// only on the series' origin block; every other instance references the
// series by its recurrence ID alone.
type Rule struct {
	Type     Frequency `json:"type"`
	Interval int       `json:"interval"`
	// weekdays as integers in [0,6], Sunday = 0; only meaningful for weekly
	DaysOfWeek     []int    `json:"daysOfWeek,omitempty"`
	EndDate        string   `json:"endDate,omitempty"`
	EndOccurrences int      `json:"endOccurrences,omitempty"`
	Exceptions     []string `json:"exceptions,omitempty"`
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight instant.
func ParseDate(s string) (time.Time, error) {
	if !dateRegex.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Validate checks every rule field range before any document is touched.
func (r Rule) Validate() error {
	switch r.Type {
	case FreqDaily, FreqWeekly, FreqMonthly:
	case FreqCustom:
		return fmt.Errorf("rule type %q: %w", r.Type, ErrUnsupportedRule)
	default:
		return fmt.Errorf("rule type %q: %w", r.Type, ErrUnsupportedRule)
	}
	if r.Interval < 1 || r.Interval > 100 {
		return fmt.Errorf("interval must be in [1,100], got %d", r.Interval)
	}
	for _, day := range r.DaysOfWeek {
		if day < 0 || day > 6 {
			return fmt.Errorf("daysOfWeek entries must be in [0,6], got %d", day)
		}
	}
	if r.EndDate != "" && !ValidDate(r.EndDate) {
		return fmt.Errorf("endDate %q is not a YYYY-MM-DD date", r.EndDate)
	}
	if r.EndOccurrences != 0 && (r.EndOccurrences < 1 || r.EndOccurrences > 365) {
		return fmt.Errorf("endOccurrences must be in [1,365], got %d", r.EndOccurrences)
	}
	for _, exc := range r.Exceptions {
		if !ValidDate(exc) {
			return fmt.Errorf("exception %q is not a YYYY-MM-DD date", exc)
		}
	}
	return nil
}

// IsOccurrence decides whether candidate belongs to the series anchored at
// origin. Both instants are compared at calendar-day granularity. The
// endOccurrences cap is deliberately not checked here; a lone predicate has
// no notion of "the Nth match so far", so only EnumerateDates enforces it.
func IsOccurrence(r Rule, candidate, origin time.Time) (bool, error) {
	switch r.Type {
	case FreqDaily, FreqWeekly, FreqMonthly:
	default:
		return false, fmt.Errorf("rule type %q: %w", r.Type, ErrUnsupportedRule)
	}

	candidate = dayStart(candidate)
	origin = dayStart(origin)
	if candidate.Before(origin) {
		return false, nil
	}
	if r.EndDate != "" {
		end, err := ParseDate(r.EndDate)
		if err != nil {
			return false, fmt.Errorf("IsOccurrence: %w", err)
		}
		if candidate.After(end) {
			return false, nil
		}
	}
	for _, exc := range r.Exceptions {
		excDay, err := ParseDate(exc)
		if err != nil {
			return false, fmt.Errorf("IsOccurrence: %w", err)
		}
		if candidate.Equal(excDay) {
			return false, nil
		}
	}

	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	switch r.Type {
	case FreqDaily:
		return wholeDaysBetween(candidate, origin)%interval == 0, nil
	case FreqWeekly:
		weeks := wholeDaysBetween(candidate, origin) / 7
		if weeks%interval != 0 {
			return false, nil
		}
		if len(r.DaysOfWeek) > 0 {
			return containsWeekday(r.DaysOfWeek, candidate.Weekday()), nil
		}
		return candidate.Weekday() == origin.Weekday(), nil
	case FreqMonthly:
		months := wholeMonthsBetween(candidate, origin)
		return months%interval == 0 && candidate.Day() == origin.Day(), nil
	}
	return false, nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func wholeDaysBetween(candidate, origin time.Time) int {
	return int(candidate.Sub(origin) / (24 * time.Hour))
}

func wholeMonthsBetween(candidate, origin time.Time) int {
	return (candidate.Year()-origin.Year())*12 + int(candidate.Month()) - int(origin.Month())
}

func containsWeekday(days []int, weekday time.Weekday) bool {
	for _, day := range days {
		if day == int(weekday) {
			return true
		}
	}
	return false
}
