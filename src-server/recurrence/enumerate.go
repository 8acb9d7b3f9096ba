package recurrence

import (
	"fmt"
	"time"
)

// EnumerateDates walks calendar days from windowStart through windowEnd
// inclusive and collects every date for which IsOccurrence holds, with the
// same predicate the read-time merge uses. The walk is clamped to the rule's
// end date and stops entirely (not just skips) once emitting another match
// would exceed the rule's occurrence cap.
func EnumerateDates(r Rule, origin, windowStart, windowEnd time.Time) ([]time.Time, error) {
	end := dayStart(windowEnd)
	if r.EndDate != "" {
		ruleEnd, err := ParseDate(r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("EnumerateDates: %w", err)
		}
		if ruleEnd.Before(end) {
			end = ruleEnd
		}
	}

	dates := make([]time.Time, 0)
	for day := dayStart(windowStart); !day.After(end); day = day.AddDate(0, 0, 1) {
		ok, err := IsOccurrence(r, day, origin)
		if err != nil {
			return nil, fmt.Errorf("EnumerateDates: %w", err)
		}
		if !ok {
			continue
		}
		if r.EndOccurrences > 0 && len(dates) >= r.EndOccurrences {
			break
		}
		dates = append(dates, day)
	}
	return dates, nil
}
