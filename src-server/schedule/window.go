package schedule

import (
	"fmt"
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
)

// DefaultDaysAhead is how far bulk generation materializes a series when the
// caller doesn't say.
const DefaultDaysAhead = 30

// DatedBlocks is one day's worth of generated instances.
type DatedBlocks struct {
	Date   string
	Blocks []model.Block
}

// ApplyToWindow enumerates the origin block's rule over
// [startDate, startDate+daysAhead] and groups the resulting instances by
// date. The origin block itself (rule attached, plain id) lands on the start
// date so exactly one document carries the rule; every other match becomes a
// concrete instance with a per-date identity and the rule stripped. The rule's
// phase is anchored at the block's originalDate (startDate when unset), the
// same anchor the read-time merge evaluates against.
func ApplyToWindow(origin model.Block, startDate string, daysAhead int) ([]DatedBlocks, error) {
	if origin.RecurrenceRule == nil {
		return nil, fmt.Errorf("ApplyToWindow: block %q has no recurrence rule", origin.ID)
	}
	start, err := recurrence.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("ApplyToWindow: %w", err)
	}
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}

	if origin.OriginalDate == "" {
		origin.OriginalDate = startDate
	}
	anchor, err := recurrence.ParseDate(origin.OriginalDate)
	if err != nil {
		return nil, fmt.Errorf("ApplyToWindow: %w", err)
	}

	dates, err := recurrence.EnumerateDates(*origin.RecurrenceRule, anchor, start, start.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, fmt.Errorf("ApplyToWindow: %w", err)
	}

	out := make([]DatedBlocks, 0, len(dates)+1)
	originPlaced := false
	for _, day := range dates {
		date := day.Format(recurrence.DateLayout)
		if date == startDate {
			out = append(out, DatedBlocks{Date: date, Blocks: []model.Block{origin}})
			originPlaced = true
			continue
		}
		out = append(out, DatedBlocks{Date: date, Blocks: []model.Block{origin.Instantiate(date)}})
	}
	if !originPlaced {
		// the rule may skip the start date (e.g. weekly rule created on an
		// off day); the origin document still has to exist to carry the rule
		out = append([]DatedBlocks{{Date: startDate, Blocks: []model.Block{origin}}}, out...)
	}
	return out, nil
}
