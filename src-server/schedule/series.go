package schedule

import (
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"regexp"
	"time"
)

var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// BlockUpdate is a partial set of block field changes; nil fields are left
// untouched.
type BlockUpdate struct {
	Title     *string              `json:"title"`
	Category  *model.BlockCategory `json:"category"`
	StartTime *string              `json:"startTime"`
	EndTime   *string              `json:"endTime"`
	Completed *bool                `json:"completed"`
	GoalID    *string              `json:"goalId"`
}

// Validate rejects out-of-range fields before any document is read.
func (u BlockUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return validationf("title can't be blank")
	}
	if u.Category != nil && !u.Category.Valid() {
		return validationf("unknown category %q", *u.Category)
	}
	if u.StartTime != nil && !clockRegex.MatchString(*u.StartTime) {
		return validationf("startTime %q is not a HH:MM time", *u.StartTime)
	}
	if u.EndTime != nil && !clockRegex.MatchString(*u.EndTime) {
		return validationf("endTime %q is not a HH:MM time", *u.EndTime)
	}
	return nil
}

// ApplyTo merges the update over a block, returning the new value.
func (u BlockUpdate) ApplyTo(block model.Block) model.Block {
	if u.Title != nil {
		block.Title = *u.Title
	}
	if u.Category != nil {
		block.Category = *u.Category
	}
	if u.StartTime != nil {
		block.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		block.EndTime = *u.EndTime
	}
	if u.Completed != nil {
		block.Completed = *u.Completed
	}
	if u.GoalID != nil {
		block.GoalID = *u.GoalID
	}
	return block
}

// UpdateSeries applies the update to the series' block in every document
// dated on/after now, skipping completed instances. The inputs are left
// unmodified; only the changed documents are returned, so the caller's
// modified count is the length of the result. The baseline here is the
// processing instant, while DeleteSeries keys off the anchor document's date;
// the two paths intentionally preserve that asymmetry from the product.
func UpdateSeries(docs []model.Schedule, recurrenceID string, update BlockUpdate, now time.Time) []model.Schedule {
	changed := make([]model.Schedule, 0)
	for _, doc := range docs {
		docDay, err := recurrence.ParseDate(doc.Date)
		if err != nil {
			continue
		}
		if docDay.Before(now) {
			// past instances keep their history
			continue
		}
		touched := false
		blocks := make(model.BlockList, len(doc.Blocks))
		copy(blocks, doc.Blocks)
		for i, block := range blocks {
			if block.RecurrenceID != recurrenceID {
				continue
			}
			if block.Completed {
				continue
			}
			blocks[i] = update.ApplyTo(block)
			touched = true
		}
		if touched {
			doc.Blocks = blocks
			changed = append(changed, doc)
		}
	}
	return changed
}

// DeleteSeries removes the series' block from every document dated on/after
// the anchor document's own date (calendar-day comparison; YYYY-MM-DD strings
// order lexicographically). Earlier instances are preserved. Only changed
// documents are returned.
func DeleteSeries(docs []model.Schedule, recurrenceID, anchorDate string) []model.Schedule {
	changed := make([]model.Schedule, 0)
	for _, doc := range docs {
		if doc.Date < anchorDate {
			continue
		}
		kept := make(model.BlockList, 0, len(doc.Blocks))
		for _, block := range doc.Blocks {
			if block.RecurrenceID == recurrenceID {
				continue
			}
			kept = append(kept, block)
		}
		if len(kept) != len(doc.Blocks) {
			doc.Blocks = kept
			changed = append(changed, doc)
		}
	}
	return changed
}

// removeBlock drops one block by id, reporting whether it was present.
func removeBlock(blocks model.BlockList, blockID string) (model.BlockList, bool) {
	kept := make(model.BlockList, 0, len(blocks))
	found := false
	for _, block := range blocks {
		if block.ID == blockID {
			found = true
			continue
		}
		kept = append(kept, block)
	}
	return kept, found
}
