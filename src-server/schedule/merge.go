package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"log/slog"
	"sort"

	"github.com/uptrace/bun"
)

// GetForDate combines the persisted document for (userID, date) with
// not-yet-materialized occurrences of every recurring series the user owns.
// Persisted instances win over synthesized ones, keyed by recurrence ID. A
// missing document is not an error; the result is simply empty. The result
// is read-only and never persisted here.
func GetForDate(ctx context.Context, db bun.IDB, userID, date string) (*model.Schedule, error) {
	if !recurrence.ValidDate(date) {
		return nil, validationf("date %q is not a YYYY-MM-DD date", date)
	}
	day, err := recurrence.ParseDate(date)
	if err != nil {
		return nil, validationf("%s", err.Error())
	}

	result := &model.Schedule{
		UserID: userID,
		Date:   date,
		Blocks: model.BlockList{},
	}
	seen := make(map[string]struct{})

	persisted := new(model.Schedule)
	switch err := db.NewSelect().
		Model(persisted).
		Where("user_id = ?", userID).
		Where("date = ?", date).
		Scan(ctx); {
	case err == nil:
		result.ID = persisted.ID
		result.CreatedAt = persisted.CreatedAt
		result.UpdatedAt = persisted.UpdatedAt
		result.Blocks = append(result.Blocks, persisted.Blocks...)
		for _, block := range persisted.Blocks {
			if block.RecurrenceID != "" {
				seen[block.RecurrenceID] = struct{}{}
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		// nothing materialized for this date yet
	default:
		return nil, fmt.Errorf("schedule.GetForDate: can't get schedule: %w", err)
	}

	// every document of the user holding a recurring origin block, regardless
	// of that document's own date
	originDocs := make([]model.Schedule, 0)
	if err := db.NewSelect().
		Model(&originDocs).
		Where("user_id = ?", userID).
		Where("blocks LIKE ?", `%"recurring":true%`).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("schedule.GetForDate: can't get recurring origins: %w", err)
	}

	for _, doc := range originDocs {
		for _, block := range doc.Blocks {
			if !block.Recurring || block.RecurrenceRule == nil || block.RecurrenceID == "" {
				continue
			}
			if _, ok := seen[block.RecurrenceID]; ok {
				// a persisted or overridden instance already represents the series
				continue
			}
			originDate := block.OriginalDate
			if originDate == "" {
				originDate = doc.Date
			}
			origin, err := recurrence.ParseDate(originDate)
			if err != nil {
				slog.Warn("recurring block has an invalid origin date",
					"block", block.ID, "date", originDate, "error", err)
				continue
			}
			ok, err := recurrence.IsOccurrence(*block.RecurrenceRule, day, origin)
			if err != nil {
				slog.Warn("skipping recurring block with unsupported rule",
					"block", block.ID, "type", block.RecurrenceRule.Type, "error", err)
				continue
			}
			if !ok {
				continue
			}
			result.Blocks = append(result.Blocks, block.Instantiate(date))
			seen[block.RecurrenceID] = struct{}{}
		}
	}

	SortBlocks(result.Blocks)
	return result, nil
}

// SortBlocks orders blocks by start time. Times are zero-padded HH:MM, so a
// plain string compare is a correct time ordering.
func SortBlocks(blocks []model.Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartTime < blocks[j].StartTime
	})
}
