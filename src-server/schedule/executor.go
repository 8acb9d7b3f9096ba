package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Executor runs single-instance and series-wide mutations. Series fan-out is
// not transactional: each document is persisted independently and a failure
// partway through leaves earlier documents written. Callers get the count of
// documents actually modified and own any re-query/retry policy.
type Executor struct {
	DB bun.IDB
}

// loadDoc fetches one document by id, scoped to the user.
func (x Executor) loadDoc(ctx context.Context, userID, scheduleID string) (*model.Schedule, error) {
	doc := new(model.Schedule)
	err := x.DB.NewSelect().
		Model(doc).
		Where("id = ?", scheduleID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("schedule %q not found", scheduleID)
	}
	if err != nil {
		return nil, fmt.Errorf("can't get schedule: %w", err)
	}
	return doc, nil
}

// seriesDocs fetches every document of the user containing a block of the
// series.
func (x Executor) seriesDocs(ctx context.Context, userID, recurrenceID string) ([]model.Schedule, error) {
	docs := make([]model.Schedule, 0)
	if err := x.DB.NewSelect().
		Model(&docs).
		Where("user_id = ?", userID).
		Where("blocks LIKE ?", `%"recurrenceId":"`+recurrenceID+`"%`).
		Order("date ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("can't get series documents: %w", err)
	}
	// the LIKE filter is only a prefilter over the JSON column; confirm per doc
	confirmed := docs[:0]
	for _, doc := range docs {
		for _, block := range doc.Blocks {
			if block.RecurrenceID == recurrenceID {
				confirmed = append(confirmed, doc)
				break
			}
		}
	}
	return confirmed, nil
}

func (x Executor) persist(ctx context.Context, doc *model.Schedule) error {
	doc.UpdatedAt = time.Now().Unix()
	if _, err := x.DB.NewUpdate().
		Model(doc).
		Column("blocks", "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("can't persist schedule %q: %w", doc.ID, err)
	}
	return nil
}

// UpdateBlock applies a partial update to one block, or, when updateSeries is
// set and the block belongs to a series, fans it out across the whole series.
// Series fan-out never rewrites completed instances or documents dated before
// now. Returns the number of documents modified.
func (x Executor) UpdateBlock(ctx context.Context, userID, scheduleID, blockID string, update BlockUpdate, updateSeries bool, now time.Time) (int, error) {
	if err := update.Validate(); err != nil {
		return 0, err
	}

	doc, err := x.loadDoc(ctx, userID, scheduleID)
	if err != nil {
		return 0, err
	}
	var target *model.Block
	for i := range doc.Blocks {
		if doc.Blocks[i].ID == blockID {
			target = &doc.Blocks[i]
			break
		}
	}
	if target == nil {
		return 0, notFoundf("block %q not found in schedule %q", blockID, scheduleID)
	}

	if !updateSeries || target.RecurrenceID == "" {
		*target = update.ApplyTo(*target)
		if err := x.persist(ctx, doc); err != nil {
			return 0, err
		}
		return 1, nil
	}

	docs, err := x.seriesDocs(ctx, userID, target.RecurrenceID)
	if err != nil {
		return 0, err
	}
	modified := 0
	for _, changed := range UpdateSeries(docs, target.RecurrenceID, update, now) {
		changed := changed
		if err := x.persist(ctx, &changed); err != nil {
			// partial completion is surfaced through the count only
			slog.Error("series update skipped a document", "schedule", changed.ID, "error", err)
			continue
		}
		modified++
	}
	return modified, nil
}

// DeleteBlock removes one block, or, when deleteSeries is set and the block
// belongs to a series, removes every instance dated on/after the anchor
// document's own date. Returns the number of documents modified.
func (x Executor) DeleteBlock(ctx context.Context, userID, scheduleID, blockID string, deleteSeries bool) (int, error) {
	doc, err := x.loadDoc(ctx, userID, scheduleID)
	if err != nil {
		return 0, err
	}
	var target *model.Block
	for i := range doc.Blocks {
		if doc.Blocks[i].ID == blockID {
			target = &doc.Blocks[i]
			break
		}
	}
	if target == nil {
		return 0, notFoundf("block %q not found in schedule %q", blockID, scheduleID)
	}

	if !deleteSeries || target.RecurrenceID == "" {
		kept, _ := removeBlock(doc.Blocks, blockID)
		doc.Blocks = kept
		if err := x.persist(ctx, doc); err != nil {
			return 0, err
		}
		return 1, nil
	}

	docs, err := x.seriesDocs(ctx, userID, target.RecurrenceID)
	if err != nil {
		return 0, err
	}
	modified := 0
	for _, changed := range DeleteSeries(docs, target.RecurrenceID, doc.Date) {
		changed := changed
		if err := x.persist(ctx, &changed); err != nil {
			slog.Error("series delete skipped a document", "schedule", changed.ID, "error", err)
			continue
		}
		modified++
	}
	return modified, nil
}

// CreateSeries validates the origin block and its rule, then materializes the
// series over [startDate, startDate+daysAhead], creating or extending one
// document per matched date. A document that already holds a block of the
// series is left alone, so repeating the call is harmless. Returns blocks
// added per date.
func (x Executor) CreateSeries(ctx context.Context, userID string, origin model.Block, startDate string, daysAhead int) (map[string]int, error) {
	// all validation happens before any document is read or written
	if !recurrence.ValidDate(startDate) {
		return nil, validationf("startDate %q is not a YYYY-MM-DD date", startDate)
	}
	if !origin.Recurring || origin.RecurrenceRule == nil {
		return nil, validationf("block must be recurring and carry a recurrence rule")
	}
	if err := origin.RecurrenceRule.Validate(); err != nil {
		return nil, validationf("invalid recurrence rule: %s", err.Error())
	}
	switch {
	case origin.Title == "":
		return nil, validationf("block title is required")
	case !origin.Category.Valid():
		return nil, validationf("unknown category %q", origin.Category)
	case !clockRegex.MatchString(origin.StartTime):
		return nil, validationf("startTime %q is not a HH:MM time", origin.StartTime)
	case !clockRegex.MatchString(origin.EndTime):
		return nil, validationf("endTime %q is not a HH:MM time", origin.EndTime)
	}

	if origin.ID == "" {
		origin.ID = uuid.NewString()
	}
	if origin.RecurrenceID == "" {
		origin.RecurrenceID = uuid.NewString()
	}

	window, err := ApplyToWindow(origin, startDate, daysAhead)
	if err != nil {
		return nil, fmt.Errorf("schedule.CreateSeries: %w", err)
	}

	report := make(map[string]int, len(window))
	for _, day := range window {
		added, err := x.addBlocksToDate(ctx, userID, day.Date, day.Blocks, origin.RecurrenceID)
		if err != nil {
			return report, fmt.Errorf("schedule.CreateSeries: %w", err)
		}
		report[day.Date] = added
	}
	return report, nil
}

// addBlocksToDate upserts one date's document, adding only blocks whose
// series isn't already present there.
func (x Executor) addBlocksToDate(ctx context.Context, userID, date string, blocks []model.Block, recurrenceID string) (int, error) {
	doc := new(model.Schedule)
	err := x.DB.NewSelect().
		Model(doc).
		Where("user_id = ?", userID).
		Where("date = ?", date).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().Unix()
		doc = &model.Schedule{
			ID:        uuid.NewString(),
			UserID:    userID,
			Date:      date,
			Blocks:    model.BlockList(blocks),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := doc.Upsert(ctx, x.DB); err != nil {
			return 0, err
		}
		return len(blocks), nil
	case err != nil:
		return 0, fmt.Errorf("can't get schedule for %s: %w", date, err)
	}

	if hasSeries(doc.Blocks, recurrenceID) {
		return 0, nil
	}
	added := 0
	for _, block := range blocks {
		doc.Blocks = append(doc.Blocks, block)
		added++
	}
	if err := x.persist(ctx, doc); err != nil {
		return 0, err
	}
	return added, nil
}

func hasSeries(blocks model.BlockList, recurrenceID string) bool {
	for _, block := range blocks {
		if block.RecurrenceID == recurrenceID {
			return true
		}
	}
	return false
}
