package schedule_test

import (
	"fmt"
	"lifetrack/src-server/model"
	"lifetrack/src-server/schedule"
	"testing"
	"time"
)

func seriesBlock(date, recurrenceID string, completed bool) model.Block {
	return model.Block{
		ID:           "origin-" + date,
		Title:        "Morning Run",
		Category:     model.BLOCK_CATEGORY_PHYSICAL,
		StartTime:    "07:00",
		EndTime:      "08:00",
		Completed:    completed,
		Recurring:    true,
		RecurrenceID: recurrenceID,
		OriginalDate: date,
	}
}

func seriesDocs(recurrenceID string, count int) []model.Schedule {
	docs := make([]model.Schedule, 0, count)
	for i := 0; i < count; i++ {
		date := fmt.Sprintf("2024-01-%02d", i+1)
		docs = append(docs, model.Schedule{
			ID:     "doc-" + date,
			UserID: "user-1",
			Date:   date,
			Blocks: model.BlockList{seriesBlock(date, recurrenceID, false)},
		})
	}
	return docs
}

func TestUpdateSeriesProtectsPastInstances(t *testing.T) {
	docs := seriesDocs("rec-1", 10)
	title := "Evening Run"
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	changed := schedule.UpdateSeries(docs, "rec-1", schedule.BlockUpdate{Title: &title}, now)

	// 2024-01-05 is already "in the past" at noon that day; only the 6th
	// through the 10th are rewritten
	if len(changed) != 5 {
		t.Fatalf("got %d changed docs, want 5", len(changed))
	}
	for _, doc := range changed {
		if doc.Date < "2024-01-06" {
			t.Errorf("doc %s dated before now was modified", doc.Date)
		}
		if doc.Blocks[0].Title != title {
			t.Errorf("doc %s: title not applied", doc.Date)
		}
	}

	// inputs are left untouched
	for _, doc := range docs {
		if doc.Blocks[0].Title != "Morning Run" {
			t.Errorf("input doc %s was mutated", doc.Date)
		}
	}
}

func TestUpdateSeriesProtectsCompletedInstances(t *testing.T) {
	docs := seriesDocs("rec-1", 10)
	docs[7].Blocks[0].Completed = true // 2024-01-08
	title := "Evening Run"
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	changed := schedule.UpdateSeries(docs, "rec-1", schedule.BlockUpdate{Title: &title}, now)

	if len(changed) != 9 {
		t.Fatalf("got %d changed docs, want 9", len(changed))
	}
	for _, doc := range changed {
		if doc.Date == "2024-01-08" {
			t.Error("completed instance was modified")
		}
	}
}

func TestUpdateSeriesIgnoresOtherSeries(t *testing.T) {
	docs := seriesDocs("rec-1", 3)
	docs[1].Blocks = append(docs[1].Blocks, seriesBlock("2024-01-02", "rec-2", false))
	title := "Changed"
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	changed := schedule.UpdateSeries(docs, "rec-2", schedule.BlockUpdate{Title: &title}, now)

	if len(changed) != 1 {
		t.Fatalf("got %d changed docs, want 1", len(changed))
	}
	for _, block := range changed[0].Blocks {
		switch block.RecurrenceID {
		case "rec-1":
			if block.Title != "Morning Run" {
				t.Error("unrelated series was modified")
			}
		case "rec-2":
			if block.Title != title {
				t.Error("target series was not modified")
			}
		}
	}
}

func TestDeleteSeriesRemovesOnlyTheTail(t *testing.T) {
	docs := seriesDocs("rec-1", 10)

	// anchor in the middle of the series
	changed := schedule.DeleteSeries(docs, "rec-1", "2024-01-05")

	if len(changed) != 6 {
		t.Fatalf("got %d changed docs, want 6 (2024-01-05 through 2024-01-10)", len(changed))
	}
	for _, doc := range changed {
		if doc.Date < "2024-01-05" {
			t.Errorf("doc %s before the anchor was modified", doc.Date)
		}
		if len(doc.Blocks) != 0 {
			t.Errorf("doc %s still holds the series block", doc.Date)
		}
	}
}

func TestDeleteSeriesKeepsUnrelatedBlocks(t *testing.T) {
	docs := seriesDocs("rec-1", 2)
	other := model.Block{
		ID:        "standalone",
		Title:     "Dentist",
		Category:  model.BLOCK_CATEGORY_PERSONAL,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	docs[1].Blocks = append(docs[1].Blocks, other)

	changed := schedule.DeleteSeries(docs, "rec-1", "2024-01-01")

	if len(changed) != 2 {
		t.Fatalf("got %d changed docs, want 2", len(changed))
	}
	if len(changed[1].Blocks) != 1 || changed[1].Blocks[0].ID != "standalone" {
		t.Error("unrelated block should survive a series delete")
	}
}

func TestBlockUpdateApplyToIsPartial(t *testing.T) {
	block := seriesBlock("2024-01-01", "rec-1", false)
	start := "09:30"
	completed := true

	got := schedule.BlockUpdate{StartTime: &start, Completed: &completed}.ApplyTo(block)

	if got.StartTime != "09:30" || !got.Completed {
		t.Error("set fields were not applied")
	}
	if got.Title != block.Title || got.Category != block.Category || got.EndTime != block.EndTime {
		t.Error("unset fields must stay untouched")
	}
}

func TestBlockUpdateValidate(t *testing.T) {
	bad := "25:00"
	if err := (schedule.BlockUpdate{StartTime: &bad}).Validate(); err == nil {
		t.Error("25:00 must be rejected")
	}
	badCategory := model.BlockCategory("spiritual")
	if err := (schedule.BlockUpdate{Category: &badCategory}).Validate(); err == nil {
		t.Error("unknown category must be rejected")
	}
	good := "23:59"
	if err := (schedule.BlockUpdate{EndTime: &good}).Validate(); err != nil {
		t.Errorf("23:59 should pass: %v", err)
	}
}
