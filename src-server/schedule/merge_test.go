package schedule_test

import (
	"context"
	"database/sql"
	"errors"
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"lifetrack/src-server/schedule"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	bundb := bun.NewDB(db, sqlitedialect.New())
	if err := model.CreateSchema(bundb); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bundb.Close() })
	return bundb
}

func insertDoc(t *testing.T, db *bun.DB, userID, date string, blocks ...model.Block) *model.Schedule {
	t.Helper()
	doc := &model.Schedule{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Blocks:    model.BlockList(blocks),
		CreatedAt: time.Now().Unix(),
	}
	if err := doc.Upsert(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return doc
}

func dailyOrigin(recurrenceID string) model.Block {
	return model.Block{
		ID:        "blk-" + recurrenceID,
		Title:     "Read",
		Category:  model.BLOCK_CATEGORY_MENTAL,
		StartTime: "21:00",
		EndTime:   "21:30",
		Recurring: true,
		RecurrenceRule: &recurrence.Rule{
			Type:     recurrence.FreqDaily,
			Interval: 1,
		},
		RecurrenceID: recurrenceID,
		OriginalDate: "2024-01-01",
	}
}

func TestGetForDateEmpty(t *testing.T) {
	db := newTestDB(t)

	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if got.Blocks == nil || len(got.Blocks) != 0 {
		t.Errorf("want an empty (non-nil) block list, got %#v", got.Blocks)
	}
}

func TestGetForDateRejectsBadDate(t *testing.T) {
	db := newTestDB(t)

	_, err := schedule.GetForDate(context.Background(), db, "user-1", "01/02/2024")
	if err == nil {
		t.Fatal("want a validation error")
	}
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("got %T, want *ValidationError", err)
	}
}

func TestGetForDateSynthesizesLazyOccurrences(t *testing.T) {
	db := newTestDB(t)
	origin := dailyOrigin("rec-lazy")
	insertDoc(t, db, "user-1", "2024-01-01", origin)

	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(got.Blocks))
	}
	instance := got.Blocks[0]
	if instance.ID != origin.ID+"-2024-01-15" {
		t.Errorf("instance id: got %s", instance.ID)
	}
	if instance.OriginalDate != "2024-01-15" {
		t.Errorf("instance originalDate: got %s", instance.OriginalDate)
	}
	if instance.Completed {
		t.Error("synthesized instances start uncompleted")
	}
	if instance.RecurrenceRule != nil {
		t.Error("concrete instances never carry the rule")
	}
}

func TestGetForDatePersistedInstanceWins(t *testing.T) {
	db := newTestDB(t)
	origin := dailyOrigin("rec-dup")
	insertDoc(t, db, "user-1", "2024-01-01", origin)

	// an overridden, persisted instance of the same series on the queried date
	override := origin.Instantiate("2024-01-10")
	override.Title = "Read (moved)"
	override.StartTime = "22:00"
	insertDoc(t, db, "user-1", "2024-01-10", override)

	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-10")
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, block := range got.Blocks {
		if block.RecurrenceID == "rec-dup" {
			count++
			if block.Title != "Read (moved)" {
				t.Error("the persisted override must win over the synthesized instance")
			}
		}
	}
	if count != 1 {
		t.Errorf("got %d blocks for the series, want exactly 1", count)
	}
}

func TestGetForDateDoesNotApplyBeforeOrigin(t *testing.T) {
	db := newTestDB(t)
	insertDoc(t, db, "user-1", "2024-01-10", func() model.Block {
		b := dailyOrigin("rec-later")
		b.OriginalDate = "2024-01-10"
		return b
	}())

	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 0 {
		t.Error("a series never applies before its origin date")
	}
}

func TestGetForDateSortsByStartTime(t *testing.T) {
	db := newTestDB(t)
	late := model.Block{ID: "b1", Title: "Dinner", Category: model.BLOCK_CATEGORY_SOCIAL, StartTime: "19:00", EndTime: "20:00"}
	early := model.Block{ID: "b2", Title: "Standup", Category: model.BLOCK_CATEGORY_MENTAL, StartTime: "09:15", EndTime: "09:30"}
	insertDoc(t, db, "user-1", "2024-01-10", late, early)
	insertDoc(t, db, "user-1", "2024-01-01", dailyOrigin("rec-sort")) // 21:00

	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-10")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(got.Blocks))
	}
	for i := 1; i < len(got.Blocks); i++ {
		if got.Blocks[i-1].StartTime > got.Blocks[i].StartTime {
			t.Fatalf("blocks out of order: %s after %s", got.Blocks[i].StartTime, got.Blocks[i-1].StartTime)
		}
	}
}

func TestGetForDateIsolatesUsers(t *testing.T) {
	db := newTestDB(t)
	insertDoc(t, db, "user-2", "2024-01-01", dailyOrigin("rec-other"))

	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 0 {
		t.Error("another user's series leaked into the merge")
	}
}
