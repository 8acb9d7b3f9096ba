package schedule_test

import (
	"context"
	"errors"
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"lifetrack/src-server/schedule"
	"testing"
	"time"
)

func TestCreateSeriesMaterializesWindow(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-create")
	origin.RecurrenceRule.Interval = 7

	report, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 28)
	if err != nil {
		t.Fatal(err)
	}
	// Jan 1, 8, 15, 22, 29
	if len(report) != 5 {
		t.Fatalf("got %d dates, want 5: %v", len(report), report)
	}
	for date, added := range report {
		if added != 1 {
			t.Errorf("date %s: added %d blocks, want 1", date, added)
		}
	}

	// the origin document carries the rule, the others don't
	got, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].RecurrenceRule == nil {
		t.Error("the origin document must hold the rule body")
	}
	got, err = schedule.GetForDate(context.Background(), db, "user-1", "2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].RecurrenceRule != nil {
		t.Error("materialized occurrences must not carry the rule")
	}
}

func TestCreateSeriesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-idem")

	if _, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 5); err != nil {
		t.Fatal(err)
	}
	report, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 5)
	if err != nil {
		t.Fatal(err)
	}
	for date, added := range report {
		if added != 0 {
			t.Errorf("second run added %d blocks on %s, want 0", added, date)
		}
	}
}

func TestCreateSeriesValidatesBeforeWriting(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-bad")
	origin.RecurrenceRule.Interval = 0

	_, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 5)
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want *ValidationError", err)
	}

	count, err := db.NewSelect().Model((*model.Schedule)(nil)).Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("validation failure must not write documents, found %d", count)
	}
}

func TestCreateSeriesRoundTripsThroughMerge(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := model.Block{
		ID:        "blk-rt",
		Title:     "Gym",
		Category:  model.BLOCK_CATEGORY_PHYSICAL,
		StartTime: "07:00",
		EndTime:   "08:00",
		Recurring: true,
		RecurrenceRule: &recurrence.Rule{
			Type:       recurrence.FreqWeekly,
			Interval:   1,
			DaysOfWeek: []int{1, 3, 5},
		},
		RecurrenceID: "rec-rt",
	}

	report, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 14)
	if err != nil {
		t.Fatal(err)
	}

	// reconstruct each materialized date lazily from a second, generation-free
	// store holding only the origin document; both paths must agree
	lazyDB := newTestDB(t)
	persistedOrigin := origin
	persistedOrigin.OriginalDate = "2024-01-01"
	insertDoc(t, lazyDB, "user-1", "2024-01-01", persistedOrigin)

	for date := range report {
		materialized, err := schedule.GetForDate(context.Background(), db, "user-1", date)
		if err != nil {
			t.Fatal(err)
		}
		lazy, err := schedule.GetForDate(context.Background(), lazyDB, "user-1", date)
		if err != nil {
			t.Fatal(err)
		}
		if len(materialized.Blocks) != len(lazy.Blocks) {
			t.Fatalf("%s: %d materialized vs %d lazy blocks", date, len(materialized.Blocks), len(lazy.Blocks))
		}
		for i := range materialized.Blocks {
			m, l := materialized.Blocks[i], lazy.Blocks[i]
			if m.ID != l.ID || m.Title != l.Title || m.StartTime != l.StartTime ||
				m.OriginalDate != l.OriginalDate || m.Completed != l.Completed {
				t.Errorf("%s: materialized %+v differs from lazy %+v", date, m, l)
			}
		}
	}
}

func TestUpdateBlockSingleInstance(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-upd1")
	if _, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 3); err != nil {
		t.Fatal(err)
	}

	doc := new(model.Schedule)
	if err := db.NewSelect().Model(doc).
		Where("user_id = ?", "user-1").
		Where("date = ?", "2024-01-02").
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	title := "Read (short)"
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	modified, err := x.UpdateBlock(context.Background(), "user-1", doc.ID, doc.Blocks[0].ID,
		schedule.BlockUpdate{Title: &title}, false, now)
	if err != nil {
		t.Fatal(err)
	}
	if modified != 1 {
		t.Errorf("got %d modified docs, want 1", modified)
	}

	// only the named document changed
	other, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-03")
	if err != nil {
		t.Fatal(err)
	}
	if other.Blocks[0].Title == title {
		t.Error("single-instance update leaked into the series")
	}
}

func TestUpdateBlockSeries(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-upd2")
	if _, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 9); err != nil {
		t.Fatal(err)
	}

	doc := new(model.Schedule)
	if err := db.NewSelect().Model(doc).
		Where("user_id = ?", "user-1").
		Where("date = ?", "2024-01-01").
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	title := "Read Longer"
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	modified, err := x.UpdateBlock(context.Background(), "user-1", doc.ID, doc.Blocks[0].ID,
		schedule.BlockUpdate{Title: &title}, true, now)
	if err != nil {
		t.Fatal(err)
	}
	// Jan 6 through Jan 10
	if modified != 5 {
		t.Errorf("got %d modified docs, want 5", modified)
	}

	before, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-03")
	if err != nil {
		t.Fatal(err)
	}
	if before.Blocks[0].Title == title {
		t.Error("instance before now must keep its history")
	}
	after, err := schedule.GetForDate(context.Background(), db, "user-1", "2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	if after.Blocks[0].Title != title {
		t.Error("instance after now was not updated")
	}
}

func TestUpdateBlockSeriesFromInstanceAnchor(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-upd3")
	if _, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 9); err != nil {
		t.Fatal(err)
	}

	// anchor at a mid-series instance, not the origin document
	anchor := new(model.Schedule)
	if err := db.NewSelect().Model(anchor).
		Where("user_id = ?", "user-1").
		Where("date = ?", "2024-01-05").
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if anchor.Blocks[0].RecurrenceRule != nil {
		t.Fatal("the anchor was supposed to be a rule-free instance")
	}

	title := "Read Everywhere"
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	modified, err := x.UpdateBlock(context.Background(), "user-1", anchor.ID, anchor.Blocks[0].ID,
		schedule.BlockUpdate{Title: &title}, true, now)
	if err != nil {
		t.Fatal(err)
	}
	// Jan 1 through Jan 10, nothing is in the past
	if modified != 10 {
		t.Errorf("got %d modified docs, want 10", modified)
	}

	for _, date := range []string{"2024-01-01", "2024-01-05", "2024-01-10"} {
		got, err := schedule.GetForDate(context.Background(), db, "user-1", date)
		if err != nil {
			t.Fatal(err)
		}
		if got.Blocks[0].Title != title {
			t.Errorf("doc %s missed the series update", date)
		}
	}
}

func TestUpdateBlockNotFound(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	now := time.Now()

	_, err := x.UpdateBlock(context.Background(), "user-1", "missing", "missing", schedule.BlockUpdate{}, false, now)
	var nf *schedule.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("got %v, want *NotFoundError", err)
	}
}

func TestDeleteBlockSeriesFromAnchor(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-del")
	if _, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 9); err != nil {
		t.Fatal(err)
	}

	anchor := new(model.Schedule)
	if err := db.NewSelect().Model(anchor).
		Where("user_id = ?", "user-1").
		Where("date = ?", "2024-01-05").
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	modified, err := x.DeleteBlock(context.Background(), "user-1", anchor.ID, anchor.Blocks[0].ID, true)
	if err != nil {
		t.Fatal(err)
	}
	// Jan 5 through Jan 10
	if modified != 6 {
		t.Errorf("got %d modified docs, want 6", modified)
	}

	docs := make([]model.Schedule, 0)
	if err := db.NewSelect().Model(&docs).
		Where("user_id = ?", "user-1").
		Order("date ASC").
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, doc := range docs {
		holds := false
		for _, block := range doc.Blocks {
			if block.RecurrenceID == "rec-del" {
				holds = true
			}
		}
		if doc.Date < "2024-01-05" && !holds {
			t.Errorf("doc %s before the anchor lost its instance", doc.Date)
		}
		if doc.Date >= "2024-01-05" && holds {
			t.Errorf("doc %s on/after the anchor still holds the instance", doc.Date)
		}
	}
}

func TestDeleteBlockSingle(t *testing.T) {
	db := newTestDB(t)
	x := schedule.Executor{DB: db}
	origin := dailyOrigin("rec-del1")
	if _, err := x.CreateSeries(context.Background(), "user-1", origin, "2024-01-01", 3); err != nil {
		t.Fatal(err)
	}

	doc := new(model.Schedule)
	if err := db.NewSelect().Model(doc).
		Where("user_id = ?", "user-1").
		Where("date = ?", "2024-01-02").
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	modified, err := x.DeleteBlock(context.Background(), "user-1", doc.ID, doc.Blocks[0].ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if modified != 1 {
		t.Errorf("got %d modified docs, want 1", modified)
	}

	// note: the merge re-synthesizes the deleted occurrence because nothing
	// marks the date as an exception; single-instance removal only clears the
	// persisted copy
	persisted := new(model.Schedule)
	if err := db.NewSelect().Model(persisted).
		Where("id = ?", doc.ID).
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(persisted.Blocks) != 0 {
		t.Error("the block was not removed from the persisted document")
	}
}
