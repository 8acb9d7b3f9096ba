package schedule_test

import (
	"lifetrack/src-server/model"
	"lifetrack/src-server/recurrence"
	"lifetrack/src-server/schedule"
	"testing"
)

func TestApplyToWindowAnchorsAtOriginalDate(t *testing.T) {
	origin := dailyOrigin("rec-phase")
	origin.RecurrenceRule.Interval = 3
	origin.OriginalDate = "2024-01-01"

	// generation starts two days after the series anchor; the phase must stay
	// keyed to the anchor, not to the window start
	window, err := schedule.ApplyToWindow(origin, "2024-01-03", 9)
	if err != nil {
		t.Fatal(err)
	}

	gotDates := make([]string, 0, len(window))
	for _, day := range window {
		gotDates = append(gotDates, day.Date)
	}
	// 2024-01-03 carries the rule-holding origin; 04/07/10 are the anchored
	// occurrences inside the window
	wantDates := []string{"2024-01-03", "2024-01-04", "2024-01-07", "2024-01-10"}
	if len(gotDates) != len(wantDates) {
		t.Fatalf("got dates %v, want %v", gotDates, wantDates)
	}
	for i := range wantDates {
		if gotDates[i] != wantDates[i] {
			t.Fatalf("got dates %v, want %v", gotDates, wantDates)
		}
	}

	// every materialized occurrence must satisfy the same predicate the
	// read-time merge evaluates, anchored at the block's originalDate
	anchor, err := recurrence.ParseDate(origin.OriginalDate)
	if err != nil {
		t.Fatal(err)
	}
	for _, day := range window {
		if day.Date == "2024-01-03" {
			if day.Blocks[0].RecurrenceRule == nil {
				t.Error("the start-date document must carry the rule body")
			}
			continue
		}
		candidate, err := recurrence.ParseDate(day.Date)
		if err != nil {
			t.Fatal(err)
		}
		ok, err := recurrence.IsOccurrence(*origin.RecurrenceRule, candidate, anchor)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("materialized %s, but the predicate rejects it", day.Date)
		}
		if day.Blocks[0].RecurrenceRule != nil {
			t.Errorf("instance on %s must not carry the rule", day.Date)
		}
	}
}

func TestApplyToWindowDefaultsAnchorToStartDate(t *testing.T) {
	origin := dailyOrigin("rec-default")
	origin.RecurrenceRule.Interval = 7
	origin.OriginalDate = ""

	window, err := schedule.ApplyToWindow(origin, "2024-02-05", 21)
	if err != nil {
		t.Fatal(err)
	}

	wantDates := []string{"2024-02-05", "2024-02-12", "2024-02-19", "2024-02-26"}
	if len(window) != len(wantDates) {
		t.Fatalf("got %d dates, want %d", len(window), len(wantDates))
	}
	for i, day := range window {
		if day.Date != wantDates[i] {
			t.Fatalf("date %d: got %s, want %s", i, day.Date, wantDates[i])
		}
		if day.Blocks[0].OriginalDate == "" {
			t.Errorf("block on %s is missing its originalDate", day.Date)
		}
	}
	if window[0].Blocks[0].RecurrenceRule == nil {
		t.Error("the start-date document must carry the rule body")
	}
}

func TestApplyToWindowRejectsRulelessBlock(t *testing.T) {
	block := model.Block{ID: "plain", Title: "Walk", Category: model.BLOCK_CATEGORY_PHYSICAL,
		StartTime: "08:00", EndTime: "09:00"}
	if _, err := schedule.ApplyToWindow(block, "2024-01-01", 7); err == nil {
		t.Error("a block without a rule must be rejected")
	}
}
