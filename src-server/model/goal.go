package model

import (
	"context"
	"fmt"
	"lifetrack/src-server/recurrence"
	"time"

	"github.com/uptrace/bun"
)

// Goal is the tracked objective a schedule block may reference via its goalId.
type Goal struct {
	bun.BaseModel `bun:"table:goals"`

	ID          string        `bun:"id,pk,notnull"`
	UserID      string        `bun:"user_id,notnull"`
	Title       string        `bun:"title,notnull"`
	Description string        `bun:"description"`
	Category    BlockCategory `bun:"category,notnull,type:varchar"`

	TargetValue  float64 `bun:"target_value"`
	CurrentValue float64 `bun:"current_value"`
	Unit         string  `bun:"unit"`
	Completed    bool    `bun:"completed"`

	// consecutive-day progress streak
	Streak           int    `bun:"streak"`
	LastProgressDate string `bun:"last_progress_date"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
}

func (g *Goal) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case g.ID == "":
		return fmt.Errorf("Goal.Upsert: id is required")
	case g.UserID == "":
		return fmt.Errorf("Goal.Upsert: user id is required")
	case g.Title == "":
		return fmt.Errorf("Goal.Upsert: title is required")
	case !g.Category.Valid():
		return fmt.Errorf("Goal.Upsert: unknown category %q", g.Category)
	}

	if _, err := db.NewInsert().
		Model(g).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("category = EXCLUDED.category").
		Set("target_value = EXCLUDED.target_value").
		Set("current_value = EXCLUDED.current_value").
		Set("unit = EXCLUDED.unit").
		Set("completed = EXCLUDED.completed").
		Set("streak = EXCLUDED.streak").
		Set("last_progress_date = EXCLUDED.last_progress_date").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("Goal.Upsert: %w", err)
	}
	return nil
}

// ApplyProgress records a progress reading for the given calendar date and
// updates the streak: same day keeps it, the day after extends it, any gap
// resets it to one.
func (g *Goal) ApplyProgress(value float64, date string) error {
	day, err := recurrence.ParseDate(date)
	if err != nil {
		return fmt.Errorf("Goal.ApplyProgress: %w", err)
	}

	g.CurrentValue = value
	if g.TargetValue > 0 {
		g.Completed = g.CurrentValue >= g.TargetValue
	}

	switch g.LastProgressDate {
	case date:
		// second reading on the same day, streak unchanged
	case "":
		g.Streak = 1
	default:
		last, err := recurrence.ParseDate(g.LastProgressDate)
		if err != nil {
			g.Streak = 1
			break
		}
		if last.AddDate(0, 0, 1).Equal(day) {
			g.Streak++
		} else {
			g.Streak = 1
		}
	}
	g.LastProgressDate = date
	g.UpdatedAt = time.Now().Unix()
	return nil
}
