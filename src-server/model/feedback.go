package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type Feedback struct {
	bun.BaseModel `bun:"table:feedback"`

	ID        string `bun:"id,pk,notnull"`
	UserID    string `bun:"user_id,notnull"`
	Message   string `bun:"message,notnull"`
	Rating    int    `bun:"rating"`
	CreatedAt int64  `bun:"created_at,notnull"`
}

func (f *Feedback) Insert(ctx context.Context, db bun.IDB) error {
	switch {
	case f.ID == "":
		return fmt.Errorf("Feedback.Insert: id is required")
	case f.UserID == "":
		return fmt.Errorf("Feedback.Insert: user id is required")
	case f.Message == "":
		return fmt.Errorf("Feedback.Insert: message is required")
	case f.Rating < 0 || f.Rating > 5:
		return fmt.Errorf("Feedback.Insert: rating must be in [0,5], got %d", f.Rating)
	}

	if _, err := db.NewInsert().
		Model(f).
		Exec(ctx); err != nil {
		return fmt.Errorf("Feedback.Insert: %w", err)
	}
	return nil
}
