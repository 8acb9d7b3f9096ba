package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Session is the server-side record behind the session-secret cookie; the
// auth middleware resolves the secret to a user ID on every request.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	Secret           string `bun:"secret,pk"`
	UserID           string `bun:"user_id,notnull"`
	CreatedAtUnixUTC int64  `bun:"created_at_unix_utc,notnull"`
}

func (s *Session) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case s.Secret == "":
		return fmt.Errorf("Session.Upsert: secret is required")
	case s.UserID == "":
		return fmt.Errorf("Session.Upsert: user id is required")
	}

	if _, err := db.NewInsert().
		Model(s).
		On("CONFLICT (secret) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("created_at_unix_utc = EXCLUDED.created_at_unix_utc").
		Exec(ctx); err != nil {
		return fmt.Errorf("Session.Upsert: %w", err)
	}
	return nil
}
