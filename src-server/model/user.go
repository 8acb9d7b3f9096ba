package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string `bun:"id,pk,notnull"`
	Email        string `bun:"email,notnull,unique"`
	Name         string `bun:"name"`
	PasswordHash []byte `bun:"password_hash,notnull"`
	CreatedAt    int64  `bun:"created_at,notnull"`
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case u.ID == "":
		return fmt.Errorf("User.Upsert: id is required")
	case u.Email == "":
		return fmt.Errorf("User.Upsert: email is required")
	case len(u.PasswordHash) == 0:
		return fmt.Errorf("User.Upsert: password hash is required")
	}

	if _, err := db.NewInsert().
		Model(u).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("password_hash = EXCLUDED.password_hash").
		Exec(ctx); err != nil {
		return fmt.Errorf("User.Upsert: %w", err)
	}
	return nil
}
