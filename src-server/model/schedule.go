package model

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"lifetrack/src-server/recurrence"

	"github.com/uptrace/bun"
)

type BlockCategory string

const (
	BLOCK_CATEGORY_PHYSICAL  BlockCategory = "physical"
	BLOCK_CATEGORY_MENTAL    BlockCategory = "mental"
	BLOCK_CATEGORY_FINANCIAL BlockCategory = "financial"
	BLOCK_CATEGORY_SOCIAL    BlockCategory = "social"
	BLOCK_CATEGORY_PERSONAL  BlockCategory = "personal"
)

func (bc BlockCategory) Valid() bool {
	switch bc {
	case BLOCK_CATEGORY_PHYSICAL,
		BLOCK_CATEGORY_MENTAL,
		BLOCK_CATEGORY_FINANCIAL,
		BLOCK_CATEGORY_SOCIAL,
		BLOCK_CATEGORY_PERSONAL:
		return true
	}
	return false
}

// Block is one time block inside a day's schedule document. An origin block
// carries Recurring plus the rule; generated instances carry only the
// recurrence ID and a date-suffixed copy of the origin's ID.
type Block struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Category  BlockCategory `json:"category"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Completed bool          `json:"completed"`
	GoalID    string        `json:"goalId,omitempty"`

	Recurring      bool             `json:"recurring,omitempty"`
	RecurrenceRule *recurrence.Rule `json:"recurrenceRule,omitempty"`
	RecurrenceID   string           `json:"recurrenceId,omitempty"`
	OriginalDate   string           `json:"originalDate,omitempty"`
}

// Instantiate derives the instance of a recurring origin block for one
// occurrence date. The rule body stays on the origin only, and completion
// state never carries over; everything else, the recurring flag included, is
// copied as-is.
func (b Block) Instantiate(date string) Block {
	instance := b
	instance.ID = b.ID + "-" + date
	instance.OriginalDate = date
	instance.Completed = false
	instance.RecurrenceRule = nil
	return instance
}

// BlockList stores a document's blocks as one JSON text column.
type BlockList []Block

var _ driver.Valuer = (BlockList)(nil)

func (bl BlockList) Value() (driver.Value, error) {
	if bl == nil {
		bl = BlockList{}
	}
	raw, err := json.Marshal(bl)
	if err != nil {
		return nil, fmt.Errorf("BlockList.Value: %w", err)
	}
	return string(raw), nil
}

func (bl *BlockList) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*bl = BlockList{}
		return nil
	case string:
		return json.Unmarshal([]byte(src), bl)
	case []byte:
		return json.Unmarshal(src, bl)
	default:
		return fmt.Errorf("BlockList.Scan: unsupported type %T", src)
	}
}

// Schedule is one user's plan for one calendar date. The pair (user_id, date)
// is unique; upserting a date replaces its blocks wholesale.
type Schedule struct {
	bun.BaseModel `bun:"table:schedules"`

	ID     string    `bun:"id,pk,notnull"`
	UserID string    `bun:"user_id,notnull,unique:schedules_user_date"`
	Date   string    `bun:"date,notnull,unique:schedules_user_date"`
	Blocks BlockList `bun:"blocks,notnull,type:text"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
}

func (s *Schedule) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("Schedule.Upsert: id is required")
	case s.UserID == "":
		return fmt.Errorf("Schedule.Upsert: user id is required")
	case !recurrence.ValidDate(s.Date):
		return fmt.Errorf("Schedule.Upsert: date %q is not a YYYY-MM-DD date", s.Date)
	}
	seen := make(map[string]struct{}, len(s.Blocks))
	for _, block := range s.Blocks {
		if block.ID == "" {
			return fmt.Errorf("Schedule.Upsert: every block needs an id")
		}
		if _, ok := seen[block.ID]; ok {
			return fmt.Errorf("Schedule.Upsert: duplicate block id %q", block.ID)
		}
		seen[block.ID] = struct{}{}
	}

	if _, err := db.NewInsert().
		Model(s).
		On("CONFLICT (user_id, date) DO UPDATE").
		Set("blocks = EXCLUDED.blocks").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("Schedule.Upsert: %w", err)
	}
	return nil
}
