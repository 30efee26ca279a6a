package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultColor is assigned to categories created without one.
const DefaultColor = "#000000"

// Category groups a user's events under a name and a display color.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`

	ID     uuid.UUID `bun:"id,pk,notnull,type:uuid" json:"id"`
	Name   string    `bun:"name,notnull" json:"name"`
	Color  string    `bun:"color,notnull" json:"color"`
	UserID uuid.UUID `bun:"user_id,notnull,type:uuid" json:"-"`
}

// Event is a calendar entry owned by a single user.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:evt"`

	ID          uuid.UUID  `bun:"id,pk,notnull,type:uuid" json:"id"`
	Title       string     `bun:"title,notnull" json:"title"`
	Description string     `bun:"description" json:"description"`
	StartDate   time.Time  `bun:"start_date,notnull" json:"start_date"`
	EndDate     time.Time  `bun:"end_date,notnull" json:"end_date"`
	CategoryID  *uuid.UUID `bun:"category_id,type:uuid" json:"category,omitempty"`
	UserID      uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"-"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
