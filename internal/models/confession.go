package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reaction types. Only like and dislike carry point weight.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
	ReactionLaugh   = "laugh"
	ReactionShock   = "shock"
	ReactionHeart   = "heart"
)

var ReactionTypes = []string{ReactionLike, ReactionDislike, ReactionLaugh, ReactionShock, ReactionHeart}

// Confession is a user-authored post. Author display fields are joined at
// read time from the users table; nothing is snapshotted onto the row.
//
// ReactionSummary must always equal the per-type count of Reaction rows
// for this confession. It is maintained by applying the delta inside the
// same transaction that mutates the rows, never recomputed from scratch.
type Confession struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`

	Title    string                      `gorm:"size:100" json:"title,omitempty"`
	Content  string                      `gorm:"type:text;not null" json:"content"`
	ImageURL string                      `gorm:"type:text" json:"image_url,omitempty"`
	Tags     datatypes.JSONSlice[string] `json:"tags"`

	ReactionSummary datatypes.JSONType[map[string]int] `json:"reaction_summary"`
	ReactionCount   int                                `gorm:"default:0" json:"reaction_count"`
	CommentCount    int                                `gorm:"default:0" json:"comment_count"`

	// One-shot trending milestones, used to gate point/badge awards.
	ReachedTopFive   bool       `gorm:"default:false" json:"reached_top_five"`
	ReachedSupernova bool       `gorm:"default:false" json:"reached_supernova"`
	FirstSupernovaAt *time.Time `json:"first_supernova_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Reaction is at most one row per (confession, user); the unique index
// enforces the invariant.
type Reaction struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConfessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_confession_user" json:"confession_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_confession_user" json:"user_id"`
	Type         string    `gorm:"size:10;not null" json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment carries an optional parent pointer; reply trees of arbitrary
// depth are reconstructed by walking parents client-side. Comments are
// never edited or deleted.
type Comment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConfessionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"confession_id"`
	AuthorID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time  `json:"created_at"`
}
