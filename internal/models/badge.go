package models

import (
	"time"

	"github.com/google/uuid"
)

// UserBadge is an append-only trophy row. The unique index makes grants
// idempotent; badges are never revoked even if the triggering condition
// later becomes false.
type UserBadge struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID    string    `gorm:"size:40;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// BadgeDef describes a badge in the static catalog.
type BadgeDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"` // one-time bonus on unlock
}

const (
	BadgeFirstPost       = "first_post"
	BadgeStreakStarter   = "streak_starter"
	BadgeStreakLegend    = "streak_legend"
	BadgeFastResponder   = "fast_responder"
	BadgeChatty          = "chatty"
	BadgeSocialButterfly = "social_butterfly"
	BadgeChatterbox      = "chatterbox"
	BadgeEarlyBird       = "early_bird"
	BadgeTrending        = "trending"
	BadgeSupernova       = "supernova"
)

// Milestone badges carry no points of their own: the milestone that
// grants them awards points separately, and must do so exactly once.
var Badges = map[string]BadgeDef{
	BadgeFirstPost:       {ID: BadgeFirstPost, Name: "First Confession", Description: "Posted your first confession"},
	BadgeStreakStarter:   {ID: BadgeStreakStarter, Name: "Streak Starter", Description: "Chatted three days in a row"},
	BadgeStreakLegend:    {ID: BadgeStreakLegend, Name: "Streak Legend", Description: "Chatted thirty days in a row"},
	BadgeFastResponder:   {ID: BadgeFastResponder, Name: "Fast Responder", Description: "Replied within a minute", Points: 5},
	BadgeChatty:          {ID: BadgeChatty, Name: "Chatty", Description: "Sent 5 messages in one day"},
	BadgeSocialButterfly: {ID: BadgeSocialButterfly, Name: "Social Butterfly", Description: "Sent 15 messages in one day"},
	BadgeChatterbox:      {ID: BadgeChatterbox, Name: "Chatterbox", Description: "Sent 30 messages in one day"},
	BadgeEarlyBird:       {ID: BadgeEarlyBird, Name: "Early Bird", Description: "First message of the day in global chat"},
	BadgeTrending:        {ID: BadgeTrending, Name: "Trending", Description: "A confession reached the top five", Points: 25},
	BadgeSupernova:       {ID: BadgeSupernova, Name: "Supernova", Description: "A confession went supernova", Points: 50},
}
