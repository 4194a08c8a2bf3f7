package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User holds identity plus all gamification state. Point and counter
// columns are only ever mutated through SQL expressions or row-locked
// transactions, never blind overwrites: popular users receive concurrent
// writes from many actors at once.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username      string    `gorm:"size:20;not null" json:"username"`
	UsernameLower string    `gorm:"size:20;not null;uniqueIndex" json:"-"`
	Password      string    `gorm:"not null" json:"-"`
	Role          string    `gorm:"size:20;default:'user'" json:"role"`

	// Points ledger total. May go negative transiently (dislike storms);
	// display clamping happens at read time.
	Points int `gorm:"default:0" json:"points"`

	// Denormalized rollups.
	PostCount         int `gorm:"default:0" json:"post_count"`
	CommentCount      int `gorm:"default:0" json:"comment_count"`
	ReactionsReceived int `gorm:"default:0" json:"reactions_received"`

	// Chat streak state, keyed by UTC calendar day strings ("2006-01-02").
	ChatStreak        int                                 `gorm:"default:0" json:"chat_streak"`
	LongestChatStreak int                                 `gorm:"default:0" json:"longest_chat_streak"`
	LastChatDay       string                              `gorm:"size:10" json:"last_chat_day"`
	StreakAwards      datatypes.JSONType[map[string]bool] `json:"-"` // milestone point flags, re-armed on reset

	// Raw daily message volume, independent of the streak.
	DailyMessageCount int                                 `gorm:"default:0" json:"daily_message_count"`
	LastDailyReset    string                              `gorm:"size:10" json:"-"`
	DailyAwards       datatypes.JSONType[map[string]bool] `json:"-"` // per-day milestone flags

	// Ban state. Two independent dimensions; permanent supersedes temporary.
	PermanentBan       bool       `gorm:"default:false" json:"permanent_ban"`
	PermanentBanReason string     `gorm:"size:500" json:"permanent_ban_reason,omitempty"`
	TempBanUntil       *time.Time `json:"temp_ban_until,omitempty"`
	TempBanReason      string     `gorm:"size:500" json:"temp_ban_reason,omitempty"`

	UnreadNotifications  int `gorm:"default:0" json:"unread_notifications"`
	UnreadFriendRequests int `gorm:"default:0" json:"unread_friend_requests"`

	// Avatar customization.
	AvatarURL      string                      `gorm:"type:text" json:"avatar_url"`
	AvatarFrame    string                      `gorm:"size:40;default:'none'" json:"avatar_frame"`
	AvatarFlair    string                      `gorm:"size:40;default:'none'" json:"avatar_flair"`
	UnlockedFrames datatypes.JSONSlice[string] `json:"unlocked_frames"`
	UnlockedFlairs datatypes.JSONSlice[string] `json:"unlocked_flairs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login"`

	Badges []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`
}

// EffectiveBan is the single place ban status is derived from profile
// state. Temporary bans expire lazily: nothing sweeps them, callers just
// compare the stored expiry against now.
func (u *User) EffectiveBan(now time.Time) (bool, string) {
	if u.PermanentBan {
		return true, u.PermanentBanReason
	}
	if u.TempBanUntil != nil && u.TempBanUntil.After(now) {
		return true, u.TempBanReason
	}
	return false, ""
}

// DisplayPoints floors the ledger total at zero for presentation.
func (u *User) DisplayPoints() int {
	if u.Points < 0 {
		return 0
	}
	return u.Points
}
