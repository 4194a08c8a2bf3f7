package models

import (
	"time"

	"github.com/google/uuid"
)

// DMRoom is identified deterministically by the sorted concatenation of
// the two participant ids, so both sides resolve the same room without a
// lookup. UserAID < UserBID always holds.
type DMRoom struct {
	ID      string    `gorm:"size:73;primaryKey" json:"id"`
	UserAID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_a_id"`
	UserBID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_b_id"`

	LastMessage   string     `gorm:"size:200" json:"last_message"`
	LastSenderID  *uuid.UUID `gorm:"type:uuid" json:"last_sender_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	UnreadA int `gorm:"default:0" json:"unread_a"`
	UnreadB int `gorm:"default:0" json:"unread_b"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DMRoomID builds the deterministic room id for a pair of users.
func DMRoomID(a, b uuid.UUID) string {
	lo, hi := OrderPair(a, b)
	return lo.String() + "_" + hi.String()
}

// UnreadFor returns the unread counter belonging to the given participant.
func (r *DMRoom) UnreadFor(userID uuid.UUID) int {
	if userID == r.UserAID {
		return r.UnreadA
	}
	return r.UnreadB
}

// PeerOf returns the other participant.
func (r *DMRoom) PeerOf(userID uuid.UUID) uuid.UUID {
	if userID == r.UserAID {
		return r.UserBID
	}
	return r.UserAID
}

type DMMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    string    `gorm:"size:73;not null;index" json:"room_id"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
