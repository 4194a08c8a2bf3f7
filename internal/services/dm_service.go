package services

import (
	"errors"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	ErrDMNotFriends    = errors.New("direct messages require friendship")
	ErrRoomNotFound    = errors.New("dm room not found")
	ErrNotParticipant  = errors.New("not a participant of this room")
	ErrDMBlocked       = errors.New("messaging is blocked between these users")
	ErrEmptyDMMessage  = errors.New("message must not be empty")
	maxDMMessageLength = 1000
)

const dmPreviewLength = 200

// DMService handles one-to-one messaging between friends. Rooms are
// created lazily on first send; their id is deterministic so the same
// pair always lands in the same room.
type DMService struct {
	db         *gorm.DB
	friends    *FriendService
	moderation *ModerationService
	now        func() time.Time
}

func NewDMService(db *gorm.DB, friends *FriendService, moderation *ModerationService) *DMService {
	return &DMService{db: db, friends: friends, moderation: moderation, now: time.Now}
}

// SendMessage delivers a message to the peer. The sender must be active,
// the pair must be friends, and neither side may have blocked the other.
func (s *DMService) SendMessage(senderID, peerID uuid.UUID, content string) (*models.DMMessage, error) {
	if content == "" {
		return nil, ErrEmptyDMMessage
	}
	if len(content) > maxDMMessageLength {
		return nil, errors.New("message too long")
	}
	if _, err := s.moderation.RequireActive(senderID); err != nil {
		return nil, err
	}
	if ok, reason := s.moderation.FilterContent(content); !ok {
		return nil, errors.New(s.moderation.RejectionMessage(reason))
	}

	are, err := s.friends.AreFriends(senderID, peerID)
	if err != nil {
		return nil, err
	}
	if !are {
		return nil, ErrDMNotFriends
	}
	blocked, err := s.eitherBlocked(senderID, peerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrDMBlocked
	}

	roomID := models.DMRoomID(senderID, peerID)
	now := s.now()
	preview := content
	if len(preview) > dmPreviewLength {
		preview = preview[:dmPreviewLength]
	}

	message := models.DMMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var room models.DMRoom
		err := tx.First(&room, "id = ?", roomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a, b := models.OrderPair(senderID, peerID)
			room = models.DMRoom{ID: roomID, UserAID: a, UserBID: b}
			if err := tx.Create(&room).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		unreadCol := "unread_b"
		if peerID == room.UserAID {
			unreadCol = "unread_a"
		}
		if err := tx.Model(&models.DMRoom{}).Where("id = ?", roomID).Updates(map[string]interface{}{
			"last_message":    preview,
			"last_sender_id":  senderID,
			"last_message_at": now,
			unreadCol:         gorm.Expr(unreadCol + " + 1"),
		}).Error; err != nil {
			return err
		}

		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: peerID,
			ActorID:     &senderID,
			Type:        models.NotifyDM,
			Link:        "/dm/" + roomID,
			Message:     "sent you a message",
		})
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRoomRead zeroes the caller's unread counter for the room.
func (s *DMService) MarkRoomRead(userID uuid.UUID, roomID string) error {
	room, err := s.room(userID, roomID)
	if err != nil {
		return err
	}
	col := "unread_a"
	if userID == room.UserBID {
		col = "unread_b"
	}
	return s.db.Model(&models.DMRoom{}).Where("id = ?", roomID).
		UpdateColumn(col, 0).Error
}

// RoomEntry is a DM room shaped for the inbox list.
type RoomEntry struct {
	RoomID        string     `json:"room_id"`
	PeerID        uuid.UUID  `json:"peer_id"`
	PeerUsername  string     `json:"peer_username"`
	PeerAvatar    string     `json:"peer_avatar"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Unread        int        `json:"unread"`
}

// ListRooms returns the caller's rooms, most recent activity first.
func (s *DMService) ListRooms(userID uuid.UUID) ([]RoomEntry, error) {
	var rooms []models.DMRoom
	if err := s.db.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return []RoomEntry{}, nil
	}

	peerIDs := lo.Map(rooms, func(r models.DMRoom, _ int) uuid.UUID { return r.PeerOf(userID) })
	var peers []models.User
	if err := s.db.Where("id IN ?", peerIDs).Find(&peers).Error; err != nil {
		return nil, err
	}
	byID := lo.KeyBy(peers, func(u models.User) uuid.UUID { return u.ID })

	entries := lo.Map(rooms, func(r models.DMRoom, _ int) RoomEntry {
		peer := byID[r.PeerOf(userID)]
		return RoomEntry{
			RoomID:        r.ID,
			PeerID:        peer.ID,
			PeerUsername:  peer.Username,
			PeerAvatar:    peer.AvatarURL,
			LastMessage:   r.LastMessage,
			LastMessageAt: r.LastMessageAt,
			Unread:        r.UnreadFor(userID),
		}
	})
	return entries, nil
}

// ListMessages pages through a room's history, newest page first but each
// page in chronological order.
func (s *DMService) ListMessages(userID uuid.UUID, roomID string, page, limit int) ([]models.DMMessage, error) {
	if _, err := s.room(userID, roomID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	var messages []models.DMMessage
	if err := s.db.Where("room_id = ?", roomID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	lo.Reverse(messages)
	return messages, nil
}

func (s *DMService) room(userID uuid.UUID, roomID string) (*models.DMRoom, error) {
	var room models.DMRoom
	if err := s.db.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if userID != room.UserAID && userID != room.UserBID {
		return nil, ErrNotParticipant
	}
	return &room, nil
}

func (s *DMService) eitherBlocked(a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
