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
	ErrSelfFriend       = errors.New("cannot friend yourself")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrRequestExists    = errors.New("request already pending")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotFriends       = errors.New("not friends")
	ErrNotRequestTarget = errors.New("request is not addressed to you")
)

type FriendService struct {
	db         *gorm.DB
	moderation *ModerationService
}

func NewFriendService(db *gorm.DB, moderation *ModerationService) *FriendService {
	return &FriendService{db: db, moderation: moderation}
}

// SendRequest creates (or revives) a pending edge toward target. If a
// pending request already exists in the opposite direction the two users
// clearly both want this, so it auto-accepts instead.
func (s *FriendService) SendRequest(fromID, toID uuid.UUID) (*models.FriendRequest, error) {
	if fromID == toID {
		return nil, ErrSelfFriend
	}
	if _, err := s.moderation.RequireActive(fromID); err != nil {
		return nil, err
	}

	var target models.User
	if err := s.db.First(&target, "id = ?", toID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	are, err := s.AreFriends(fromID, toID)
	if err != nil {
		return nil, err
	}
	if are {
		return nil, ErrAlreadyFriends
	}

	// Reverse pending request means mutual intent.
	var reverse models.FriendRequest
	err = s.db.Where("from_id = ? AND to_id = ? AND status = ?", toID, fromID, models.RequestPending).
		First(&reverse).Error
	if err == nil {
		if err := s.Accept(fromID, reverse.ID); err != nil {
			return nil, err
		}
		return &reverse, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var request models.FriendRequest
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.FriendRequest
		err := tx.Where("from_id = ? AND to_id = ?", fromID, toID).First(&existing).Error
		switch {
		case err == nil && existing.Status == models.RequestPending:
			return ErrRequestExists
		case err == nil:
			// Revive the declined row.
			existing.Status = models.RequestPending
			if err := tx.Model(&existing).Update("status", models.RequestPending).Error; err != nil {
				return err
			}
			request = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			request = models.FriendRequest{
				ID:     uuid.New(),
				FromID: fromID,
				ToID:   toID,
				Status: models.RequestPending,
			}
			if err := tx.Create(&request).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrRequestExists
				}
				return err
			}
		default:
			return err
		}

		// Counter moves in the same transaction as the request row, so it
		// is always ordered with the decrement on accept/decline.
		if err := tx.Model(&models.User{}).Where("id = ?", toID).
			UpdateColumn("unread_friend_requests", gorm.Expr("unread_friend_requests + 1")).Error; err != nil {
			return err
		}
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: toID,
			ActorID:     &fromID,
			Type:        models.NotifyFriendRequest,
			Link:        "/friends/requests",
			Message:     "sent you a friend request",
		})
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Accept resolves a pending request addressed to userID into a
// friendship edge. The acceptor's own pending counter goes down; the
// sender gets notified.
func (s *FriendService) Accept(userID, requestID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var request models.FriendRequest
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if request.ToID != userID {
			return ErrNotRequestTarget
		}
		if request.Status != models.RequestPending {
			return ErrRequestNotFound
		}

		a, b := models.OrderPair(request.FromID, request.ToID)
		friendship := models.Friendship{ID: uuid.New(), UserAID: a, UserBID: b}
		if err := tx.Create(&friendship).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		if err := tx.Model(&request).Update("status", models.RequestAccepted).Error; err != nil {
			return err
		}
		if err := decrementCounter(tx, userID, "unread_friend_requests", 1); err != nil {
			return err
		}
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: request.FromID,
			ActorID:     &userID,
			Type:        models.NotifyFriendAccept,
			Link:        "/friends",
			Message:     "accepted your friend request",
		})
	})
}

// Decline marks the request declined. The sender is not told.
func (s *FriendService) Decline(userID, requestID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var request models.FriendRequest
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if request.ToID != userID {
			return ErrNotRequestTarget
		}
		if request.Status != models.RequestPending {
			return ErrRequestNotFound
		}
		if err := tx.Model(&request).Update("status", models.RequestDeclined).Error; err != nil {
			return err
		}
		return decrementCounter(tx, userID, "unread_friend_requests", 1)
	})
}

// Unfriend removes the edge and resets any request rows between the pair
// so either side can re-request later.
func (s *FriendService) Unfriend(userID, otherID uuid.UUID) error {
	a, b := models.OrderPair(userID, otherID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_a_id = ? AND user_b_id = ?", a, b).Delete(&models.Friendship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFriends
		}
		return tx.Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)",
			userID, otherID, otherID, userID).
			Delete(&models.FriendRequest{}).Error
	})
}

func (s *FriendService) AreFriends(a, b uuid.UUID) (bool, error) {
	x, y := models.OrderPair(a, b)
	var count int64
	err := s.db.Model(&models.Friendship{}).
		Where("user_a_id = ? AND user_b_id = ?", x, y).
		Count(&count).Error
	return count > 0, err
}

// FriendEntry is a friend row shaped for display.
type FriendEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	Points   int       `json:"points"`
	Since    time.Time `json:"since"`
}

func (s *FriendService) Friends(userID uuid.UUID) ([]FriendEntry, error) {
	var edges []models.Friendship
	if err := s.db.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC").Find(&edges).Error; err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []FriendEntry{}, nil
	}

	since := map[uuid.UUID]time.Time{}
	peerIDs := lo.Map(edges, func(e models.Friendship, _ int) uuid.UUID {
		peer := e.UserAID
		if peer == userID {
			peer = e.UserBID
		}
		since[peer] = e.CreatedAt
		return peer
	})

	var users []models.User
	if err := s.db.Where("id IN ?", peerIDs).Find(&users).Error; err != nil {
		return nil, err
	}

	entries := lo.Map(users, func(u models.User, _ int) FriendEntry {
		return FriendEntry{
			UserID:   u.ID,
			Username: u.Username,
			Avatar:   u.AvatarURL,
			Points:   u.DisplayPoints(),
			Since:    since[u.ID],
		}
	})
	return entries, nil
}

// RequestEntry is a pending request shaped for display.
type RequestEntry struct {
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	SentAt    time.Time `json:"sent_at"`
}

// PendingRequests lists requests waiting on userID, newest first.
func (s *FriendService) PendingRequests(userID uuid.UUID) ([]RequestEntry, error) {
	var requests []models.FriendRequest
	if err := s.db.Where("to_id = ? AND status = ?", userID, models.RequestPending).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []RequestEntry{}, nil
	}

	fromIDs := lo.Map(requests, func(r models.FriendRequest, _ int) uuid.UUID { return r.FromID })
	var users []models.User
	if err := s.db.Where("id IN ?", fromIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := lo.KeyBy(users, func(u models.User) uuid.UUID { return u.ID })

	entries := lo.Map(requests, func(r models.FriendRequest, _ int) RequestEntry {
		u := byID[r.FromID]
		return RequestEntry{
			RequestID: r.ID,
			UserID:    r.FromID,
			Username:  u.Username,
			Avatar:    u.AvatarURL,
			SentAt:    r.CreatedAt,
		}
	})
	return entries, nil
}

// SentRequests lists requests the user sent that are still pending.
func (s *FriendService) SentRequests(userID uuid.UUID) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := s.db.Where("from_id = ? AND status = ?", userID, models.RequestPending).
		Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// decrementCounter lowers a user counter with a floor of zero.
func decrementCounter(tx *gorm.DB, userID uuid.UUID, column string, by int) error {
	return tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(
			"CASE WHEN "+column+" > ? THEN "+column+" - ? ELSE 0 END", by, by)).Error
}
