package services

import (
	"fmt"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// NotificationService appends to per-user inboxes and keeps the unread
// counter honest. The counter is adjusted by exactly the number of rows
// actually flipped, never by request size, so stale clients can't drive
// it negative.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Create appends a notification. No-op when the recipient is the actor:
// users are never notified about their own activity.
func (s *NotificationService) Create(recipientID uuid.UUID, actorID *uuid.UUID, ntype, link, message string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreateTx(tx, recipientID, actorID, ntype, link, message)
	})
}

// CreateTx is Create on an existing transaction handle.
func (s *NotificationService) CreateTx(tx *gorm.DB, recipientID uuid.UUID, actorID *uuid.UUID, ntype, link, message string) error {
	if actorID != nil && *actorID == recipientID {
		return nil
	}

	n := models.Notification{
		ID:        uuid.New(),
		UserID:    recipientID,
		Type:      ntype,
		ActorID:   actorID,
		Link:      link,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", recipientID).
		UpdateColumn("unread_notifications", gorm.Expr("unread_notifications + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notify %s: %w", recipientID, ErrUserNotFound)
	}
	return nil
}

// CreateSystemTx writes a notification with no actor (badge unlocks, ban
// transitions). System notifications may address the user themselves.
func (s *NotificationService) CreateSystemTx(tx *gorm.DB, recipientID uuid.UUID, ntype, link, message string) error {
	return s.CreateTx(tx, recipientID, nil, ntype, link, message)
}

// MarkRead flips one notification and decrements the unread counter only
// if the row was previously unread.
func (s *NotificationService) MarkRead(userID, notificationID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND user_id = ? AND read = ?", notificationID, userID, false).
			UpdateColumn("read", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already read, or not theirs
		}
		return decrementUnread(tx, userID, 1)
	})
}

// MarkAllRead flips every unread notification and decrements by the exact
// number flipped.
func (s *NotificationService) MarkAllRead(userID uuid.UUID) (int64, error) {
	var flipped int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			UpdateColumn("read", true)
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected
		if flipped == 0 {
			return nil
		}
		return decrementUnread(tx, userID, flipped)
	})
	return flipped, err
}

// decrementUnread clamps at zero to tolerate historical drift.
func decrementUnread(tx *gorm.DB, userID uuid.UUID, by int64) error {
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("unread_notifications",
			gorm.Expr("CASE WHEN unread_notifications > ? THEN unread_notifications - ? ELSE 0 END", by, by)).
		Error
}

// List returns the most recent notifications, newest first.
func (s *NotificationService) List(userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var items []models.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// --- Read-time grouping ---

// NotificationView is what the client renders: either a single stored
// notification or a collapsed summary of several.
type NotificationView struct {
	Notification *models.Notification `json:"notification,omitempty"`
	Grouped      bool                 `json:"grouped"`
	Type         string               `json:"type,omitempty"`
	Link         string               `json:"link,omitempty"`
	Count        int                  `json:"count,omitempty"`
	LatestAt     time.Time            `json:"latest_at,omitempty"`
}

const groupThreshold = 3

var groupableTypes = map[string]bool{
	models.NotifyReaction: true,
	models.NotifyReply:    true,
}

// GroupForDisplay collapses runs of >= groupThreshold unread notifications
// of a groupable type sharing the same link into one summary item. Pure
// view transform: stored rows are never touched.
func GroupForDisplay(items []models.Notification) []NotificationView {
	type key struct{ Type, Link string }

	counts := lo.CountValuesBy(
		lo.Filter(items, func(n models.Notification, _ int) bool {
			return !n.Read && groupableTypes[n.Type]
		}),
		func(n models.Notification) key { return key{n.Type, n.Link} },
	)

	views := make([]NotificationView, 0, len(items))
	emitted := make(map[key]bool)
	for i := range items {
		n := items[i]
		k := key{n.Type, n.Link}
		if !n.Read && groupableTypes[n.Type] && counts[k] >= groupThreshold {
			if emitted[k] {
				continue
			}
			emitted[k] = true
			views = append(views, NotificationView{
				Grouped:  true,
				Type:     n.Type,
				Link:     n.Link,
				Count:    counts[k],
				LatestAt: n.CreatedAt,
			})
			continue
		}
		views = append(views, NotificationView{Notification: &items[i]})
	}
	return views
}
