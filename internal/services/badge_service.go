package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/b4nter/banter-backend/internal/metrics"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUnknownBadge = errors.New("unknown badge")

// BadgeService grants one-time trophies. Grants are idempotent (the
// unique index absorbs repeats) and permanent: nothing here revokes.
type BadgeService struct {
	db     *gorm.DB
	points *PointsService
	notify *NotificationService
}

func NewBadgeService(db *gorm.DB, points *PointsService, notify *NotificationService) *BadgeService {
	return &BadgeService{db: db, points: points, notify: notify}
}

// EnsureAwarded grants badgeID to the user if absent. Returns true only
// on the first grant.
func (s *BadgeService) EnsureAwarded(userID uuid.UUID, badgeID string) (bool, error) {
	var granted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		granted, err = s.EnsureAwardedTx(tx, userID, badgeID)
		return err
	})
	return granted, err
}

// EnsureAwardedTx is EnsureAwarded on an existing transaction. On first
// grant it applies the unlock bonus and writes the self notification in
// the same transaction, so the trophy, its points, and its toast commit
// together.
func (s *BadgeService) EnsureAwardedTx(tx *gorm.DB, userID uuid.UUID, badgeID string) (bool, error) {
	def, ok := models.Badges[badgeID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownBadge, badgeID)
	}

	row := models.UserBadge{
		ID:         uuid.New(),
		UserID:     userID,
		BadgeID:    badgeID,
		UnlockedAt: time.Now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("grant badge: %w", err)
	}

	if def.Points > 0 {
		if err := s.points.AwardTx(tx, userID, def.Points, "badge:"+badgeID); err != nil {
			return false, err
		}
	}
	if err := s.notify.CreateSystemTx(tx, userID, models.NotifyBadge, "/badges/"+badgeID, "Badge unlocked: "+def.Name); err != nil {
		return false, err
	}

	metrics.BadgesGranted.Inc()
	return true, nil
}

// BadgesOf returns the user's badge ids as a set.
func (s *BadgeService) BadgesOf(userID uuid.UUID) (map[string]bool, error) {
	var rows []models.UserBadge
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.BadgeID] = true
	}
	return set, nil
}
