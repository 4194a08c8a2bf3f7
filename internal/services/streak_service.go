package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Days are UTC calendar days, deliberately: users far from UTC get an
// imprecise boundary, and that is the accepted trade for one global
// definition of "today".
const dayFormat = "2006-01-02"

type streakMilestone struct {
	Days   int
	Points int
	Badge  string // empty: points only
}

// Point flags re-arm on streak reset so a new run can re-earn them;
// badges are one-time-ever.
var streakMilestones = []streakMilestone{
	{Days: 3, Points: 10, Badge: models.BadgeStreakStarter},
	{Days: 7, Points: 25},
	{Days: 30, Points: 100, Badge: models.BadgeStreakLegend},
}

type dailyMilestone struct {
	Messages int
	Points   int
	Badge    string
}

var dailyMilestones = []dailyMilestone{
	{Messages: 5, Points: 5, Badge: models.BadgeChatty},
	{Messages: 15, Points: 10, Badge: models.BadgeSocialButterfly},
	{Messages: 30, Points: 20, Badge: models.BadgeChatterbox},
}

const firstMessagePoints = 15

// StreakService maintains consecutive-day chat streaks, the independent
// raw daily message counter, and the first-message-of-the-day race.
type StreakService struct {
	db     *gorm.DB
	points *PointsService
	badges *BadgeService
	now    func() time.Time
}

func NewStreakService(db *gorm.DB, points *PointsService, badges *BadgeService) *StreakService {
	return &StreakService{db: db, points: points, badges: badges, now: time.Now}
}

func utcDay(t time.Time) string {
	return t.UTC().Format(dayFormat)
}

// TouchChatStreak advances the streak state machine for a qualifying
// action. Same-day repeats are no-ops; a one-day gap increments; anything
// else resets to 1 and re-arms the milestone point flags.
func (s *StreakService) TouchChatStreak(userID uuid.UUID) error {
	now := s.now()
	today := utcDay(now)
	yesterday := utcDay(now.AddDate(0, 0, -1))

	return s.db.Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := database.Locked(tx).First(&u, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("touch streak for %s: %w", userID, ErrUserNotFound)
			}
			return err
		}

		awards := u.StreakAwards.Data()
		if awards == nil {
			awards = map[string]bool{}
		}

		switch u.LastChatDay {
		case today:
			return nil
		case yesterday:
			u.ChatStreak++
		default:
			u.ChatStreak = 1
			awards = map[string]bool{}
		}

		if u.ChatStreak > u.LongestChatStreak {
			u.LongestChatStreak = u.ChatStreak
		}
		u.LastChatDay = today

		for _, m := range streakMilestones {
			flag := strconv.Itoa(m.Days)
			if u.ChatStreak < m.Days || awards[flag] {
				continue
			}
			awards[flag] = true
			if err := s.points.AwardTx(tx, userID, m.Points, fmt.Sprintf("streak:%d", m.Days)); err != nil {
				return err
			}
			if m.Badge != "" {
				if _, err := s.badges.EnsureAwardedTx(tx, userID, m.Badge); err != nil {
					return err
				}
			}
		}

		return tx.Model(&u).Select("chat_streak", "longest_chat_streak", "last_chat_day", "streak_awards").
			Updates(map[string]interface{}{
				"chat_streak":         u.ChatStreak,
				"longest_chat_streak": u.LongestChatStreak,
				"last_chat_day":       u.LastChatDay,
				"streak_awards":       datatypes.NewJSONType(awards),
			}).Error
	})
}

// BumpDailyMessages increments the raw daily message counter, resetting
// it when the stored day differs from today, and grants each volume
// milestone at most once per UTC day.
func (s *StreakService) BumpDailyMessages(userID uuid.UUID) error {
	today := utcDay(s.now())

	return s.db.Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := database.Locked(tx).First(&u, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("bump daily messages for %s: %w", userID, ErrUserNotFound)
			}
			return err
		}

		awards := u.DailyAwards.Data()
		if u.LastDailyReset != today {
			u.DailyMessageCount = 0
			u.LastDailyReset = today
			awards = map[string]bool{}
		}
		if awards == nil {
			awards = map[string]bool{}
		}
		u.DailyMessageCount++

		for _, m := range dailyMilestones {
			flag := strconv.Itoa(m.Messages)
			if u.DailyMessageCount < m.Messages || awards[flag] {
				continue
			}
			awards[flag] = true
			if err := s.points.AwardTx(tx, userID, m.Points, fmt.Sprintf("daily:%d", m.Messages)); err != nil {
				return err
			}
			if _, err := s.badges.EnsureAwardedTx(tx, userID, m.Badge); err != nil {
				return err
			}
		}

		return tx.Model(&u).Select("daily_message_count", "last_daily_reset", "daily_awards").
			Updates(map[string]interface{}{
				"daily_message_count": u.DailyMessageCount,
				"last_daily_reset":    u.LastDailyReset,
				"daily_awards":        datatypes.NewJSONType(awards),
			}).Error
	})
}

// ClaimFirstMessage resolves the global first-message-of-the-day race.
// The day row's primary key is the compare-and-swap: exactly one insert
// commits, every concurrent attempt sees a duplicate key and loses.
func (s *StreakService) ClaimFirstMessage(userID uuid.UUID) (bool, error) {
	award := models.DailyAward{
		Day:                utcDay(s.now()),
		FirstMessageUserID: userID,
		CreatedAt:          s.now(),
	}
	if err := s.db.Create(&award).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("claim first message: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.points.AwardTx(tx, userID, firstMessagePoints, "first_message"); err != nil {
			return err
		}
		_, err := s.badges.EnsureAwardedTx(tx, userID, models.BadgeEarlyBird)
		return err
	})
	return true, err
}
