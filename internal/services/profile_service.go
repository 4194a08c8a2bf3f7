package services

import (
	"errors"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	ErrCosmeticLocked  = errors.New("cosmetic not unlocked")
	ErrUnknownCosmetic = errors.New("unknown cosmetic")
)

// ProfileService assembles user-facing profile views. Level, displayed
// points, and cosmetic availability are all derived at read time from the
// stored ledger total and badge rows.
type ProfileService struct {
	db     *gorm.DB
	badges *BadgeService
}

func NewProfileService(db *gorm.DB, badges *BadgeService) *ProfileService {
	return &ProfileService{db: db, badges: badges}
}

// ProfileView is the public profile shape.
type ProfileView struct {
	ID                uuid.UUID    `json:"id"`
	Username          string       `json:"username"`
	Points            int          `json:"points"`
	Level             models.Level `json:"level"`
	NextLevel         *models.Level `json:"next_level,omitempty"`
	PostCount         int          `json:"post_count"`
	CommentCount      int          `json:"comment_count"`
	ReactionsReceived int          `json:"reactions_received"`
	ChatStreak        int          `json:"chat_streak"`
	LongestChatStreak int          `json:"longest_chat_streak"`
	Badges            []BadgeView  `json:"badges"`
	AvatarURL         string       `json:"avatar_url"`
	AvatarFrame       string       `json:"avatar_frame"`
	AvatarFlair       string       `json:"avatar_flair"`
	JoinedAt          time.Time    `json:"joined_at"`
}

type BadgeView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earned_at"`
}

func (s *ProfileService) Get(userID uuid.UUID) (*ProfileView, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var earned []models.UserBadge
	if err := s.db.Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&earned).Error; err != nil {
		return nil, err
	}

	badgeViews := lo.FilterMap(earned, func(b models.UserBadge, _ int) (BadgeView, bool) {
		def, ok := models.Badges[b.BadgeID]
		if !ok {
			return BadgeView{}, false
		}
		return BadgeView{ID: b.BadgeID, Name: def.Name, EarnedAt: b.UnlockedAt}, true
	})

	display := user.DisplayPoints()
	level := models.LevelForPoints(display)
	var next *models.Level
	for i := range models.Levels {
		if models.Levels[i].Rank == level.Rank+1 {
			next = &models.Levels[i]
			break
		}
	}

	return &ProfileView{
		ID:                user.ID,
		Username:          user.Username,
		Points:            display,
		Level:             level,
		NextLevel:         next,
		PostCount:         user.PostCount,
		CommentCount:      user.CommentCount,
		ReactionsReceived: user.ReactionsReceived,
		ChatStreak:        user.ChatStreak,
		LongestChatStreak: user.LongestChatStreak,
		Badges:            badgeViews,
		AvatarURL:         user.AvatarURL,
		AvatarFrame:       user.AvatarFrame,
		AvatarFlair:       user.AvatarFlair,
		JoinedAt:          user.CreatedAt,
	}, nil
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	Points   int       `json:"points"`
	Level    string    `json:"level"`
}

// Leaderboard returns the top users by ledger points. Banned users are
// excluded; displayed points are floored as everywhere else.
func (s *ProfileService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var users []models.User
	if err := s.db.Where("permanent_ban = false").
		Order("points DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}

	entries := lo.Map(users, func(u models.User, i int) LeaderboardEntry {
		return LeaderboardEntry{
			Rank:     i + 1,
			UserID:   u.ID,
			Username: u.Username,
			Avatar:   u.AvatarURL,
			Points:   u.DisplayPoints(),
			Level:    models.LevelForPoints(u.DisplayPoints()).Name,
		}
	})
	return entries, nil
}

// CosmeticState is the avatar customization screen: every catalog item
// with its unlock status, plus what is currently equipped.
type CosmeticState struct {
	Frames        []CosmeticItem `json:"frames"`
	Flairs        []CosmeticItem `json:"flairs"`
	EquippedFrame string         `json:"equipped_frame"`
	EquippedFlair string         `json:"equipped_flair"`
}

type CosmeticItem struct {
	models.CosmeticDef
	Unlocked bool `json:"unlocked"`
}

func (s *ProfileService) Cosmetics(userID uuid.UUID) (*CosmeticState, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	badges, err := s.badges.BadgesOf(userID)
	if err != nil {
		return nil, err
	}
	rank := models.LevelForPoints(user.DisplayPoints()).Rank

	annotate := func(defs []models.CosmeticDef) []CosmeticItem {
		return lo.Map(defs, func(d models.CosmeticDef, _ int) CosmeticItem {
			return CosmeticItem{CosmeticDef: d, Unlocked: d.Unlocked(rank, badges)}
		})
	}

	return &CosmeticState{
		Frames:        annotate(models.AvatarFrames),
		Flairs:        annotate(models.AvatarFlairs),
		EquippedFrame: user.AvatarFrame,
		EquippedFlair: user.AvatarFlair,
	}, nil
}

// Equip sets the user's frame and flair after re-deriving unlock status
// server-side. Unlocks are never stored as the source of truth, so a
// revoked badge would lock the item again.
func (s *ProfileService) Equip(userID uuid.UUID, frameID, flairID string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	badges, err := s.badges.BadgesOf(userID)
	if err != nil {
		return err
	}
	rank := models.LevelForPoints(user.DisplayPoints()).Rank

	frame, ok := lo.Find(models.AvatarFrames, func(d models.CosmeticDef) bool { return d.ID == frameID })
	if !ok {
		return ErrUnknownCosmetic
	}
	flair, ok := lo.Find(models.AvatarFlairs, func(d models.CosmeticDef) bool { return d.ID == flairID })
	if !ok {
		return ErrUnknownCosmetic
	}
	if !frame.Unlocked(rank, badges) || !flair.Unlocked(rank, badges) {
		return ErrCosmeticLocked
	}

	return s.db.Model(&user).Updates(map[string]interface{}{
		"avatar_frame": frameID,
		"avatar_flair": flairID,
	}).Error
}

// SetAvatarURL stores the processed avatar location.
func (s *ProfileService) SetAvatarURL(userID uuid.UUID, url string) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("avatar_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
