package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrAlreadyBlocked  = errors.New("user already blocked")
	ErrSelfBlock       = errors.New("cannot block yourself")
	ErrSelfModeration  = errors.New("admins cannot moderate their own account")
	ErrPermanentBanned = errors.New("user is permanently banned")
	ErrUserBanned      = errors.New("account is banned")
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

// ModerationService owns content filtering, reports, blocks, and the ban
// state machine.
type ModerationService struct {
	db                *gorm.DB
	bannedWordRegexps []*regexp.Regexp
	urlPattern        *regexp.Regexp
	emailPattern      *regexp.Regexp
	phonePattern      *regexp.Regexp
	now               func() time.Time
}

func NewModerationService(db *gorm.DB) *ModerationService {
	ms := &ModerationService{db: db, now: time.Now}

	ms.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		if re, err := regexp.Compile(pattern); err == nil {
			ms.bannedWordRegexps = append(ms.bannedWordRegexps, re)
		}
	}
	ms.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	ms.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	ms.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)

	return ms
}

// FilterContent returns (ok, reason).
func (ms *ModerationService) FilterContent(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if ms.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if ms.emailPattern.MatchString(text) || ms.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	return true, ""
}

func (ms *ModerationService) RejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "Your post contains inappropriate language.",
		"url_not_allowed":          "URLs and web links are not allowed.",
		"contact_info_not_allowed": "Contact information is not allowed.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your post does not meet the content guidelines."
}

// --- Ban state machine ---

// RequireActive loads the user and fails if they are effectively banned.
// Expired temp bans are cleared opportunistically while we have the row.
func (s *ModerationService) RequireActive(userID uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	if banned, reason := u.EffectiveBan(now); banned {
		return nil, fmt.Errorf("%w: %s", ErrUserBanned, reason)
	}
	s.ClearExpiredTempBan(&u)
	return &u, nil
}

// ClearExpiredTempBan wipes stale temp-ban fields. Best effort: callers
// already treat the ban as lifted, this just tidies the row.
func (s *ModerationService) ClearExpiredTempBan(u *models.User) {
	if u.TempBanUntil == nil || u.TempBanUntil.After(s.now()) {
		return
	}
	err := s.db.Model(u).Updates(map[string]interface{}{
		"temp_ban_until":  nil,
		"temp_ban_reason": "",
	}).Error
	if err == nil {
		u.TempBanUntil = nil
		u.TempBanReason = ""
	}
}

// Ban applies a permanent ban. Admin-only; self-targeting rejected.
func (s *ModerationService) Ban(adminID, targetID uuid.UUID, reason string) error {
	if adminID == targetID {
		return ErrSelfModeration
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", targetID).Updates(map[string]interface{}{
			"permanent_ban":        true,
			"permanent_ban_reason": reason,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: targetID,
			Type:        models.NotifyBan,
			Message:     "Your account has been banned: " + reason,
		})
	})
}

// Unban lifts a permanent ban.
func (s *ModerationService) Unban(adminID, targetID uuid.UUID) error {
	if adminID == targetID {
		return ErrSelfModeration
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", targetID).Updates(map[string]interface{}{
			"permanent_ban":        false,
			"permanent_ban_reason": "",
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: targetID,
			Type:        models.NotifyUnban,
			Message:     "Your account ban has been lifted.",
		})
	})
}

// TempBan applies a temporary ban until the given time. A permanent ban
// supersedes temporary state: the operation is rejected for permanently
// banned targets.
func (s *ModerationService) TempBan(adminID, targetID uuid.UUID, until time.Time, reason string) error {
	if adminID == targetID {
		return ErrSelfModeration
	}
	if !until.After(s.now()) {
		return errors.New("ban expiry must be in the future")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if target.PermanentBan {
			return ErrPermanentBanned
		}
		if err := tx.Model(&target).Updates(map[string]interface{}{
			"temp_ban_until":  until,
			"temp_ban_reason": reason,
		}).Error; err != nil {
			return err
		}
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: targetID,
			Type:        models.NotifyBan,
			Message:     fmt.Sprintf("You are banned until %s: %s", until.UTC().Format(time.RFC3339), reason),
		})
	})
}

// LiftTempBan clears a temporary ban early. Rejected for permanently
// banned targets for the same reason as TempBan.
func (s *ModerationService) LiftTempBan(adminID, targetID uuid.UUID) error {
	if adminID == targetID {
		return ErrSelfModeration
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if target.PermanentBan {
			return ErrPermanentBanned
		}
		if err := tx.Model(&target).Updates(map[string]interface{}{
			"temp_ban_until":  nil,
			"temp_ban_reason": "",
		}).Error; err != nil {
			return err
		}
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: targetID,
			Type:        models.NotifyUnban,
			Message:     "Your temporary ban has been lifted.",
		})
	})
}

// --- Reports ---

func (s *ModerationService) CreateReport(reporterID uuid.UUID, contentType, contentID, reason string) (*models.Report, error) {
	validTypes := map[string]bool{"user": true, "confession": true, "comment": true, "chat": true}
	if !validTypes[contentType] {
		return nil, errors.New("invalid content_type: must be user, confession, comment, or chat")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.New("reason is required")
	}

	report := models.Report{
		ID:          uuid.New(),
		ReporterID:  reporterID,
		ContentType: contentType,
		ContentID:   contentID,
		Reason:      reason,
		Status:      "pending",
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

func (s *ModerationService) ListReports(status string, limit, offset int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query.Count(&total)

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ModerationService) ActionReport(reportID uuid.UUID, status, adminNote string) error {
	validStatuses := map[string]bool{"reviewed": true, "actioned": true, "dismissed": true}
	if !validStatuses[status] {
		return errors.New("invalid status: must be reviewed, actioned, or dismissed")
	}

	result := s.db.Model(&models.Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     status,
			"admin_note": adminNote,
		})
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return result.Error
}

// --- Blocks ---

func (s *ModerationService) BlockUser(blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	var existing models.Block
	if err := s.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error; err == nil {
		return ErrAlreadyBlocked
	}

	block := models.Block{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
	}
	return s.db.Create(&block).Error
}

func (s *ModerationService) UnblockUser(blockerID, blockedID uuid.UUID) error {
	return s.db.
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

func (s *ModerationService) BlockedIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []models.Block
	if err := s.db.Where("blocker_id = ?", userID).Find(&blocks).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockedID
	}
	return ids, nil
}
