package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/metrics"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrConfessionNotFound = errors.New("confession not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrInvalidReaction    = errors.New("invalid reaction type")
)

// Point values.
const (
	pointsPerPost    = 10
	pointsPerComment = 3
	pointsPerLike    = 5
	pointsPerDislike = -5

	maxTags       = 5
	maxTagLen     = 20
	maxContentLen = 1000
	minContentLen = 10
	maxCommentLen = 500

	// Trending milestones. The top-five check needs a reaction floor or a
	// near-empty board would put every new post "in the top five".
	supernovaReactionCount = 25
	topFiveWindow          = 5
	topFiveMinReactions    = 10

	fastReplyWindow = 60 * time.Second
)

// reactionPoints is the score a reaction contributes to the post author.
func reactionPoints(rtype string) int {
	switch rtype {
	case models.ReactionLike:
		return pointsPerLike
	case models.ReactionDislike:
		return pointsPerDislike
	default:
		return 0
	}
}

// ConfessionService handles posts, reactions, and comments. Primary
// mutations run in a single transaction; effects on other users (author
// points, counters, notifications) ride the outbox written in that same
// transaction.
type ConfessionService struct {
	db         *gorm.DB
	points     *PointsService
	badges     *BadgeService
	moderation *ModerationService
	now        func() time.Time
}

func NewConfessionService(db *gorm.DB, points *PointsService, badges *BadgeService, moderation *ModerationService) *ConfessionService {
	return &ConfessionService{db: db, points: points, badges: badges, moderation: moderation, now: time.Now}
}

func (s *ConfessionService) Create(authorID uuid.UUID, title, content, imageURL string, tags []string) (*models.Confession, error) {
	if len(content) < minContentLen {
		return nil, fmt.Errorf("confession must be at least %d characters", minContentLen)
	}
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("confession must be under %d characters", maxContentLen)
	}
	if len(tags) > maxTags {
		return nil, fmt.Errorf("at most %d tags allowed", maxTags)
	}
	for _, t := range tags {
		if t == "" || len(t) > maxTagLen {
			return nil, fmt.Errorf("tags must be 1-%d characters", maxTagLen)
		}
	}
	if ok, reason := s.moderation.FilterContent(content); !ok {
		return nil, errors.New(s.moderation.RejectionMessage(reason))
	}
	if _, err := s.moderation.RequireActive(authorID); err != nil {
		return nil, err
	}

	confession := models.Confession{
		ID:              uuid.New(),
		AuthorID:        authorID,
		Title:           title,
		Content:         content,
		ImageURL:        imageURL,
		Tags:            tags,
		ReactionSummary: datatypes.NewJSONType(map[string]int{}),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&confession).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", authorID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
			return err
		}
		if err := s.points.AwardTx(tx, authorID, pointsPerPost, "post"); err != nil {
			return err
		}
		_, err := s.badges.EnsureAwardedTx(tx, authorID, models.BadgeFirstPost)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create confession: %w", err)
	}

	metrics.ConfessionsCreated.Inc()
	return &confession, nil
}

// ReactResult reports what the toggle did.
type ReactResult struct {
	Outcome string         `json:"outcome"` // added, removed, switched
	Summary map[string]int `json:"summary"`
}

// React toggles the caller's reaction on a post. At most one reaction per
// (user, post): same type toggles off, a different type replaces. The
// summary map is adjusted by the delta inside the same transaction and
// floor-clamped; author-side effects ride the outbox.
func (s *ConfessionService) React(userID, confessionID uuid.UUID, rtype string) (*ReactResult, error) {
	valid := false
	for _, t := range models.ReactionTypes {
		if t == rtype {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidReaction
	}
	if _, err := s.moderation.RequireActive(userID); err != nil {
		return nil, err
	}

	var result ReactResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var confession models.Confession
		if err := database.Locked(tx).First(&confession, "id = ?", confessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConfessionNotFound
			}
			return err
		}

		summary := confession.ReactionSummary.Data()
		if summary == nil {
			summary = map[string]int{}
		}

		var existing models.Reaction
		err := tx.Where("confession_id = ? AND user_id = ?", confessionID, userID).First(&existing).Error
		hasExisting := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		prevType := ""
		if hasExisting {
			prevType = existing.Type
		}

		rowDelta := 0
		switch {
		case hasExisting && existing.Type == rtype:
			// Toggle off.
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			summary[rtype]--
			rowDelta = -1
			result.Outcome = "removed"

		case hasExisting:
			// Switch type.
			if err := tx.Model(&existing).Update("type", rtype).Error; err != nil {
				return err
			}
			summary[prevType]--
			summary[rtype]++
			result.Outcome = "switched"

		default:
			reaction := models.Reaction{
				ID:           uuid.New(),
				ConfessionID: confessionID,
				UserID:       userID,
				Type:         rtype,
			}
			if err := tx.Create(&reaction).Error; err != nil {
				return err
			}
			summary[rtype]++
			rowDelta = 1
			result.Outcome = "added"
		}

		// Clamp against drift from historical bugs; counts never go
		// negative in a committed state.
		for k, v := range summary {
			if v < 0 {
				summary[k] = 0
			}
		}
		result.Summary = summary

		total := 0
		for _, v := range summary {
			total += v
		}
		if err := tx.Model(&confession).Updates(map[string]interface{}{
			"reaction_summary": datatypes.NewJSONType(summary),
			"reaction_count":   total,
		}).Error; err != nil {
			return err
		}

		// Author-side effects. Point delta is the difference between the
		// new and previous reaction weight, so switching like→dislike
		// moves the author by -10 and a toggle pair nets zero.
		newPts := 0
		if result.Outcome != "removed" {
			newPts = reactionPoints(rtype)
		}
		ptsDelta := newPts - reactionPoints(prevType)
		if ptsDelta != 0 && confession.AuthorID != userID {
			if err := outbox.Enqueue(tx, outbox.KindAwardPoints, outbox.AwardPointsPayload{
				UserID: confession.AuthorID,
				Delta:  ptsDelta,
				Reason: "reaction",
			}); err != nil {
				return err
			}
		}
		if rowDelta != 0 && confession.AuthorID != userID {
			if err := outbox.Enqueue(tx, outbox.KindBumpCounter, outbox.BumpCounterPayload{
				UserID: confession.AuthorID,
				Column: "reactions_received",
				Delta:  rowDelta,
			}); err != nil {
				return err
			}
		}
		if result.Outcome == "added" && confession.AuthorID != userID {
			if err := outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
				RecipientID: confession.AuthorID,
				ActorID:     &userID,
				Type:        models.NotifyReaction,
				Link:        "/confessions/" + confessionID.String(),
				Message:     "Someone reacted to your confession",
			}); err != nil {
				return err
			}
		}

		return s.checkTrendingMilestones(tx, &confession, total)
	})
	if err != nil {
		return nil, err
	}

	metrics.ReactionsToggled.WithLabelValues(result.Outcome).Inc()
	return &result, nil
}

// checkTrendingMilestones flips the one-shot trending flags and enqueues
// their awards. Flags gate the awards: once set they never re-fire.
func (s *ConfessionService) checkTrendingMilestones(tx *gorm.DB, confession *models.Confession, reactionTotal int) error {
	updates := map[string]interface{}{}

	if !confession.ReachedSupernova && reactionTotal >= supernovaReactionCount {
		now := s.now()
		updates["reached_supernova"] = true
		updates["first_supernova_at"] = &now
		if err := outbox.Enqueue(tx, outbox.KindGrantBadge, outbox.GrantBadgePayload{
			UserID:  confession.AuthorID,
			BadgeID: models.BadgeSupernova,
		}); err != nil {
			return err
		}
		if err := outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: confession.AuthorID,
			Type:        models.NotifyTrending,
			Link:        "/confessions/" + confession.ID.String(),
			Message:     "Your confession went supernova!",
		}); err != nil {
			return err
		}
	}

	if !confession.ReachedTopFive && reactionTotal >= topFiveMinReactions {
		var higher int64
		if err := tx.Model(&models.Confession{}).
			Where("reaction_count > ? AND id <> ?", reactionTotal, confession.ID).
			Count(&higher).Error; err != nil {
			return err
		}
		if higher < topFiveWindow {
			updates["reached_top_five"] = true
			if err := outbox.Enqueue(tx, outbox.KindGrantBadge, outbox.GrantBadgePayload{
				UserID:  confession.AuthorID,
				BadgeID: models.BadgeTrending,
			}); err != nil {
				return err
			}
		}
	}

	if len(updates) == 0 {
		return nil
	}
	return tx.Model(confession).Updates(updates).Error
}

// AddComment appends a comment and its follow-ups. Replies within
// fastReplyWindow of the parent earn the fast-responder badge; the reply
// notification goes to the parent comment's author, a top-level comment
// notifies the post author, and nobody is notified about their own
// action.
func (s *ConfessionService) AddComment(userID, confessionID uuid.UUID, parentID *uuid.UUID, content string) (*models.Comment, error) {
	if len(content) < 1 || len(content) > maxCommentLen {
		return nil, fmt.Errorf("comment must be 1-%d characters", maxCommentLen)
	}
	if ok, reason := s.moderation.FilterContent(content); !ok {
		return nil, errors.New(s.moderation.RejectionMessage(reason))
	}
	if _, err := s.moderation.RequireActive(userID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:           uuid.New(),
		ConfessionID: confessionID,
		AuthorID:     userID,
		ParentID:     parentID,
		Content:      content,
		CreatedAt:    s.now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var confession models.Confession
		if err := tx.First(&confession, "id = ?", confessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConfessionNotFound
			}
			return err
		}

		notifyTarget := confession.AuthorID
		fastReply := false
		if parentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, "id = ? AND confession_id = ?", *parentID, confessionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCommentNotFound
				}
				return err
			}
			notifyTarget = parent.AuthorID
			fastReply = s.now().Sub(parent.CreatedAt) <= fastReplyWindow
		}

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Confession{}).Where("id = ?", confessionID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}
		if err := s.points.AwardTx(tx, userID, pointsPerComment, "comment"); err != nil {
			return err
		}
		if fastReply {
			if _, err := s.badges.EnsureAwardedTx(tx, userID, models.BadgeFastResponder); err != nil {
				return err
			}
		}

		if notifyTarget != userID {
			ntype := models.NotifyReply
			msg := "Someone replied to your comment"
			if parentID == nil {
				msg = "Someone commented on your confession"
			}
			if err := outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
				RecipientID: notifyTarget,
				ActorID:     &userID,
				Type:        ntype,
				Link:        "/confessions/" + confessionID.String(),
				Message:     msg,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CommentsCreated.Inc()
	return &comment, nil
}

// ConfessionView is a confession with its author's current display
// fields joined in. Nothing author-related is snapshotted onto the post
// row, so renames and avatar changes show up everywhere at once.
type ConfessionView struct {
	models.Confession
	AuthorUsername string `json:"author_username"`
	AuthorAvatar   string `json:"author_avatar"`
	AuthorFrame    string `json:"author_frame"`
	AuthorFlair    string `json:"author_flair"`
}

func (s *ConfessionService) withAuthors(confessions []models.Confession) ([]ConfessionView, error) {
	if len(confessions) == 0 {
		return []ConfessionView{}, nil
	}

	authorIDs := make([]uuid.UUID, 0, len(confessions))
	seen := map[uuid.UUID]bool{}
	for _, c := range confessions {
		if !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}

	var authors []models.User
	if err := s.db.Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, err
	}
	byID := map[uuid.UUID]*models.User{}
	for i := range authors {
		byID[authors[i].ID] = &authors[i]
	}

	views := make([]ConfessionView, len(confessions))
	for i, c := range confessions {
		views[i] = ConfessionView{Confession: c}
		if a, ok := byID[c.AuthorID]; ok {
			views[i].AuthorUsername = a.Username
			views[i].AuthorAvatar = a.AvatarURL
			views[i].AuthorFrame = a.AvatarFrame
			views[i].AuthorFlair = a.AvatarFlair
		} else {
			// Author deleted their account; the post stays up.
			views[i].AuthorUsername = "[deleted]"
		}
	}
	return views, nil
}

func (s *ConfessionService) Get(confessionID uuid.UUID) (*ConfessionView, error) {
	var confession models.Confession
	if err := s.db.First(&confession, "id = ?", confessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfessionNotFound
		}
		return nil, err
	}
	views, err := s.withAuthors([]models.Confession{confession})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ConfessionService) Feed(page, limit int) ([]ConfessionView, int64, error) {
	var confessions []models.Confession
	var total int64

	offset := (page - 1) * limit

	s.db.Model(&models.Confession{}).Count(&total)

	if err := s.db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&confessions).Error; err != nil {
		return nil, 0, err
	}
	views, err := s.withAuthors(confessions)
	return views, total, err
}

// TrendingFeed orders by a recency-decayed engagement score. Postgres
// only: the score expression uses EXTRACT.
func (s *ConfessionService) TrendingFeed(page, limit int) ([]ConfessionView, int64, error) {
	var confessions []models.Confession
	var total int64

	offset := (page - 1) * limit

	if err := s.db.Model(&models.Confession{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := `
		SELECT *,
		((reaction_count * 3) + (comment_count * 2) - (EXTRACT(EPOCH FROM (NOW() - created_at)) / 3600 * 1.5)) as score
		FROM confessions
		WHERE deleted_at IS NULL
		ORDER BY score DESC
		OFFSET ? LIMIT ?
	`
	if err := s.db.Raw(query, offset, limit).Scan(&confessions).Error; err != nil {
		return nil, 0, err
	}
	views, err := s.withAuthors(confessions)
	return views, total, err
}

// CommentView joins the commenter's display fields the same way the
// feeds do.
type CommentView struct {
	models.Comment
	AuthorUsername string `json:"author_username"`
	AuthorAvatar   string `json:"author_avatar"`
}

func (s *ConfessionService) Comments(confessionID uuid.UUID, page, limit int) ([]CommentView, error) {
	var comments []models.Comment
	offset := (page - 1) * limit

	if err := s.db.Where("confession_id = ?", confessionID).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return []CommentView{}, nil
	}

	authorIDs := make([]uuid.UUID, 0, len(comments))
	seen := map[uuid.UUID]bool{}
	for _, cm := range comments {
		if !seen[cm.AuthorID] {
			seen[cm.AuthorID] = true
			authorIDs = append(authorIDs, cm.AuthorID)
		}
	}
	var authors []models.User
	if err := s.db.Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, err
	}
	byID := map[uuid.UUID]*models.User{}
	for i := range authors {
		byID[authors[i].ID] = &authors[i]
	}

	views := make([]CommentView, len(comments))
	for i, cm := range comments {
		views[i] = CommentView{Comment: cm, AuthorUsername: "[deleted]"}
		if a, ok := byID[cm.AuthorID]; ok {
			views[i].AuthorUsername = a.Username
			views[i].AuthorAvatar = a.AvatarURL
		}
	}
	return views, nil
}

func (s *ConfessionService) ByAuthor(authorID uuid.UUID, page, limit int) ([]ConfessionView, int64, error) {
	var confessions []models.Confession
	var total int64

	offset := (page - 1) * limit

	if err := s.db.Model(&models.Confession{}).Where("author_id = ?", authorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := s.db.Where("author_id = ?", authorID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&confessions).Error; err != nil {
		return nil, 0, err
	}
	views, err := s.withAuthors(confessions)
	return views, total, err
}

// AdminDelete hard-deletes a confession and its dependents. Admin is the
// only delete path.
func (s *ConfessionService) AdminDelete(confessionID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Delete(&models.Confession{}, "id = ?", confessionID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConfessionNotFound
		}
		if err := tx.Where("confession_id = ?", confessionID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Where("confession_id = ?", confessionID).Delete(&models.Comment{}).Error
	})
}

// VerifySummary recomputes a confession's summary from reaction rows and
// logs any drift. Debug aid behind an admin endpoint, not a repair job.
func (s *ConfessionService) VerifySummary(confessionID uuid.UUID) (bool, error) {
	confession, err := s.Get(confessionID)
	if err != nil {
		return false, err
	}

	var rows []models.Reaction
	if err := s.db.Where("confession_id = ?", confessionID).Find(&rows).Error; err != nil {
		return false, err
	}

	actual := map[string]int{}
	for _, r := range rows {
		actual[r.Type]++
	}

	stored := confession.ReactionSummary.Data()
	for k, v := range stored {
		if v != actual[k] {
			slog.Error("reaction summary drift", "confession_id", confessionID, "type", k, "stored", v, "actual", actual[k])
			return false, nil
		}
	}
	for k, v := range actual {
		if stored[k] != v {
			slog.Error("reaction summary drift", "confession_id", confessionID, "type", k, "stored", stored[k], "actual", v)
			return false, nil
		}
	}
	return true, nil
}
