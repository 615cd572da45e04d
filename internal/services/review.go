package services

import (
	"errors"

	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/models"
	apperrors "github.com/65160020/swapup-backend/pkg/errors"
	"github.com/65160020/swapup-backend/pkg/logger"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReviewInput carries one party's rating of the other. Dimension scores
// outside 1..5 are stored as NULL rather than rejected, matching the review
// form's optional per-dimension stars.
type ReviewInput struct {
	Rating         int    `json:"rating" binding:"required"`
	Comment        string `json:"comment"`
	VoiceTone      *int   `json:"voiceTone"`
	Relevance      *int   `json:"relevance"`
	Politeness     *int   `json:"politeness"`
	OpenMindedness *int   `json:"openMindedness"`
	Friendliness   *int   `json:"friendliness"`
	Creativity     *int   `json:"creativity"`
	ProblemSolving *int   `json:"problemSolving"`
}

// SubmitReview records the reviewer's rating and advances the session's
// lifecycle. The three steps run in order, each best-effort (no cross-step
// rollback): (1) insert the review row — duplicates are permitted and
// counted, (2) recompute the reviewee's aggregate onto their profile,
// (3) advance reviewed_by/status with a version compare-and-swap so a
// concurrent reviewer's addition is never lost.
func SubmitReview(sessionID, reviewerID string, in ReviewInput) (*models.Session, error) {
	session, err := GetSession(sessionID, reviewerID)
	if err != nil {
		return nil, err
	}

	if session.Status == models.SessionClosed {
		return nil, apperrors.StateConflict("Session is already closed", session.Status)
	}
	if session.HasReviewed(reviewerID) {
		return nil, apperrors.StateConflict("You have already reviewed this session", session.Status)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.Validation("Rating must be between 1 and 5")
	}

	revieweeID := session.PartnerOf(reviewerID)

	// Step 1: the review row itself.
	review := models.Review{
		SessionID:      sessionID,
		ReviewerID:     reviewerID,
		RevieweeID:     revieweeID,
		Rating:         in.Rating,
		Comment:        in.Comment,
		VoiceTone:      dimScore(in.VoiceTone),
		Relevance:      dimScore(in.Relevance),
		Politeness:     dimScore(in.Politeness),
		OpenMindedness: dimScore(in.OpenMindedness),
		Friendliness:   dimScore(in.Friendliness),
		Creativity:     dimScore(in.Creativity),
		ProblemSolving: dimScore(in.ProblemSolving),
	}
	if err := database.DB.Create(&review).Error; err != nil {
		return nil, storeErr("insert review", err)
	}

	// Step 2: reviewee's aggregate rating. The mean runs over every review
	// row for them, including duplicates from the same reviewer.
	if err := recomputeRating(revieweeID); err != nil {
		// The review is recorded; the aggregate will be corrected by the
		// reviewee's next received review. Surface the failure anyway.
		return nil, err
	}

	// Step 3: the closure gate.
	updated, err := advanceReviewState(sessionID, reviewerID)
	if err != nil {
		return nil, err
	}

	publishSessionUpdated(updated)
	return updated, nil
}

// dimScore returns nil for anything outside the 1..5 star range.
func dimScore(v *int) *int {
	if v == nil || *v < 1 || *v > 5 {
		return nil
	}
	return v
}

func recomputeRating(revieweeID string) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	err := database.DB.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Where("reviewee_id = ?", revieweeID).
		Scan(&agg).Error
	if err != nil {
		return storeErr("aggregate rating", err)
	}

	err = database.DB.Model(&models.User{}).
		Where("id = ?", revieweeID).
		Updates(map[string]interface{}{
			"rating":        agg.Avg,
			"reviews_count": agg.Count,
		}).Error
	if err != nil {
		return storeErr("update rating", err)
	}
	return nil
}

// advanceReviewState adds the reviewer to reviewed_by and derives the new
// status: closed once both participants are covered, ended otherwise. The
// write is guarded by the row version; on contention it re-reads and
// retries, so the invariant "closed iff reviewed_by covers both" holds
// under concurrent submissions from both parties.
func advanceReviewState(sessionID, reviewerID string) (*models.Session, error) {
	for {
		var s models.Session
		if err := database.DB.First(&s, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Session not found")
			}
			return nil, storeErr("reload session", err)
		}

		if s.HasReviewed(reviewerID) {
			// A concurrent writer already merged this reviewer in.
			return &s, nil
		}

		newReviewed := append(append([]string{}, s.ReviewedBy...), reviewerID)
		newStatus := models.SessionEnded
		if covers(newReviewed, s.UserAID) && covers(newReviewed, s.UserBID) {
			newStatus = models.SessionClosed
		}

		res := database.DB.Model(&models.Session{}).
			Where("id = ? AND version = ?", s.ID, s.Version).
			Updates(map[string]interface{}{
				"reviewed_by": pq.StringArray(newReviewed),
				"status":      newStatus,
				"version":     s.Version + 1,
			})
		if res.Error != nil {
			return nil, storeErr("advance session state", res.Error)
		}
		if res.RowsAffected == 1 {
			s.ReviewedBy = newReviewed
			s.Status = newStatus
			s.Version++
			return &s, nil
		}

		// Version moved under us — the other participant's review landed
		// between the read and the write. Retry from their state.
		logger.Debug().Str("session", sessionID).Msg("Review gate CAS contention, retrying")
	}
}

func covers(reviewed []string, userID string) bool {
	for _, id := range reviewed {
		if id == userID {
			return true
		}
	}
	return false
}
