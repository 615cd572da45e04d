package services

import (
	"errors"

	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	apperrors "github.com/65160020/swapup-backend/pkg/errors"
	"github.com/65160020/swapup-backend/pkg/logger"
	"gorm.io/gorm"
)

// SessionSummary is one row of a user's session list: the session plus the
// partner's profile and how many of their messages are still unread.
type SessionSummary struct {
	Session     models.Session `json:"session"`
	Partner     models.User    `json:"partner"`
	UnreadCount int64          `json:"unreadCount"`
}

// StartSession opens (or returns) the one non-closed session between two
// users. Idempotent: a second call for the same pair returns the same row.
// The create/create race between two simultaneous first contacts is
// resolved by the partial unique index on pair_key — the losing writer
// re-queries and returns the winner's session instead of failing.
func StartSession(userID, partnerID string) (*models.Session, error) {
	if partnerID == "" {
		return nil, apperrors.Validation("partnerId is required")
	}
	if userID == partnerID {
		return nil, apperrors.Validation("Cannot start a session with yourself")
	}

	var partner models.User
	if err := database.DB.Select("id").First(&partner, "id = ?", partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Partner not found")
		}
		return nil, storeErr("lookup partner", err)
	}

	pairKey := models.PairKey(userID, partnerID)

	if existing, err := findOpenSession(pairKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	session := models.Session{
		UserAID:    userID,
		UserBID:    partnerID,
		Status:     models.SessionActive,
		ReviewedBy: []string{},
	}

	if err := database.DB.Create(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race: someone inserted the pair first.
			existing, qerr := findOpenSession(pairKey)
			if qerr != nil {
				return nil, qerr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, storeErr("create session", err)
	}

	return &session, nil
}

func findOpenSession(pairKey string) (*models.Session, error) {
	var session models.Session
	err := database.DB.
		Where("pair_key = ? AND status <> ?", pairKey, models.SessionClosed).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find open session", err)
	}
	return &session, nil
}

// GetSession loads one session for a participant.
func GetSession(sessionID, viewerID string) (*models.Session, error) {
	var session models.Session
	if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Session not found")
		}
		return nil, storeErr("load session", err)
	}
	if !session.IsParticipant(viewerID) {
		return nil, apperrors.Forbidden("Not a participant of this session")
	}
	return &session, nil
}

// ListSessions returns the user's non-closed sessions, most recent activity
// first. Sessions whose reviewed_by already covers both participants are
// filtered out defensively even if their status has not advanced to closed
// yet.
func ListSessions(userID string) ([]SessionSummary, error) {
	var sessions []models.Session
	err := database.DB.
		Where("(user_a_id = ? OR user_b_id = ?) AND status <> ?", userID, userID, models.SessionClosed).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, storeErr("list sessions", err)
	}

	visible := sessions[:0]
	sessionIDs := make([]string, 0, len(sessions))
	partnerIDs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if s.FullyReviewed() {
			continue
		}
		visible = append(visible, s)
		sessionIDs = append(sessionIDs, s.ID)
		partnerIDs = append(partnerIDs, s.PartnerOf(userID))
	}

	if len(visible) == 0 {
		return []SessionSummary{}, nil
	}

	var partners []models.User
	if err := database.DB.Where("id IN ?", partnerIDs).Find(&partners).Error; err != nil {
		return nil, storeErr("load partners", err)
	}
	partnerByID := make(map[string]models.User, len(partners))
	for _, p := range partners {
		partnerByID[p.ID] = p
	}

	unread, err := unreadCounts(sessionIDs, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(visible))
	for _, s := range visible {
		summaries = append(summaries, SessionSummary{
			Session:     s,
			Partner:     partnerByID[s.PartnerOf(userID)],
			UnreadCount: unread[s.ID],
		})
	}
	return summaries, nil
}

func unreadCounts(sessionIDs []string, viewerID string) (map[string]int64, error) {
	type row struct {
		SessionID string
		Count     int64
	}
	var rows []row
	err := database.DB.Model(&models.Message{}).
		Select("session_id, COUNT(*) as count").
		Where("session_id IN ? AND sender_id <> ? AND is_read = ?", sessionIDs, viewerID, false).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("count unread", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.SessionID] = r.Count
	}
	return counts, nil
}

func publishSessionUpdated(session *models.Session) {
	publishEvent(realtime.SessionTopic(session.ID), models.MessageEvent{
		Op:      models.SessionUpdated,
		Session: session,
	})
}

// storeErr logs a backend failure and surfaces it as StoreUnavailable. Not
// retried here; the caller's next reconciliation tick retries naturally.
func storeErr(op string, err error) error {
	logger.Error().Err(err).Str("op", op).Msg("Store operation failed")
	return apperrors.StoreUnavailable("Data store unavailable")
}
